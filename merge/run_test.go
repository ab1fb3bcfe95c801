package merge

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loramerge/loramerge/fs"
	"github.com/loramerge/loramerge/fs/safetensors"
	"github.com/loramerge/loramerge/ml"
)

func writeSources(t *testing.T) (string, string, ml.Dictionary, ml.Dictionary) {
	t.Helper()

	dir := t.TempDir()
	a := ml.Dictionary{
		"lora_down.weight": tensorOf(t, []int{2, 2}, 1, 2, 3, 4),
		"lora_up.weight":   vec(t, 0.5, -0.5),
	}
	b := ml.Dictionary{
		"lora_down.weight": tensorOf(t, []int{2, 3}, 4, 3, 2, 1, 0, -1),
		"alpha":            vec(t, 8),
	}

	pa, pb := filepath.Join(dir, "style one.safetensors"), filepath.Join(dir, "detail.safetensors")
	require.NoError(t, fs.Save(pa, a, nil))
	require.NoError(t, fs.Save(pb, b, nil))
	return pa, pb, a, b
}

func TestConfigValidate(t *testing.T) {
	pa, pb, _, _ := writeSources(t)
	dir := filepath.Dir(pa)
	txt := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(txt, []byte("x"), 0o644))

	cases := []struct {
		name  string
		cfg   Config
		field string
	}{
		{"gueltig", Config{Sources: []string{pa, pb}, Weight: 50}, ""},
		{"gueltig mix", Config{Sources: []string{pa, pb}, Mix: []float64{0, 50, 100}}, ""},
		{"eine quelle", Config{Sources: []string{pa}, Weight: 50}, "sources"},
		{"drei quellen", Config{Sources: []string{pa, pb, pa}, Weight: 50}, "sources"},
		{"fehlt", Config{Sources: []string{pa, filepath.Join(dir, "nope.safetensors")}, Weight: 50}, "source"},
		{"verzeichnis", Config{Sources: []string{pa, filepath.Join(dir, "sub.safetensors")}, Weight: 50}, "source"},
		{"unbekanntes format", Config{Sources: []string{txt, pb}, Weight: 50}, "source"},
		{"gewicht zu gross", Config{Sources: []string{pa, pb}, Weight: 150}, "weight"},
		{"gewicht negativ", Config{Sources: []string{pa, pb}, Weight: -1}, "weight"},
		{"mix doppelt", Config{Sources: []string{pa, pb}, Mix: []float64{25, 25}}, "weight"},
		{"mix ausserhalb", Config{Sources: []string{pa, pb}, Mix: []float64{25, 101}}, "weight"},
		{"strategie", Config{Sources: []string{pa, pb}, Strategy: Strategy(9), Weight: 50}, "strategy"},
	}

	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub.safetensors"), 0o755))

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}

			var cerr *ConfigError
			require.True(t, errors.As(err, &cerr), "got %v", err)
			assert.Equal(t, tt.field, cerr.Field)
		})
	}
}

func TestConfigFractions(t *testing.T) {
	assert.Equal(t, []float64{0.5}, Config{Weight: 50}.Fractions())
	assert.Equal(t, []float64{0.75, 0.25}, Config{Weight: 50, Mix: []float64{75, 25}}.Fractions())
}

func TestRun(t *testing.T) {
	pa, pb, a, b := writeSources(t)

	var events []Progress
	cfg := Config{Sources: []string{pa, pb}, Strategy: Manual, Mix: []float64{25, 50, 75}}
	artifacts, err := Run(cfg, nil, func(p Progress) { events = append(events, p) })
	require.NoError(t, err)
	require.Len(t, artifacts, 3)

	names := map[string]bool{}
	for i, f := range []float64{0.25, 0.5, 0.75} {
		art := artifacts[i]
		assert.Equal(t, f, art.Fraction)
		assert.Equal(t, Manual, art.Strategy)
		assert.Equal(t, []string{"style one.safetensors", "detail.safetensors"}, art.Sources)
		assert.NotEmpty(t, art.RunID)
		assert.Equal(t, artifacts[0].RunID, art.RunID)
		assert.Equal(t, ArtifactName("style one", "detail", Manual, f), art.Name)
		names[art.Name] = true

		want, err := Merge(a, b, Manual, f)
		require.NoError(t, err)
		requireDict(t, want, art.Dictionary)
	}
	assert.Len(t, names, 3)

	require.NotEmpty(t, events)
	assert.Equal(t, StageLoading, events[0].Stage)
	last := events[len(events)-1]
	assert.Equal(t, StageMerging, last.Stage)
	assert.Equal(t, last.Total, last.Completed)
	assert.Equal(t, 3, last.Total)
}

func TestRunMatchesMergeMix(t *testing.T) {
	pa, pb, a, b := writeSources(t)
	fractions := []float64{0.25, 0.5, 0.75}

	var finished int
	cfg := Config{Sources: []string{pa, pb}, Strategy: Adaptive, Mix: []float64{25, 50, 75}}
	artifacts, err := Run(cfg, nil, func(p Progress) {
		if p.Stage == StageMerging && p.Completed == p.Total {
			finished++
		}
	})
	require.NoError(t, err)

	want, err := MergeMix(a, b, Adaptive, fractions)
	require.NoError(t, err)
	require.Len(t, artifacts, len(want))
	for i := range want {
		requireDict(t, want[i], artifacts[i].Dictionary)
	}

	// ein abgeschlossener Merge-Durchlauf pro Gewicht
	assert.Equal(t, len(fractions), finished)
}

func TestRunRankMismatchNamesWeight(t *testing.T) {
	pa, pb, _, _ := writeSources(t)
	dicts := map[string]ml.Dictionary{
		pa: {"k": vec(t, 1, 2)},
		pb: {"k": tensorOf(t, []int{1, 2}, 1, 2)},
	}

	_, err := Run(Config{Sources: []string{pa, pb}, Mix: []float64{25, 75}}, mapLoader(dicts), nil)
	require.ErrorIs(t, err, ErrRankMismatch)
	assert.Contains(t, err.Error(), "weight 0.25")
	assert.Contains(t, err.Error(), `key "k"`)
}

func TestRunConfigErrorBeforeLoad(t *testing.T) {
	called := false
	load := func(string) (ml.Dictionary, error) {
		called = true
		return nil, nil
	}

	_, err := Run(Config{Sources: []string{"a.safetensors"}}, load, nil)
	var cerr *ConfigError
	assert.True(t, errors.As(err, &cerr))
	assert.False(t, called)
}

func TestRunLoadError(t *testing.T) {
	pa, pb, _, _ := writeSources(t)
	boom := errors.New("boom")

	_, err := Run(Config{Sources: []string{pa, pb}, Weight: 50}, func(string) (ml.Dictionary, error) {
		return nil, boom
	}, nil)
	assert.ErrorIs(t, err, boom)
}

func TestSaveAll(t *testing.T) {
	pa, pb, _, _ := writeSources(t)
	artifacts, err := Run(Config{Sources: []string{pa, pb}, Strategy: Manual, Mix: []float64{25, 50, 75}}, nil, nil)
	require.NoError(t, err)

	out := t.TempDir()
	full := errors.New("disk full")
	save := func(path string, d ml.Dictionary, md map[string]string) error {
		if filepath.Base(path) == artifacts[1].Name {
			return full
		}
		return fs.Save(path, d, md)
	}

	paths, err := SaveAll(out, artifacts, save, nil)
	require.ErrorIs(t, err, full)
	assert.Contains(t, err.Error(), artifacts[1].Name)
	require.Equal(t, []string{
		filepath.Join(out, artifacts[0].Name),
		filepath.Join(out, artifacts[2].Name),
	}, paths)

	_, err = os.Stat(filepath.Join(out, artifacts[1].Name))
	assert.ErrorIs(t, err, os.ErrNotExist)

	d, md, err := safetensors.ReadFile(paths[1])
	require.NoError(t, err)
	requireDict(t, artifacts[2].Dictionary, d)
	assert.Equal(t, "manual", md["loramerge.strategy"])
	assert.Equal(t, "0.75", md["loramerge.weight"])
	assert.Equal(t, artifacts[2].RunID, md["loramerge.run_id"])
	assert.Equal(t, "style one.safetensors,detail.safetensors", md["loramerge.sources"])
}
