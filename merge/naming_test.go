package merge

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestArtifactName(t *testing.T) {
	name := ArtifactName("style", "detail", Adaptive, 0.25)
	assert.Regexp(t, regexp.MustCompile(`^merge_style_adaptive_025p_detail_[0-9a-f]{8}\.safetensors$`), name)
	assert.Equal(t, name, ArtifactName("style", "detail", Adaptive, 0.25))

	cases := []struct {
		name string
		got  string
	}{
		{"quellen vertauscht", ArtifactName("detail", "style", Adaptive, 0.25)},
		{"strategie", ArtifactName("style", "detail", Manual, 0.25)},
		{"gewicht", ArtifactName("style", "detail", Adaptive, 0.5)},
		{"gleich gerundet", ArtifactName("style", "detail", Adaptive, 0.251)},
		{"gleich bereinigt", ArtifactName("style!", "detail", Adaptive, 0.25)},
	}

	seen := map[string]string{name: "basis"}
	for _, tt := range cases {
		if other, ok := seen[tt.got]; ok {
			t.Errorf("%s collides with %s: %s", tt.name, other, tt.got)
		}
		seen[tt.got] = tt.name
	}
}

func TestSanitize(t *testing.T) {
	cases := map[string]string{
		"simple":          "simple",
		"with space":      "with-space",
		"under_score":     "under-score",
		"../../etc":       "etc",
		"ümlaut-v1.2":     "ümlaut-v1.2",
		"a  /\\ b":        "a-b",
		"___":             "unnamed",
		"keep-dash.final": "keep-dash.final",
	}

	for in, want := range cases {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, sanitize(in))
		})
	}
}

func TestBulkArtifactName(t *testing.T) {
	a := BulkArtifactName([]string{"a", "b", "c"}, UnionAll, Adaptive)
	assert.Regexp(t, `^merge_bulk_union_adaptive_3models_[0-9a-f]{8}\.safetensors$`, a)
	assert.NotEqual(t, a, BulkArtifactName([]string{"a", "b", "c"}, Fold, Adaptive))
	assert.NotEqual(t, a, BulkArtifactName([]string{"a", "b", "d"}, UnionAll, Adaptive))
}
