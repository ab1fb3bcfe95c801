// bulk.go - Zusammenfuehren vieler Modelle aus einem Verzeichnis
//
// Enthaelt:
// - Bulk.Fold: sequentieller Fold in Batches, Abbruch mit Teilergebnis
// - Bulk.UnionAll: alle Tensoren eines Keys in einem Schritt, mit Fallback
// - MergeKey/KeyResult/MergeFailure: Ergebnis pro Key
// - Report, CheckSize: Zaehler und Plausibilitaetspruefung der Ausgabe
package merge

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"github.com/emirpasic/gods/v2/lists/arraylist"
	"gonum.org/v1/gonum/floats"

	"github.com/loramerge/loramerge/fs"
	"github.com/loramerge/loramerge/ml"
)

var (
	ErrBudgetExhausted = errors.New("not enough memory for another model")
	ErrNonFinite       = errors.New("result contains NaN or Inf")
	ErrOutputSmaller   = errors.New("merged output is smaller than the largest input")
)

// Algorithm waehlt den Bulk-Algorithmus
type Algorithm int

const (
	// Fold fuehrt die Modelle nacheinander mit Gewicht 0.5 in einen Akkumulator
	Fold Algorithm = iota
	// UnionAll kombiniert pro Key alle Modelle auf einmal
	UnionAll
)

var algorithmNames = map[string]Algorithm{
	"fold":       Fold,
	"sequential": Fold,
	"union":      UnionAll,
	"union-all":  UnionAll,
}

func (a Algorithm) String() string {
	switch a {
	case Fold:
		return "fold"
	case UnionAll:
		return "union"
	default:
		return fmt.Sprintf("algorithm(%d)", int(a))
	}
}

// ParseAlgorithm liest einen Algorithmus-Namen
func ParseAlgorithm(name string) (Algorithm, error) {
	if a, ok := algorithmNames[strings.ToLower(strings.TrimSpace(name))]; ok {
		return a, nil
	}

	return 0, &ConfigError{Field: "algorithm", Value: name, Reason: unknownName(name, algorithmNames)}
}

// MergeFailure ist der Fehler beim Kombinieren eines einzelnen Keys
type MergeFailure struct {
	Key string
	Err error
}

func (f *MergeFailure) Error() string {
	return fmt.Sprintf("key %q: %v", f.Key, f.Err)
}

func (f *MergeFailure) Unwrap() error {
	return f.Err
}

// KeyResult ist das Ergebnis fuer einen Key. Ist Failure gesetzt und
// Fallback true, stammt Tensor unveraendert aus dem Fallback-Modell; ist
// Tensor nil, entfaellt der Key.
type KeyResult struct {
	Key      string
	Tensor   *ml.Tensor
	Sources  int
	Failure  *MergeFailure
	Fallback bool
}

// MergeKey kombiniert alle Tensoren eines Keys mit der N-aeren Regel von s.
// Schlaegt das fehl, wird der Tensor aus fallback verwendet, falls dort
// vorhanden.
func MergeKey(key string, ts []*ml.Tensor, s Strategy, fallback ml.Dictionary) KeyResult {
	r := KeyResult{Key: key, Sources: len(ts)}

	t, err := s.CombineN(ts)
	if err == nil && len(ts) > 1 {
		err = checkFinite(t)
	}

	if err == nil {
		r.Tensor = t
		return r
	}

	r.Failure = &MergeFailure{Key: key, Err: err}
	if t, ok := fallback[key]; ok {
		r.Tensor = t
		r.Fallback = true
	}

	return r
}

// checkFinite prueft jedes Element einzeln; die Summe grosser, aber
// endlicher Werte darf ueberlaufen
func checkFinite(t *ml.Tensor) error {
	xs := t.Floats()
	if floats.HasNaN(xs) {
		return ErrNonFinite
	}
	for _, x := range xs {
		if math.IsInf(x, 0) {
			return ErrNonFinite
		}
	}
	return nil
}

// Report fasst einen Bulk-Merge zusammen
type Report struct {
	Algorithm Algorithm
	Strategy  Strategy

	// Merged enthaelt die Namen der Modelle, die im Ergebnis stecken
	Merged []string
	// Skipped enthaelt unlesbare bzw. nach einem Abbruch nicht mehr
	// verarbeitete Modelle
	Skipped []string

	// Tensors zaehlt Kombinationen aus mindestens zwei Quellen
	Tensors int
	// Keys ist die Anzahl der Keys im Ergebnis
	Keys int

	Fallbacks []string
	Dropped   []string

	// Stopped ist der Grund fuer einen vorzeitig beendeten Fold
	Stopped error

	// Largest ist die groesste Eingabedatei
	Largest fs.FileInfo
}

// CheckSize vergleicht die Groesse der geschriebenen Datei mit der
// groessten Eingabe
func (r *Report) CheckSize(output int64) error {
	return CheckSize(output, r.Largest.Size)
}

// Metadata gibt die Eintraege fuer den __metadata__-Block zurueck
func (r *Report) Metadata(runID string) map[string]string {
	return map[string]string{
		"loramerge.run_id":    runID,
		"loramerge.algorithm": r.Algorithm.String(),
		"loramerge.strategy":  r.Strategy.String(),
		"loramerge.sources":   strings.Join(r.Merged, ","),
		"loramerge.models":    strconv.Itoa(len(r.Merged)),
	}
}

// CheckSize meldet ErrOutputSmaller, wenn output kleiner als largest ist.
// Das ist nur ein Hinweis auf moeglichen Datenverlust, kein Fehler.
func CheckSize(output, largest int64) error {
	if output < largest {
		return fmt.Errorf("%w: %d < %d bytes", ErrOutputSmaller, output, largest)
	}
	return nil
}

// Bulk fuehrt viele Modelle zu einem zusammen
type Bulk struct {
	Strategy Strategy

	// Budget bestimmt die Batch-Groesse des Folds; nil laedt alle auf einmal
	Budget BudgetPolicy

	// Load ist der Loader; nil verwendet fs.Load
	Load LoadFunc

	Progress ProgressFunc
}

// Run fuehrt den gewaehlten Algorithmus aus
func (b *Bulk) Run(alg Algorithm, files []fs.FileInfo) (ml.Dictionary, *Report, error) {
	switch alg {
	case Fold:
		return b.Fold(files)
	case UnionAll:
		return b.UnionAll(files)
	default:
		return nil, nil, &ConfigError{Field: "algorithm", Value: alg, Reason: "unknown algorithm"}
	}
}

func (b *Bulk) load(f fs.FileInfo) (ml.Dictionary, error) {
	if f.Err != nil {
		return nil, fmt.Errorf("load %s: %w", f.Name, f.Err)
	}

	load := b.Load
	if load == nil {
		load = fs.Load
	}

	d, err := load(f.Path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", f.Name, err)
	}
	return d, nil
}

func (b *Bulk) validate(files []fs.FileInfo) error {
	if len(files) < 2 {
		return &ConfigError{Field: "sources", Reason: fmt.Sprintf("need at least two models, got %d", len(files))}
	}

	if !b.Strategy.valid() {
		return &ConfigError{Field: "strategy", Value: b.Strategy, Reason: "unknown strategy"}
	}
	return nil
}

func newReport(alg Algorithm, s Strategy, files []fs.FileInfo) *Report {
	r := &Report{Algorithm: alg, Strategy: s}
	r.Largest, _ = fs.Largest(files)
	return r
}

// Fold fuehrt die Modelle der Reihe nach mit Gewicht 0.5 in einen
// Akkumulator. Dateien, deren Header schon beim Scan unlesbar war, werden
// vorab uebersprungen. Pro Durchlauf werden so viele Modelle geladen, wie
// Budget erlaubt. Scheitert ein Durchlauf (Laden, Merge oder Budget 0),
// endet der Fold mit dem Stand vor diesem Durchlauf; der Grund steht in
// Report.Stopped.
func (b *Bulk) Fold(files []fs.FileInfo) (ml.Dictionary, *Report, error) {
	if err := b.validate(files); err != nil {
		return nil, nil, err
	}

	r := newReport(Fold, b.Strategy, files)
	for _, f := range files {
		if f.Err != nil {
			slog.Warn("skipping unreadable model", "model", f.Name, "error", f.Err)
			r.Skipped = append(r.Skipped, f.Name)
		}
	}

	files = fs.Readable(files)
	if len(files) < 2 {
		return nil, nil, &ConfigError{Field: "sources", Reason: fmt.Sprintf("need at least two readable models, got %d", len(files))}
	}

	budget := b.Budget
	if budget == nil {
		budget = FixedBudget(len(files))
	}

	queue := arraylist.New(files...)

	head, _ := queue.Get(0)
	queue.Remove(0)

	acc, err := b.load(head)
	if err != nil {
		return nil, nil, err
	}

	r.Merged = append(r.Merged, head.Name)
	b.Progress.report(StageMerging, head.Name, 1, len(files))

	for !queue.Empty() {
		n := budget.BatchSize(queue.Size(), uint64(largestSize(queue.Values())))
		if n <= 0 {
			r.Stopped = ErrBudgetExhausted
			break
		}

		slog.Debug("fold batch", "size", n, "remaining", queue.Size())

		batch := make([]fs.FileInfo, 0, n)
		for range n {
			f, _ := queue.Get(0)
			queue.Remove(0)
			batch = append(batch, f)
		}

		next, tensors, err := b.foldBatch(acc, batch, len(r.Merged), len(files))
		if err != nil {
			r.Stopped = err
			for _, f := range batch {
				r.Skipped = append(r.Skipped, f.Name)
			}
			break
		}

		acc = next
		r.Tensors += tensors
		for _, f := range batch {
			r.Merged = append(r.Merged, f.Name)
		}
	}

	for _, f := range queue.Values() {
		r.Skipped = append(r.Skipped, f.Name)
	}

	if r.Stopped != nil {
		slog.Warn("fold stopped early, keeping merged result", "merged", len(r.Merged), "skipped", len(r.Skipped), "error", r.Stopped)
	}

	r.Keys = len(acc)
	return acc, r, nil
}

// foldBatch merged alle Modelle eines Durchlaufs in eine Kopie des
// Akkumulators. Bei einem Fehler bleibt acc unveraendert.
func (b *Bulk) foldBatch(acc ml.Dictionary, batch []fs.FileInfo, done, total int) (ml.Dictionary, int, error) {
	var tensors int
	for _, f := range batch {
		d, err := b.load(f)
		if err != nil {
			return nil, 0, err
		}

		for k := range d {
			if _, ok := acc[k]; ok {
				tensors++
			}
		}

		acc, err = Merge(acc, d, b.Strategy, 0.5)
		if err != nil {
			return nil, 0, fmt.Errorf("merge %s: %w", f.Name, err)
		}

		done++
		slog.Debug("folded", "model", f.Name, "keys", len(acc))
		b.Progress.report(StageMerging, f.Name, done, total)
	}

	return acc, tensors, nil
}

func largestSize(files []fs.FileInfo) int64 {
	f, _ := fs.Largest(files)
	return f.Size
}

// UnionAll laedt alle Modelle und kombiniert fuer jeden Key alle Tensoren
// mit der N-aeren Regel. Unlesbare Modelle werden uebersprungen. Scheitert
// ein Key, wird der Tensor des groessten geladenen Modells verwendet oder
// der Key entfaellt.
func (b *Bulk) UnionAll(files []fs.FileInfo) (ml.Dictionary, *Report, error) {
	if err := b.validate(files); err != nil {
		return nil, nil, err
	}

	r := newReport(UnionAll, b.Strategy, files)

	var dicts []ml.Dictionary
	var loaded []fs.FileInfo
	for i, f := range files {
		b.Progress.report(StageLoading, f.Name, i, len(files))

		d, err := b.load(f)
		if err != nil {
			slog.Warn("skipping unreadable model", "model", f.Name, "error", err)
			r.Skipped = append(r.Skipped, f.Name)
			continue
		}

		dicts = append(dicts, d)
		loaded = append(loaded, f)
		r.Merged = append(r.Merged, f.Name)
		b.Progress.report(StageLoading, f.Name, i+1, len(files))
	}

	if len(dicts) < 2 {
		return nil, nil, &ConfigError{Field: "sources", Reason: fmt.Sprintf("need at least two readable models, got %d", len(dicts))}
	}

	var fallback ml.Dictionary
	if largest, ok := fs.Largest(loaded); ok {
		for i, f := range loaded {
			if f == largest {
				fallback = dicts[i]
				break
			}
		}
		slog.Debug("fallback model", "model", largest.Name, "size", largest.Size)
	}

	keys := unionKeys(dicts...)
	out := make(ml.Dictionary, len(keys))
	for i, key := range keys {
		var ts []*ml.Tensor
		for _, d := range dicts {
			if t, ok := d[key]; ok {
				ts = append(ts, t)
			}
		}

		res := MergeKey(key, ts, b.Strategy, fallback)
		switch {
		case res.Failure == nil:
			out[key] = res.Tensor
			if res.Sources > 1 {
				r.Tensors++
			}
		case res.Fallback:
			slog.Warn("merge failed, using tensor from largest model", "key", key, "error", res.Failure.Err)
			out[key] = res.Tensor
			r.Fallbacks = append(r.Fallbacks, key)
		default:
			slog.Warn("merge failed, dropping key", "key", key, "error", res.Failure.Err)
			r.Dropped = append(r.Dropped, key)
		}

		b.Progress.report(StageMerging, "", i+1, len(keys))
	}

	r.Keys = len(out)
	return out, r, nil
}
