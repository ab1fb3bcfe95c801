// progress.go - Fortschritts-Ereignisse der Merge-Engine
package merge

// Stage bezeichnet einen Abschnitt eines Merges
type Stage string

const (
	StageLoading Stage = "loading"
	StageMerging Stage = "merging"
	StageSaving  Stage = "saving"
)

// Progress ist ein Fortschritts-Ereignis. Name ist die Datei bzw. das
// Ergebnis, auf das sich Completed/Total beziehen (kann leer sein).
type Progress struct {
	Stage     Stage
	Name      string
	Completed int
	Total     int
}

// ProgressFunc empfaengt Fortschritts-Ereignisse. nil ist erlaubt.
type ProgressFunc func(Progress)

func (fn ProgressFunc) report(stage Stage, name string, completed, total int) {
	if fn != nil {
		fn(Progress{Stage: stage, Name: name, Completed: completed, Total: total})
	}
}
