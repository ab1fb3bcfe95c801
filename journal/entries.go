// entries.go - Eintraege der Merge-Historie schreiben und lesen
// Enthaelt: Entry, Record, List

package journal

import (
	"fmt"
	"strings"
	"time"
)

// Entry beschreibt ein gespeichertes Merge-Ergebnis
type Entry struct {
	ID    int64
	RunID string
	Name  string
	Path  string

	Strategy string
	// Algorithm ist bei Zwei-Quellen-Merges leer
	Algorithm string
	Weight    float64
	Sources   []string

	Tensors   int
	Size      int64
	CreatedAt time.Time
}

// Record speichert e und gibt die vergebene ID zurueck
func (j *Journal) Record(e Entry) (int64, error) {
	res, err := j.conn.Exec(`
		INSERT INTO artifacts (run_id, name, path, strategy, algorithm, weight, sources, tensors, size)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.RunID, e.Name, e.Path, e.Strategy, e.Algorithm, e.Weight, strings.Join(e.Sources, "\n"), e.Tensors, e.Size)
	if err != nil {
		return 0, fmt.Errorf("record %s: %w", e.Name, err)
	}

	return res.LastInsertId()
}

// List gibt die letzten limit Eintraege zurueck, neueste zuerst.
// limit <= 0 liefert alle.
func (j *Journal) List(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := j.conn.Query(`
		SELECT id, run_id, name, path, strategy, algorithm, weight, sources, tensors, size, created_at
		FROM artifacts
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var sources string
		if err := rows.Scan(&e.ID, &e.RunID, &e.Name, &e.Path, &e.Strategy, &e.Algorithm, &e.Weight, &sources, &e.Tensors, &e.Size, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}

		if sources != "" {
			e.Sources = strings.Split(sources, "\n")
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
