// database.go - SQLite-Datenbank der Merge-Historie
// Enthaelt: Journal struct, Open, Close, init, Schema-Version

package journal

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3" // SQLite-Treiber registrieren
)

// currentSchemaVersion wird bei Schema-Aenderungen erhoeht
const currentSchemaVersion = 1

var ErrSchemaTooNew = errors.New("journal schema is newer than this binary")

// Journal ist die Historie aller gespeicherten Merge-Ergebnisse.
// SQLite serialisiert Schreiber selbst, im WAL-Modus blockieren Leser nicht.
type Journal struct {
	conn *sql.DB
}

// Open oeffnet die Datenbank unter path und legt sie bei Bedarf an
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}

	j := &Journal{conn: conn}
	if err := j.init(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("initialize journal: %w", err)
	}

	return j, nil
}

// Close schliesst die Datenbankverbindung
func (j *Journal) Close() error {
	_, _ = j.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE);")
	return j.conn.Close()
}

func (j *Journal) init() error {
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS meta (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		schema_version INTEGER NOT NULL DEFAULT %d
	);

	INSERT OR IGNORE INTO meta (id) VALUES (1);

	CREATE TABLE IF NOT EXISTS artifacts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		name TEXT NOT NULL,
		path TEXT NOT NULL,
		strategy TEXT NOT NULL,
		algorithm TEXT NOT NULL DEFAULT '',
		weight REAL NOT NULL DEFAULT 0,
		sources TEXT NOT NULL DEFAULT '',
		tensors INTEGER NOT NULL DEFAULT 0,
		size INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_artifacts_run_id ON artifacts(run_id);
	`, currentSchemaVersion)

	if _, err := j.conn.Exec(schema); err != nil {
		return err
	}

	version, err := j.schemaVersion()
	if err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	if version > currentSchemaVersion {
		return fmt.Errorf("%w: %d > %d", ErrSchemaTooNew, version, currentSchemaVersion)
	}

	return nil
}

func (j *Journal) schemaVersion() (int, error) {
	var version int
	err := j.conn.QueryRow("SELECT schema_version FROM meta WHERE id = 1").Scan(&version)
	return version, err
}
