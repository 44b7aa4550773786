package journal

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Journal is an append-only audit log of every handled signal. Writes are
// best-effort from the coordinator's point of view: a journal failure never
// fails the signal.
type Journal struct {
	db *sql.DB
}

// Entry is one handled signal and its outcome.
type Entry struct {
	ID         string          `json:"id"`
	ReceivedAt time.Time       `json:"receivedAt"`
	Action     string          `json:"action"`
	Symbol     string          `json:"symbol"`
	Uic        int             `json:"uic"`
	Quantity   string          `json:"quantity"`
	Success    bool            `json:"success"`
	Error      string          `json:"error,omitempty"`
	Result     json.RawMessage `json:"result,omitempty"`
}

func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir journal dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite behaves best on a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return j, nil
}

func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

func (j *Journal) migrate() error {
	_, err := j.db.Exec(`
CREATE TABLE IF NOT EXISTS executions (
    id          TEXT PRIMARY KEY,
    received_at INTEGER NOT NULL, -- unix nanoseconds
    action      TEXT NOT NULL,
    symbol      TEXT NOT NULL,
    uic         INTEGER NOT NULL,
    quantity    TEXT NOT NULL,
    success     INTEGER NOT NULL,
    error       TEXT NOT NULL DEFAULT '',
    result      TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_executions_received_at ON executions(received_at);
`)
	if err != nil {
		return fmt.Errorf("migrate journal: %w", err)
	}
	return nil
}

// Record inserts one entry.
func (j *Journal) Record(e *Entry) error {
	if j == nil || j.db == nil {
		return fmt.Errorf("journal not opened")
	}
	_, err := j.db.Exec(
		`INSERT INTO executions (id, received_at, action, symbol, uic, quantity, success, error, result)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		e.ReceivedAt.UnixNano(),
		e.Action,
		e.Symbol,
		e.Uic,
		e.Quantity,
		boolToInt(e.Success),
		e.Error,
		string(e.Result),
	)
	return err
}

// Recent returns the newest entries, most recent first.
func (j *Journal) Recent(limit int) ([]Entry, error) {
	if j == nil || j.db == nil {
		return nil, fmt.Errorf("journal not opened")
	}
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := j.db.Query(
		`SELECT id, received_at, action, symbol, uic, quantity, success, error, result
		 FROM executions ORDER BY received_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var receivedAt int64
		var success int
		var result string
		if err := rows.Scan(&e.ID, &receivedAt, &e.Action, &e.Symbol, &e.Uic, &e.Quantity, &success, &e.Error, &result); err != nil {
			return nil, err
		}
		e.ReceivedAt = time.Unix(0, receivedAt).UTC()
		e.Success = success != 0
		if result != "" {
			e.Result = json.RawMessage(result)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
