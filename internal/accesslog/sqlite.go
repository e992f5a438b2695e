package accesslog

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite3 driver
)

// SQLiteSink mirrors access log entries into a sqlite database
type SQLiteSink struct {
	db   *sql.DB
	path string
}

const query_accesslog_initSchema = `
CREATE TABLE IF NOT EXISTS access_log (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	logged_at INTEGER NOT NULL,
	method TEXT NOT NULL,
	url TEXT NOT NULL,
	line TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_access_log_logged_at
ON access_log(logged_at);
`

// OpenSQLite opens (or creates) the sqlite database at dbPath
func OpenSQLite(dbPath string) (*SQLiteSink, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create access log db directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open access log database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping access log database: %w", err)
	}
	if _, err := retryableExec(db, query_accesslog_initSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize access log schema: %w", err)
	}
	return &SQLiteSink{db: db, path: dbPath}, nil
}

const query_accesslog_Append = `
INSERT INTO access_log (logged_at, method, url, line)
VALUES (?, ?, ?, ?)
`

// Append inserts the entry
func (s *SQLiteSink) Append(e Entry) error {
	_, err := retryableExec(s.db, query_accesslog_Append, e.Time.UnixNano(), e.Method, e.URL, e.Line())
	if err != nil {
		return fmt.Errorf("failed to insert access log entry: %w", err)
	}
	return nil
}

const query_accesslog_Recent = `
SELECT logged_at, method, url FROM access_log
ORDER BY id DESC
LIMIT ?
`

// Recent returns up to limit of the newest entries, oldest first
func (s *SQLiteSink) Recent(limit int) ([]Entry, error) {
	rows, err := retryableQuery(s.db, query_accesslog_Recent, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query access log: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var loggedAt int64
		var e Entry
		if err := rows.Scan(&loggedAt, &e.Method, &e.URL); err != nil {
			return nil, fmt.Errorf("failed to scan access log row: %w", err)
		}
		e.Time = time.Unix(0, loggedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

const query_accesslog_Count = `SELECT COUNT(*) FROM access_log`

// Count returns the number of stored entries
func (s *SQLiteSink) Count() (int64, error) {
	var n int64
	if err := retryableQueryRowScan(s.db, query_accesslog_Count, nil, &n); err != nil {
		return 0, fmt.Errorf("failed to count access log rows: %w", err)
	}
	return n, nil
}

func (s *SQLiteSink) Close() error {
	return s.db.Close()
}
