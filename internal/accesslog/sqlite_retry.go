package accesslog

import (
	"database/sql"
	"log"
	"math/rand"
	"strings"
	"time"
)

const (
	maxRetries = 50
	baseDelay  = 10 * time.Millisecond
	maxDelay   = 25 * time.Millisecond
)

// isRetryableError checks if the error is a retryable SQLite error
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked") ||
		strings.Contains(errStr, "busy")
}

func backoff(attempt int) {
	delay := time.Duration(attempt+1) * baseDelay
	if delay > maxDelay {
		delay = maxDelay
	}
	// up to 50% jitter
	jitter := time.Duration(rand.Int63n(int64(delay) / 2))
	time.Sleep(delay + jitter)
}

// retryableExec executes a SQL statement with retry logic for lock conflicts
func retryableExec(db *sql.DB, query string, args ...interface{}) (sql.Result, error) {
	var result sql.Result
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		result, err = db.Exec(query, args...)
		if !isRetryableError(err) {
			return result, err
		}
		if attempt < maxRetries-1 {
			log.Printf("[ACCESSLOG]: SQLite retry attempt %d/%d: %v", attempt+1, maxRetries, err)
			backoff(attempt)
		}
	}
	return result, err
}

// retryableQuery executes a query that returns multiple rows with retry logic
func retryableQuery(db *sql.DB, query string, args ...interface{}) (*sql.Rows, error) {
	var rows *sql.Rows
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		rows, err = db.Query(query, args...)
		if !isRetryableError(err) {
			return rows, err
		}
		if attempt < maxRetries-1 {
			log.Printf("[ACCESSLOG]: SQLite retry attempt %d/%d: %v", attempt+1, maxRetries, err)
			backoff(attempt)
		}
	}
	return rows, err
}

// retryableQueryRowScan executes a QueryRow and Scan with retry logic
func retryableQueryRowScan(db *sql.DB, query string, args []interface{}, dest ...interface{}) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = db.QueryRow(query, args...).Scan(dest...)
		if !isRetryableError(err) {
			return err
		}
		if attempt < maxRetries-1 {
			backoff(attempt)
		}
	}
	return err
}
