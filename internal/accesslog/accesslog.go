// Package accesslog records one line per HTTP request in an append-only log
package accesslog

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"
)

// DateLayout renders timestamps the way a browser-side Date prints itself,
// e.g. "Thu Oct 15 2026 09:41:07 GMT+0200 (CEST)".
const DateLayout = "Mon Jan 02 2006 15:04:05 GMT-0700 (MST)"

// Entry is a single access log record
type Entry struct {
	Time   time.Time
	Method string
	URL    string
}

// NewEntry builds an Entry for r at time now.
// URL is the request URI as sent by the client, query string included.
func NewEntry(r *http.Request, now time.Time) Entry {
	uri := r.RequestURI
	if uri == "" && r.URL != nil {
		uri = r.URL.RequestURI()
	}
	return Entry{Time: now, Method: r.Method, URL: uri}
}

// Line formats the entry as "<timestamp>:<method>:<url>" without a newline
func (e Entry) Line() string {
	return e.Time.Format(DateLayout) + ":" + e.Method + ":" + e.URL
}

// Sink receives access log entries
type Sink interface {
	Append(e Entry) error
	Close() error
}

// FileSink appends lines to a file opened in append mode
type FileSink struct {
	name string
	mu   sync.Mutex
	file *os.File
}

// OpenFile opens (or creates) name for appending
func OpenFile(name string) (*FileSink, error) {
	f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open access log %s: %w", name, err)
	}
	return &FileSink{name: name, file: f}, nil
}

// Name returns the path of the log file
func (s *FileSink) Name() string {
	return s.name
}

// Append writes the entry as a single line.
// Each line goes out in one write so concurrent requests never interleave.
func (s *FileSink) Append(e Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return fmt.Errorf("access log %s is closed", s.name)
	}
	_, err := s.file.WriteString(e.Line() + "\n")
	return err
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

type multiSink []Sink

// Multi fans every entry out to all sinks
func Multi(sinks ...Sink) Sink {
	var ms multiSink
	for _, s := range sinks {
		if s != nil {
			ms = append(ms, s)
		}
	}
	return ms
}

func (ms multiSink) Append(e Entry) error {
	var errs []error
	for _, s := range ms {
		if err := s.Append(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (ms multiSink) Close() error {
	var errs []error
	for _, s := range ms {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type discard struct{}

func (discard) Append(Entry) error { return nil }
func (discard) Close() error       { return nil }

// Discard drops every entry
var Discard Sink = discard{}
