// Package audit is the shim in front of the external action-log sink: an
// append-only JSON Lines record of who did what. Recording is fire and
// forget; an operation never fails because its audit write did.
package audit

import (
	"encoding/json"
	"os"
	"sync"
	"time"
)

// Entry is a single action-log record.
type Entry struct {
	Timestamp   string `json:"ts"` // RFC3339 with microseconds.
	Actor       string `json:"actor"`
	Operation   string `json:"op"`
	SubjectType string `json:"subject_type,omitempty"`
	SubjectID   string `json:"subject_id,omitempty"`
}

// Sink receives action-log records.
type Sink interface {
	Record(entry Entry)
}

// FileSink appends entries to a JSONL file.
type FileSink struct {
	mu   sync.Mutex
	path string
}

func NewFileSink(path string) *FileSink {
	return &FileSink{path: path}
}

// Record appends one entry. Failures are swallowed: the sink is external
// and best-effort by contract.
func (s *FileSink) Record(entry Entry) {
	if entry.Timestamp == "" {
		entry.Timestamp = time.Now().UTC().Format("2006-01-02T15:04:05.000000Z")
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = f.Write(append(data, '\n'))
}

// NopSink discards every entry.
type NopSink struct{}

func (NopSink) Record(Entry) {}
