// Package audit appends security-relevant events to a JSON-lines file.
package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeDenied  = "denied"
)

type Event struct {
	At        string `json:"at"`
	RequestID string `json:"request_id,omitempty"`
	Actor     string `json:"actor"`
	Role      string `json:"role,omitempty"`
	Action    string `json:"action"`
	Target    string `json:"target,omitempty"`
	Outcome   string `json:"outcome"`
	IP        string `json:"ip,omitempty"`
	Detail    string `json:"detail,omitempty"`
}

type Logger struct {
	path    string
	nowFunc func() time.Time
	mu      sync.Mutex
}

// NewLogger returns a logger appending to path. An empty path disables
// auditing.
func NewLogger(path string) *Logger {
	return &Logger{path: path, nowFunc: time.Now}
}

// Record stamps the event and appends it as one line. Anonymous actors are
// written as "-".
func (l *Logger) Record(e Event) error {
	if l == nil || l.path == "" {
		return nil
	}
	e.At = l.nowFunc().UTC().Format(time.RFC3339)
	if e.Actor == "" {
		e.Actor = "-"
	}
	b, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("mkdir audit log dir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open audit log file: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(append(b, '\n')); err != nil {
		return fmt.Errorf("write audit log entry: %w", err)
	}
	return nil
}
