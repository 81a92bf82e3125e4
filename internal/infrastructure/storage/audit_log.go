package storage

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/buraco/pkg/application"
	"github.com/felixgeelhaar/buraco/pkg/domain/audit"
)

// DefaultAuditFile is the audit trail written by serve and watch.
const DefaultAuditFile = "buraco-audit.jsonl"

// AuditLog appends hash-chained entries to a JSON Lines file. It
// implements application.EventPublisher.
type AuditLog struct {
	path    string
	now     func() time.Time
	onError func(error)

	mu       sync.Mutex
	lastHash string
	loaded   bool
}

type AuditOption func(*AuditLog)

// WithAuditErrorHandler receives write failures from Publish.
func WithAuditErrorHandler(fn func(error)) AuditOption {
	return func(l *AuditLog) {
		if fn != nil {
			l.onError = fn
		}
	}
}

func WithAuditClock(now func() time.Time) AuditOption {
	return func(l *AuditLog) {
		if now != nil {
			l.now = now
		}
	}
}

func NewAuditLog(path string, opts ...AuditOption) *AuditLog {
	if path == "" {
		path = DefaultAuditFile
	}
	l := &AuditLog{path: path, now: time.Now, onError: func(error) {}}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *AuditLog) Path() string { return l.path }

// Publish records a session event. Image bytes and credentials never
// reach SessionEvent, so nothing sensitive is written.
func (l *AuditLog) Publish(ev application.SessionEvent) {
	meta := map[string]interface{}{}
	if ev.Step != "" {
		meta["step"] = string(ev.Step)
	}
	if ev.Severity != "" {
		meta["severity"] = ev.Severity
	}
	if _, err := l.Record(ev.Type, ev.SessionID, meta); err != nil {
		l.onError(err)
	}
}

// Record appends one entry chained to the last one in the file.
func (l *AuditLog) Record(action, sessionID string, metadata map[string]interface{}) (audit.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if !l.loaded {
		entries, err := l.load()
		if err != nil {
			return audit.Entry{}, err
		}
		if n := len(entries); n > 0 {
			l.lastHash = entries[n-1].Hash
		}
		l.loaded = true
	}

	if len(metadata) == 0 {
		metadata = nil
	}
	e := audit.Entry{
		ID:        uuid.NewString(),
		Timestamp: l.now().UTC(),
		Action:    action,
		SessionID: sessionID,
		Metadata:  metadata,
	}
	e.Seal(l.lastHash)

	data, err := json.Marshal(e)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("failed to marshal audit entry: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return audit.Entry{}, fmt.Errorf("failed to create audit directory: %w", err)
		}
	}
	// #nosec G304 -- the path comes from configuration
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return audit.Entry{}, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return audit.Entry{}, fmt.Errorf("failed to write audit entry: %w", err)
	}

	l.lastHash = e.Hash
	return e, nil
}

// Load returns every entry, oldest first. A missing file is an empty log.
func (l *AuditLog) Load() ([]audit.Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load()
}

// Verify loads the file and checks its hash chain.
func (l *AuditLog) Verify() (int, error) {
	entries, err := l.Load()
	if err != nil {
		return 0, err
	}
	return len(entries), audit.Verify(entries)
}

// Malformed lines are an error here rather than skipped: a dropped
// line would hide a break in the chain.
func (l *AuditLog) load() ([]audit.Entry, error) {
	// #nosec G304 -- the path comes from configuration
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	var entries []audit.Entry
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var e audit.Entry
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("audit log line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan audit log: %w", err)
	}
	return entries, nil
}
