// Package provenance implements the append-only per-run audit log (spec
// §4.8): a ProvenanceSink backed by a pluggable Adapter, grounded on the
// teacher's store.Adapter/store.MemoryAdapter pattern generalized from a
// generic key-value cache to run-keyed Run Records.
package provenance

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spetersoncode/weave"
)

// Adapter persists one run's serialized Run Record by runID. Implementations
// must be safe for concurrent use.
type Adapter interface {
	Write(ctx context.Context, runID string, data []byte) error
}

// record is the on-disk/in-memory shape of a Run Record (spec §3, §6).
type record struct {
	ID         string                     `json:"id"`
	WorkflowID string                     `json:"workflowId"`
	StartedAt  time.Time                  `json:"startedAt"`
	FinishedAt *time.Time                 `json:"finishedAt,omitempty"`
	Agents     []weave.ProvenanceAgent    `json:"agents"`
	Log        []weave.ProvenanceEntry    `json:"log"`
	Result     *weave.RunResult           `json:"result,omitempty"`
}

// Sink is the default ProvenanceSink implementation. It keeps one record per
// open run in memory and flushes the full record to Adapter on every append,
// so a crash mid-run still leaves a valid, parseable partial file.
type Sink struct {
	mu       sync.Mutex
	adapter  Adapter
	records  map[string]*record
	truncate int
}

// Option configures a Sink.
type Option func(*Sink)

// WithTruncateBytes caps stdout/stderr payload size recorded in cli log
// entries (spec §4.8: "stdout/stderr truncated to a configured cap").
func WithTruncateBytes(n int) Option {
	return func(s *Sink) { s.truncate = n }
}

// NewSink builds a Sink over adapter, applying opts.
func NewSink(adapter Adapter, opts ...Option) *Sink {
	s := &Sink{adapter: adapter, records: make(map[string]*record), truncate: 8192}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewFileSink builds a Sink that writes each run's record to
// <sessionDir>/.hyperagent/<runId>.json.
func NewFileSink(sessionDir string, opts ...Option) *Sink {
	return NewSink(&fileAdapter{dir: filepath.Join(sessionDir, ".hyperagent")}, opts...)
}

var _ weave.ProvenanceSink = (*Sink)(nil)

func (s *Sink) Open(ctx context.Context, runID, workflowID string) error {
	s.mu.Lock()
	s.records[runID] = &record{
		ID:         runID,
		WorkflowID: workflowID,
		StartedAt:  time.Now(),
		Agents:     []weave.ProvenanceAgent{},
		Log:        []weave.ProvenanceEntry{},
	}
	s.mu.Unlock()
	return s.flush(ctx, runID)
}

func (s *Sink) AppendAgent(ctx context.Context, runID string, agent weave.ProvenanceAgent) error {
	s.mu.Lock()
	rec, ok := s.records[runID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("provenance: run %s not open", runID)
	}
	rec.Agents = append(rec.Agents, agent)
	s.mu.Unlock()
	return s.flush(ctx, runID)
}

func (s *Sink) Append(ctx context.Context, runID string, entry weave.ProvenanceEntry) error {
	entry.Payload = s.truncatePayload(entry.Payload)

	s.mu.Lock()
	rec, ok := s.records[runID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("provenance: run %s not open", runID)
	}
	rec.Log = append(rec.Log, entry)
	s.mu.Unlock()
	return s.flush(ctx, runID)
}

func (s *Sink) Finalize(ctx context.Context, runID string, result weave.RunResult) error {
	s.mu.Lock()
	rec, ok := s.records[runID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("provenance: run %s not open", runID)
	}
	now := time.Now()
	rec.FinishedAt = &now
	rec.Result = &result
	s.mu.Unlock()
	return s.flush(ctx, runID)
}

// truncatePayload caps string fields named stdout/stderr within a cli
// payload map, leaving other payload shapes untouched.
func (s *Sink) truncatePayload(payload any) any {
	m, ok := payload.(map[string]any)
	if !ok || s.truncate <= 0 {
		return payload
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		if k != "stdout" && k != "stderr" {
			out[k] = v
			continue
		}
		str, ok := v.(string)
		if !ok || len(str) <= s.truncate {
			out[k] = v
			continue
		}
		out[k] = str[:s.truncate] + "...(truncated)"
	}
	return out
}

func (s *Sink) flush(ctx context.Context, runID string) error {
	s.mu.Lock()
	rec, ok := s.records[runID]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("provenance: run %s not open", runID)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("provenance: marshal run %s: %w", runID, err)
	}
	return s.adapter.Write(ctx, runID, data)
}

// fileAdapter writes each run's record to <dir>/<runId>.json.
type fileAdapter struct {
	mu  sync.Mutex
	dir string
}

func (a *fileAdapter) Write(ctx context.Context, runID string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := os.MkdirAll(a.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(a.dir, runID+".json")
	return os.WriteFile(path, data, 0o644)
}

// MemoryAdapter is an in-memory Adapter, for tests and for runs with no
// filesystem (mirrors the teacher's store.MemoryAdapter).
type MemoryAdapter struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryAdapter creates an in-memory Adapter.
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{data: make(map[string][]byte)}
}

func (a *MemoryAdapter) Write(ctx context.Context, runID string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	cp := make([]byte, len(data))
	copy(cp, data)
	a.data[runID] = cp
	return nil
}

// Get returns the last flushed record bytes for runID.
func (a *MemoryAdapter) Get(runID string) ([]byte, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	v, ok := a.data[runID]
	return v, ok
}
