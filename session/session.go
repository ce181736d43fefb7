// Package session implements the Session Manager (spec §4.7): for each
// declared role it renders a stable session name, asks the SessionProvider
// whether a session already exists under that name, and reuses or creates
// one. Recording the session in provenance is done by the engine's agent
// executor, not by this package.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spetersoncode/weave"
	"github.com/spetersoncode/weave/template"
)

// Option configures a Manager.
type Option func(*Manager)

// WithLogger attaches a structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithModel overrides the model conveyed at session creation, taking
// precedence over doc.Model. The engine passes the document's model, or the
// run's Model option when the document declares none.
func WithModel(model string) Option {
	return func(m *Manager) { m.model = model }
}

// Manager resolves and caches one session per role for the lifetime of a run.
type Manager struct {
	provider weave.SessionProvider
	doc      *weave.Document
	dir      string
	runID    string
	model    string
	logger   *slog.Logger

	mu       sync.Mutex
	sessions map[string]weave.SessionHandle
}

// New builds a Manager for one run against doc's declared sessions.roles.
func New(provider weave.SessionProvider, doc *weave.Document, dir, runID string, opts ...Option) *Manager {
	m := &Manager{
		provider: provider,
		doc:      doc,
		dir:      dir,
		runID:    runID,
		logger:   slog.Default(),
		sessions: make(map[string]weave.SessionHandle),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// nameResolver exposes {runId} to the nameTemplate render (spec §4.7).
type nameResolver struct{ runID string }

func (r nameResolver) Lookup(path string) (any, bool) {
	if path == "runId" {
		return r.runID, true
	}
	return nil, false
}

// Resolve returns the session for role, creating it on first use. Tool
// permissions are taken from the document's role definition.
func (m *Manager) Resolve(ctx context.Context, role string) (weave.SessionHandle, error) {
	m.mu.Lock()
	if handle, ok := m.sessions[role]; ok {
		m.mu.Unlock()
		return handle, nil
	}
	m.mu.Unlock()

	var nameTemplate string
	for _, sr := range m.doc.Sessions.Roles {
		if sr.Role == role {
			nameTemplate = sr.NameTemplate
			break
		}
	}
	name := fmt.Sprintf("%s.%s", m.runID, role)
	if nameTemplate != "" {
		rendered, err := template.Render(nameTemplate, nameResolver{runID: m.runID})
		if err != nil {
			return weave.SessionHandle{}, err
		}
		name = rendered
	}

	existing, err := m.provider.ListSessions(ctx, m.dir)
	if err != nil {
		return weave.SessionHandle{}, &weave.ProviderError{Op: "ListSessions", Err: err}
	}
	for _, h := range existing {
		if h.Name == name {
			m.logger.Debug("reusing session", "role", role, "name", name)
			m.mu.Lock()
			m.sessions[role] = h
			m.mu.Unlock()
			return h, nil
		}
	}

	roleDef, ok := m.doc.Roles[role]
	if !ok {
		return weave.SessionHandle{}, fmt.Errorf("session: role %q not declared in document", role)
	}
	model := m.model
	if model == "" {
		model = m.doc.Model
	}

	if err := m.provider.RegisterAgentDefinition(ctx, m.dir, name, model, roleDef.SystemPrompt, roleDef.Tools); err != nil {
		return weave.SessionHandle{}, &weave.ProviderError{Op: "RegisterAgentDefinition", Err: err}
	}
	if err := m.provider.Invalidate(ctx, m.dir); err != nil {
		return weave.SessionHandle{}, &weave.ProviderError{Op: "Invalidate", Err: err}
	}

	handle, err := m.provider.CreateSession(ctx, m.dir, weave.SessionCreateOptions{Name: name, Model: model})
	if err != nil {
		return weave.SessionHandle{}, &weave.ProviderError{Op: "CreateSession", Err: err}
	}
	m.logger.Info("created session", "role", role, "name", name, "sessionId", handle.ID)

	m.mu.Lock()
	m.sessions[role] = handle
	m.mu.Unlock()
	return handle, nil
}

// Handles returns every session resolved so far, for provenance registration.
func (m *Manager) Handles() map[string]weave.SessionHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]weave.SessionHandle, len(m.sessions))
	for k, v := range m.sessions {
		out[k] = v
	}
	return out
}
