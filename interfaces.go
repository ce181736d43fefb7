package weave

import (
	"context"
	"time"
)

// Part is one piece of content sent to or received from a SessionProvider prompt.
type Part struct {
	Text string `json:"text"`
}

// SessionHandle identifies a persistent conversation with the LLM provider,
// owned by one role within one run (spec §4.7).
type SessionHandle struct {
	ID   string
	Name string
	Dir  string
}

// SessionCreateOptions configures session creation.
type SessionCreateOptions struct {
	Name  string
	Model string
}

// PromptResult is a SessionProvider.Prompt response.
type PromptResult struct {
	MessageID string
	Parts     []Part
}

// SessionProvider is the external collaborator that owns LLM sessions
// (spec §6). The core never talks to a model directly.
type SessionProvider interface {
	CreateSession(ctx context.Context, dir string, opts SessionCreateOptions) (SessionHandle, error)
	ListSessions(ctx context.Context, dir string) ([]SessionHandle, error)
	Prompt(ctx context.Context, session SessionHandle, parts []Part, model string, agentName string, tools ToolPermissions) (PromptResult, error)
	MessageDiff(ctx context.Context, session SessionHandle, messageID string) (string, error)
	RegisterAgentDefinition(ctx context.Context, dir, name, model, systemPrompt string, tools ToolPermissions) error
	Invalidate(ctx context.Context, dir string) error
}

// ProcessRequest is a ProcessRunner invocation (spec §6).
type ProcessRequest struct {
	Command    string
	Args       []string
	Cwd        string
	StdinValue []byte
	HasStdin   bool
	Capture    Capture
}

// ProcessResult is a ProcessRunner response. StdoutBuffer/StderrBuffer are
// populated when Capture is buffer or both; Stdout/Stderr when text or both.
type ProcessResult struct {
	Stdout       string
	Stderr       string
	StdoutBuffer []byte
	StderrBuffer []byte
	ExitCode     int
}

// ProcessRunner is the external collaborator that spawns subprocesses (spec §6).
type ProcessRunner interface {
	Run(ctx context.Context, req ProcessRequest) (ProcessResult, error)
}

// ProvenanceEntry is one `log[]` record in a Run Record (spec §3, §6).
type ProvenanceEntry struct {
	Role      string    `json:"role"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// ProvenanceAgent is one `agents[]` record in a Run Record.
type ProvenanceAgent struct {
	Role      string `json:"role"`
	SessionID string `json:"sessionId"`
	Name      string `json:"name"`
}

// RunResult is the terminal outcome of a run (spec §3, §4.9).
type RunResult struct {
	RunID   string        `json:"runId"`
	Outcome string        `json:"outcome"`
	Reason  string        `json:"reason"`
	Rounds  []RoundRecord `json:"rounds"`
}

// RoundRecord summarizes one executed round for the Run Record.
type RoundRecord struct {
	Round int      `json:"round"`
	Steps []string `json:"steps"`
}

// ProvenanceSink is the external collaborator that persists the append-only
// Run Record (spec §4.8, §6).
type ProvenanceSink interface {
	Open(ctx context.Context, runID, workflowID string) error
	AppendAgent(ctx context.Context, runID string, agent ProvenanceAgent) error
	Append(ctx context.Context, runID string, entry ProvenanceEntry) error
	Finalize(ctx context.Context, runID string, result RunResult) error
}

// WorkflowRegistry resolves workflow ids to documents for `workflow` steps
// (spec §6).
type WorkflowRegistry interface {
	Resolve(workflowID string) (*Document, bool)
}

// StreamEvent is emitted to Options.OnStream on every step completion
// (spec §4.9): `{step, round, parts, parsedSummary}`.
type StreamEvent struct {
	Step          string
	Round         int
	Parts         []Part
	ParsedSummary string
}
