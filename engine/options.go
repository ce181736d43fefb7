package engine

import (
	"log/slog"

	"github.com/spetersoncode/weave"
)

// Options configures one call to Run (spec §4.9). SessionDir and Provenance
// are always required; Sessions and Processes are required only by documents
// that use them (see their fields); everything else has a usable default.
// Unrecognized fields are simply not read, matching the spec's
// "additional keys should be ignored" note on the harness's option set.
type Options struct {
	// User is the candidate input validated against the document's user schema.
	User any

	// SessionDir is the working directory handed to collaborators and used
	// to scope session reuse and provenance file placement. Required.
	SessionDir string

	// Model is the model used when the document declares no model of its
	// own; a document's model takes precedence over it.
	Model string

	// MaxRounds overrides flow.round.maxRounds when positive.
	MaxRounds int

	// OnStream, if set, receives a weave.StreamEvent after every step. It is
	// called synchronously on the run's goroutine, so the run waits for it
	// to return.
	OnStream func(weave.StreamEvent)

	// Workflows resolves workflow steps' workflowId to a child document.
	Workflows weave.WorkflowRegistry

	// Sessions is the LLM session collaborator. Required for documents with
	// any agent step or declared session role.
	Sessions weave.SessionProvider

	// Processes runs cli steps. Required for documents with any cli step.
	Processes weave.ProcessRunner

	// Provenance persists the run record. Required.
	Provenance weave.ProvenanceSink

	// RunID overrides the generated run id. The workflow executor clears it
	// for child runs, so each child gets a freshly generated id.
	RunID string

	// WorkflowLabel identifies this document in provenance role prefixes
	// (spec §6: "<workflowId>.<role>"). Defaults to doc.ID.
	WorkflowLabel string

	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}
