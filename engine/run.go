// Package engine implements the step executors, round loop, and run harness
// that together drive one workflow document to a terminal outcome (spec
// §4.5, §4.6, §4.9). It combines schema, template, condition, and session;
// document validation (package validate) and the concrete provenance and
// process collaborators are left to the caller.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"github.com/spetersoncode/weave"
	"github.com/spetersoncode/weave/schema"
	"github.com/spetersoncode/weave/session"
	"github.com/spetersoncode/weave/template"
)

// Outcome is what a run's Result channel delivers exactly once.
type Outcome struct {
	Result weave.RunResult
	Err    error
}

// Handle is returned synchronously by Run; Result resolves when the run
// reaches a terminal state or a fatal error.
type Handle struct {
	RunID  string
	Result <-chan Outcome
	Cancel context.CancelFunc
}

type run struct {
	ctx   context.Context
	doc   *weave.Document
	opts  Options
	id    string
	label string

	user      any
	state     *weave.StateBag
	maxRounds int
	model     string

	sessions *session.Manager

	logger *slog.Logger

	steps          map[string]weave.StepRecord
	appendedAgents map[string]bool
	rounds         []weave.RoundRecord
	roundSteps     []string
}

// Run validates opts.User against doc's user schema, seeds the shared state
// bag, and drives the flow engine on a dedicated goroutine (spec §4.9).
func Run(ctx context.Context, doc *weave.Document, opts Options) (*Handle, error) {
	if opts.SessionDir == "" {
		return nil, fmt.Errorf("engine: SessionDir is required")
	}
	if opts.Provenance == nil {
		return nil, fmt.Errorf("engine: Provenance is required")
	}

	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	coercedUser, err := validateUserInput(doc, opts.User)
	if err != nil {
		return nil, err
	}

	maxRounds := doc.Flow.Round.MaxRounds
	if opts.MaxRounds > 0 {
		maxRounds = opts.MaxRounds
	}

	label := opts.WorkflowLabel
	if label == "" {
		label = doc.ID
	}

	logger := opts.logger()
	model := doc.Model
	if model == "" {
		model = opts.Model
	}

	runCtx, cancel := context.WithCancel(ctx)

	r := &run{
		ctx:            runCtx,
		doc:            doc,
		opts:           opts,
		id:             runID,
		label:          label,
		user:           coercedUser,
		maxRounds:      maxRounds,
		model:          model,
		logger:         logger,
		steps:          make(map[string]weave.StepRecord),
		appendedAgents: make(map[string]bool),
	}
	if opts.Sessions != nil {
		r.sessions = session.New(opts.Sessions, doc, opts.SessionDir, runID, session.WithLogger(logger), session.WithModel(model))
	}

	initialScope := weave.Scope{User: coercedUser, Run: weave.RunInfo{ID: runID}, Round: 0, MaxRounds: maxRounds}
	rendered := make(map[string]string, len(doc.State.Initial))
	for k, tmpl := range doc.State.Initial {
		v, err := template.Render(tmpl, initialScope)
		if err != nil {
			cancel()
			return nil, err
		}
		rendered[k] = v
	}
	r.state = weave.NewStateBag(rendered)

	if err := opts.Provenance.Open(runCtx, runID, doc.ID); err != nil {
		cancel()
		return nil, &weave.ProviderError{Op: "Provenance.Open", Err: err}
	}

	resultCh := make(chan Outcome, 1)
	go func() {
		defer cancel()
		result, runErr := r.execute()
		if runErr != nil && runCtx.Err() != nil {
			runErr = &weave.CancelledError{RunID: runID}
		}
		if ferr := opts.Provenance.Finalize(context.Background(), runID, result); ferr != nil && runErr == nil {
			runErr = &weave.ProviderError{Op: "Provenance.Finalize", Err: ferr}
		}
		resultCh <- Outcome{Result: result, Err: runErr}
		close(resultCh)
	}()

	return &Handle{RunID: runID, Result: resultCh, Cancel: cancel}, nil
}

func validateUserInput(doc *weave.Document, candidate any) (any, error) {
	if candidate == nil {
		candidate = map[string]any{}
	}
	if len(doc.User) == 0 {
		return candidate, nil
	}
	props := make(map[string]weave.Schema, len(doc.User))
	var required []string
	for k, s := range doc.User {
		props[k] = s
		if s.Default == nil {
			required = append(required, k)
		}
	}
	sort.Strings(required)
	validator := schema.Compile(weave.Schema{Type: weave.SchemaObject, Properties: props, Required: required})
	coerced, err := validator.Validate(candidate)
	if err != nil {
		return nil, &weave.InputValidationError{WorkflowID: doc.ID, Details: err.Error()}
	}
	return coerced, nil
}

func (r *run) emit(step string, round int, parts []weave.Part, parsedSummary string) {
	if r.opts.OnStream == nil {
		return
	}
	r.opts.OnStream(weave.StreamEvent{Step: step, Round: round, Parts: parts, ParsedSummary: parsedSummary})
}
