package engine

import (
	"encoding/json"
	"fmt"

	"github.com/spetersoncode/weave"
	"github.com/spetersoncode/weave/schema"
	"github.com/spetersoncode/weave/template"
)

// executeWorkflow implements the workflow step contract (spec §4.5): resolve
// the child document, render and validate its input, run it to completion,
// and block until the child returns.
func (r *run) executeWorkflow(step weave.Step, entry weave.Scope) (weave.StepRecord, any, error) {
	if r.opts.Workflows == nil {
		return weave.StepRecord{}, nil, &weave.UnknownWorkflowError{WorkflowID: step.WorkflowID}
	}
	childDoc, ok := r.opts.Workflows.Resolve(step.WorkflowID)
	if !ok {
		return weave.StepRecord{}, nil, &weave.UnknownWorkflowError{WorkflowID: step.WorkflowID}
	}

	var inputTemplate any
	if len(step.Input) > 0 {
		if err := json.Unmarshal(step.Input, &inputTemplate); err != nil {
			return weave.StepRecord{}, nil, fmt.Errorf("engine: step %q has malformed input: %w", step.Key, err)
		}
	}
	renderedInput, err := template.RenderTree(inputTemplate, entry)
	if err != nil {
		return weave.StepRecord{}, nil, err
	}

	if step.InputSchema != nil {
		coerced, err := schema.Compile(*step.InputSchema).Validate(renderedInput)
		if err != nil {
			return weave.StepRecord{}, nil, &weave.InputValidationError{WorkflowID: step.WorkflowID, Details: err.Error()}
		}
		renderedInput = coerced
	}

	logRole := fmt.Sprintf("%s.%s", r.label, step.WorkflowID)
	if err := r.opts.Provenance.Append(r.ctx, r.id, weave.ProvenanceEntry{Role: logRole, Payload: map[string]any{"input": renderedInput}}); err != nil {
		return weave.StepRecord{}, nil, &weave.ProviderError{Op: "Provenance.Append", Err: err}
	}

	childOpts := r.opts
	childOpts.User = renderedInput
	childOpts.RunID = ""
	childOpts.WorkflowLabel = step.WorkflowID
	childOpts.Model = r.model

	handle, err := Run(r.ctx, childDoc, childOpts)
	if err != nil {
		return weave.StepRecord{}, nil, &weave.ChildWorkflowError{WorkflowID: step.WorkflowID, Err: err}
	}

	var outcome Outcome
	select {
	case outcome = <-handle.Result:
	case <-r.ctx.Done():
		return weave.StepRecord{}, nil, &weave.CancelledError{RunID: r.id}
	}
	if outcome.Err != nil {
		return weave.StepRecord{}, nil, &weave.ChildWorkflowError{WorkflowID: step.WorkflowID, RunID: handle.RunID, Err: outcome.Err}
	}

	parsed := map[string]any{
		"outcome": outcome.Result.Outcome,
		"reason":  outcome.Result.Reason,
		"runId":   outcome.Result.RunID,
		"rounds":  len(outcome.Result.Rounds),
		"details": outcome.Result,
	}
	raw, err := weave.CanonicalJSON(outcome.Result)
	if err != nil {
		return weave.StepRecord{}, nil, err
	}

	r.emit(step.Key, entry.Round, nil, summarize(parsed))

	return weave.StepRecord{Type: weave.StepWorkflow, Key: step.Key, Raw: raw, Parsed: parsed}, renderedInput, nil
}
