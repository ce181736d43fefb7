package engine

import (
	"encoding/json"
	"fmt"

	"github.com/spetersoncode/weave"
	"github.com/spetersoncode/weave/schema"
	"github.com/spetersoncode/weave/template"
)

// executeTransform implements the transform step contract (spec §4.5):
// render template against scope, optionally augmented with a validated
// input. No external side effects.
func (r *run) executeTransform(step weave.Step, entry weave.Scope) (weave.StepRecord, any, error) {
	scope := entry
	var args any

	if len(step.Input) > 0 {
		var inputTemplate any
		if err := json.Unmarshal(step.Input, &inputTemplate); err != nil {
			return weave.StepRecord{}, nil, fmt.Errorf("engine: step %q has malformed input: %w", step.Key, err)
		}
		rendered, err := template.RenderTree(inputTemplate, entry)
		if err != nil {
			return weave.StepRecord{}, nil, err
		}
		if step.InputSchema != nil {
			coerced, err := schema.Compile(*step.InputSchema).Validate(rendered)
			if err != nil {
				return weave.StepRecord{}, nil, &weave.InputValidationError{WorkflowID: step.Key, Details: err.Error()}
			}
			rendered = coerced
		}
		args = rendered
		scope = resultScope(entry, nil, args)
	}

	var tmpl any
	if len(step.Template) > 0 {
		if err := json.Unmarshal(step.Template, &tmpl); err != nil {
			return weave.StepRecord{}, nil, fmt.Errorf("engine: step %q has malformed template: %w", step.Key, err)
		}
	}
	rendered, err := template.RenderTree(tmpl, scope)
	if err != nil {
		return weave.StepRecord{}, nil, err
	}

	raw, err := weave.CanonicalJSON(rendered)
	if err != nil {
		return weave.StepRecord{}, nil, err
	}

	r.emit(step.Key, entry.Round, nil, summarize(rendered))

	return weave.StepRecord{Type: weave.StepTransform, Key: step.Key, Raw: raw, Parsed: rendered}, args, nil
}
