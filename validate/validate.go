// Package validate performs structural and referential validation of a
// weave.Document (spec §4.3) before it is handed to the engine.
package validate

import (
	"fmt"

	"github.com/spetersoncode/weave"
)

// Document checks structural shape plus referential integrity: unique step
// keys, role/parser references, defaultOutcome presence, and flow.round.start
// pointing at a real step. Returns the document unchanged on success.
func Document(doc *weave.Document) (*weave.Document, error) {
	if doc.ID == "" {
		return nil, &weave.SchemaError{Msg: "document id is required"}
	}
	if len(doc.Flow.Round.Steps) == 0 {
		return nil, &weave.SchemaError{Path: "flow.round.steps", Msg: "round must declare at least one step"}
	}
	if doc.Flow.Round.DefaultOutcome.Outcome == "" {
		return nil, &weave.SchemaError{Path: "flow.round.defaultOutcome", Msg: "defaultOutcome is required"}
	}

	keys := make(map[string]bool, len(doc.Flow.Round.Steps))
	for _, step := range doc.Flow.Round.Steps {
		if step.Key == "" {
			return nil, &weave.SchemaError{Path: "flow.round.steps", Msg: "step key is required"}
		}
		if keys[step.Key] {
			return nil, &weave.SchemaError{Path: "flow.round.steps", Msg: fmt.Sprintf("duplicate step key %q", step.Key)}
		}
		keys[step.Key] = true
	}

	if doc.Flow.Round.Start != "" && !keys[doc.Flow.Round.Start] {
		return nil, &weave.SchemaError{Path: "flow.round.start", Msg: fmt.Sprintf("references unknown step key %q", doc.Flow.Round.Start)}
	}

	if doc.Flow.Bootstrap != nil {
		if err := validateStep(doc, *doc.Flow.Bootstrap, "flow.bootstrap", nil); err != nil {
			return nil, err
		}
	}
	for _, step := range doc.Flow.Round.Steps {
		if err := validateStep(doc, step, fmt.Sprintf("flow.round.steps[%s]", step.Key), keys); err != nil {
			return nil, err
		}
	}

	for roleName, role := range doc.Roles {
		if role.Parser != "" {
			if _, ok := doc.Parsers[role.Parser]; !ok {
				return nil, &weave.SchemaError{Path: fmt.Sprintf("roles.%s.parser", roleName), Msg: fmt.Sprintf("references unknown parser %q", role.Parser)}
			}
		}
	}

	for _, sr := range doc.Sessions.Roles {
		if _, ok := doc.Roles[sr.Role]; !ok {
			return nil, &weave.SchemaError{Path: "sessions.roles", Msg: fmt.Sprintf("references unknown role %q", sr.Role)}
		}
	}

	return doc, nil
}

func validateStep(doc *weave.Document, step weave.Step, path string, siblingKeys map[string]bool) error {
	switch step.Kind {
	case weave.StepAgent:
		role, ok := doc.Roles[step.Role]
		if !ok {
			return &weave.SchemaError{Path: path + ".role", Msg: fmt.Sprintf("references unknown role %q", step.Role)}
		}
		if role.Parser != "" {
			if _, ok := doc.Parsers[role.Parser]; !ok {
				return &weave.SchemaError{Path: path + ".role", Msg: fmt.Sprintf("role %q parser %q is undeclared", step.Role, role.Parser)}
			}
		}
	case weave.StepCLI:
		if step.Command == "" {
			return &weave.SchemaError{Path: path + ".command", Msg: "command is required"}
		}
		if len(step.Args) > 0 && len(step.ArgsObject) > 0 {
			return &weave.SchemaError{Path: path, Msg: "cli step may set args or argsObject, not both"}
		}
	case weave.StepWorkflow:
		if step.WorkflowID == "" {
			return &weave.SchemaError{Path: path + ".workflowId", Msg: "workflowId is required"}
		}
	case weave.StepTransform:
		if step.Template == nil {
			return &weave.SchemaError{Path: path + ".template", Msg: "template is required"}
		}
	default:
		return &weave.SchemaError{Path: path, Msg: fmt.Sprintf("unrecognized step kind %q", step.Kind)}
	}

	if siblingKeys != nil && step.Next != "" && !siblingKeys[step.Next] {
		return &weave.SchemaError{Path: path + ".next", Msg: fmt.Sprintf("references unknown step key %q", step.Next)}
	}

	for i, tr := range step.Transitions {
		if siblingKeys != nil && tr.Next != "" && !siblingKeys[tr.Next] {
			return &weave.SchemaError{Path: fmt.Sprintf("%s.transitions[%d].next", path, i), Msg: fmt.Sprintf("references unknown step key %q", tr.Next)}
		}
	}

	return nil
}
