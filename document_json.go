package weave

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// stepWire mirrors Step's JSON shape without the Kind discriminant, which is
// not part of the document format and is inferred from which fields are present.
type stepWire struct {
	Key          string            `json:"key"`
	Next         string            `json:"next,omitempty"`
	StateUpdates map[string]string `json:"stateUpdates,omitempty"`
	Transitions  []Transition      `json:"transitions,omitempty"`
	Exits        []Transition      `json:"exits,omitempty"`

	Role   *string  `json:"role,omitempty"`
	Prompt []string `json:"prompt,omitempty"`

	Command    *string           `json:"command,omitempty"`
	Args       []string          `json:"args,omitempty"`
	ArgsObject map[string]string `json:"argsObject,omitempty"`
	ArgsSchema *Schema           `json:"argsSchema,omitempty"`
	Cwd        string            `json:"cwd,omitempty"`
	StdinFrom  string            `json:"stdinFrom,omitempty"`
	Capture    Capture           `json:"capture,omitempty"`

	WorkflowID  *string         `json:"workflowId,omitempty"`
	Input       json.RawMessage `json:"input,omitempty"`
	InputSchema *Schema         `json:"inputSchema,omitempty"`

	Template json.RawMessage `json:"template,omitempty"`
}

// UnmarshalJSON infers Step.Kind from which kind-specific field is present:
// `role` -> agent, `command` -> cli, `workflowId` -> workflow, `template` -> transform.
func (s *Step) UnmarshalJSON(b []byte) error {
	var w stepWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}

	*s = Step{
		Key:          w.Key,
		Next:         w.Next,
		StateUpdates: w.StateUpdates,
		Transitions:  w.Transitions,
		Exits:        w.Exits,
		Args:         w.Args,
		ArgsObject:   w.ArgsObject,
		ArgsSchema:   w.ArgsSchema,
		Cwd:          w.Cwd,
		StdinFrom:    w.StdinFrom,
		Capture:      w.Capture,
		Input:        w.Input,
		InputSchema:  w.InputSchema,
		Template:     w.Template,
	}

	switch {
	case w.Role != nil:
		s.Kind = StepAgent
		s.Role = *w.Role
		s.Prompt = w.Prompt
	case w.Command != nil:
		s.Kind = StepCLI
		s.Command = *w.Command
	case w.WorkflowID != nil:
		s.Kind = StepWorkflow
		s.WorkflowID = *w.WorkflowID
	case w.Template != nil:
		s.Kind = StepTransform
	default:
		return fmt.Errorf("weave: step %q has no recognizable kind (expected one of role, command, workflowId, template)", w.Key)
	}
	return nil
}

// MarshalJSON emits the kind-specific wire shape without the Kind discriminant.
func (s Step) MarshalJSON() ([]byte, error) {
	w := stepWire{
		Key:          s.Key,
		Next:         s.Next,
		StateUpdates: s.StateUpdates,
		Transitions:  s.Transitions,
		Exits:        s.Exits,
		Args:         s.Args,
		ArgsObject:   s.ArgsObject,
		ArgsSchema:   s.ArgsSchema,
		Cwd:          s.Cwd,
		StdinFrom:    s.StdinFrom,
		Capture:      s.Capture,
		Input:        s.Input,
		InputSchema:  s.InputSchema,
		Template:     s.Template,
	}
	switch s.Kind {
	case StepAgent:
		role := s.Role
		w.Role = &role
		w.Prompt = s.Prompt
	case StepCLI:
		cmd := s.Command
		w.Command = &cmd
	case StepWorkflow:
		id := s.WorkflowID
		w.WorkflowID = &id
	}
	return json.Marshal(w)
}

// conditionWire mirrors the object form of Condition for decode/encode.
type conditionWire struct {
	Field    string    `json:"field,omitempty"`
	Equals   *Literal  `json:"equals,omitempty"`
	Includes *Literal  `json:"includes,omitempty"`
	In       []Literal `json:"in,omitempty"`
	Matches  string    `json:"matches,omitempty"`
	Exists   bool      `json:"exists,omitempty"`
	Absent   bool      `json:"absent,omitempty"`
	Gt       *float64  `json:"gt,omitempty"`
	Ge       *float64  `json:"ge,omitempty"`
	Lt       *float64  `json:"lt,omitempty"`
	Le       *float64  `json:"le,omitempty"`

	All []Condition `json:"all,omitempty"`
	Any []Condition `json:"any,omitempty"`
	Not *Condition  `json:"not,omitempty"`
}

var alwaysLiteral = []byte(`"always"`)

// UnmarshalJSON accepts either the bare string "always" or a predicate object.
func (c *Condition) UnmarshalJSON(b []byte) error {
	trimmed := bytes.TrimSpace(b)
	if bytes.Equal(trimmed, alwaysLiteral) {
		*c = Condition{Always: true}
		return nil
	}

	var w conditionWire
	if err := json.Unmarshal(b, &w); err != nil {
		return fmt.Errorf("weave: invalid condition: %w", err)
	}

	*c = Condition{
		Field:    w.Field,
		Equals:   w.Equals,
		Includes: w.Includes,
		In:       w.In,
		Matches:  w.Matches,
		Exists:   w.Exists,
		Absent:   w.Absent,
		Gt:       w.Gt,
		Ge:       w.Ge,
		Lt:       w.Lt,
		Le:       w.Le,
		All:      w.All,
		Any:      w.Any,
		Not:      w.Not,
	}
	return nil
}

// MarshalJSON emits "always" for the always-true condition, else the predicate object.
func (c Condition) MarshalJSON() ([]byte, error) {
	if c.Always {
		return alwaysLiteral, nil
	}
	w := conditionWire{
		Field:    c.Field,
		Equals:   c.Equals,
		Includes: c.Includes,
		In:       c.In,
		Matches:  c.Matches,
		Exists:   c.Exists,
		Absent:   c.Absent,
		Gt:       c.Gt,
		Ge:       c.Ge,
		Lt:       c.Lt,
		Le:       c.Le,
		All:      c.All,
		Any:      c.Any,
		Not:      c.Not,
	}
	return json.Marshal(w)
}
