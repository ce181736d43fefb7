package weave

import "encoding/json"

// Document is a validated, immutable workflow description.
type Document struct {
	ID          string              `json:"id"`
	Description string              `json:"description,omitempty"`
	Model       string              `json:"model,omitempty"`
	Sessions    SessionsConfig      `json:"sessions"`
	Parsers     map[string]Schema   `json:"parsers,omitempty"`
	Roles       map[string]RoleDef  `json:"roles"`
	User        map[string]Schema   `json:"user,omitempty"`
	State       StateConfig         `json:"state,omitempty"`
	Flow        Flow                `json:"flow"`
}

// SessionsConfig declares the roles that need a persistent session at run start.
type SessionsConfig struct {
	Roles []SessionRole `json:"roles,omitempty"`
}

// SessionRole declares one role's session and, optionally, a stable naming template.
type SessionRole struct {
	Role         string `json:"role"`
	NameTemplate string `json:"nameTemplate,omitempty"`
}

// RoleDef is an LLM persona: a system prompt, a named parser, and tool permissions.
type RoleDef struct {
	SystemPrompt string         `json:"systemPrompt"`
	Parser       string         `json:"parser"`
	Tools        ToolPermissions `json:"tools,omitempty"`
}

// ToolPermissions gates which capabilities a session's prompts may exercise.
// Keys default to false when omitted.
type ToolPermissions struct {
	Read      bool `json:"read,omitempty"`
	Write     bool `json:"write,omitempty"`
	Edit      bool `json:"edit,omitempty"`
	Bash      bool `json:"bash,omitempty"`
	Grep      bool `json:"grep,omitempty"`
	Glob      bool `json:"glob,omitempty"`
	List      bool `json:"list,omitempty"`
	Patch     bool `json:"patch,omitempty"`
	TodoWrite bool `json:"todowrite,omitempty"`
	TodoRead  bool `json:"todoread,omitempty"`
	WebFetch  bool `json:"webfetch,omitempty"`
}

// StateConfig seeds the shared state bag at run start.
type StateConfig struct {
	Initial map[string]string `json:"initial,omitempty"`
}

// Flow is the top-level execution plan: an optional bootstrap step followed by a repeating Round.
type Flow struct {
	Bootstrap *Step `json:"bootstrap,omitempty"`
	Round     Round `json:"round"`
}

// Outcome pairs a terminal label with a human-readable reason template.
type Outcome struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

// Round is one ordered pass through Steps, repeatable up to MaxRounds.
type Round struct {
	Start          string  `json:"start,omitempty"`
	Steps          []Step  `json:"steps"`
	MaxRounds      int     `json:"maxRounds"`
	DefaultOutcome Outcome `json:"defaultOutcome"`
}

// StepKind discriminates the Step tagged union.
type StepKind string

const (
	StepAgent    StepKind = "agent"
	StepCLI      StepKind = "cli"
	StepWorkflow StepKind = "workflow"
	StepTransform StepKind = "transform"
)

// Capture selects which of a cli step's output streams are retained and in what form.
type Capture string

const (
	CaptureText   Capture = "text"
	CaptureBuffer Capture = "buffer"
	CaptureBoth   Capture = "both"
)

// Step is a tagged union over the four executable step kinds. Common fields
// (Key, Next, StateUpdates, Transitions, Exits) apply regardless of Kind;
// kind-specific fields are populated only for their matching Kind.
type Step struct {
	Kind Kind `json:"kind"`

	Key          string            `json:"key"`
	Next         string            `json:"next,omitempty"`
	StateUpdates map[string]string `json:"stateUpdates,omitempty"`
	Transitions  []Transition      `json:"transitions,omitempty"`
	Exits        []Transition      `json:"exits,omitempty"`

	// agent
	Role   string   `json:"role,omitempty"`
	Prompt []string `json:"prompt,omitempty"`

	// cli
	Command    string            `json:"command,omitempty"`
	Args       []string          `json:"args,omitempty"`
	ArgsObject map[string]string `json:"argsObject,omitempty"`
	ArgsSchema *Schema           `json:"argsSchema,omitempty"`
	Cwd        string            `json:"cwd,omitempty"`
	StdinFrom  string            `json:"stdinFrom,omitempty"`
	Capture    Capture           `json:"capture,omitempty"`

	// workflow
	WorkflowID  string          `json:"workflowId,omitempty"`
	Input       json.RawMessage `json:"input,omitempty"`
	InputSchema *Schema         `json:"inputSchema,omitempty"`

	// transform
	Template json.RawMessage `json:"template,omitempty"`
}

// Kind is an alias retained for readability at call sites (Step.Kind == weave.StepAgent).
type Kind = StepKind

// Transition is a conditional branch evaluated after a step executes.
type Transition struct {
	Condition    Condition         `json:"condition"`
	Outcome      string            `json:"outcome,omitempty"`
	Reason       string            `json:"reason,omitempty"`
	StateUpdates map[string]string `json:"stateUpdates,omitempty"`
	Next         string            `json:"next,omitempty"`
}

// ConditionKind discriminates leaf predicates from composite combinators.
type ConditionKind string

const (
	CondAlways   ConditionKind = "always"
	CondLeaf     ConditionKind = "leaf"
	CondAll      ConditionKind = "all"
	CondAny      ConditionKind = "any"
	CondNot      ConditionKind = "not"
)

// Condition is the tagged union consumed by the transition evaluator (package condition).
//
// Leaf predicates set Field plus exactly one comparator field. Composite nodes
// set All/Any (a list of sub-conditions) or Not (a single sub-condition).
type Condition struct {
	Always bool `json:"-"`

	Field    string   `json:"field,omitempty"`
	Equals   *Literal `json:"equals,omitempty"`
	Includes *Literal `json:"includes,omitempty"`
	In       []Literal `json:"in,omitempty"`
	Matches  string   `json:"matches,omitempty"`
	Exists   bool     `json:"exists,omitempty"`
	Absent   bool     `json:"absent,omitempty"`
	Gt       *float64 `json:"gt,omitempty"`
	Ge       *float64 `json:"ge,omitempty"`
	Lt       *float64 `json:"lt,omitempty"`
	Le       *float64 `json:"le,omitempty"`

	All []Condition `json:"all,omitempty"`
	Any []Condition `json:"any,omitempty"`
	Not *Condition  `json:"not,omitempty"`
}

// Literal is a JSON scalar or array used as a condition operand.
type Literal struct {
	Value any
}

// MarshalJSON implements json.Marshaler.
func (l Literal) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.Value)
}

// UnmarshalJSON implements json.Unmarshaler.
func (l *Literal) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &l.Value)
}
