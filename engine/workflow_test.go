package engine

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/weave"
	"github.com/spetersoncode/weave/process"
)

type stubRegistry struct {
	docs map[string]*weave.Document
}

func (r *stubRegistry) Resolve(id string) (*weave.Document, bool) {
	doc, ok := r.docs[id]
	return doc, ok
}

func TestRun_WorkflowStepBlocksOnChild(t *testing.T) {
	child := &weave.Document{
		ID: "child",
		User: map[string]weave.Schema{
			"label": {Type: weave.SchemaString},
		},
		Flow: weave.Flow{
			Round: weave.Round{
				Steps:          []weave.Step{{Kind: weave.StepTransform, Key: "noop", Template: json.RawMessage(`{}`)}},
				MaxRounds:      1,
				DefaultOutcome: weave.Outcome{Outcome: "child_done", Reason: "finished"},
			},
		},
	}

	parent := &weave.Document{
		ID: "parent",
		Flow: weave.Flow{
			Round: weave.Round{
				Steps: []weave.Step{
					{
						Kind:       weave.StepWorkflow,
						Key:        "call",
						WorkflowID: "child",
						Input:      json.RawMessage(`{"label": "hi"}`),
						Transitions: []weave.Transition{
							{
								Condition: weave.Condition{Field: "steps.call.parsed.outcome", Equals: &weave.Literal{Value: "child_done"}},
								Outcome:   "completed",
								Reason:    "child finished: {{steps.call.parsed.reason}}",
							},
						},
					},
				},
				MaxRounds:      1,
				DefaultOutcome: weave.Outcome{Outcome: "incomplete"},
			},
		},
	}

	registry := &stubRegistry{docs: map[string]*weave.Document{"child": child}}

	handle, err := Run(context.Background(), parent, Options{
		SessionDir: t.TempDir(),
		Provenance: newTestSink(),
		Processes:  process.New(),
		Workflows:  registry,
	})
	require.NoError(t, err)

	outcome := <-handle.Result
	require.NoError(t, outcome.Err)
	assert.Equal(t, "completed", outcome.Result.Outcome)
	assert.Equal(t, "child finished: finished", outcome.Result.Reason)
}

func TestRun_WorkflowStepUnknownIDFails(t *testing.T) {
	parent := &weave.Document{
		ID: "parent",
		Flow: weave.Flow{
			Round: weave.Round{
				Steps:          []weave.Step{{Kind: weave.StepWorkflow, Key: "call", WorkflowID: "missing"}},
				MaxRounds:      1,
				DefaultOutcome: weave.Outcome{Outcome: "completed"},
			},
		},
	}

	handle, err := Run(context.Background(), parent, Options{
		SessionDir: t.TempDir(),
		Provenance: newTestSink(),
		Processes:  process.New(),
		Workflows:  &stubRegistry{docs: map[string]*weave.Document{}},
	})
	require.NoError(t, err)

	outcome := <-handle.Result
	require.Error(t, outcome.Err)
	var uwe *weave.UnknownWorkflowError
	assert.ErrorAs(t, outcome.Err, &uwe)
}
