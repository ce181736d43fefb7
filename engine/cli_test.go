package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/weave"
)

func TestBuildArgs_PlainListInOrder(t *testing.T) {
	step := weave.Step{
		Key:  "plain",
		Args: []string{"{{state.first}}", "{{state.second}}"},
	}
	scope := weave.Scope{State: map[string]string{"first": "one", "second": "two"}}

	args, err := buildArgs(step, scope)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, args)
}

func TestBuildArgs_ArgsObjectWithoutSchemaIsLexicographic(t *testing.T) {
	step := weave.Step{
		Key:        "noschema",
		ArgsObject: map[string]string{"zeta": "z", "alpha": "a", "mid": "m"},
	}

	args, err := buildArgs(step, weave.Scope{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "m", "z"}, args)
}

func TestBuildArgs_ArgsObjectWithSchemaFollowsSortedPropertyOrder(t *testing.T) {
	schema := &weave.Schema{
		Type: weave.SchemaObject,
		Properties: map[string]weave.Schema{
			"output": {Type: weave.SchemaString},
			"input":  {Type: weave.SchemaString},
		},
	}
	step := weave.Step{
		Key:        "withschema",
		ArgsSchema: schema,
		ArgsObject: map[string]string{"output": "out.txt", "input": "in.txt"},
	}

	args, err := buildArgs(step, weave.Scope{})
	require.NoError(t, err)
	assert.Equal(t, []string{"in.txt", "out.txt"}, args)
}

func TestBuildArgs_UndeclaredKeysAppendAfterSchemaOrder(t *testing.T) {
	schema := &weave.Schema{
		Type: weave.SchemaObject,
		Properties: map[string]weave.Schema{
			"b": {Type: weave.SchemaString},
		},
		AdditionalProperties: boolPtr(true),
	}
	step := weave.Step{
		Key:        "mixed",
		ArgsSchema: schema,
		ArgsObject: map[string]string{"b": "2", "a": "1", "z": "3"},
	}

	args, err := buildArgs(step, weave.Scope{})
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "1", "3"}, args)
}

func TestResolveStdin_BufferPassesThroughUnchanged(t *testing.T) {
	scope := weave.Scope{Parsed: map[string]any{"buf": []byte("raw bytes")}}
	got, ok := resolveStdin("parsed.buf", scope)
	require.True(t, ok)
	assert.Equal(t, []byte("raw bytes"), got)
}

func TestResolveStdin_StringEncodedAsUTF8(t *testing.T) {
	scope := weave.Scope{State: map[string]string{"msg": "hello"}}
	got, ok := resolveStdin("state.msg", scope)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), got)
}

func boolPtr(b bool) *bool { return &b }
