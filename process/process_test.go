package process

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spetersoncode/weave"
)

func TestRunTextCapture(t *testing.T) {
	r := New()
	res, err := r.Run(context.Background(), weave.ProcessRequest{
		Command: "echo",
		Args:    []string{"hello"},
		Capture: weave.CaptureText,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello\n", res.Stdout)
}

func TestRunNonZeroExitIsNotError(t *testing.T) {
	r := New()
	res, err := r.Run(context.Background(), weave.ProcessRequest{
		Command: "sh",
		Args:    []string{"-c", "exit 7"},
		Capture: weave.CaptureText,
	})
	require.NoError(t, err)
	assert.Equal(t, 7, res.ExitCode)
}

func TestRunSpawnFailureIsCliError(t *testing.T) {
	r := New()
	_, err := r.Run(context.Background(), weave.ProcessRequest{
		Command: "definitely-not-a-real-command-xyz",
		Capture: weave.CaptureText,
	})
	require.Error(t, err)
	var cliErr *weave.CliError
	assert.ErrorAs(t, err, &cliErr)
}

func TestRunStdinPiping(t *testing.T) {
	r := New()
	res, err := r.Run(context.Background(), weave.ProcessRequest{
		Command:    "cat",
		HasStdin:   true,
		StdinValue: []byte("piped data"),
		Capture:    weave.CaptureText,
	})
	require.NoError(t, err)
	assert.Equal(t, "piped data", res.Stdout)
}

func TestRunBufferCapture(t *testing.T) {
	r := New()
	res, err := r.Run(context.Background(), weave.ProcessRequest{
		Command: "printf",
		Args:    []string{"%b", "\\x00\\x01\\x02"},
		Capture: weave.CaptureBuffer,
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{0, 1, 2}, res.StdoutBuffer)
}
