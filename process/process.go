// Package process implements the default ProcessRunner via os/exec (spec §6).
package process

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/spetersoncode/weave"
)

// Runner is the default weave.ProcessRunner.
type Runner struct{}

// New builds a default Runner.
func New() *Runner { return &Runner{} }

var _ weave.ProcessRunner = (*Runner)(nil)

// Run spawns req.Command with req.Args under req.Cwd, piping req.StdinValue
// (if HasStdin) fully before reading stdout/stderr to completion (spec §5
// ordering guarantee d). Non-zero exit is not an error; it is returned in
// ProcessResult.ExitCode. Spawn failures become *weave.CliError.
func (r *Runner) Run(ctx context.Context, req weave.ProcessRequest) (weave.ProcessResult, error) {
	cmd := exec.CommandContext(ctx, req.Command, req.Args...)
	cmd.Dir = req.Cwd

	if req.HasStdin {
		cmd.Stdin = bytes.NewReader(req.StdinValue)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if ok := asExitError(err, &exitErr); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return weave.ProcessResult{}, &weave.CliError{Command: req.Command, Args: req.Args, Err: err}
		}
	}

	result := weave.ProcessResult{ExitCode: exitCode}
	switch req.Capture {
	case weave.CaptureBuffer:
		result.StdoutBuffer = stdout.Bytes()
		result.StderrBuffer = stderr.Bytes()
	case weave.CaptureBoth:
		result.Stdout = stdout.String()
		result.Stderr = stderr.String()
		result.StdoutBuffer = stdout.Bytes()
		result.StderrBuffer = stderr.Bytes()
	default: // text
		result.Stdout = stdout.String()
		result.Stderr = stderr.String()
	}
	return result, nil
}

func asExitError(err error, target **exec.ExitError) bool {
	if ee, ok := err.(*exec.ExitError); ok {
		*target = ee
		return true
	}
	return false
}
