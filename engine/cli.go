package engine

import (
	"fmt"
	"sort"

	"github.com/spetersoncode/weave"
	"github.com/spetersoncode/weave/schema"
	"github.com/spetersoncode/weave/template"
)

// executeCLI implements the cli step contract (spec §4.5): render args/cwd,
// resolve stdin, spawn the command, and surface its exit code as data rather
// than as an error.
func (r *run) executeCLI(step weave.Step, entry weave.Scope) (weave.StepRecord, error) {
	args, err := buildArgs(step, entry)
	if err != nil {
		return weave.StepRecord{}, err
	}

	cwd := r.opts.SessionDir
	if step.Cwd != "" {
		rendered, err := template.Render(step.Cwd, entry)
		if err != nil {
			return weave.StepRecord{}, err
		}
		cwd = rendered
	}

	req := weave.ProcessRequest{Command: step.Command, Args: args, Cwd: cwd, Capture: step.Capture}
	if req.Capture == "" {
		req.Capture = weave.CaptureText
	}

	if step.StdinFrom != "" {
		stdin, ok := resolveStdin(step.StdinFrom, entry)
		if ok {
			req.StdinValue = stdin
			req.HasStdin = true
		}
	}

	result, err := r.opts.Processes.Run(r.ctx, req)
	if err != nil {
		return weave.StepRecord{}, &weave.CliError{Command: step.Command, Args: args, Err: err}
	}

	parsed := map[string]any{
		"stdout":   result.Stdout,
		"stderr":   result.Stderr,
		"exitCode": result.ExitCode,
		"args":     args,
	}
	if result.StdoutBuffer != nil {
		parsed["stdoutBuffer"] = result.StdoutBuffer
	}
	if result.StderrBuffer != nil {
		parsed["stderrBuffer"] = result.StderrBuffer
	}

	logRole := fmt.Sprintf("%s.cli.%s", r.label, step.Key)
	if err := r.opts.Provenance.Append(r.ctx, r.id, weave.ProvenanceEntry{Role: logRole, Payload: map[string]any{
		"command": step.Command, "args": args, "exitCode": result.ExitCode,
		"stdout": result.Stdout, "stderr": result.Stderr,
	}}); err != nil {
		return weave.StepRecord{}, &weave.ProviderError{Op: "Provenance.Append", Err: err}
	}

	r.emit(step.Key, entry.Round, nil, summarize(parsed))

	return weave.StepRecord{Type: weave.StepCLI, Key: step.Key, Raw: result.Stdout, Parsed: parsed}, nil
}

// buildArgs renders a cli step's argument list. When argsObject is set, keys
// are ordered by argsSchema.properties (when present) and plain lexicographic
// order otherwise, so argument order is deterministic across runs.
func buildArgs(step weave.Step, scope weave.Scope) ([]string, error) {
	if step.ArgsObject == nil {
		out := make([]string, 0, len(step.Args))
		for _, tmpl := range step.Args {
			rendered, err := template.Render(tmpl, scope)
			if err != nil {
				return nil, err
			}
			out = append(out, rendered)
		}
		return out, nil
	}

	rendered := make(map[string]any, len(step.ArgsObject))
	for k, tmpl := range step.ArgsObject {
		v, err := template.Render(tmpl, scope)
		if err != nil {
			return nil, err
		}
		rendered[k] = v
	}

	var coerced map[string]any
	if step.ArgsSchema != nil {
		validated, err := schema.Compile(*step.ArgsSchema).Validate(rendered)
		if err != nil {
			return nil, &weave.InputValidationError{WorkflowID: step.Key, Details: err.Error()}
		}
		m, ok := validated.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("engine: argsSchema for step %q must describe an object", step.Key)
		}
		coerced = m
	} else {
		coerced = rendered
	}

	order := argOrder(step.ArgsSchema, coerced)
	out := make([]string, 0, len(order))
	for _, k := range order {
		out = append(out, stringifyArg(coerced[k]))
	}
	return out, nil
}

// argOrder returns coerced's keys ordered by argsSchema.properties when
// present (filtered to keys actually present), then any remaining keys in
// lexicographic order.
func argOrder(argsSchema *weave.Schema, coerced map[string]any) []string {
	seen := make(map[string]bool, len(coerced))
	var order []string

	if argsSchema != nil && len(argsSchema.Properties) > 0 {
		declared := make([]string, 0, len(argsSchema.Properties))
		for k := range argsSchema.Properties {
			declared = append(declared, k)
		}
		sort.Strings(declared)
		for _, k := range declared {
			if _, ok := coerced[k]; ok {
				order = append(order, k)
				seen[k] = true
			}
		}
	}

	var rest []string
	for k := range coerced {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

func stringifyArg(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	s, err := weave.CanonicalJSON(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return s
}

// resolveStdin looks up stdinFrom in scope and converts it to bytes: []byte
// values (buffer captures) pass through unchanged, strings are encoded as
// UTF-8, everything else is canonicalized to JSON.
func resolveStdin(stdinFrom string, scope weave.Scope) ([]byte, bool) {
	v, ok := scope.Lookup(stdinFrom)
	if !ok {
		return nil, false
	}
	switch val := v.(type) {
	case []byte:
		return val, true
	case string:
		return []byte(val), true
	default:
		s, err := weave.CanonicalJSON(val)
		if err != nil {
			return nil, false
		}
		return []byte(s), true
	}
}
