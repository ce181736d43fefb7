package engine

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spetersoncode/weave"
	"github.com/spetersoncode/weave/schema"
	"github.com/spetersoncode/weave/template"
)

// executeAgent implements the agent step contract (spec §4.5): render the
// prompt, resolve or create the role's session, send the prompt, parse the
// reply against the role's parser.
func (r *run) executeAgent(step weave.Step, entry weave.Scope) (weave.StepRecord, any, error) {
	if r.sessions == nil || r.opts.Sessions == nil {
		return weave.StepRecord{}, nil, fmt.Errorf("engine: step %q requires a SessionProvider", step.Key)
	}
	roleDef, ok := r.doc.Roles[step.Role]
	if !ok {
		return weave.StepRecord{}, nil, fmt.Errorf("engine: step %q references undeclared role %q", step.Key, step.Role)
	}

	handle, err := r.sessions.Resolve(r.ctx, step.Role)
	if err != nil {
		return weave.StepRecord{}, nil, err
	}
	if !r.appendedAgents[step.Role] {
		if err := r.opts.Provenance.AppendAgent(r.ctx, r.id, weave.ProvenanceAgent{Role: step.Role, SessionID: handle.ID, Name: handle.Name}); err != nil {
			return weave.StepRecord{}, nil, &weave.ProviderError{Op: "Provenance.AppendAgent", Err: err}
		}
		r.appendedAgents[step.Role] = true
	}

	parts := make([]weave.Part, 0, len(step.Prompt))
	for _, p := range step.Prompt {
		rendered, err := template.Render(p, entry)
		if err != nil {
			return weave.StepRecord{}, nil, err
		}
		parts = append(parts, weave.Part{Text: rendered})
	}

	logRole := fmt.Sprintf("%s.%s", r.label, step.Role)
	if err := r.opts.Provenance.Append(r.ctx, r.id, weave.ProvenanceEntry{Role: logRole, Payload: map[string]any{"prompt": parts}}); err != nil {
		return weave.StepRecord{}, nil, &weave.ProviderError{Op: "Provenance.Append", Err: err}
	}

	promptResult, err := r.opts.Sessions.Prompt(r.ctx, handle, parts, r.model, step.Role, roleDef.Tools)
	if err != nil {
		return weave.StepRecord{}, nil, &weave.ProviderError{Op: "Prompt", Err: err}
	}

	raw := ""
	if n := len(promptResult.Parts); n > 0 {
		raw = promptResult.Parts[n-1].Text
	}

	if err := r.opts.Provenance.Append(r.ctx, r.id, weave.ProvenanceEntry{Role: logRole, Payload: map[string]any{"reply": raw}}); err != nil {
		return weave.StepRecord{}, nil, &weave.ProviderError{Op: "Provenance.Append", Err: err}
	}

	parserSchema, hasParser := r.doc.Parsers[roleDef.Parser]
	if !hasParser {
		parserSchema = weave.Schema{Type: weave.SchemaUnknown}
	}

	var decoded any
	candidate, extractErr := extractJSON(raw)
	if extractErr == nil {
		extractErr = json.Unmarshal([]byte(candidate), &decoded)
	}
	if extractErr != nil {
		if parserSchema.Type != weave.SchemaUnknown {
			return weave.StepRecord{}, nil, &weave.ParseError{Role: step.Role, Raw: raw, Err: extractErr}
		}
		decoded = raw
	}

	parsed, verr := schema.Compile(parserSchema).Validate(decoded)
	if verr != nil {
		return weave.StepRecord{}, nil, &weave.ParseError{Role: step.Role, Raw: raw, Err: verr}
	}

	r.emit(step.Key, entry.Round, promptResult.Parts, summarize(parsed))

	return weave.StepRecord{Type: weave.StepAgent, Key: step.Key, Raw: raw, Parsed: parsed}, nil, nil
}

// extractJSON returns raw's JSON payload, stripping markdown fences and
// surrounding prose before the first '{'/'[' and after the last '}'/']'
// when raw is not already valid JSON on its own (spec §4.5).
func extractJSON(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}

	fenced := strings.TrimSpace(trimmed)
	fenced = strings.TrimPrefix(fenced, "```json")
	fenced = strings.TrimPrefix(fenced, "```")
	fenced = strings.TrimSuffix(fenced, "```")
	fenced = strings.TrimSpace(fenced)
	if json.Valid([]byte(fenced)) {
		return fenced, nil
	}

	start := strings.IndexAny(fenced, "{[")
	end := strings.LastIndexAny(fenced, "}]")
	if start == -1 || end == -1 || end < start {
		return "", fmt.Errorf("no JSON payload found in reply")
	}
	candidate := fenced[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return "", fmt.Errorf("extracted content is not valid JSON")
	}
	return candidate, nil
}

func summarize(v any) string {
	s, err := weave.CanonicalJSON(v)
	if err != nil {
		return ""
	}
	return s
}
