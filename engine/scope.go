package engine

import (
	"github.com/spetersoncode/weave"
	"github.com/spetersoncode/weave/template"
)

func (r *run) stepsSnapshot() map[string]weave.StepRecord {
	out := make(map[string]weave.StepRecord, len(r.steps))
	for k, v := range r.steps {
		out[k] = v
	}
	return out
}

func (r *run) setStep(key string, rec weave.StepRecord) {
	r.steps[key] = rec
}

// entryScope is the binding environment used to render a step's own
// prompt/args/template before it executes: it carries every prior step's
// result but nothing from the step currently being entered.
func (r *run) entryScope(round int) weave.Scope {
	return weave.Scope{
		User:      r.user,
		Run:       weave.RunInfo{ID: r.id},
		Round:     round,
		MaxRounds: r.maxRounds,
		State:     r.state.Snapshot(),
		Steps:     r.stepsSnapshot(),
	}
}

// resultScope extends entry with the step's own parsed output and validated
// input (scope.parsed / scope.args refer to the current step, spec §3).
func resultScope(entry weave.Scope, parsed, args any) weave.Scope {
	out := entry
	out.Parsed = parsed
	out.Args = args
	return out
}

// applyStateUpdates renders every value against scope and writes it to the
// shared state bag (spec §4.6c: values are always rendered template strings).
func (r *run) applyStateUpdates(updates map[string]string, scope weave.Scope) error {
	for k, tmpl := range updates {
		v, err := template.Render(tmpl, scope)
		if err != nil {
			return err
		}
		r.state.Set(k, v)
	}
	return nil
}

func (r *run) refreshState(scope weave.Scope) weave.Scope {
	scope.State = r.state.Snapshot()
	return scope
}

// refreshSteps re-snapshots scope.Steps, picking up the step record just
// written via setStep so a step's own transitions/exits can see it under
// steps.<key> (spec §3: steps include the current step's own result).
func (r *run) refreshSteps(scope weave.Scope) weave.Scope {
	scope.Steps = r.stepsSnapshot()
	return scope
}
