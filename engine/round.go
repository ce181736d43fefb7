package engine

import (
	"github.com/spetersoncode/weave"
	"github.com/spetersoncode/weave/condition"
	"github.com/spetersoncode/weave/template"
)

// flowResult is what evaluating one step's transitions/exits decides: stop
// the run, jump to a named step, or fall through to the next one in order.
type flowResult struct {
	terminate bool
	outcome   string
	reason    string
	next      string
}

// execute drives the flow engine: an optional bootstrap pass, then repeating
// rounds of step.Round.Steps until a terminal transition/exit fires or
// maxRounds is exhausted (spec §4.6).
func (r *run) execute() (weave.RunResult, error) {
	if r.doc.Flow.Bootstrap != nil {
		scope := r.entryScope(0)
		terminal, err := r.runBootstrap(*r.doc.Flow.Bootstrap, scope)
		if err != nil {
			return weave.RunResult{}, err
		}
		if terminal != nil {
			return r.finish(*terminal), nil
		}
	}

	steps := r.doc.Flow.Round.Steps
	index := make(map[string]int, len(steps))
	for i, s := range steps {
		index[s.Key] = i
	}
	startKey := r.doc.Flow.Round.Start
	if startKey == "" && len(steps) > 0 {
		startKey = steps[0].Key
	}

	for round := 1; round <= r.maxRounds || r.maxRounds <= 0; round++ {
		r.roundSteps = nil
		curKey := startKey
		for curKey != "" {
			stepIdx, ok := index[curKey]
			if !ok {
				return weave.RunResult{}, &weave.SchemaError{Path: "flow.round.steps", Msg: "unknown step key " + curKey}
			}
			step := steps[stepIdx]

			entry := r.entryScope(round)
			rec, args, err := r.dispatch(step, entry)
			if err != nil {
				return weave.RunResult{}, err
			}
			r.setStep(step.Key, rec)
			r.roundSteps = append(r.roundSteps, step.Key)

			resultSc := resultScope(entry, rec.Parsed, args)
			resultSc = r.refreshSteps(resultSc)
			resultSc = r.refreshState(resultSc)
			if err := r.applyStateUpdates(step.StateUpdates, resultSc); err != nil {
				return weave.RunResult{}, err
			}
			resultSc = r.refreshState(resultSc)

			flow, err := r.evaluateFlow(step, resultSc)
			if err != nil {
				return weave.RunResult{}, err
			}

			if flow.terminate {
				r.rounds = append(r.rounds, weave.RoundRecord{Round: round, Steps: r.roundSteps})
				return r.finish(weave.Outcome{Outcome: flow.outcome, Reason: flow.reason}), nil
			}
			if flow.next != "" {
				curKey = flow.next
				continue
			}
			if stepIdx+1 < len(steps) {
				curKey = steps[stepIdx+1].Key
				continue
			}
			curKey = ""
		}

		r.rounds = append(r.rounds, weave.RoundRecord{Round: round, Steps: r.roundSteps})

		if r.maxRounds > 0 && round >= r.maxRounds {
			break
		}
	}

	return r.finish(r.doc.Flow.Round.DefaultOutcome), nil
}

// runBootstrap evaluates stateUpdates then exits only (no transitions),
// terminating the run immediately if an exit fires (spec §4.6 rule 1).
func (r *run) runBootstrap(step weave.Step, entry weave.Scope) (*weave.Outcome, error) {
	rec, args, err := r.dispatch(step, entry)
	if err != nil {
		return nil, err
	}
	r.setStep(step.Key, rec)

	resultSc := resultScope(entry, rec.Parsed, args)
	resultSc = r.refreshSteps(resultSc)
	resultSc = r.refreshState(resultSc)
	if err := r.applyStateUpdates(step.StateUpdates, resultSc); err != nil {
		return nil, err
	}
	resultSc = r.refreshState(resultSc)

	for _, exit := range step.Exits {
		matched, err := condition.Evaluate(exit.Condition, resultSc)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}
		if err := r.applyStateUpdates(exit.StateUpdates, resultSc); err != nil {
			return nil, err
		}
		reason, err := template.Render(exit.Reason, resultSc)
		if err != nil {
			return nil, err
		}
		return &weave.Outcome{Outcome: exit.Outcome, Reason: reason}, nil
	}
	return nil, nil
}

func (r *run) dispatch(step weave.Step, entry weave.Scope) (weave.StepRecord, any, error) {
	switch step.Kind {
	case weave.StepAgent:
		return r.executeAgent(step, entry)
	case weave.StepCLI:
		rec, err := r.executeCLI(step, entry)
		return rec, nil, err
	case weave.StepWorkflow:
		return r.executeWorkflow(step, entry)
	case weave.StepTransform:
		return r.executeTransform(step, entry)
	default:
		return weave.StepRecord{}, nil, &weave.SchemaError{Path: "flow.round.steps[" + step.Key + "]", Msg: "unknown step kind " + string(step.Kind)}
	}
}

// evaluateFlow applies the transitions-before-exits tie-break: transitions
// are checked first in document order, and the first match short-circuits
// exit evaluation entirely for that step, even if the matching transition
// specifies neither outcome nor next (in which case the step falls through
// to sequencing without ever consulting exits).
func (r *run) evaluateFlow(step weave.Step, scope weave.Scope) (flowResult, error) {
	for _, t := range step.Transitions {
		matched, err := condition.Evaluate(t.Condition, scope)
		if err != nil {
			return flowResult{}, err
		}
		if !matched {
			continue
		}
		if err := r.applyStateUpdates(t.StateUpdates, scope); err != nil {
			return flowResult{}, err
		}
		if t.Outcome != "" {
			reason, err := template.Render(t.Reason, r.refreshState(scope))
			if err != nil {
				return flowResult{}, err
			}
			return flowResult{terminate: true, outcome: t.Outcome, reason: reason}, nil
		}
		return flowResult{next: firstNonEmpty(t.Next, step.Next)}, nil
	}

	for _, exit := range step.Exits {
		matched, err := condition.Evaluate(exit.Condition, scope)
		if err != nil {
			return flowResult{}, err
		}
		if !matched {
			continue
		}
		if err := r.applyStateUpdates(exit.StateUpdates, scope); err != nil {
			return flowResult{}, err
		}
		reason, err := template.Render(exit.Reason, r.refreshState(scope))
		if err != nil {
			return flowResult{}, err
		}
		return flowResult{terminate: true, outcome: exit.Outcome, reason: reason}, nil
	}

	return flowResult{next: step.Next}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func (r *run) finish(outcome weave.Outcome) weave.RunResult {
	return weave.RunResult{RunID: r.id, Outcome: outcome.Outcome, Reason: outcome.Reason, Rounds: r.rounds}
}
