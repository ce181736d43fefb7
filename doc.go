// Package weave defines the data model and collaborator interfaces for the
// workflow orchestrator: the workflow Document, its Step/Transition/Round
// shapes, the run Scope, and the SessionProvider/ProcessRunner/ProvenanceSink/
// WorkflowRegistry boundaries the engine consumes.
//
// This package holds only pure types. Orchestration logic lives in the
// subpackages:
//
//   - [github.com/spetersoncode/weave/schema]: parser schema compilation and coercion
//   - [github.com/spetersoncode/weave/template]: `{{path||fallback}}` rendering
//   - [github.com/spetersoncode/weave/condition]: the transition boolean DSL
//   - [github.com/spetersoncode/weave/validate]: document structural/referential validation
//   - [github.com/spetersoncode/weave/session]: session lifecycle against a SessionProvider
//   - [github.com/spetersoncode/weave/provenance]: the append-only run audit log
//   - [github.com/spetersoncode/weave/process]: the default os/exec ProcessRunner
//   - [github.com/spetersoncode/weave/engine]: step executors, the round loop, and the run harness
//
// # Basic usage
//
//	doc, err := weave.LoadDocumentFile("workflow.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	handle, err := engine.Run(ctx, doc, engine.Options{
//	    User:       map[string]any{"goal": "ship it"},
//	    SessionDir: "/tmp/run-1",
//	    Sessions:   anthropicProvider,
//	    Processes:  process.New(),
//	    Provenance: provenance.NewFileSink("/tmp/run-1"),
//	})
//	outcome := <-handle.Result // outcome.Result, outcome.Err
package weave
