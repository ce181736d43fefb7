// Command weave runs a single workflow document to completion against a
// live Anthropic-backed session provider, printing the run's terminal result
// (runId, outcome, reason, rounds) to stdout as JSON. The full Run Record is
// written by the provenance sink under the session directory.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/spetersoncode/weave"
	"github.com/spetersoncode/weave/engine"
	"github.com/spetersoncode/weave/process"
	"github.com/spetersoncode/weave/provenance"
	"github.com/spetersoncode/weave/session/anthropic"
	"github.com/spetersoncode/weave/validate"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "weave:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		workflowPath = flag.String("workflow", "", "path to the workflow document (required)")
		workflowsDir = flag.String("workflows-dir", "", "directory of additional documents resolvable by workflow steps")
		sessionDir   = flag.String("session-dir", ".", "working directory for session reuse and provenance")
		userJSON     = flag.String("input", "{}", "JSON object passed as the run's user input")
	)
	flag.Parse()

	if *workflowPath == "" {
		return fmt.Errorf("-workflow is required")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: parseLevel(cfg.LogLevel)}))

	doc, err := weave.LoadDocumentFile(*workflowPath)
	if err != nil {
		return err
	}
	if _, err := validate.Document(doc); err != nil {
		return err
	}

	registry, err := loadRegistry(*workflowsDir)
	if err != nil {
		return err
	}

	var userInput any
	if err := json.Unmarshal([]byte(*userJSON), &userInput); err != nil {
		return fmt.Errorf("-input is not valid JSON: %w", err)
	}

	sessions := anthropic.New(cfg.AnthropicKey, anthropic.WithLogger(logger))
	sink := provenance.NewFileSink(*sessionDir)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	handle, err := engine.Run(ctx, doc, engine.Options{
		User:       userInput,
		SessionDir: *sessionDir,
		Model:      cfg.Model,
		MaxRounds:  cfg.MaxRounds,
		Workflows:  registry,
		Sessions:   sessions,
		Processes:  process.New(),
		Provenance: sink,
		Logger:     logger,
		OnStream: func(evt weave.StreamEvent) {
			logger.Info("step complete", "step", evt.Step, "round", evt.Round, "summary", evt.ParsedSummary)
		},
	})
	if err != nil {
		return err
	}

	outcome := <-handle.Result
	if outcome.Err != nil {
		return outcome.Err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(outcome.Result)
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
