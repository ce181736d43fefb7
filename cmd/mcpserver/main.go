// Command mcpserver exposes workflow execution as a single MCP tool,
// run_workflow, over stdio, so MCP clients can drive this orchestrator the
// same way they drive any other agent tool.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/spetersoncode/weave"
	"github.com/spetersoncode/weave/engine"
	"github.com/spetersoncode/weave/process"
	"github.com/spetersoncode/weave/provenance"
	"github.com/spetersoncode/weave/session/anthropic"
	"github.com/spetersoncode/weave/validate"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}

	registry, err := loadRegistry(cfg.WorkflowsDir)
	if err != nil {
		log.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	sessions := anthropic.New(cfg.AnthropicKey, anthropic.WithLogger(logger))

	srv := server.NewMCPServer("weave-mcp-server", "1.0.0", server.WithToolCapabilities(true))

	tool := mcp.NewTool("run_workflow",
		mcp.WithDescription("Run a declarative multi-agent workflow to completion and return its terminal result"),
		mcp.WithString("workflowId", mcp.Required(), mcp.Description("id of a document registered under WEAVE_WORKFLOWS_DIR")),
		mcp.WithObject("input", mcp.Description("user input object validated against the workflow's user schema")),
	)

	srv.AddTool(tool, runWorkflowHandler(registry, sessions, cfg, logger))

	if err := server.ServeStdio(srv); err != nil {
		log.Fatal(err)
	}
}

func runWorkflowHandler(registry *fileRegistry, sessions weave.SessionProvider, cfg *config, logger *slog.Logger) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		workflowID := req.GetString("workflowId", "")
		if workflowID == "" {
			return mcp.NewToolResultError("workflowId is required"), nil
		}

		doc, ok := registry.Resolve(workflowID)
		if !ok {
			return mcp.NewToolResultError(fmt.Sprintf("unknown workflow %q, known: %v", workflowID, registry.ids())), nil
		}
		if _, err := validate.Document(doc); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		args := req.GetArguments()
		userInput := args["input"]

		sink := provenance.NewFileSink(cfg.SessionDir)
		handle, err := engine.Run(ctx, doc, engine.Options{
			User:       userInput,
			SessionDir: cfg.SessionDir,
			Workflows:  registry,
			Sessions:   sessions,
			Processes:  process.New(),
			Provenance: sink,
			Logger:     logger,
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		outcome := <-handle.Result
		if outcome.Err != nil {
			return mcp.NewToolResultError(outcome.Err.Error()), nil
		}

		body, err := json.Marshal(outcome.Result)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(body)), nil
	}
}
