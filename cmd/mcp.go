/*
Copyright © 2025 Joseph Goksu josephgoksu@gmail.com
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	mcppresenter "github.com/josephgoksu/taskflow/internal/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI tool integration",
	Long: `Start a Model Context Protocol (MCP) server over stdio so AI assistants can
list, create and move tasks through their workflows.

Tools:
- task: list, get, create, advance, reverse, close, delete, history
- task_types: task types and their status sequences
- users: the user directory

The server will run until the client disconnects.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCPServer(cmd)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

// mcpMarkdownResponse wraps Markdown content in an MCP tool result.
func mcpMarkdownResponse(markdown string) (*mcpsdk.CallToolResultFor[any], error) {
	return &mcpsdk.CallToolResultFor[any]{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: markdown}},
	}, nil
}

// mcpErrorResponse wraps an error in an MCP tool result with IsError=true.
// Tool errors go in the result, not the protocol, so the model can see them
// and correct its call.
func mcpErrorResponse(err error) (*mcpsdk.CallToolResultFor[any], error) {
	return &mcpsdk.CallToolResultFor[any]{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: mcppresenter.FormatError(err.Error())}},
		IsError: true,
	}, nil
}

// mcpValidationErrorResponse wraps a validation error with IsError=true.
func mcpValidationErrorResponse(field, message string) (*mcpsdk.CallToolResultFor[any], error) {
	return &mcpsdk.CallToolResultFor[any]{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: mcppresenter.FormatValidationError(field, message)}},
		IsError: true,
	}, nil
}

// mcpFormattedErrorResponse wraps pre-formatted error text with IsError=true.
func mcpFormattedErrorResponse(formattedError string) (*mcpsdk.CallToolResultFor[any], error) {
	return &mcpsdk.CallToolResultFor[any]{
		Content: []mcpsdk.Content{&mcpsdk.TextContent{Text: formattedError}},
		IsError: true,
	}, nil
}

func runMCPServer(cmd *cobra.Command) error {
	// stdout carries JSON-RPC. Everything else goes to stderr.
	fmt.Fprintln(os.Stderr, "TaskFlow MCP Server starting...")

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := openApp(ctx, cmd, true)
	if err != nil {
		return fmt.Errorf("failed to open workflow store: %w", err)
	}
	defer a.close()

	server := newMCPServer(a.svc)
	if err := server.Run(ctx, mcpsdk.NewStdioTransport()); err != nil {
		return fmt.Errorf("MCP server: %w", err)
	}
	return nil
}

// newMCPServer registers the workflow tools on a new MCP server.
func newMCPServer(svc mcppresenter.Service) *mcpsdk.Server {
	impl := &mcpsdk.Implementation{
		Name:    "taskflow-mcp",
		Version: version,
	}
	serverOpts := &mcpsdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.InitializedParams) {
			fmt.Fprintf(os.Stderr, "✓ MCP connection established\n")
			if viper.GetBool("verbose") {
				fmt.Fprintf(os.Stderr, "[DEBUG] Client initialized\n")
			}
		},
	}
	server := mcpsdk.NewServer(impl, serverOpts)

	taskTool := &mcpsdk.Tool{
		Name: "task",
		Description: `Unified task workflow tool. Use action parameter to select operation:
- list: List tasks, newest first (user_id filters by owner)
- get: Show one task with its current status and the prompt for the next step
- create: Create a task at its type's first status
- advance: Move a task to its next status; requirement is the evidence for the status being left
- reverse: Move a task back one status and show the requirement saved there
- close: Close a task sitting on its final status
- delete: Delete a task and its history
- history: Show the requirement saved for each status the task left

REQUIRED FIELDS BY ACTION:
- get, advance, reverse, close, delete, history: task_id
- create: type_id, user_id (next_assignee_user_id, requirement, custom_fields optional)`,
	}
	mcpsdk.AddTool(server, taskTool, taskToolHandler(svc))

	typesTool := &mcpsdk.Tool{
		Name:        "task_types",
		Description: "List task types with their ordered statuses and the requirement needed to leave each status.",
	}
	mcpsdk.AddTool(server, typesTool, typesToolHandler(svc))

	usersTool := &mcpsdk.Tool{
		Name:        "users",
		Description: "List users that can own or be assigned tasks.",
	}
	mcpsdk.AddTool(server, usersTool, usersToolHandler(svc))

	return server
}

func taskToolHandler(svc mcppresenter.Service) func(context.Context, *mcpsdk.ServerSession, *mcpsdk.CallToolParamsFor[mcppresenter.TaskToolParams]) (*mcpsdk.CallToolResultFor[any], error) {
	return func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[mcppresenter.TaskToolParams]) (*mcpsdk.CallToolResultFor[any], error) {
		result, err := mcppresenter.HandleTaskTool(ctx, svc, params.Arguments)
		if err != nil {
			LogError("task tool", err)
			return mcpErrorResponse(fmt.Errorf("%s failed: %w", params.Arguments.Action, err))
		}
		if result.Error != "" {
			if result.Field != "" {
				return mcpValidationErrorResponse(result.Field, result.Error)
			}
			return mcpFormattedErrorResponse(mcppresenter.FormatError(result.Error))
		}
		return mcpMarkdownResponse(result.Content)
	}
}

func typesToolHandler(svc mcppresenter.Service) func(context.Context, *mcpsdk.ServerSession, *mcpsdk.CallToolParamsFor[mcppresenter.TypesToolParams]) (*mcpsdk.CallToolResultFor[any], error) {
	return func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[mcppresenter.TypesToolParams]) (*mcpsdk.CallToolResultFor[any], error) {
		return mcpMarkdownResponse(mcppresenter.HandleTypesTool(svc))
	}
}

func usersToolHandler(svc mcppresenter.Service) func(context.Context, *mcpsdk.ServerSession, *mcpsdk.CallToolParamsFor[mcppresenter.UsersToolParams]) (*mcpsdk.CallToolResultFor[any], error) {
	return func(ctx context.Context, session *mcpsdk.ServerSession, params *mcpsdk.CallToolParamsFor[mcppresenter.UsersToolParams]) (*mcpsdk.CallToolResultFor[any], error) {
		content, err := mcppresenter.HandleUsersTool(ctx, svc)
		if err != nil {
			return mcpErrorResponse(err)
		}
		return mcpMarkdownResponse(content)
	}
}
