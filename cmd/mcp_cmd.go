package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/user/chatvault/internal/history"
)

func mcpCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the history as MCP tools over stdio",
		Long: `Mcp exposes the stored history to MCP clients (agents, editors) over
stdio. Tools: search_messages, semantic_search, get_sessions,
get_session_messages.`,
		Run: func(cmd *cobra.Command, args []string) {
			eng, _, shutdown := mustOpenEngine()
			defer shutdown()

			if err := serveMCP(eng); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %s\n", err)
				os.Exit(1)
			}
		},
	}
}

func serveMCP(eng *history.Engine) error {
	s := server.NewMCPServer("chatvault", version)

	s.AddTool(mcp.NewTool("search_messages",
		mcp.WithDescription("Full-text search over stored chat messages with optional session, sender, and date filters"),
		mcp.WithString("query", mcp.Description("FTS query over message content")),
		mcp.WithString("session_id", mcp.Description("restrict to one session")),
		mcp.WithString("sender", mcp.Description("restrict to one sender")),
		mcp.WithString("start_date", mcp.Description("inclusive lower bound, RFC3339 or YYYY-MM-DD")),
		mcp.WithString("end_date", mcp.Description("inclusive upper bound, RFC3339 or YYYY-MM-DD")),
		mcp.WithNumber("limit", mcp.Description("max results, default 20")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		msgs := eng.SearchMessages(ctx, history.SearchOptions{
			Query:     req.GetString("query", ""),
			SessionID: req.GetString("session_id", ""),
			Sender:    req.GetString("sender", ""),
			StartDate: req.GetString("start_date", ""),
			EndDate:   req.GetString("end_date", ""),
			Limit:     req.GetInt("limit", 20),
		})
		return toolJSON(msgs)
	})

	s.AddTool(mcp.NewTool("semantic_search",
		mcp.WithDescription("Find stored messages most similar in meaning to the given text"),
		mcp.WithString("text", mcp.Required(), mcp.Description("text to match against")),
		mcp.WithNumber("limit", mcp.Description("max results, default 10")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		text, err := req.RequireString("text")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		hits := eng.SemanticSearch(ctx, text, req.GetInt("limit", 10))
		return toolJSON(hits)
	})

	s.AddTool(mcp.NewTool("get_sessions",
		mcp.WithDescription("List recent chat sessions, newest-first"),
		mcp.WithNumber("limit", mcp.Description("max sessions, default 20")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return toolJSON(eng.GetSessions(req.GetInt("limit", 20)))
	})

	s.AddTool(mcp.NewTool("get_session_messages",
		mcp.WithDescription("Fetch all messages of one session, newest-first"),
		mcp.WithString("session_id", mcp.Required(), mcp.Description("session to fetch")),
	), func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := req.RequireString("session_id")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return toolJSON(eng.GetSessionMessages(id))
	})

	return server.ServeStdio(s)
}

func toolJSON(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
