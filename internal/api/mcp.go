package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/adcraft-io/copygen/internal/ingest"
	"github.com/adcraft-io/copygen/internal/pipeline"
	"github.com/adcraft-io/copygen/internal/retrieval"
	"github.com/adcraft-io/copygen/internal/storage"
	"github.com/adcraft-io/copygen/internal/teams"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store     *storage.Store
	Writer    *ingest.Writer
	Generator CopyGenerator
	Searcher  PhraseSearcher
	Teams     *teams.Table
}

// NewMCPServer creates an MCP server with the copygen tools registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"copygen",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("copygen: marketing copy generation backed by historical campaign performance."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("generate_copy",
			mcp.WithDescription("Generate marketing copy candidates for a topic, informed by similar high-performing past campaigns."),
			mcp.WithString("topic", mcp.Description("Campaign topic, e.g. 가을 세일"), mcp.Required()),
			mcp.WithString("channel", mcp.Description("Delivery channel: RCS or APP_PUSH (default RCS)")),
			mcp.WithNumber("team_id", mcp.Description("Team ID; when set, generated copies are saved for that team")),
			mcp.WithNumber("count", mcp.Description("Number of candidates to generate (default 5)")),
			mcp.WithString("target_audience", mcp.Description("Target audience description")),
			mcp.WithString("tone", mcp.Description("Desired tone of voice")),
		),
		mcpGenerateCopy(deps),
	)

	s.AddTool(
		mcp.NewTool("search_phrases",
			mcp.WithDescription("Semantically search historical marketing phrases, ranked by click-through rate."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 5)")),
			mcp.WithNumber("team_id", mcp.Description("Restrict to one team")),
			mcp.WithString("channel", mcp.Description("Restrict to one channel: RCS or APP_PUSH")),
		),
		mcpSearchPhrases(deps),
	)

	s.AddTool(
		mcp.NewTool("recent_trends",
			mcp.WithDescription("List recently collected trend keywords."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpRecentTrends(deps),
	)

	s.AddTool(
		mcp.NewTool("add_copy",
			mcp.WithDescription("Archive one marketing copy with its performance metrics."),
			mcp.WithNumber("team_id", mcp.Description("Team ID")),
			mcp.WithString("team_name", mcp.Description("Team name, resolved to an ID when team_id is absent")),
			mcp.WithString("channel", mcp.Description("Delivery channel: RCS or APP_PUSH"), mcp.Required()),
			mcp.WithString("title", mcp.Description("Push title (APP_PUSH)")),
			mcp.WithString("message", mcp.Description("Message body"), mcp.Required()),
			mcp.WithString("button", mcp.Description("Button label (RCS)")),
			mcp.WithString("keywords", mcp.Description("Comma-separated keywords")),
		),
		mcpAddCopy(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"copygen://teams",
			"Marketing Teams",
			mcp.WithResourceDescription("Known team names and their IDs as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceTeams(deps.Teams),
	)

	return s
}

func mcpGenerateCopy(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		topic, err := req.RequireString("topic")
		if err != nil {
			return mcpError("topic is required"), nil
		}

		result, err := deps.Generator.Generate(ctx, pipeline.Request{
			Topic:          topic,
			Channel:        req.GetString("channel", ""),
			TeamID:         pipeline.TeamID(req.GetInt("team_id", 0)),
			Count:          req.GetInt("count", 0),
			TargetAudience: req.GetString("target_audience", ""),
			Tone:           req.GetString("tone", ""),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("generation failed: %v", err)), nil
		}

		b, err := json.Marshal(result)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpSearchPhrases(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 5)
		if limit <= 0 {
			limit = 5
		}
		if limit > 50 {
			limit = 50
		}

		phrases := deps.Searcher.SearchPhrases(ctx, query, limit, retrieval.Filter{
			TeamID:  req.GetInt("team_id", 0),
			Channel: req.GetString("channel", ""),
		})
		if len(phrases) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(phrases)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpRecentTrends(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > 100 {
			limit = 100
		}

		records, err := deps.Store.RecentTrends(limit)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list trends: %v", err)), nil
		}
		if len(records) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(records)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAddCopy(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		channel, err := req.RequireString("channel")
		if err != nil {
			return mcpError("channel is required"), nil
		}
		message, err := req.RequireString("message")
		if err != nil {
			return mcpError("message is required"), nil
		}

		res := deps.Writer.WriteBatch([]ingest.Record{{
			TeamID:   req.GetInt("team_id", 0),
			TeamName: req.GetString("team_name", ""),
			Channel:  channel,
			Title:    req.GetString("title", ""),
			Message:  message,
			Button:   req.GetString("button", ""),
			Keywords: req.GetString("keywords", ""),
		}})
		if res.SuccessCount == 0 {
			return mcpError("copy rejected, check team and channel"), nil
		}

		return mcpText("Stored 1 marketing copy"), nil
	}
}

func mcpResourceTeams(table *teams.Table) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(table.All())
		if err != nil {
			return nil, fmt.Errorf("failed to marshal teams: %w", err)
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
