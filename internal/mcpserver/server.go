// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the guide pipeline as tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/guidesmith/internal/apperr"
	"github.com/starford/guidesmith/internal/guideservice"
	"github.com/starford/guidesmith/internal/journal"
	"github.com/starford/guidesmith/internal/models"
	"github.com/starford/guidesmith/internal/prompt"
)

// Server wraps the MCP server with guidesmith tools.
type Server struct {
	mcp *server.MCPServer
	svc *guideservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *guideservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"guidesmith",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("generate_guide",
		mcp.WithDescription("Generate a guide about an Austin topic and publish it to the content store. "+
			"Read the guidesmith://guide-format resource for how hints are used."),
		mcp.WithString("topic", mcp.Required(), mcp.Description("Question or theme, e.g. \"Where are the best breakfast tacos?\"")),
		mcp.WithArray("places", mcp.Description("Optional place slugs to feature"), mcp.WithStringItems()),
		mcp.WithArray("neighborhoods", mcp.Description("Optional neighborhood slugs"), mcp.WithStringItems()),
	), s.generateGuide)

	s.mcp.AddTool(mcp.NewTool("suggest_topics",
		mcp.WithDescription("Suggest guide topics people search for. Nothing is published."),
		mcp.WithString("category", mcp.Description("Optional category"), mcp.Enum(models.TopicCategories...)),
		mcp.WithString("neighborhood", mcp.Description("Optional neighborhood name or slug")),
		mcp.WithNumber("count", mcp.Description("Number of topics (1-50, default 5)")),
	), s.suggestTopics)

	s.mcp.AddTool(mcp.NewTool("resolve_slugs",
		mcp.WithDescription("Check which place or neighborhood slugs exist in the content store."),
		mcp.WithString("kind", mcp.Required(), mcp.Enum(models.KindPlace, models.KindNeighborhood)),
		mcp.WithArray("slugs", mcp.Required(), mcp.WithStringItems()),
	), s.resolveSlugs)

	s.mcp.AddTool(mcp.NewTool("list_guides",
		mcp.WithDescription("List guides generated by this installation, newest first."),
		mcp.WithString("query", mcp.Description("Optional search over title, summary and topic")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of guides (default 20)")),
	), s.listGuides)

	s.mcp.AddTool(mcp.NewTool("get_guide_format",
		mcp.WithDescription("Returns the guide format contract."),
	), s.getGuideFormat)

	s.mcp.AddResource(
		mcp.NewResource(GuideFormatURI, "Guide Format Contract",
			mcp.WithResourceDescription("How guides are generated, stored and linked to places and neighborhoods."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func errorResult(err error) *mcp.CallToolResult {
	if errors.Is(err, apperr.ErrInvalidInput) {
		return mcp.NewToolResultError("invalid arguments: " + err.Error())
	}
	return mcp.NewToolResultError(err.Error())
}

func (s *Server) generateGuide(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topic, err := req.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.CreateFromTopic(ctx, guideservice.Request{
		Topic:         topic,
		Places:        req.GetStringSlice("places", nil),
		Neighborhoods: req.GetStringSlice("neighborhoods", nil),
		Source:        journal.SourceMCP,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(res)
}

func (s *Server) suggestTopics(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	topics, err := s.svc.TopicIdeas(ctx, prompt.TopicFilter{
		Category:     req.GetString("category", ""),
		Neighborhood: req.GetString("neighborhood", ""),
		Count:        req.GetInt("count", 0),
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(topics)
}

func (s *Server) resolveSlugs(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Resolve(ctx, kind, req.GetStringSlice("slugs", nil))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(res)
}

func (s *Server) listGuides(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 20)
	rows, _, err := s.svc.History(req.GetString("query", ""), limit, 0)
	if err != nil {
		return errorResult(err), nil
	}
	if len(rows) == 0 {
		return mcp.NewToolResultText("no guides found"), nil
	}
	return jsonResult(rows)
}

func (s *Server) getGuideFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(GuideFormatContract), nil
}

func (s *Server) readGuideFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      GuideFormatURI,
			MIMEType: "text/markdown",
			Text:     GuideFormatContract,
		},
	}, nil
}
