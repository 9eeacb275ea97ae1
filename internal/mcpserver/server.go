// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes devtally tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/devtally/internal/apperr"
	"github.com/starford/devtally/internal/models"
	"github.com/starford/devtally/internal/tallyservice"
)

const reportURI = "devtally://report"

// Server wraps the MCP server with devtally tools.
type Server struct {
	mcp *server.MCPServer
	svc *tallyservice.Service
}

// New creates a new MCP server with all devtally tools registered.
func New(svc *tallyservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"devtally",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("record_done",
		mcp.WithDescription("Add n to a user's done counter, optionally with a note."),
		mcp.WithString("handle", mcp.Required(), mcp.Description("User handle, with or without a leading @")),
		mcp.WithNumber("n", mcp.Required(), mcp.Description("Integer increment (may be negative)")),
		mcp.WithString("note", mcp.Description("Optional free-text note")),
	), s.recordDone)

	s.mcp.AddTool(mcp.NewTool("record_fail",
		mcp.WithDescription("Add n to a user's fail counter, optionally with a note."),
		mcp.WithString("handle", mcp.Required(), mcp.Description("User handle, with or without a leading @")),
		mcp.WithNumber("n", mcp.Required(), mcp.Description("Integer increment (may be negative)")),
		mcp.WithString("note", mcp.Description("Optional free-text note")),
	), s.recordFail)

	s.mcp.AddTool(mcp.NewTool("get_report",
		mcp.WithDescription("Return the ranked report exactly as the bot sends it."),
	), s.getReport)

	s.mcp.AddTool(mcp.NewTool("get_user",
		mcp.WithDescription("Return one user's counters and notes as JSON."),
		mcp.WithString("handle", mcp.Required(), mcp.Description("User handle")),
	), s.getUser)

	s.mcp.AddTool(mcp.NewTool("reset_tallies",
		mcp.WithDescription("Clear every user's tallies. Cannot be undone."),
	), s.resetTallies)

	s.mcp.AddResource(
		mcp.NewResource(reportURI, "Tally report",
			mcp.WithResourceDescription("Current ranked report."),
			mcp.WithMIMEType("text/plain"),
		),
		s.readReportResource,
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

func (s *Server) recordDone(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.record(ctx, req, models.KindDone)
}

func (s *Server) recordFail(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.record(ctx, req, models.KindFail)
}

func (s *Server) record(ctx context.Context, req mcp.CallToolRequest, kind models.Kind) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("handle")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := wholeNumber(req, "n")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note := req.GetString("note", "")

	res, err := s.svc.Record(ctx, raw, kind, n, note)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("@%s: %s=%d (%+d)", res.Handle, kind, counter(res.Record, kind), n)), nil
}

// wholeNumber reads key as an integer. JSON numbers arrive as float64, so
// fractions and values outside the int range are rejected rather than
// truncated.
func wholeNumber(req mcp.CallToolRequest, key string) (int, error) {
	v, err := req.RequireFloat(key)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
		return 0, fmt.Errorf("%w: %s must be an integer, got %v", apperr.ErrValidation, key, v)
	}
	return int(v), nil
}

func counter(rec models.UserRecord, kind models.Kind) int {
	if kind == models.KindFail {
		return rec.Fail
	}
	return rec.Done
}

func (s *Server) getReport(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := s.svc.Report(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) getUser(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("handle")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key, rec, err := s.svc.User(ctx, raw)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: @%s", key)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(struct {
		Handle string `json:"handle"`
		*models.UserRecord
	}{key, rec}, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) resetTallies(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := s.svc.Reset(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("reset"), nil
}

func (s *Server) readReportResource(ctx context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	text, err := s.svc.Report(ctx)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      reportURI,
			MIMEType: "text/plain",
			Text:     text,
		},
	}, nil
}
