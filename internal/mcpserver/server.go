// Package mcpserver exposes the dictation history to MCP clients over
// stdio. All tools and resources are read-only.
package mcpserver

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/fluestern/companion/internal/db"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const (
	// Name is the server name reported during initialization.
	Name = "fluestern"

	// PromptContextURI addresses the prompt-context snippet as a resource.
	PromptContextURI = "fluestern://prompt-context"

	// DefaultRecordingLimit applies when list_recordings gets no limit.
	DefaultRecordingLimit = 20
)

// Source is the read side of the history store.
type Source interface {
	ListRecordings(ctx context.Context, limit int) ([]db.Recording, error)
	ListCorrections(ctx context.Context) ([]db.Correction, error)
	ExportPromptContext(ctx context.Context) (string, error)
}

type handlers struct {
	src Source
	log *slog.Logger
}

// New returns an MCP server backed by src.
func New(src Source, version string, log *slog.Logger) *server.MCPServer {
	h := &handlers{src: src, log: log}

	s := server.NewMCPServer(Name, version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.AddTool(mcp.NewTool("get_prompt_context",
		mcp.WithDescription("Returns the learned correction patterns formatted for inclusion in an LLM system prompt. Empty when nothing has been learned yet."),
	), h.promptContext)

	s.AddTool(mcp.NewTool("list_corrections",
		mcp.WithDescription("Lists learned correction patterns, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of patterns to return; all when omitted.")),
	), h.listCorrections)

	s.AddTool(mcp.NewTool("list_recordings",
		mcp.WithDescription("Lists recent dictation recordings, newest first."),
		mcp.WithNumber("limit", mcp.Description(fmt.Sprintf("Maximum number of recordings to return (default %d).", DefaultRecordingLimit))),
	), h.listRecordings)

	s.AddResource(mcp.NewResource(PromptContextURI, "Prompt context",
		mcp.WithResourceDescription("Correction patterns formatted for an LLM system prompt."),
		mcp.WithMIMEType("text/plain"),
	), h.readPromptContext)

	return s
}

// Serve runs s on r and w until ctx is cancelled or the input closes.
func Serve(ctx context.Context, s *server.MCPServer, r io.Reader, w io.Writer, log *slog.Logger) error {
	stdio := server.NewStdioServer(s)
	stdio.SetErrorLogger(slog.NewLogLogger(log.Handler(), slog.LevelError))
	return stdio.Listen(ctx, r, w)
}

func (h *handlers) promptContext(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := h.src.ExportPromptContext(ctx)
	if err != nil {
		h.log.Error("mcp get_prompt_context", "err", err)
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (h *handlers) listCorrections(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	corrections, err := h.src.ListCorrections(ctx)
	if err != nil {
		h.log.Error("mcp list_corrections", "err", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	if limit := req.GetInt("limit", 0); limit > 0 && limit < len(corrections) {
		corrections = corrections[:limit]
	}

	var b strings.Builder
	for _, c := range corrections {
		fmt.Fprintf(&b, "\"%s\" -> \"%s\"\n", oneLine(c.WhisperPattern), oneLine(c.IntendedText))
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (h *handlers) listRecordings(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", DefaultRecordingLimit)
	if limit <= 0 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}

	recordings, err := h.src.ListRecordings(ctx, limit)
	if err != nil {
		h.log.Error("mcp list_recordings", "err", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	var b strings.Builder
	for _, r := range recordings {
		b.WriteString(recordingLine(r))
		b.WriteByte('\n')
	}
	return mcp.NewToolResultText(b.String()), nil
}

// recordingLine renders a recording as
// "<id> <timestamp> <status> <text>", where status is ok, corrected or
// error and text is the best available output on one line.
func recordingLine(r db.Recording) string {
	status, text := "ok", r.LLMOutput
	switch {
	case r.UserCorrection != "":
		status, text = "corrected", r.UserCorrection
	case !r.Success:
		status, text = "error", r.ErrorMessage
	}
	if text == "" {
		text = r.WhisperOutput
	}
	return fmt.Sprintf("%d %s %s %s", r.ID, r.Timestamp, status, oneLine(text))
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func (h *handlers) readPromptContext(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	text, err := h.src.ExportPromptContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("export prompt context: %w", err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "text/plain",
			Text:     text,
		},
	}, nil
}
