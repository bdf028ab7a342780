package mcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/a3tai/mcp-pdf-sequencer/internal/config"
	"github.com/a3tai/mcp-pdf-sequencer/internal/descriptions"
	"github.com/a3tai/mcp-pdf-sequencer/internal/metrics"
	"github.com/a3tai/mcp-pdf-sequencer/internal/pipeline"
	"github.com/a3tai/mcp-pdf-sequencer/internal/workspace"
)

// Tool names
const (
	ToolSplitPages        = "pdf_split_pages"
	ToolResolveSequences  = "pdf_resolve_sequences"
	ToolRenameBySequence  = "pdf_rename_by_sequence"
	ToolAnnotateSequences = "pdf_annotate_sequences"
	ToolKeywordSearch     = "pdf_keyword_search"
	ToolRuleAnalysis      = "pdf_rule_analysis"
	ToolServerInfo        = "pdf_server_info"
)

// stdio transport streams
var (
	stdin  io.Reader = os.Stdin
	stdout io.Writer = os.Stdout
)

// errToolFailed marks a call that returned an error result to the client.
var errToolFailed = errors.New("tool returned an error result")

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *pipeline.Service
	loader    *workspace.Loader
	metrics   *metrics.Metrics
	log       zerolog.Logger
	mcpServer *server.MCPServer
	tools     []server.ServerTool
}

// NewServer creates a new MCP server instance. Inputs are confined to the
// configured PDF directory and outputs go to the output directory.
func NewServer(cfg *config.Config, service *pipeline.Service, m *metrics.Metrics, logger zerolog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if service == nil {
		return nil, fmt.Errorf("pipeline service cannot be nil")
	}

	sandbox, err := workspace.NewSandbox(cfg.PDFDirectory)
	if err != nil {
		return nil, err
	}
	logger = logger.With().Str("component", "mcp").Logger()

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:    cfg,
		service:   service,
		loader:    workspace.NewLoader(sandbox, cfg.MaxFileSize, logger),
		metrics:   m,
		log:       logger,
		mcpServer: mcpServer,
	}

	s.registerTools()
	return s, nil
}

// MCPServer returns the underlying protocol server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// Tools returns the names of the registered tools in registration order.
func (s *Server) Tools() []string {
	names := make([]string, len(s.tools))
	for i, t := range s.tools {
		names[i] = t.Tool.Name
	}
	return names
}

var pathsOption = mcp.WithArray("paths",
	mcp.Required(),
	mcp.Description("PDF files or directories, relative to the input directory. Directories are searched recursively."),
	mcp.Items(map[string]any{"type": "string"}),
)

func tableOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("table",
			mcp.Description("Lookup table file relative to the input directory: one '<sequence><TAB><facility id>' line per facility"),
		),
		mcp.WithString("table_text",
			mcp.Description("Lookup table content, used instead of 'table'"),
		),
	}
}

func namingOption() mcp.ToolOption {
	return mcp.WithString("naming",
		mcp.Description("Output file naming: 'sequence' for SEQ<sequence>.pdf, 'merged-pages' for <sequence>sequenceMERGpage<pages>.pdf"),
		mcp.Enum(
			"sequence",
			"merged-pages",
		),
		mcp.DefaultString("sequence"),
	)
}

func reportOptions() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("keywords",
			mcp.Required(),
			mcp.Description("Comma-separated keywords, matched case-insensitively"),
		),
		mcp.WithString("output",
			mcp.Description("Spreadsheet file name (default pdf_keyword_analyzer.xlsx)"),
		),
	}
}

func newTool(name string, opts ...mcp.ToolOption) mcp.Tool {
	return mcp.NewTool(name, append([]mcp.ToolOption{mcp.WithDescription(descriptions.GetToolDescription(name))}, opts...)...)
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.addTool(newTool(ToolSplitPages, pathsOption), s.handleSplitPages)

	s.addTool(newTool(ToolResolveSequences, append([]mcp.ToolOption{pathsOption}, tableOptions()...)...), s.handleResolveSequences)

	s.addTool(newTool(ToolRenameBySequence, append([]mcp.ToolOption{pathsOption, namingOption()}, tableOptions()...)...), s.handleRenameBySequence)

	annotate := append([]mcp.ToolOption{
		pathsOption,
		namingOption(),
		mcp.WithString("work_order",
			mcp.Required(),
			mcp.Description("Work order printed in the box on every page"),
		),
	}, tableOptions()...)
	s.addTool(newTool(ToolAnnotateSequences, annotate...), s.handleAnnotateSequences)

	s.addTool(newTool(ToolKeywordSearch, append([]mcp.ToolOption{pathsOption}, reportOptions()...)...), s.handleKeywordSearch)

	s.addTool(newTool(ToolRuleAnalysis, append([]mcp.ToolOption{pathsOption}, reportOptions()...)...), s.handleRuleAnalysis)

	s.addTool(newTool(ToolServerInfo), s.handleServerInfo)

	s.mcpServer.AddTools(s.tools...)
}

// addTool wraps a handler with logging and metrics.
func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	name := tool.Name
	wrapped := func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		start := time.Now()
		result, err := handler(ctx, request)

		outcome := err
		if outcome == nil && result != nil && result.IsError {
			outcome = errToolFailed
		}
		s.metrics.ToolCall(name, outcome)

		ev := s.log.Info()
		if outcome != nil {
			ev = s.log.Warn()
		}
		ev.Str("tool", name).Dur("duration", time.Since(start)).Bool("failed", outcome != nil).Msg("tool call")
		return result, err
	}
	s.tools = append(s.tools, server.ServerTool{Tool: tool, Handler: wrapped})
}

// Run starts the MCP server in the configured mode and blocks until ctx is
// done or the transport fails.
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode serves on stdin and stdout. Logs never go to stdout.
func (s *Server) runStdioMode(ctx context.Context) error {
	s.log.Debug().Str("dir", s.config.PDFDirectory).Str("outdir", s.config.OutputDirectory).Msg("starting stdio transport")

	stdio := server.NewStdioServer(s.mcpServer)
	stdio.SetErrorLogger(log.New(s.log, "", 0))

	if err := stdio.Listen(ctx, stdin, stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves the SSE transport on the configured address.
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("starting SSE transport")
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve SSE: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down SSE server: %w", err)
		}
		return nil
	}
}
