// ABOUTME: MCP command starts the Model Context Protocol server on stdio
// ABOUTME: Lets LLM agents fetch transcripts, ingest videos and ask questions
package commands

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"

	"github.com/harper/vidchat/internal/core"
	"github.com/harper/vidchat/internal/mcp"
	"github.com/harper/vidchat/internal/storage"
)

// NewMCPCmd creates the MCP command
func NewMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for LLM agents",
		Long: `Start MCP server for LLM agents

Runs vidchat as an MCP (Model Context Protocol) server, enabling LLM agents
like Claude to read YouTube transcripts and ask questions about videos via stdio.

Without OPENAI_API_KEY only get_transcript works. Without a reachable vector
backend ingest_video and retrieval-mode ask_video report errors.`,
		RunE: runMCP,
		Example: `  # Start MCP server (typically called by Claude Desktop)
  vidchat mcp

  # Configure in claude_desktop_config.json:
  # {
  #   "mcpServers": {
  #     "vidchat": {
  #       "command": "vidchat",
  #       "args": ["mcp"]
  #     }
  #   }
  # }`,
	}

	return cmd
}

func runMCP(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)
	ctx := cmd.Context()

	deps := mcp.Deps{
		Fetcher:    newFetcher(cfg, log),
		ChunkWords: cfg.ChunkWords,
		TopK:       cfg.TopK,
		Ingest:     ingesterConfig(cfg, log),
		Logger:     log,
	}

	if oai, err := newOpenAI(cfg, log); err != nil {
		log.Warn("OpenAI client unavailable; only get_transcript will work", "error", err)
	} else {
		deps.Embedder = core.Embedder(oai)
		deps.Answerer = core.Answerer(oai)
	}

	var idx storage.VectorIndex
	if idx, err = newIndex(cfg, log); err != nil {
		log.Warn("vector index unavailable; ingestion and retrieval disabled", "backend", cfg.VectorBackend, "error", err)
	} else {
		deps.Index = idx
		defer closeIndex(idx, log)
	}

	server := mcpserver.NewMCPServer("vidchat", versionInfo.Version, mcpserver.WithToolCapabilities(false))
	mcp.RegisterTools(server, deps)

	log.Info("MCP server starting on stdio", "backend", cfg.VectorBackend, "index", cfg.IndexName)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- mcpserver.ServeStdio(server)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
		return nil
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}
}
