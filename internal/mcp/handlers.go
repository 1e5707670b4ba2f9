// ABOUTME: MCP tool handler implementations for the vidchat server
// ABOUTME: Tool failures are returned as error results so the agent sees the message
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/harper/vidchat/internal/config"
	"github.com/harper/vidchat/internal/core"
	"github.com/harper/vidchat/internal/logger"
	"github.com/harper/vidchat/internal/models"
	"github.com/harper/vidchat/internal/storage"
	"github.com/harper/vidchat/internal/youtube"
)

// Deps are the services the tools use. Embedder, Answerer and Index may be
// nil, in which case the tools needing them report an error.
type Deps struct {
	Fetcher    core.TranscriptFetcher
	Embedder   core.Embedder
	Answerer   core.Answerer
	Index      storage.VectorIndex
	ChunkWords int
	TopK       int
	Ingest     core.IngesterConfig
	Logger     *slog.Logger
}

// Handlers contains the handler functions for all MCP tools
type Handlers struct {
	deps    Deps
	chunker *core.ChunkEngine
	qa      *core.QA
	logger  *slog.Logger
}

// NewHandlers creates handlers over deps
func NewHandlers(deps Deps) *Handlers {
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Ingest.Logger == nil {
		deps.Ingest.Logger = deps.Logger
	}
	return &Handlers{
		deps:    deps,
		chunker: core.NewChunkEngine(),
		qa:      core.NewQA(deps.Embedder, deps.Answerer, deps.Index, deps.TopK),
		logger:  deps.Logger,
	}
}

type transcriptResponse struct {
	VideoID   string           `json:"video_id"`
	Language  string           `json:"language"`
	Generated bool             `json:"generated"`
	WordCount int              `json:"word_count"`
	Text      string           `json:"text"`
	Segments  []models.Segment `json:"segments,omitempty"`
}

// GetTranscript handles the get_transcript tool
func (h *Handlers) GetTranscript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url argument is required and must be a string"), nil
	}
	withTimestamps := request.GetBool("timestamps", false)

	videoID := youtube.ExtractVideoID(url)
	transcript, err := h.deps.Fetcher.FetchTranscript(ctx, videoID)
	if err != nil {
		return h.fetchFailure(videoID, err), nil
	}

	response := transcriptResponse{
		VideoID:   videoID,
		Language:  transcript.Language,
		Generated: transcript.Generated,
		WordCount: transcript.WordCount(),
		Text:      transcript.Text(),
	}
	if withTimestamps {
		response.Segments = transcript.Segments
	}
	return jsonResult(response)
}

// IngestVideo handles the ingest_video tool
func (h *Handlers) IngestVideo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url argument is required and must be a string"), nil
	}
	if h.deps.Embedder == nil || h.deps.Index == nil {
		return mcp.NewToolResultError("ingestion needs an embedding client and a vector index"), nil
	}

	videoID := youtube.ExtractVideoID(url)
	transcript, err := h.deps.Fetcher.FetchTranscript(ctx, videoID)
	if err != nil {
		return h.fetchFailure(videoID, err), nil
	}

	chunks := h.chunker.ChunkTranscript(videoID, transcript.Text(), h.deps.ChunkWords)
	n, err := core.NewIngester(h.deps.Embedder, h.deps.Index, h.deps.Ingest).Ingest(ctx, chunks)
	if err != nil {
		h.logger.Error("ingest failed", "video_id", videoID, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("ingestion failed: %v", err)), nil
	}

	h.logger.Info("ingested video", "video_id", videoID, "chunks", n)
	return jsonResult(map[string]interface{}{
		"video_id": videoID,
		"chunks":   n,
		"index":    h.deps.Index.Name(),
	})
}

// AskVideo handles the ask_video tool
func (h *Handlers) AskVideo(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	url, err := request.RequireString("url")
	if err != nil {
		return mcp.NewToolResultError("url argument is required and must be a string"), nil
	}
	question, err := request.RequireString("question")
	if err != nil || question == "" {
		return mcp.NewToolResultError("question argument is required and must be a non-empty string"), nil
	}
	mode := request.GetString("mode", config.ModeRetrieval)
	if h.deps.Answerer == nil {
		return mcp.NewToolResultError(core.ErrNoAnswerer.Error()), nil
	}

	videoID := youtube.ExtractVideoID(url)

	var answer string
	switch mode {
	case config.ModeBasic:
		transcript, err := h.deps.Fetcher.FetchTranscript(ctx, videoID)
		if err != nil {
			return h.fetchFailure(videoID, err), nil
		}
		answer, err = h.qa.AskBasic(ctx, transcript.Text(), question)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("answering failed: %v", err)), nil
		}
	case config.ModeRetrieval:
		answer, err = h.qa.AskRetrieval(ctx, videoID, question)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("answering failed: %v", err)), nil
		}
	default:
		return mcp.NewToolResultError(fmt.Sprintf("mode must be %q or %q, got %q", config.ModeRetrieval, config.ModeBasic, mode)), nil
	}

	return jsonResult(map[string]interface{}{
		"video_id": videoID,
		"mode":     mode,
		"answer":   answer,
	})
}

func (h *Handlers) fetchFailure(videoID string, err error) *mcp.CallToolResult {
	h.logger.Warn("transcript unavailable", "video_id", videoID, "error", err)
	if youtube.IsNoTranscript(err) {
		return mcp.NewToolResultError(fmt.Sprintf("no transcript available for %s: %v", videoID, err))
	}
	return mcp.NewToolResultError(fmt.Sprintf("failed to fetch transcript: %v", err))
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	responseJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal response: %v", err)), nil
	}
	return mcp.NewToolResultText(string(responseJSON)), nil
}
