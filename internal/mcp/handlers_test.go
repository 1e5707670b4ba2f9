// ABOUTME: Tests for the MCP tool handlers
// ABOUTME: Calls handlers directly with in-memory fakes and an in-memory SQLite index
package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harper/vidchat/internal/core"
	"github.com/harper/vidchat/internal/models"
	"github.com/harper/vidchat/internal/storage"
	"github.com/harper/vidchat/internal/storage/sqlite"
	"github.com/harper/vidchat/internal/youtube"
)

type stubFetcher struct {
	transcripts map[string]*models.Transcript
}

func (f *stubFetcher) FetchTranscript(_ context.Context, videoID string) (*models.Transcript, error) {
	if t, ok := f.transcripts[videoID]; ok {
		return t, nil
	}
	return nil, youtube.ErrTranscriptsDisabled
}

func (f *stubFetcher) FetchMetadata(_ context.Context, videoID string) (*models.VideoMetadata, error) {
	return &models.VideoMetadata{VideoID: videoID}, nil
}

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	return []float32{1, float32(len(text) % 2)}, nil
}

func (e stubEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i], _ = e.Embed(ctx, text)
	}
	return out, nil
}

type stubAnswerer struct {
	prompts []models.Prompt
}

func (a *stubAnswerer) Answer(_ context.Context, prompt models.Prompt) (string, error) {
	a.prompts = append(a.prompts, prompt)
	return "stub answer", nil
}

func newTestHandlers(t *testing.T) (*Handlers, *stubAnswerer) {
	t.Helper()
	db, err := sqlite.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	answerer := &stubAnswerer{}
	h := NewHandlers(Deps{
		Fetcher: &stubFetcher{transcripts: map[string]*models.Transcript{
			"abc123": {
				VideoID:  "abc123",
				Language: "en",
				Segments: []models.Segment{
					{Text: "hello and welcome", Start: 0, Duration: 2},
					{Text: "to the show", Start: 2, Duration: 1.5},
				},
			},
		}},
		Embedder:   stubEmbedder{},
		Answerer:   answerer,
		Index:      sqlite.NewIndex(db, "youtube-transcripts"),
		ChunkWords: 2,
		TopK:       3,
		Ingest: core.IngesterConfig{
			Spec: storage.Spec{Name: "youtube-transcripts", Dimension: 2, Metric: storage.MetricCosine},
		},
	})
	return h, answerer
}

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content, got %T", result.Content[0])
	return text.Text
}

func TestGetTranscript(t *testing.T) {
	h, _ := newTestHandlers(t)

	result, err := h.GetTranscript(context.Background(), callRequest("get_transcript", map[string]any{
		"url":        "https://www.youtube.com/watch?v=abc123",
		"timestamps": true,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var resp transcriptResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &resp))
	assert.Equal(t, "abc123", resp.VideoID)
	assert.Equal(t, "hello and welcome to the show", resp.Text)
	assert.Equal(t, 6, resp.WordCount)
	assert.Len(t, resp.Segments, 2)
}

func TestGetTranscript_WithoutTimestamps(t *testing.T) {
	h, _ := newTestHandlers(t)

	result, err := h.GetTranscript(context.Background(), callRequest("get_transcript", map[string]any{
		"url": "https://www.youtube.com/watch?v=abc123",
	}))
	require.NoError(t, err)
	assert.NotContains(t, resultText(t, result), "segments")
}

func TestGetTranscript_Errors(t *testing.T) {
	h, _ := newTestHandlers(t)

	result, err := h.GetTranscript(context.Background(), callRequest("get_transcript", map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)

	result, err = h.GetTranscript(context.Background(), callRequest("get_transcript", map[string]any{
		"url": "https://www.youtube.com/watch?v=missing",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, resultText(t, result), "no transcript available for missing")
}

func TestIngestThenAsk(t *testing.T) {
	h, answerer := newTestHandlers(t)
	ctx := context.Background()

	result, err := h.IngestVideo(ctx, callRequest("ingest_video", map[string]any{
		"url": "https://www.youtube.com/watch?v=abc123",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	var ingest struct {
		VideoID string `json:"video_id"`
		Chunks  int    `json:"chunks"`
		Index   string `json:"index"`
	}
	require.NoError(t, json.Unmarshal([]byte(resultText(t, result)), &ingest))
	assert.Equal(t, "abc123", ingest.VideoID)
	assert.Equal(t, 3, ingest.Chunks)
	assert.Equal(t, "youtube-transcripts", ingest.Index)

	result, err = h.AskVideo(ctx, callRequest("ask_video", map[string]any{
		"url":      "https://www.youtube.com/watch?v=abc123",
		"question": "who is welcomed?",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))
	assert.Contains(t, resultText(t, result), `"answer":"stub answer"`)
	assert.Contains(t, resultText(t, result), `"mode":"retrieval"`)

	require.Len(t, answerer.prompts, 1)
	assert.True(t, strings.HasPrefix(answerer.prompts[0].User, "Context:\n"))
	assert.Contains(t, answerer.prompts[0].User, "Question: who is welcomed?")
}

func TestAskVideo_Basic(t *testing.T) {
	h, answerer := newTestHandlers(t)

	result, err := h.AskVideo(context.Background(), callRequest("ask_video", map[string]any{
		"url":      "https://www.youtube.com/watch?v=abc123",
		"question": "what is this?",
		"mode":     "basic",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, resultText(t, result))

	require.Len(t, answerer.prompts, 1)
	assert.Equal(t, "Transcript:\nhello and welcome to the show\n\nQuestion: what is this?", answerer.prompts[0].User)
}

func TestAskVideo_Errors(t *testing.T) {
	h, answerer := newTestHandlers(t)

	tests := []struct {
		name string
		args map[string]any
	}{
		{"missing question", map[string]any{"url": "v=abc123"}},
		{"empty question", map[string]any{"url": "v=abc123", "question": ""}},
		{"unknown mode", map[string]any{"url": "v=abc123", "question": "q", "mode": "rag"}},
		{"retrieval before ingest", map[string]any{"url": "v=abc123", "question": "q"}},
		{"basic without transcript", map[string]any{"url": "v=missing", "question": "q", "mode": "basic"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.AskVideo(context.Background(), callRequest("ask_video", tt.args))
			require.NoError(t, err)
			assert.True(t, result.IsError)
		})
	}
	assert.Empty(t, answerer.prompts)
}

func TestIngestVideo_WithoutIndex(t *testing.T) {
	h := NewHandlers(Deps{Fetcher: &stubFetcher{}})

	result, err := h.IngestVideo(context.Background(), callRequest("ingest_video", map[string]any{"url": "v=abc123"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestAskVideo_WithoutOpenAI(t *testing.T) {
	h := NewHandlers(Deps{Fetcher: &stubFetcher{transcripts: map[string]*models.Transcript{
		"abc123": {VideoID: "abc123", Segments: []models.Segment{{Text: "hello"}}},
	}}})

	for _, mode := range []string{"basic", "retrieval"} {
		t.Run(mode, func(t *testing.T) {
			result, err := h.AskVideo(context.Background(), callRequest("ask_video", map[string]any{
				"url":      "v=abc123",
				"question": "what?",
				"mode":     mode,
			}))
			require.NoError(t, err)
			assert.True(t, result.IsError)
			assert.Contains(t, resultText(t, result), "OpenAI client")
		})
	}
}

func TestRegisterTools(t *testing.T) {
	server := mcpserver.NewMCPServer("vidchat", "test", mcpserver.WithToolCapabilities(false))
	h := RegisterTools(server, Deps{Fetcher: &stubFetcher{}})
	require.NotNil(t, h)

	response := server.HandleMessage(context.Background(), []byte(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	raw, err := json.Marshal(response)
	require.NoError(t, err)

	for _, name := range []string{"get_transcript", "ingest_video", "ask_video"} {
		assert.Contains(t, string(raw), `"name":"`+name+`"`)
	}
}
