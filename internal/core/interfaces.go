// ABOUTME: Narrow interfaces core depends on for transcripts, embeddings and completions
// ABOUTME: Satisfied by youtube.Client and llm.OpenAIClient, and by fakes in tests
package core

import (
	"context"

	"github.com/harper/vidchat/internal/models"
)

// TranscriptFetcher retrieves captions and descriptive metadata for a video
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, videoID string) (*models.Transcript, error)
	FetchMetadata(ctx context.Context, videoID string) (*models.VideoMetadata, error)
}

// Embedder turns text into vectors
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Answerer completes a prompt
type Answerer interface {
	Answer(ctx context.Context, prompt models.Prompt) (string, error)
}
