// ABOUTME: Test doubles for the transcript fetcher, embedder and answerer
// ABOUTME: Record calls so tests can assert on prompts and request counts
package core

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harper/vidchat/internal/models"
	"github.com/harper/vidchat/internal/storage"
	"github.com/harper/vidchat/internal/storage/sqlite"
)

const testDimension = 3

type fakeFetcher struct {
	transcript    *models.Transcript
	transcriptErr error
	metadata      *models.VideoMetadata
	metadataErr   error
	videoIDs      []string
}

func (f *fakeFetcher) FetchTranscript(_ context.Context, videoID string) (*models.Transcript, error) {
	f.videoIDs = append(f.videoIDs, videoID)
	if f.transcriptErr != nil {
		return nil, f.transcriptErr
	}
	return f.transcript, nil
}

func (f *fakeFetcher) FetchMetadata(_ context.Context, videoID string) (*models.VideoMetadata, error) {
	if f.metadataErr != nil {
		return nil, f.metadataErr
	}
	if f.metadata == nil {
		return nil, errors.New("no metadata")
	}
	return f.metadata, nil
}

// fakeEmbedder maps text to one of three axes by keyword so similarity is predictable
type fakeEmbedder struct {
	mu         sync.Mutex
	err        error
	embedCalls int
	batchCalls int
	batchSizes []int
}

func axisVector(text string) []float32 {
	switch {
	case strings.Contains(text, "alpha"):
		return []float32{1, 0, 0}
	case strings.Contains(text, "beta"):
		return []float32{0, 1, 0}
	default:
		return []float32{0, 0, 1}
	}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.embedCalls++
	if f.err != nil {
		return nil, f.err
	}
	return axisVector(text), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batchCalls++
	f.batchSizes = append(f.batchSizes, len(texts))
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = axisVector(text)
	}
	return out, nil
}

func (f *fakeEmbedder) calls() (embed, batch int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embedCalls, f.batchCalls
}

type fakeAnswerer struct {
	answer  string
	err     error
	prompts []models.Prompt
}

func (f *fakeAnswerer) Answer(_ context.Context, prompt models.Prompt) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func newMemoryIndex(t *testing.T) *sqlite.Index {
	t.Helper()
	db, err := sqlite.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlite.NewIndex(db, "youtube-transcripts")
}

func testSpec() storage.Spec {
	return storage.Spec{Name: "youtube-transcripts", Dimension: testDimension, Metric: storage.MetricCosine}
}

// words returns n space-separated words that all start with prefix
func words(prefix string, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = prefix + strings.Repeat("x", i%3)
	}
	return strings.Join(parts, " ")
}

func transcriptOf(videoID, text string) *models.Transcript {
	return &models.Transcript{
		VideoID:  videoID,
		Language: "en",
		Segments: []models.Segment{{Text: text, Start: 0, Duration: 1}},
	}
}
