// ABOUTME: QA answers a single question about a video in basic or retrieval mode
// ABOUTME: Retrieval embeds the question, queries the index scoped to the video, then completes
package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/harper/vidchat/internal/storage"
)

// DefaultTopK is how many chunks retrieval mode sends as context
const DefaultTopK = 3

// ErrNoAnswerer is returned when a question is asked without a completion client
var ErrNoAnswerer = errors.New("answering needs an OpenAI client")

// QA performs one question/answer round trip
type QA struct {
	embedder Embedder
	answerer Answerer
	index    storage.VectorIndex
	topK     int
}

// NewQA creates a QA. embedder and index may be nil when only AskBasic is used.
func NewQA(embedder Embedder, answerer Answerer, index storage.VectorIndex, topK int) *QA {
	if topK <= 0 {
		topK = DefaultTopK
	}
	return &QA{embedder: embedder, answerer: answerer, index: index, topK: topK}
}

// AskBasic answers from the full transcript text
func (q *QA) AskBasic(ctx context.Context, transcript, question string) (string, error) {
	if q.answerer == nil {
		return "", ErrNoAnswerer
	}
	return q.answerer.Answer(ctx, BasicPrompt(transcript, question))
}

// Retrieve returns the chunks most similar to question. An empty videoID
// searches the whole index.
func (q *QA) Retrieve(ctx context.Context, videoID, question string) ([]storage.Match, error) {
	if q.embedder == nil || q.index == nil {
		return nil, fmt.Errorf("retrieval needs an embedder and a vector index")
	}

	vector, err := q.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	query := storage.Query{
		Vector:          vector,
		TopK:            q.topK,
		IncludeMetadata: true,
	}
	if videoID != "" {
		query.Filter = map[string]string{storage.MetaVideoID: videoID}
	}

	matches, err := q.index.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying index %s: %w", q.index.Name(), err)
	}
	return matches, nil
}

// AskRetrieval answers from the top-K chunks of videoID
func (q *QA) AskRetrieval(ctx context.Context, videoID, question string) (string, error) {
	if q.answerer == nil {
		return "", ErrNoAnswerer
	}
	matches, err := q.Retrieve(ctx, videoID, question)
	if err != nil {
		return "", err
	}
	return q.answerer.Answer(ctx, RetrievalPrompt(matches, question))
}
