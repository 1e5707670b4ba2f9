// ABOUTME: ChunkEngine splits transcript text into fixed-size word chunks for embedding
// ABOUTME: Greedy, deterministic grouping of whitespace-separated words
package core

import (
	"strings"

	"github.com/harper/vidchat/internal/models"
)

// ChunkEngine handles word-window text chunking
type ChunkEngine struct{}

// NewChunkEngine creates a new ChunkEngine instance
func NewChunkEngine() *ChunkEngine {
	return &ChunkEngine{}
}

// ChunkWords splits text on whitespace into groups of maxWords words, each
// rejoined with single spaces. The last group may be shorter. Empty or
// whitespace-only text yields nil. maxWords <= 0 means models.DefaultChunkWords.
func (ce *ChunkEngine) ChunkWords(text string, maxWords int) []string {
	if maxWords <= 0 {
		maxWords = models.DefaultChunkWords
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, (len(words)+maxWords-1)/maxWords)
	for start := 0; start < len(words); start += maxWords {
		end := min(start+maxWords, len(words))
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

// ChunkTranscript chunks text and assigns each piece the id "{videoID}-{i}"
func (ce *ChunkEngine) ChunkTranscript(videoID, text string, maxWords int) []models.Chunk {
	pieces := ce.ChunkWords(text, maxWords)
	if len(pieces) == 0 {
		return nil
	}

	chunks := make([]models.Chunk, len(pieces))
	for i, piece := range pieces {
		chunks[i] = models.Chunk{
			ID:      models.ChunkID(videoID, i),
			VideoID: videoID,
			Index:   i,
			Text:    piece,
		}
	}
	return chunks
}
