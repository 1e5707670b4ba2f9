// ABOUTME: Chunk represents a fixed-size word slice of a video transcript
// ABOUTME: Chunk identity is "{video_id}-{index}" for vector index storage
package models

import "fmt"

// DefaultChunkWords is the default maximum number of words per chunk
const DefaultChunkWords = 200

// Chunk is one contiguous word-count slice of a transcript
type Chunk struct {
	ID      string `json:"id"`
	VideoID string `json:"video_id"`
	Index   int    `json:"index"`
	Text    string `json:"text"`
}

// ChunkID builds the storage identity for the chunk at index of videoID
func ChunkID(videoID string, index int) string {
	return fmt.Sprintf("%s-%d", videoID, index)
}
