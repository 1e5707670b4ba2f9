// ABOUTME: Video metadata shown before a chat session starts
// ABOUTME: Populated best-effort from the watch page player response
package models

// VideoMetadata holds descriptive details for a video
type VideoMetadata struct {
	VideoID       string `json:"video_id"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	Author        string `json:"author"`
	ViewCount     int64  `json:"view_count"`
	LengthSeconds int    `json:"length_seconds"`
}
