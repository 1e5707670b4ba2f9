// ABOUTME: Transcript models for timed caption segments of a video
// ABOUTME: Transcript text is the space-joined concatenation of segment texts
package models

import "strings"

// Segment is one timed line of a caption track
type Segment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// Transcript is the ordered caption track fetched for a video
type Transcript struct {
	VideoID   string    `json:"video_id"`
	Language  string    `json:"language"`
	Generated bool      `json:"generated"`
	Segments  []Segment `json:"segments"`
}

// Text joins all segment texts, in order, with single spaces
func (t *Transcript) Text() string {
	if t == nil || len(t.Segments) == 0 {
		return ""
	}
	parts := make([]string, len(t.Segments))
	for i, seg := range t.Segments {
		parts[i] = seg.Text
	}
	return strings.Join(parts, " ")
}

// WordCount returns the number of whitespace-separated words in Text
func (t *Transcript) WordCount() int {
	return len(strings.Fields(t.Text()))
}
