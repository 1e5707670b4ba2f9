// ABOUTME: Prompt is the system and user message pair sent to the completion model
// ABOUTME: Assembled by core from transcript or retrieved context plus the question
package models

// Prompt is a two-message chat prompt
type Prompt struct {
	System string `json:"system"`
	User   string `json:"user"`
}
