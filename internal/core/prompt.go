// ABOUTME: Prompt assembly for the basic and retrieval question-answering modes
// ABOUTME: Basic mode sends the whole transcript, retrieval mode sends ranked chunk context
package core

import (
	"strings"

	"github.com/harper/vidchat/internal/models"
	"github.com/harper/vidchat/internal/storage"
)

const (
	basicSystemPrompt     = "You are an assistant that answers questions about a YouTube video transcript."
	retrievalSystemPrompt = "You are an assistant that answers questions based on YouTube video transcript chunks."
)

// BasicPrompt builds a prompt that carries the full transcript text
func BasicPrompt(transcript, question string) models.Prompt {
	return models.Prompt{
		System: basicSystemPrompt,
		User:   "Transcript:\n" + transcript + "\n\nQuestion: " + question,
	}
}

// RetrievalPrompt builds a prompt from the context assembled out of matches
func RetrievalPrompt(matches []storage.Match, question string) models.Prompt {
	return models.Prompt{
		System: retrievalSystemPrompt,
		User:   "Context:\n" + JoinContext(matches) + "\n\nQuestion: " + question,
	}
}

// JoinContext space-joins the chunk texts of matches in rank order
func JoinContext(matches []storage.Match) string {
	texts := make([]string, 0, len(matches))
	for _, m := range matches {
		texts = append(texts, m.Text())
	}
	return strings.Join(texts, " ")
}
