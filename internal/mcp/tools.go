// ABOUTME: MCP tool definitions and registration for the vidchat server
// ABOUTME: Exposes transcript fetching, ingestion and question answering as MCP tools
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// RegisterTools registers all MCP tools with the server
func RegisterTools(server *mcpserver.MCPServer, deps Deps) *Handlers {
	handlers := NewHandlers(deps)

	// 1. get_transcript - fetch a video's captions
	server.AddTool(mcp.Tool{
		Name:        "get_transcript",
		Description: "Fetch the transcript of a YouTube video. Returns the full text and, optionally, timed segments.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "YouTube watch URL (https://www.youtube.com/watch?v=...)",
				},
				"timestamps": map[string]interface{}{
					"type":        "boolean",
					"description": "Include timed segments in the response (default: false)",
					"default":     false,
				},
			},
			Required: []string{"url"},
		},
	}, handlers.GetTranscript)

	// 2. ingest_video - chunk, embed and upsert a transcript
	server.AddTool(mcp.Tool{
		Name:        "ingest_video",
		Description: "Fetch a YouTube video's transcript, split it into word chunks, embed them and store them in the vector index.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "YouTube watch URL to ingest",
				},
			},
			Required: []string{"url"},
		},
	}, handlers.IngestVideo)

	// 3. ask_video - answer a question about a video
	server.AddTool(mcp.Tool{
		Name:        "ask_video",
		Description: "Answer a question about a YouTube video. Retrieval mode uses chunks stored by ingest_video; basic mode sends the whole transcript.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "YouTube watch URL the question is about",
				},
				"question": map[string]interface{}{
					"type":        "string",
					"description": "Question to answer",
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"enum":        []string{"retrieval", "basic"},
					"description": "Answering mode (default: retrieval)",
					"default":     "retrieval",
				},
			},
			Required: []string{"url", "question"},
		},
	}, handlers.AskVideo)

	return handlers
}
