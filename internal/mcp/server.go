// File path: internal/mcp/server.go
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/issuepilot-ai/issuepilot/internal/retriever"
	"github.com/issuepilot-ai/issuepilot/internal/synthesis"
)

// Server exposes the retrieval pipeline over the Model Context Protocol so
// agent frontends can call it as tools.
type Server struct {
	retriever *retriever.Retriever
	synth     *synthesis.Synthesizer
}

// NewServer creates the MCP wrapper around the retrieval components.
func NewServer(retr *retriever.Retriever, synth *synthesis.Synthesizer) *Server {
	return &Server{retriever: retr, synth: synth}
}

// MCPServer returns a configured mcp-go server with all tools registered.
func (s *Server) MCPServer() *server.MCPServer {
	srv := server.NewMCPServer("issuepilot", "1.0.0", server.WithToolCapabilities(true))
	srv.AddTool(s.semanticSearchTool())
	srv.AddTool(s.issueMemoryTool())
	srv.AddTool(s.askTool())
	return srv
}

// ServeStdio starts the stdio transport, blocking until ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context) error {
	srv := s.MCPServer()
	stdioServer := server.NewStdioServer(srv)
	return stdioServer.Listen(ctx, os.Stdin, os.Stdout)
}

// semantic_search
func (s *Server) semanticSearchTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("semantic_search",
		mcp.WithDescription("Search the Jira issue index. Combines vector similarity with exact issue-key lookup; returns a JSON array of chunks with id, issue_key, chunk_type, score, and document."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Free-text query; issue keys like HRLIF-123 trigger exact lookup")),
		mcp.WithNumber("top_k", mcp.Description("Maximum semantic results (default 10)")),
	)
	return tool, s.handleSemanticSearch
}

func (s *Server) handleSemanticSearch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topK := request.GetInt("top_k", 0)

	results, err := s.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	type chunkOut struct {
		ID        string  `json:"id"`
		IssueKey  string  `json:"issue_key"`
		ChunkType string  `json:"chunk_type"`
		Score     float32 `json:"score"`
		Document  string  `json:"document"`
	}
	out := make([]chunkOut, len(results))
	for i, result := range results {
		issueKey, _ := result.Metadata["issue_key"].(string)
		chunkType, _ := result.Metadata["chunk_type"].(string)
		out[i] = chunkOut{
			ID:        result.ID,
			IssueKey:  issueKey,
			ChunkType: chunkType,
			Score:     result.Score,
			Document:  result.Document,
		}
	}

	data, err := json.Marshal(out)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal results: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// issue_memory
func (s *Server) issueMemoryTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("issue_memory",
		mcp.WithDescription("Fetch every indexed chunk for one issue key. Returns a JSON array of documents with metadata; fetch failures come back as a descriptive entry, never an error."),
		mcp.WithString("issue_key", mcp.Required(), mcp.Description("Issue key, e.g. HRLIF-42")),
	)
	return tool, s.handleIssueMemory
}

func (s *Server) handleIssueMemory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	issueKey, err := request.RequireString("issue_key")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	memories := s.retriever.IssueMemory(ctx, issueKey)
	data, err := json.Marshal(memories)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal memories: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

// ask
func (s *Server) askTool() (mcp.Tool, server.ToolHandlerFunc) {
	tool := mcp.NewTool("ask",
		mcp.WithDescription("Answer a question about the issue corpus using retrieved context. Returns the model's grounded text answer."),
		mcp.WithString("query", mcp.Required(), mcp.Description("The question to answer")),
		mcp.WithNumber("top_k", mcp.Description("Maximum semantic results to ground on (default 10)")),
	)
	return tool, s.handleAsk
}

func (s *Server) handleAsk(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	topK := request.GetInt("top_k", 0)

	results, err := s.retriever.Retrieve(ctx, query, topK)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("retrieval failed: %v", err)), nil
	}
	answer, err := s.synth.Answer(ctx, query, results)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("synthesis failed: %v", err)), nil
	}
	return mcp.NewToolResultText(answer), nil
}
