package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/omnidoc/omnidoc/internal/storage"
)

// DocumentLister is the storage surface the MCP resources need.
// *storage.Store satisfies it.
type DocumentLister interface {
	ListDocuments() ([]storage.Document, error)
}

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store       DocumentLister
	Embedder    QueryEmbedder
	Retriever   ChunkRetriever
	Synthesizer AnswerSynthesizer
}

// NewMCPServer creates an MCP server exposing the document collection as
// tools and resources.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"omnidoc",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("omnidoc: question answering over your local document collection."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_documents",
			mcp.WithDescription("Semantically search the document collection and return the most relevant chunks."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 5)")),
			mcp.WithArray("document_ids", mcp.Description("Optional document IDs to restrict the search to")),
		),
		mcpSearchDocuments(deps),
	)

	s.AddTool(
		mcp.NewTool("ask_documents",
			mcp.WithDescription("Ask a question over the document collection and get an answer with cited sources."),
			mcp.WithString("query", mcp.Description("The question to answer"), mcp.Required()),
			mcp.WithArray("document_ids", mcp.Description("Optional document IDs to restrict the answer to")),
		),
		mcpAskDocuments(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"omnidoc://documents",
			"Document Collection",
			mcp.WithResourceDescription("All uploaded documents with their processing status"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceDocuments(deps),
	)

	return s
}

func mcpSearchDocuments(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 5)
		if limit <= 0 {
			limit = 5
		}
		if limit > 50 {
			limit = 50
		}

		docIDs := req.GetStringSlice("document_ids", nil)

		queryVec, err := deps.Embedder.Embed(ctx, query)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to embed query: %v", err)), nil
		}

		ranked, err := deps.Retriever.Retrieve(ctx, queryVec, docIDs, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}

		if len(ranked) == 0 {
			return mcpText("[]"), nil
		}

		type chunkResult struct {
			DocumentID string  `json:"documentId"`
			Filename   string  `json:"filename"`
			ChunkIndex int     `json:"chunkIndex"`
			Content    string  `json:"content"`
			Similarity float64 `json:"similarity"`
		}

		results := make([]chunkResult, len(ranked))
		for i, c := range ranked {
			results[i] = chunkResult{
				DocumentID: c.DocumentID,
				Filename:   c.Filename,
				ChunkIndex: c.ChunkIndex,
				Content:    c.Content,
				Similarity: c.Similarity,
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpAskDocuments(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		docIDs := req.GetStringSlice("document_ids", nil)

		queryVec, err := deps.Embedder.Embed(ctx, query)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to embed query: %v", err)), nil
		}

		ranked, err := deps.Retriever.Retrieve(ctx, queryVec, docIDs, 0)
		if err != nil {
			return mcpError(fmt.Sprintf("retrieval failed: %v", err)), nil
		}

		result, err := deps.Synthesizer.Answer(ctx, query, ranked)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to generate answer: %v", err)), nil
		}

		b, err := json.Marshal(ChatResponse{
			Response:    result.Text,
			Sources:     result.Sources,
			ContextUsed: len(ranked),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal answer: %v", err)), nil
		}

		return mcpText(string(b)), nil
	}
}

func mcpResourceDocuments(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		docs, err := deps.Store.ListDocuments()
		if err != nil {
			return nil, fmt.Errorf("failed to list documents: %w", err)
		}

		type docSummary struct {
			ID         string `json:"id"`
			Filename   string `json:"filename"`
			Status     string `json:"status"`
			UploadedAt string `json:"uploadedAt"`
		}

		summaries := make([]docSummary, len(docs))
		for i, d := range docs {
			summaries[i] = docSummary{
				ID:         d.ID,
				Filename:   d.Filename,
				Status:     d.Status,
				UploadedAt: d.UploadedAt.Format(time.RFC3339),
			}
		}

		b, err := json.Marshal(summaries)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal documents: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
