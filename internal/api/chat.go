package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/omnidoc/omnidoc/internal/answer"
	"github.com/omnidoc/omnidoc/internal/retrieval"
)

// ChatRequest is a question over the document collection, optionally
// restricted to specific documents.
type ChatRequest struct {
	Query       string   `json:"query"`
	DocumentIDs []string `json:"documentIds"`
	TopK        int      `json:"topK"`
}

// ChatResponse carries the answer, its cited sources, and how many chunks
// of context backed it.
type ChatResponse struct {
	Response    string          `json:"response"`
	Sources     []answer.Source `json:"sources"`
	ContextUsed int             `json:"contextUsed"`
}

func handleChat(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxChatBodySize)
		defer r.Body.Close()

		var req ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		query := strings.TrimSpace(req.Query)
		if query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}

		ctx := r.Context()

		queryVec, err := deps.Embedder.Embed(ctx, query)
		if err != nil {
			if errors.Is(err, retrieval.ErrEmptyText) {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
				return
			}
			httpError(w, http.StatusBadGateway, "api_error", "failed to embed query: %v", err)
			return
		}

		ranked, err := deps.Retriever.Retrieve(ctx, queryVec, req.DocumentIDs, req.TopK)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "retrieval failed: %v", err)
			return
		}

		result, err := deps.Synthesizer.Answer(ctx, query, ranked)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "failed to generate answer: %v", err)
			return
		}

		deps.Logger.Info("chat answered",
			"context_used", len(ranked),
			"sources", len(result.Sources))

		writeJSON(w, http.StatusOK, ChatResponse{
			Response:    result.Text,
			Sources:     result.Sources,
			ContextUsed: len(ranked),
		})
	}
}
