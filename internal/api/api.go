// Package api implements the HTTP REST surface: document upload and
// management plus retrieval-augmented chat.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/omnidoc/omnidoc/internal/answer"
	"github.com/omnidoc/omnidoc/internal/retrieval"
	"github.com/omnidoc/omnidoc/internal/storage"
)

const maxChatBodySize = 1 << 20 // 1MB

// QueryEmbedder turns a query string into an embedding vector.
// *retrieval.Embedder satisfies it.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChunkRetriever ranks stored chunks against a query embedding.
// *retrieval.Retriever satisfies it.
type ChunkRetriever interface {
	Retrieve(ctx context.Context, queryEmbedding []float32, documentIDs []string, k int) ([]retrieval.ScoredChunk, error)
}

// AnswerSynthesizer produces the final answer with sources.
// *answer.Synthesizer satisfies it.
type AnswerSynthesizer interface {
	Answer(ctx context.Context, query string, ranked []retrieval.ScoredChunk) (answer.Result, error)
}

// Deps holds everything the HTTP handlers need.
type Deps struct {
	Store       *storage.Store
	Embedder    QueryEmbedder
	Retriever   ChunkRetriever
	Synthesizer AnswerSynthesizer
	UploadDir   string
	MaxFileSize int64
	Logger      *slog.Logger
}

// NewHandler returns the HTTP API router.
func NewHandler(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Get("/health", handleHealth())
	r.Post("/api/upload", handleUpload(deps))
	r.Get("/api/documents", handleListDocuments(deps))
	r.Get("/api/documents/{id}", handleGetDocument(deps))
	r.Delete("/api/documents/{id}", handleDeleteDocument(deps))
	r.Post("/api/chat", handleChat(deps))

	return r
}

func handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
