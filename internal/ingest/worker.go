// Package ingest drives the document processing pipeline: extract text,
// chunk it, embed each chunk, persist the survivors, and resolve the
// document's status.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/omnidoc/omnidoc/internal/extract"
	"github.com/omnidoc/omnidoc/internal/retrieval"
	"github.com/omnidoc/omnidoc/internal/storage"
)

// JobTypeProcessDocument is the queue job type handled by this worker.
const JobTypeProcessDocument = "document_process"

// DocumentStore is the storage surface the worker needs.
type DocumentStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	GetDocument(id string) (storage.Document, error)
	SetDocumentStatus(id, status, errMsg string) error
	PutChunks(chunks []storage.Chunk) error
	DeleteChunksForDocument(documentID string) error
}

// ChunkEmbedder generates embeddings for a batch of texts with per-entry
// failure reporting.
type ChunkEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) []retrieval.BatchResult
}

// Chunker splits extracted text into ordered chunks.
type Chunker interface {
	Chunk(text, documentID, filename string) []storage.Chunk
}

// Worker processes document_process jobs from the SQLite job queue.
type Worker struct {
	store    DocumentStore
	chunker  Chunker
	embedder ChunkEmbedder
	poll     time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store DocumentStore, chunker Chunker, embedder ChunkEmbedder, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:    store,
		chunker:  chunker,
		embedder: embedder,
		poll:     pollInterval,
		logger:   slog.Default(),
	}
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// retryableError marks a processing failure the job queue should retry
// (transient infrastructure trouble, e.g. the embedding service being down).
// Everything else is terminal for the document.
type retryableError struct{ err error }

func (e retryableError) Error() string { return e.err.Error() }
func (e retryableError) Unwrap() error { return e.err }

// RunOnce claims and processes a single document job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobTypeProcessDocument})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("document processing failed", "job_id", job.ID, "error", err)
		var retryable retryableError
		if errors.As(err, &retryable) {
			if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
				w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
			}
			return true, nil
		}
		// Terminal failure: the cause is recorded on the document, so the
		// job itself is done.
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

type processPayload struct {
	DocumentID string `json:"document_id"`
}

// NewProcessPayload builds the queue payload for a document.
func NewProcessPayload(documentID string) (string, error) {
	b, err := json.Marshal(processPayload{DocumentID: documentID})
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// processJob runs the full pipeline for one document. Any error resolves the
// document to Failed first (a document is never left Pending) and the
// returned error decides whether the queue retries.
func (w *Worker) processJob(ctx context.Context, job *storage.Job) (err error) {
	var payload processPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	doc, err := w.store.GetDocument(payload.DocumentID)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted before processing started; nothing to do.
		w.logger.Info("document deleted before processing", "document_id", payload.DocumentID)
		return nil
	}
	if err != nil {
		return retryableError{fmt.Errorf("loading document %s: %w", payload.DocumentID, err)}
	}

	// Whatever happens below, including a panic in an extractor, the
	// document must leave the Pending state.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("processing panicked: %v", r)
		}
		if err != nil {
			w.markFailed(doc.ID, err)
		}
	}()

	data, err := os.ReadFile(doc.FilePath)
	if err != nil {
		return fmt.Errorf("reading uploaded file: %w", err)
	}

	text, err := extract.Extract(data, doc.FileType)
	if err != nil {
		return fmt.Errorf("extracting text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no text could be extracted from the document")
	}

	chunks := w.chunker.Chunk(text, doc.ID, doc.Filename)
	if len(chunks) == 0 {
		return fmt.Errorf("document produced no text chunks")
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	results := w.embedder.EmbedBatch(ctx, texts)

	// Collect survivors in chunk_index order; failed chunks are skipped,
	// not stored with a missing vector.
	survivors := make([]storage.Chunk, 0, len(chunks))
	for i, res := range results {
		if res.Err != nil {
			w.logger.Warn("skipping chunk after embedding failure",
				"document_id", doc.ID, "chunk_index", chunks[i].ChunkIndex, "error", res.Err)
			continue
		}
		c := chunks[i]
		c.Embedding = res.Vector
		survivors = append(survivors, c)
	}

	if len(survivors) == 0 {
		return retryableError{fmt.Errorf("no embeddings were generated for the document chunks")}
	}

	// A prior attempt may have stored chunks before failing (chunk IDs are
	// regenerated each run, and chunk_index is unique per document). Clear
	// them so the fresh set lands cleanly instead of colliding.
	if err := w.store.DeleteChunksForDocument(doc.ID); err != nil {
		return retryableError{fmt.Errorf("clearing chunks from earlier attempt: %w", err)}
	}

	if err := w.store.PutChunks(survivors); err != nil {
		return retryableError{fmt.Errorf("storing chunks: %w", err)}
	}

	// The document may have been deleted while we were embedding. Don't
	// resurrect it; drop the chunks we just wrote instead.
	if _, getErr := w.store.GetDocument(doc.ID); errors.Is(getErr, storage.ErrNotFound) {
		w.logger.Info("document deleted during processing, dropping chunks", "document_id", doc.ID)
		if delErr := w.store.DeleteChunksForDocument(doc.ID); delErr != nil {
			w.logger.Error("failed to drop chunks for deleted document", "document_id", doc.ID, "error", delErr)
		}
		return nil
	}

	if err := w.store.SetDocumentStatus(doc.ID, storage.StatusProcessed, ""); err != nil {
		return retryableError{fmt.Errorf("marking document processed: %w", err)}
	}

	w.logger.Info("document processed",
		"document_id", doc.ID, "chunks", len(survivors), "skipped", len(chunks)-len(survivors))
	return nil
}

// markFailed records the failure cause on the document. A document deleted
// mid-flight stays deleted.
func (w *Worker) markFailed(documentID string, cause error) {
	err := w.store.SetDocumentStatus(documentID, storage.StatusFailed, cause.Error())
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		w.logger.Error("failed to mark document as failed", "document_id", documentID, "error", err)
	}
}
