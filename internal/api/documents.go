package api

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/omnidoc/omnidoc/internal/extract"
	"github.com/omnidoc/omnidoc/internal/ingest"
	"github.com/omnidoc/omnidoc/internal/storage"
)

// DocumentResponse is the wire representation of a document.
type DocumentResponse struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	FileType   string `json:"fileType"`
	FileSize   int64  `json:"fileSize"`
	UploadedAt string `json:"uploadedAt"`
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	ChunkCount int    `json:"chunkCount"`
}

func documentResponse(doc storage.Document, chunkCount int) DocumentResponse {
	return DocumentResponse{
		ID:         doc.ID,
		Filename:   doc.Filename,
		FileType:   doc.FileType,
		FileSize:   doc.FileSize,
		UploadedAt: doc.UploadedAt.Format(time.RFC3339),
		Status:     doc.Status,
		Error:      doc.Error,
		ChunkCount: chunkCount,
	}
}

// extensionTypes maps known file extensions to MIME types. Browser-sent
// content types for these extensions are unreliable (.md and .docx in
// particular), so the extension wins when recognized.
var extensionTypes = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".pdf":  "application/pdf",
	".html": "text/html",
	".htm":  "text/html",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
}

// resolveFileType determines the document MIME type from the filename
// extension, falling back to the declared content type.
func resolveFileType(filename, declared string) string {
	if t, ok := extensionTypes[strings.ToLower(filepath.Ext(filename))]; ok {
		return t
	}
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		return mt
	}
	return declared
}

func handleUpload(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, deps.MaxFileSize)
		defer r.Body.Close()

		file, header, err := r.FormFile("file")
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "missing file field: %v", err)
			return
		}
		defer file.Close()

		if header.Size > deps.MaxFileSize {
			httpError(w, http.StatusBadRequest, "invalid_request_error",
				"file exceeds maximum size of %d bytes", deps.MaxFileSize)
			return
		}

		fileType := resolveFileType(header.Filename, header.Header.Get("Content-Type"))
		if !extract.Supported(fileType) {
			httpError(w, http.StatusBadRequest, "invalid_request_error",
				"unsupported file type %q: supported types are %s", fileType,
				strings.Join(extract.SupportedTypes(), ", "))
			return
		}

		docID := uuid.New().String()

		if err := os.MkdirAll(deps.UploadDir, 0o700); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to prepare upload dir: %v", err)
			return
		}
		dstPath := filepath.Join(deps.UploadDir, docID+filepath.Ext(header.Filename))
		dst, err := os.Create(dstPath)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to store upload: %v", err)
			return
		}
		size, err := io.Copy(dst, file)
		if cerr := dst.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dstPath)
			httpError(w, http.StatusInternalServerError, "api_error", "failed to store upload: %v", err)
			return
		}

		doc := storage.Document{
			ID:         docID,
			Filename:   header.Filename,
			FileType:   fileType,
			FileSize:   size,
			FilePath:   dstPath,
			UploadedAt: time.Now().UTC(),
			Status:     storage.StatusPending,
		}
		if err := deps.Store.CreateDocument(doc); err != nil {
			os.Remove(dstPath)
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save document: %v", err)
			return
		}

		payload, err := ingest.NewProcessPayload(docID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to create job payload: %v", err)
			return
		}
		job := storage.Job{
			ID:          uuid.New().String(),
			Type:        ingest.JobTypeProcessDocument,
			PayloadJSON: payload,
		}
		if err := deps.Store.EnqueueJob(job); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to enqueue processing: %v", err)
			return
		}

		deps.Logger.Info("document uploaded",
			"document_id", docID,
			"filename", doc.Filename,
			"file_type", doc.FileType,
			"file_size", doc.FileSize)

		writeJSON(w, http.StatusCreated, documentResponse(doc, 0))
	}
}

func handleListDocuments(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		docs, err := deps.Store.ListDocuments()
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list documents: %v", err)
			return
		}

		result := make([]DocumentResponse, 0, len(docs))
		for _, doc := range docs {
			count, err := deps.Store.CountChunks(doc.ID)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "failed to count chunks: %v", err)
				return
			}
			result = append(result, documentResponse(doc, count))
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func handleGetDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		doc, err := deps.Store.GetDocument(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get document: %v", err)
			return
		}

		count, err := deps.Store.CountChunks(id)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to count chunks: %v", err)
			return
		}

		writeJSON(w, http.StatusOK, documentResponse(doc, count))
	}
}

func handleDeleteDocument(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		doc, err := deps.Store.GetDocument(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "document not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get document: %v", err)
			return
		}

		if err := deps.Store.DeleteDocument(id); err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				httpError(w, http.StatusNotFound, "not_found", "document not found")
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "failed to delete document: %v", err)
			return
		}

		if doc.FilePath != "" {
			if err := os.Remove(doc.FilePath); err != nil && !os.IsNotExist(err) {
				deps.Logger.Warn("failed to remove uploaded file", "document_id", id, "path", doc.FilePath, "error", err)
			}
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	}
}
