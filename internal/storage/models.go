package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// Document processing states. A document starts Pending and ends in exactly
// one of Processed or Failed.
const (
	StatusPending   = "pending"
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// Document is an uploaded file awaiting or finished processing.
type Document struct {
	ID         string
	Filename   string
	FileType   string
	FileSize   int64
	FilePath   string // uploaded file location on disk
	UploadedAt time.Time
	Status     string
	Error      string // cause message when Status is failed
}

// Chunk is a bounded span of a document's extracted text together with its
// embedding vector. Embedding stays nil through chunking; chunks are only
// persisted once a vector has been computed for them.
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	ChunkIndex int
	StartChar  int
	EndChar    int
	Filename   string // denormalized from the owning document for display
	Embedding  []float32
}

// Job is a unit of background work in the SQLite-backed queue.
type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
