package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func testDocument(id string) Document {
	return Document{
		ID:         id,
		Filename:   "report.pdf",
		FileType:   "application/pdf",
		FileSize:   1234,
		FilePath:   "/tmp/uploads/" + id + ".pdf",
		UploadedAt: time.Now().UTC().Truncate(time.Second),
		Status:     StatusPending,
	}
}

func testChunk(docID string, index int, embedding []float32) Chunk {
	return Chunk{
		ID:         uuid.New().String(),
		DocumentID: docID,
		Content:    "chunk content",
		ChunkIndex: index,
		StartChar:  index * 800,
		EndChar:    index*800 + 1000,
		Filename:   "report.pdf",
		Embedding:  embedding,
	}
}

func TestDocumentLifecycle(t *testing.T) {
	s := openTestStore(t)

	doc := testDocument("doc-1")
	if err := s.CreateDocument(doc); err != nil {
		t.Fatalf("CreateDocument: %v", err)
	}

	got, err := s.GetDocument("doc-1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Filename != doc.Filename || got.FileType != doc.FileType || got.FilePath != doc.FilePath {
		t.Errorf("got %+v, want fields of %+v", got, doc)
	}
	if got.Status != StatusPending {
		t.Errorf("status = %q, want pending", got.Status)
	}

	if err := s.SetDocumentStatus("doc-1", StatusProcessed, ""); err != nil {
		t.Fatalf("SetDocumentStatus: %v", err)
	}
	got, _ = s.GetDocument("doc-1")
	if got.Status != StatusProcessed {
		t.Errorf("status = %q, want processed", got.Status)
	}

	if err := s.SetDocumentStatus("doc-1", StatusFailed, "extraction blew up"); err != nil {
		t.Fatalf("SetDocumentStatus: %v", err)
	}
	got, _ = s.GetDocument("doc-1")
	if got.Status != StatusFailed || got.Error != "extraction blew up" {
		t.Errorf("got status=%q error=%q", got.Status, got.Error)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetDocument("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if err := s.SetDocumentStatus("missing", StatusProcessed, ""); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetDocumentStatus err = %v, want ErrNotFound", err)
	}
}

func TestListDocuments_MostRecentFirst(t *testing.T) {
	s := openTestStore(t)

	older := testDocument("doc-old")
	older.UploadedAt = time.Now().UTC().Add(-time.Hour)
	newer := testDocument("doc-new")

	if err := s.CreateDocument(older); err != nil {
		t.Fatal(err)
	}
	if err := s.CreateDocument(newer); err != nil {
		t.Fatal(err)
	}

	docs, err := s.ListDocuments()
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	if docs[0].ID != "doc-new" {
		t.Errorf("first document = %q, want doc-new", docs[0].ID)
	}
}

func TestDeleteDocument_CascadesChunks(t *testing.T) {
	s := openTestStore(t)

	if err := s.CreateDocument(testDocument("doc-1")); err != nil {
		t.Fatal(err)
	}
	chunks := []Chunk{
		testChunk("doc-1", 0, []float32{1, 2}),
		testChunk("doc-1", 1, []float32{3, 4}),
	}
	if err := s.PutChunks(chunks); err != nil {
		t.Fatalf("PutChunks: %v", err)
	}

	if err := s.DeleteDocument("doc-1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}

	if _, err := s.GetDocument("doc-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("document still present after delete: %v", err)
	}
	count, err := s.CountChunks("doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("chunk count = %d after delete, want 0", count)
	}

	if err := s.DeleteDocument("doc-1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete err = %v, want ErrNotFound", err)
	}
}

func TestPutChunks_UpsertIsIdempotent(t *testing.T) {
	s := openTestStore(t)

	c := testChunk("doc-1", 0, []float32{1, 2, 3})
	if err := s.PutChunks([]Chunk{c}); err != nil {
		t.Fatalf("PutChunks: %v", err)
	}

	c.Content = "updated content"
	c.Embedding = []float32{9, 9, 9}
	if err := s.PutChunks([]Chunk{c}); err != nil {
		t.Fatalf("PutChunks (again): %v", err)
	}

	count, err := s.CountChunks("doc-1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("chunk count = %d, want 1 (replace, not duplicate)", count)
	}

	got, err := s.GetChunk(c.ID)
	if err != nil {
		t.Fatalf("GetChunk: %v", err)
	}
	if got.Content != "updated content" {
		t.Errorf("content = %q, want replacement", got.Content)
	}
	if len(got.Embedding) != 3 || got.Embedding[0] != 9 {
		t.Errorf("embedding = %v, want replacement", got.Embedding)
	}
}

func TestGetChunks_FiltersAndKeepsOrder(t *testing.T) {
	s := openTestStore(t)

	a0 := testChunk("doc-a", 0, []float32{1})
	a1 := testChunk("doc-a", 1, []float32{2})
	b0 := testChunk("doc-b", 0, []float32{3})
	if err := s.PutChunks([]Chunk{a0, a1, b0}); err != nil {
		t.Fatalf("PutChunks: %v", err)
	}

	ctx := context.Background()

	all, err := s.GetChunks(ctx, nil)
	if err != nil {
		t.Fatalf("GetChunks: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d chunks, want 3", len(all))
	}
	// Insertion order is preserved.
	if all[0].ID != a0.ID || all[1].ID != a1.ID || all[2].ID != b0.ID {
		t.Error("chunks not in insertion order")
	}

	onlyA, err := s.GetChunks(ctx, []string{"doc-a"})
	if err != nil {
		t.Fatalf("GetChunks(doc-a): %v", err)
	}
	if len(onlyA) != 2 {
		t.Fatalf("got %d chunks for doc-a, want 2", len(onlyA))
	}
	for _, c := range onlyA {
		if c.DocumentID != "doc-a" {
			t.Errorf("chunk %s belongs to %q", c.ID, c.DocumentID)
		}
	}
}

func TestGetDocumentChunks_OrderedByIndex(t *testing.T) {
	s := openTestStore(t)

	// Insert out of index order.
	c2 := testChunk("doc-1", 2, []float32{1})
	c0 := testChunk("doc-1", 0, []float32{1})
	c1 := testChunk("doc-1", 1, []float32{1})
	if err := s.PutChunks([]Chunk{c2, c0, c1}); err != nil {
		t.Fatal(err)
	}

	chunks, err := s.GetDocumentChunks(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("GetDocumentChunks: %v", err)
	}
	for i, c := range chunks {
		if c.ChunkIndex != i {
			t.Errorf("position %d has chunk_index %d", i, c.ChunkIndex)
		}
	}
}

func TestEmbeddingRoundTrip(t *testing.T) {
	s := openTestStore(t)

	want := []float32{0.25, -1.5, 3.75, 0}
	c := testChunk("doc-1", 0, want)
	if err := s.PutChunks([]Chunk{c}); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetChunk(c.ID)
	if err != nil {
		t.Fatalf("GetChunk: %v", err)
	}
	if len(got.Embedding) != len(want) {
		t.Fatalf("embedding length = %d, want %d", len(got.Embedding), len(want))
	}
	for i := range want {
		if got.Embedding[i] != want[i] {
			t.Errorf("embedding[%d] = %v, want %v", i, got.Embedding[i], want[i])
		}
	}
}

func TestDecodeFloat32s_CorruptBlob(t *testing.T) {
	if _, err := decodeFloat32s([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for blob length not divisible by 4")
	}
}

func TestJobQueue_ClaimCompleteCycle(t *testing.T) {
	s := openTestStore(t)

	job := Job{ID: "job-1", Type: "document_process", PayloadJSON: `{"document_id":"doc-1"}`}
	if err := s.EnqueueJob(job); err != nil {
		t.Fatalf("EnqueueJob: %v", err)
	}

	claimed, err := s.ClaimNextJob([]string{"document_process"})
	if err != nil {
		t.Fatalf("ClaimNextJob: %v", err)
	}
	if claimed == nil {
		t.Fatal("expected a claimed job")
	}
	if claimed.ID != "job-1" || claimed.Status != "running" {
		t.Errorf("claimed = %+v", claimed)
	}

	// The running job is not claimable again.
	again, err := s.ClaimNextJob([]string{"document_process"})
	if err != nil {
		t.Fatal(err)
	}
	if again != nil {
		t.Errorf("claimed running job again: %+v", again)
	}

	if err := s.CompleteJob("job-1"); err != nil {
		t.Fatalf("CompleteJob: %v", err)
	}
}

func TestJobQueue_TypeFilter(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueJob(Job{ID: "job-1", Type: "other_type", PayloadJSON: "{}"}); err != nil {
		t.Fatal(err)
	}

	claimed, err := s.ClaimNextJob([]string{"document_process"})
	if err != nil {
		t.Fatal(err)
	}
	if claimed != nil {
		t.Errorf("claimed job of wrong type: %+v", claimed)
	}
}

func TestJobQueue_FailRetriesWithBackoff(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueJob(Job{ID: "job-1", Type: "document_process", PayloadJSON: "{}", MaxAttempts: 3}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ClaimNextJob([]string{"document_process"}); err != nil {
		t.Fatal(err)
	}

	if err := s.FailJob("job-1", "embedding service down"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	// Rescheduled into the future; not immediately claimable.
	claimed, err := s.ClaimNextJob([]string{"document_process"})
	if err != nil {
		t.Fatal(err)
	}
	if claimed != nil {
		t.Errorf("job claimable before backoff elapsed: %+v", claimed)
	}
}

func TestJobQueue_FailPermanentlyAfterMaxAttempts(t *testing.T) {
	s := openTestStore(t)

	if err := s.EnqueueJob(Job{ID: "job-1", Type: "document_process", PayloadJSON: "{}", MaxAttempts: 1}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.ClaimNextJob([]string{"document_process"}); err != nil {
		t.Fatal(err)
	}

	if err := s.FailJob("job-1", "still down"); err != nil {
		t.Fatalf("FailJob: %v", err)
	}

	var status string
	var lastError string
	if err := s.db.QueryRow(`SELECT status, last_error FROM jobs WHERE id = 'job-1'`).Scan(&status, &lastError); err != nil {
		t.Fatal(err)
	}
	if status != "failed" {
		t.Errorf("status = %q, want failed", status)
	}
	if lastError != "still down" {
		t.Errorf("last_error = %q", lastError)
	}
}

func TestJobQueue_FailNotFound(t *testing.T) {
	s := openTestStore(t)
	if err := s.FailJob("missing", "x"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}
