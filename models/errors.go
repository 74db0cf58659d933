package models

import "fmt"

// ValidationError reports malformed or incomplete input. It is never retried;
// the caller gets it back immediately.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed for %q: %s", e.Field, e.Reason)
}

// EmbeddingServiceError is a transient embedding-service fault that survived
// the gateway's retry budget. ChunkID is empty for query-side embeddings.
type EmbeddingServiceError struct {
	ChunkID  string
	Attempts int
	Err      error
}

func (e *EmbeddingServiceError) Error() string {
	if e.ChunkID == "" {
		return fmt.Sprintf("embedding failed after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("embedding chunk %s failed after %d attempts: %v", e.ChunkID, e.Attempts, e.Err)
}

func (e *EmbeddingServiceError) Unwrap() error { return e.Err }

// IngestionError is a batch-level upsert fault that survived its retry budget.
type IngestionError struct {
	Batch    int
	Attempts int
	Err      error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("upsert of batch %d failed after %d attempts: %v", e.Batch, e.Attempts, e.Err)
}

func (e *IngestionError) Unwrap() error { return e.Err }

// RetrievalError is a query-path fault that survived its retry budget. It is
// fatal for that query.
type RetrievalError struct {
	Attempts int
	Err      error
}

func (e *RetrievalError) Error() string {
	return fmt.Sprintf("retrieval failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }
