package services

import (
	"context"
	"log"
	"time"

	"github.com/machirag/server/models"
)

// RetrievalEngine embeds a query, fetches an oversampled candidate set from
// the vector index, filters by similarity threshold, and falls back to the
// unfiltered top hits when filtering leaves nothing.
type RetrievalEngine struct {
	embedder    Embedder
	index       VectorIndex
	maxAttempts int
	backoffBase time.Duration
}

// NewRetrievalEngine builds an engine with the standard retry budget
// (3 attempts, backoff starting at one second and doubling).
func NewRetrievalEngine(embedder Embedder, index VectorIndex) *RetrievalEngine {
	return &RetrievalEngine{
		embedder:    embedder,
		index:       index,
		maxAttempts: 3,
		backoffBase: time.Second,
	}
}

// NewRetrievalEngineWithRetry overrides the retry budget; tests use short
// backoff bases.
func NewRetrievalEngineWithRetry(embedder Embedder, index VectorIndex, maxAttempts int, backoffBase time.Duration) *RetrievalEngine {
	e := NewRetrievalEngine(embedder, index)
	e.maxAttempts = maxAttempts
	e.backoffBase = backoffBase
	return e
}

// Query returns up to topK matches with similarity >= threshold. The index is
// asked for 2*topK candidates to compensate for post-filter attrition. When
// filtering removes every candidate but candidates existed, the unfiltered
// top topK are returned with the fallback flag set: best available beats
// nothing, and the caller is responsible for labeling the relevance.
func (e *RetrievalEngine) Query(ctx context.Context, namespace, text string, topK int, threshold float64) (*models.QueryResponse, error) {
	if text == "" {
		return nil, &models.ValidationError{Field: "query", Reason: "query text must not be empty"}
	}
	if topK <= 0 {
		return nil, &models.ValidationError{Field: "top_k", Reason: "must be a positive integer"}
	}
	if threshold < 0 || threshold > 1 {
		return nil, &models.ValidationError{Field: "threshold", Reason: "must be within [0.0, 1.0]"}
	}

	var lastErr error
	delay := e.backoffBase

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		response, err := e.queryOnce(ctx, namespace, text, topK, threshold)
		if err == nil {
			return response, nil
		}
		lastErr = err
		if attempt < e.maxAttempts {
			log.Printf("RETRIEVAL: attempt %d/%d failed: %v. Retrying in %s...", attempt, e.maxAttempts, err, delay)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return nil, &models.RetrievalError{Attempts: e.maxAttempts, Err: lastErr}
}

func (e *RetrievalEngine) queryOnce(ctx context.Context, namespace, text string, topK int, threshold float64) (*models.QueryResponse, error) {
	vector, err := e.embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	candidates, err := e.index.Query(ctx, namespace, vector, 2*topK)
	if err != nil {
		return nil, err
	}

	filtered := make([]models.QueryMatch, 0, len(candidates))
	for _, match := range candidates {
		if match.Score >= threshold {
			filtered = append(filtered, match)
		}
	}
	log.Printf("RETRIEVAL: %d candidates, %d passed threshold %.2f.", len(candidates), len(filtered), threshold)

	response := &models.QueryResponse{
		TotalMatches:    len(candidates),
		FilteredMatches: len(filtered),
	}

	if len(filtered) == 0 && len(candidates) > 0 {
		log.Printf("RETRIEVAL: No candidate passed the threshold, falling back to unfiltered top %d.", topK)
		response.Fallback = true
		filtered = candidates
	}
	if len(filtered) > topK {
		filtered = filtered[:topK]
	}
	response.Matches = filtered
	return response, nil
}
