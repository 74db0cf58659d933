package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/machirag/server/models"
)

// Embedder converts free text into a fixed-length vector. The ingestion
// batcher and the retrieval engine only see this interface.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// EmbeddingGateway talks to an Ollama-compatible embedding endpoint and
// retries transient faults with exponential backoff before surfacing an
// EmbeddingServiceError.
type EmbeddingGateway struct {
	httpClient  *http.Client
	baseURL     string
	model       string
	maxAttempts int
	backoffBase time.Duration
}

// NewEmbeddingGateway builds a gateway with the standard retry budget
// (3 attempts, backoff starting at one second and doubling).
func NewEmbeddingGateway(client *http.Client, baseURL, model string) *EmbeddingGateway {
	return &EmbeddingGateway{
		httpClient:  client,
		baseURL:     baseURL,
		model:       model,
		maxAttempts: 3,
		backoffBase: time.Second,
	}
}

// NewEmbeddingGatewayWithRetry overrides the retry budget; tests use short
// backoff bases.
func NewEmbeddingGatewayWithRetry(client *http.Client, baseURL, model string, maxAttempts int, backoffBase time.Duration) *EmbeddingGateway {
	g := NewEmbeddingGateway(client, baseURL, model)
	g.maxAttempts = maxAttempts
	g.backoffBase = backoffBase
	return g
}

// Embed returns the embedding vector for text. The final failure is
// surfaced, never swallowed.
func (g *EmbeddingGateway) Embed(ctx context.Context, text string) ([]float32, error) {
	var lastErr error
	delay := g.backoffBase

	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		vector, err := g.embedOnce(ctx, text)
		if err == nil {
			return vector, nil
		}
		lastErr = err
		if attempt < g.maxAttempts {
			log.Printf("EMBEDDING: attempt %d/%d failed: %v. Retrying in %s...", attempt, g.maxAttempts, err, delay)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return nil, &models.EmbeddingServiceError{Attempts: g.maxAttempts, Err: lastErr}
}

// Dimension probes the embedding service once and reports the vector length.
// Called at startup to verify the configured index dimensionality.
func (g *EmbeddingGateway) Dimension(ctx context.Context) (int, error) {
	vector, err := g.Embed(ctx, "dimension probe")
	if err != nil {
		return 0, err
	}
	return len(vector), nil
}

func (g *EmbeddingGateway) embedOnce(ctx context.Context, text string) ([]float32, error) {
	reqBody, err := json.Marshal(models.EmbedRequest{
		Model:  g.model,
		Prompt: text,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/embeddings", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call embedding api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding api returned non-200 status: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var embedResp models.EmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(embedResp.Embedding) == 0 {
		return nil, fmt.Errorf("embedding api returned an empty vector")
	}
	return embedResp.Embedding, nil
}
