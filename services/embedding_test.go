package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/machirag/server/models"
)

func embeddingServer(t *testing.T, failFirst int32, vector []float32) *httptest.Server {
	t.Helper()
	var calls int32
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)

		var req models.EmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.NotEmpty(t, req.Model)
		assert.NotEmpty(t, req.Prompt)

		if atomic.AddInt32(&calls, 1) <= failFirst {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(models.EmbedResponse{Embedding: vector})
	}))
}

func TestEmbedReturnsVector(t *testing.T) {
	server := embeddingServer(t, 0, []float32{0.1, 0.2, 0.3})
	defer server.Close()

	gateway := NewEmbeddingGateway(server.Client(), server.URL, "nomic-embed-text:v1.5")
	vector, err := gateway.Embed(context.Background(), "川越市の概要")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, vector)
}

func TestEmbedRetriesTransientFailure(t *testing.T) {
	server := embeddingServer(t, 2, []float32{0.5})
	defer server.Close()

	gateway := NewEmbeddingGatewayWithRetry(server.Client(), server.URL, "nomic-embed-text:v1.5", 3, time.Millisecond)
	vector, err := gateway.Embed(context.Background(), "query")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5}, vector)
}

func TestEmbedSurfacesErrorAfterExhaustion(t *testing.T) {
	server := embeddingServer(t, 100, nil)
	defer server.Close()

	gateway := NewEmbeddingGatewayWithRetry(server.Client(), server.URL, "nomic-embed-text:v1.5", 3, time.Millisecond)
	_, err := gateway.Embed(context.Background(), "query")

	var embeddingErr *models.EmbeddingServiceError
	require.ErrorAs(t, err, &embeddingErr)
	assert.Equal(t, 3, embeddingErr.Attempts)
}

func TestEmbedRejectsEmptyVector(t *testing.T) {
	server := embeddingServer(t, 0, []float32{})
	defer server.Close()

	gateway := NewEmbeddingGatewayWithRetry(server.Client(), server.URL, "nomic-embed-text:v1.5", 1, time.Millisecond)
	_, err := gateway.Embed(context.Background(), "query")
	assert.Error(t, err)
}

func TestDimensionProbe(t *testing.T) {
	server := embeddingServer(t, 0, make([]float32, 768))
	defer server.Close()

	gateway := NewEmbeddingGateway(server.Client(), server.URL, "nomic-embed-text:v1.5")
	dimension, err := gateway.Dimension(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 768, dimension)
}
