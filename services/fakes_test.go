package services

import (
	"context"
	"errors"
	"sync"

	"github.com/machirag/server/models"
)

// fakeEmbedder returns a constant vector and fails the texts listed in
// failuresLeft that many times before succeeding. failuresLeft of -1 means
// the text never embeds.
type fakeEmbedder struct {
	mu           sync.Mutex
	failuresLeft map[string]int
	calls        int
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{failuresLeft: make(map[string]int)}
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++

	left, ok := f.failuresLeft[text]
	if ok && left != 0 {
		if left > 0 {
			f.failuresLeft[text] = left - 1
		}
		return nil, &models.EmbeddingServiceError{Attempts: 3, Err: errors.New("embedding service unavailable")}
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

// fakeIndex is an in-memory VectorIndex. failUpserts and failQueries count
// down: while positive, the corresponding call fails.
type fakeIndex struct {
	mu          sync.Mutex
	store       map[string]UpsertItem
	failUpserts int
	failQueries int

	upsertCalls    int
	queryCalls     int
	requestedTopKs []int
	queryResults   []models.QueryMatch
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{store: make(map[string]UpsertItem)}
}

func (f *fakeIndex) Upsert(_ context.Context, _ string, items []UpsertItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	if f.failUpserts > 0 {
		f.failUpserts--
		return errors.New("index unavailable")
	}
	for _, item := range items {
		f.store[item.ID] = item
	}
	return nil
}

func (f *fakeIndex) Query(_ context.Context, _ string, _ []float32, topK int) ([]models.QueryMatch, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queryCalls++
	f.requestedTopKs = append(f.requestedTopKs, topK)
	if f.failQueries > 0 {
		f.failQueries--
		return nil, errors.New("index unavailable")
	}
	if len(f.queryResults) > topK {
		return f.queryResults[:topK], nil
	}
	return f.queryResults, nil
}

func (f *fakeIndex) Count(_ context.Context, _ string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.store), nil
}

func (f *fakeIndex) DeleteByFilename(_ context.Context, _, filename string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, item := range f.store {
		if name, _ := item.Metadata["filename"].(string); name == filename {
			delete(f.store, id)
		}
	}
	return nil
}
