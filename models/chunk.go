package models

// Chunk is a bounded-size slice of a document's text, the atomic unit of
// indexing. The ID is derived from the document identity and the ordinal, so
// re-ingesting the same document overwrites the same index entries.
type Chunk struct {
	ID      string
	Text    string
	Ordinal int
}

// ClassificationResult is the label the classifier assigns to one chunk.
// Confidence is normalized into [0, 1]; it is 0 when no keyword matched.
type ClassificationResult struct {
	MainCategory string  `json:"main_category"`
	SubCategory  string  `json:"sub_category"`
	Confidence   float64 `json:"confidence"`
}

// MetadataRecord is the flat string-keyed metadata attached to a chunk before
// upload. Values are scalars only (strings, ints, floats).
type MetadataRecord map[string]interface{}

// QueryMatch is one ranked hit from the vector index.
type QueryMatch struct {
	ChunkID  string                 `json:"chunk_id"`
	Score    float64                `json:"score"`
	Text     string                 `json:"text,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// IngestReport summarizes one upload run. FailedChunkIDs lists chunks that
// failed embedding in both the main pass and the retry pass; they are gone
// from the index and the caller must be told.
type IngestReport struct {
	ChunkCount     int      `json:"chunk_count"`
	UploadedCount  int      `json:"uploaded_count"`
	RetriedCount   int      `json:"retried_count"`
	FailedChunkIDs []string `json:"failed_chunk_ids,omitempty"`
}
