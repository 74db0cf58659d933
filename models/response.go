package models

// IngestResponse reports the outcome of an ingestion call.
type IngestResponse struct {
	Filename string       `json:"filename"`
	Report   IngestReport `json:"report"`
	Error    string       `json:"error,omitempty"`
}

// QueryResponse is the ranked result of a similarity query. Fallback is true
// when no candidate passed the threshold and the unfiltered top hits were
// returned instead; callers should label those results accordingly.
type QueryResponse struct {
	Matches         []QueryMatch `json:"matches"`
	TotalMatches    int          `json:"total_matches"`
	FilteredMatches int          `json:"filtered_matches"`
	Fallback        bool         `json:"fallback"`
}

// StatsResponse mirrors the index's describe-stats boundary call.
type StatsResponse struct {
	Namespace   string `json:"namespace"`
	VectorCount int    `json:"vector_count"`
	Dimension   int    `json:"dimension"`
}

// QuestionTypeResponse is the question-intent classifier's label.
type QuestionTypeResponse struct {
	Type       string  `json:"type"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}
