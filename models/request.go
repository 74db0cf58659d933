package models

// IngestDocumentRequest submits raw text with caller-supplied metadata for
// chunking, classification, and upload.
type IngestDocumentRequest struct {
	Text        string `json:"text"`
	Filename    string `json:"filename,omitempty"`
	Source      string `json:"source"`
	City        string `json:"city"`
	CreatedDate string `json:"created_date,omitempty"`
	Namespace   string `json:"namespace,omitempty"`
}

// IngestFileRequest ingests a file already on disk (txt, md, pdf, or the
// facility CSV format).
type IngestFileRequest struct {
	Path      string `json:"path"`
	Source    string `json:"source"`
	City      string `json:"city"`
	Namespace string `json:"namespace,omitempty"`
}

// QueryRequest runs a similarity query. TopK and Threshold fall back to the
// configured defaults when zero / unset.
type QueryRequest struct {
	Query     string   `json:"query"`
	TopK      int      `json:"top_k,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
	Namespace string   `json:"namespace,omitempty"`
}

// QuestionTypeRequest asks the question-intent classifier to label a query.
type QuestionTypeRequest struct {
	Question string `json:"question"`
}
