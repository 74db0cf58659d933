package models

// EmbedRequest is the request body for the Ollama-compatible embedding API.
type EmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// EmbedResponse carries the embedding vector returned by the service.
type EmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}
