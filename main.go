package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/gin-gonic/gin"
	"google.golang.org/genai"

	"github.com/machirag/server/controller"
	"github.com/machirag/server/services"
)

func main() {
	// Create HTTP client properly
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
	}

	// Create Chroma client using v2 API
	var chromaOpts []chromago.ClientOption
	if chromaURL := getEnv("CHROMA_URL", ""); chromaURL != "" {
		chromaOpts = append(chromaOpts, chromago.WithBaseURL(chromaURL))
	}
	chromaClient, err := chromago.NewHTTPClient(chromaOpts...)
	if err != nil {
		log.Fatalf("FATAL: Failed to create chroma client: %v", err)
	}
	defer func() {
		if err := chromaClient.Close(); err != nil {
			log.Printf("Warning: Failed to close chroma client: %v", err)
		}
	}()

	index := services.NewChromaIndex(chromaClient, getEnv("COLLECTION_NAME", "machi-rag"))

	// Embedding gateway against an Ollama-compatible endpoint
	gateway := services.NewEmbeddingGateway(
		httpClient,
		getEnv("OLLAMA_URL", "http://localhost:11434"),
		getEnv("EMBED_MODEL", "nomic-embed-text:v1.5"),
	)

	config := services.PipelineConfig{
		ChunkSize: getEnvInt("CHUNK_SIZE", 500),
		BatchSize: getEnvInt("BATCH_SIZE", 100),
		TopK:      getEnvInt("TOP_K", 10),
		Threshold: getEnvFloat("SIMILARITY_THRESHOLD", 0.7),
		Dimension: getEnvInt("EMBEDDING_DIMENSION", 768),
	}

	// Fail fast when the embedding service and the index disagree on
	// dimensionality; a mismatch would poison every upsert.
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	dimension, err := gateway.Dimension(startupCtx)
	if err != nil {
		cancelStartup()
		log.Fatalf("FATAL: Failed to probe embedding dimension: %v", err)
	}
	if dimension != config.Dimension {
		cancelStartup()
		log.Fatalf("FATAL: Embedding service returns %d-dimensional vectors but EMBEDDING_DIMENSION is %d.", dimension, config.Dimension)
	}
	count, err := index.Count(startupCtx, "")
	cancelStartup()
	if err != nil {
		log.Fatalf("FATAL: Failed to read index stats: %v", err)
	}
	log.Printf("Index ready: %d vectors, %d dimensions.", count, dimension)

	// Create Gemini client for the question-intent classifier
	geminiClient, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  os.Getenv("GEMINI_API_KEY"),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to create Gemini client: %v. Make sure GEMINI_API_KEY is set.", err)
	}
	log.Println("Successfully connected to Google Gemini.")

	historyStore, err := services.NewHistoryStore(getEnv("HISTORY_DIR", "./history"))
	if err != nil {
		log.Fatalf("FATAL: Failed to open history store: %v", err)
	}
	promptStore := services.NewPromptStore(getEnv("TEMPLATES_FILE", "prompt_templates.json"))

	classifier := services.NewClassifier()
	batcher := services.NewIngestionBatcher(gateway, index)
	retrieval := services.NewRetrievalEngine(gateway, index)
	ragService := services.NewRAGService(classifier, batcher, retrieval, index, config)
	questionClassifier := services.NewQuestionClassifier(geminiClient, getEnv("GEMINI_MODEL", "gemini-2.5-flash"))

	ragController := controller.NewRAGController(ragService, questionClassifier, promptStore, historyStore)

	// Watch the ingest directory in the background when configured.
	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	if watchDir := getEnv("WATCH_DIR", ""); watchDir != "" {
		watcher := services.NewDirectoryWatcher(ragService, getEnv("WATCH_NAMESPACE", ""), "directory-watch")
		go watcher.Watch(watchCtx, watchDir)
	}

	// Setup Gin router
	router := gin.Default()

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "machi-rag API",
			"version": "1.0.0",
		})
	})

	apiV1 := router.Group("/api/v1")
	{
		apiV1.POST("/documents", ragController.IngestDocument)
		apiV1.POST("/files", ragController.IngestFile)
		apiV1.DELETE("/files/:filename", ragController.DeleteFile)
		apiV1.POST("/query", ragController.Query)
		apiV1.GET("/stats", ragController.Stats)
		apiV1.POST("/question-type", ragController.ClassifyQuestion)
		apiV1.GET("/templates", ragController.ListTemplates)
		apiV1.POST("/templates", ragController.PutTemplate)
		apiV1.DELETE("/templates/:name", ragController.DeleteTemplate)
		apiV1.POST("/sessions/:id/messages", ragController.AppendHistory)
		apiV1.GET("/sessions/:id/messages", ragController.GetHistory)
	}

	// Start the Server
	port := getEnv("PORT", "8080")
	log.Printf("machi-rag server starting on http://localhost:%s", port)

	if err := router.Run(":" + port); err != nil {
		log.Fatalf("FATAL: Failed to start server: %v", err)
	}
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		log.Printf("Warning: Ignoring invalid value %q for %s.", value, key)
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
		log.Printf("Warning: Ignoring invalid value %q for %s.", value, key)
	}
	return fallback
}
