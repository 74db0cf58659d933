package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/machirag/server/models"
	"github.com/machirag/server/services"
)

// RAGController handles the HTTP requests for the ingestion and retrieval
// API. It depends on the service layer for the actual pipeline logic.
type RAGController struct {
	ragService         services.RAGService
	questionClassifier *services.QuestionClassifier
	promptStore        *services.PromptStore
	historyStore       *services.HistoryStore
}

// NewRAGController is called from main.go to inject the service
// dependencies.
func NewRAGController(ragService services.RAGService, questionClassifier *services.QuestionClassifier, promptStore *services.PromptStore, historyStore *services.HistoryStore) *RAGController {
	return &RAGController{
		ragService:         ragService,
		questionClassifier: questionClassifier,
		promptStore:        promptStore,
		historyStore:       historyStore,
	}
}

// statusForError maps the pipeline's error kinds onto HTTP statuses:
// validation faults are the caller's problem, embedding/retrieval faults are
// upstream service trouble, ingestion faults are ours.
func statusForError(err error) int {
	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		return http.StatusBadRequest
	}
	var embeddingErr *models.EmbeddingServiceError
	var retrievalErr *models.RetrievalError
	if errors.As(err, &embeddingErr) || errors.As(err, &retrievalErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// IngestDocument handles POST /api/v1/documents.
func (c *RAGController) IngestDocument(ctx *gin.Context) {
	var req models.IngestDocumentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	response, err := c.ragService.IngestDocument(ctx.Request.Context(), req)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, response)
}

// IngestFile handles POST /api/v1/files, ingesting a file already on disk.
func (c *RAGController) IngestFile(ctx *gin.Context) {
	var req models.IngestFileRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	response, err := c.ragService.IngestFile(ctx.Request.Context(), req)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, response)
}

// Query handles POST /api/v1/query.
func (c *RAGController) Query(ctx *gin.Context) {
	var req models.QueryRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	response, err := c.ragService.Query(ctx.Request.Context(), req)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// Stats handles GET /api/v1/stats.
func (c *RAGController) Stats(ctx *gin.Context) {
	response, err := c.ragService.Stats(ctx.Request.Context(), ctx.Query("namespace"))
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// DeleteFile handles DELETE /api/v1/files/:filename.
func (c *RAGController) DeleteFile(ctx *gin.Context) {
	err := c.ragService.DeleteFile(ctx.Request.Context(), ctx.Query("namespace"), ctx.Param("filename"))
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "File removed from index"})
}

// ClassifyQuestion handles POST /api/v1/question-type.
func (c *RAGController) ClassifyQuestion(ctx *gin.Context) {
	var req models.QuestionTypeRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	response, err := c.questionClassifier.Classify(ctx.Request.Context(), req.Question)
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, response)
}

// ListTemplates handles GET /api/v1/templates.
func (c *RAGController) ListTemplates(ctx *gin.Context) {
	templates, err := c.promptStore.List()
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"count": len(templates), "templates": templates})
}

// PutTemplate handles POST /api/v1/templates.
func (c *RAGController) PutTemplate(ctx *gin.Context) {
	var template services.PromptTemplate
	if err := ctx.ShouldBindJSON(&template); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if err := c.promptStore.Put(template); err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"message": "Template saved"})
}

// DeleteTemplate handles DELETE /api/v1/templates/:name.
func (c *RAGController) DeleteTemplate(ctx *gin.Context) {
	if err := c.promptStore.Delete(ctx.Param("name")); err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Template deleted"})
}

// AppendHistory handles POST /api/v1/sessions/:id/messages.
func (c *RAGController) AppendHistory(ctx *gin.Context) {
	var msg services.HistoryMessage
	if err := ctx.ShouldBindJSON(&msg); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	if err := c.historyStore.Append(ctx.Param("id"), msg.Role, msg.Content); err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"message": "Message recorded"})
}

// GetHistory handles GET /api/v1/sessions/:id/messages.
func (c *RAGController) GetHistory(ctx *gin.Context) {
	messages, err := c.historyStore.Messages(ctx.Param("id"))
	if err != nil {
		ctx.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"count": len(messages), "messages": messages})
}
