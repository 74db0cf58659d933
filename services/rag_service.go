package services

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/machirag/server/models"
)

// PipelineConfig carries the caller-supplied pipeline parameters. The
// pipeline itself holds no persistent configuration state.
type PipelineConfig struct {
	ChunkSize int
	BatchSize int
	TopK      int
	Threshold float64
	Dimension int
}

// RAGService is the application core: the ingestion pipeline on one side and
// the retrieval pipeline on the other.
type RAGService interface {
	IngestDocument(ctx context.Context, req models.IngestDocumentRequest) (*models.IngestResponse, error)
	IngestFile(ctx context.Context, req models.IngestFileRequest) (*models.IngestResponse, error)
	Query(ctx context.Context, req models.QueryRequest) (*models.QueryResponse, error)
	Stats(ctx context.Context, namespace string) (*models.StatsResponse, error)
	DeleteFile(ctx context.Context, namespace, filename string) error
}

// ragServiceImpl holds the pipeline stages it drives.
type ragServiceImpl struct {
	classifier *Classifier
	batcher    *IngestionBatcher
	retrieval  *RetrievalEngine
	index      VectorIndex
	config     PipelineConfig
}

// NewRAGService wires the pipeline stages together.
func NewRAGService(classifier *Classifier, batcher *IngestionBatcher, retrieval *RetrievalEngine, index VectorIndex, config PipelineConfig) RAGService {
	return &ragServiceImpl{
		classifier: classifier,
		batcher:    batcher,
		retrieval:  retrieval,
		index:      index,
		config:     config,
	}
}

// IngestDocument runs raw text through chunking, classification, metadata
// assembly, and the batched upload.
func (r *ragServiceImpl) IngestDocument(ctx context.Context, req models.IngestDocumentRequest) (*models.IngestResponse, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, &models.ValidationError{Field: "text", Reason: "document text must not be empty"}
	}

	filename := req.Filename
	if filename == "" {
		// No filename means no stable document identity; mint one so chunk
		// ids stay unique without colliding across uploads.
		filename = uuid.New().String() + ".txt"
	}

	uploadDate := time.Now().Format(time.RFC3339)
	createdDate := req.CreatedDate
	if createdDate == "" {
		createdDate = uploadDate
	}
	fields := DocumentFields{
		Filename:    filename,
		Source:      req.Source,
		City:        req.City,
		CreatedDate: createdDate,
		UploadDate:  uploadDate,
	}

	chunks := BuildChunks(filename, req.Text, r.config.ChunkSize)
	log.Printf("SERVICE: Split %s into %d chunks.", filename, len(chunks))

	uploads := make([]ChunkUpload, 0, len(chunks))
	for _, chunk := range chunks {
		cls := r.classifier.Classify(chunk.Text)
		record, err := AssembleMetadata(chunk, &cls, fields)
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, ChunkUpload{Chunk: chunk, Metadata: record})
	}

	report, err := r.batcher.Upload(ctx, req.Namespace, uploads, r.config.BatchSize)
	if err != nil {
		return nil, err
	}
	return &models.IngestResponse{Filename: filename, Report: *report}, nil
}

// IngestFile ingests a file from disk. Facility CSVs carry their own
// categories per row and bypass the classifier; everything else goes through
// the text pipeline.
func (r *ragServiceImpl) IngestFile(ctx context.Context, req models.IngestFileRequest) (*models.IngestResponse, error) {
	if req.Path == "" {
		return nil, &models.ValidationError{Field: "path", Reason: "file path must not be empty"}
	}
	if !IsSupportedFile(req.Path) {
		return nil, &models.ValidationError{Field: "path", Reason: fmt.Sprintf("unsupported file type: %s", filepath.Ext(req.Path))}
	}

	if strings.EqualFold(filepath.Ext(req.Path), ".csv") {
		return r.ingestFacilityCSV(ctx, req)
	}

	text, err := ExtractTextFromFile(req.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to extract text from %s: %w", req.Path, err)
	}
	return r.IngestDocument(ctx, models.IngestDocumentRequest{
		Text:      text,
		Filename:  filepath.Base(req.Path),
		Source:    req.Source,
		City:      req.City,
		Namespace: req.Namespace,
	})
}

func (r *ragServiceImpl) ingestFacilityCSV(ctx context.Context, req models.IngestFileRequest) (*models.IngestResponse, error) {
	content, err := os.ReadFile(req.Path)
	if err != nil {
		return nil, err
	}
	rows, err := ParseFacilityCSV(content)
	if err != nil {
		return nil, err
	}

	filename := filepath.Base(req.Path)
	uploadDate := time.Now().Format(time.RFC3339)
	log.Printf("SERVICE: Parsed %d facility rows from %s.", len(rows), filename)

	uploads := make([]ChunkUpload, 0, len(rows))
	for i, row := range rows {
		chunk := models.Chunk{
			ID:      fmt.Sprintf("%s_%d", filename, i),
			Text:    row.Sentence(),
			Ordinal: i,
		}
		// The CSV states its categories outright; no keyword scoring needed.
		cls := models.ClassificationResult{
			MainCategory: row.MainCategory,
			SubCategory:  row.SubCategory,
			Confidence:   1.0,
		}
		record, err := AssembleMetadata(chunk, &cls, DocumentFields{
			Filename:         filename,
			Source:           req.Source,
			City:             req.City,
			CreatedDate:      uploadDate,
			UploadDate:       uploadDate,
			FacilityName:     row.FacilityName,
			Latitude:         row.Latitude,
			Longitude:        row.Longitude,
			WalkingDistance:  row.WalkingDistance,
			WalkingMinutes:   row.WalkingMinutes,
			StraightDistance: row.StraightDistance,
		})
		if err != nil {
			return nil, err
		}
		uploads = append(uploads, ChunkUpload{Chunk: chunk, Metadata: record})
	}

	report, err := r.batcher.Upload(ctx, req.Namespace, uploads, r.config.BatchSize)
	if err != nil {
		return nil, err
	}
	return &models.IngestResponse{Filename: filename, Report: *report}, nil
}

// Query runs the retrieval pipeline, falling back to the configured defaults
// for top-k and threshold when the request leaves them unset.
func (r *ragServiceImpl) Query(ctx context.Context, req models.QueryRequest) (*models.QueryResponse, error) {
	topK := req.TopK
	if topK == 0 {
		topK = r.config.TopK
	}
	threshold := r.config.Threshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	return r.retrieval.Query(ctx, req.Namespace, req.Query, topK, threshold)
}

// Stats reports the vector count for a namespace plus the configured index
// dimensionality.
func (r *ragServiceImpl) Stats(ctx context.Context, namespace string) (*models.StatsResponse, error) {
	count, err := r.index.Count(ctx, namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to get index stats: %w", err)
	}
	return &models.StatsResponse{
		Namespace:   namespace,
		VectorCount: count,
		Dimension:   r.config.Dimension,
	}, nil
}

// DeleteFile removes every indexed chunk of the named file.
func (r *ragServiceImpl) DeleteFile(ctx context.Context, namespace, filename string) error {
	if filename == "" {
		return &models.ValidationError{Field: "filename", Reason: "filename must not be empty"}
	}
	return r.index.DeleteByFilename(ctx, namespace, filename)
}
