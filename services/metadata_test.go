package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/machirag/server/models"
)

func TestAssembleMetadataMergesAllFields(t *testing.T) {
	chunk := models.Chunk{ID: "guide.txt_2", Text: "蔵造りの街並み。", Ordinal: 2}
	cls := &models.ClassificationResult{
		MainCategory: "地域特性・街のプロフィール",
		SubCategory:  "街の歴史・地域史",
		Confidence:   0.8,
	}
	fields := DocumentFields{
		Filename:    "guide.txt",
		Source:      "upload",
		City:        "川越市",
		CreatedDate: "2024-04-01",
		UploadDate:  "2024-04-02T09:00:00Z",
	}

	record, err := AssembleMetadata(chunk, cls, fields)
	require.NoError(t, err)

	assert.Equal(t, "guide.txt_2", record["id"])
	assert.Equal(t, 2, record["chunk_id"])
	assert.Equal(t, "蔵造りの街並み。", record["text"])
	assert.Equal(t, "guide.txt", record["filename"])
	assert.Equal(t, "川越市", record["city"])
	assert.Equal(t, "街の歴史・地域史", record["sub_category"])
	assert.Equal(t, 0.8, record["confidence_score"])
	// Facility fields stay at their zero defaults outside the CSV path.
	assert.Equal(t, "", record["facility_name"])
	assert.Equal(t, 0, record["walking_minutes"])
}

func TestAssembleMetadataNilClassification(t *testing.T) {
	chunk := models.Chunk{ID: "rows.csv_0", Text: "施設の説明。"}
	record, err := AssembleMetadata(chunk, nil, DocumentFields{Filename: "rows.csv"})
	require.NoError(t, err)
	assert.Equal(t, "", record["main_category"])
	assert.Equal(t, "", record["sub_category"])
	assert.Equal(t, 0.0, record["confidence_score"])
}

func TestAssembleMetadataRequiresIdentity(t *testing.T) {
	var validationErr *models.ValidationError

	_, err := AssembleMetadata(models.Chunk{Text: "x"}, nil, DocumentFields{Filename: "a.txt"})
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "id", validationErr.Field)

	_, err = AssembleMetadata(models.Chunk{ID: "a.txt_0", Text: "x"}, nil, DocumentFields{})
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "filename", validationErr.Field)
}
