package services

import (
	"github.com/machirag/server/models"
)

// DocumentFields carries the caller-supplied metadata merged into every chunk
// of a document. Facility fields are populated by the CSV path only.
type DocumentFields struct {
	Filename    string
	Source      string
	City        string
	CreatedDate string
	UploadDate  string

	FacilityName     string
	Latitude         float64
	Longitude        float64
	WalkingDistance  int
	WalkingMinutes   int
	StraightDistance int
}

// AssembleMetadata merges the chunk identity, the classification result, and
// the caller fields into one flat record. Classification keys and caller keys
// occupy disjoint namespaces so neither side can clobber the other. A nil
// classification leaves the category keys at their empty/zero defaults.
func AssembleMetadata(chunk models.Chunk, cls *models.ClassificationResult, fields DocumentFields) (models.MetadataRecord, error) {
	if chunk.ID == "" {
		return nil, &models.ValidationError{Field: "id", Reason: "chunk identity is not set"}
	}
	if fields.Filename == "" {
		return nil, &models.ValidationError{Field: "filename", Reason: "filename is required"}
	}

	record := models.MetadataRecord{
		"id":       chunk.ID,
		"chunk_id": chunk.Ordinal,
		"text":     chunk.Text,

		"filename":     fields.Filename,
		"source":       fields.Source,
		"city":         fields.City,
		"created_date": fields.CreatedDate,
		"upload_date":  fields.UploadDate,

		"main_category":    "",
		"sub_category":     "",
		"confidence_score": 0.0,

		"facility_name":     fields.FacilityName,
		"latitude":          fields.Latitude,
		"longitude":         fields.Longitude,
		"walking_distance":  fields.WalkingDistance,
		"walking_minutes":   fields.WalkingMinutes,
		"straight_distance": fields.StraightDistance,
	}

	if cls != nil {
		record["main_category"] = cls.MainCategory
		record["sub_category"] = cls.SubCategory
		record["confidence_score"] = cls.Confidence
	}

	return record, nil
}
