package services

import (
	"encoding/csv"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/joho/godotenv"
	"github.com/unidoc/unipdf/v3/common/license"
	"github.com/unidoc/unipdf/v3/extractor"
	"github.com/unidoc/unipdf/v3/model"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"

	"github.com/machirag/server/models"
)

func init() {
	// Load .env file from the current directory
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables.")
	}
	if err := license.SetMeteredKey(os.Getenv("UNIDOC_LICENSE_KEY")); err != nil {
		fmt.Printf("ERROR: Failed to set Unidoc license key: %v. PDF processing will fail.\n", err)
	}
}

// ExtractTextFromFile reads a file and returns its text content.
// It automatically handles different file types and the encodings common in
// Japanese municipal documents.
func ExtractTextFromFile(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	switch ext {
	case ".txt", ".md":
		content, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return DecodeJapaneseText(content), nil
	case ".pdf":
		return extractTextFromPDF(path)
	default:
		return "", fmt.Errorf("unsupported file type: %s", ext)
	}
}

// IsSupportedFile reports whether the watcher and the file-ingest endpoint
// accept this path.
func IsSupportedFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".pdf", ".csv":
		return true
	default:
		return false
	}
}

// DecodeJapaneseText decodes raw bytes, trying UTF-8 first, then Shift-JIS
// (which also covers CP932) and EUC-JP. The Shift-JIS decoder does not error
// on EUC-JP input, it produces half-width-katakana mojibake, so a candidate
// is only accepted when its output looks like plausible Japanese. When every
// decoder fails it falls back to a lossy UTF-8 interpretation rather than
// rejecting the file.
func DecodeJapaneseText(content []byte) string {
	if utf8.Valid(content) {
		return string(content)
	}
	for _, dec := range []*encoding.Decoder{
		japanese.ShiftJIS.NewDecoder(),
		japanese.EUCJP.NewDecoder(),
	} {
		decoded, err := dec.Bytes(content)
		if err == nil && utf8.Valid(decoded) && decodingLooksValid(string(decoded)) {
			return string(decoded)
		}
	}
	return string([]rune(string(content)))
}

// decodingLooksValid rejects a candidate decoding that contains replacement
// runes (invalid input bytes) or whose non-ASCII content is mostly half-width
// katakana, the telltale of EUC-JP bytes run through the Shift-JIS decoder.
// Genuine documents mixing some half-width katakana into ordinary kanji and
// kana still pass.
func decodingLooksValid(text string) bool {
	nonASCII := 0
	halfWidthKana := 0
	for _, r := range text {
		if r == utf8.RuneError {
			return false
		}
		if r > 0x7F {
			nonASCII++
		}
		if r >= 0xFF61 && r <= 0xFF9F {
			halfWidthKana++
		}
	}
	return halfWidthKana*2 <= nonASCII
}

// FacilityRow is one row of the 8-column facility CSV: main category, sub
// category, facility name, latitude, longitude, walking distance, walking
// minutes, straight-line distance.
type FacilityRow struct {
	MainCategory     string
	SubCategory      string
	FacilityName     string
	Latitude         float64
	Longitude        float64
	WalkingDistance  int
	WalkingMinutes   int
	StraightDistance int
}

// Sentence renders the row as one indexable sentence.
func (r FacilityRow) Sentence() string {
	return fmt.Sprintf("%sは%sの%sです。", r.FacilityName, r.MainCategory, r.SubCategory)
}

// ParseFacilityCSV parses facility CSV content (no header row). Malformed
// rows are logged and skipped; a file with no valid row at all is rejected.
func ParseFacilityCSV(content []byte) ([]FacilityRow, error) {
	reader := csv.NewReader(strings.NewReader(DecodeJapaneseText(content)))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	var rows []FacilityRow
	for i, record := range records {
		if len(record) < 8 {
			log.Printf("EXTRACTOR: Skipping csv row %d: expected 8 columns, got %d.", i+1, len(record))
			continue
		}
		row := FacilityRow{
			MainCategory: strings.TrimSpace(record[0]),
			SubCategory:  strings.TrimSpace(record[1]),
			FacilityName: strings.TrimSpace(record[2]),
		}
		if row.FacilityName == "" {
			log.Printf("EXTRACTOR: Skipping csv row %d: facility name is empty.", i+1)
			continue
		}
		row.Latitude = parseFloatField(record[3])
		row.Longitude = parseFloatField(record[4])
		row.WalkingDistance = parseIntField(record[5])
		row.WalkingMinutes = parseIntField(record[6])
		row.StraightDistance = parseIntField(record[7])
		rows = append(rows, row)
	}

	if len(rows) == 0 {
		return nil, &models.ValidationError{Field: "csv", Reason: "no valid rows found"}
	}
	return rows, nil
}

// Numeric CSV fields default to zero when blank or malformed, matching the
// metadata defaults.
func parseFloatField(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0.0
	}
	return v
}

func parseIntField(s string) int {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return int(v)
}

// extractTextFromPDF uses UniPDF to get all text from a PDF file.
func extractTextFromPDF(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	pdfReader, err := model.NewPdfReader(f)
	if err != nil {
		return "", err
	}

	numPages, err := pdfReader.GetNumPages()
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i := 1; i <= numPages; i++ {
		page, err := pdfReader.GetPage(i)
		if err != nil {
			return "", err
		}

		ex, err := extractor.New(page)
		if err != nil {
			return "", err
		}

		text, err := ex.ExtractText()
		if err != nil {
			return "", err
		}
		sb.WriteString(text)
		sb.WriteString("\n\n") // Add space between pages
	}

	return sb.String(), nil
}
