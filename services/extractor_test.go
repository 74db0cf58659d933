package services

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"

	"github.com/machirag/server/models"
)

func TestDecodeJapaneseTextUTF8Passthrough(t *testing.T) {
	text := "そのまま読めるUTF-8のテキスト。"
	assert.Equal(t, text, DecodeJapaneseText([]byte(text)))
}

func TestDecodeJapaneseTextShiftJIS(t *testing.T) {
	text := "市役所までのアクセス案内。"
	encoded, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(text))
	require.NoError(t, err)

	assert.Equal(t, text, DecodeJapaneseText(encoded))
}

func TestDecodeJapaneseTextEUCJP(t *testing.T) {
	text := "保育園の入園手続きについて。"
	encoded, err := japanese.EUCJP.NewEncoder().Bytes([]byte(text))
	require.NoError(t, err)

	// The Shift-JIS decoder accepts these bytes too, as half-width-katakana
	// mojibake; the decoded text must come out through the EUC-JP decoder.
	assert.Equal(t, text, DecodeJapaneseText(encoded))
}

func TestDecodeJapaneseTextShiftJISWithHalfWidthKana(t *testing.T) {
	// Some half-width katakana mixed into ordinary kanji and kana is a real
	// document, not mojibake, and must not be rejected.
	text := "住所はｶﾜｺﾞｴ市内の観光案内所です。"
	encoded, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(text))
	require.NoError(t, err)

	assert.Equal(t, text, DecodeJapaneseText(encoded))
}

func TestExtractTextFromFileDecodesTxt(t *testing.T) {
	text := "城下町の歴史を紹介します。"
	encoded, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(text))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "history.txt")
	require.NoError(t, os.WriteFile(path, encoded, 0644))

	content, err := ExtractTextFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, text, content)
}

func TestExtractTextFromFileRejectsUnknownExtension(t *testing.T) {
	_, err := ExtractTextFromFile("archive.zip")
	assert.Error(t, err)
}

func TestIsSupportedFile(t *testing.T) {
	assert.True(t, IsSupportedFile("notes.txt"))
	assert.True(t, IsSupportedFile("README.MD"))
	assert.True(t, IsSupportedFile("guide.pdf"))
	assert.True(t, IsSupportedFile("facilities.csv"))
	assert.False(t, IsSupportedFile("image.png"))
	assert.False(t, IsSupportedFile("noextension"))
}

func TestParseFacilityCSV(t *testing.T) {
	content := "教育・子育て,保育園・幼稚園,ひばり保育園,35.9251,139.4858,450,6,380\n" +
		"生活利便性,スーパー・買い物環境,まるひろ百貨店,35.9180,139.4840,,,\n"

	rows, err := ParseFacilityCSV([]byte(content))
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "ひばり保育園", rows[0].FacilityName)
	assert.Equal(t, 35.9251, rows[0].Latitude)
	assert.Equal(t, 6, rows[0].WalkingMinutes)
	assert.Equal(t, "ひばり保育園は教育・子育ての保育園・幼稚園です。", rows[0].Sentence())

	// Blank numeric fields default to zero.
	assert.Zero(t, rows[1].WalkingDistance)
	assert.Zero(t, rows[1].WalkingMinutes)
}

func TestParseFacilityCSVSkipsMalformedRows(t *testing.T) {
	content := "教育・子育て,保育園・幼稚園,ひばり保育園,35.9,139.4,450,6,380\n" +
		"短すぎる行,列が足りない\n" +
		"生活利便性,病院・クリニック・夜間救急,,35.9,139.4,100,2,90\n"

	rows, err := ParseFacilityCSV([]byte(content))
	require.NoError(t, err)
	// The short row and the row with an empty facility name are skipped.
	require.Len(t, rows, 1)
	assert.Equal(t, "ひばり保育園", rows[0].FacilityName)
}

func TestParseFacilityCSVRejectsEmptyFile(t *testing.T) {
	var validationErr *models.ValidationError
	_, err := ParseFacilityCSV([]byte("壊れた行だけ,の,ファイル\n"))
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, "csv", validationErr.Field)
}
