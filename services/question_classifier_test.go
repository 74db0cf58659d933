package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuestionTypePlainJSON(t *testing.T) {
	parsed, err := parseQuestionType(`{"type": "facility", "confidence": 0.92, "reason": "施設の位置を尋ねている"}`)
	require.NoError(t, err)
	assert.Equal(t, "facility", parsed.Type)
	assert.Equal(t, 0.92, parsed.Confidence)
	assert.Equal(t, "施設の位置を尋ねている", parsed.Reason)
}

func TestParseQuestionTypeStripsCodeFence(t *testing.T) {
	text := "```json\n{\"type\": \"area\", \"confidence\": 0.8, \"reason\": \"地域の治安\"}\n```"
	parsed, err := parseQuestionType(text)
	require.NoError(t, err)
	assert.Equal(t, "area", parsed.Type)
}

func TestParseQuestionTypeRejectsGarbage(t *testing.T) {
	_, err := parseQuestionType("分類できません")
	assert.Error(t, err)

	_, err = parseQuestionType(`{"type": "weather", "confidence": 0.9}`)
	assert.Error(t, err)

	_, err = parseQuestionType(`{"type": "property", "confidence": 1.5}`)
	assert.Error(t, err)
}
