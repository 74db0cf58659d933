package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/tmc/langchaingo/prompts"
	"google.golang.org/genai"

	"github.com/machirag/server/models"
)

// questionTypeConfidenceCut is the minimum confidence required before a
// question type is acted on.
const questionTypeConfidenceCut = 0.7

const questionTypePromptTemplate = `あなたは質問のタイプを判別する専門家です。
以下の3つのカテゴリーに分類してください：

1. facility (施設情報)
- コンビニ、スーパー、病院などの施設に関する質問
- 位置情報や距離情報が重要な場合

2. area (地域情報)
- 治安、交通、教育などの地域特性に関する質問
- 定性的な情報が重要な場合

3. property (物件情報)
- 価格、間取り、設備などの物件特性に関する質問
- 数値情報と定性的情報の両方が重要な場合

以下の形式のJSONのみを出力してください：
{"type": "facility|area|property", "confidence": 0.0, "reason": "判別理由"}

質問: {{.question}}`

// QuestionClassifier labels a user question as facility/area/property via a
// single generative-model call. It is boundary plumbing: the pipeline never
// depends on it.
type QuestionClassifier struct {
	client *genai.Client
	model  string
	prompt prompts.PromptTemplate
}

// NewQuestionClassifier builds a classifier over the given Gemini client.
func NewQuestionClassifier(client *genai.Client, model string) *QuestionClassifier {
	return &QuestionClassifier{
		client: client,
		model:  model,
		prompt: prompts.NewPromptTemplate(questionTypePromptTemplate, []string{"question"}),
	}
}

// Classify returns the question type with a confidence and a reason.
func (q *QuestionClassifier) Classify(ctx context.Context, question string) (*models.QuestionTypeResponse, error) {
	if strings.TrimSpace(question) == "" {
		return nil, &models.ValidationError{Field: "question", Reason: "question must not be empty"}
	}

	rendered, err := q.prompt.Format(map[string]any{"question": question})
	if err != nil {
		return nil, fmt.Errorf("failed to render question prompt: %w", err)
	}

	result, err := q.client.Models.GenerateContent(ctx, q.model, genai.Text(rendered), nil)
	if err != nil {
		return nil, fmt.Errorf("question classification call failed: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("question classification returned no candidates")
	}

	var responseText strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" {
			responseText.WriteString(part.Text)
		}
	}

	parsed, err := parseQuestionType(responseText.String())
	if err != nil {
		return nil, err
	}
	log.Printf("SERVICE: Question classified as %s (confidence %.2f).", parsed.Type, parsed.Confidence)
	return parsed, nil
}

// QuestionTypeFor returns the type only when the model is confident enough,
// else the empty string.
func (q *QuestionClassifier) QuestionTypeFor(ctx context.Context, question string) (string, error) {
	result, err := q.Classify(ctx, question)
	if err != nil {
		return "", err
	}
	if result.Confidence >= questionTypeConfidenceCut {
		return result.Type, nil
	}
	return "", nil
}

// parseQuestionType extracts the first JSON object from the model output;
// models occasionally wrap the JSON in prose or code fences.
func parseQuestionType(text string) (*models.QuestionTypeResponse, error) {
	start := strings.Index(text, "{")
	if start == -1 {
		return nil, fmt.Errorf("no JSON object found in classifier response: %q", text)
	}
	end := strings.Index(text[start:], "}")
	if end == -1 {
		return nil, fmt.Errorf("no JSON object found in classifier response: %q", text)
	}
	jsonText := text[start : start+end+1]

	var parsed models.QuestionTypeResponse
	if err := json.Unmarshal([]byte(jsonText), &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse classifier response: %w", err)
	}
	switch parsed.Type {
	case "facility", "area", "property":
	default:
		return nil, fmt.Errorf("unknown question type %q", parsed.Type)
	}
	if parsed.Confidence < 0 || parsed.Confidence > 1 {
		return nil, fmt.Errorf("classifier confidence %f out of range", parsed.Confidence)
	}
	return &parsed, nil
}
