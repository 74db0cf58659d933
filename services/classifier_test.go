package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyIsDeterministic(t *testing.T) {
	c := NewClassifier()
	text := "川越駅からバスで10分。周辺にはスーパーと病院があります。"
	first := c.Classify(text)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, c.Classify(text))
	}
}

func TestClassifyNoKeywordsYieldsZeroConfidence(t *testing.T) {
	c := NewClassifier()
	result := c.Classify("こんにちは。よろしくお願いします。")
	assert.Empty(t, result.MainCategory)
	assert.Empty(t, result.SubCategory)
	assert.Zero(t, result.Confidence)
}

func TestClassifyConfidenceBounds(t *testing.T) {
	c := NewClassifier()
	texts := []string{
		"駅まで徒歩5分、バスの運行本数も多い。",
		"保育園と小学校が近く、子育て支援も充実。",
		"ハザードマップで浸水想定区域を確認。避難場所は小学校。",
	}
	for _, text := range texts {
		result := c.Classify(text)
		assert.GreaterOrEqual(t, result.Confidence, 0.0, "text=%q", text)
		assert.LessOrEqual(t, result.Confidence, 1.0, "text=%q", text)
	}
}

func TestClassifyHistoryOverrideClaimsLine(t *testing.T) {
	c := NewClassifier()
	// 駅 would normally score for transit, but the line mentions 城下町 so the
	// whole line belongs to local history.
	result := c.Classify("川越は城下町で、駅にも近い。")
	assert.Equal(t, "地域特性・街のプロフィール", result.MainCategory)
	assert.Equal(t, "街の歴史・地域史", result.SubCategory)
	assert.InDelta(t, 1.0, result.Confidence, 1e-9)
}

func TestClassifyTimetableStructuralOverride(t *testing.T) {
	c := NewClassifier()
	result := c.Classify("バス時刻表：平日 7:30 上り方面")
	assert.Equal(t, "交通・アクセス", result.MainCategory)
	assert.Equal(t, "バス路線・本数", result.SubCategory)
	assert.InDelta(t, 0.9, result.Confidence, 1e-9)
}

func TestClassifyTimetableNeedsKeywordAndTwoPatterns(t *testing.T) {
	c := NewClassifier()

	// Keyword plus a single pattern hit is ordinary prose: it scores through
	// the generic keyword path, not the fixed-confidence override.
	result := c.Classify("時刻表には平日のダイヤが載っています。")
	assert.Equal(t, "バス路線・本数", result.SubCategory)
	assert.InDelta(t, 1.0, result.Confidence, 1e-9)

	// Pattern hits with no timetable keyword never fire the override.
	result = c.Classify("平日 7:30 上り")
	assert.Zero(t, result.Confidence)
}

func TestClassifyHistoryRetractsTimetableOverride(t *testing.T) {
	c := NewClassifier()
	text := "バス時刻表：平日 7:30 上り方面\n城下町の面影が残る。\n近くに史跡が多い。"
	result := c.Classify(text)
	assert.Equal(t, "地域特性・街のプロフィール", result.MainCategory)
	assert.Equal(t, "街の歴史・地域史", result.SubCategory)
	// History claimed 4 points against the timetable line's 2.
	assert.InDelta(t, 4.0/6.0, result.Confidence, 1e-9)
}

func TestClassifyTieBreaksInTableOrder(t *testing.T) {
	c := NewClassifier()
	// 間取り and 学区 score one point each; 物件概要 is declared first.
	result := c.Classify("間取りが良い。学区も良い。")
	assert.Equal(t, "物件概要", result.MainCategory)
	assert.Equal(t, "間取り・仕様", result.SubCategory)
	assert.InDelta(t, 0.5, result.Confidence, 1e-9)
}

func TestClassifyHazardMapWeighsDouble(t *testing.T) {
	c := NewClassifier()
	// One hazard-map keyword at weight 2 outscores one transit keyword at 1.
	result := c.Classify("ハザードマップを確認。駅がある。")
	assert.Equal(t, "安全・防災", result.MainCategory)
	assert.Equal(t, "ハザードマップ（洪水・地震）", result.SubCategory)
	assert.InDelta(t, 2.0/3.0, result.Confidence, 1e-9)
}

func TestClassifyRepeatedKeywordCounts(t *testing.T) {
	c := NewClassifier()
	// スーパー appears twice and out-scores the single 病院 mention when
	// picking the subcategory; both feed the same main category.
	result := c.Classify("スーパーの隣にまたスーパーがある。病院もある。")
	assert.Equal(t, "生活利便性", result.MainCategory)
	assert.Equal(t, "スーパー・買い物環境", result.SubCategory)
	assert.InDelta(t, 1.0, result.Confidence, 1e-9)
}
