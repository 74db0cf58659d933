package services

import (
	"regexp"
	"strings"

	"github.com/machirag/server/models"
)

// subCategory is one keyword-scored (main, sub) pair.
type subCategory struct {
	Name     string
	Keywords []string
}

// mainCategory groups subcategories under one main label. Declaration order
// is the tie-break order.
type mainCategory struct {
	Name string
	Subs []subCategory
}

const (
	historyMainCategory = "地域特性・街のプロフィール"
	historySubCategory  = "街の歴史・地域史"

	timetableMainCategory = "交通・アクセス"
	timetableSubCategory  = "バス路線・本数"

	// ハザードマップ情報は問い合わせ頻度が高いため重み2で加点する。
	highPrioritySubCategory = "ハザードマップ（洪水・地震）"

	overrideLineWeight   = 2.0
	highPriorityWeight   = 2.0
	defaultKeywordWeight = 1.0

	timetableConfidence = 0.9
)

// defaultCategoryTable is the static classification table, loaded once at
// process start and never mutated. Category names follow the metadata
// taxonomy used on upload.
var defaultCategoryTable = []mainCategory{
	{
		Name: "物件概要",
		Subs: []subCategory{
			{Name: "間取り・仕様", Keywords: []string{"間取り", "LDK", "専有面積", "仕様"}},
			{Name: "価格・費用", Keywords: []string{"価格", "万円", "管理費", "修繕積立金", "費用"}},
			{Name: "設備・オプション", Keywords: []string{"設備", "床暖房", "食洗機", "オプション"}},
		},
	},
	{
		Name: historyMainCategory,
		Subs: []subCategory{
			{Name: historySubCategory, Keywords: []string{"歴史", "城下町", "史跡", "文化財"}},
			{Name: "観光・地元特産品・名産・グルメ", Keywords: []string{"観光", "名産", "特産", "名所"}},
			{Name: "自然環境", Keywords: []string{"緑地", "河川", "自然", "桜並木"}},
		},
	},
	{
		Name: "教育・子育て",
		Subs: []subCategory{
			{Name: "保育園・幼稚園", Keywords: []string{"保育園", "幼稚園", "保育所"}},
			{Name: "小学校・中学校", Keywords: []string{"小学校", "中学校", "学区"}},
			{Name: "子育て支援制度", Keywords: []string{"子育て支援", "児童手当", "医療費助成"}},
		},
	},
	{
		Name: timetableMainCategory,
		Subs: []subCategory{
			{Name: "最寄り駅・路線", Keywords: []string{"駅", "路線", "急行", "快速"}},
			{Name: timetableSubCategory, Keywords: []string{"バス", "時刻表", "系統", "運行"}},
			{Name: "通勤・通学時間", Keywords: []string{"通勤", "通学", "所要時間"}},
		},
	},
	{
		Name: "安全・防災",
		Subs: []subCategory{
			{Name: highPrioritySubCategory, Keywords: []string{"ハザードマップ", "洪水", "浸水", "液状化"}},
			{Name: "避難場所・防災拠点", Keywords: []string{"避難", "防災拠点", "備蓄"}},
			{Name: "防犯カメラ・交番の有無", Keywords: []string{"防犯", "交番", "パトロール"}},
		},
	},
	{
		Name: "生活利便性",
		Subs: []subCategory{
			{Name: "スーパー・買い物環境", Keywords: []string{"スーパー", "商店街", "買い物"}},
			{Name: "病院・クリニック・夜間救急", Keywords: []string{"病院", "クリニック", "救急"}},
			{Name: "飲食店・グルメスポット", Keywords: []string{"飲食店", "カフェ", "レストラン"}},
		},
	},
}

// historyOverrideKeywords claim a whole line for the local-history
// subcategory. A line matching one of these never contributes to any other
// category, so incidental generic keywords on the same line cannot dilute it.
var historyOverrideKeywords = []string{
	"城下町", "蔵造り", "小江戸", "史跡", "文化財", "宿場町", "藩", "伝統行事",
}

// timetableKeywords and timetablePatterns describe timetable-like lines.
// The structural override needs at least one keyword AND at least two
// pattern hits on the same line; one alone is ordinary prose.
var timetableKeywords = []string{"時刻表", "発車", "運行", "ダイヤ", "系統"}

var timetablePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(平日|土曜|休日|土休日)`),
	regexp.MustCompile(`(上り|下り|方面)`),
	regexp.MustCompile(`[0-9０-９]{1,2}[:：][0-9０-９]{2}|[0-9０-９]{1,2}時台`),
}

// Classifier assigns a (main category, subcategory, confidence) label to a
// chunk by keyword scoring with two overrides evaluated per line.
type Classifier struct {
	table []mainCategory
}

// NewClassifier builds a classifier over the default category table.
func NewClassifier() *Classifier {
	return &Classifier{table: defaultCategoryTable}
}

// Classify labels one chunk. The result is a pure function of the text.
func (c *Classifier) Classify(text string) models.ClassificationResult {
	mainScores := make(map[string]float64)
	subScores := make(map[string]map[string]float64)
	timetableFired := false

	addScore := func(main, sub string, weight float64) {
		mainScores[main] += weight
		if subScores[main] == nil {
			subScores[main] = make(map[string]float64)
		}
		subScores[main][sub] += weight
	}

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if containsAny(line, historyOverrideKeywords) {
			addScore(historyMainCategory, historySubCategory, overrideLineWeight)
			continue
		}

		if containsAny(line, timetableKeywords) && countPatternHits(line, timetablePatterns) >= 2 {
			timetableFired = true
			addScore(timetableMainCategory, timetableSubCategory, overrideLineWeight)
			continue
		}

		for _, main := range c.table {
			for _, sub := range main.Subs {
				weight := defaultKeywordWeight
				if sub.Name == highPrioritySubCategory {
					weight = highPriorityWeight
				}
				for _, kw := range sub.Keywords {
					if n := strings.Count(line, kw); n > 0 {
						addScore(main.Name, sub.Name, float64(n)*weight)
					}
				}
			}
		}
	}

	// History evidence wins a tie against structural evidence: retract the
	// timetable override when the history subcategory out-scored it.
	if timetableFired {
		historyScore := subScores[historyMainCategory][historySubCategory]
		timetableScore := subScores[timetableMainCategory][timetableSubCategory]
		if historyScore > timetableScore {
			timetableFired = false
		}
	}
	if timetableFired {
		return models.ClassificationResult{
			MainCategory: timetableMainCategory,
			SubCategory:  timetableSubCategory,
			Confidence:   timetableConfidence,
		}
	}

	var total float64
	for _, score := range mainScores {
		total += score
	}
	if total == 0 {
		return models.ClassificationResult{}
	}

	// Strict > keeps ties resolved in table-declaration order.
	bestMain := ""
	bestMainScore := 0.0
	for _, main := range c.table {
		if score := mainScores[main.Name]; score > bestMainScore {
			bestMain = main.Name
			bestMainScore = score
		}
	}
	if bestMain == "" {
		return models.ClassificationResult{}
	}

	bestSub := ""
	bestSubScore := 0.0
	for _, main := range c.table {
		if main.Name != bestMain {
			continue
		}
		for _, sub := range main.Subs {
			if score := subScores[bestMain][sub.Name]; score > bestSubScore {
				bestSub = sub.Name
				bestSubScore = score
			}
		}
	}

	return models.ClassificationResult{
		MainCategory: bestMain,
		SubCategory:  bestSub,
		Confidence:   bestMainScore / total,
	}
}

func containsAny(line string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}

func countPatternHits(line string, patterns []*regexp.Regexp) int {
	hits := 0
	for _, p := range patterns {
		if p.MatchString(line) {
			hits++
		}
	}
	return hits
}
