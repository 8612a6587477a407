package nlp

import "context"

// Entities 是从自由文本中抽取出的简历要素。
type Entities struct {
	Skills    []string `json:"skills"`
	Companies []string `json:"companies"`
	Education []string `json:"education"`
}

// Analysis 是对一段简历文本的综合度量。
type Analysis struct {
	ReadabilityScore float64  `json:"readability_score"`
	KeywordDensity   float64  `json:"keyword_density"`
	ActionVerbs      []string `json:"action_verbs"`
}

// Extractor 是可选注入的文本分析能力。调用方必须容忍 nil Extractor：
// 该能力缺席时对话流程照常进行。
type Extractor interface {
	ExtractEntities(ctx context.Context, text string) (Entities, error)
	ComprehensiveAnalysis(ctx context.Context, text string) (Analysis, error)
}
