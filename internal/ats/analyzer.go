package ats

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Report 是一次 ATS 评估的结果。
type Report struct {
	Score           int      `json:"score"`
	MaxScore        int      `json:"max_score"`
	KeywordMatches  []string `json:"keyword_matches"`
	KeywordsMissing []string `json:"keywords_missing"`
	SectionsMissing []string `json:"sections_missing"`
	HasBulletPoints bool     `json:"has_bullet_points"`
	HasDates        bool     `json:"has_dates"`
	ImprovementTips []string `json:"improvement_tips"`
}

// Analyzer 对简历文本做关键词/段落覆盖检查。
type Analyzer struct {
	keywords         []string
	requiredSections []string
}

var (
	bulletPattern = regexp.MustCompile(`[•⸰◦‣]`)
	datePattern   = regexp.MustCompile(`(?i)\b(20\d{2}|present)\b`)
)

// 行业附加关键词：在配置的通用词表之外，按简历所属行业补充打分维度。
var domainKeywords = map[string][]string{
	"IT":          {"software", "cloud", "agile", "api"},
	"Healthcare":  {"patient", "clinical", "care", "compliance"},
	"Marketing":   {"campaign", "brand", "seo", "analytics"},
	"Finance":     {"budget", "forecasting", "audit", "reporting"},
	"Engineering": {"design", "cad", "manufacturing", "quality"},
	"Education":   {"curriculum", "teaching", "assessment", "mentoring"},
}

// NewAnalyzer 构造分析器。
func NewAnalyzer(keywords, requiredSections []string) *Analyzer {
	return &Analyzer{
		keywords:         keywords,
		requiredSections: requiredSections,
	}
}

// Score 对纯文本执行关键词匹配、段落完整性与格式检查。
func (a *Analyzer) Score(resumeText string) Report {
	return a.score(resumeText, a.keywords)
}

// ScoreForDomain 在通用词表之上叠加该行业的附加关键词后打分。
// 未知行业不加词，退化为 Score。
func (a *Analyzer) ScoreForDomain(resumeText, domain string) Report {
	return a.score(resumeText, mergeKeywords(a.keywords, domainKeywords[domain]))
}

func (a *Analyzer) score(resumeText string, keywords []string) Report {
	lower := strings.ToLower(resumeText)

	report := Report{
		MaxScore: len(keywords),
	}

	for _, kw := range keywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			report.KeywordMatches = append(report.KeywordMatches, kw)
		} else {
			report.KeywordsMissing = append(report.KeywordsMissing, kw)
		}
	}
	report.Score = len(report.KeywordMatches)

	for _, section := range a.requiredSections {
		pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(section) + `\b`)
		if !pattern.MatchString(resumeText) {
			report.SectionsMissing = append(report.SectionsMissing, section)
		}
	}

	report.HasBulletPoints = bulletPattern.MatchString(resumeText)
	report.HasDates = datePattern.MatchString(resumeText)
	report.ImprovementTips = tips(report)

	return report
}

// AnalyzePDF 从 PDF 字节中抽取纯文本后执行 Score。
func (a *Analyzer) AnalyzePDF(data []byte) (Report, error) {
	return a.AnalyzePDFForDomain(data, "")
}

// AnalyzePDFForDomain 抽取 PDF 纯文本后按行业词表打分。
func (a *Analyzer) AnalyzePDFForDomain(data []byte, domain string) (Report, error) {
	text, err := extractText(data)
	if err != nil {
		return Report{}, fmt.Errorf("extract pdf text: %w", err)
	}
	return a.ScoreForDomain(text, domain), nil
}

func mergeKeywords(base, extra []string) []string {
	if len(extra) == 0 {
		return base
	}
	seen := make(map[string]struct{}, len(base)+len(extra))
	merged := make([]string, 0, len(base)+len(extra))
	for _, kw := range base {
		seen[strings.ToLower(kw)] = struct{}{}
		merged = append(merged, kw)
	}
	for _, kw := range extra {
		key := strings.ToLower(kw)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		merged = append(merged, kw)
	}
	return merged
}

func tips(report Report) []string {
	var result []string
	if len(report.KeywordsMissing) > 0 {
		limit := len(report.KeywordsMissing)
		if limit > 3 {
			limit = 3
		}
		result = append(result, "Add missing keywords: "+strings.Join(report.KeywordsMissing[:limit], ", "))
	}
	if len(report.SectionsMissing) > 0 {
		result = append(result, "Add missing sections: "+strings.Join(report.SectionsMissing, ", "))
	}
	if !report.HasBulletPoints {
		result = append(result, "Use bullet points for better readability")
	}
	return result
}

func extractText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var builder strings.Builder
	totalPages := reader.NumPage()
	for pageIndex := 1; pageIndex <= totalPages; pageIndex++ {
		page := reader.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// 单页解析失败不致命，继续处理其余页面。
			continue
		}
		builder.WriteString(text)
		builder.WriteString("\n\n")
	}

	text := builder.String()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("no text content found in pdf")
	}
	return text, nil
}
