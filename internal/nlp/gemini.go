package nlp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"
)

// geminiExtractor 通过 Gemini API 实现 Extractor。
type geminiExtractor struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiExtractor 构造基于 Gemini 的抽取器。apiKey 为空时返回 nil
// Extractor（能力关闭），这不是错误。
func NewGeminiExtractor(ctx context.Context, apiKey, model string, logger *slog.Logger) (Extractor, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, nil
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &geminiExtractor{
		client: client,
		model:  model,
		logger: logger,
	}, nil
}

const extractPrompt = `Extract resume entities from the text below.
Respond with JSON only, no markdown fences, matching:
{"skills": [...], "companies": [...], "education": [...]}

Text:
%s`

const analysisPrompt = `Analyze the resume text below.
Respond with JSON only, no markdown fences, matching:
{"readability_score": <0-100>, "keyword_density": <0-1>, "action_verbs": [...]}

Text:
%s`

func (g *geminiExtractor) ExtractEntities(ctx context.Context, text string) (Entities, error) {
	var entities Entities
	if err := g.generateJSON(ctx, fmt.Sprintf(extractPrompt, clampText(text)), &entities); err != nil {
		return Entities{}, fmt.Errorf("extract entities: %w", err)
	}
	return entities, nil
}

func (g *geminiExtractor) ComprehensiveAnalysis(ctx context.Context, text string) (Analysis, error) {
	var analysis Analysis
	if err := g.generateJSON(ctx, fmt.Sprintf(analysisPrompt, clampText(text)), &analysis); err != nil {
		return Analysis{}, fmt.Errorf("comprehensive analysis: %w", err)
	}
	return analysis, nil
}

const maxAttempts = 3

func (g *geminiExtractor) generateJSON(ctx context.Context, prompt string, out any) error {
	temperature := float32(0)
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temperature,
		MaxOutputTokens: 2048,
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), cfg)
		if err != nil {
			lastErr = err
			g.logger.Warn("gemini request failed", slog.Int("attempt", attempt), slog.Any("error", err))
			continue
		}

		text := strings.TrimSpace(resp.Text())
		if text == "" {
			lastErr = fmt.Errorf("empty model response")
			continue
		}

		if err := json.Unmarshal([]byte(stripFences(text)), out); err != nil {
			lastErr = fmt.Errorf("decode model response: %w", err)
			g.logger.Warn("gemini response not valid json", slog.Int("attempt", attempt))
			continue
		}
		return nil
	}

	return fmt.Errorf("gemini after %d attempts: %w", maxAttempts, lastErr)
}

// stripFences 容忍模型偶尔返回 markdown 围栏包裹的 JSON。
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(s, "```")
	}
	return strings.TrimSpace(s)
}

func clampText(text string) string {
	const maxLen = 40000
	if len(text) <= maxLen {
		return text
	}
	// 在字符边界截断，不给模型喂半个多字节字符。
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(text[cut]) {
		cut--
	}
	return text[:cut]
}
