package api

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"chatResume/internal/api/middleware"
	"chatResume/internal/nlp"
)

// AnalyzeHandler 暴露可选的 NLP 文本分析能力。
type AnalyzeHandler struct {
	extractor nlp.Extractor
}

// NewAnalyzeHandler 构造 AnalyzeHandler。extractor 允许为 nil。
func NewAnalyzeHandler(extractor nlp.Extractor) *AnalyzeHandler {
	return &AnalyzeHandler{extractor: extractor}
}

type analyzeRequest struct {
	Text string `json:"text" binding:"required"`
}

// AnalyzeText 对一段文本做综合分析，供前端实时反馈。
func (h *AnalyzeHandler) AnalyzeText(c *gin.Context) {
	if h.extractor == nil {
		ServiceUnavailable(c, "text analysis is not enabled")
		return
	}

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		BadRequest(c, "no text provided")
		return
	}

	analysis, err := h.extractor.ComprehensiveAnalysis(c.Request.Context(), req.Text)
	if err != nil {
		middleware.LoggerFromContext(c).Error("text analysis failed", slog.Any("error", err))
		Internal(c, "text analysis failed")
		return
	}

	c.JSON(http.StatusOK, analysis)
}

// ExtractEntities 从一段文本中抽取简历要素。
func (h *AnalyzeHandler) ExtractEntities(c *gin.Context) {
	if h.extractor == nil {
		ServiceUnavailable(c, "text analysis is not enabled")
		return
	}

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	entities, err := h.extractor.ExtractEntities(c.Request.Context(), req.Text)
	if err != nil {
		middleware.LoggerFromContext(c).Error("entity extraction failed", slog.Any("error", err))
		Internal(c, "entity extraction failed")
		return
	}

	c.JSON(http.StatusOK, entities)
}
