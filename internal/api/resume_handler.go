package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"gorm.io/gorm"

	"chatResume/internal/api/middleware"
	"chatResume/internal/chatbot"
	"chatResume/internal/database"
	"chatResume/internal/profile"
	"chatResume/internal/storage"
	"chatResume/internal/tasks"
)

// ResumeHandler 负责简历生成请求与产物访问。
type ResumeHandler struct {
	db              *gorm.DB
	asynqClient     *asynq.Client
	storage         *storage.Client
	engine          *chatbot.Engine
	templates       []string
	defaultTemplate string
}

// NewResumeHandler 构造 ResumeHandler。
func NewResumeHandler(
	db *gorm.DB,
	asynqClient *asynq.Client,
	storageClient *storage.Client,
	engine *chatbot.Engine,
	templates []string,
	defaultTemplate string,
) *ResumeHandler {
	return &ResumeHandler{
		db:              db,
		asynqClient:     asynqClient,
		storage:         storageClient,
		engine:          engine,
		templates:       templates,
		defaultTemplate: defaultTemplate,
	}
}

var errInvalidResumeID = errors.New("invalid resume id")

type generateResumeRequest struct {
	Template string `json:"template"`
}

// GenerateResume 校验会话数据、创建简历记录并把渲染任务入队，立即返回 202。
func (h *ResumeHandler) GenerateResume(c *gin.Context) {
	// 空请求体是合法的：使用会话中选定的模板。
	var req generateResumeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, err.Error())
			return
		}
	}

	sessionID, ok := middleware.SessionIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	snap, ok := h.engine.Snapshot(sessionID)
	if !ok {
		NotFound(c, "session data not found")
		return
	}

	templateName := req.Template
	if templateName == "" {
		templateName = snap.Template
	}
	if templateName == "" {
		templateName = h.defaultTemplate
	}
	if !h.isKnownTemplate(templateName) {
		BadRequest(c, "unknown template")
		return
	}

	validated, err := profile.Validate(snap.UserData)
	if err != nil {
		var verr *profile.ValidationError
		if errors.As(err, &verr) {
			BadRequest(c, verr.Error())
			return
		}
		Internal(c, "failed to validate resume data")
		return
	}

	userData, err := json.Marshal(validated)
	if err != nil {
		Internal(c, "failed to encode resume data")
		return
	}

	ctx := c.Request.Context()
	resume := database.Resume{
		SessionID: sessionID,
		UserData:  userData,
		Template:  templateName,
		Status:    database.ResumeStatusPending,
	}
	if err := h.db.WithContext(ctx).Create(&resume).Error; err != nil {
		Internal(c, "failed to create resume")
		return
	}

	correlationID := middleware.GetCorrelationID(c)
	task, err := tasks.NewResumeGenerateTask(resume.ID, correlationID)
	if err != nil {
		Internal(c, "failed to create task")
		return
	}

	info, err := h.asynqClient.Enqueue(task, asynq.MaxRetry(5))
	if err != nil {
		Internal(c, "failed to enqueue resume generation")
		return
	}

	progress := h.engine.MarkCompleted(sessionID)

	c.JSON(http.StatusAccepted, gin.H{
		"message":   "resume generation request accepted",
		"resume_id": resume.ID,
		"task_id":   info.ID,
		"progress":  progress,
	})
}

// GetResume 返回生成状态与 ATS 报告。
func (h *ResumeHandler) GetResume(c *gin.Context) {
	sessionID, ok := middleware.SessionIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resume, err := h.getResumeForSession(c, sessionID)
	if err != nil {
		return
	}

	response := gin.H{
		"resume_id": resume.ID,
		"template":  resume.Template,
		"status":    resume.Status,
		"pdf_ready": resume.PdfUrl != "",
	}
	if len(resume.ATSReport) > 0 {
		response["ats_report"] = json.RawMessage(resume.ATSReport)
	}

	c.JSON(http.StatusOK, response)
}

// GetDownloadLink 生成简历 PDF 的预签名下载链接。
func (h *ResumeHandler) GetDownloadLink(c *gin.Context) {
	sessionID, ok := middleware.SessionIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	resume, err := h.getResumeForSession(c, sessionID)
	if err != nil {
		return
	}

	if resume.PdfUrl == "" {
		Conflict(c, "pdf not ready")
		return
	}

	signedURL, err := h.storage.GeneratePresignedURL(c.Request.Context(), resume.PdfUrl, 5*time.Minute)
	if err != nil {
		if storage.IsNoSuchKey(err) {
			NotFound(c, "pdf object missing")
			return
		}
		middleware.LoggerFromContext(c).Error("generate download link failed", slog.Any("error", err))
		Internal(c, "failed to generate download link")
		return
	}

	c.JSON(http.StatusOK, gin.H{"url": signedURL})
}

// getResumeForSession 读取属于当前会话的简历，并就地写出错误响应。
func (h *ResumeHandler) getResumeForSession(c *gin.Context, sessionID string) (*database.Resume, error) {
	resumeID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		BadRequest(c, "invalid resume id")
		return nil, errInvalidResumeID
	}

	var resume database.Resume
	if err := h.db.WithContext(c.Request.Context()).
		Where("id = ? AND session_id = ?", uint(resumeID), sessionID).
		First(&resume).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "resume not found")
		} else {
			Internal(c, "failed to query resume")
		}
		return nil, err
	}

	return &resume, nil
}

func (h *ResumeHandler) isKnownTemplate(name string) bool {
	for _, t := range h.templates {
		if t == name {
			return true
		}
	}
	return false
}
