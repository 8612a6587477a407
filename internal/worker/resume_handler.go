package worker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"chatResume/internal/ats"
	"chatResume/internal/database"
	"chatResume/internal/errcode"
	"chatResume/internal/pdf"
	"chatResume/internal/profile"
	"chatResume/internal/storage"
	"chatResume/internal/tasks"
)

// ResumeTaskHandler 负责消费简历生成任务：渲染 PDF、上传到对象存储、
// 跑 ATS 评估并把结果通知到会话频道。
type ResumeTaskHandler struct {
	db          *gorm.DB
	storage     *storage.Client
	redisClient *redis.Client
	analyzer    *ats.Analyzer
	logger      *slog.Logger
}

// NewResumeTaskHandler 创建任务处理器。
func NewResumeTaskHandler(
	db *gorm.DB,
	storageClient *storage.Client,
	redisClient *redis.Client,
	analyzer *ats.Analyzer,
	logger *slog.Logger,
) *ResumeTaskHandler {
	return &ResumeTaskHandler{
		db:          db,
		storage:     storageClient,
		redisClient: redisClient,
		analyzer:    analyzer,
		logger:      logger,
	}
}

// ProcessTask 实现 asynq.Handler。
func (h *ResumeTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.ResumeGeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return err
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("resume_id", int(payload.ResumeID)),
	)
	log.Info("starting resume generation task")

	var resume database.Resume
	if err := h.db.WithContext(ctx).First(&resume, payload.ResumeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("resume not found, skipping task")
			return nil
		}
		log.Error("query resume failed", slog.Any("error", err))
		return err
	}

	defer func() {
		if retErr == nil {
			return
		}
		// 仅在最后一次尝试失败时把失败状态落库并通知，避免重试期间误报。
		if !isFinalAsynqAttempt(ctx) {
			return
		}

		if err := h.db.WithContext(ctx).Model(&resume).
			Update("status", database.ResumeStatusFailed).Error; err != nil {
			log.Error("mark resume failed", slog.Any("error", err))
		}

		code := errcode.SystemError
		if errors.Is(retErr, ErrTemplateNotFound) {
			code = errcode.ResourceMissing
		}
		notify := ResumeGenerationNotifyMessage{
			Status:        "error",
			ResumeID:      resume.ID,
			CorrelationID: payload.CorrelationID,
			ErrorCode:     code,
			ErrorMessage:  strings.TrimSpace(retErr.Error()),
		}
		if err := h.publishNotify(ctx, resume.SessionID, notify); err != nil {
			log.Error("publish error notification failed", slog.Any("error", err))
		}
	}()

	var user profile.UserData
	if err := json.Unmarshal(resume.UserData, &user); err != nil {
		log.Error("decode resume user data failed", slog.Any("error", err))
		return err
	}
	user, err := profile.Validate(user)
	if err != nil {
		log.Error("stored user data failed validation", slog.Any("error", err))
		return err
	}

	// PDF 在无头浏览器里渲染，相对路径的照片引用解析不到，
	// 这里先把对象存储里的照片内联成 data URI。
	if user.PhotoURL != "" {
		src, err := h.inlinePhoto(ctx, resume.SessionID, user.PhotoURL)
		if err != nil {
			log.Warn("inline photo failed, rendering without photo", slog.Any("error", err))
			src = ""
		}
		user.PhotoURL = src
	}

	html, err := RenderResumeHTML(user, resume.Template)
	if err != nil {
		if errors.Is(err, ErrTemplateNotFound) {
			// 配置性错误，重试不会改变结果。
			log.Error("resume template missing", slog.String("template", resume.Template))
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		log.Error("render resume html failed", slog.Any("error", err))
		return err
	}

	pdfBytes, err := pdf.GenerateFromHTML(html)
	if err != nil {
		log.Error("generate pdf failed", slog.Any("error", err))
		return err
	}

	objectName := fmt.Sprintf("generated-resumes/%s/%s.pdf", resume.SessionID, uuid.NewString())
	pdfReader := bytes.NewReader(pdfBytes)
	if _, err := h.storage.UploadFile(ctx, objectName, pdfReader, int64(len(pdfBytes)), "application/pdf"); err != nil {
		log.Error("upload pdf to storage failed", slog.Any("error", err))
		return err
	}

	report, err := h.analyzer.AnalyzePDFForDomain(pdfBytes, string(user.Domain))
	if err != nil {
		// ATS 评估失败降级为空报告，不阻断简历产出。
		log.Warn("ats analysis failed, continuing with empty report", slog.Any("error", err))
		report = ats.Report{}
	}

	reportJSON, err := json.Marshal(report)
	if err != nil {
		log.Error("marshal ats report failed", slog.Any("error", err))
		return err
	}

	update := map[string]any{
		"pdf_url":    objectName,
		"status":     database.ResumeStatusCompleted,
		"ats_report": reportJSON,
	}
	if err := h.db.WithContext(ctx).Model(&resume).Updates(update).Error; err != nil {
		log.Error("update resume failed", slog.Any("error", err))
		return err
	}

	notify := ResumeGenerationNotifyMessage{
		Status:        "completed",
		ResumeID:      resume.ID,
		CorrelationID: payload.CorrelationID,
		ATSScore:      report.Score,
		ATSMaxScore:   report.MaxScore,
		ErrorCode:     errcode.OK,
	}
	if err := h.publishNotify(ctx, resume.SessionID, notify); err != nil {
		log.Error("publish redis notification failed", slog.Any("error", err))
		return err
	}

	log.Info("resume generation task completed", slog.Int("ats_score", report.Score))
	return nil
}

// inlinePhoto 从对象存储读出照片并编码为 data URI。
func (h *ResumeTaskHandler) inlinePhoto(ctx context.Context, sessionID, photoURL string) (string, error) {
	objectKey := photoObjectKey(sessionID, photoURL)
	obj, err := h.storage.GetObject(ctx, objectKey)
	if err != nil {
		return "", fmt.Errorf("get photo object %q: %w", objectKey, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return "", fmt.Errorf("read photo object %q: %w", objectKey, err)
	}
	return photoDataURI(objectKey, data), nil
}

// photoObjectKey 由会话 ID 和清洗后的照片路径还原上传时的对象键。
func photoObjectKey(sessionID, photoURL string) string {
	return fmt.Sprintf("uploads/%s/%s", sessionID, path.Base(photoURL))
}

func photoDataURI(name string, data []byte) string {
	contentType := mime.TypeByExtension(strings.ToLower(path.Ext(name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func (h *ResumeTaskHandler) publishNotify(ctx context.Context, sessionID string, notify ResumeGenerationNotifyMessage) error {
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	channel := NotifyChannel(sessionID)
	if err := h.redisClient.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publish redis notification to %q: %w", channel, err)
	}
	return nil
}

// NotifyChannel 返回会话的通知频道名，生产者与 WebSocket 订阅方共用。
func NotifyChannel(sessionID string) string {
	return "session_notify:" + sessionID
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
