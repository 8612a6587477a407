package api

import (
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"chatResume/internal/api/middleware"
	"chatResume/internal/chatbot"
	"chatResume/internal/config"
	"chatResume/internal/profile"
	"chatResume/internal/storage"
)

// PhotoHandler 负责处理照片上传：白名单校验、可选病毒扫描、
// 对象存储落盘，并把安全路径写回会话数据。
type PhotoHandler struct {
	storage     *storage.Client
	engine      *chatbot.Engine
	redisClient *redis.Client
	logger      *slog.Logger
	cfg         config.UploadConfig
}

// NewPhotoHandler 返回 PhotoHandler 实例。
func NewPhotoHandler(
	storageClient *storage.Client,
	engine *chatbot.Engine,
	redisClient *redis.Client,
	logger *slog.Logger,
	cfg config.UploadConfig,
) *PhotoHandler {
	return &PhotoHandler{
		storage:     storageClient,
		engine:      engine,
		redisClient: redisClient,
		logger:      logger,
		cfg:         cfg,
	}
}

// UploadPhoto 处理照片上传。
func (h *PhotoHandler) UploadPhoto(c *gin.Context) {
	sessionID, ok := middleware.SessionIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	file, err := c.FormFile("photo")
	if err != nil {
		BadRequest(c, "no file uploaded")
		return
	}

	if file.Size > h.cfg.MaxBytes {
		Error(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("file size exceeds %d bytes", h.cfg.MaxBytes))
		return
	}

	contentType := file.Header.Get("Content-Type")
	if !h.isAllowedMIME(contentType) {
		BadRequest(c, "unsupported file type")
		return
	}

	// 每会话每日上传配额，防止匿名会话刷爆存储。
	if h.cfg.MaxPerDay > 0 {
		count, err := registerDailyUpload(c.Request.Context(), h.redisClient, sessionID)
		if err != nil {
			h.logger.Warn("upload rate counter failed, allowing upload", slog.Any("error", err))
		} else if count > int64(h.cfg.MaxPerDay) {
			Forbidden(c, "daily upload limit reached")
			return
		}
	}

	if h.cfg.ClamdAddr != "" {
		if ok := h.scanUpload(c, file); !ok {
			return
		}
	}

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	defer fileReader.Close()

	baseName := uuid.NewString() + strings.ToLower(filepath.Ext(file.Filename))
	objectKey := fmt.Sprintf("uploads/%s/%s", sessionID, baseName)
	if _, err := h.storage.UploadFile(c.Request.Context(), objectKey, fileReader, file.Size, contentType); err != nil {
		h.logger.Error("upload photo failed", slog.Any("error", err))
		Internal(c, "failed to upload file")
		return
	}

	photoURL := "/uploads/" + baseName
	if err := h.engine.SetPhotoURL(sessionID, photoURL); err != nil {
		var verr *profile.ValidationError
		if errors.As(err, &verr) {
			BadRequest(c, verr.Error())
			return
		}
		Internal(c, "failed to update session")
		return
	}

	previewURL, err := h.storage.GeneratePresignedURL(c.Request.Context(), objectKey, 10*time.Minute)
	if err != nil {
		h.logger.Warn("generate photo preview url failed", slog.Any("error", err))
	}

	c.JSON(http.StatusCreated, gin.H{
		"photo_url":   photoURL,
		"preview_url": previewURL,
	})
}

// scanUpload 通过 clamd 扫描上传内容；命中恶意文件或扫描失败都会
// 就地写出响应并返回 false。
func (h *PhotoHandler) scanUpload(c *gin.Context, file *multipart.FileHeader) bool {
	clamdClient := clamd.NewClamd(h.cfg.ClamdAddr)

	fileReader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return false
	}

	abortChan := make(chan bool)
	scanChan, err := clamdClient.ScanStream(fileReader, abortChan)
	fileReader.Close()
	if err != nil {
		h.logger.Error("scan file failed", slog.Any("error", err))
		Internal(c, "failed to scan file")
		return false
	}
	defer close(abortChan)

	for result := range scanChan {
		if result.Status != clamd.RES_OK {
			BadRequest(c, "malicious file detected")
			return false
		}
	}
	return true
}

func (h *PhotoHandler) isAllowedMIME(contentType string) bool {
	for _, allowed := range h.cfg.MIMEWhitelist {
		if strings.EqualFold(contentType, allowed) {
			return true
		}
	}
	return false
}
