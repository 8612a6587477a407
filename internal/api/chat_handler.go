package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"chatResume/internal/api/middleware"
	"chatResume/internal/auth"
	"chatResume/internal/chatbot"
	"chatResume/internal/database"
)

// ChatHandler 负责处理对话消息：分派给状态机、持久化会话快照、
// 签发会话令牌。
type ChatHandler struct {
	engine *chatbot.Engine
	tokens *auth.TokenService
	db     *gorm.DB
	logger *slog.Logger
}

// NewChatHandler 构造 ChatHandler。
func NewChatHandler(engine *chatbot.Engine, tokens *auth.TokenService, db *gorm.DB, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{
		engine: engine,
		tokens: tokens,
		db:     db,
		logger: logger,
	}
}

type chatRequest struct {
	Message string `json:"message" binding:"required"`
}

type chatResponse struct {
	Response     string   `json:"response"`
	Options      []string `json:"options"`
	Completed    bool     `json:"completed"`
	Progress     float64  `json:"progress"`
	CurrentState string   `json:"current_state"`
	SessionID    string   `json:"session_id"`
	SessionToken string   `json:"session_token"`
}

// HandleChat 处理一条入站聊天消息。
func (h *ChatHandler) HandleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		BadRequest(c, "empty message received")
		return
	}

	sessionID, ok := middleware.SessionIDFromContext(c)
	if !ok {
		AbortUnauthorized(c)
		return
	}

	log := middleware.LoggerFromContext(c).With(slog.String("session_id", sessionID))

	resp, err := h.engine.ProcessMessage(c.Request.Context(), sessionID, message)
	if err != nil {
		// 状态机配置被破坏属于程序错误，不能静默吞掉。
		log.Error("process message failed", slog.Any("error", err))
		Internal(c, "failed to process message")
		return
	}

	token, err := h.tokens.Issue(sessionID)
	if err != nil {
		log.Error("issue session token failed", slog.Any("error", err))
		Internal(c, "failed to issue session token")
		return
	}

	// 外部持久化是降级可恢复的：落库失败不影响对话继续。
	if err := h.persistSnapshot(c.Request.Context(), sessionID); err != nil {
		log.Warn("persist session snapshot failed", slog.Any("error", err))
	}

	c.JSON(http.StatusOK, chatResponse{
		Response:     resp.Text,
		Options:      resp.Options,
		Completed:    resp.Completed,
		Progress:     resp.Progress,
		CurrentState: string(resp.State),
		SessionID:    sessionID,
		SessionToken: token,
	})
}

func (h *ChatHandler) persistSnapshot(ctx context.Context, sessionID string) error {
	snap, ok := h.engine.Snapshot(sessionID)
	if !ok {
		return nil
	}

	userData, err := json.Marshal(snap.UserData)
	if err != nil {
		return err
	}

	record := database.SessionRecord{
		SessionID: sessionID,
		UserData:  userData,
		LastState: string(snap.LastState),
		Template:  snap.Template,
		Progress:  snap.Progress,
	}
	return h.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_data", "last_state", "template", "progress", "updated_at"}),
		}).
		Create(&record).Error
}
