package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"chatResume/internal/api/middleware"
	"chatResume/internal/auth"
	"chatResume/internal/chatbot"
	"chatResume/internal/config"
	"chatResume/internal/nlp"
	"chatResume/internal/storage"
)

// RegisterRoutes 注册 API 路由，不包含 /api 前缀。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	asynqClient *asynq.Client,
	engine *chatbot.Engine,
	tokens *auth.TokenService,
	extractor nlp.Extractor,
	redisClient *redis.Client,
	storageClient *storage.Client,
	logger *slog.Logger,
) {
	chatHandler := NewChatHandler(engine, tokens, db, logger)
	resumeHandler := NewResumeHandler(db, asynqClient, storageClient, engine, cfg.Chatbot.Templates, cfg.Chatbot.DefaultTemplate)
	photoHandler := NewPhotoHandler(storageClient, engine, redisClient, logger, cfg.Upload)
	analyzeHandler := NewAnalyzeHandler(extractor)
	wsHandler := NewWsHandler(redisClient, tokens, logger, cfg.API.AllowedOrigins)
	sessionMiddleware := middleware.SessionMiddleware(tokens)

	v1 := router.Group("/v1")
	v1.Use(middleware.CorrelationIDMiddleware(), middleware.SlogLoggerMiddleware(logger))
	{
		// WebSocket 在首帧内鉴权，不走会话中间件。
		v1.GET("/ws", wsHandler.HandleConnection)

		chatGroup := v1.Group("")
		chatGroup.Use(sessionMiddleware)
		{
			chatGroup.POST("/chat", chatHandler.HandleChat)
			chatGroup.POST("/photo", photoHandler.UploadPhoto)
			chatGroup.POST("/analyze-text", analyzeHandler.AnalyzeText)
			chatGroup.POST("/extract-entities", analyzeHandler.ExtractEntities)

			resumeGroup := chatGroup.Group("/resume")
			{
				resumeGroup.POST("/generate", resumeHandler.GenerateResume)
				resumeGroup.GET("/:id", resumeHandler.GetResume)
				resumeGroup.GET("/:id/download-link", resumeHandler.GetDownloadLink)
			}
		}
	}
}
