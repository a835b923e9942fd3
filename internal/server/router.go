package server

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/novamark/agencydesk-backend/internal/http/handlers"
	"github.com/novamark/agencydesk-backend/internal/http/middleware"
	"github.com/novamark/agencydesk-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log              *logger.Logger
	AllowOrigins     []string
	AuthMiddleware   *middleware.AuthMiddleware
	ChatHandler      *handlers.ChatHandler
	InboxHandler     *handlers.InboxHandler
	DirectoryHandler *handlers.DirectoryHandler
	RealtimeHandler  *handlers.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("agencydesk-backend"))
	router.Use(middleware.AttachTraceContext())
	router.Use(middleware.RequestLog(cfg.Log))
	router.Use(middleware.CORS(cfg.AllowOrigins))

	// Public
	router.GET("/healthcheck", handlers.HealthCheck)

	// Authenticated (client or admin)
	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	{
		// Chat widget
		api.POST("/chat/widget", cfg.ChatHandler.OpenWidget)
		api.GET("/chat/unread", cfg.ChatHandler.UnreadSummary)
		api.POST("/chat/conversations/:id/messages", cfg.ChatHandler.SendMessage)
		api.GET("/chat/conversations/:id/messages", cfg.ChatHandler.ListMessages)
		api.POST("/chat/conversations/:id/read", cfg.ChatHandler.MarkRead)
		api.GET("/chat/conversations/:id/stream", cfg.RealtimeHandler.ConversationStream)

		// Project-scoped threads
		api.GET("/projects/:id/thread", cfg.ChatHandler.OpenProjectThread)
		api.GET("/projects", cfg.DirectoryHandler.ListOwnProjects)

		// Notification stream
		api.GET("/events", cfg.RealtimeHandler.Events)
	}

	// Admin inbox and directory management
	admin := router.Group("/api/admin")
	admin.Use(cfg.AuthMiddleware.RequireAuth(), cfg.AuthMiddleware.RequireAdmin())
	{
		admin.GET("/conversations", cfg.InboxHandler.ListConversations)
		admin.GET("/inbox/stream", cfg.RealtimeHandler.InboxStream)
		admin.GET("/conversations/:id", cfg.InboxHandler.GetThread)
		admin.POST("/conversations/:id/reply", cfg.InboxHandler.Reply)
		admin.POST("/conversations/:id/read", cfg.InboxHandler.MarkRead)
		admin.POST("/conversations/:id/close", cfg.InboxHandler.CloseConversation)

		admin.POST("/clients", cfg.DirectoryHandler.CreateClient)
		admin.GET("/clients", cfg.DirectoryHandler.ListClients)
		admin.POST("/projects", cfg.DirectoryHandler.CreateProject)
	}

	return router
}
