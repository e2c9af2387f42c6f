package http

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appsvc "legalrecords-assistant/internal/app"
	"legalrecords-assistant/internal/bootstrap"
	"legalrecords-assistant/internal/cache"
	mysqlClient "legalrecords-assistant/internal/platform/mysql"
	rabbitmqClient "legalrecords-assistant/internal/platform/rabbitmq"
	redisClient "legalrecords-assistant/internal/platform/redis"
	"legalrecords-assistant/internal/repository"
	"legalrecords-assistant/internal/retrieval"
	"legalrecords-assistant/internal/transport/http/handler"
	"legalrecords-assistant/internal/transport/http/middleware"
)

type Handlers struct {
	Health   *handler.HealthHandler
	Chat     *handler.ChatHandler
	Provider *handler.ProviderHandler
	Record   *handler.RecordHandler
	Document *handler.DocumentHandler
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(middleware.AccessLog(app.Log), gin.Recovery())

	recordRepo := repository.NewCaseRecordRepository(app.MySQL)
	documentRepo := repository.NewDocumentRepository(app.MySQL)
	referenceRepo := repository.NewReferenceRepository(app.MySQL)
	conversationRepo := repository.NewConversationRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)

	var historyCache appsvc.HistoryCache
	if app.Redis != nil {
		historyCache = cache.NewHistoryCache(
			app.Redis,
			time.Duration(app.Config.Redis.HistoryTTLSeconds)*time.Second,
			time.Duration(app.Config.Redis.HistoryDirtyTTLSeconds)*time.Second,
		)
	}
	var auditor appsvc.QueryAuditPublisher
	if app.QueryLogPublisher != nil {
		auditor = app.QueryLogPublisher
	}

	engine := retrieval.NewEngine(recordRepo, documentRepo, referenceRepo, app.Config.Retrieval, app.Log.With("component", "retrieval"))
	conversationService := appsvc.NewConversationService(conversationRepo, messageRepo, historyCache, app.Log)
	recordService := appsvc.NewRecordService(recordRepo, documentRepo, engine)
	documentService := appsvc.NewDocumentService(documentRepo, recordService)
	chatService := appsvc.NewChatService(
		conversationService,
		engine,
		app.Dispatcher,
		auditor,
		app.Config.LLM.MaxContextMessage,
		app.Log.With("component", "chat"),
	)

	checks := map[string]handler.HealthCheck{
		"mysql": func(ctx context.Context) error { return mysqlClient.Ping(ctx, app.MySQL) },
	}
	if app.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx, app.Redis) }
	}
	if app.MQConn != nil {
		checks["rabbitmq"] = func(context.Context) error { return rabbitmqClient.Ping(app.MQConn) }
	}

	Register(router, Handlers{
		Health:   handler.NewHealthHandler(app.Config.App.Name, app.Config.App.Env, app.StartedAt, checks),
		Chat:     handler.NewChatHandler(chatService, conversationService),
		Provider: handler.NewProviderHandler(app.Dispatcher),
		Record:   handler.NewRecordHandler(recordService, documentService),
		Document: handler.NewDocumentHandler(documentService),
	})
	return router
}

// Register mounts every route on router.
func Register(router *gin.Engine, h Handlers) {
	router.GET("/healthz", h.Health.Check)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	chatGroup := v1.Group("/chat")
	chatGroup.Use(middleware.ResolveUser())
	chatGroup.POST("/query", h.Chat.Query)
	chatGroup.POST("/conversations", h.Chat.CreateConversation)
	chatGroup.GET("/conversations", h.Chat.ListConversations)
	chatGroup.GET("/conversations/:id", h.Chat.GetConversation)
	chatGroup.PATCH("/conversations/:id", h.Chat.RenameConversation)
	chatGroup.DELETE("/conversations/:id", h.Chat.DeleteConversation)
	chatGroup.GET("/conversations/:id/messages", h.Chat.ListMessages)
	chatGroup.PATCH("/messages/:id", h.Chat.UpdateMessage)
	chatGroup.DELETE("/messages/:id", h.Chat.DeleteMessage)

	v1.GET("/providers", h.Provider.List)
	v1.PUT("/providers/active", h.Provider.SetActive)

	v1.GET("/records", h.Record.Search)
	v1.POST("/records", h.Record.Create)
	v1.GET("/records/:number", h.Record.Get)
	v1.GET("/records/:number/documents", h.Record.ListDocuments)
	v1.PATCH("/records/:id", h.Record.Update)
	v1.PATCH("/records/:id/status", h.Record.UpdateStatus)

	v1.POST("/documents/extract", h.Document.Extract)
	v1.POST("/documents", h.Document.Save)
	v1.GET("/documents", h.Document.SearchByType)
	v1.GET("/documents/:id", h.Document.Get)
}
