package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/bookdb-api/internal/handler"
	"github.com/noah-isme/bookdb-api/internal/middleware"
	"github.com/noah-isme/bookdb-api/internal/service"
	"github.com/noah-isme/bookdb-api/pkg/config"
	"github.com/noah-isme/bookdb-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/bookdb-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/bookdb-api/pkg/middleware/requestid"
)

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Documents *handler.DocumentHandler
	Bookmarks *handler.BookmarkHandler
	Realtime  *handler.RealtimeHandler
	Metrics   *handler.MetricsHandler
}

// New builds the engine with the middleware chain and every route.
func New(cfg *config.Config, logr *zap.Logger, metrics *service.MetricsService, h Handlers) *gin.Engine {
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metrics))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	r.Static(cfg.Storage.URLPrefix, cfg.Storage.UploadDir)

	documents := r.Group("/documents")
	documents.GET("", h.Documents.List)
	documents.GET("/create", h.Documents.CreateForm)
	documents.POST("/create", h.Documents.Create)
	documents.GET("/view/:id", h.Documents.View)
	documents.POST("/delete/:id", h.Documents.Delete)
	documents.GET("/edit/:id", h.Documents.EditForm)
	documents.POST("/edit/:id", h.Documents.Edit)
	documents.GET("/edit-page/:id", h.Documents.EditPageForm)
	documents.POST("/edit-page/:id", h.Documents.EditPage)
	documents.GET("/bookmark", h.Documents.Bookmarks)

	bookmarks := r.Group("/bookmarks")
	bookmarks.GET("", h.Bookmarks.List)
	bookmarks.POST("/create", h.Bookmarks.Create)
	bookmarks.POST("/delete/:id", h.Bookmarks.Delete)
	bookmarks.GET("/go/:id", h.Bookmarks.Go)

	r.GET("/ws", h.Realtime.Connect)
	r.POST("/notify", h.Realtime.Notify)

	return r
}
