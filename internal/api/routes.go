package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"labelDesk/internal/api/middleware"
	"labelDesk/internal/binding"
	"labelDesk/internal/config"
)

// RedisClient 汇总 API 用到的 Redis 能力，*redis.Client 满足它。
type RedisClient interface {
	ResultReader
	Subscriber
	middleware.FailureCounter
}

// Dependencies 是注册路由所需的外部依赖。
type Dependencies struct {
	DB             *gorm.DB
	Queue          TaskEnqueuer
	Storage        ArtifactStore
	Redis          RedisClient
	Sequence       SequenceService
	Resolver       *binding.Resolver
	Print          config.PrintConfig
	AdminSecret    string
	AllowedOrigins []string
	Logger         *slog.Logger
}

// RegisterRoutes 注册 /v1 路由。
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	resolver := deps.Resolver
	if resolver == nil {
		resolver = binding.NewResolver(deps.Logger)
	}

	labelHandler := NewLabelHandler(resolver)
	geometryHandler := NewGeometryHandler(deps.Print.SnapGridMM)
	printHandler := NewPrintHandler(deps.DB, deps.Queue, deps.Storage, deps.Print)
	previewHandler := NewPreviewHandler(deps.Queue, deps.Redis)
	sequenceHandler := NewSequenceHandler(deps.Sequence)
	wsHandler := NewWsHandler(deps.Redis, deps.Logger, deps.AllowedOrigins)
	adminOnly := middleware.AdminSecretMiddleware(deps.AdminSecret, deps.Redis)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		v1.POST("/resolve", labelHandler.Resolve)
		v1.POST("/templates/validate", labelHandler.ValidateTemplate)

		geometryGroup := v1.Group("/geometry")
		{
			geometryGroup.POST("/move", geometryHandler.Move)
			geometryGroup.POST("/resize", geometryHandler.Resize)
			geometryGroup.POST("/nudge", geometryHandler.Nudge)
		}

		printGroup := v1.Group("/print")
		{
			printGroup.POST("/plan", printHandler.Plan)
			printGroup.POST("/jobs", printHandler.CreateJobs)
			printGroup.POST("/record", printHandler.PrintRecord)
			printGroup.GET("/jobs/:id", printHandler.GetJob)
			printGroup.GET("/jobs/:id/download-link", printHandler.GetDownloadLink)
			printGroup.GET("/groups/:id", printHandler.GetGroup)
			printGroup.DELETE("/groups/:id", printHandler.DeleteGroup)
		}

		previewGroup := v1.Group("/preview")
		{
			previewGroup.POST("", previewHandler.Enqueue)
			previewGroup.GET("/:id", previewHandler.Get)
			previewGroup.POST("/svg", labelHandler.PreviewSVG)
		}

		sequenceGroup := v1.Group("/sequence")
		{
			sequenceGroup.GET("", sequenceHandler.Get)
			sequenceGroup.POST("/next", sequenceHandler.Next)
			sequenceGroup.PUT("/start", adminOnly, sequenceHandler.SetStart)
			sequenceGroup.POST("/reset", adminOnly, sequenceHandler.Reset)
		}
	}
}
