package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yourusername/bitswitch/api/handlers"
	"github.com/yourusername/bitswitch/api/middleware"
	"github.com/yourusername/bitswitch/internal/domain"
)

// SetupLibraryRouter sets up the asset server that hosts the variant files
func SetupLibraryRouter(config domain.ServerConfig, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORSWithHeaders(config.SizeHeader))

	healthHandler := handlers.NewHealthHandler(nil)
	router.GET("/health", healthHandler.Health)

	libraryHandler := handlers.NewLibraryHandler(config.AudioDir, config.SizeHeader, log)
	audio := router.Group("/audio")
	{
		audio.GET("/folders", libraryHandler.ListFolders)
		audio.GET("/:folder/:file", libraryHandler.GetFile)
	}

	return router
}

// ControlDeps bundles what the control surface drives
type ControlDeps struct {
	Session handlers.SessionController
	Folders handlers.FolderLister
	Hub     *handlers.ProgressHub
	Ready   handlers.ReadyFunc
}

// SetupControlRouter sets up the player's HTTP control surface
func SetupControlRouter(ctx context.Context, deps ControlDeps, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))
	router.Use(middleware.CORS())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(deps.Ready)
	router.GET("/health", healthHandler.Health)
	router.GET("/ready", healthHandler.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		sessionHandler := handlers.NewSessionHandler(ctx, deps.Session, deps.Folders, log)
		v1.GET("/folders", sessionHandler.ListFolders)

		session := v1.Group("/session")
		{
			session.GET("", sessionHandler.GetStatus)
			session.POST("/load", sessionHandler.Load)
			session.POST("/play/:index", sessionHandler.Play)
			session.POST("/pause", sessionHandler.Pause)
			session.POST("/resume", sessionHandler.Resume)
		}

		if deps.Hub != nil {
			v1.GET("/progress/ws", deps.Hub.HandleWebSocket)
		}
	}

	return router
}
