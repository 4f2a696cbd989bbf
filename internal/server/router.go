package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/contentselect/internal/handlers"
)

type RouterConfig struct {
	CatalogHandler *handlers.CatalogHandler
	UpdateHandler  *handlers.UpdateHandler
	ClockHandler   *handlers.ClockHandler
	AuditHandler   *handlers.AuditHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	{
		// Catalogs
		api.POST("/missions", cfg.CatalogHandler.SetMissions)
		api.POST("/recommendations", cfg.CatalogHandler.SetRecommendations)
		api.POST("/resources", cfg.CatalogHandler.SetResources)

		// Engine
		api.POST("/updates", cfg.UpdateHandler.PostUpdates)
		api.GET("/selected-contents", cfg.UpdateHandler.GetSelectedContents)
		api.POST("/recommendation-plans", cfg.UpdateHandler.SavePlans)

		// Clock
		api.GET("/clock", cfg.ClockHandler.GetClock)
		api.POST("/clock/mode", cfg.ClockHandler.SetMode)
		api.POST("/clock/time", cfg.ClockHandler.SetTime)

		// Audit trail, only with a database behind it
		if cfg.AuditHandler != nil {
			api.GET("/users/:user_id/slates", cfg.AuditHandler.GetSlates)
			api.GET("/users/:user_id/updates", cfg.AuditHandler.GetUpdates)
		}
	}

	return router
}
