// Package api exposes planning, commit and stock queries over HTTP.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/piwi3910/barcut/internal/api/handlers"
	"github.com/piwi3910/barcut/internal/api/middleware"
	"github.com/piwi3910/barcut/internal/cache"
	"github.com/piwi3910/barcut/internal/commit"
	"github.com/piwi3910/barcut/internal/engine"
)

type Services struct {
	Optimizer *engine.Optimizer
	Store     commit.Store
	Applier   *commit.Applier
	Cache     cache.PlanCache
	Log       zerolog.Logger
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger(services.Log))
	router.Use(middleware.Recovery(services.Log))

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Plan-Cache"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	planHandler := handlers.NewPlanHandler(services.Optimizer, services.Store, services.Applier, services.Cache, services.Log)
	planGroup := apiGroup.Group("/plans")
	{
		planGroup.POST("/preview", planHandler.Preview)
		planGroup.POST("/override", planHandler.Override)
		planGroup.POST("/compare", planHandler.Compare)
		planGroup.POST("/apply", planHandler.Apply)
		planGroup.POST("/export", planHandler.Export)
	}

	stockHandler := handlers.NewStockHandler(services.Store, services.Log)
	apiGroup.GET("/stock", stockHandler.ListUnits)
	apiGroup.GET("/purchases", stockHandler.ListPurchases)

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
