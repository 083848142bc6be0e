package app

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/astroia/core/internal/middleware"
	"github.com/astroia/core/internal/modules/astro"
	"github.com/astroia/core/internal/modules/interpretation"
	"github.com/astroia/core/internal/pkg/metrics"
	"github.com/astroia/core/internal/pkg/provider"
	pkgredis "github.com/astroia/core/internal/pkg/redis"
	"github.com/astroia/core/internal/pkg/response"
	"github.com/astroia/core/internal/pkg/taskqueue"
)

func (a *App) registerRoutes(rc *pkgredis.Client) {
	r := a.router
	authMW := middleware.Auth(a.cfg.APIToken)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	r.Use(middleware.OptionalAuth(a.cfg.APIToken))
	r.Use(middleware.RateLimit(rc.Raw()))

	providerClient := provider.New(a.logger)
	taskSvc := taskqueue.NewService(rc)

	astroSvc := astro.NewService(a.db, providerClient, a.cfg)
	interpStore := interpretation.NewStore(a.db)
	generator := interpretation.NewGenerator(a.cfg, providerClient)
	interpSvc := interpretation.NewService(interpStore, generator, taskSvc, rc, a.logger, a.cfg)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v2")
	api.GET("/health", func(c *gin.Context) {
		response.OK(c, gin.H{
			"status": "ok",
			"env":    a.cfg.Env,
			"uptime": time.Since(processStart).Round(time.Second).String(),
		})
	})

	astro.NewHandler(astroSvc).RegisterRoutes(api, authMW)
	interpretation.NewHandler(interpSvc).RegisterRoutes(api, authMW)
}
