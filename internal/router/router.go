// Package router wires the HTTP surface: gin engine setup, global
// middleware, and route registration for the queue, feedback, and
// preferences API surfaces.
package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sboagy/tunetrees-go/internal/api"
	"github.com/sboagy/tunetrees-go/internal/config"
	"github.com/sboagy/tunetrees-go/internal/metrics"
	"github.com/sboagy/tunetrees-go/internal/middleware"
)

var serverStartTime = time.Now()

// Deps bundles everything Setup needs beyond the raw config.
type Deps struct {
	Handlers       *api.Handlers
	HTTPMetrics    *metrics.HTTPMetricsRegistry
	BusinessMetrics *metrics.BusinessMetricsRegistry
	QueueOpLimiter *middleware.QueueOpLimiter
}

// Setup configures and returns the HTTP engine.
func Setup(cfg *config.Config, deps Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	if deps.HTTPMetrics != nil {
		r.Use(middleware.MetricsMiddleware(deps.HTTPMetrics))
	}

	r.GET("/health", healthHandler)
	if deps.BusinessMetrics != nil {
		handler := promhttp.HandlerFor(deps.BusinessMetrics.GetPrometheusRegistry(), promhttp.HandlerOpts{})
		r.GET("/metrics", gin.WrapH(handler))
	}

	queueOpLimit := middleware.QueueOpRateLimit(deps.QueueOpLimiter, api.QueueOpRateLimitKey)

	apiGroup := r.Group("/api")
	{
		queueGroup := apiGroup.Group("/queue")
		{
			queueGroup.GET("", queueOpLimit, deps.Handlers.GetQueue)
			queueGroup.POST("/reset", deps.Handlers.ResetQueue)
			queueGroup.POST("/refill", queueOpLimit, deps.Handlers.RefillQueue)
			queueGroup.POST("/add", deps.Handlers.AddTunesToQueue)
		}

		feedbackGroup := apiGroup.Group("/feedback")
		{
			feedbackGroup.POST("", deps.Handlers.SubmitFeedback)
			feedbackGroup.POST("/commit", deps.Handlers.CommitStaged)
		}

		prefsGroup := apiGroup.Group("/prefs")
		{
			prefsGroup.GET("/scheduling", deps.Handlers.GetSchedulingPrefs)
			prefsGroup.PUT("/scheduling", deps.Handlers.SetSchedulingPrefs)
			prefsGroup.GET("/sr", deps.Handlers.GetSRPrefs)
			prefsGroup.PUT("/sr", deps.Handlers.SetSRPrefs)
		}
	}

	return r
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"uptime":    time.Since(serverStartTime).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
