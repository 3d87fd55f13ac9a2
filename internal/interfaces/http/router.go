// Package http exposes indexed records and service health over HTTP.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/chemindex/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/chemindex/internal/interfaces/http/handlers"
	"github.com/turtacn/chemindex/internal/interfaces/http/middleware"
)

// RouterConfig aggregates the handlers and middleware settings of the route
// tree. Nil handlers leave their routes unmounted.
type RouterConfig struct {
	Mode string

	RecordHandler *handlers.RecordHandler
	HealthHandler *handlers.HealthHandler

	// MetricsHandler serves MetricsPath when set.
	MetricsHandler http.Handler
	MetricsPath    string
	// Observer receives per-request metrics when set.
	Observer middleware.HTTPObserver

	Logging   middleware.LoggingConfig
	RateLimit middleware.RateLimitConfig
	Logger    logging.Logger
}

// NewRouter builds the gin engine.
func NewRouter(cfg RouterConfig) *gin.Engine {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}
	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogging(cfg.Logger, cfg.Logging))
	if cfg.Observer != nil {
		r.Use(middleware.Metrics(cfg.Observer))
	}
	r.Use(middleware.RateLimit(cfg.RateLimit))

	if cfg.HealthHandler != nil {
		r.GET("/livez", cfg.HealthHandler.Liveness)
		r.GET("/healthz", cfg.HealthHandler.Health)
	}
	if cfg.MetricsHandler != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.GET(path, gin.WrapH(cfg.MetricsHandler))
	}

	if h := cfg.RecordHandler; h != nil {
		v1 := r.Group("/v1/:kind")
		v1.GET("/records", h.List)
		v1.GET("/records/:id", h.Get)
		v1.GET("/count", h.Count)
	}
	return r
}

//Personal.AI order the ending
