package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/use-agent/eurocomp/api/handler"
	"github.com/use-agent/eurocomp/api/middleware"
	"github.com/use-agent/eurocomp/config"
	"github.com/use-agent/eurocomp/extractor"
	"github.com/use-agent/eurocomp/scraper"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain: Recovery → RequestID → Logger
func NewRouter(nav scraper.Navigator, ex *extractor.Extractor, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())

	r.GET("/", handler.Health(nav, startTime))
	r.POST("/extract-eurocomp", handler.Extract(nav, ex, cfg.Extract.AllowedDomain))

	r.NoRoute(handler.NotFound())

	return r
}

// NewHandler wraps the router with CORS. CORS sits outside gin so preflight
// requests are answered before routing, even for paths without an OPTIONS
// route.
func NewHandler(nav scraper.Navigator, ex *extractor.Extractor, cfg *config.Config, startTime time.Time) http.Handler {
	return WithCORS(NewRouter(nav, ex, cfg, startTime), cfg.CORS.AllowedOrigins)
}

// WithCORS applies the cross-origin policy for browser clients.
func WithCORS(h http.Handler, allowedOrigins []string) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader},
		MaxAge:         300,
	})(h)
}
