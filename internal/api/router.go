package api

import (
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/cinesync/cinesync/internal/auth"
)

// NewRouter sets up the API router
func NewRouter(handler *Handler, jwtManager *auth.JWTManager, logger *log.Logger) *gin.Engine {
	// Create gin router
	router := gin.New()

	// Set up middleware
	router.Use(gin.Recovery())
	router.Use(RequestLoggerMiddleware(logger))

	// Set up CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	router.GET("/health", handler.HealthCheck)

	apiGroup := router.Group("/api")
	apiGroup.POST("/search", handler.Search)
	apiGroup.POST("/embedding", handler.Embedding)
	apiGroup.GET("/genres", handler.Genres)
	apiGroup.GET("/movies/:id/extras", handler.MovieExtras)

	adminGroup := apiGroup.Group("/admin")
	adminGroup.Use(AdminAuthMiddleware(jwtManager))
	adminGroup.POST("/ingest", handler.AdminIngest)
	adminGroup.GET("/ingest/status", handler.AdminIngestStatus)
	adminGroup.GET("/catalog/stats", handler.AdminCatalogStats)

	return router
}
