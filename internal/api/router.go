package api

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/blog-realtime-api/internal/config"
	"github.com/blog-realtime-api/internal/identity"
	"github.com/blog-realtime-api/internal/realtime"
	"github.com/blog-realtime-api/internal/service"
	"github.com/blog-realtime-api/pkg/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HealthChecker reports on the backing store
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
	Stats() sql.DBStats
}

// Deps holds the collaborators the router is built from
type Deps struct {
	Services *service.Services
	Resolver *identity.Resolver
	Hub      *realtime.Hub
	DB       HealthChecker
}

// NewRouter creates and configures the Gin router
func NewRouter(deps Deps, cfg *config.Config, log zerolog.Logger) *gin.Engine {
	// Set Gin mode
	if gin.Mode() != gin.TestMode {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Middleware
	router.Use(requestIDMiddleware())
	router.Use(recoveryMiddleware(log))
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware(cfg.Realtime.AllowedOrigins))
	router.Use(identityMiddleware(deps.Resolver))

	// Handlers
	commentHandler := NewCommentHandler(deps.Services, log)
	likeHandler := NewLikeHandler(deps.Services, log)

	// Health check
	router.GET("/health", healthCheck(deps))
	router.GET("/metrics", metricsHandler(deps))

	// Realtime transport
	if deps.Hub != nil {
		router.GET("/ws", gin.WrapF(deps.Hub.ServeWS))
	}

	v1 := router.Group("/api")
	{
		comments := v1.Group("/comments")
		{
			comments.GET("", commentHandler.List)
			comments.GET("/blog/:blogId", commentHandler.ListByBlog)
			comments.POST("/blog/:blogId", commentHandler.Create)
			comments.GET("/:commentId", commentHandler.Get)
			comments.PUT("/:commentId", commentHandler.Update)
			comments.DELETE("/:commentId", commentHandler.Delete)
			comments.GET("/:commentId/stats", commentHandler.Stats)
			comments.GET("/:commentId/likes", likeHandler.CommentLikes)
			comments.POST("/:commentId/like", likeHandler.ToggleComment)
			comments.GET("/:commentId/like/status", likeHandler.CommentStatus)
		}

		likes := v1.Group("/likes")
		{
			likes.POST("", likeHandler.Toggle)
			likes.GET("/status", likeHandler.Status)
			likes.GET("/mine", likeHandler.Mine)
		}

		v1.GET("/blogs/:blogId/counters", likeHandler.Counters)
	}

	return router
}

// healthCheck returns the health status
func healthCheck(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"service":   logger.ServiceName,
		}

		if deps.DB != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
			defer cancel()
			if err := deps.DB.HealthCheck(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "unhealthy"
				body["database"] = "down"
			} else {
				body["database"] = "up"
			}
		}
		if deps.Hub != nil {
			body["realtime"] = gin.H{"connections": deps.Hub.Stats().Connections}
		}

		c.JSON(status, body)
	}
}

// metricsHandler returns connection and room metrics
func metricsHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{
			"timestamp": time.Now().Format(time.RFC3339),
		}
		if deps.Hub != nil {
			body["realtime"] = deps.Hub.Stats()
		}
		if deps.DB != nil {
			stats := deps.DB.Stats()
			body["database"] = gin.H{
				"open_connections": stats.OpenConnections,
				"in_use":           stats.InUse,
				"idle":             stats.Idle,
				"wait_count":       stats.WaitCount,
			}
		}
		c.JSON(http.StatusOK, body)
	}
}

// requestIDMiddleware tags every request with an id, reusing the caller's
func requestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Writer.Header().Set("X-Request-ID", id)
		c.Next()
	}
}

// recoveryMiddleware handles panics
func recoveryMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				log.Error().
					Interface("error", err).
					Str("request_id", c.GetString(requestIDKey)).
					Msg("Panic recovered")
				c.JSON(http.StatusInternalServerError, gin.H{
					"error": "internal server error",
				})
				c.Abort()
			}
		}()
		c.Next()
	}
}

// loggingMiddleware logs requests
func loggingMiddleware(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		event := log.Info()
		if statusCode >= 400 {
			event = log.Warn()
		}
		if statusCode >= 500 {
			event = log.Error()
		}

		event.
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", statusCode).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Str("request_id", c.GetString(requestIDKey)).
			Msg("Request completed")
	}
}

// corsMiddleware handles CORS
func corsMiddleware(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := "*"
		if reqOrigin := c.GetHeader("Origin"); reqOrigin != "" && !allowsAny(allowed) {
			origin = ""
			for _, o := range allowed {
				if strings.EqualFold(o, reqOrigin) {
					origin = reqOrigin
					break
				}
			}
		}
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func allowsAny(allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, o := range allowed {
		if o == "*" {
			return true
		}
	}
	return false
}

// identityMiddleware resolves the acting visitor once per request
func identityMiddleware(resolver *identity.Resolver) gin.HandlerFunc {
	if resolver == nil {
		resolver = identity.NewResolver(nil, true)
	}
	return func(c *gin.Context) {
		c.Set(actorKey, resolver.Resolve(c.Request))
		c.Next()
	}
}
