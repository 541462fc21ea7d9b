package allocate

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	coremon "github.com/kilianp07/offload/core/monitoring"
)

// DefaultOrigins are the local frontend dev servers.
var DefaultOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// NewRouter returns a gin engine serving h under /api.
func NewRouter(h *Handler, allowedOrigins []string) *gin.Engine {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultOrigins
	}
	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, rec any) {
		coremon.ReportPanic(rec)
		h.log.Errorf("panic serving %s %s: %v", c.Request.Method, c.FullPath(), rec)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}))
	r.Use(requestLogger(h))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	h.RegisterRoutes(r.Group("/api"))
	return r
}

func requestLogger(h *Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.log.Debugw("request", map[string]any{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		})
	}
}
