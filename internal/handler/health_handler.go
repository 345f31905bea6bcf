package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/comment-lens/youtube-comment-analysis-go/internal/service"
)

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	pool      *pgxpool.Pool
	publisher *service.EventPublisher
}

// NewHealthHandler creates a new HealthHandler instance. The publisher may
// be nil when event publishing is disabled.
func NewHealthHandler(pool *pgxpool.Pool, publisher *service.EventPublisher) *HealthHandler {
	return &HealthHandler{
		pool:      pool,
		publisher: publisher,
	}
}

// LivenessProbe checks if the application is running.
func (h *HealthHandler) LivenessProbe(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "UP",
		"time":   time.Now(),
	})
}

// ReadinessProbe checks if the application is ready to serve traffic.
func (h *HealthHandler) ReadinessProbe(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.pool.Ping(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "DOWN",
			"database": "unhealthy",
			"error":    err.Error(),
			"time":     time.Now(),
		})
		return
	}

	response := gin.H{
		"status":   "UP",
		"database": "healthy",
		"time":     time.Now(),
	}
	if h.publisher != nil {
		if !h.publisher.IsHealthy() {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "DOWN",
				"database": "healthy",
				"rabbitmq": "unhealthy",
				"time":     time.Now(),
			})
			return
		}
		response["rabbitmq"] = "healthy"
	}

	c.JSON(http.StatusOK, response)
}
