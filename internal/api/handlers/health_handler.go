// internal/api/handlers/health_handler.go
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	DB      Pinger
	Started time.Time
}

// Health reports liveness and whether the database answers.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	body := gin.H{
		"ok":        true,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(h.Started).Round(time.Second).Seconds(),
	}
	if h.DB != nil {
		if err := h.DB.Ping(ctx); err != nil {
			body["ok"] = false
			body["database"] = "unreachable"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
	}
	c.JSON(http.StatusOK, body)
}
