package health

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/TomasB/sxgeo/internal/data"
)

// Checker reports whether a database is loaded and which one.
type Checker interface {
	Ready() error
	Info() data.Info
}

// Handler manages health check endpoints
type Handler struct {
	db      Checker
	started time.Time
}

// NewHandler creates a new health check handler. A nil checker is always
// ready.
func NewHandler(db Checker) *Handler {
	return &Handler{db: db, started: time.Now()}
}

// Health is the liveness probe endpoint
// GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.started).Round(time.Second).String(),
	})
}

// Ready is the readiness probe endpoint. It fails while no database is
// loaded and otherwise names the database being served.
// GET /ready
func (h *Handler) Ready(c *gin.Context) {
	if h.db == nil {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}
	if err := h.db.Ready(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"error":  err.Error(),
		})
		return
	}

	info := h.db.Info()
	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"backend":  info.Backend,
		"built_at": info.BuiltAt.Format(time.RFC3339),
	})
}
