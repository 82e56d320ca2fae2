package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
)

// PingFunc reports whether a dependency is reachable.
type PingFunc func(ctx context.Context) error

type HealthHandler struct {
	checks map[string]PingFunc
}

// create a new instance of the health handler; nil checks are skipped
func NewHealthHandler(checks map[string]PingFunc) *HealthHandler {
	clean := make(map[string]PingFunc, len(checks))
	for name, fn := range checks {
		if fn != nil {
			clean[name] = fn
		}
	}
	return &HealthHandler{checks: clean}
}

func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"message": "ok", "status": "ok"})
}

func (h *HealthHandler) Readyz(ctx *gin.Context) {
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(gin.H, len(names))
	ready := true

	for _, name := range names {
		cctx, cancel := context.WithTimeout(ctx.Request.Context(), time.Second)
		err := h.checks[name](cctx)
		cancel()

		if err != nil {
			ready = false
			results[name] = "down"
			continue
		}
		results[name] = "up"
	}

	if !ready {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{
			"message": "not ready",
			"status":  "not_ready",
			"checks":  results,
		})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message": "ready",
		"status":  "ready",
		"checks":  results,
	})
}
