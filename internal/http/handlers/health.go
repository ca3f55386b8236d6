package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Pinger is anything readiness can probe, in practice the mongo store
// and the optional redis client.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	deps map[string]Pinger
}

func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// Healthz reports process liveness only.
func (h *HealthHandler) Healthz(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readyz pings each dependency with a short deadline and reports 503
// as soon as one is unreachable.
func (h *HealthHandler) Readyz(ctx *gin.Context) {
	cctx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	for name, dep := range h.deps {
		if err := dep.Ping(cctx); err != nil {
			checks[name] = "unreachable"
			healthy = false
			continue
		}

		checks[name] = "ok"
	}

	status := http.StatusOK
	label := "ready"

	if !healthy {
		status = http.StatusServiceUnavailable
		label = "degraded"
	}

	ctx.JSON(status, gin.H{
		"status": label,
		"checks": checks,
	})
}
