package handlers

import (
	"context"
	"net/http"
	"time"

	"busticket/internal/response"

	"github.com/gin-gonic/gin"
)

const healthTimeout = 3 * time.Second

// Liveness godoc
// @Summary		Liveness
// @Description	Reports that the process is up. Never touches the database.
// @Tags			health
// @Produce		json
// @Success		200	{object}	response.Message
// @Router			/ [get]
func (h *Handlers) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, response.Message{Message: "Bus ticket management system is running"})
}

// Healthz godoc
// @Summary		Readiness
// @Description	Pings the database and, when configured, Redis
// @Tags			health
// @Produce		json
// @Success		200	{object}	response.Health
// @Failure		503	{object}	response.Health
// @Router			/healthz [get]
func (h *Handlers) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{}

	switch {
	case h.db == nil:
		checks["database"] = "not configured"
		status = http.StatusServiceUnavailable
	case h.db.Ping(ctx) != nil:
		checks["database"] = "unreachable"
		status = http.StatusServiceUnavailable
	default:
		checks["database"] = "ok"
	}

	// redis down only disables the bus cache
	switch {
	case h.cache == nil:
		checks["redis"] = "disabled"
	case h.cache.Ping(ctx) != nil:
		checks["redis"] = "unreachable"
	default:
		checks["redis"] = "ok"
	}

	body := response.Health{Status: "ok", Checks: checks}
	if status != http.StatusOK {
		body.Status = "unavailable"
	}
	c.JSON(status, body)
}
