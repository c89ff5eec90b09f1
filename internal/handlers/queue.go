package handlers

import (
	"net/http"

	"busticket/internal/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// GetQueue godoc
// @Summary		Waiting queue of a bus
// @Description	Waiting tickets for one travel date, head of the queue first
// @Tags			queue
// @Produce		json
// @Param			id		path		int		true	"Bus ID"
// @Param			date	query		string	true	"Travel date (YYYY-MM-DD)"
// @Success		200		{array}		response.QueueEntry
// @Failure		404		{object}	response.Error	"Bus not found"
// @Failure		422		{object}	response.Error	"Invalid date"
// @Router			/buses/{id}/queue [get]
func (h *Handlers) GetQueue(c *gin.Context) {
	busID, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	queue, err := h.booking.QueueFor(c.Request.Context(), busID, c.Query("date"))
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]response.QueueEntry, len(queue))
	for i, q := range queue {
		out[i] = queueView(q)
	}
	c.JSON(http.StatusOK, out)
}

// BusWebSocket godoc
// @Summary		Queue events
// @Description	Upgrades to a WebSocket that streams ticket_waitlisted, ticket_promoted, ticket_cancelled and ticket_expired events for the bus
// @Tags			queue
// @Param			id	path	int	true	"Bus ID"
// @Success		101
// @Failure		404	{object}	response.Error	"Bus not found"
// @Router			/buses/{id}/ws [get]
func (h *Handlers) BusWebSocket(c *gin.Context) {
	busID, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if _, err := h.booking.GetBus(c.Request.Context(), busID); err != nil {
		h.writeError(c, err)
		return
	}

	if err := h.hub.Serve(c.Writer, c.Request, busID); err != nil {
		// the upgrader has already written the HTTP error
		h.log.Debug("websocket upgrade failed", zap.Error(err), zap.Uint("bus_id", busID))
	}
}
