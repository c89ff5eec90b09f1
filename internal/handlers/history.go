package handlers

import (
	"net/http"

	"busticket/internal/response"

	"github.com/gin-gonic/gin"
)

// History godoc
// @Summary		Travel history
// @Description	Completed trips of the caller, most recent first
// @Tags			history
// @Produce		json
// @Security		BearerAuth
// @Success		200	{array}		response.History
// @Failure		401	{object}	response.Error
// @Router			/history [get]
func (h *Handlers) History(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	rows, err := h.booking.History(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]response.History, len(rows))
	for i, row := range rows {
		out[i] = historyView(row)
	}
	c.JSON(http.StatusOK, out)
}
