package handlers

import (
	"net/http"

	"busticket/internal/booking"
	"busticket/internal/response"

	"github.com/gin-gonic/gin"
)

type CreateBusRequest struct {
	Name     string `json:"name" binding:"required,max=100" example:"Express 12"`
	Route    string `json:"route" binding:"required,max=200" example:"Almaty - Astana"`
	Capacity int    `json:"capacity" binding:"gt=0" example:"40"`
}

// ListBuses godoc
// @Summary		List buses
// @Tags			buses
// @Produce		json
// @Success		200	{array}		response.Bus
// @Failure		500	{object}	response.Error
// @Router			/buses [get]
func (h *Handlers) ListBuses(c *gin.Context) {
	buses, err := h.booking.ListBuses(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]response.Bus, len(buses))
	for i, b := range buses {
		out[i] = busView(b)
	}
	c.JSON(http.StatusOK, out)
}

// GetBus godoc
// @Summary		Get a bus
// @Tags			buses
// @Produce		json
// @Param			id	path		int	true	"Bus ID"
// @Success		200	{object}	response.Bus
// @Failure		404	{object}	response.Error	"Bus not found"
// @Router			/buses/{id} [get]
func (h *Handlers) GetBus(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	bus, err := h.booking.GetBus(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, busView(bus))
}

// CreateBus godoc
// @Summary		Add a bus
// @Description	Capacity must be a positive number of seats
// @Tags			buses
// @Accept			json
// @Produce		json
// @Security		BearerAuth
// @Param			bus	body		CreateBusRequest	true	"Bus"
// @Success		201	{object}	response.Bus
// @Failure		401	{object}	response.Error
// @Failure		422	{object}	response.Error	"Validation error"
// @Router			/buses [post]
func (h *Handlers) CreateBus(c *gin.Context) {
	var req CreateBusRequest
	if !h.bindJSON(c, &req) {
		return
	}

	bus, err := h.booking.CreateBus(c.Request.Context(), booking.BusInput{
		Name:     req.Name,
		Route:    req.Route,
		Capacity: req.Capacity,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, busView(bus))
}
