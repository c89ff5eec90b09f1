package handlers

import (
	"context"
	"net/http"

	"busticket/internal/booking"
	"busticket/internal/models"
	"busticket/internal/response"

	"github.com/gin-gonic/gin"
)

type BookTicketRequest struct {
	BusID       uint   `json:"bus_id" binding:"required" example:"1"`
	Departure   string `json:"departure" binding:"required,max=200" example:"Almaty"`
	Destination string `json:"destination" binding:"required,max=200" example:"Astana"`
	TravelDate  string `json:"travel_date" binding:"required" example:"2026-11-01"`
	Age         *int   `json:"age" binding:"omitempty,gte=0,lte=150" example:"30"`
}

// BookTicket godoc
// @Summary		Book a ticket
// @Description	Confirms a seat while the bus has capacity for the date, otherwise puts the ticket on the waiting queue
// @Tags			tickets
// @Accept			json
// @Produce		json
// @Security		BearerAuth
// @Param			ticket	body		BookTicketRequest	true	"Booking"
// @Success		201		{object}	response.Ticket		"Confirmed or Waiting ticket"
// @Failure		401		{object}	response.Error
// @Failure		404		{object}	response.Error		"Bus not found"
// @Failure		422		{object}	response.Error		"Validation error"
// @Router			/tickets [post]
func (h *Handlers) BookTicket(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	var req BookTicketRequest
	if !h.bindJSON(c, &req) {
		return
	}

	b, err := h.booking.BookTicket(c.Request.Context(), userID, booking.BookingInput{
		BusID:       req.BusID,
		Departure:   req.Departure,
		Destination: req.Destination,
		TravelDate:  req.TravelDate,
		Age:         req.Age,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ticketView(b.Ticket, b.QueuePosition))
}

// MyTickets godoc
// @Summary		List my tickets
// @Tags			tickets
// @Produce		json
// @Security		BearerAuth
// @Success		200	{array}		response.Ticket
// @Failure		401	{object}	response.Error
// @Router			/tickets [get]
func (h *Handlers) MyTickets(c *gin.Context) {
	userID, err := currentUser(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	tickets, err := h.booking.MyTickets(c.Request.Context(), userID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	out := make([]response.Ticket, len(tickets))
	for i, t := range tickets {
		out[i] = ticketView(t, 0)
	}
	c.JSON(http.StatusOK, out)
}

// CancelTicket godoc
// @Summary		Cancel a ticket
// @Description	Cancelling a confirmed ticket promotes the oldest waiting ticket for the same bus and date
// @Tags			tickets
// @Produce		json
// @Security		BearerAuth
// @Param			id	path		int	true	"Ticket ID"
// @Success		200	{object}	response.Ticket
// @Failure		404	{object}	response.Error	"Ticket not found"
// @Failure		409	{object}	response.Error	"Already cancelled, expired or completed"
// @Router			/tickets/{id}/cancel [post]
func (h *Handlers) CancelTicket(c *gin.Context) {
	h.ticketAction(c, h.booking.CancelTicket)
}

// CompleteTicket godoc
// @Summary		Complete a trip
// @Description	Marks a confirmed ticket as travelled and adds it to the travel history
// @Tags			tickets
// @Produce		json
// @Security		BearerAuth
// @Param			id	path		int	true	"Ticket ID"
// @Success		200	{object}	response.Ticket
// @Failure		404	{object}	response.Error	"Ticket not found"
// @Failure		409	{object}	response.Error	"Ticket is not confirmed or already completed"
// @Router			/tickets/{id}/complete [post]
func (h *Handlers) CompleteTicket(c *gin.Context) {
	h.ticketAction(c, h.booking.CompleteTicket)
}

func (h *Handlers) ticketAction(c *gin.Context, action func(ctx context.Context, userID, ticketID uint) (models.Ticket, error)) {
	userID, err := currentUser(c)
	if err != nil {
		h.writeError(c, err)
		return
	}
	ticketID, err := pathID(c)
	if err != nil {
		h.writeError(c, err)
		return
	}

	ticket, err := action(c.Request.Context(), userID, ticketID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ticketView(ticket, 0))
}
