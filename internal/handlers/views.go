package handlers

import (
	"time"

	"busticket/internal/auth"
	"busticket/internal/booking"
	"busticket/internal/models"
	"busticket/internal/response"

	"gorm.io/datatypes"
)

func formatDate(d datatypes.Date) string {
	return time.Time(d).Format(time.DateOnly)
}

func userView(u auth.UserView) response.User {
	return response.User{ID: u.ID, Username: u.Username, Email: u.Email}
}

func busView(b models.Bus) response.Bus {
	return response.Bus{ID: b.ID, Name: b.Name, Route: b.Route, Capacity: b.Capacity}
}

func ticketView(t models.Ticket, position int) response.Ticket {
	return response.Ticket{
		ID:            t.ID,
		UserID:        t.UserID,
		BusID:         t.BusID,
		Departure:     t.Departure,
		Destination:   t.Destination,
		TravelDate:    formatDate(t.TravelDate),
		Age:           t.Age,
		Status:        t.Status,
		CreatedAt:     formatDate(t.CreatedAt),
		Complete:      t.Complete,
		QueuePosition: position,
	}
}

func queueView(q booking.QueuePosition) response.QueueEntry {
	return response.QueueEntry{
		Position:   q.Position,
		TicketID:   q.Entry.TicketID,
		BusID:      q.Entry.BusID,
		TravelDate: formatDate(q.Entry.TravelDate),
		QueuedAt:   q.Entry.QueuedAt.UTC().Format(time.RFC3339),
	}
}

func historyView(h models.TravelHistory) response.History {
	return response.History{
		ID:          h.ID,
		Departure:   h.Departure,
		Destination: h.Destination,
		TravelDate:  formatDate(h.TravelDate),
	}
}
