package response

import "busticket/internal/errs"

// Error is the body of every non-2xx response.
type Error struct {
	// example: email already registered
	Detail string `json:"detail"`

	// Per-field validation failures, present on 422 only.
	Errors []errs.FieldError `json:"errors,omitempty"`
}

// Message is a plain informational body.
type Message struct {
	Message string `json:"message" example:"Bus ticket management system is running"`
}

// User is returned by signup.
type User struct {
	ID       uint   `json:"id" example:"1"`
	Username string `json:"username" example:"alice"`
	Email    string `json:"email" example:"a@x.com"`
}

// Tokens is returned by login and refresh.
type Tokens struct {
	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	AccessToken string `json:"access_token"`

	// example: eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9...
	RefreshToken string `json:"refresh_token"`
}

type Bus struct {
	ID       uint   `json:"id" example:"1"`
	Name     string `json:"name" example:"Express 12"`
	Route    string `json:"route" example:"Almaty - Astana"`
	Capacity int    `json:"capacity" example:"40"`
}

// Ticket dates are YYYY-MM-DD.
type Ticket struct {
	ID          uint   `json:"id" example:"7"`
	UserID      uint   `json:"user_id" example:"1"`
	BusID       uint   `json:"bus_id" example:"1"`
	Departure   string `json:"departure" example:"Almaty"`
	Destination string `json:"destination" example:"Astana"`
	TravelDate  string `json:"travel_date" example:"2026-11-01"`
	Age         *int   `json:"age,omitempty" example:"30"`
	Status      string `json:"status" example:"Confirmed"`
	CreatedAt   string `json:"created_at" example:"2026-10-19"`
	Complete    bool   `json:"complete" example:"false"`

	// 1-based waiting queue position, only for Waiting tickets.
	QueuePosition int `json:"queue_position,omitempty" example:"2"`
}

type QueueEntry struct {
	Position   int    `json:"position" example:"1"`
	TicketID   uint   `json:"ticket_id" example:"7"`
	BusID      uint   `json:"bus_id" example:"1"`
	TravelDate string `json:"travel_date" example:"2026-11-01"`
	QueuedAt   string `json:"queued_at" example:"2026-10-19T08:15:00Z"`
}

type History struct {
	ID          uint   `json:"id" example:"3"`
	Departure   string `json:"departure" example:"Almaty"`
	Destination string `json:"destination" example:"Astana"`
	TravelDate  string `json:"travel_date" example:"2026-11-01"`
}

// Health reports dependency status for readiness probes.
type Health struct {
	Status string            `json:"status" example:"ok"`
	Checks map[string]string `json:"checks"`
}
