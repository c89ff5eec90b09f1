package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusConfirmed = "Confirmed"
	StatusWaiting   = "Waiting"
	StatusCancelled = "Cancelled"
	StatusExpired   = "Expired"
)

// Ticket is a reservation of one seat on a bus for a travel date.
// User and Bus are declared only so the migration emits foreign keys;
// they are never preloaded.
type Ticket struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	User        *User          `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	BusID       uint           `gorm:"not null;index:idx_tickets_bus_date,priority:1" json:"bus_id"`
	Bus         *Bus           `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Departure   string         `gorm:"size:200;not null" json:"departure"`
	Destination string         `gorm:"size:200;not null" json:"destination"`
	TravelDate  datatypes.Date `gorm:"not null;index:idx_tickets_bus_date,priority:2" json:"travel_date"`
	Age         *int           `json:"age,omitempty"`
	Status      string         `gorm:"size:20;not null;default:Confirmed" json:"status"`
	CreatedAt   datatypes.Date `gorm:"column:created_at;not null" json:"created_at"`
	Complete    bool           `gorm:"not null;default:false" json:"complete"`
}

func (Ticket) TableName() string { return "tickets" }

func (t *Ticket) BeforeCreate(tx *gorm.DB) error {
	if t.Status == "" {
		t.Status = StatusConfirmed
	}
	if time.Time(t.CreatedAt).IsZero() {
		t.CreatedAt = Today()
	}
	return nil
}

// Today is the current UTC calendar date.
func Today() datatypes.Date {
	return DateOf(time.Now())
}

// DateOf truncates t to its UTC calendar date.
func DateOf(t time.Time) datatypes.Date {
	y, m, d := t.UTC().Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (datatypes.Date, error) {
	t, err := time.ParseInLocation(time.DateOnly, s, time.UTC)
	if err != nil {
		return datatypes.Date{}, err
	}
	return datatypes.Date(t), nil
}
