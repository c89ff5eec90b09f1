package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// WaitingQueueEntry is an overflow reservation waiting for a free seat.
// Entries are served oldest QueuedAt first.
type WaitingQueueEntry struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	TicketID   uint           `gorm:"not null;uniqueIndex" json:"ticket_id"`
	Ticket     *Ticket        `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	BusID      uint           `gorm:"not null;index:idx_waiting_queue_bus_date,priority:1" json:"bus_id"`
	Bus        *Bus           `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	TravelDate datatypes.Date `gorm:"not null;index:idx_waiting_queue_bus_date,priority:2" json:"travel_date"`
	QueuedAt   time.Time      `gorm:"not null" json:"queued_at"`
}

func (WaitingQueueEntry) TableName() string { return "waiting_queue" }

func (e *WaitingQueueEntry) BeforeCreate(tx *gorm.DB) error {
	if e.QueuedAt.IsZero() {
		e.QueuedAt = time.Now().UTC()
	}
	return nil
}
