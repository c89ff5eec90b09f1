package models

import "gorm.io/datatypes"

// TravelHistory is an append-only record of a completed trip. UserID has
// no foreign key.
type TravelHistory struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	UserID      uint           `gorm:"not null;index" json:"user_id"`
	Departure   string         `gorm:"size:128;not null" json:"departure"`
	Destination string         `gorm:"size:128;not null" json:"destination"`
	TravelDate  datatypes.Date `gorm:"not null" json:"travel_date"`
}

func (TravelHistory) TableName() string { return "travel_history" }
