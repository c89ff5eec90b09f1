package models

type Bus struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:100;not null" json:"name"`
	Route    string `gorm:"size:200;not null" json:"route"`
	Capacity int    `gorm:"not null" json:"capacity"` // seats, always > 0
}

func (Bus) TableName() string { return "bus" }
