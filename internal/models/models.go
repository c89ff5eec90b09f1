package models

// User is a registered passenger. Username and email are each unique.
type User struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Username     string `gorm:"size:50;not null;uniqueIndex:uq_users_username" json:"username"`
	Email        string `gorm:"size:100;not null;uniqueIndex:uq_users_email" json:"email"`
	PasswordHash string `gorm:"size:255;not null" json:"-"`
}

func (User) TableName() string { return "users" }

// All lists every entity in dependency order, for migrations.
func All() []any {
	return []any{
		&User{},
		&Bus{},
		&Ticket{},
		&TravelHistory{},
		&WaitingQueueEntry{},
	}
}
