package auth

import "time"

// User is an account allowed to mutate CRM records.
type User struct {
	ID           uint64    `gorm:"primaryKey"`
	Email        string    `gorm:"size:255;uniqueIndex;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}
