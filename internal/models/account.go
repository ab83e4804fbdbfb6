package models

import "time"

// Account holds the credentials managed by the session provider. It is kept
// separate from Profile: auth state and editable profile state have different
// owners and lifecycles.
type Account struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	Email        string    `gorm:"unique;not null" json:"email"`
	PasswordHash string    `gorm:"not null" json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
