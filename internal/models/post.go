package models

import "time"

// Post is an image post tied to a profile. The ID is generated by the server
// at creation time (not by the store) so the blob key can be derived from it
// before the row is inserted.
type Post struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	UserID    string    `gorm:"not null;index;size:36" json:"user_id"`
	ImageURL  string    `gorm:"not null" json:"image_url"`
	Caption   string    `gorm:"type:text;not null" json:"caption"`
	CreatedAt time.Time `json:"created_at"`
}
