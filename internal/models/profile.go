package models

import "time"

// Profile is the single editable artist profile for a user identity.
// Its ID equals the owning account's ID. Optional columns are pointers so
// a blank form field is written back as NULL on upsert, not skipped.
type Profile struct {
	ID            string    `gorm:"primaryKey;size:36" json:"id"`
	FullName      *string   `json:"full_name"`
	Username      *string   `json:"username"`
	Description   *string   `gorm:"type:text" json:"description"`
	Location      *string   `json:"location"`
	JobRole       *string   `json:"job_role"`
	AvatarURL     *string   `json:"avatar_url"`
	PublicProfile bool      `gorm:"not null;default:false" json:"public_profile"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// ProfileFields carries the editable columns for an upsert. Every field is
// written as-is; nil means NULL, matching whatever the account form holds.
type ProfileFields struct {
	FullName      *string `json:"full_name"`
	Username      *string `json:"username"`
	Description   *string `json:"description"`
	Location      *string `json:"location"`
	JobRole       *string `json:"job_role"`
	AvatarURL     *string `json:"avatar_url"`
	PublicProfile bool    `json:"public_profile"`
}
