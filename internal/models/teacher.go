package models

import "time"

// TeacherProfile holds the optional public details of a teacher account.
type TeacherProfile struct {
	ID          string    `db:"id" json:"id"`
	UserID      string    `db:"user_id" json:"user_id"`
	Description *string   `db:"description" json:"description,omitempty"`
	PhotoPath   *string   `db:"photo_path" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// ProfileView is the profile as returned to clients, with a signed photo URL.
type ProfileView struct {
	UserID         string     `json:"user_id"`
	FullName       string     `json:"full_name"`
	Email          string     `json:"email"`
	Description    *string    `json:"description,omitempty"`
	PhotoURL       *string    `json:"photo_url,omitempty"`
	PhotoExpiresAt *time.Time `json:"photo_url_expires_at,omitempty"`
}

// ProfileUpdate carries the optional multipart fields of a profile update.
type ProfileUpdate struct {
	Description *string `validate:"omitempty,max=500"`
	Image       []byte
	ImageName   string
}
