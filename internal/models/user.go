package models

import "time"

// UserRole governs endpoint access.
type UserRole string

const (
	RoleAdmin   UserRole = "admin"
	RoleTeacher UserRole = "teacher"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	return r == RoleAdmin || r == RoleTeacher
}

// User represents an account stored in the users table.
type User struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FullName     string     `db:"full_name" json:"full_name"`
	Role         UserRole   `db:"role" json:"role"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	Active   *bool
	Search   string
	Page     int
	PageSize int
}

// CreateUserRequest is the payload for registering an account.
type CreateUserRequest struct {
	Email    string   `json:"email" validate:"required,email"`
	Password string   `json:"password" validate:"required,min=8,max=72"`
	FullName string   `json:"full_name" validate:"required,max=120"`
	Role     UserRole `json:"role" validate:"required,oneof=admin teacher"`
}

// UpdateUserRequest lists every field a user update may touch. Nil means unchanged.
type UpdateUserRequest struct {
	Email    *string   `json:"email" validate:"omitempty,email"`
	Password *string   `json:"password" validate:"omitempty,min=8,max=72"`
	FullName *string   `json:"full_name" validate:"omitempty,min=1,max=120"`
	Role     *UserRole `json:"role" validate:"omitempty,oneof=admin teacher"`
	Active   *bool     `json:"active"`
}

// UserChanges is the column set written by a user update. Nil fields are left as stored.
type UserChanges struct {
	Email        *string
	FullName     *string
	PasswordHash *string
	Role         *UserRole
	Active       *bool
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
