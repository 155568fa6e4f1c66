package models

import "github.com/golang-jwt/jwt/v5"

// LoginRequest accepts OAuth2 password-form fields (username) as well as JSON (email).
type LoginRequest struct {
	Username string `form:"username" json:"username"`
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password" validate:"required"`
}

// Identifier returns the e-mail the caller logs in with.
func (r LoginRequest) Identifier() string {
	if r.Email != "" {
		return r.Email
	}
	return r.Username
}

// LoginResponse is the bearer token handed back after a successful login.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ChangePasswordRequest payload for updating the caller's own password.
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=8,max=72,nefield=OldPassword"`
}

// TokenClaims is the JWT payload. Subject carries the user's e-mail.
type TokenClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	jwt.RegisteredClaims
}

// Actor is the authenticated caller as seen by services.
type Actor struct {
	ID   string
	Role UserRole
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }
