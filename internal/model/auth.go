package model

import "time"

// AuthRequest types
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Role     Role   `json:"role" binding:"omitempty,hospital_role"`
}

// Session is returned by login and registration.
type Session struct {
	AccessToken string     `json:"access_token"`
	User        PublicUser `json:"user"`
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	UserID    int64
	Email     string
	Role      Role
	TokenID   string
	ExpiresAt time.Time
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
