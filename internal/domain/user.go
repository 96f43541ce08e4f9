package domain

import "time"

// User is the identity every created_by/locked_by/editing_by value refers to.
// CursorColor is assigned once at registration and travels with the token so
// peers can render the user's cursor without a lookup.
type User struct {
	ID          string    `json:"id"`
	Username    string    `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email       string    `json:"email" validate:"required,email"`
	Password    string    `json:"password,omitempty"`
	CursorColor string    `json:"cursor_color"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=30,alphanum"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginResponse struct {
	User        *User  `json:"user"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}
