package dto

import (
	"time"

	"github.com/spec-kit/user-service/internal/domain"
)

// UserCreateRequest payload for new users. The name fields must be present but may be empty.
type UserCreateRequest struct {
	Username  string  `json:"username" validate:"required,max=150"`
	FirstName *string `json:"first_name" validate:"required,max=150"`
	LastName  *string `json:"last_name" validate:"required,max=150"`
	Email     string  `json:"email" validate:"required,email,max=254"`
	Password  string  `json:"password" validate:"required"`
}

// UserPatchRequest payload for partial updates. Absent or null fields are left untouched.
type UserPatchRequest struct {
	Username  *string `json:"username" validate:"omitempty,min=1,max=150"`
	FirstName *string `json:"first_name" validate:"omitempty,max=150"`
	LastName  *string `json:"last_name" validate:"omitempty,max=150"`
	Email     *string `json:"email" validate:"omitempty,email,max=254"`
}

// Patch converts the request into a domain patch.
func (r UserPatchRequest) Patch() domain.UserPatch {
	return domain.UserPatch{
		Username:  r.Username,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Email:     r.Email,
	}
}

// LoginRequest payload for login, accepted as form or JSON.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// TokenResponse is returned by a successful login.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

// UserResponse is the public representation of a user.
type UserResponse struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	FirstName  string    `json:"first_name"`
	LastName   string    `json:"last_name"`
	Email      string    `json:"email"`
	FullName   string    `json:"full_name"`
	IsStaff    bool      `json:"is_staff"`
	IsActive   bool      `json:"is_active"`
	DateJoined time.Time `json:"date_joined"`
}

// UserListResponse is a page of users.
type UserListResponse struct {
	Items []UserResponse `json:"items"`
	Count int            `json:"count"`
}

// NewUserResponse maps a domain user, dropping credentials.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:         u.ID,
		Username:   u.Username,
		FirstName:  u.FirstName,
		LastName:   u.LastName,
		Email:      u.Email,
		FullName:   u.FullName(),
		IsStaff:    u.IsStaff,
		IsActive:   u.IsActive,
		DateJoined: u.DateJoined,
	}
}

// StatusResponse reports database health.
type StatusResponse struct {
	Status            string `json:"status"`
	UpdatedAt         string `json:"updated_at"`
	DBVersion         string `json:"db_version"`
	MaxConnections    int    `json:"max_connections"`
	ActiveConnections int    `json:"active_connections"`
	Cache             string `json:"cache"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Detail     string         `json:"detail"`
	StatusCode int            `json:"status_code"`
	Action     string         `json:"action,omitempty"`
	Details    map[string]any `json:"details,omitempty"`
}
