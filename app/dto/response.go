package dto

import (
	"time"

	"github.com/chronosync/chronosync-api/app/entity"
)

type ErrorResponse struct {
	Error  string       `json:"error"`
	Fields []FieldError `json:"fields,omitempty"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type DeletionResponse struct {
	Message string `json:"message"`
	Details string `json:"details"`
}

// UserResponse is the public view of a user. Optional columns become
// nullable JSON fields; the password hash and token columns never leave
// the server.
type UserResponse struct {
	ID            uint64     `json:"id"`
	Name          *string    `json:"name"`
	Email         string     `json:"email"`
	Image         *string    `json:"image"`
	EmailVerified *time.Time `json:"email_verified"`
	CreatedAt     time.Time  `json:"created_at"`
}

func UserFromEntity(user *entity.User) UserResponse {
	resp := UserResponse{
		ID:        user.ID,
		Email:     user.Email,
		CreatedAt: user.CreatedAt,
	}
	if user.Name.Valid {
		resp.Name = &user.Name.String
	}
	if user.Image.Valid {
		resp.Image = &user.Image.String
	}
	if user.EmailVerified.Valid {
		t := user.EmailVerified.Time
		resp.EmailVerified = &t
	}
	return resp
}

type AuthResponse struct {
	User  UserResponse `json:"user"`
	Token string       `json:"token"`
}
