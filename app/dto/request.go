// Package dto defines the JSON request and response shapes of the HTTP
// API, plus request validation.
package dto

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates per-field failures of one request.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	messages := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		messages = append(messages, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return strings.Join(messages, "; ")
}

func (e *ValidationError) add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) orNil() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *RegisterRequest) Validate() error {
	var errs ValidationError
	if len(strings.TrimSpace(r.Name)) < 2 {
		errs.add("name", "must be at least 2 characters")
	}
	if r.Email == "" {
		errs.add("email", "is required")
	} else if !validEmail(r.Email) {
		errs.add("email", "is not a valid address")
	}
	if r.Password == "" {
		errs.add("password", "is required")
	}
	return errs.orNil()
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	var errs ValidationError
	if r.Email == "" {
		errs.add("email", "is required")
	}
	if r.Password == "" {
		errs.add("password", "is required")
	}
	return errs.orNil()
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

func (r *PasswordResetRequest) Validate() error {
	var errs ValidationError
	if r.Email == "" {
		errs.add("email", "is required")
	} else if !validEmail(r.Email) {
		errs.add("email", "is not a valid address")
	}
	return errs.orNil()
}

type PasswordResetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (r *PasswordResetConfirmRequest) Validate() error {
	var errs ValidationError
	if r.Token == "" {
		errs.add("token", "is required")
	}
	if r.Password == "" {
		errs.add("password", "is required")
	}
	return errs.orNil()
}

type RecordSessionRequest struct {
	AppName     string     `json:"app_name"`
	PackageName string     `json:"package_name"`
	StartTime   time.Time  `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
}

func (r *RecordSessionRequest) Validate() error {
	var errs ValidationError
	if strings.TrimSpace(r.AppName) == "" {
		errs.add("app_name", "is required")
	}
	if strings.TrimSpace(r.PackageName) == "" {
		errs.add("package_name", "is required")
	}
	if r.StartTime.IsZero() {
		errs.add("start_time", "is required")
	}
	if r.EndTime != nil && r.EndTime.Before(r.StartTime) {
		errs.add("end_time", "must not be before start_time")
	}
	return errs.orNil()
}
