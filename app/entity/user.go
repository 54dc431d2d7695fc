package entity

import (
	"database/sql"
	"time"
)

// User is the canonical account record. Email is globally unique; a user
// without a password hash can only authenticate through a linked OAuth
// account. VerificationToken doubles as the email-verification token and
// the password-reset token: at most one live token per user, the newest
// request overwrites the previous one.
type User struct {
	ID                         uint64
	Name                       sql.NullString
	Email                      string
	PasswordHash               sql.NullString
	Image                      sql.NullString
	EmailVerified              sql.NullTime
	VerificationToken          sql.NullString
	VerificationTokenExpiresAt sql.NullTime
	CreatedAt                  time.Time
	UpdatedAt                  time.Time
}

// OAuthAccount binds one external provider identity to one user.
// (provider, provider_account_id) is unique, so an external identity maps
// to at most one user.
type OAuthAccount struct {
	ID                uint64
	UserID            uint64
	Provider          string
	ProviderAccountID string
	AccessToken       string
	RefreshToken      sql.NullString
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
