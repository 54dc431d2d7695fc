package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/chronosync/chronosync-api/config"
)

func TestPasswordPolicy_Validate(t *testing.T) {
	policy := config.PasswordPolicy{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumber:    true,
		RequireSpecial:   false,
	}

	tests := []struct {
		name     string
		password string
		wantErr  string
	}{
		{"valid", "Str0ngPass", ""},
		{"too short", "Ab1", "at least 8 characters"},
		{"missing uppercase", "weakpass1", "uppercase letter"},
		{"missing number", "WeakPassword", "number"},
		{"missing several", "onlylowercase", "uppercase letter, number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := policy.Validate(tt.password)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected valid password, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoad_RequiresSecrets(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	t.Setenv("MYSQL_DSN", "")

	if _, err := config.Load(); err == nil {
		t.Fatal("expected error when JWT_SECRET is missing")
	}

	t.Setenv("JWT_SECRET", "secret")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error when MYSQL_DSN is missing")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("MYSQL_DSN", "user:pass@tcp(localhost:3306)/app?parseTime=true")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.HTTP.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.HTTP.Port)
	}
	if cfg.JWT.TTL != 30*24*time.Hour {
		t.Errorf("expected 30 day JWT TTL, got %v", cfg.JWT.TTL)
	}
	if cfg.Tokens.ResetTTL != time.Hour {
		t.Errorf("expected 1h reset TTL, got %v", cfg.Tokens.ResetTTL)
	}
	if cfg.Password.Policy.MinLength != 8 {
		t.Errorf("expected min length 8, got %d", cfg.Password.Policy.MinLength)
	}
	if cfg.OAuth.Google.Configured() {
		t.Error("google should not be configured without credentials")
	}
}

func TestLoad_DurationsInMinutes(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("MYSQL_DSN", "dsn")
	t.Setenv("JWT_TTL", "15")
	t.Setenv("RESET_TOKEN_TTL", "30")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.JWT.TTL != 15*time.Minute {
		t.Errorf("expected 15m JWT TTL, got %v", cfg.JWT.TTL)
	}
	if cfg.Tokens.ResetTTL != 30*time.Minute {
		t.Errorf("expected 30m reset TTL, got %v", cfg.Tokens.ResetTTL)
	}
}

func TestLoad_OAuthCallbackDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("MYSQL_DSN", "dsn")
	t.Setenv("API_URL", "https://api.example.com")
	t.Setenv("GOOGLE_CLIENT_ID", "id")
	t.Setenv("GOOGLE_CLIENT_SECRET", "secret")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if !cfg.OAuth.Google.Configured() {
		t.Fatal("google should be configured")
	}
	want := "https://api.example.com/api/auth/google/callback"
	if cfg.OAuth.Google.CallbackURL != want {
		t.Errorf("expected callback %q, got %q", want, cfg.OAuth.Google.CallbackURL)
	}
}
