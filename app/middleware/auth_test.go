package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/chronosync/chronosync-api/app/entity"
	"github.com/chronosync/chronosync-api/app/middleware"
	"github.com/chronosync/chronosync-api/app/service"
	"github.com/chronosync/chronosync-api/config"
)

func newAuthMiddleware(t *testing.T) (*middleware.AuthMiddleware, *service.TokenService, func()) {
	t.Helper()

	db, _, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	cfg := &config.Config{
		JWT:      config.JWTConfig{Secret: "test-secret", TTL: time.Hour},
		Password: config.PasswordConfig{Policy: config.PasswordPolicy{MinLength: 1}},
	}
	tokens, err := service.NewTokenService(cfg.JWT.Secret, cfg.JWT.TTL)
	if err != nil {
		t.Fatalf("failed to create token service: %v", err)
	}
	authService := service.NewAuthService(db, tokens, service.NewPasswordHasherWithCost(bcrypt.MinCost), cfg)

	return middleware.NewAuthMiddleware(authService), tokens, func() { _ = db.Close() }
}

func protectedEcho(m *middleware.AuthMiddleware) *echo.Echo {
	e := echo.New()
	e.GET("/protected", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{
			"user_id": c.Get(middleware.ContextKeyUserID),
			"email":   c.Get(middleware.ContextKeyUserEmail),
		})
	}, m.RequireAuth)
	return e
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	m, _, cleanup := newAuthMiddleware(t)
	defer cleanup()

	e := protectedEcho(m)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	m, _, cleanup := newAuthMiddleware(t)
	defer cleanup()

	e := protectedEcho(m)
	for _, header := range []string{"Bearer", "Bearer ", "Basic abc", "garbage"} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set(echo.HeaderAuthorization, header)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected 401 for header %q, got %d", header, rec.Code)
		}
	}
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	m, _, cleanup := newAuthMiddleware(t)
	defer cleanup()

	e := protectedEcho(m)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer not-a-jwt")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestRequireAuth_ValidToken(t *testing.T) {
	m, tokens, cleanup := newAuthMiddleware(t)
	defer cleanup()

	signed, err := tokens.Issue(&entity.User{ID: 7, Email: "ada@example.com"})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}

	e := protectedEcho(m)
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+signed)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestRequireAuth_LetsPreflightPass(t *testing.T) {
	m, _, cleanup := newAuthMiddleware(t)
	defer cleanup()

	e := echo.New()
	e.OPTIONS("/protected", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, m.RequireAuth)

	req := httptest.NewRequest(http.MethodOptions, "/protected", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected preflight to pass, got %d", rec.Code)
	}
}

func TestOptionalAuth_AnonymousAllowed(t *testing.T) {
	m, _, cleanup := newAuthMiddleware(t)
	defer cleanup()

	e := echo.New()
	e.GET("/open", func(c echo.Context) error {
		if c.Get(middleware.ContextKeyUserID) != nil {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.NoContent(http.StatusOK)
	}, m.OptionalAuth)

	req := httptest.NewRequest(http.MethodGet, "/open", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for anonymous request, got %d", rec.Code)
	}
}

func TestSecurityHeaders(t *testing.T) {
	e := echo.New()
	e.Use(middleware.SecurityHeaders)
	e.GET("/", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff, got %q", got)
	}
	if got := rec.Header().Get("Referrer-Policy"); got != "strict-origin-when-cross-origin" {
		t.Errorf("unexpected referrer policy %q", got)
	}
	if got := rec.Header().Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("expected DENY, got %q", got)
	}
}
