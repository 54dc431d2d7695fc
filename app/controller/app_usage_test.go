package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/chronosync/chronosync-api/app/controller"
	"github.com/chronosync/chronosync-api/app/middleware"
	"github.com/chronosync/chronosync-api/app/service"
)

var appUsageColumns = []string{"id", "app_name", "package_name", "total_duration", "session_count"}

const (
	usageForRangeQuery     = `(?s)SELECT a\.id, a\.app_name, a\.package_name,.+FROM app_usage_sessions s\s+JOIN applications a ON a\.id = s\.app_id`
	countAppsForRangeQuery = `(?s)SELECT COUNT\(DISTINCT s\.app_id\)\s+FROM app_usage_sessions s`
	findAppByPackageQuery  = `(?s)SELECT id, app_name, package_name, created_at\s+FROM applications WHERE package_name = \?`
	insertSessionQuery     = `(?s)INSERT INTO app_usage_sessions`
)

// asUser injects the authenticated identity the way RequireAuth would.
func asUser(userID uint64) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(middleware.ContextKeyUserID, userID)
			return next(c)
		}
	}
}

func newUsageEcho(t *testing.T) (*echo.Echo, sqlmock.Sqlmock, func()) {
	t.Helper()

	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}

	ctrl := controller.NewAppUsageController(service.NewAppUsageService(db))

	e := echo.New()
	usage := e.Group("/api/usage", asUser(7))
	usage.GET("/daily", ctrl.Daily)
	usage.GET("/weekly", ctrl.Weekly)
	usage.GET("/custom", ctrl.Custom)
	usage.POST("/sessions", ctrl.RecordSession)

	return e, mock, func() { _ = db.Close() }
}

func TestAppUsageController_Daily(t *testing.T) {
	e, mock, cleanup := newUsageEcho(t)
	defer cleanup()

	mock.ExpectQuery(usageForRangeQuery).
		WillReturnRows(sqlmock.NewRows(appUsageColumns).
			AddRow(1, "Browser", "org.example.browser", int64(3600), int64(4)))
	mock.ExpectQuery(countAppsForRangeQuery).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(1)))

	req := httptest.NewRequest(http.MethodGet, "/api/usage/daily", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var page service.UsagePage
	if err := json.Unmarshal(rec.Body.Bytes(), &page); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if page.Total != 1 || page.Page != 1 || page.Limit != service.DefaultPageLimit {
		t.Fatalf("unexpected pagination: %+v", page)
	}
	if len(page.Data) != 1 || page.Data[0].AppName != "Browser" {
		t.Fatalf("unexpected data: %+v", page.Data)
	}
}

func TestAppUsageController_RejectsBadPagination(t *testing.T) {
	e, _, cleanup := newUsageEcho(t)
	defer cleanup()

	for _, path := range []string{
		"/api/usage/daily?page=0",
		"/api/usage/daily?page=abc",
		"/api/usage/weekly?limit=0",
		"/api/usage/weekly?limit=101",
		"/api/usage/weekly?limit=abc",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for %s, got %d", path, rec.Code)
		}
	}
}

func TestAppUsageController_Custom_RequiresRFC3339(t *testing.T) {
	e, _, cleanup := newUsageEcho(t)
	defer cleanup()

	for _, path := range []string{
		"/api/usage/custom",
		"/api/usage/custom?start=2026-08-01&end=2026-08-29",
		"/api/usage/custom?start=2026-08-01T00:00:00Z",
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400 for %s, got %d", path, rec.Code)
		}
	}
}

func TestAppUsageController_Custom_InvertedWindow(t *testing.T) {
	e, _, cleanup := newUsageEcho(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet,
		"/api/usage/custom?start=2026-08-29T00:00:00Z&end=2026-08-01T00:00:00Z", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestAppUsageController_RecordSession(t *testing.T) {
	e, mock, cleanup := newUsageEcho(t)
	defer cleanup()

	mock.ExpectBegin()
	mock.ExpectQuery(findAppByPackageQuery).
		WillReturnRows(sqlmock.NewRows([]string{"id", "app_name", "package_name", "created_at"}))
	mock.ExpectExec(`INSERT INTO applications`).
		WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectExec(insertSessionQuery).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	rec := doJSON(t, e, http.MethodPost, "/api/usage/sessions",
		`{"app_name":"Browser","package_name":"org.example.browser","start_time":"2026-08-29T10:00:00Z","end_time":"2026-08-29T11:00:00Z"}`)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestAppUsageController_RecordSession_Invalid(t *testing.T) {
	e, _, cleanup := newUsageEcho(t)
	defer cleanup()

	tests := []struct {
		name string
		body string
	}{
		{"missing fields", `{"app_name":""}`},
		{"inverted window", `{"app_name":"A","package_name":"p","start_time":"2026-08-29T11:00:00Z","end_time":"2026-08-29T10:00:00Z"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, e, http.MethodPost, "/api/usage/sessions", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}
