package controller

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type HealthController struct {
	db *sql.DB
}

func NewHealthController(db *sql.DB) *HealthController {
	return &HealthController{db: db}
}

func (c *HealthController) Health(ctx echo.Context) error {
	status := http.StatusOK
	body := map[string]any{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := c.db.PingContext(ctx.Request().Context()); err != nil {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	return ctx.JSON(status, body)
}
