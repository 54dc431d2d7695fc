package controller

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/chronosync/chronosync-api/app/dto"
	"github.com/chronosync/chronosync-api/app/service"
)

type AppUsageController struct {
	usageService *service.AppUsageService
}

func NewAppUsageController(usageService *service.AppUsageService) *AppUsageController {
	return &AppUsageController{usageService: usageService}
}

type rangeFunc func(ctx echo.Context, userID uint64, page, limit int) (*service.UsagePage, error)

func (c *AppUsageController) Daily(ctx echo.Context) error {
	return c.usagePage(ctx, func(ctx echo.Context, userID uint64, page, limit int) (*service.UsagePage, error) {
		return c.usageService.Daily(ctx.Request().Context(), userID, page, limit)
	})
}

func (c *AppUsageController) Weekly(ctx echo.Context) error {
	return c.usagePage(ctx, func(ctx echo.Context, userID uint64, page, limit int) (*service.UsagePage, error) {
		return c.usageService.Weekly(ctx.Request().Context(), userID, page, limit)
	})
}

func (c *AppUsageController) Monthly(ctx echo.Context) error {
	return c.usagePage(ctx, func(ctx echo.Context, userID uint64, page, limit int) (*service.UsagePage, error) {
		return c.usageService.Monthly(ctx.Request().Context(), userID, page, limit)
	})
}

func (c *AppUsageController) Yearly(ctx echo.Context) error {
	return c.usagePage(ctx, func(ctx echo.Context, userID uint64, page, limit int) (*service.UsagePage, error) {
		return c.usageService.Yearly(ctx.Request().Context(), userID, page, limit)
	})
}

// Custom aggregates over a caller-supplied RFC 3339 window.
func (c *AppUsageController) Custom(ctx echo.Context) error {
	start, err := time.Parse(time.RFC3339, ctx.QueryParam("start"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "start must be an RFC 3339 timestamp"})
	}
	end, err := time.Parse(time.RFC3339, ctx.QueryParam("end"))
	if err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "end must be an RFC 3339 timestamp"})
	}

	return c.usagePage(ctx, func(ctx echo.Context, userID uint64, page, limit int) (*service.UsagePage, error) {
		return c.usageService.Range(ctx.Request().Context(), userID, start, end, page, limit)
	})
}

func (c *AppUsageController) usagePage(ctx echo.Context, fetch rangeFunc) error {
	userID, ok := ctx.Get("user_id").(uint64)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	page, err := queryInt(ctx, "page", 1)
	if err != nil || page < 1 {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "page must be a positive integer"})
	}
	limit, err := queryInt(ctx, "limit", service.DefaultPageLimit)
	if err != nil || limit < 1 || limit > service.MaxPageLimit {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "limit must be between 1 and 100"})
	}

	result, err := fetch(ctx, userID, page, limit)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSessionRange) {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "end must be after start"})
		}
		log.WithError(err).Error("usage query failed")
		return internalError(ctx)
	}

	return ctx.JSON(http.StatusOK, result)
}

func (c *AppUsageController) RecordSession(ctx echo.Context) error {
	userID, ok := ctx.Get("user_id").(uint64)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	var req dto.RecordSessionRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return validationError(ctx, err)
	}

	err := c.usageService.RecordSession(ctx.Request().Context(), userID, req.AppName, req.PackageName, req.StartTime, req.EndTime)
	if err != nil {
		if errors.Is(err, service.ErrInvalidSessionRange) {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "end must be after start"})
		}
		log.WithError(err).Error("record session failed")
		return internalError(ctx)
	}

	return ctx.JSON(http.StatusCreated, dto.MessageResponse{Message: "session recorded"})
}

func queryInt(ctx echo.Context, name string, defaultValue int) (int, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(raw)
}
