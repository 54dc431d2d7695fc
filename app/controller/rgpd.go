package controller

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/chronosync/chronosync-api/app/dto"
	"github.com/chronosync/chronosync-api/app/service"
)

type RGPDController struct {
	rgpdService *service.RGPDService
}

func NewRGPDController(rgpdService *service.RGPDService) *RGPDController {
	return &RGPDController{rgpdService: rgpdService}
}

// Export streams the user's data as a JSON download.
func (c *RGPDController) Export(ctx echo.Context) error {
	userID, ok := ctx.Get("user_id").(uint64)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	export, err := c.rgpdService.Export(ctx.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
		}
		log.WithError(err).Error("rgpd export failed")
		return internalError(ctx)
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="user-data-%d.json"`, userID))
	return ctx.JSON(http.StatusOK, export)
}

func (c *RGPDController) RequestDeletion(ctx echo.Context) error {
	userID, ok := ctx.Get("user_id").(uint64)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	details, err := c.rgpdService.RequestDeletion(ctx.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
		}
		log.WithError(err).Error("rgpd deletion request failed")
		return internalError(ctx)
	}

	return ctx.JSON(http.StatusOK, dto.DeletionResponse{
		Message: "deletion request received",
		Details: details,
	})
}
