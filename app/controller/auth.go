package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"github.com/chronosync/chronosync-api/app/dto"
	"github.com/chronosync/chronosync-api/app/oauth"
	"github.com/chronosync/chronosync-api/app/service"
	"github.com/chronosync/chronosync-api/config"
)

const (
	oauthStateCookie = "oauth_state"
	oauthStateTTL    = 10 * time.Minute
)

type AuthController struct {
	authService *service.AuthService
	providers   oauth.Registry
	frontendURL string
}

func NewAuthController(authService *service.AuthService, providers oauth.Registry, cfg *config.Config) *AuthController {
	return &AuthController{
		authService: authService,
		providers:   providers,
		frontendURL: cfg.Frontend.URL,
	}
}

func (c *AuthController) Register(ctx echo.Context) error {
	var req dto.RegisterRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return validationError(ctx, err)
	}

	result, err := c.authService.Register(ctx.Request().Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrEmailTaken) {
			return ctx.JSON(http.StatusConflict, dto.ErrorResponse{Error: "email already registered"})
		}
		if errors.Is(err, service.ErrWeakPassword) {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		}
		log.WithError(err).Error("register failed")
		return internalError(ctx)
	}

	return ctx.JSON(http.StatusCreated, dto.AuthResponse{
		User:  dto.UserFromEntity(result.User),
		Token: result.Token,
	})
}

func (c *AuthController) Login(ctx echo.Context) error {
	var req dto.LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return validationError(ctx, err)
	}

	result, err := c.authService.Login(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "invalid credentials"})
		}
		if errors.Is(err, service.ErrPasswordLoginUnavailable) {
			return ctx.JSON(http.StatusForbidden, dto.ErrorResponse{Error: "this account uses social login"})
		}
		log.WithError(err).Error("login failed")
		return internalError(ctx)
	}

	return ctx.JSON(http.StatusOK, dto.AuthResponse{
		User:  dto.UserFromEntity(result.User),
		Token: result.Token,
	})
}

// OAuthLogin starts the authorization-code flow. The CSRF state lands in
// a short-lived cookie and must come back unchanged on the callback.
func (c *AuthController) OAuthLogin(ctx echo.Context) error {
	provider, err := c.providers.Get(ctx.Param("provider"))
	if err != nil {
		return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "unknown provider"})
	}

	state := uuid.NewString()
	ctx.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int(oauthStateTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return ctx.Redirect(http.StatusTemporaryRedirect, provider.AuthURL(state))
}

func (c *AuthController) OAuthCallback(ctx echo.Context) error {
	provider, err := c.providers.Get(ctx.Param("provider"))
	if err != nil {
		return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "unknown provider"})
	}

	cookie, err := ctx.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != ctx.QueryParam("state") {
		return c.failedLoginRedirect(ctx)
	}
	// The state cookie is single-use.
	ctx.SetCookie(&http.Cookie{Name: oauthStateCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})

	code := ctx.QueryParam("code")
	if code == "" {
		return c.failedLoginRedirect(ctx)
	}

	identity, err := provider.Exchange(ctx.Request().Context(), code)
	if err != nil {
		log.WithError(err).WithField("provider", provider.Name()).Warn("oauth exchange failed")
		return c.failedLoginRedirect(ctx)
	}

	result, err := c.authService.OAuthLogin(ctx.Request().Context(), identity)
	if err != nil {
		log.WithError(err).WithField("provider", provider.Name()).Warn("oauth login failed")
		return c.failedLoginRedirect(ctx)
	}

	return ctx.Redirect(http.StatusTemporaryRedirect, c.frontendURL+"/oauth-callback?token="+result.Token)
}

func (c *AuthController) failedLoginRedirect(ctx echo.Context) error {
	return ctx.Redirect(http.StatusTemporaryRedirect, c.frontendURL+"/login?error=authentication-failed")
}

func (c *AuthController) Profile(ctx echo.Context) error {
	userID, ok := ctx.Get("user_id").(uint64)
	if !ok {
		return ctx.JSON(http.StatusUnauthorized, dto.ErrorResponse{Error: "unauthorized"})
	}

	user, err := c.authService.GetProfile(ctx.Request().Context(), userID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			return ctx.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "user not found"})
		}
		log.WithError(err).Error("profile lookup failed")
		return internalError(ctx)
	}

	return ctx.JSON(http.StatusOK, dto.UserFromEntity(user))
}

// RequestPasswordReset answers the same 200 whether or not the email is
// registered.
func (c *AuthController) RequestPasswordReset(ctx echo.Context) error {
	var req dto.PasswordResetRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return validationError(ctx, err)
	}

	if _, err := c.authService.RequestPasswordReset(ctx.Request().Context(), req.Email); err != nil {
		log.WithError(err).Error("password reset request failed")
		return internalError(ctx)
	}

	return ctx.JSON(http.StatusOK, dto.MessageResponse{
		Message: "if the email is registered, a reset link has been sent",
	})
}

func (c *AuthController) ConfirmPasswordReset(ctx echo.Context) error {
	var req dto.PasswordResetConfirmRequest
	if err := ctx.Bind(&req); err != nil {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid request body"})
	}
	if err := req.Validate(); err != nil {
		return validationError(ctx, err)
	}

	err := c.authService.ResetPassword(ctx.Request().Context(), req.Token, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid reset token"})
		}
		if errors.Is(err, service.ErrTokenExpired) {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "reset token expired"})
		}
		if errors.Is(err, service.ErrWeakPassword) {
			return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		}
		log.WithError(err).Error("password reset confirm failed")
		return internalError(ctx)
	}

	return ctx.JSON(http.StatusOK, dto.MessageResponse{Message: "password updated"})
}

func validationError(ctx echo.Context, err error) error {
	var verr *dto.ValidationError
	if errors.As(err, &verr) {
		return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "validation failed", Fields: verr.Fields})
	}
	return ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
}

func internalError(ctx echo.Context) error {
	return ctx.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
}
