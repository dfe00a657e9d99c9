package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/wareable/user-service/internal/api/metrics"
	"github.com/wareable/user-service/internal/core/domain"
	"github.com/wareable/user-service/internal/core/ports"
)

// AuthHandler serves signin, signup and permission queries.
type AuthHandler struct {
	auth    ports.AuthService
	checker ports.PermissionChecker
}

func NewAuthHandler(auth ports.AuthService, checker ports.PermissionChecker) *AuthHandler {
	return &AuthHandler{auth: auth, checker: checker}
}

// --- Request / Response types ---

type signinRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type signupRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=20"`
	Email    string   `json:"email"    validate:"required,max=50,email"`
	Password string   `json:"password" validate:"required,min=6,max=40"`
	Role     []string `json:"role"`
}

type signinResponse struct {
	Token     string    `json:"token"`
	Type      string    `json:"type"`
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type meResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}

type permissionCheckRequest struct {
	Role       string `json:"role"       validate:"required"`
	Permission string `json:"permission" validate:"required"`
}

type permissionCheckResponse struct {
	Role       string `json:"role"`
	Permission string `json:"permission"`
	Allowed    bool   `json:"allowed"`
}

// Signin handles POST /api/auth/signin.
func (h *AuthHandler) Signin(c echo.Context) error {
	var req signinRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.SigninTotal.WithLabelValues("invalid").Inc()
		return err
	}

	res, err := h.auth.Signin(c.Request().Context(), req.Username, req.Password)
	metrics.SigninTotal.WithLabelValues(signinResult(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, signinResponse{
		Token:     res.Token,
		Type:      res.TokenType,
		ID:        res.Profile.ID,
		Username:  res.Profile.Username,
		Email:     res.Profile.Email,
		Roles:     res.Profile.Roles,
		ExpiresAt: res.ExpiresAt,
	})
}

// Signup handles POST /api/auth/signup.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupRequest
	if err := bindAndValidate(c, &req); err != nil {
		metrics.SignupTotal.WithLabelValues("invalid").Inc()
		return err
	}

	res, err := h.auth.Signup(c.Request().Context(), ports.SignupInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Role,
	})
	metrics.SignupTotal.WithLabelValues(signupResult(err)).Inc()
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, messageResponse{Message: res.Message})
}

// Me handles GET /api/auth/me and echoes the caller's token claims.
func (h *AuthHandler) Me(c echo.Context) error {
	claims, err := ctxClaims(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, meResponse{
		ID:        claims.UserID,
		Username:  claims.Subject,
		Email:     claims.Email,
		Roles:     claims.Roles,
		ExpiresAt: claims.ExpiresAt,
	})
}

// CheckPermission handles POST /api/auth/permissions/check.
func (h *AuthHandler) CheckPermission(c echo.Context) error {
	var req permissionCheckRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	allowed := h.checker.HasPermission(req.Role, req.Permission)
	metrics.PermissionChecksTotal.WithLabelValues(metrics.PermissionResult(allowed)).Inc()

	return c.JSON(http.StatusOK, permissionCheckResponse{
		Role:       req.Role,
		Permission: req.Permission,
		Allowed:    allowed,
	})
}

func signinResult(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrTooManyAttempts):
		return "locked"
	default:
		return "error"
	}
}

func signupResult(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, domain.ErrDuplicateUsername), errors.Is(err, domain.ErrDuplicateEmail):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid"
	default:
		return "error"
	}
}
