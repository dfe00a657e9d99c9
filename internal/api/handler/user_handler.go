package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wareable/user-service/internal/core/ports"
)

// UserHandler serves updates and deletions of existing users.
type UserHandler struct {
	users ports.UserService
}

func NewUserHandler(users ports.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type updateUserRequest struct {
	Username string `json:"username" validate:"required,min=3,max=20"`
	Email    string `json:"email"    validate:"required,max=50,email"`
}

type profileResponse struct {
	ID       string   `json:"id"`
	Username string   `json:"username"`
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
}

// Update handles PUT /api/auth/:id.
func (h *UserHandler) Update(c echo.Context) error {
	var req updateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	profile, err := h.users.Update(c.Request().Context(), ports.UpdateUserInput{
		ID:       c.Param("id"),
		Username: req.Username,
		Email:    req.Email,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, profileResponse{
		ID:       profile.ID,
		Username: profile.Username,
		Email:    profile.Email,
		Roles:    profile.Roles,
	})
}

// Delete handles DELETE /api/auth/:id.
func (h *UserHandler) Delete(c echo.Context) error {
	if err := h.users.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, messageResponse{Message: "User deleted successfully"})
}
