package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/wareable/user-service/internal/api/middleware"
	"github.com/wareable/user-service/internal/core/domain"
)

// ctxClaims returns the claims injected by the Auth middleware. A route
// mounted without Auth gets a 401 rather than an empty identity.
func ctxClaims(c echo.Context) (domain.Claims, error) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok || claims.UserID == "" {
		return domain.Claims{}, echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return claims, nil
}

// bindAndValidate decodes the request body into req and runs the registered
// validator. Both failures are reported as 400.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}
