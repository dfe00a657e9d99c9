package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/wareable/user-service/internal/api/metrics"
	"github.com/wareable/user-service/internal/core/domain"
	"github.com/wareable/user-service/internal/core/ports"
)

// RequirePermission lets the request through only when one of the caller's
// roles grants permission. It must run after Auth.
func RequirePermission(checker ports.PermissionChecker, permission string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return domain.ErrTokenMissing
			}

			allowed := checker.AnyGrants(claims.Roles, permission)
			metrics.PermissionChecksTotal.WithLabelValues(metrics.PermissionResult(allowed)).Inc()
			if !allowed {
				return domain.ErrForbidden
			}
			return next(c)
		}
	}
}
