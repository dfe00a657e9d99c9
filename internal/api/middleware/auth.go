package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/wareable/user-service/internal/api/metrics"
	"github.com/wareable/user-service/internal/core/domain"
	"github.com/wareable/user-service/internal/core/ports"
	"github.com/wareable/user-service/pkg/logger"
)

const claimsKey = "auth.claims"

// Auth validates the bearer token and stores its claims in the echo context.
// Failures are returned as domain token errors for the HTTP error handler.
func Auth(tokens ports.TokenValidator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, err := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if err != nil {
				metrics.TokenValidationsTotal.WithLabelValues(validationResult(err)).Inc()
				return err
			}

			claims, err := tokens.Validate(raw)
			metrics.TokenValidationsTotal.WithLabelValues(validationResult(err)).Inc()
			if err != nil {
				return err
			}

			c.Set(claimsKey, claims)

			req := c.Request()
			l := logger.FromContext(req.Context()).With().Str("user_id", claims.UserID).Logger()
			c.SetRequest(req.WithContext(logger.WithContext(req.Context(), l)))

			return next(c)
		}
	}
}

// ClaimsFrom returns the claims stored by Auth.
func ClaimsFrom(c echo.Context) (domain.Claims, bool) {
	claims, ok := c.Get(claimsKey).(domain.Claims)
	return claims, ok
}

func bearerToken(header string) (string, error) {
	if header == "" {
		return "", domain.ErrTokenMissing
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", domain.ErrTokenInvalid
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", domain.ErrTokenMissing
	}
	return token, nil
}

func validationResult(err error) string {
	switch {
	case err == nil:
		return "valid"
	case errors.Is(err, domain.ErrTokenMissing):
		return "missing"
	case errors.Is(err, domain.ErrTokenExpired):
		return "expired"
	default:
		return "invalid"
	}
}
