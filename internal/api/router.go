package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/wareable/user-service/internal/api/handler"
	"github.com/wareable/user-service/internal/api/middleware"
	"github.com/wareable/user-service/internal/core/policy"
	"github.com/wareable/user-service/internal/core/ports"
	"github.com/wareable/user-service/internal/infrastructure/logsink"
	"github.com/wareable/user-service/pkg/logger"
)

// Dependencies are the collaborators the HTTP layer needs. They are built in
// main and passed in explicitly.
type Dependencies struct {
	Auth      ports.AuthService
	Users     ports.UserService
	Tokens    ports.TokenValidator
	Policy    ports.PermissionChecker
	Readiness map[string]handler.Pinger
	Logger    zerolog.Logger
	// Sink receives the entries queued by /api/log/simulate. Nil discards them.
	Sink ports.LogSink
	// AuthRatePerMinute bounds signin and signup requests per client IP.
	AuthRatePerMinute int
	// Metrics mounts the Prometheus middleware and /metrics.
	Metrics bool
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestScopedLogger(deps.Logger))
	e.Use(accessLog(deps.Logger))
	if deps.Metrics {
		e.Use(echoprometheus.NewMiddleware("usersvc_http"))
		e.GET("/metrics", echoprometheus.NewHandler())
	}

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth, deps.Policy)
	userHandler := handler.NewUserHandler(deps.Users)
	sink := deps.Sink
	if sink == nil {
		sink = logsink.Nop{}
	}
	logHandler := handler.NewLogHandler(sink)
	requireAuth := middleware.Auth(deps.Tokens)
	limited := authRateLimiter(deps.AuthRatePerMinute)

	// --- Auth routes ---
	auth := e.Group("/api/auth")
	auth.POST("/signin", authHandler.Signin, limited)
	auth.POST("/signup", authHandler.Signup, limited)
	auth.GET("/me", authHandler.Me, requireAuth)
	auth.POST("/permissions/check", authHandler.CheckPermission, requireAuth)
	auth.PUT("/:id", userHandler.Update, requireAuth, middleware.RequirePermission(deps.Policy, policy.PermUpdateUser))
	auth.DELETE("/:id", userHandler.Delete, requireAuth, middleware.RequirePermission(deps.Policy, policy.PermDeleteUser))

	// --- Log sink check ---
	e.GET("/api/log/simulate", logHandler.Simulate, requireAuth, middleware.RequirePermission(deps.Policy, policy.PermViewLogs))

	// --- Health probes (no auth required) ---
	// liveness: is the process alive? readiness: are dependencies up?
	e.GET("/health", handler.NewHealthHandler().Liveness)
	e.GET("/health/ready", handler.NewReadinessHandler(deps.Readiness).Readiness)

	return e
}

// requestScopedLogger attaches a logger carrying the request id to the
// request context.
func requestScopedLogger(base zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := c.Response().Header().Get(echo.HeaderXRequestID)
			l := base.With().Str("request_id", id).Logger()
			req := c.Request()
			c.SetRequest(req.WithContext(logger.WithContext(req.Context(), l)))
			return next(c)
		}
	}
}

func accessLog(base zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			ev := base.Info()
			if v.Error != nil {
				ev = base.Warn().Err(v.Error)
			}
			ev.Str("request_id", v.RequestID).
				Str("method", v.Method).
				Str("uri", v.URI).
				Str("remote_ip", v.RemoteIP).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Msg("request")
			return nil
		},
	})
}

// authRateLimiter caps credential endpoints per client IP with a token
// bucket refilled at perMinute/60 per second.
func authRateLimiter(perMinute int) echo.MiddlewareFunc {
	if perMinute <= 0 {
		perMinute = 30
	}
	store := echomiddleware.NewRateLimiterMemoryStoreWithConfig(echomiddleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60),
		Burst:     perMinute,
		ExpiresIn: 3 * time.Minute,
	})
	return echomiddleware.RateLimiterWithConfig(echomiddleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "unable to identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
		},
	})
}
