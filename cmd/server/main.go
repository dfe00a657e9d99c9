package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/wareable/user-service/internal/api"
	"github.com/wareable/user-service/internal/api/handler"
	"github.com/wareable/user-service/internal/api/metrics"
	"github.com/wareable/user-service/internal/core/policy"
	"github.com/wareable/user-service/internal/core/ports"
	"github.com/wareable/user-service/internal/core/service"
	mongostore "github.com/wareable/user-service/internal/infrastructure/db/mongo"
	redisstore "github.com/wareable/user-service/internal/infrastructure/db/redis"
	"github.com/wareable/user-service/internal/infrastructure/logsink"
	"github.com/wareable/user-service/internal/infrastructure/security/password"
	"github.com/wareable/user-service/internal/infrastructure/security/token"
	"github.com/wareable/user-service/internal/pkg/config"
	"github.com/wareable/user-service/pkg/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "user-service: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "user-service",
	})

	// --- Storage ---
	mongoClient, db, err := mongostore.Connect(ctx, mongostore.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	users := mongostore.NewUserRepository(db)
	roles := mongostore.NewRoleRepository(db)
	if err := mongostore.Bootstrap(ctx, users, roles, cfg.Mongo.SeedRoles); err != nil {
		return err
	}
	log.Info().Str("database", cfg.Mongo.Database).Bool("seeded_roles", cfg.Mongo.SeedRoles).Msg("mongodb ready")

	rdb, err := redisstore.Connect(ctx, redisstore.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	// --- Log shipping ---
	var sink ports.LogSink = logsink.Nop{}
	var shipper *logsink.Shipper
	if cfg.LogSink.Enabled {
		appender, err := logsink.NewS3Appender(ctx, logsink.Config{
			Region:          cfg.LogSink.Region,
			AccessKeyID:     cfg.LogSink.AccessKeyID,
			SecretAccessKey: cfg.LogSink.SecretAccessKey,
			Endpoint:        cfg.LogSink.Endpoint,
			Bucket:          cfg.LogSink.Bucket,
		})
		if err != nil {
			return err
		}
		if err := appender.EnsureBucket(ctx); err != nil {
			log.Warn().Err(err).Str("bucket", cfg.LogSink.Bucket).Msg("log bucket unavailable, shipping may fail")
		}
		shipper = logsink.NewShipper(appender, 0, log)
		shipper.Start()
		metrics.RegisterLogSink(shipper)
		sink = shipper
	}

	// --- Security ---
	hasher, err := password.NewBcryptHasher(cfg.Auth.BcryptCost)
	if err != nil {
		return err
	}
	tokens, err := token.NewJWT(token.Config{
		Secret: cfg.Auth.JWTSecret,
		TTL:    cfg.Auth.JWTTTL,
		Issuer: cfg.Auth.JWTIssuer,
	})
	if err != nil {
		return err
	}
	perms, err := policy.Load(cfg.Auth.PermissionsFile)
	if err != nil {
		return err
	}
	throttle := redisstore.NewSigninThrottle(rdb, cfg.Auth.SigninMaxFailures, cfg.Auth.SigninLockout)

	// --- Services ---
	authService := service.NewAuthService(
		users,
		service.NewRoleResolver(roles),
		metrics.InstrumentHasher(hasher),
		tokens,
		throttle,
		sink,
		log.With().Str("component", "auth").Logger(),
	)
	userService := service.NewUserService(users, sink, log.With().Str("component", "users").Logger())

	// --- HTTP ---
	e := api.NewRouter(api.Dependencies{
		Auth:   authService,
		Users:  userService,
		Tokens: tokens,
		Policy: perms,
		Readiness: map[string]handler.Pinger{
			"mongodb": func(ctx context.Context) error { return mongoClient.Ping(ctx, readpref.Primary()) },
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
		Logger:            log,
		Sink:              sink,
		AuthRatePerMinute: cfg.Auth.RatePerMinute,
		Metrics:           true,
	})

	serverErrors := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Strs("roles", perms.Roles()).Msg("user service starting")
		serverErrors <- e.Start(":" + cfg.Port)
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	}

	return shutdown(e.Shutdown, shipper, log)
}

func shutdown(stopServer func(context.Context) error, shipper *logsink.Shipper, log zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := stopServer(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if shipper != nil {
		if err := shipper.Stop(ctx); err != nil {
			errs = append(errs, fmt.Errorf("log shipper: %w", err))
		}
		st := shipper.Stats()
		log.Info().Int64("shipped", st.Shipped).Int64("dropped", st.Dropped).Int64("failed", st.Failed).Msg("log shipper stopped")
	}

	log.Info().Msg("user service stopped")
	return errors.Join(errs...)
}
