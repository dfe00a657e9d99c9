package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Auth    AuthConfig
	Mongo   MongoConfig
	Redis   RedisConfig
	LogSink LogSinkConfig
}

type AuthConfig struct {
	JWTSecret         string        `env:"JWT_SECRET"`
	JWTTTL            time.Duration `env:"JWT_TTL,             default=24h"`
	JWTIssuer         string        `env:"JWT_ISSUER,          default=user-service"`
	BcryptCost        int           `env:"BCRYPT_COST,         default=10"`
	PermissionsFile   string        `env:"PERMISSIONS_FILE"`
	SigninMaxFailures int           `env:"SIGNIN_MAX_FAILURES, default=5"`
	SigninLockout     time.Duration `env:"SIGNIN_LOCKOUT,      default=15m"`
	RatePerMinute     int           `env:"AUTH_RATE_PER_MIN,   default=30"`
}

type MongoConfig struct {
	URI       string        `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Database  string        `env:"MONGO_DB,      default=user_service"`
	Timeout   time.Duration `env:"MONGO_TIMEOUT, default=10s"`
	SeedRoles bool          `env:"SEED_ROLES,    default=true"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR,     default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,       default=0"`
}

type LogSinkConfig struct {
	Enabled         bool   `env:"LOG_SINK_ENABLED,      default=false"`
	Region          string `env:"AWS_REGION,            default=us-east-1"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint        string `env:"S3_ENDPOINT"`
	Bucket          string `env:"S3_LOG_BUCKET,         default=user-service-logs"`
}

// IsDevelopment reports whether the service runs in a local environment.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development" || c.Env == "local"
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.JWTTTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}
	if c.Auth.RatePerMinute <= 0 {
		errs = append(errs, errors.New("AUTH_RATE_PER_MIN must be positive"))
	}
	if c.LogSink.Enabled && c.LogSink.Bucket == "" {
		errs = append(errs, errors.New("S3_LOG_BUCKET is required when LOG_SINK_ENABLED is set"))
	}
	return errors.Join(errs...)
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return load(ctx, envconfig.OsLookuper())
}

func load(ctx context.Context, lookuper envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: lookuper}); err != nil {
		return nil, fmt.Errorf("config: failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &cfg, nil
}
