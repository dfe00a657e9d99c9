// Package token issues and validates HS256 session tokens.
//
// Validation is stateless: it needs only the token, the signing secret and
// the current time, so any process holding the secret can validate tokens.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/wareable/user-service/internal/core/domain"
)

const defaultTTL = 24 * time.Hour

// ErrEmptySecret is returned by NewJWT when no signing secret is configured.
var ErrEmptySecret = errors.New("token: signing secret is empty")

// Config holds the issuer settings. Secret is opaque configuration and must
// never be compiled into the binary.
type Config struct {
	Secret string
	TTL    time.Duration
	Issuer string
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

// sessionClaims is the JWT payload.
type sessionClaims struct {
	UserID string   `json:"uid"`
	Email  string   `json:"email"`
	Roles  []string `json:"roles"`
	jwt.RegisteredClaims
}

// JWT implements ports.TokenIssuer and ports.TokenValidator.
type JWT struct {
	secret []byte
	ttl    time.Duration
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

// NewJWT returns a JWT issuer/validator. A non-positive TTL selects 24h.
func NewJWT(cfg Config) (*JWT, error) {
	if cfg.Secret == "" {
		return nil, ErrEmptySecret
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(now),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}

	return &JWT{
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		issuer: cfg.Issuer,
		now:    now,
		parser: jwt.NewParser(opts...),
	}, nil
}

// TTL returns the lifetime of issued tokens.
func (j *JWT) TTL() time.Duration {
	return j.ttl
}

// Issue signs a token for user, valid for the configured TTL.
func (j *JWT) Issue(user *domain.User) (string, domain.Claims, error) {
	// JWT NumericDate has second precision.
	issuedAt := j.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(j.ttl)

	sc := sessionClaims{
		UserID: user.ID,
		Email:  user.Email,
		Roles:  user.RoleLabels(),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.Username,
			Issuer:    j.issuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, sc).SignedString(j.secret)
	if err != nil {
		return "", domain.Claims{}, fmt.Errorf("token: sign: %w", err)
	}
	return signed, toDomain(sc), nil
}

// Validate verifies signature, algorithm and expiry of raw.
func (j *JWT) Validate(raw string) (domain.Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return domain.Claims{}, domain.ErrTokenMissing
	}

	var sc sessionClaims
	_, err := j.parser.ParseWithClaims(raw, &sc, func(*jwt.Token) (interface{}, error) {
		return j.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return domain.Claims{}, domain.ErrTokenExpired
		}
		return domain.Claims{}, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}
	if sc.Subject == "" || sc.UserID == "" {
		return domain.Claims{}, fmt.Errorf("%w: missing identity claims", domain.ErrTokenInvalid)
	}
	return toDomain(sc), nil
}

func toDomain(sc sessionClaims) domain.Claims {
	c := domain.Claims{
		TokenID: sc.ID,
		Subject: sc.Subject,
		UserID:  sc.UserID,
		Email:   sc.Email,
		Roles:   sc.Roles,
	}
	if sc.IssuedAt != nil {
		c.IssuedAt = sc.IssuedAt.Time.UTC()
	}
	if sc.ExpiresAt != nil {
		c.ExpiresAt = sc.ExpiresAt.Time.UTC()
	}
	return c
}
