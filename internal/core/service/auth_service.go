package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/wareable/user-service/internal/core/domain"
	"github.com/wareable/user-service/internal/core/ports"
)

const (
	tokenType         = "Bearer"
	signupSuccessText = "User registered successfully!"
)

// AuthService implements signin and signup.
type AuthService struct {
	users   ports.UserRepository
	roles   *RoleResolver
	hasher  ports.PasswordHasher
	tokens  ports.TokenIssuer
	limiter ports.AttemptLimiter
	sink    ports.LogSink
	logger  zerolog.Logger
	now     func() time.Time
}

// NewAuthService wires the authentication workflow. limiter and sink may be
// nil, which disables signin throttling and remote log shipping.
func NewAuthService(
	users ports.UserRepository,
	roles *RoleResolver,
	hasher ports.PasswordHasher,
	tokens ports.TokenIssuer,
	limiter ports.AttemptLimiter,
	sink ports.LogSink,
	logger zerolog.Logger,
) *AuthService {
	if sink == nil {
		sink = discardSink{}
	}
	return &AuthService{
		users:   users,
		roles:   roles,
		hasher:  hasher,
		tokens:  tokens,
		limiter: limiter,
		sink:    sink,
		logger:  logger,
		now:     time.Now,
	}
}

// Signin verifies credentials and issues a session token. Unknown usernames
// and wrong passwords both yield domain.ErrInvalidCredentials.
func (s *AuthService) Signin(ctx context.Context, username, password string) (*ports.SigninResult, error) {
	s.sink.Append("API REQUEST: /signin by " + username)

	if username == "" || password == "" {
		return nil, domain.ErrInvalidCredentials
	}

	key := throttleKey(username)
	if s.isLocked(ctx, key) {
		s.sink.Append("SECURITY: signin locked for " + username)
		return nil, domain.ErrTooManyAttempts
	}

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.hasher.Burn(password)
			s.recordFailure(ctx, key)
			return nil, domain.ErrInvalidCredentials
		}
		s.sink.Append("ERROR during /signin: " + err.Error())
		return nil, fmt.Errorf("signin: %w", err)
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		s.recordFailure(ctx, key)
		return nil, domain.ErrInvalidCredentials
	}

	token, claims, err := s.tokens.Issue(user)
	if err != nil {
		s.sink.Append("ERROR during /signin: token issuance failed")
		return nil, fmt.Errorf("signin: %w", err)
	}
	s.resetFailures(ctx, key)

	s.logger.Info().Str("user_id", user.ID).Str("username", user.Username).Msg("user authenticated")
	s.sink.Append("DB TRANSACTION: Authenticated user " + user.Username)

	return &ports.SigninResult{
		Token:     token,
		TokenType: tokenType,
		ExpiresAt: claims.ExpiresAt,
		Profile:   user.Profile(),
	}, nil
}

// Signup registers a new user. It does not issue a token; callers sign in
// separately.
func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*ports.SignupResult, error) {
	s.sink.Append("API REQUEST: /signup by " + in.Username)

	if strings.TrimSpace(in.Username) == "" || strings.TrimSpace(in.Email) == "" || in.Password == "" {
		return nil, domain.ErrInvalidInput
	}

	exists, err := s.users.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, s.signupFailed(err)
	}
	if exists {
		s.sink.Append("DB CHECK: Username already exists: " + in.Username)
		return nil, domain.ErrDuplicateUsername
	}

	exists, err = s.users.ExistsByEmail(ctx, in.Email)
	if err != nil {
		return nil, s.signupFailed(err)
	}
	if exists {
		s.sink.Append("DB CHECK: Email already in use: " + in.Email)
		return nil, domain.ErrDuplicateEmail
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, s.signupFailed(err)
	}

	roles, err := s.roles.Resolve(ctx, in.Roles)
	if err != nil {
		if errors.Is(err, domain.ErrRoleCatalogNotSeeded) {
			s.logger.Error().Err(err).Msg("role catalog is incomplete; signup rejected")
		}
		return nil, s.signupFailed(err)
	}

	now := s.now().UTC()
	created, err := s.users.Save(ctx, &domain.User{
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Roles:        roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		// The unique indexes catch signups that raced past the checks above.
		if errors.Is(err, domain.ErrDuplicateUsername) || errors.Is(err, domain.ErrDuplicateEmail) {
			s.sink.Append("DB CHECK: concurrent signup conflict for " + in.Username)
			return nil, err
		}
		return nil, s.signupFailed(err)
	}

	s.logger.Info().Str("user_id", created.ID).Str("username", created.Username).Strs("roles", created.RoleLabels()).Msg("user registered")
	s.sink.Append("DB TRANSACTION: New user registered: " + created.Username)

	return &ports.SignupResult{Message: signupSuccessText}, nil
}

func (s *AuthService) signupFailed(err error) error {
	s.sink.Append("ERROR during /signup: " + err.Error())
	return fmt.Errorf("signup: %w", err)
}

func throttleKey(username string) string {
	return strings.ToLower(username)
}

// Throttle storage failures never block a signin.
func (s *AuthService) isLocked(ctx context.Context, key string) bool {
	if s.limiter == nil {
		return false
	}
	locked, err := s.limiter.Locked(ctx, key)
	if err != nil {
		s.logger.Warn().Err(err).Msg("signin throttle check failed, continuing")
		return false
	}
	return locked
}

func (s *AuthService) recordFailure(ctx context.Context, key string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.RecordFailure(ctx, key); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record signin failure")
	}
}

func (s *AuthService) resetFailures(ctx context.Context, key string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Reset(ctx, key); err != nil {
		s.logger.Warn().Err(err).Msg("failed to reset signin failures")
	}
}

type discardSink struct{}

func (discardSink) Append(string) {}
