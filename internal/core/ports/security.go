package ports

import (
	"context"

	"github.com/wareable/user-service/internal/core/domain"
)

// PasswordHasher hashes and verifies passwords with a salted one-way
// algorithm. Verify must not leak where a mismatch occurs through timing.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, hash string) bool
	// Burn performs a throwaway verification so that lookups that find no
	// user take as long as real password checks.
	Burn(plaintext string)
}

// TokenIssuer mints signed session tokens.
type TokenIssuer interface {
	Issue(user *domain.User) (string, domain.Claims, error)
}

// TokenValidator verifies session tokens without any store lookup. It returns
// domain.ErrTokenMissing, domain.ErrTokenExpired or domain.ErrTokenInvalid.
type TokenValidator interface {
	Validate(token string) (domain.Claims, error)
}

// PermissionChecker answers role-to-permission questions.
type PermissionChecker interface {
	HasPermission(role, permission string) bool
	AnyGrants(roles []string, permission string) bool
}

// AttemptLimiter tracks failed signin attempts per key.
type AttemptLimiter interface {
	Locked(ctx context.Context, key string) (bool, error)
	RecordFailure(ctx context.Context, key string) error
	Reset(ctx context.Context, key string) error
}

// LogSink is a best-effort append-only remote log. Append never blocks the
// caller and never fails the calling workflow.
type LogSink interface {
	Append(entry string)
}
