package ports

import (
	"context"
	"time"

	"github.com/wareable/user-service/internal/core/domain"
)

// SignupInput carries a registration request. A nil Roles selects the
// default role.
type SignupInput struct {
	Username string
	Email    string
	Password string
	Roles    []string
}

// SigninResult is returned on successful authentication.
type SigninResult struct {
	Token     string
	TokenType string
	ExpiresAt time.Time
	Profile   domain.Profile
}

// SignupResult confirms a registration. No token is issued on signup.
type SignupResult struct {
	Message string
}

// UpdateUserInput replaces the mutable profile fields of a user.
type UpdateUserInput struct {
	ID       string
	Username string
	Email    string
}

// AuthService is the authentication workflow.
type AuthService interface {
	Signin(ctx context.Context, username, password string) (*SigninResult, error)
	Signup(ctx context.Context, input SignupInput) (*SignupResult, error)
}

// UserService manages existing identities.
type UserService interface {
	Update(ctx context.Context, input UpdateUserInput) (*domain.Profile, error)
	Delete(ctx context.Context, id string) error
}
