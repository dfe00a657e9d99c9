package ports

import (
	"context"

	"github.com/wareable/user-service/internal/core/domain"
)

// UserRepository is the credential store. Implementations enforce username
// and email uniqueness at the storage layer and report violations as
// domain.ErrDuplicateUsername or domain.ErrDuplicateEmail. Timeouts and
// unreachable backends are reported as domain.ErrDependencyUnavailable.
type UserRepository interface {
	// FindByUsername returns domain.ErrUserNotFound when no user matches.
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// FindByID returns domain.ErrUserNotFound when no user matches.
	FindByID(ctx context.Context, id string) (*domain.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// Save inserts the user when ID is empty and replaces it otherwise.
	Save(ctx context.Context, user *domain.User) (*domain.User, error)
	// DeleteByID returns domain.ErrUserNotFound when nothing was deleted.
	DeleteByID(ctx context.Context, id string) error
}

// RoleRepository looks up entries of the seeded role catalog.
type RoleRepository interface {
	// FindByName returns domain.ErrRoleCatalogNotSeeded when the role is absent.
	FindByName(ctx context.Context, name domain.RoleName) (*domain.Role, error)
}
