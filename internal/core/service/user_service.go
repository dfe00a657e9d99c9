package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wareable/user-service/internal/core/domain"
	"github.com/wareable/user-service/internal/core/ports"
)

// UserService updates and deletes existing users.
type UserService struct {
	users  ports.UserRepository
	sink   ports.LogSink
	logger zerolog.Logger
	now    func() time.Time
}

// NewUserService returns a UserService. sink may be nil.
func NewUserService(users ports.UserRepository, sink ports.LogSink, logger zerolog.Logger) *UserService {
	if sink == nil {
		sink = discardSink{}
	}
	return &UserService{users: users, sink: sink, logger: logger, now: time.Now}
}

// Update replaces username and email of the user identified by input.ID.
// A new username or email must not belong to another user.
func (s *UserService) Update(ctx context.Context, in ports.UpdateUserInput) (*domain.Profile, error) {
	if in.ID == "" || in.Username == "" || in.Email == "" {
		return nil, domain.ErrInvalidInput
	}

	user, err := s.users.FindByID(ctx, in.ID)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	if in.Username != user.Username {
		taken, err := s.users.ExistsByUsername(ctx, in.Username)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		if taken {
			return nil, domain.ErrDuplicateUsername
		}
	}
	if in.Email != user.Email {
		taken, err := s.users.ExistsByEmail(ctx, in.Email)
		if err != nil {
			return nil, fmt.Errorf("update user: %w", err)
		}
		if taken {
			return nil, domain.ErrDuplicateEmail
		}
	}

	user.Username = in.Username
	user.Email = in.Email
	user.UpdatedAt = s.now().UTC()

	saved, err := s.users.Save(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	s.logger.Info().Str("user_id", saved.ID).Msg("user updated")
	s.sink.Append("DB TRANSACTION: Updated user " + saved.ID)

	profile := saved.Profile()
	return &profile, nil
}

// Delete removes the user with id.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return domain.ErrInvalidInput
	}
	if err := s.users.DeleteByID(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}

	s.logger.Info().Str("user_id", id).Msg("user deleted")
	s.sink.Append("DB TRANSACTION: Deleted user " + id)
	return nil
}
