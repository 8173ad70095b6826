package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/helpdesk-io/support-service/internal/auth"
	"github.com/helpdesk-io/support-service/internal/domain"
	"github.com/helpdesk-io/support-service/internal/repository"
	apperrors "github.com/helpdesk-io/support-service/pkg/util"
)

// UserService is the admin-facing user directory. Creation goes through
// AuthService.Register; this service covers the rest of the account
// lifecycle.
type UserService struct {
	users      repository.UserRepository
	bcryptCost int
}

// NewUserService constructs the service.
func NewUserService(users repository.UserRepository, bcryptCost int) *UserService {
	return &UserService{users: users, bcryptCost: bcryptCost}
}

// UserUpdateInput describes a partial account edit. A supplied password is
// re-hashed before storage.
type UserUpdateInput struct {
	Name     *string
	Email    *string
	Password *string
	Role     *domain.Role
}

// List returns all users, newest first.
func (s *UserService) List(ctx context.Context) ([]domain.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.NewUnavailable(err)
	}
	return users, nil
}

// GetByID resolves a user or reports NotFound.
func (s *UserService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user", id)
	}
	return user, nil
}

// Update merges the patch into an existing user. Changing the email keeps
// the uniqueness guarantee registration established.
func (s *UserService) Update(ctx context.Context, id string, input UserUpdateInput) (*domain.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		if strings.TrimSpace(*input.Name) == "" {
			return nil, apperrors.NewValidationError("name must not be empty", nil)
		}
		user.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil && *input.Email != user.Email {
		existing, err := s.users.GetByEmail(ctx, *input.Email)
		if err == nil && existing.ID != user.ID {
			return nil, apperrors.NewConflict("email already registered", map[string]any{"email": *input.Email})
		}
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnavailable(err)
		}
		user.Email = *input.Email
	}
	if input.Role != nil {
		if !domain.IsValidRole(*input.Role) {
			return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": *input.Role})
		}
		user.Role = *input.Role
	}
	if input.Password != nil {
		hash, err := auth.HashPassword(*input.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.MapError(err)
		}
		user.PasswordHash = hash
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, storeErr(err, "user", id)
	}
	return user, nil
}

// Delete removes an account.
func (s *UserService) Delete(ctx context.Context, id string) error {
	if err := s.users.Delete(ctx, id); err != nil {
		return storeErr(err, "user", id)
	}
	return nil
}
