package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prn-tf/pmapp/internal/domain"
	"github.com/prn-tf/pmapp/internal/repository"
)

// UserService handles account lookup, deletion and administration.
type UserService struct {
	userRepo    repository.UserRepository
	projectRepo repository.ProjectRepository
	hasher      PasswordHasher
	logger      zerolog.Logger
}

// NewUserService creates a new UserService.
func NewUserService(
	userRepo repository.UserRepository,
	projectRepo repository.ProjectRepository,
	hasher PasswordHasher,
	logger zerolog.Logger,
) *UserService {
	return &UserService{
		userRepo:    userRepo,
		projectRepo: projectRepo,
		hasher:      hasher,
		logger:      logger.With().Str("service", "user").Logger(),
	}
}

// Me returns the caller's current profile.
func (s *UserService) Me(ctx context.Context, caller *domain.User) (*domain.User, error) {
	if caller == nil {
		return nil, ErrUnauthorized
	}
	user, err := s.userRepo.GetByID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("user_id", caller.ID).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return user, nil
}

// DeleteSelf deletes the caller's own account.
func (s *UserService) DeleteSelf(ctx context.Context, caller *domain.User) error {
	if caller == nil {
		return ErrUnauthorized
	}
	return s.delete(ctx, caller.ID)
}

// DeleteUser deletes any account. Only admins may call it.
// Deleting an absent user succeeds.
func (s *UserService) DeleteUser(ctx context.Context, caller *domain.User, userID int64) error {
	if !caller.IsAdmin() {
		s.logger.Debug().Int64("target_user_id", userID).Msg("non-admin attempted user deletion")
		return ErrForbidden
	}
	return s.delete(ctx, userID)
}

func (s *UserService) delete(ctx context.Context, userID int64) error {
	count, err := s.projectRepo.CountByOwner(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to count projects")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %d project(s)", domain.ErrUserHasProjects, count)
	}

	if err := s.userRepo.Delete(ctx, userID); err != nil {
		switch {
		case errors.Is(err, domain.ErrUserNotFound):
			return nil
		case errors.Is(err, domain.ErrUserHasProjects):
			return err
		}
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to delete user")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", userID).Msg("user deleted")
	return nil
}

// =============================================================================
// Administration
// =============================================================================

// CreateUserInput contains the data needed to create a user directly.
type CreateUserInput struct {
	Username string
	Password string
	Role     domain.Role
}

// Create creates an account with an explicit role.
func (s *UserService) Create(ctx context.Context, input CreateUserInput) (*domain.User, error) {
	username := strings.TrimSpace(input.Username)
	if username == "" {
		return nil, ErrInvalidUsername
	}
	if len(input.Password) < MinPasswordLength {
		return nil, ErrInvalidPassword
	}
	role := input.Role
	if role == "" {
		role = domain.RoleUser
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	user := domain.NewUser(username, digest)
	user.Role = role
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, fmt.Errorf("%w: '%s'", ErrUsernameTaken, username)
		}
		s.logger.Error().Err(err).Str("username", username).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Str("role", user.Role.String()).
		Msg("user created")

	return user, nil
}

// SetRole changes the role of the named user.
func (s *UserService) SetRole(ctx context.Context, username string, role domain.Role) (*domain.User, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidRole, role)
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("username", username).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if user.Role == role {
		return user, nil
	}

	updated := *user
	updated.Role = role
	if err := s.userRepo.Update(ctx, &updated); err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to update role")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("role", role.String()).
		Msg("user role changed")

	return &updated, nil
}

// List returns every user ordered by id.
func (s *UserService) List(ctx context.Context) ([]*domain.User, error) {
	users, err := s.userRepo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list users")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return users, nil
}
