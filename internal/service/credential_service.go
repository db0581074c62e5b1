package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/prn-tf/pmapp/internal/domain"
	"github.com/prn-tf/pmapp/internal/metrics"
	"github.com/prn-tf/pmapp/internal/repository"
)

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) (bool, error)
}

// TokenIssuer mints access tokens for authenticated users.
type TokenIssuer interface {
	Issue(user *domain.User) (string, error)
}

// CredentialService handles registration, login and credential changes.
type CredentialService struct {
	userRepo repository.UserRepository
	hasher   PasswordHasher
	tokens   TokenIssuer
	metrics  *metrics.Metrics
	logger   zerolog.Logger
}

// NewCredentialService creates a new CredentialService. m may be nil.
func NewCredentialService(
	userRepo repository.UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	m *metrics.Metrics,
	logger zerolog.Logger,
) *CredentialService {
	return &CredentialService{
		userRepo: userRepo,
		hasher:   hasher,
		tokens:   tokens,
		metrics:  m,
		logger:   logger.With().Str("service", "credential").Logger(),
	}
}

// =============================================================================
// Register / Login
// =============================================================================

// RegisterInput contains the data needed to register a user.
type RegisterInput struct {
	Username string
	Password string
}

// LoginInput contains login credentials.
type LoginInput struct {
	Username string
	Password string
}

// AuthOutput is the result of a successful register or login.
type AuthOutput struct {
	User  *domain.User
	Token string
}

// Register creates a USER account and logs it in.
func (s *CredentialService) Register(ctx context.Context, input RegisterInput) (*AuthOutput, error) {
	if strings.TrimSpace(input.Username) == "" {
		return nil, ErrInvalidUsername
	}
	if input.Password == "" {
		return nil, ErrBlankPassword
	}

	exists, err := s.userRepo.ExistsByUsername(ctx, input.Username)
	if err != nil {
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to check username existence")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: '%s'", ErrUsernameTaken, input.Username)
	}

	digest, err := s.hasher.Hash(input.Password)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return nil, fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	user := domain.NewUser(input.Username, digest)
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return nil, fmt.Errorf("%w: '%s'", ErrUsernameTaken, input.Username)
		}
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to create user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Msg("user registered")

	return s.Login(ctx, LoginInput(input))
}

// Login verifies credentials and issues a token.
// Unknown usernames and wrong passwords are indistinguishable to the caller.
func (s *CredentialService) Login(ctx context.Context, input LoginInput) (*AuthOutput, error) {
	user, err := s.userRepo.GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.logger.Debug().Str("username", input.Username).Msg("user not found during login")
			s.metrics.RecordLogin(metrics.LoginFailure)
			return nil, ErrInvalidCredentials
		}
		s.logger.Error().Err(err).Str("username", input.Username).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	ok, err := s.hasher.Verify(input.Password, user.PasswordHash)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to verify password")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !ok {
		s.logger.Debug().Str("username", input.Username).Msg("invalid password during login")
		s.metrics.RecordLogin(metrics.LoginFailure)
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to issue token")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.metrics.RecordLogin(metrics.LoginSuccess)
	s.logger.Info().
		Int64("user_id", user.ID).
		Str("username", user.Username).
		Msg("user authenticated")

	return &AuthOutput{User: user, Token: token}, nil
}

// =============================================================================
// Credential Changes
// =============================================================================

// ChangeUsernameInput contains the data for a username change.
type ChangeUsernameInput struct {
	CurrentPassword string
	NewUsername     string
}

// ChangePasswordInput contains the data for a password change.
type ChangePasswordInput struct {
	CurrentPassword string
	NewPassword     string
}

// ChangeUsername replaces the caller's username after re-checking the password.
func (s *CredentialService) ChangeUsername(ctx context.Context, caller *domain.User, input ChangeUsernameInput) error {
	user, err := s.reverify(ctx, caller, input.CurrentPassword)
	if err != nil {
		return err
	}

	newUsername := strings.TrimSpace(input.NewUsername)
	if newUsername == "" {
		return ErrInvalidUsername
	}

	if newUsername != user.Username {
		exists, err := s.userRepo.ExistsByUsername(ctx, newUsername)
		if err != nil {
			s.logger.Error().Err(err).Str("username", newUsername).Msg("failed to check username existence")
			return fmt.Errorf("%w: %v", ErrInternalError, err)
		}
		if exists {
			return fmt.Errorf("%w: '%s'", ErrUsernameTaken, newUsername)
		}
	}

	updated := *user
	updated.Username = newUsername
	if err := s.userRepo.Update(ctx, &updated); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			return fmt.Errorf("%w: '%s'", ErrUsernameTaken, newUsername)
		}
		if errors.Is(err, domain.ErrUserNotFound) {
			return ErrUnauthorized
		}
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to update username")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("user_id", user.ID).
		Str("old_username", user.Username).
		Str("new_username", newUsername).
		Msg("username changed")

	return nil
}

// ChangePassword replaces the caller's password after re-checking the current one.
func (s *CredentialService) ChangePassword(ctx context.Context, caller *domain.User, input ChangePasswordInput) error {
	user, err := s.reverify(ctx, caller, input.CurrentPassword)
	if err != nil {
		return err
	}

	if len(input.NewPassword) < MinPasswordLength {
		return ErrInvalidPassword
	}

	digest, err := s.hasher.Hash(input.NewPassword)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to hash password")
		return fmt.Errorf("%w: failed to hash password", ErrInternalError)
	}

	updated := *user
	updated.PasswordHash = digest
	if err := s.userRepo.Update(ctx, &updated); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return ErrUnauthorized
		}
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to update password")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("password changed")
	return nil
}

// reverify reloads the caller and checks password against the stored digest.
func (s *CredentialService) reverify(ctx context.Context, caller *domain.User, password string) (*domain.User, error) {
	if caller == nil {
		return nil, ErrUnauthorized
	}

	user, err := s.userRepo.GetByID(ctx, caller.ID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, ErrUnauthorized
		}
		s.logger.Error().Err(err).Int64("user_id", caller.ID).Msg("failed to get user")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	ok, err := s.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", user.ID).Msg("failed to verify password")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !ok {
		s.logger.Debug().Int64("user_id", user.ID).Msg("current password mismatch")
		return nil, ErrUnauthorized
	}
	return user, nil
}
