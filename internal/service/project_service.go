package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/pmapp/internal/domain"
	"github.com/prn-tf/pmapp/internal/repository"
)

// ProjectService manages projects with ownership-based access.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	now         func() time.Time
	logger      zerolog.Logger
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projectRepo repository.ProjectRepository, logger zerolog.Logger) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		now:         time.Now,
		logger:      logger.With().Str("service", "project").Logger(),
	}
}

// CreateProjectInput contains the data needed to create a project.
// Dates are raw strings; unparseable values are dropped.
type CreateProjectInput struct {
	Name         string
	Description  string
	EstimatedEnd *string
	FinishedAt   *string
}

// UpdateProjectInput contains the fields of a project update.
// Blank or absent Name and Description keep their values.
// Absent, blank or unparseable dates are cleared.
type UpdateProjectInput struct {
	Name         *string
	Description  *string
	EstimatedEnd *string
	FinishedAt   *string
}

// List returns every project for admins and the caller's own otherwise.
func (s *ProjectService) List(ctx context.Context, caller *domain.User) ([]*domain.Project, error) {
	if caller == nil {
		return nil, ErrUnauthorized
	}

	var ownerID int64
	if !caller.IsAdmin() {
		ownerID = caller.ID
	}

	projects, err := s.projectRepo.List(ctx, ownerID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", caller.ID).Msg("failed to list projects")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return projects, nil
}

// Get returns a project the caller may access.
func (s *ProjectService) Get(ctx context.Context, caller *domain.User, id int64) (*domain.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("project_id", id).Msg("failed to get project")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if !caller.CanAccess(project.OwnerID) {
		s.logger.Debug().
			Int64("project_id", id).
			Int64("owner_id", project.OwnerID).
			Msg("project access denied")
		return nil, ErrForbidden
	}
	return project, nil
}

// Create creates a project owned by the caller.
func (s *ProjectService) Create(ctx context.Context, caller *domain.User, input CreateProjectInput) (*domain.Project, error) {
	if caller == nil {
		return nil, ErrUnauthorized
	}
	if err := domain.ValidateProjectText(input.Name, input.Description); err != nil {
		return nil, err
	}

	project := &domain.Project{
		OwnerID:       caller.ID,
		OwnerUsername: caller.Username,
		Name:          input.Name,
		Description:   input.Description,
		CreatedAt:     s.now().UTC(),
		EstimatedEnd:  domain.ParseDateTime(input.EstimatedEnd),
		FinishedAt:    domain.ParseDateTime(input.FinishedAt),
	}

	if err := s.projectRepo.Create(ctx, project); err != nil {
		if errors.Is(err, domain.ErrReferenceNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("user_id", caller.ID).Msg("failed to create project")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("project_id", project.ID).
		Int64("owner_id", project.OwnerID).
		Msg("project created")

	return project, nil
}

// Update replaces the project's fields. CreatedAt and the owner never change.
func (s *ProjectService) Update(ctx context.Context, caller *domain.User, id int64, input UpdateProjectInput) (*domain.Project, error) {
	current, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	project := *current
	if v := nonBlank(input.Name); v != "" {
		project.Name = v
	}
	if v := nonBlank(input.Description); v != "" {
		project.Description = v
	}
	project.EstimatedEnd = domain.ParseDateTime(input.EstimatedEnd)
	project.FinishedAt = domain.ParseDateTime(input.FinishedAt)

	if err := domain.ValidateProjectText(project.Name, project.Description); err != nil {
		return nil, err
	}

	if err := s.projectRepo.Update(ctx, &project); err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("project_id", id).Msg("failed to update project")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("project_id", id).
		Int64("user_id", caller.ID).
		Msg("project updated")

	return &project, nil
}

// Delete removes the project and its material links.
func (s *ProjectService) Delete(ctx context.Context, caller *domain.User, id int64) error {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return err
	}

	if err := s.projectRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return err
		}
		s.logger.Error().Err(err).Int64("project_id", id).Msg("failed to delete project")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("project_id", id).
		Int64("user_id", caller.ID).
		Msg("project deleted")

	return nil
}

func nonBlank(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return ""
	}
	return *s
}
