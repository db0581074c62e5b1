package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/pmapp/internal/domain"
	"github.com/prn-tf/pmapp/internal/lock"
	"github.com/prn-tf/pmapp/internal/metrics"
	"github.com/prn-tf/pmapp/internal/repository"
)

// Default upsert lock settings.
const (
	DefaultUpsertLockTTL        = 5 * time.Second
	DefaultUpsertLockRetries    = 10
	DefaultUpsertLockRetryDelay = 50 * time.Millisecond
)

// ProjectMaterialService manages the materials attached to projects.
type ProjectMaterialService struct {
	projectRepo  repository.ProjectRepository
	materialRepo repository.MaterialRepository
	linkRepo     repository.ProjectMaterialRepository
	locker       lock.Locker
	lockTTL      time.Duration
	lockRetries  int
	lockDelay    time.Duration
	metrics      *metrics.Metrics
	logger       zerolog.Logger
}

// ProjectMaterialServiceConfig holds the upsert locking settings.
type ProjectMaterialServiceConfig struct {
	// Locker serializes upserts per (project, material). Nil uses lock.NoOpLocker.
	Locker lock.Locker

	LockTTL        time.Duration
	LockRetries    int
	LockRetryDelay time.Duration

	// Metrics may be nil.
	Metrics *metrics.Metrics
}

// NewProjectMaterialService creates a new ProjectMaterialService.
func NewProjectMaterialService(
	projectRepo repository.ProjectRepository,
	materialRepo repository.MaterialRepository,
	linkRepo repository.ProjectMaterialRepository,
	cfg ProjectMaterialServiceConfig,
	logger zerolog.Logger,
) *ProjectMaterialService {
	if cfg.Locker == nil {
		cfg.Locker = lock.NewNoOpLocker()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultUpsertLockTTL
	}
	if cfg.LockRetries < 0 {
		cfg.LockRetries = DefaultUpsertLockRetries
	}
	if cfg.LockRetryDelay <= 0 {
		cfg.LockRetryDelay = DefaultUpsertLockRetryDelay
	}

	return &ProjectMaterialService{
		projectRepo:  projectRepo,
		materialRepo: materialRepo,
		linkRepo:     linkRepo,
		locker:       cfg.Locker,
		lockTTL:      cfg.LockTTL,
		lockRetries:  cfg.LockRetries,
		lockDelay:    cfg.LockRetryDelay,
		metrics:      cfg.Metrics,
		logger:       logger.With().Str("service", "project_material").Logger(),
	}
}

// UpsertInput contains the data for attaching a material to a project.
type UpsertInput struct {
	ProjectID  int64
	MaterialID int64
	Amount     float64
}

// UpsertOutput is the result of an upsert.
type UpsertOutput struct {
	View *domain.ProjectMaterialView

	// Created is true when a new link was inserted.
	Created bool
}

// List returns the materials of a project the caller may access.
func (s *ProjectMaterialService) List(ctx context.Context, caller *domain.User, projectID int64) ([]*domain.ProjectMaterialView, error) {
	if _, err := s.authorizeProject(ctx, caller, projectID); err != nil {
		return nil, err
	}

	views, err := s.linkRepo.ListByProject(ctx, projectID)
	if err != nil {
		s.logger.Error().Err(err).Int64("project_id", projectID).Msg("failed to list project materials")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return views, nil
}

// Upsert sets the amount of a material on a project, creating the link if
// the pair has none. Each pair has at most one link and its id is stable.
func (s *ProjectMaterialService) Upsert(ctx context.Context, caller *domain.User, input UpsertInput) (*UpsertOutput, error) {
	if input.Amount < 0 || math.IsNaN(input.Amount) || math.IsInf(input.Amount, 0) {
		return nil, ErrNegativeAmount
	}

	if _, err := s.authorizeProject(ctx, caller, input.ProjectID); err != nil {
		return nil, err
	}

	material, err := s.materialRepo.GetByID(ctx, input.MaterialID)
	if err != nil {
		if errors.Is(err, domain.ErrMaterialNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("material_id", input.MaterialID).Msg("failed to get material")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	release := s.acquire(ctx, input.ProjectID, input.MaterialID)
	defer release()

	link, created, err := s.upsertLink(ctx, input)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("project_material_id", link.ID).
		Int64("project_id", link.ProjectID).
		Int64("material_id", link.MaterialID).
		Float64("amount", link.Amount).
		Bool("created", created).
		Msg("project material upserted")

	return &UpsertOutput{
		View:    domain.NewProjectMaterialView(link, material),
		Created: created,
	}, nil
}

// upsertLink finds or creates the link. A uniqueness conflict on create
// means a concurrent writer won the insert, so it retries once as an update.
func (s *ProjectMaterialService) upsertLink(ctx context.Context, input UpsertInput) (*domain.ProjectMaterial, bool, error) {
	existing, err := s.linkRepo.GetByProjectAndMaterial(ctx, input.ProjectID, input.MaterialID)
	switch {
	case err == nil:
		return s.setAmount(ctx, existing, input.Amount)
	case !errors.Is(err, domain.ErrProjectMaterialNotFound):
		s.logger.Error().Err(err).Int64("project_id", input.ProjectID).Msg("failed to find project material")
		return nil, false, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	link := &domain.ProjectMaterial{
		ProjectID:  input.ProjectID,
		MaterialID: input.MaterialID,
		Amount:     input.Amount,
	}
	err = s.linkRepo.Create(ctx, link)
	switch {
	case err == nil:
		return link, true, nil
	case errors.Is(err, domain.ErrReferenceNotFound):
		return nil, false, err
	case !errors.Is(err, domain.ErrProjectMaterialAlreadyExists):
		s.logger.Error().Err(err).Int64("project_id", input.ProjectID).Msg("failed to create project material")
		return nil, false, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.metrics.RecordUpsertRetry()
	s.logger.Debug().
		Int64("project_id", input.ProjectID).
		Int64("material_id", input.MaterialID).
		Msg("concurrent insert detected, retrying as update")

	existing, err = s.linkRepo.GetByProjectAndMaterial(ctx, input.ProjectID, input.MaterialID)
	if err != nil {
		if errors.Is(err, domain.ErrProjectMaterialNotFound) {
			return nil, false, err
		}
		s.logger.Error().Err(err).Int64("project_id", input.ProjectID).Msg("failed to find project material")
		return nil, false, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return s.setAmount(ctx, existing, input.Amount)
}

func (s *ProjectMaterialService) setAmount(ctx context.Context, link *domain.ProjectMaterial, amount float64) (*domain.ProjectMaterial, bool, error) {
	if err := s.linkRepo.UpdateAmount(ctx, link.ID, amount); err != nil {
		if errors.Is(err, domain.ErrProjectMaterialNotFound) {
			return nil, false, err
		}
		s.logger.Error().Err(err).Int64("project_material_id", link.ID).Msg("failed to update amount")
		return nil, false, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	updated := *link
	updated.Amount = amount
	return &updated, false, nil
}

// acquire takes the per-pair lock. If the lock cannot be taken the upsert
// still runs and relies on the uniqueness constraint alone.
func (s *ProjectMaterialService) acquire(ctx context.Context, projectID, materialID int64) func() {
	key := lock.Keys.ProjectMaterial(projectID, materialID)

	lease, err := s.locker.AcquireWithRetry(ctx, key, s.lockTTL, s.lockRetries, s.lockDelay)
	if err != nil || lease == nil {
		s.metrics.RecordLockUnavailable()
		s.logger.Warn().Err(err).Str("key", key).Msg("proceeding without upsert lock")
		return func() {}
	}

	return func() {
		if _, err := s.locker.Release(context.WithoutCancel(ctx), lease); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to release upsert lock")
		}
	}
}

// Delete removes a link after checking it belongs to projectID and that
// the caller may access that project.
func (s *ProjectMaterialService) Delete(ctx context.Context, caller *domain.User, projectID, linkID int64) error {
	link, err := s.linkRepo.GetByID(ctx, linkID)
	if err != nil {
		if errors.Is(err, domain.ErrProjectMaterialNotFound) {
			return err
		}
		s.logger.Error().Err(err).Int64("project_material_id", linkID).Msg("failed to get project material")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if link.ProjectID != projectID {
		s.logger.Debug().
			Int64("project_material_id", linkID).
			Int64("path_project_id", projectID).
			Int64("project_id", link.ProjectID).
			Msg("project material belongs to another project")
		return ErrProjectMismatch
	}

	if _, err := s.authorizeProject(ctx, caller, link.ProjectID); err != nil {
		return err
	}

	if err := s.linkRepo.Delete(ctx, linkID); err != nil {
		if errors.Is(err, domain.ErrProjectMaterialNotFound) {
			return err
		}
		s.logger.Error().Err(err).Int64("project_material_id", linkID).Msg("failed to delete project material")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.logger.Info().
		Int64("project_material_id", linkID).
		Int64("project_id", projectID).
		Msg("project material deleted")

	return nil
}

func (s *ProjectMaterialService) authorizeProject(ctx context.Context, caller *domain.User, projectID int64) (*domain.Project, error) {
	project, err := s.projectRepo.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, domain.ErrProjectNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("project_id", projectID).Msg("failed to get project")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	if !caller.CanAccess(project.OwnerID) {
		s.logger.Debug().Int64("project_id", projectID).Msg("project access denied")
		return nil, ErrForbidden
	}
	return project, nil
}
