package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/prn-tf/pmapp/internal/domain"
	"github.com/prn-tf/pmapp/internal/repository"
)

// MaterialService manages the material catalog.
type MaterialService struct {
	materialRepo repository.MaterialRepository
	cache        repository.Cache
	cacheTTL     time.Duration
	logger       zerolog.Logger
}

// MaterialServiceConfig holds optional catalog settings.
type MaterialServiceConfig struct {
	// Cache stores the serialized catalog. Nil disables caching.
	Cache repository.Cache

	// CacheTTL bounds how long a cached catalog is served. Zero disables caching.
	CacheTTL time.Duration
}

// NewMaterialService creates a new MaterialService.
func NewMaterialService(materialRepo repository.MaterialRepository, cfg MaterialServiceConfig, logger zerolog.Logger) *MaterialService {
	if cfg.CacheTTL <= 0 {
		cfg.Cache = nil
	}
	return &MaterialService{
		materialRepo: materialRepo,
		cache:        cfg.Cache,
		cacheTTL:     cfg.CacheTTL,
		logger:       logger.With().Str("service", "material").Logger(),
	}
}

// CreateMaterialInput contains the data needed to add a material.
type CreateMaterialInput struct {
	Name       string
	MarketID   string
	Seller     string
	PictureURL string
}

// List returns the whole catalog to any authenticated caller.
// Listings are cached per catalog generation; a write bumps the
// generation, so a listing read before the write is never served after it.
func (s *MaterialService) List(ctx context.Context) ([]*domain.Material, error) {
	generation, cached := s.generation(ctx)
	key := repository.CacheKey{}.Materials(generation)

	if cached {
		data, err := s.cache.Get(ctx, key)
		switch {
		case err == nil:
			var materials []*domain.Material
			if jsonErr := json.Unmarshal(data, &materials); jsonErr == nil {
				return materials, nil
			}
			s.logger.Warn().Str("key", key).Msg("discarding undecodable cached catalog")
		case !errors.Is(err, repository.ErrCacheMiss):
			s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache read failed")
		}
	}

	materials, err := s.materialRepo.List(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list materials")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	if cached {
		if data, err := json.Marshal(materials); err == nil {
			if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
				s.logger.Warn().Err(err).Str("key", key).Msg("catalog cache write failed")
			}
		}
	}

	return materials, nil
}

// generation reads the current catalog generation. It reports false when
// caching is disabled or the counter cannot be read.
func (s *MaterialService) generation(ctx context.Context) (int64, bool) {
	if s.cache == nil {
		return 0, false
	}

	genKey := repository.CacheKey{}.MaterialsGeneration()
	data, err := s.cache.Get(ctx, genKey)
	if errors.Is(err, repository.ErrCacheMiss) {
		return 0, true
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("key", genKey).Msg("catalog generation read failed")
		return 0, false
	}

	generation, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		s.logger.Warn().Str("key", genKey).Msg("catalog generation is not an integer")
		return 0, false
	}
	return generation, true
}

// Get returns one material.
func (s *MaterialService) Get(ctx context.Context, id int64) (*domain.Material, error) {
	m, err := s.materialRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrMaterialNotFound) {
			return nil, err
		}
		s.logger.Error().Err(err).Int64("material_id", id).Msg("failed to get material")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}
	return m, nil
}

// Create adds a material. Only admins may call it.
func (s *MaterialService) Create(ctx context.Context, caller *domain.User, input CreateMaterialInput) (*domain.Material, error) {
	if !caller.IsAdmin() {
		s.logger.Debug().Str("name", input.Name).Msg("non-admin attempted material creation")
		return nil, ErrForbidden
	}

	material := &domain.Material{
		Name:       strings.TrimSpace(input.Name),
		MarketID:   strings.TrimSpace(input.MarketID),
		Seller:     strings.TrimSpace(input.Seller),
		PictureURL: strings.TrimSpace(input.PictureURL),
	}
	if err := domain.ValidateMaterial(material); err != nil {
		return nil, err
	}

	if err := s.materialRepo.Create(ctx, material); err != nil {
		if errors.Is(err, domain.ErrMaterialAlreadyExists) {
			return nil, err
		}
		s.logger.Error().Err(err).Str("name", material.Name).Msg("failed to create material")
		return nil, fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.invalidate(ctx)
	s.logger.Info().
		Int64("material_id", material.ID).
		Str("name", material.Name).
		Str("market_id", material.MarketID).
		Msg("material created")

	return material, nil
}

// Delete removes a material. Only admins may call it.
// Deleting an absent material succeeds; a material still linked to a
// project is rejected with domain.ErrMaterialInUse.
func (s *MaterialService) Delete(ctx context.Context, caller *domain.User, id int64) error {
	if !caller.IsAdmin() {
		s.logger.Debug().Int64("material_id", id).Msg("non-admin attempted material deletion")
		return ErrForbidden
	}

	if err := s.materialRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, domain.ErrMaterialNotFound):
			return nil
		case errors.Is(err, domain.ErrMaterialInUse):
			return err
		}
		s.logger.Error().Err(err).Int64("material_id", id).Msg("failed to delete material")
		return fmt.Errorf("%w: %v", ErrInternalError, err)
	}

	s.invalidate(ctx)
	s.logger.Info().Int64("material_id", id).Msg("material deleted")
	return nil
}

// invalidate moves the catalog to a new generation and drops the listing
// cached under the previous one.
func (s *MaterialService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}

	generation, err := s.cache.Incr(ctx, repository.CacheKey{}.MaterialsGeneration())
	if err != nil {
		s.logger.Warn().Err(err).Msg("catalog cache invalidation failed")
		return
	}
	if err := s.cache.Delete(ctx, repository.CacheKey{}.Materials(generation-1)); err != nil {
		s.logger.Debug().Err(err).Int64("generation", generation-1).Msg("failed to drop stale catalog listing")
	}
}
