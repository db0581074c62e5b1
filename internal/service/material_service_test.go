package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/prn-tf/pmapp/internal/cache/memory"
	"github.com/prn-tf/pmapp/internal/domain"
	"github.com/prn-tf/pmapp/internal/repository"
)

func TestMaterialService_Create(t *testing.T) {
	admin := &domain.User{ID: 1, Username: "root", Role: domain.RoleAdmin}
	user := &domain.User{ID: 2, Username: "alice", Role: domain.RoleUser}

	tests := []struct {
		name    string
		caller  *domain.User
		input   CreateMaterialInput
		wantErr error
	}{
		{name: "admin", caller: admin, input: CreateMaterialInput{Name: "Plank", MarketID: "MK-1", Seller: "Lumber Co"}},
		{name: "non admin", caller: user, input: CreateMaterialInput{Name: "Plank", MarketID: "MK-1"}, wantErr: ErrForbidden},
		{name: "non admin invalid input still forbidden", caller: user, input: CreateMaterialInput{}, wantErr: ErrForbidden},
		{name: "blank name", caller: admin, input: CreateMaterialInput{Name: " ", MarketID: "MK-1"}, wantErr: domain.ErrInvalidMaterial},
		{name: "long market id", caller: admin, input: CreateMaterialInput{Name: "Plank", MarketID: strings.Repeat("m", 51)}, wantErr: domain.ErrInvalidMaterial},
		{name: "duplicate name", caller: admin, input: CreateMaterialInput{Name: "Nail", MarketID: "MK-9"}, wantErr: domain.ErrMaterialAlreadyExists},
		{name: "duplicate market id", caller: admin, input: CreateMaterialInput{Name: "Screw", MarketID: "NAIL"}, wantErr: domain.ErrMaterialAlreadyExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			require.NoError(t, h.materials.Create(context.Background(), &domain.Material{Name: "Nail", MarketID: "NAIL"}))

			m, err := h.catalog.Create(context.Background(), tt.caller, tt.input)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Len(t, h.materials.materials, 1)
				return
			}
			require.NoError(t, err)
			assert.NotZero(t, m.ID)
			assert.Equal(t, tt.input.Name, m.Name)
			assert.Len(t, h.materials.materials, 2)
		})
	}
}

func TestMaterialService_Delete(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	admin := h.admin(t, "root")
	alice := h.register(t, "alice", "secret123")
	plank := h.material(t, admin, "Plank", "MK-1")
	nail := h.material(t, admin, "Nail", "MK-2")
	h.materials.inUse[nail.ID] = true

	require.ErrorIs(t, h.catalog.Delete(ctx, alice, plank.ID), ErrForbidden)

	err := h.catalog.Delete(ctx, admin, nail.ID)
	require.ErrorIs(t, err, domain.ErrMaterialInUse)
	assert.Equal(t, KindConflict, KindOf(err))

	require.NoError(t, h.catalog.Delete(ctx, admin, plank.ID))
	require.NoError(t, h.catalog.Delete(ctx, admin, plank.ID))

	list, err := h.catalog.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Nail", list[0].Name)
}

func TestMaterialService_ListCached(t *testing.T) {
	ctx := context.Background()
	genKey := repository.CacheKey{}.MaterialsGeneration()
	admin := &domain.User{ID: 1, Role: domain.RoleAdmin}

	t.Run("miss populates cache", func(t *testing.T) {
		repo := NewMockMaterialRepository()
		require.NoError(t, repo.Create(ctx, &domain.Material{Name: "Plank", MarketID: "MK-1"}))
		key := repository.CacheKey{}.Materials(3)

		cache := &MockCache{}
		cache.On("Get", mock.Anything, genKey).Return([]byte("3"), nil).Once()
		cache.On("Get", mock.Anything, key).Return(nil, repository.ErrCacheMiss).Once()
		cache.On("Set", mock.Anything, key, mock.Anything, 30*time.Second).Return(nil).Once()

		svc := NewMaterialService(repo, MaterialServiceConfig{Cache: cache, CacheTTL: 30 * time.Second}, zerolog.Nop())
		list, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, 1, repo.listCalls)
		cache.AssertExpectations(t)
	})

	t.Run("hit skips repository", func(t *testing.T) {
		repo := NewMockMaterialRepository()
		data, err := json.Marshal([]*domain.Material{{ID: 5, Name: "Cached", MarketID: "C-1"}})
		require.NoError(t, err)

		cache := &MockCache{}
		cache.On("Get", mock.Anything, genKey).Return(nil, repository.ErrCacheMiss).Once()
		cache.On("Get", mock.Anything, repository.CacheKey{}.Materials(0)).Return(data, nil).Once()

		svc := NewMaterialService(repo, MaterialServiceConfig{Cache: cache, CacheTTL: time.Minute}, zerolog.Nop())
		list, err := svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Cached", list[0].Name)
		assert.Equal(t, 0, repo.listCalls)
		cache.AssertExpectations(t)
	})

	t.Run("unreadable generation bypasses cache", func(t *testing.T) {
		repo := NewMockMaterialRepository()
		cache := &MockCache{}
		cache.On("Get", mock.Anything, genKey).Return(nil, repository.ErrCacheUnavailable).Once()

		svc := NewMaterialService(repo, MaterialServiceConfig{Cache: cache, CacheTTL: time.Minute}, zerolog.Nop())
		list, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
		assert.Equal(t, 1, repo.listCalls)
		cache.AssertExpectations(t)
	})

	t.Run("cache failure falls through", func(t *testing.T) {
		repo := NewMockMaterialRepository()
		key := repository.CacheKey{}.Materials(0)
		cache := &MockCache{}
		cache.On("Get", mock.Anything, genKey).Return(nil, repository.ErrCacheMiss).Once()
		cache.On("Get", mock.Anything, key).Return(nil, repository.ErrCacheUnavailable).Once()
		cache.On("Set", mock.Anything, key, mock.Anything, time.Minute).Return(repository.ErrCacheUnavailable).Once()

		svc := NewMaterialService(repo, MaterialServiceConfig{Cache: cache, CacheTTL: time.Minute}, zerolog.Nop())
		list, err := svc.List(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
		cache.AssertExpectations(t)
	})

	t.Run("mutations bump generation", func(t *testing.T) {
		repo := NewMockMaterialRepository()
		cache := &MockCache{}
		cache.On("Incr", mock.Anything, genKey).Return(int64(1), nil).Once()
		cache.On("Delete", mock.Anything, []string{repository.CacheKey{}.Materials(0)}).Return(nil).Once()
		cache.On("Incr", mock.Anything, genKey).Return(int64(2), nil).Once()
		cache.On("Delete", mock.Anything, []string{repository.CacheKey{}.Materials(1)}).Return(nil).Once()

		svc := NewMaterialService(repo, MaterialServiceConfig{Cache: cache, CacheTTL: time.Minute}, zerolog.Nop())
		m, err := svc.Create(ctx, admin, CreateMaterialInput{Name: "Plank", MarketID: "MK-1"})
		require.NoError(t, err)
		require.NoError(t, svc.Delete(ctx, admin, m.ID))
		cache.AssertExpectations(t)
	})

	t.Run("zero ttl disables cache", func(t *testing.T) {
		repo := NewMockMaterialRepository()
		cache := &MockCache{}

		svc := NewMaterialService(repo, MaterialServiceConfig{Cache: cache}, zerolog.Nop())
		_, err := svc.List(ctx)
		require.NoError(t, err)
		_, err = svc.Create(ctx, admin, CreateMaterialInput{Name: "Plank", MarketID: "MK-1"})
		require.NoError(t, err)
		cache.AssertExpectations(t)
		assert.Empty(t, cache.Calls)
	})
}

// A listing that read the repository before a write finished must not
// leave the pre-write catalog in the cache.
func TestMaterialService_ListRacingWrite(t *testing.T) {
	for _, op := range []string{"create", "delete"} {
		t.Run(op, func(t *testing.T) {
			ctx := context.Background()
			admin := &domain.User{ID: 1, Role: domain.RoleAdmin}
			c := memory.NewCache()
			defer c.Stop()

			repo := NewMockMaterialRepository()
			svc := NewMaterialService(repo, MaterialServiceConfig{Cache: c, CacheTTL: time.Minute}, zerolog.Nop())

			var existing *domain.Material
			if op == "delete" {
				var err error
				existing, err = svc.Create(ctx, admin, CreateMaterialInput{Name: "Nail", MarketID: "MK-0"})
				require.NoError(t, err)
			}

			read := make(chan struct{})
			resume := make(chan struct{})
			repo.mu.Lock()
			repo.afterList = func() {
				close(read)
				<-resume
			}
			repo.mu.Unlock()

			done := make(chan []*domain.Material)
			go func() {
				list, err := svc.List(ctx)
				assert.NoError(t, err)
				done <- list
			}()

			<-read
			repo.mu.Lock()
			repo.afterList = nil
			repo.mu.Unlock()

			want := 0
			if op == "create" {
				_, err := svc.Create(ctx, admin, CreateMaterialInput{Name: "Plank", MarketID: "MK-1"})
				require.NoError(t, err)
				want = 1
			} else {
				require.NoError(t, svc.Delete(ctx, admin, existing.ID))
			}
			close(resume)
			<-done

			list, err := svc.List(ctx)
			require.NoError(t, err)
			assert.Len(t, list, want)
		})
	}
}
