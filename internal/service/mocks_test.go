package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/prn-tf/pmapp/internal/domain"
	"github.com/prn-tf/pmapp/internal/repository"
)

var errDatabase = errors.New("database unavailable")

// =============================================================================
// Users
// =============================================================================

// MockUserRepository is a map-backed repository.UserRepository.
type MockUserRepository struct {
	mu        sync.Mutex
	users     map[int64]*domain.User
	nextID    int64
	getErr    error
	updateErr error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{users: make(map[int64]*domain.User), nextID: 1}
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return domain.ErrUserAlreadyExists
		}
	}
	user.ID = m.nextID
	m.nextID++
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (m *MockUserRepository) Update(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.updateErr != nil {
		return m.updateErr
	}
	if _, ok := m.users[user.ID]; !ok {
		return domain.ErrUserNotFound
	}
	for id, u := range m.users {
		if id != user.ID && u.Username == user.Username {
			return domain.ErrUserAlreadyExists
		}
	}
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *MockUserRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return domain.ErrUserNotFound
	}
	delete(m.users, id)
	return nil
}

func (m *MockUserRepository) List(ctx context.Context) ([]*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		result = append(result, &cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := m.GetByUsername(ctx, username)
	if errors.Is(err, domain.ErrUserNotFound) {
		return false, nil
	}
	return err == nil, err
}

// =============================================================================
// Materials
// =============================================================================

// MockMaterialRepository is a map-backed repository.MaterialRepository.
type MockMaterialRepository struct {
	mu        sync.Mutex
	materials map[int64]*domain.Material
	nextID    int64
	inUse     map[int64]bool
	listCalls int
	createErr error

	// afterList runs once List has taken its snapshot, outside the lock.
	afterList func()
}

func NewMockMaterialRepository() *MockMaterialRepository {
	return &MockMaterialRepository{
		materials: make(map[int64]*domain.Material),
		inUse:     make(map[int64]bool),
		nextID:    1,
	}
}

func (m *MockMaterialRepository) Create(ctx context.Context, material *domain.Material) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, existing := range m.materials {
		if existing.Name == material.Name || existing.MarketID == material.MarketID {
			return domain.ErrMaterialAlreadyExists
		}
	}
	material.ID = m.nextID
	m.nextID++
	cp := *material
	m.materials[material.ID] = &cp
	return nil
}

func (m *MockMaterialRepository) GetByID(ctx context.Context, id int64) (*domain.Material, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mat, ok := m.materials[id]; ok {
		cp := *mat
		return &cp, nil
	}
	return nil, domain.ErrMaterialNotFound
}

func (m *MockMaterialRepository) List(ctx context.Context) ([]*domain.Material, error) {
	m.mu.Lock()
	m.listCalls++
	result := make([]*domain.Material, 0, len(m.materials))
	for _, mat := range m.materials {
		cp := *mat
		result = append(result, &cp)
	}
	hook := m.afterList
	m.mu.Unlock()

	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	if hook != nil {
		hook()
	}
	return result, nil
}

func (m *MockMaterialRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.materials[id]; !ok {
		return domain.ErrMaterialNotFound
	}
	if m.inUse[id] {
		return domain.ErrMaterialInUse
	}
	delete(m.materials, id)
	return nil
}

// =============================================================================
// Projects
// =============================================================================

// MockProjectRepository is a map-backed repository.ProjectRepository.
type MockProjectRepository struct {
	mu       sync.Mutex
	projects map[int64]*domain.Project
	nextID   int64
	listErr  error
	onDelete func(id int64)
}

func NewMockProjectRepository() *MockProjectRepository {
	return &MockProjectRepository{projects: make(map[int64]*domain.Project), nextID: 1}
}

func (m *MockProjectRepository) Create(ctx context.Context, project *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	project.ID = m.nextID
	m.nextID++
	cp := *project
	m.projects[project.ID] = &cp
	return nil
}

func (m *MockProjectRepository) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.projects[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.ErrProjectNotFound
}

func (m *MockProjectRepository) List(ctx context.Context, ownerID int64) ([]*domain.Project, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	result := make([]*domain.Project, 0)
	for _, p := range m.projects {
		if ownerID == 0 || p.OwnerID == ownerID {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *MockProjectRepository) Update(ctx context.Context, project *domain.Project) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.projects[project.ID]
	if !ok {
		return domain.ErrProjectNotFound
	}
	existing.Name = project.Name
	existing.Description = project.Description
	existing.EstimatedEnd = project.EstimatedEnd
	existing.FinishedAt = project.FinishedAt
	return nil
}

func (m *MockProjectRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	if _, ok := m.projects[id]; !ok {
		m.mu.Unlock()
		return domain.ErrProjectNotFound
	}
	delete(m.projects, id)
	hook := m.onDelete
	m.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	return nil
}

func (m *MockProjectRepository) CountByOwner(ctx context.Context, ownerID int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.projects {
		if p.OwnerID == ownerID {
			n++
		}
	}
	return n, nil
}

// =============================================================================
// Project Materials
// =============================================================================

// MockProjectMaterialRepository is a map-backed repository.ProjectMaterialRepository
// that enforces (project, material) uniqueness like the real schema.
type MockProjectMaterialRepository struct {
	mu        sync.Mutex
	links     map[int64]*domain.ProjectMaterial
	nextID    int64
	materials *MockMaterialRepository

	// hideOnFirstLookup makes the first pair lookup miss, simulating a
	// concurrent writer inserting between lookup and create.
	hideOnFirstLookup bool
	lookups           int
}

func NewMockProjectMaterialRepository(materials *MockMaterialRepository) *MockProjectMaterialRepository {
	return &MockProjectMaterialRepository{
		links:     make(map[int64]*domain.ProjectMaterial),
		nextID:    1,
		materials: materials,
	}
}

func (m *MockProjectMaterialRepository) Create(ctx context.Context, pm *domain.ProjectMaterial) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range m.links {
		if l.ProjectID == pm.ProjectID && l.MaterialID == pm.MaterialID {
			return domain.ErrProjectMaterialAlreadyExists
		}
	}
	pm.ID = m.nextID
	m.nextID++
	cp := *pm
	m.links[pm.ID] = &cp
	return nil
}

func (m *MockProjectMaterialRepository) GetByID(ctx context.Context, id int64) (*domain.ProjectMaterial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if l, ok := m.links[id]; ok {
		cp := *l
		return &cp, nil
	}
	return nil, domain.ErrProjectMaterialNotFound
}

func (m *MockProjectMaterialRepository) GetByProjectAndMaterial(ctx context.Context, projectID, materialID int64) (*domain.ProjectMaterial, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups++
	if m.hideOnFirstLookup && m.lookups == 1 {
		return nil, domain.ErrProjectMaterialNotFound
	}
	for _, l := range m.links {
		if l.ProjectID == projectID && l.MaterialID == materialID {
			cp := *l
			return &cp, nil
		}
	}
	return nil, domain.ErrProjectMaterialNotFound
}

func (m *MockProjectMaterialRepository) UpdateAmount(ctx context.Context, id int64, amount float64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[id]
	if !ok {
		return domain.ErrProjectMaterialNotFound
	}
	l.Amount = amount
	return nil
}

func (m *MockProjectMaterialRepository) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.links[id]; !ok {
		return domain.ErrProjectMaterialNotFound
	}
	delete(m.links, id)
	return nil
}

func (m *MockProjectMaterialRepository) ListByProject(ctx context.Context, projectID int64) ([]*domain.ProjectMaterialView, error) {
	m.mu.Lock()
	links := make([]*domain.ProjectMaterial, 0)
	for _, l := range m.links {
		if l.ProjectID == projectID {
			cp := *l
			links = append(links, &cp)
		}
	}
	m.mu.Unlock()

	sort.Slice(links, func(i, j int) bool { return links[i].ID < links[j].ID })
	views := make([]*domain.ProjectMaterialView, 0, len(links))
	for _, l := range links {
		mat, err := m.materials.GetByID(ctx, l.MaterialID)
		if err != nil {
			return nil, err
		}
		views = append(views, domain.NewProjectMaterialView(l, mat))
	}
	return views, nil
}

func (m *MockProjectMaterialRepository) deleteByProject(projectID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, l := range m.links {
		if l.ProjectID == projectID {
			delete(m.links, id)
		}
	}
}

func (m *MockProjectMaterialRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.links)
}

// =============================================================================
// Cache
// =============================================================================

// MockCache is a testify mock of repository.Cache for failure injection.
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

func (m *MockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCache) Delete(ctx context.Context, keys ...string) error {
	args := m.Called(ctx, keys)
	return args.Error(0)
}

func (m *MockCache) Incr(ctx context.Context, key string) (int64, error) {
	args := m.Called(ctx, key)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

// =============================================================================
// Auth collaborators
// =============================================================================

// fakeHasher stores passwords with a visible prefix.
type fakeHasher struct{}

func (fakeHasher) Hash(plain string) (string, error) { return "hashed:" + plain, nil }

func (fakeHasher) Verify(plain, digest string) (bool, error) {
	if !strings.HasPrefix(digest, "hashed:") {
		return false, errors.New("malformed digest")
	}
	return digest == "hashed:"+plain, nil
}

// fakeTokens issues "token-<id>" tokens.
type fakeTokens struct{}

func (fakeTokens) Issue(user *domain.User) (string, error) {
	return "token-" + strconv.FormatInt(user.ID, 10), nil
}

var (
	_ repository.UserRepository            = (*MockUserRepository)(nil)
	_ repository.MaterialRepository        = (*MockMaterialRepository)(nil)
	_ repository.ProjectRepository         = (*MockProjectRepository)(nil)
	_ repository.ProjectMaterialRepository = (*MockProjectMaterialRepository)(nil)
	_ repository.Cache                     = (*MockCache)(nil)
)
