package sqlite

import (
	"context"
	"fmt"

	"github.com/prn-tf/pmapp/internal/domain"
	"github.com/prn-tf/pmapp/internal/repository"
)

// projectMaterialRepository implements repository.ProjectMaterialRepository for SQLite.
type projectMaterialRepository struct {
	db *DB
}

// NewProjectMaterialRepository creates a new SQLite project material repository.
func NewProjectMaterialRepository(db *DB) repository.ProjectMaterialRepository {
	return &projectMaterialRepository{db: db}
}

const projectMaterialColumns = `id, project_id, material_id, amount`

func scanProjectMaterial(row rowScanner) (*domain.ProjectMaterial, error) {
	pm := &domain.ProjectMaterial{}
	if err := row.Scan(&pm.ID, &pm.ProjectID, &pm.MaterialID, &pm.Amount); err != nil {
		return nil, err
	}
	return pm, nil
}

// Create creates a new link.
func (r *projectMaterialRepository) Create(ctx context.Context, pm *domain.ProjectMaterial) error {
	query := `
		INSERT INTO project_materials (project_id, material_id, amount)
		VALUES (?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query, pm.ProjectID, pm.MaterialID, pm.Amount)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: project %d material %d", domain.ErrProjectMaterialAlreadyExists, pm.ProjectID, pm.MaterialID)
		}
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: project %d material %d", domain.ErrReferenceNotFound, pm.ProjectID, pm.MaterialID)
		}
		return fmt.Errorf("failed to create project material: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	pm.ID = id

	return nil
}

// GetByID retrieves a link by ID.
func (r *projectMaterialRepository) GetByID(ctx context.Context, id int64) (*domain.ProjectMaterial, error) {
	query := `SELECT ` + projectMaterialColumns + ` FROM project_materials WHERE id = ?`

	pm, err := scanProjectMaterial(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrProjectMaterialNotFound
		}
		return nil, fmt.Errorf("failed to get project material by ID: %w", err)
	}
	return pm, nil
}

// GetByProjectAndMaterial retrieves the link for a (project, material) pair.
func (r *projectMaterialRepository) GetByProjectAndMaterial(ctx context.Context, projectID, materialID int64) (*domain.ProjectMaterial, error) {
	query := `SELECT ` + projectMaterialColumns + ` FROM project_materials WHERE project_id = ? AND material_id = ?`

	pm, err := scanProjectMaterial(r.db.QueryRowContext(ctx, query, projectID, materialID))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrProjectMaterialNotFound
		}
		return nil, fmt.Errorf("failed to get project material: %w", err)
	}
	return pm, nil
}

// UpdateAmount overwrites the amount of an existing link.
func (r *projectMaterialRepository) UpdateAmount(ctx context.Context, id int64, amount float64) error {
	result, err := r.db.ExecContext(ctx, `UPDATE project_materials SET amount = ? WHERE id = ?`, amount, id)
	if err != nil {
		return fmt.Errorf("failed to update project material: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrProjectMaterialNotFound
	}

	return nil
}

// Delete deletes a link by ID.
func (r *projectMaterialRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM project_materials WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project material: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrProjectMaterialNotFound
	}

	return nil
}

// ListByProject returns the links of a project joined with material display fields.
func (r *projectMaterialRepository) ListByProject(ctx context.Context, projectID int64) ([]*domain.ProjectMaterialView, error) {
	query := `
		SELECT pm.id, pm.project_id, pm.material_id, m.name, m.market_id, pm.amount
		FROM project_materials pm
		JOIN materials m ON m.id = pm.material_id
		WHERE pm.project_id = ?
		ORDER BY pm.id
	`

	rows, err := r.db.QueryContext(ctx, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project materials: %w", err)
	}
	defer rows.Close()

	views := make([]*domain.ProjectMaterialView, 0)
	for rows.Next() {
		v := &domain.ProjectMaterialView{}
		if err := rows.Scan(&v.ID, &v.ProjectID, &v.MaterialID, &v.MaterialName, &v.MarketID, &v.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan project material: %w", err)
		}
		views = append(views, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating project materials: %w", err)
	}

	return views, nil
}

// Ensure projectMaterialRepository implements repository.ProjectMaterialRepository.
var _ repository.ProjectMaterialRepository = (*projectMaterialRepository)(nil)
