package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prn-tf/pmapp/internal/domain"
	"github.com/prn-tf/pmapp/internal/repository"
)

// materialRepository implements repository.MaterialRepository for SQLite.
type materialRepository struct {
	db *DB
}

// NewMaterialRepository creates a new SQLite material repository.
func NewMaterialRepository(db *DB) repository.MaterialRepository {
	return &materialRepository{db: db}
}

const materialColumns = `id, name, market_id, seller, picture_url`

func scanMaterial(row rowScanner) (*domain.Material, error) {
	m := &domain.Material{}
	var seller, picture sql.NullString
	if err := row.Scan(&m.ID, &m.Name, &m.MarketID, &seller, &picture); err != nil {
		return nil, err
	}
	m.Seller = seller.String
	m.PictureURL = picture.String
	return m, nil
}

// Create creates a new material.
func (r *materialRepository) Create(ctx context.Context, material *domain.Material) error {
	query := `
		INSERT INTO materials (name, market_id, seller, picture_url)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		material.Name,
		material.MarketID,
		nullString(material.Seller),
		nullString(material.PictureURL),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: name or market id already exists", domain.ErrMaterialAlreadyExists)
		}
		return fmt.Errorf("failed to create material: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	material.ID = id

	return nil
}

// GetByID retrieves a material by ID.
func (r *materialRepository) GetByID(ctx context.Context, id int64) (*domain.Material, error) {
	query := `SELECT ` + materialColumns + ` FROM materials WHERE id = ?`

	m, err := scanMaterial(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrMaterialNotFound
		}
		return nil, fmt.Errorf("failed to get material by ID: %w", err)
	}
	return m, nil
}

// List returns all materials ordered by ID.
func (r *materialRepository) List(ctx context.Context) ([]*domain.Material, error) {
	query := `SELECT ` + materialColumns + ` FROM materials ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}
	defer rows.Close()

	materials := make([]*domain.Material, 0)
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan material: %w", err)
		}
		materials = append(materials, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating materials: %w", err)
	}

	return materials, nil
}

// Delete deletes a material by ID.
func (r *materialRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM materials WHERE id = ?`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: material %d", domain.ErrMaterialInUse, id)
		}
		return fmt.Errorf("failed to delete material: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrMaterialNotFound
	}

	return nil
}

// Ensure materialRepository implements repository.MaterialRepository.
var _ repository.MaterialRepository = (*materialRepository)(nil)
