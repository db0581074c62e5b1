package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/prn-tf/pmapp/internal/domain"
	"github.com/prn-tf/pmapp/internal/repository"
)

// materialRepository implements repository.MaterialRepository for PostgreSQL.
type materialRepository struct {
	q Querier
}

// NewMaterialRepository creates a new PostgreSQL material repository.
func NewMaterialRepository(q Querier) repository.MaterialRepository {
	return &materialRepository{q: q}
}

const materialColumns = `id, name, market_id, seller, picture_url`

func scanMaterial(row pgx.Row) (*domain.Material, error) {
	m := &domain.Material{}
	var seller, picture pgtype.Text
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
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query,
		material.Name,
		material.MarketID,
		nullableText(material.Seller),
		nullableText(material.PictureURL),
	).Scan(&material.ID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: name or market id already exists", domain.ErrMaterialAlreadyExists)
		}
		return fmt.Errorf("failed to create material: %w", err)
	}

	return nil
}

// GetByID retrieves a material by ID.
func (r *materialRepository) GetByID(ctx context.Context, id int64) (*domain.Material, error) {
	m, err := scanMaterial(r.q.QueryRow(ctx, `SELECT `+materialColumns+` FROM materials WHERE id = $1`, id))
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
	rows, err := r.q.Query(ctx, `SELECT `+materialColumns+` FROM materials ORDER BY id`)
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
	tag, err := r.q.Exec(ctx, `DELETE FROM materials WHERE id = $1`, id)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: material %d", domain.ErrMaterialInUse, id)
		}
		return fmt.Errorf("failed to delete material: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrMaterialNotFound
	}

	return nil
}

// Ensure materialRepository implements repository.MaterialRepository.
var _ repository.MaterialRepository = (*materialRepository)(nil)
