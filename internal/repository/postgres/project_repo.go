package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/prn-tf/pmapp/internal/domain"
	"github.com/prn-tf/pmapp/internal/repository"
)

// projectRepository implements repository.ProjectRepository for PostgreSQL.
type projectRepository struct {
	q Querier
}

// NewProjectRepository creates a new PostgreSQL project repository.
func NewProjectRepository(q Querier) repository.ProjectRepository {
	return &projectRepository{q: q}
}

const projectSelect = `
	SELECT p.id, p.user_id, u.username, p.name, p.description, p.created_at, p.estimated_end, p.finished_at
	FROM projects p
	JOIN users u ON u.id = p.user_id
`

func scanProject(row pgx.Row) (*domain.Project, error) {
	p := &domain.Project{}
	var estimatedEnd, finishedAt pgtype.Timestamptz
	if err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.OwnerUsername,
		&p.Name,
		&p.Description,
		&p.CreatedAt,
		&estimatedEnd,
		&finishedAt,
	); err != nil {
		return nil, err
	}
	p.EstimatedEnd = timestamptzPtr(estimatedEnd)
	p.FinishedAt = timestamptzPtr(finishedAt)
	return p, nil
}

// Create creates a new project.
func (r *projectRepository) Create(ctx context.Context, project *domain.Project) error {
	query := `
		INSERT INTO projects (user_id, name, description, created_at, estimated_end, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	err := r.q.QueryRow(ctx, query,
		project.OwnerID,
		project.Name,
		project.Description,
		project.CreatedAt,
		nullableTimestamptz(project.EstimatedEnd),
		nullableTimestamptz(project.FinishedAt),
	).Scan(&project.ID)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: owner %d", domain.ErrReferenceNotFound, project.OwnerID)
		}
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// GetByID retrieves a project by ID.
func (r *projectRepository) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	p, err := scanProject(r.q.QueryRow(ctx, projectSelect+` WHERE p.id = $1`, id))
	if err != nil {
		if isNoRows(err) {
			return nil, domain.ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project by ID: %w", err)
	}
	return p, nil
}

// List returns projects ordered by ID, optionally restricted to one owner.
func (r *projectRepository) List(ctx context.Context, ownerID int64) ([]*domain.Project, error) {
	query := projectSelect
	var args []any
	if ownerID != 0 {
		query += ` WHERE p.user_id = $1`
		args = append(args, ownerID)
	}
	query += ` ORDER BY p.id`

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]*domain.Project, 0)
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating projects: %w", err)
	}

	return projects, nil
}

// Update updates the mutable fields of a project.
func (r *projectRepository) Update(ctx context.Context, project *domain.Project) error {
	query := `
		UPDATE projects
		SET name = $1, description = $2, estimated_end = $3, finished_at = $4
		WHERE id = $5
	`

	tag, err := r.q.Exec(ctx, query,
		project.Name,
		project.Description,
		nullableTimestamptz(project.EstimatedEnd),
		nullableTimestamptz(project.FinishedAt),
		project.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}

	return nil
}

// Delete deletes a project. Links are removed by ON DELETE CASCADE.
func (r *projectRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.q.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}

	return nil
}

// CountByOwner returns the number of projects owned by a user.
func (r *projectRepository) CountByOwner(ctx context.Context, ownerID int64) (int64, error) {
	var count int64
	err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM projects WHERE user_id = $1`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return count, nil
}

// Ensure projectRepository implements repository.ProjectRepository.
var _ repository.ProjectRepository = (*projectRepository)(nil)
