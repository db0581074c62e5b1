package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prn-tf/pmapp/internal/domain"
	"github.com/prn-tf/pmapp/internal/repository"
)

// projectRepository implements repository.ProjectRepository for SQLite.
type projectRepository struct {
	db *DB
}

// NewProjectRepository creates a new SQLite project repository.
func NewProjectRepository(db *DB) repository.ProjectRepository {
	return &projectRepository{db: db}
}

const projectSelect = `
	SELECT p.id, p.user_id, u.username, p.name, p.description, p.created_at, p.estimated_end, p.finished_at
	FROM projects p
	JOIN users u ON u.id = p.user_id
`

func scanProject(row rowScanner) (*domain.Project, error) {
	p := &domain.Project{}
	var createdAt string
	var estimatedEnd, finishedAt sql.NullString
	if err := row.Scan(
		&p.ID,
		&p.OwnerID,
		&p.OwnerUsername,
		&p.Name,
		&p.Description,
		&createdAt,
		&estimatedEnd,
		&finishedAt,
	); err != nil {
		return nil, err
	}
	p.CreatedAt = parseTime(createdAt)
	p.EstimatedEnd = scanNullTime(estimatedEnd)
	p.FinishedAt = scanNullTime(finishedAt)
	return p, nil
}

// Create creates a new project.
func (r *projectRepository) Create(ctx context.Context, project *domain.Project) error {
	query := `
		INSERT INTO projects (user_id, name, description, created_at, estimated_end, finished_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.ExecContext(ctx, query,
		project.OwnerID,
		project.Name,
		project.Description,
		formatTime(project.CreatedAt),
		nullTime(project.EstimatedEnd),
		nullTime(project.FinishedAt),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("%w: owner %d", domain.ErrReferenceNotFound, project.OwnerID)
		}
		return fmt.Errorf("failed to create project: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}
	project.ID = id

	return nil
}

// GetByID retrieves a project by ID.
func (r *projectRepository) GetByID(ctx context.Context, id int64) (*domain.Project, error) {
	p, err := scanProject(r.db.QueryRowContext(ctx, projectSelect+` WHERE p.id = ?`, id))
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
	var args []interface{}
	if ownerID != 0 {
		query += ` WHERE p.user_id = ?`
		args = append(args, ownerID)
	}
	query += ` ORDER BY p.id`

	rows, err := r.db.QueryContext(ctx, query, args...)
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
		SET name = ?, description = ?, estimated_end = ?, finished_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		project.Name,
		project.Description,
		nullTime(project.EstimatedEnd),
		nullTime(project.FinishedAt),
		project.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update project: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrProjectNotFound
	}

	return nil
}

// Delete deletes a project. Links are removed by ON DELETE CASCADE.
func (r *projectRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected == 0 {
		return domain.ErrProjectNotFound
	}

	return nil
}

// CountByOwner returns the number of projects owned by a user.
func (r *projectRepository) CountByOwner(ctx context.Context, ownerID int64) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects WHERE user_id = ?`, ownerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count projects: %w", err)
	}
	return count, nil
}

// Ensure projectRepository implements repository.ProjectRepository.
var _ repository.ProjectRepository = (*projectRepository)(nil)
