package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/darukaa/siteboundary/internal/core/domain"
)

const projectColumns = `
	id, name, COALESCE(description, ''), sites_added_total,
	created_by, COALESCE(updated_by, ''), created_at, updated_at`

// ProjectRepo implements ports.ProjectRepository with pgx.
type ProjectRepo struct {
	db *DB
}

// NewProjectRepo creates a new ProjectRepo.
func NewProjectRepo(db *DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

func (r *ProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO projects (id, name, description, sites_added_total, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.ID, p.Name, nilIfEmpty(p.Description), p.SitesAddedTotal, p.CreatedBy, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

func (r *ProjectRepo) Update(ctx context.Context, p *domain.Project) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE projects
		SET name = $2, description = $3, sites_added_total = $4, updated_by = $5, updated_at = $6
		WHERE id = $1
	`, p.ID, p.Name, nilIfEmpty(p.Description), p.SitesAddedTotal, nilIfEmpty(p.UpdatedBy), p.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update project: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrProjectNotFound
	}
	return nil
}

func (r *ProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	p, err := scanProject(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrProjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *ProjectRepo) List(ctx context.Context, userID string) ([]domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects`
	var args []any
	if userID != "" {
		query += ` WHERE created_by = $1`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []domain.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// Delete removes the project and its sites in one transaction.
func (r *ProjectRepo) Delete(ctx context.Context, id string) ([]string, error) {
	var siteIDs []string
	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `DELETE FROM sites WHERE project_id = $1 RETURNING id`, id)
		if err != nil {
			return fmt.Errorf("delete project sites: %w", err)
		}
		siteIDs, err = pgx.CollectRows(rows, pgx.RowTo[string])
		if err != nil {
			return fmt.Errorf("delete project sites: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("delete project: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return domain.ErrProjectNotFound
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return siteIDs, nil
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var p domain.Project
	if err := row.Scan(
		&p.ID, &p.Name, &p.Description, &p.SitesAddedTotal,
		&p.CreatedBy, &p.UpdatedBy, &p.CreatedAt, &p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
