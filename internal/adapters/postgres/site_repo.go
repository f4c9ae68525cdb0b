package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/darukaa/siteboundary/internal/core/domain"
)

const siteColumns = `
	id, project_id, name, COALESCE(description, ''), COALESCE(site_type, ''), area,
	COALESCE(location, ''), status, geolocation, COALESCE(analytics, '{}'::jsonb),
	created_by, COALESCE(updated_by, ''), created_at, updated_at`

// SiteRepo implements ports.SiteRepository with pgx.
type SiteRepo struct {
	db *DB
}

// NewSiteRepo creates a new SiteRepo.
func NewSiteRepo(db *DB) *SiteRepo {
	return &SiteRepo{db: db}
}

// Create inserts a site and counts it on its project. Geolocation and
// analytics are stored as JSONB.
func (r *SiteRepo) Create(ctx context.Context, s *domain.Site) error {
	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO sites (id, project_id, name, description, site_type, area, location, status,
			                   geolocation, analytics, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		`, s.ID, s.ProjectID, s.Name, nilIfEmpty(s.Description), nilIfEmpty(s.SiteType), s.Area,
			nilIfEmpty(s.Location), s.Status, geolocationOrEmpty(s.Geolocation), s.Analytics,
			s.CreatedBy, s.CreatedAt, s.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert site: %w", err)
		}
		if _, err := tx.Exec(ctx, `UPDATE projects SET sites_added_total = sites_added_total + 1 WHERE id = $1`, s.ProjectID); err != nil {
			return fmt.Errorf("count site on project: %w", err)
		}
		return nil
	})
}

// Update overwrites every mutable column of a site.
func (r *SiteRepo) Update(ctx context.Context, s *domain.Site) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE sites
		SET name = $2, description = $3, site_type = $4, area = $5, location = $6, status = $7,
		    geolocation = $8, analytics = $9, updated_by = $10, updated_at = $11
		WHERE id = $1
	`, s.ID, s.Name, nilIfEmpty(s.Description), nilIfEmpty(s.SiteType), s.Area,
		nilIfEmpty(s.Location), s.Status, geolocationOrEmpty(s.Geolocation), s.Analytics,
		nilIfEmpty(s.UpdatedBy), s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("update site: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateGeolocation replaces only the boundary of a site.
func (r *SiteRepo) UpdateGeolocation(ctx context.Context, id string, geolocation []domain.GeoPoint, updatedBy string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE sites SET geolocation = $2, updated_by = $3, updated_at = $4
		WHERE id = $1
	`, id, geolocationOrEmpty(geolocation), nilIfEmpty(updatedBy), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update geolocation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Delete removes a site and, by cascade, its analytics history.
func (r *SiteRepo) Delete(ctx context.Context, id string) error {
	return pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		var projectID string
		err := tx.QueryRow(ctx, `DELETE FROM sites WHERE id = $1 RETURNING project_id`, id).Scan(&projectID)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("delete site: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			UPDATE projects SET sites_added_total = GREATEST(sites_added_total - 1, 0) WHERE id = $1
		`, projectID); err != nil {
			return fmt.Errorf("uncount site on project: %w", err)
		}
		return nil
	})
}

// GetByID returns a site by id.
func (r *SiteRepo) GetByID(ctx context.Context, id string) (*domain.Site, error) {
	row := r.db.Pool.QueryRow(ctx, `SELECT `+siteColumns+` FROM sites WHERE id = $1`, id)
	s, err := scanSite(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ListByProject returns the sites of a project, newest first.
func (r *SiteRepo) ListByProject(ctx context.Context, projectID string) ([]domain.Site, error) {
	return r.list(ctx, `SELECT `+siteColumns+` FROM sites WHERE project_id = $1 ORDER BY created_at DESC`, projectID)
}

// ListByUser returns the sites created by a user, newest first.
func (r *SiteRepo) ListByUser(ctx context.Context, userID string) ([]domain.Site, error) {
	return r.list(ctx, `SELECT `+siteColumns+` FROM sites WHERE created_by = $1 ORDER BY created_at DESC`, userID)
}

// List returns a page of sites ordered by creation time.
func (r *SiteRepo) List(ctx context.Context, skip, limit int) ([]domain.Site, error) {
	return r.list(ctx, `SELECT `+siteColumns+` FROM sites ORDER BY created_at DESC OFFSET $1 LIMIT $2`, skip, limit)
}

func (r *SiteRepo) list(ctx context.Context, query string, args ...any) ([]domain.Site, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sites := []domain.Site{}
	for rows.Next() {
		s, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		sites = append(sites, *s)
	}
	return sites, rows.Err()
}

func scanSite(row pgx.Row) (*domain.Site, error) {
	var s domain.Site
	if err := row.Scan(
		&s.ID, &s.ProjectID, &s.Name, &s.Description, &s.SiteType, &s.Area,
		&s.Location, &s.Status, &s.Geolocation, &s.Analytics,
		&s.CreatedBy, &s.UpdatedBy, &s.CreatedAt, &s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if s.Geolocation == nil {
		s.Geolocation = []domain.GeoPoint{}
	}
	return &s, nil
}

func geolocationOrEmpty(g []domain.GeoPoint) []domain.GeoPoint {
	if g == nil {
		return []domain.GeoPoint{}
	}
	return g
}

func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
