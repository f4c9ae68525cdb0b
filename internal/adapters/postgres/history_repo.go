package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/darukaa/siteboundary/internal/core/domain"
)

// AnalyticsHistoryRepo implements ports.AnalyticsHistoryRepository.
type AnalyticsHistoryRepo struct {
	db *DB
}

func NewAnalyticsHistoryRepo(db *DB) *AnalyticsHistoryRepo {
	return &AnalyticsHistoryRepo{db: db}
}

func (r *AnalyticsHistoryRepo) Add(ctx context.Context, rec *domain.SiteAnalyticsRecord) error {
	_, err := r.db.Pool.Exec(ctx, `
		INSERT INTO site_analytics_history (id, site_id, project_id, analytics, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.ID, rec.SiteID, rec.ProjectID, rec.Analytics, rec.CreatedBy, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert analytics history: %w", err)
	}
	return nil
}

func (r *AnalyticsHistoryRepo) ListSince(ctx context.Context, siteID string, since time.Time) ([]domain.SiteAnalyticsRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, site_id, project_id, analytics, created_by, created_at
		FROM site_analytics_history
		WHERE site_id = $1 AND created_at >= $2
		ORDER BY created_at ASC
	`, siteID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.SiteAnalyticsRecord
	for rows.Next() {
		var rec domain.SiteAnalyticsRecord
		if err := rows.Scan(&rec.ID, &rec.SiteID, &rec.ProjectID, &rec.Analytics, &rec.CreatedBy, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// BoundaryHistoryRepo implements ports.BoundaryHistoryRepository.
type BoundaryHistoryRepo struct {
	db *DB
}

func NewBoundaryHistoryRepo(db *DB) *BoundaryHistoryRepo {
	return &BoundaryHistoryRepo{db: db}
}

func (r *BoundaryHistoryRepo) Insert(ctx context.Context, rec *domain.BoundaryRecord) error {
	vertices := rec.Vertices
	if vertices == nil {
		vertices = []domain.GeoPoint{}
	}
	err := r.db.Pool.QueryRow(ctx, `
		INSERT INTO site_boundary_history (site_id, session_id, kind, vertices, occurred_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, rec.SiteID, nilIfEmpty(rec.SessionID), rec.Kind, vertices, rec.OccurredAt).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("insert boundary history: %w", err)
	}
	return nil
}

func (r *BoundaryHistoryRepo) ListBySite(ctx context.Context, siteID string, limit int) ([]domain.BoundaryRecord, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT id, site_id, COALESCE(session_id, ''), kind, vertices, occurred_at
		FROM site_boundary_history
		WHERE site_id = $1
		ORDER BY occurred_at DESC, id DESC
		LIMIT $2
	`, siteID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []domain.BoundaryRecord{}
	for rows.Next() {
		var rec domain.BoundaryRecord
		if err := rows.Scan(&rec.ID, &rec.SiteID, &rec.SessionID, &rec.Kind, &rec.Vertices, &rec.OccurredAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
