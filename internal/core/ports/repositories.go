package ports

import (
	"context"
	"time"

	"github.com/darukaa/siteboundary/internal/core/domain"
)

// SiteRepository persists sites.
type SiteRepository interface {
	Create(ctx context.Context, site *domain.Site) error
	Update(ctx context.Context, site *domain.Site) error
	UpdateGeolocation(ctx context.Context, id string, geolocation []domain.GeoPoint, updatedBy string) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*domain.Site, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.Site, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Site, error)
	List(ctx context.Context, skip, limit int) ([]domain.Site, error)
}

// ProjectRepository persists projects.
type ProjectRepository interface {
	Create(ctx context.Context, p *domain.Project) error
	Update(ctx context.Context, p *domain.Project) error
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	// List returns every project, or those created by userID when it is set.
	List(ctx context.Context, userID string) ([]domain.Project, error)
	// Delete removes a project with its sites and returns the removed site ids.
	Delete(ctx context.Context, id string) ([]string, error)
}

// AnalyticsHistoryRepository persists analytics snapshots of sites.
type AnalyticsHistoryRepository interface {
	Add(ctx context.Context, rec *domain.SiteAnalyticsRecord) error
	ListSince(ctx context.Context, siteID string, since time.Time) ([]domain.SiteAnalyticsRecord, error)
}

// BoundaryHistoryRepository persists audited boundary events.
type BoundaryHistoryRepository interface {
	Insert(ctx context.Context, rec *domain.BoundaryRecord) error
	ListBySite(ctx context.Context, siteID string, limit int) ([]domain.BoundaryRecord, error)
}
