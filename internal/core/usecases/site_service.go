package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel/attribute"

	"github.com/darukaa/siteboundary/internal/core/domain"
	"github.com/darukaa/siteboundary/internal/core/ports"
	"github.com/darukaa/siteboundary/internal/pkg/geospatial"
	"github.com/darukaa/siteboundary/internal/pkg/metrics"
	"github.com/darukaa/siteboundary/internal/pkg/telemetry"
)

const (
	siteCacheTTL       = 600
	defaultHistoryDays = 7
	chartTimeLayout    = "2006-01-02 15:04:05"
)

// SiteCreateInput is the payload accepted when creating a site.
type SiteCreateInput struct {
	ProjectID   string                            `json:"project_id" validate:"required"`
	Name        string                            `json:"name" validate:"required,min=3,max=100"`
	Description string                            `json:"description"`
	SiteType    string                            `json:"site_type"`
	Area        *float64                          `json:"area" validate:"omitempty,gte=0"`
	Location    string                            `json:"location"`
	Geolocation []domain.GeoPoint                 `json:"geolocation" validate:"omitempty,dive"`
	Analytics   map[string]domain.AnalyticsMetric `json:"analytics"`
}

// SiteUpdateInput is a partial update. Unset fields keep their value;
// a non-nil Geolocation (even empty) replaces the boundary.
type SiteUpdateInput struct {
	Name        *string                           `json:"name" validate:"omitempty,min=3,max=100"`
	Description *string                           `json:"description"`
	SiteType    *string                           `json:"site_type"`
	Area        *float64                          `json:"area" validate:"omitempty,gte=0"`
	Location    *string                           `json:"location"`
	Status      *domain.SiteStatus                `json:"status" validate:"omitempty,oneof=active inactive"`
	Geolocation []domain.GeoPoint                 `json:"geolocation" validate:"omitempty,dive"`
	Analytics   map[string]domain.AnalyticsMetric `json:"analytics"`
}

// SiteService handles site-related business logic.
type SiteService struct {
	sites    ports.SiteRepository
	history  ports.AnalyticsHistoryRepository
	cache    ports.CacheService
	validate *validator.Validate
	now      func() time.Time
}

// NewSiteService creates a new SiteService. cache may be nil.
func NewSiteService(sites ports.SiteRepository, history ports.AnalyticsHistoryRepository, cache ports.CacheService) *SiteService {
	return &SiteService{
		sites:    sites,
		history:  history,
		cache:    cache,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

func siteCacheKey(id string) string { return "sites:id:" + id }

// Create validates and stores a new site owned by userID.
func (s *SiteService) Create(ctx context.Context, in SiteCreateInput, userID string) (*domain.Site, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSiteCreate)
	defer span.End()

	in.Name = strings.TrimSpace(in.Name)
	if err := s.check(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	site := &domain.Site{
		ID:          uuid.NewString(),
		ProjectID:   in.ProjectID,
		Name:        in.Name,
		Description: in.Description,
		SiteType:    in.SiteType,
		Area:        in.Area,
		Location:    in.Location,
		Status:      domain.SiteActive,
		Geolocation: in.Geolocation,
		Analytics:   in.Analytics,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if site.Geolocation == nil {
		site.Geolocation = []domain.GeoPoint{}
	}
	span.SetAttributes(attribute.String("site.id", site.ID), attribute.Int("site.vertices", len(site.Geolocation)))

	if err := s.sites.Create(ctx, site); err != nil {
		return nil, fmt.Errorf("create site: %w", err)
	}
	return site, nil
}

// GetByID returns a single site.
func (s *SiteService) GetByID(ctx context.Context, id string) (*domain.Site, error) {
	cacheKey := siteCacheKey(id)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var site domain.Site
			if err := json.Unmarshal(data, &site); err == nil {
				metrics.CacheHits.WithLabelValues("site").Inc()
				return &site, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("site").Inc()
	}

	site, err := s.sites.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if data, err := json.Marshal(site); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, siteCacheTTL)
		}
	}
	return site, nil
}

// List returns sites page by page.
func (s *SiteService) List(ctx context.Context, skip, limit int) ([]domain.Site, error) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	return s.sites.List(ctx, skip, limit)
}

// ListByProject returns every site of a project.
func (s *SiteService) ListByProject(ctx context.Context, projectID string) ([]domain.Site, error) {
	if projectID == "" {
		return nil, fmt.Errorf("%w: project id must not be empty", domain.ErrValidation)
	}
	return s.sites.ListByProject(ctx, projectID)
}

// ListByUser returns every site created by a user.
func (s *SiteService) ListByUser(ctx context.Context, userID string) ([]domain.Site, error) {
	return s.sites.ListByUser(ctx, userID)
}

// Update applies a partial update. When the site already has analytics,
// they are snapshotted into the history first, whatever fields change.
func (s *SiteService) Update(ctx context.Context, id string, in SiteUpdateInput, userID string) (*domain.Site, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSiteUpdate)
	defer span.End()
	span.SetAttributes(attribute.String("site.id", id))

	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		in.Name = &trimmed
	}
	if err := s.check(in); err != nil {
		return nil, err
	}

	site, err := s.sites.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if len(site.Analytics) > 0 && s.history != nil {
		rec := &domain.SiteAnalyticsRecord{
			ID:        uuid.NewString(),
			SiteID:    site.ID,
			ProjectID: site.ProjectID,
			Analytics: site.Analytics,
			CreatedBy: userID,
			CreatedAt: s.now().UTC(),
		}
		if err := s.history.Add(ctx, rec); err != nil {
			return nil, fmt.Errorf("snapshot analytics: %w", err)
		}
	}

	if in.Name != nil {
		site.Name = *in.Name
	}
	if in.Description != nil {
		site.Description = *in.Description
	}
	if in.SiteType != nil {
		site.SiteType = *in.SiteType
	}
	if in.Area != nil {
		site.Area = in.Area
	}
	if in.Location != nil {
		site.Location = *in.Location
	}
	if in.Status != nil {
		site.Status = *in.Status
	}
	if in.Geolocation != nil {
		site.Geolocation = in.Geolocation
	}
	if in.Analytics != nil {
		site.Analytics = in.Analytics
	}
	site.UpdatedBy = userID
	site.UpdatedAt = s.now().UTC()

	if err := s.sites.Update(ctx, site); err != nil {
		return nil, fmt.Errorf("update site: %w", err)
	}
	s.invalidate(ctx, id)
	return site, nil
}

// SetBoundary replaces the boundary of a site.
func (s *SiteService) SetBoundary(ctx context.Context, id string, ring []domain.GeoPoint, userID string) error {
	if ring == nil {
		ring = []domain.GeoPoint{}
	}
	boundary := struct {
		Geolocation []domain.GeoPoint `validate:"dive"`
	}{ring}
	if err := s.check(boundary); err != nil {
		return err
	}
	if err := s.sites.UpdateGeolocation(ctx, id, ring, userID); err != nil {
		return fmt.Errorf("update geolocation: %w", err)
	}
	s.invalidate(ctx, id)
	return nil
}

// Delete removes a site.
func (s *SiteService) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSiteDelete)
	defer span.End()
	span.SetAttributes(attribute.String("site.id", id))

	if err := s.sites.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx, id)
	return nil
}

// Boundary returns the site boundary as a GeoJSON feature.
func (s *SiteService) Boundary(ctx context.Context, id string) (*geojson.Feature, error) {
	site, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return geospatial.SiteFeature(site), nil
}

// Bounds returns the bounding box of the site boundary. ok is false when
// the site has no boundary.
func (s *SiteService) Bounds(ctx context.Context, id string) (b domain.Bounds, ok bool, err error) {
	site, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.Bounds{}, false, err
	}
	b, ok = geospatial.BoundsOf(geospatial.ToInteractionForm(site.Geolocation))
	return b, ok, nil
}

// AnalyticsHistory returns the snapshots of the last days days, oldest
// first, plus one chart series per metric.
func (s *SiteService) AnalyticsHistory(ctx context.Context, siteID string, days int) (*domain.AnalyticsHistory, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSiteHistory)
	defer span.End()

	if days <= 0 {
		days = defaultHistoryDays
	}
	if _, err := s.sites.GetByID(ctx, siteID); err != nil {
		return nil, err
	}

	since := s.now().UTC().AddDate(0, 0, -days)
	records, err := s.history.ListSince(ctx, siteID, since)
	if err != nil {
		return nil, fmt.Errorf("list analytics history: %w", err)
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})

	chart := make(map[string]domain.ChartSeries)
	for _, rec := range records {
		ts := rec.CreatedAt.Format(chartTimeLayout)
		for name, m := range rec.Analytics {
			series, ok := chart[name]
			if !ok {
				series = domain.ChartSeries{Unit: m.Unit}
			}
			series.Values = append(series.Values, domain.ChartPoint{X: ts, Y: m.Value})
			chart[name] = series
		}
	}
	if records == nil {
		records = []domain.SiteAnalyticsRecord{}
	}
	return &domain.AnalyticsHistory{History: records, Chart: chart}, nil
}

func (s *SiteService) check(in any) error {
	return checkInput(s.validate, in)
}

// checkInput runs struct validation and reports every failed field as
// one ErrValidation.
func checkInput(v *validator.Validate, in any) error {
	if err := v.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %s", domain.ErrValidation, err.Error())
	}
	return nil
}

func (s *SiteService) invalidate(ctx context.Context, id string) {
	if s.cache != nil {
		_ = s.cache.Delete(ctx, siteCacheKey(id))
	}
}
