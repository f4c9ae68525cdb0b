package usecases

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/darukaa/siteboundary/internal/core/domain"
	"github.com/darukaa/siteboundary/internal/core/ports"
	"github.com/darukaa/siteboundary/internal/pkg/telemetry"
)

// ProjectCreateInput is the payload accepted when creating a project.
type ProjectCreateInput struct {
	Name        string `json:"name" validate:"required,min=3,max=255"`
	Description string `json:"description"`
}

// ProjectUpdateInput is a partial update; unset fields keep their value.
type ProjectUpdateInput struct {
	Name            *string `json:"name" validate:"omitempty,min=3,max=255"`
	Description     *string `json:"description"`
	SitesAddedTotal *int    `json:"sites_added_total" validate:"omitempty,gte=0"`
}

// ProjectService handles projects. Deleting a project deletes its sites.
type ProjectService struct {
	projects ports.ProjectRepository
	sites    ports.SiteRepository
	cache    ports.CacheService
	validate *validator.Validate
	now      func() time.Time
}

// NewProjectService creates a new ProjectService. cache may be nil.
func NewProjectService(projects ports.ProjectRepository, sites ports.SiteRepository, cache ports.CacheService) *ProjectService {
	return &ProjectService{
		projects: projects,
		sites:    sites,
		cache:    cache,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

// Create validates and stores a new project owned by userID.
func (s *ProjectService) Create(ctx context.Context, in ProjectCreateInput, userID string) (*domain.Project, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanProjectCreate)
	defer span.End()

	in.Name = strings.TrimSpace(in.Name)
	if err := checkInput(s.validate, in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	p := &domain.Project{
		ID:          uuid.NewString(),
		Name:        in.Name,
		Description: in.Description,
		CreatedBy:   userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	span.SetAttributes(attribute.String("project.id", p.ID))
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	return p, nil
}

// Get returns a project with its sites.
func (s *ProjectService) Get(ctx context.Context, id string) (*domain.ProjectWithSites, error) {
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	sites, err := s.sites.ListByProject(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list project sites: %w", err)
	}
	if sites == nil {
		sites = []domain.Site{}
	}
	return &domain.ProjectWithSites{Project: p, Sites: sites}, nil
}

// List returns every project, or only those created by userID.
func (s *ProjectService) List(ctx context.Context, userID string) ([]domain.Project, error) {
	projects, err := s.projects.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if projects == nil {
		projects = []domain.Project{}
	}
	return projects, nil
}

// Update applies a partial update.
func (s *ProjectService) Update(ctx context.Context, id string, in ProjectUpdateInput, userID string) (*domain.Project, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanProjectUpdate)
	defer span.End()
	span.SetAttributes(attribute.String("project.id", id))

	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		in.Name = &trimmed
	}
	if err := checkInput(s.validate, in); err != nil {
		return nil, err
	}

	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		p.Name = *in.Name
	}
	if in.Description != nil {
		p.Description = *in.Description
	}
	if in.SitesAddedTotal != nil {
		p.SitesAddedTotal = *in.SitesAddedTotal
	}
	p.UpdatedBy = userID
	p.UpdatedAt = s.now().UTC()

	if err := s.projects.Update(ctx, p); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	return p, nil
}

// Delete removes a project and its sites. It returns the ids of the
// removed sites so their open editors can be stopped.
func (s *ProjectService) Delete(ctx context.Context, id string) ([]string, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanProjectDelete)
	defer span.End()
	span.SetAttributes(attribute.String("project.id", id))

	siteIDs, err := s.projects.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		for _, siteID := range siteIDs {
			_ = s.cache.Delete(ctx, siteCacheKey(siteID))
		}
	}
	span.SetAttributes(attribute.Int("project.sites_deleted", len(siteIDs)))
	return siteIDs, nil
}
