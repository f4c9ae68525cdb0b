package usecases_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/darukaa/siteboundary/internal/core/domain"
	"github.com/darukaa/siteboundary/internal/core/usecases"
)

func TestProjectService_Create(t *testing.T) {
	var stored *domain.Project
	repo := &mockProjectRepo{
		createFn: func(ctx context.Context, p *domain.Project) error {
			stored = p
			return nil
		},
	}
	svc := usecases.NewProjectService(repo, &mockSiteRepo{}, nil)

	p, err := svc.Create(context.Background(), usecases.ProjectCreateInput{Name: "  Western Ghats  "}, "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored == nil || stored.ID != p.ID {
		t.Fatal("expected the project to be stored")
	}
	if p.Name != "Western Ghats" {
		t.Errorf("expected trimmed name, got %q", p.Name)
	}
	if p.CreatedBy != "u1" || p.SitesAddedTotal != 0 {
		t.Errorf("unexpected project %+v", p)
	}
}

func TestProjectService_Create_Validation(t *testing.T) {
	svc := usecases.NewProjectService(&mockProjectRepo{}, &mockSiteRepo{}, nil)

	cases := []string{"", "ab", strings.Repeat("x", 256)}
	for _, name := range cases {
		if _, err := svc.Create(context.Background(), usecases.ProjectCreateInput{Name: name}, "u1"); !errors.Is(err, domain.ErrValidation) {
			t.Errorf("name %q: expected ErrValidation, got %v", name, err)
		}
	}
}

func TestProjectService_Get_WithSites(t *testing.T) {
	projects := &mockProjectRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Project, error) {
			return &domain.Project{ID: id, Name: "Western Ghats"}, nil
		},
	}
	sites := &mockSiteRepo{
		listByProjectFn: func(ctx context.Context, projectID string) ([]domain.Site, error) {
			return []domain.Site{{ID: "s1", ProjectID: projectID}, {ID: "s2", ProjectID: projectID}}, nil
		},
	}
	svc := usecases.NewProjectService(projects, sites, nil)

	got, err := svc.Get(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Project.ID != "p1" || len(got.Sites) != 2 {
		t.Errorf("unexpected result %+v", got)
	}
}

func TestProjectService_Get_NotFound(t *testing.T) {
	svc := usecases.NewProjectService(&mockProjectRepo{}, &mockSiteRepo{}, nil)
	_, err := svc.Get(context.Background(), "missing")
	if !errors.Is(err, domain.ErrProjectNotFound) || !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrProjectNotFound, got %v", err)
	}
}

func TestProjectService_List_ByUser(t *testing.T) {
	var gotUser string
	repo := &mockProjectRepo{
		listFn: func(ctx context.Context, userID string) ([]domain.Project, error) {
			gotUser = userID
			return nil, nil
		},
	}
	svc := usecases.NewProjectService(repo, &mockSiteRepo{}, nil)

	projects, err := svc.List(context.Background(), "u7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotUser != "u7" {
		t.Errorf("expected filter u7, got %q", gotUser)
	}
	if projects == nil || len(projects) != 0 {
		t.Errorf("expected an empty non-nil list, got %v", projects)
	}
}

func TestProjectService_Update_Partial(t *testing.T) {
	var updated *domain.Project
	repo := &mockProjectRepo{
		getByIDFn: func(ctx context.Context, id string) (*domain.Project, error) {
			return &domain.Project{ID: id, Name: "Western Ghats", Description: "kept", SitesAddedTotal: 2}, nil
		},
		updateFn: func(ctx context.Context, p *domain.Project) error {
			updated = p
			return nil
		},
	}
	svc := usecases.NewProjectService(repo, &mockSiteRepo{}, nil)

	name := "Eastern Ghats"
	if _, err := svc.Update(context.Background(), "p1", usecases.ProjectUpdateInput{Name: &name}, "u2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Name != "Eastern Ghats" || updated.Description != "kept" || updated.SitesAddedTotal != 2 {
		t.Errorf("unexpected update %+v", updated)
	}
	if updated.UpdatedBy != "u2" {
		t.Errorf("expected updated_by u2, got %q", updated.UpdatedBy)
	}

	negative := -1
	if _, err := svc.Update(context.Background(), "p1", usecases.ProjectUpdateInput{SitesAddedTotal: &negative}, "u2"); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("expected ErrValidation, got %v", err)
	}
}

func TestProjectService_Delete_InvalidatesSites(t *testing.T) {
	cache := newMemCache()
	_ = cache.Set(context.Background(), "sites:id:s1", []byte(`{}`), 60)
	_ = cache.Set(context.Background(), "sites:id:other", []byte(`{}`), 60)
	repo := &mockProjectRepo{
		deleteFn: func(ctx context.Context, id string) ([]string, error) {
			return []string{"s1"}, nil
		},
	}
	svc := usecases.NewProjectService(repo, &mockSiteRepo{}, cache)

	ids, err := svc.Delete(context.Background(), "p1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 1 || ids[0] != "s1" {
		t.Errorf("expected [s1], got %v", ids)
	}
	if cache.has("sites:id:s1") {
		t.Error("expected the deleted site to leave the cache")
	}
	if !cache.has("sites:id:other") {
		t.Error("expected other sites to stay cached")
	}

	if _, err := usecases.NewProjectService(&mockProjectRepo{}, &mockSiteRepo{}, nil).Delete(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
