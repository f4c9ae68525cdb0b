package usecases_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/darukaa/siteboundary/internal/core/domain"
)

// --- Mock SiteRepository ---

type mockSiteRepo struct {
	createFn            func(ctx context.Context, site *domain.Site) error
	updateFn            func(ctx context.Context, site *domain.Site) error
	updateGeolocationFn func(ctx context.Context, id string, geolocation []domain.GeoPoint, updatedBy string) error
	deleteFn            func(ctx context.Context, id string) error
	getByIDFn           func(ctx context.Context, id string) (*domain.Site, error)
	listByProjectFn     func(ctx context.Context, projectID string) ([]domain.Site, error)
	listFn              func(ctx context.Context, skip, limit int) ([]domain.Site, error)
}

func (m *mockSiteRepo) Create(ctx context.Context, site *domain.Site) error {
	if m.createFn != nil {
		return m.createFn(ctx, site)
	}
	return nil
}

func (m *mockSiteRepo) Update(ctx context.Context, site *domain.Site) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, site)
	}
	return nil
}

func (m *mockSiteRepo) UpdateGeolocation(ctx context.Context, id string, geolocation []domain.GeoPoint, updatedBy string) error {
	if m.updateGeolocationFn != nil {
		return m.updateGeolocationFn(ctx, id, geolocation, updatedBy)
	}
	return nil
}

func (m *mockSiteRepo) Delete(ctx context.Context, id string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil
}

func (m *mockSiteRepo) GetByID(ctx context.Context, id string) (*domain.Site, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (m *mockSiteRepo) ListByProject(ctx context.Context, projectID string) ([]domain.Site, error) {
	if m.listByProjectFn != nil {
		return m.listByProjectFn(ctx, projectID)
	}
	return nil, nil
}

func (m *mockSiteRepo) ListByUser(ctx context.Context, userID string) ([]domain.Site, error) {
	return nil, nil
}

func (m *mockSiteRepo) List(ctx context.Context, skip, limit int) ([]domain.Site, error) {
	if m.listFn != nil {
		return m.listFn(ctx, skip, limit)
	}
	return nil, nil
}

// --- Mock AnalyticsHistoryRepository ---

type mockHistoryRepo struct {
	addFn       func(ctx context.Context, rec *domain.SiteAnalyticsRecord) error
	listSinceFn func(ctx context.Context, siteID string, since time.Time) ([]domain.SiteAnalyticsRecord, error)
}

func (m *mockHistoryRepo) Add(ctx context.Context, rec *domain.SiteAnalyticsRecord) error {
	if m.addFn != nil {
		return m.addFn(ctx, rec)
	}
	return nil
}

func (m *mockHistoryRepo) ListSince(ctx context.Context, siteID string, since time.Time) ([]domain.SiteAnalyticsRecord, error) {
	if m.listSinceFn != nil {
		return m.listSinceFn(ctx, siteID, since)
	}
	return nil, nil
}

// --- Mock BoundaryHistoryRepository ---

type mockBoundaryHistoryRepo struct {
	insertFn     func(ctx context.Context, rec *domain.BoundaryRecord) error
	listBySiteFn func(ctx context.Context, siteID string, limit int) ([]domain.BoundaryRecord, error)
}

func (m *mockBoundaryHistoryRepo) Insert(ctx context.Context, rec *domain.BoundaryRecord) error {
	if m.insertFn != nil {
		return m.insertFn(ctx, rec)
	}
	return nil
}

func (m *mockBoundaryHistoryRepo) ListBySite(ctx context.Context, siteID string, limit int) ([]domain.BoundaryRecord, error) {
	if m.listBySiteFn != nil {
		return m.listBySiteFn(ctx, siteID, limit)
	}
	return nil, nil
}

// --- In-memory CacheService ---

var errCacheMiss = errors.New("cache miss")

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache { return &memCache{data: make(map[string][]byte)} }

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	if !ok {
		return nil, errCacheMiss
	}
	return v, nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttlSeconds int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// --- Mock EventPublisher ---

type mockPublisher struct {
	err    error
	events chan *domain.BoundaryEvent
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{events: make(chan *domain.BoundaryEvent, 16)}
}

func (p *mockPublisher) PublishBoundaryEvent(ctx context.Context, ev *domain.BoundaryEvent) error {
	p.events <- ev
	return p.err
}

func (p *mockPublisher) PublishSiteDeleted(ctx context.Context, siteID string) error { return nil }

func (p *mockPublisher) next(timeout time.Duration) *domain.BoundaryEvent {
	select {
	case ev := <-p.events:
		return ev
	case <-time.After(timeout):
		return nil
	}
}

// slowPublisher records every event after a fixed delay.
type slowPublisher struct {
	delay time.Duration

	mu     sync.Mutex
	events []*domain.BoundaryEvent
}

func (p *slowPublisher) PublishBoundaryEvent(ctx context.Context, ev *domain.BoundaryEvent) error {
	time.Sleep(p.delay)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *slowPublisher) PublishSiteDeleted(ctx context.Context, siteID string) error { return nil }

func (p *slowPublisher) published() []*domain.BoundaryEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*domain.BoundaryEvent(nil), p.events...)
}

// --- Mock ProjectRepository ---

type mockProjectRepo struct {
	createFn  func(ctx context.Context, p *domain.Project) error
	updateFn  func(ctx context.Context, p *domain.Project) error
	getByIDFn func(ctx context.Context, id string) (*domain.Project, error)
	listFn    func(ctx context.Context, userID string) ([]domain.Project, error)
	deleteFn  func(ctx context.Context, id string) ([]string, error)
}

func (m *mockProjectRepo) Create(ctx context.Context, p *domain.Project) error {
	if m.createFn != nil {
		return m.createFn(ctx, p)
	}
	return nil
}

func (m *mockProjectRepo) Update(ctx context.Context, p *domain.Project) error {
	if m.updateFn != nil {
		return m.updateFn(ctx, p)
	}
	return nil
}

func (m *mockProjectRepo) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, domain.ErrProjectNotFound
}

func (m *mockProjectRepo) List(ctx context.Context, userID string) ([]domain.Project, error) {
	if m.listFn != nil {
		return m.listFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockProjectRepo) Delete(ctx context.Context, id string) ([]string, error) {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, id)
	}
	return nil, domain.ErrProjectNotFound
}
