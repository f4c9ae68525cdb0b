package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/darukaa/siteboundary/internal/core/domain"
	"github.com/darukaa/siteboundary/internal/core/ports"
	"github.com/darukaa/siteboundary/internal/mapview"
	"github.com/darukaa/siteboundary/internal/pkg/geospatial"
	"github.com/darukaa/siteboundary/internal/pkg/metrics"
	"github.com/darukaa/siteboundary/internal/pkg/telemetry"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrTooManySessions = errors.New("too many open sessions")
)

const publishTimeout = 5 * time.Second

// BoundaryOptions configures the boundary editor sessions.
type BoundaryOptions struct {
	Map         mapview.Options
	DraftTTL    int // seconds
	MaxSessions int
}

// ViewportRequest sizes the map container of a new session. Zero values
// keep the configured size.
type ViewportRequest struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// DraftSnapshot is the latest boundary produced by a session.
type DraftSnapshot struct {
	SessionID string                   `json:"session_id"`
	SiteID    string                   `json:"site_id"`
	Kind      domain.BoundaryEventKind `json:"kind,omitempty"`
	Changed   bool                     `json:"changed"`
	Vertices  []domain.GeoPoint        `json:"vertices"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// BoundaryService runs boundary edit sessions: one mounted editor per
// session, preloaded with the site's boundary. Every change is kept as
// the session draft, cached, published and counted; Save writes the
// draft back to the site.
type BoundaryService struct {
	sites     *SiteService
	cache     ports.CacheService
	publisher ports.EventPublisher
	opts      BoundaryOptions
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewBoundaryService creates a new BoundaryService. cache and publisher may be nil.
func NewBoundaryService(sites *SiteService, cache ports.CacheService, publisher ports.EventPublisher, opts BoundaryOptions) *BoundaryService {
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = 1000
	}
	if opts.DraftTTL <= 0 {
		opts.DraftTTL = 3600
	}
	return &BoundaryService{
		sites:     sites,
		cache:     cache,
		publisher: publisher,
		opts:      opts,
		now:       time.Now,
		sessions:  make(map[string]*Session),
	}
}

func draftCacheKey(sessionID string) string { return "boundary:draft:" + sessionID }

// Open mounts an editor for the site and registers the session.
func (s *BoundaryService) Open(ctx context.Context, siteID string, vp ViewportRequest) (*Session, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSessionOpen)
	defer span.End()
	span.SetAttributes(attribute.String("site.id", siteID))

	if s.Count() >= s.opts.MaxSessions {
		return nil, ErrTooManySessions
	}

	site, err := s.sites.GetByID(ctx, siteID)
	if err != nil {
		return nil, err
	}

	opts := s.opts.Map
	opts.ContainerID = "site-" + site.ID
	if vp.Width > 0 {
		opts.Width = vp.Width
	}
	if vp.Height > 0 {
		opts.Height = vp.Height
	}

	sess := &Session{
		ID:       uuid.NewString(),
		SiteID:   site.ID,
		OpenedAt: s.now().UTC(),
		draft:    geospatial.ToInteractionForm(site.Geolocation),
		wake:     make(chan struct{}, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	var preload [][]domain.GeoPoint
	if len(site.Geolocation) > 0 {
		preload = append(preload, site.Geolocation)
	}

	view, err := mapview.Mount(opts, preload, sess.record)
	if err != nil {
		metrics.SessionMountFailures.Inc()
		return nil, fmt.Errorf("mount boundary editor: %w", err)
	}
	sess.view = view
	go s.relay(sess)

	s.mu.Lock()
	if len(s.sessions) >= s.opts.MaxSessions {
		s.mu.Unlock()
		sess.close()
		return nil, ErrTooManySessions
	}
	s.sessions[sess.ID] = sess
	s.mu.Unlock()

	metrics.SessionsOpened.Inc()
	metrics.ActiveSessions.Inc()
	span.SetAttributes(attribute.String("session.id", sess.ID))
	slog.Info("boundary session opened",
		"session_id", sess.ID,
		"site_id", site.ID,
		"preloaded_vertices", len(site.Geolocation),
	)
	return sess, nil
}

// Get returns an open session.
func (s *BoundaryService) Get(id string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// Count returns the number of open sessions.
func (s *BoundaryService) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Draft returns the latest boundary of a session. Sessions owned by
// another instance are served from the cache.
func (s *BoundaryService) Draft(ctx context.Context, sessionID string) (*DraftSnapshot, error) {
	if sess, err := s.Get(sessionID); err == nil {
		snap := sess.Snapshot()
		return &snap, nil
	}
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, draftCacheKey(sessionID)); err == nil {
			var snap DraftSnapshot
			if err := json.Unmarshal(data, &snap); err == nil {
				metrics.CacheHits.WithLabelValues("draft").Inc()
				return &snap, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("draft").Inc()
	}
	return nil, ErrSessionNotFound
}

// Save writes the session draft to its site and returns the updated site.
func (s *BoundaryService) Save(ctx context.Context, sessionID, userID string) (*domain.Site, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSessionSave)
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	sess, err := s.Get(sessionID)
	if err != nil {
		return nil, err
	}
	snap := sess.Snapshot()

	if err := s.sites.SetBoundary(ctx, sess.SiteID, snap.Vertices, userID); err != nil {
		metrics.BoundarySaves.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("save boundary: %w", err)
	}
	metrics.BoundarySaves.WithLabelValues("ok").Inc()
	slog.Info("boundary saved",
		"session_id", sess.ID,
		"site_id", sess.SiteID,
		"vertices", len(snap.Vertices),
	)
	return s.sites.GetByID(ctx, sess.SiteID)
}

// Close unmounts the session's editor and forgets it.
func (s *BoundaryService) Close(ctx context.Context, sessionID string) error {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSessionClose)
	defer span.End()
	span.SetAttributes(attribute.String("session.id", sessionID))

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}

	sess.close()
	metrics.ActiveSessions.Dec()
	if n := sess.view.Events().Dropped(); n > 0 {
		metrics.EventsDropped.Add(float64(n))
		slog.Warn("session subscribers missed boundary events", "session_id", sessionID, "dropped", n)
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, draftCacheKey(sessionID))
	}
	slog.Info("boundary session closed", "session_id", sessionID, "site_id", sess.SiteID)
	return nil
}

// CloseAll closes every open session.
func (s *BoundaryService) CloseAll(ctx context.Context) {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		_ = s.Close(ctx, id)
	}
}

// SiteDeleted closes every local session editing the site and announces
// the deletion so editors on other instances can stop.
func (s *BoundaryService) SiteDeleted(ctx context.Context, siteID string) {
	s.mu.Lock()
	var ids []string
	for id, sess := range s.sessions {
		if sess.SiteID == siteID {
			ids = append(ids, id)
		}
	}
	s.mu.Unlock()

	for _, id := range ids {
		_ = s.Close(ctx, id)
	}
	if s.publisher != nil {
		if err := s.publisher.PublishSiteDeleted(ctx, siteID); err != nil {
			metrics.EventPublishErrors.Inc()
			slog.Warn("publish site deletion failed", "site_id", siteID, "error", err)
		}
	}
}

// relay forwards every event the session records, in order, until the
// session is closed. Events still queued at close are forwarded first.
func (s *BoundaryService) relay(sess *Session) {
	defer close(sess.done)
	for {
		select {
		case <-sess.wake:
			for _, ev := range sess.takePending() {
				s.handleEvent(sess, ev)
			}
		case <-sess.stop:
			for _, ev := range sess.takePending() {
				s.handleEvent(sess, ev)
			}
			return
		}
	}
}

func (s *BoundaryService) handleEvent(sess *Session, ev mapview.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSessionEvent)
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", sess.ID),
		attribute.String("boundary.kind", string(ev.Kind)),
		attribute.Int("boundary.vertices", len(ev.Vertices)),
	)

	metrics.BoundaryEvents.WithLabelValues(string(ev.Kind)).Inc()
	metrics.BoundaryVertices.Observe(float64(len(ev.Vertices)))

	if s.cache != nil {
		snap := DraftSnapshot{
			SessionID: sess.ID,
			SiteID:    sess.SiteID,
			Kind:      ev.Kind,
			Changed:   true,
			Vertices:  geospatial.ToPersistedForm(ev.Vertices),
			UpdatedAt: s.now().UTC(),
		}
		if data, err := json.Marshal(snap); err == nil {
			_ = s.cache.Set(ctx, draftCacheKey(sess.ID), data, s.opts.DraftTTL)
		}
	}

	if s.publisher != nil {
		out := &domain.BoundaryEvent{
			SiteID:     sess.SiteID,
			SessionID:  sess.ID,
			Kind:       ev.Kind,
			Vertices:   ev.Vertices,
			OccurredAt: s.now().UTC(),
		}
		if err := s.publisher.PublishBoundaryEvent(ctx, out); err != nil {
			metrics.EventPublishErrors.Inc()
			slog.Warn("publish boundary event failed",
				"session_id", sess.ID,
				"site_id", sess.SiteID,
				"kind", ev.Kind,
				"error", err,
			)
		}
	}

	slog.Debug("boundary event",
		"session_id", sess.ID,
		"kind", ev.Kind,
		"vertices", len(ev.Vertices),
	)
}

// Session is one open boundary editor.
type Session struct {
	ID       string
	SiteID   string
	OpenedAt time.Time

	view *mapview.View
	wake chan struct{}
	stop chan struct{}
	done chan struct{}

	mu        sync.Mutex
	draft     []domain.LatLng
	kind      domain.BoundaryEventKind
	changed   bool
	events    int
	updatedAt time.Time
	pending   []mapview.Event
}

// SessionInfo describes a session for API clients.
type SessionInfo struct {
	ID       string              `json:"id"`
	SiteID   string              `json:"site_id"`
	OpenedAt time.Time           `json:"opened_at"`
	Mode     mapview.Mode        `json:"mode"`
	Viewport geospatial.Viewport `json:"viewport"`
	Tiles    []mapview.TileLayer `json:"tiles"`
	Shapes   []mapview.Shape     `json:"shapes"`
	Events   int                 `json:"events"`
	Draft    DraftSnapshot       `json:"draft"`
}

// Controller returns the session's interaction controller.
func (s *Session) Controller() *mapview.Controller { return s.view.Controller() }

// Subscribe streams the session's boundary events. See mapview.Emitter.Subscribe.
func (s *Session) Subscribe(buffer int) (<-chan mapview.Event, func()) {
	return s.view.Events().Subscribe(buffer)
}

// Snapshot returns the current draft in persisted form.
func (s *Session) Snapshot() DraftSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	updated := s.updatedAt
	if updated.IsZero() {
		updated = s.OpenedAt
	}
	return DraftSnapshot{
		SessionID: s.ID,
		SiteID:    s.SiteID,
		Kind:      s.kind,
		Changed:   s.changed,
		Vertices:  geospatial.ToPersistedForm(s.draft),
		UpdatedAt: updated,
	}
}

// Info describes the session.
func (s *Session) Info() SessionInfo {
	snap := s.Snapshot()
	s.mu.Lock()
	events := s.events
	s.mu.Unlock()

	shapes := s.view.Shapes()
	if shapes == nil {
		shapes = []mapview.Shape{}
	}
	return SessionInfo{
		ID:       s.ID,
		SiteID:   s.SiteID,
		OpenedAt: s.OpenedAt,
		Mode:     s.view.Controller().Mode(),
		Viewport: s.view.Surface().Viewport(),
		Tiles:    s.view.Surface().Tiles(),
		Shapes:   shapes,
		Events:   events,
		Draft:    snap,
	}
}

// record keeps the latest boundary and queues the event for the relay.
// It runs inside the editor's commit, so it only touches memory.
func (s *Session) record(ev mapview.Event) {
	s.mu.Lock()
	s.draft = append([]domain.LatLng{}, ev.Vertices...)
	s.kind = ev.Kind
	s.changed = true
	s.events++
	s.updatedAt = time.Now().UTC()
	s.pending = append(s.pending, ev)
	s.mu.Unlock()

	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *Session) takePending() []mapview.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.pending
	s.pending = nil
	return out
}

func (s *Session) close() {
	s.view.Unmount()
	close(s.stop)
	<-s.done
}
