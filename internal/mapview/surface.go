package mapview

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/darukaa/siteboundary/internal/core/domain"
	"github.com/darukaa/siteboundary/internal/pkg/geospatial"
)

// MapEvent names an event fired on the map surface.
type MapEvent string

const (
	EventDrawCreated MapEvent = "draw:created"
	EventDrawEdited  MapEvent = "draw:edited"
	EventDrawDeleted MapEvent = "draw:deleted"
	EventViewChanged MapEvent = "viewchanged"
)

// Listener handles a map event. The payload type depends on the event.
type Listener func(payload any)

// TileLayer is the base layer drawn under the shapes.
type TileLayer struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

// Options configures a map surface.
type Options struct {
	ContainerID string
	Width       int
	Height      int
	Center      domain.LatLng
	Zoom        int
	MinZoom     int
	MaxZoom     int
	Padding     int
	Tiles       TileLayer
}

// DefaultOptions returns the viewport used when nothing is preloaded.
func DefaultOptions() Options {
	return Options{
		ContainerID: "map",
		Width:       800,
		Height:      600,
		Center:      domain.LatLng{20.5937, 78.9629},
		Zoom:        5,
		MinZoom:     0,
		MaxZoom:     18,
		Tiles: TileLayer{
			URL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			Attribution: "© OpenStreetMap contributors",
		},
	}
}

// Surface owns one map viewport: its center and zoom, the base tile layer,
// the drawn-item layer and every listener attached to the map.
// Acquire it with Acquire and always Release it.
type Surface struct {
	mu        sync.Mutex
	opts      Options
	viewport  geospatial.Viewport
	tiles     []TileLayer
	layer     *Layer
	listeners map[MapEvent]map[int]Listener
	nextID    int
	released  bool
}

// Acquire creates a map bound to the container described by opts.
func Acquire(opts Options) (*Surface, error) {
	if opts.ContainerID == "" {
		return nil, fmt.Errorf("%w: container id is empty", ErrViewportUnavailable)
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("%w: container %q has size %dx%d", ErrViewportUnavailable, opts.ContainerID, opts.Width, opts.Height)
	}
	if opts.MinZoom < 0 || opts.MaxZoom < opts.MinZoom {
		return nil, fmt.Errorf("%w: zoom range [%d, %d]", ErrViewportUnavailable, opts.MinZoom, opts.MaxZoom)
	}
	if opts.Tiles.URL == "" {
		return nil, fmt.Errorf("%w: no tile layer url", ErrViewportUnavailable)
	}

	s := &Surface{
		opts:      opts,
		viewport:  geospatial.Viewport{Center: opts.Center, Zoom: clampZoom(opts.Zoom, opts)},
		tiles:     []TileLayer{opts.Tiles},
		layer:     NewLayer(),
		listeners: make(map[MapEvent]map[int]Listener),
	}
	slog.Debug("map surface acquired", "container", opts.ContainerID, "zoom", s.viewport.Zoom)
	return s, nil
}

// Layer returns the drawn-item layer attached to the map.
func (s *Surface) Layer() *Layer { return s.layer }

// Tiles returns the tile layers attached to the map.
func (s *Surface) Tiles() []TileLayer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]TileLayer(nil), s.tiles...)
}

// Viewport returns the current center and zoom.
func (s *Surface) Viewport() geospatial.Viewport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewport
}

// SetView moves the map to the given center and zoom.
func (s *Surface) SetView(center domain.LatLng, zoom int) error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return ErrReleased
	}
	s.viewport = geospatial.Viewport{Center: center, Zoom: clampZoom(zoom, s.opts)}
	vp := s.viewport
	s.mu.Unlock()

	s.Fire(EventViewChanged, vp)
	return nil
}

// FitBounds adjusts center and zoom so that b is entirely visible.
func (s *Surface) FitBounds(b domain.Bounds) error {
	vp := geospatial.Fit(b, geospatial.FitOptions{
		Width:   s.opts.Width,
		Height:  s.opts.Height,
		Padding: s.opts.Padding,
		MinZoom: s.opts.MinZoom,
		MaxZoom: s.opts.MaxZoom,
	})
	return s.SetView(vp.Center, vp.Zoom)
}

// On registers a listener and returns a handle for Off.
func (s *Surface) On(ev MapEvent, fn Listener) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return 0, ErrReleased
	}
	s.nextID++
	if s.listeners[ev] == nil {
		s.listeners[ev] = make(map[int]Listener)
	}
	s.listeners[ev][s.nextID] = fn
	return s.nextID, nil
}

// Off removes a listener registered with On.
func (s *Surface) Off(ev MapEvent, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.listeners[ev], id)
	if len(s.listeners[ev]) == 0 {
		delete(s.listeners, ev)
	}
}

// Fire calls every listener of ev. Listeners run outside the surface lock
// in registration order.
func (s *Surface) Fire(ev MapEvent, payload any) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	ids := make([]int, 0, len(s.listeners[ev]))
	for id := range s.listeners[ev] {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]Listener, 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.listeners[ev][id])
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(payload)
	}
}

// ListenerCount returns how many listeners are attached.
func (s *Surface) ListenerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, m := range s.listeners {
		n += len(m)
	}
	return n
}

// Release tears the map down: listeners, shapes and tile layers.
// It is safe to call more than once.
func (s *Surface) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	s.listeners = make(map[MapEvent]map[int]Listener)
	s.tiles = nil
	s.layer.Clear()
	slog.Debug("map surface released", "container", s.opts.ContainerID)
}

// Released reports whether Release was called.
func (s *Surface) Released() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.released
}

func clampZoom(z int, opts Options) int {
	if z < opts.MinZoom {
		return opts.MinZoom
	}
	if z > opts.MaxZoom {
		return opts.MaxZoom
	}
	return z
}
