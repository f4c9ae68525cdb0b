package mapview

import (
	"sync"

	"github.com/google/uuid"

	"github.com/darukaa/siteboundary/internal/core/domain"
)

// Shape is a polygon rendered on the map.
type Shape struct {
	ID   string          `json:"id"`
	Ring []domain.LatLng `json:"ring"`
}

// Layer is the collection of shapes currently drawn on the map.
// It is the only place the current geometry of a shape lives.
type Layer struct {
	mu     sync.RWMutex
	order  []string
	shapes map[string][]domain.LatLng
}

// NewLayer returns an empty layer.
func NewLayer() *Layer {
	return &Layer{shapes: make(map[string][]domain.LatLng)}
}

// Add stores a new shape and returns its id.
func (l *Layer) Add(ring []domain.LatLng) string {
	id := uuid.NewString()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = append(l.order, id)
	l.shapes[id] = cloneRing(ring)
	return id
}

// Get returns a copy of the shape's ring.
func (l *Layer) Get(id string) ([]domain.LatLng, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	ring, ok := l.shapes[id]
	if !ok {
		return nil, false
	}
	return cloneRing(ring), true
}

// LatLngs returns the shape geometry as nested rings, outer ring first,
// the way polygon layers report it after an edit.
func (l *Layer) LatLngs(id string) ([][]domain.LatLng, bool) {
	ring, ok := l.Get(id)
	if !ok {
		return nil, false
	}
	return [][]domain.LatLng{ring}, true
}

// Replace swaps the geometry of an existing shape.
func (l *Layer) Replace(id string, ring []domain.LatLng) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.shapes[id]; !ok {
		return false
	}
	l.shapes[id] = cloneRing(ring)
	return true
}

// Remove deletes a shape. It reports whether the shape existed.
func (l *Layer) Remove(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.shapes[id]; !ok {
		return false
	}
	delete(l.shapes, id)
	for i, o := range l.order {
		if o == id {
			l.order = append(l.order[:i], l.order[i+1:]...)
			break
		}
	}
	return true
}

// Shapes returns every shape in insertion order.
func (l *Layer) Shapes() []Shape {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Shape, 0, len(l.order))
	for _, id := range l.order {
		out = append(out, Shape{ID: id, Ring: cloneRing(l.shapes[id])})
	}
	return out
}

// IDs returns shape ids in insertion order.
func (l *Layer) IDs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]string(nil), l.order...)
}

// Len returns the number of shapes.
func (l *Layer) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// Clear drops every shape.
func (l *Layer) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.order = nil
	l.shapes = make(map[string][]domain.LatLng)
}

func cloneRing(ring []domain.LatLng) []domain.LatLng {
	return append(make([]domain.LatLng, 0, len(ring)), ring...)
}
