// Package mapview is the polygon capture layer behind the site boundary
// editor. A View owns one map surface, the shapes drawn on it and the
// draw/edit/delete tools, and reports every committed change as an Event
// carrying the affected outer ring in [lat, lon] form.
//
// The package performs no network or storage I/O.
package mapview

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/darukaa/siteboundary/internal/core/domain"
	"github.com/darukaa/siteboundary/internal/pkg/geospatial"
)

// View is a mounted boundary editor.
type View struct {
	surface    *Surface
	controller *Controller
	emitter    *Emitter
	unmount    sync.Once
}

// Mount creates the map, renders the preloaded polygons (persisted form,
// one slice per shape), fits the viewport to them and installs the
// drawing tools. onChange may be nil.
func Mount(opts Options, preload [][]domain.GeoPoint, onChange func(Event)) (*View, error) {
	surface, err := Acquire(opts)
	if err != nil {
		return nil, err
	}
	mounted := false
	defer func() {
		if !mounted {
			surface.Release()
		}
	}()

	var rings [][]domain.LatLng
	for _, poly := range preload {
		ring := geospatial.NormalizePoints(geospatial.ToInteractionForm(poly))
		if len(ring) == 0 {
			continue
		}
		surface.Layer().Add(ring)
		rings = append(rings, ring)
	}
	if b, ok := geospatial.BoundsOf(rings...); ok {
		if err := surface.FitBounds(b); err != nil {
			return nil, fmt.Errorf("fit preloaded bounds: %w", err)
		}
	}

	emitter := NewEmitter()
	emitter.OnChange(onChange)

	controller, err := NewController(surface, emitter)
	if err != nil {
		emitter.Close()
		return nil, fmt.Errorf("install drawing tools: %w", err)
	}

	mounted = true
	slog.Debug("boundary editor mounted", "container", opts.ContainerID, "preloaded", len(rings))
	return &View{surface: surface, controller: controller, emitter: emitter}, nil
}

// Controller returns the interaction controller.
func (v *View) Controller() *Controller { return v.controller }

// Surface returns the map surface.
func (v *View) Surface() *Surface { return v.surface }

// Events returns the change emitter.
func (v *View) Events() *Emitter { return v.emitter }

// Shapes returns the shapes currently on the map.
func (v *View) Shapes() []Shape { return v.surface.Layer().Shapes() }

// Unmount releases the map and everything attached to it. No event is
// emitted. Calling it again does nothing.
func (v *View) Unmount() {
	v.unmount.Do(func() {
		v.controller.Detach()
		v.emitter.Close()
		v.surface.Release()
	})
}
