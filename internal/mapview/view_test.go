package mapview_test

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darukaa/siteboundary/internal/core/domain"
	"github.com/darukaa/siteboundary/internal/mapview"
)

type recorder struct {
	events []mapview.Event
}

func (r *recorder) onChange(ev mapview.Event) { r.events = append(r.events, ev) }

func mount(t *testing.T, preload [][]domain.GeoPoint) (*mapview.View, *recorder) {
	t.Helper()
	rec := &recorder{}
	v, err := mapview.Mount(mapview.DefaultOptions(), preload, rec.onChange)
	require.NoError(t, err)
	t.Cleanup(v.Unmount)
	return v, rec
}

func square() [][]domain.GeoPoint {
	return [][]domain.GeoPoint{{
		{Lat: 0, Lon: 0}, {Lat: 0, Lon: 1}, {Lat: 1, Lon: 1}, {Lat: 1, Lon: 0},
	}}
}

func TestMount_DefaultViewport(t *testing.T) {
	v, rec := mount(t, nil)

	vp := v.Surface().Viewport()
	assert.Equal(t, domain.LatLng{20.5937, 78.9629}, vp.Center)
	assert.Equal(t, 5, vp.Zoom)
	assert.Len(t, v.Surface().Tiles(), 1)
	assert.Zero(t, v.Surface().Layer().Len())
	assert.Equal(t, mapview.Idle, v.Controller().Mode())
	assert.Empty(t, rec.events)
}

func TestMount_PreloadFitsBounds(t *testing.T) {
	v, rec := mount(t, square())

	vp := v.Surface().Viewport()
	assert.Equal(t, 9, vp.Zoom)
	assert.InDelta(t, 0.5, vp.Center.Lat(), 1e-3)
	assert.InDelta(t, 0.5, vp.Center.Lon(), 1e-9)
	require.Len(t, v.Shapes(), 1)
	assert.Equal(t, []domain.LatLng{{0, 0}, {0, 1}, {1, 1}, {1, 0}}, v.Shapes()[0].Ring)
	assert.Empty(t, rec.events, "preloading must not emit")
}

func TestMount_FitIsIdempotent(t *testing.T) {
	a, _ := mount(t, square())
	b, _ := mount(t, square())
	assert.Equal(t, a.Surface().Viewport(), b.Surface().Viewport())
}

func TestMount_EmptyPreloadIsNoBoundary(t *testing.T) {
	v, _ := mount(t, [][]domain.GeoPoint{{}, nil})
	assert.Zero(t, v.Surface().Layer().Len())
	assert.Equal(t, 5, v.Surface().Viewport().Zoom)
}

func TestMount_ViewportUnavailable(t *testing.T) {
	opts := mapview.DefaultOptions()
	opts.Width = 0
	_, err := mapview.Mount(opts, square(), nil)
	assert.True(t, errors.Is(err, mapview.ErrViewportUnavailable))

	opts = mapview.DefaultOptions()
	opts.ContainerID = ""
	_, err = mapview.Mount(opts, nil, nil)
	assert.ErrorIs(t, err, mapview.ErrViewportUnavailable)
}

func TestCreate_Triangle(t *testing.T) {
	v, rec := mount(t, nil)
	c := v.Controller()

	require.NoError(t, c.StartDraw(mapview.ToolPolygon))
	assert.Equal(t, mapview.Drawing, c.Mode())
	for _, p := range []domain.LatLng{{10, 20}, {10, 21}, {11, 20}} {
		require.NoError(t, c.AddVertex(p))
	}
	id, err := c.FinishDraw()
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.Equal(t, mapview.Idle, c.Mode())

	require.Len(t, rec.events, 1)
	assert.Equal(t, domain.BoundaryCreated, rec.events[0].Kind)
	assert.Equal(t, []domain.LatLng{{10, 20}, {10, 21}, {11, 20}}, rec.events[0].Vertices)
	assert.Equal(t, 1, v.Surface().Layer().Len())
}

func TestCreate_SecondShapeKeepsFirst(t *testing.T) {
	v, rec := mount(t, square())
	c := v.Controller()

	require.NoError(t, c.StartDraw(mapview.ToolPolygon))
	for _, p := range []domain.LatLng{{5, 5}, {5, 6}, {6, 6}} {
		require.NoError(t, c.AddVertex(p))
	}
	_, err := c.FinishDraw()
	require.NoError(t, err)

	assert.Equal(t, 2, v.Surface().Layer().Len())
	require.Len(t, rec.events, 1)
}

func TestCreate_TooFewVerticesIsCancelled(t *testing.T) {
	v, rec := mount(t, nil)
	c := v.Controller()

	require.NoError(t, c.StartDraw(mapview.ToolPolygon))
	require.NoError(t, c.AddVertex(domain.LatLng{1, 1}))
	require.NoError(t, c.AddVertex(domain.LatLng{1, 2}))
	id, err := c.FinishDraw()
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Equal(t, mapview.Idle, c.Mode())
	assert.Empty(t, rec.events)
	assert.Zero(t, v.Surface().Layer().Len())
}

func TestCreate_CancelDraw(t *testing.T) {
	v, rec := mount(t, nil)
	c := v.Controller()

	require.NoError(t, c.StartDraw(mapview.ToolPolygon))
	require.NoError(t, c.AddVertex(domain.LatLng{1, 1}))
	require.NoError(t, c.CancelDraw())
	assert.Equal(t, mapview.Idle, c.Mode())
	assert.Empty(t, c.Draft())
	assert.Empty(t, rec.events)
}

func TestCreate_Rectangle(t *testing.T) {
	v, rec := mount(t, nil)
	c := v.Controller()

	require.NoError(t, c.StartDraw(mapview.ToolRectangle))
	require.NoError(t, c.AddVertex(domain.LatLng{2, 3}))
	require.NoError(t, c.AddVertex(domain.LatLng{5, 1}))
	_, err := c.FinishDraw()
	require.NoError(t, err)

	require.Len(t, rec.events, 1)
	assert.Equal(t, []domain.LatLng{{2, 1}, {5, 1}, {5, 3}, {2, 3}}, rec.events[0].Vertices)
}

func TestCreate_DegenerateRectangle(t *testing.T) {
	v, rec := mount(t, nil)
	c := v.Controller()

	require.NoError(t, c.StartDraw(mapview.ToolRectangle))
	require.NoError(t, c.AddVertex(domain.LatLng{2, 3}))
	require.NoError(t, c.AddVertex(domain.LatLng{2, 7}))
	_, err := c.FinishDraw()
	require.NoError(t, err)
	assert.Empty(t, rec.events)
}

func TestCommitCreated_PassesThroughSmallRings(t *testing.T) {
	v, rec := mount(t, nil)
	c := v.Controller()

	payload := []any{[]any{[]any{1.0, 2.0}, "junk", map[string]any{"lat": 3.0, "lng": 4.0}}}
	id, err := c.CommitCreated(payload)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	require.Len(t, rec.events, 1)
	assert.Equal(t, []domain.LatLng{{1, 2}, {3, 4}}, rec.events[0].Vertices)
}

func TestCommitCreated_NothingUsable(t *testing.T) {
	v, rec := mount(t, nil)
	id, err := v.Controller().CommitCreated([]any{"x", 1})
	require.NoError(t, err)
	assert.Empty(t, id)
	assert.Empty(t, rec.events)
}

func TestEdit_MoveVertex(t *testing.T) {
	v, rec := mount(t, square())
	c := v.Controller()
	id := v.Shapes()[0].ID

	require.NoError(t, c.StartEdit())
	require.NoError(t, c.MoveVertex(id, 0, domain.LatLng{0, 0.5}))
	require.NoError(t, c.CommitEdit())

	require.Len(t, rec.events, 1)
	assert.Equal(t, domain.BoundaryEdited, rec.events[0].Kind)
	assert.Equal(t, []domain.LatLng{{0, 0.5}, {0, 1}, {1, 1}, {1, 0}}, rec.events[0].Vertices)
	assert.Equal(t, mapview.Idle, c.Mode())
}

func TestEdit_MultipleShapesEmitOncePerShape(t *testing.T) {
	preload := append(square(), []domain.GeoPoint{{Lat: 5, Lon: 5}, {Lat: 5, Lon: 6}, {Lat: 6, Lon: 6}})
	v, rec := mount(t, preload)
	c := v.Controller()
	shapes := v.Shapes()

	require.NoError(t, c.StartEdit())
	require.NoError(t, c.MoveVertex(shapes[1].ID, 2, domain.LatLng{7, 7}))
	require.NoError(t, c.MoveVertex(shapes[0].ID, 1, domain.LatLng{0, 2}))
	require.NoError(t, c.CommitEdit())

	require.Len(t, rec.events, 2)
	assert.Equal(t, []domain.LatLng{{0, 0}, {0, 2}, {1, 1}, {1, 0}}, rec.events[0].Vertices)
	assert.Equal(t, []domain.LatLng{{5, 5}, {5, 6}, {7, 7}}, rec.events[1].Vertices)
}

func TestEdit_NoChangesNoEvent(t *testing.T) {
	v, rec := mount(t, square())
	c := v.Controller()
	require.NoError(t, c.StartEdit())
	require.NoError(t, c.CommitEdit())
	assert.Empty(t, rec.events)
}

func TestEdit_CancelRestoresGeometry(t *testing.T) {
	v, rec := mount(t, square())
	c := v.Controller()
	id := v.Shapes()[0].ID

	require.NoError(t, c.StartEdit())
	require.NoError(t, c.MoveVertex(id, 2, domain.LatLng{9, 9}))
	require.NoError(t, c.CancelEdit())

	ring, ok := v.Surface().Layer().Get(id)
	require.True(t, ok)
	assert.Equal(t, []domain.LatLng{{0, 0}, {0, 1}, {1, 1}, {1, 0}}, ring)
	assert.Empty(t, rec.events)
}

func TestEdit_BadTargets(t *testing.T) {
	v, _ := mount(t, square())
	c := v.Controller()
	id := v.Shapes()[0].ID

	require.NoError(t, c.StartEdit())
	assert.ErrorIs(t, c.MoveVertex("nope", 0, domain.LatLng{1, 1}), mapview.ErrShapeNotFound)
	assert.ErrorIs(t, c.MoveVertex(id, 4, domain.LatLng{1, 1}), mapview.ErrVertexOutOfRange)
	assert.Equal(t, mapview.Editing, c.Mode())
}

func TestEditPayload_LenientExtraction(t *testing.T) {
	v, rec := mount(t, square())
	c := v.Controller()
	id := v.Shapes()[0].ID

	err := c.CommitEditPayload(map[string]any{
		id: []any{[]any{0.0, 0.5}, map[string]any{"lat": "north"}},
	})
	require.NoError(t, err)

	require.Len(t, rec.events, 1)
	assert.Equal(t, []domain.LatLng{{0, 0.5}}, rec.events[0].Vertices)
}

func TestEditPayload_MalformedFirstVertex(t *testing.T) {
	v, rec := mount(t, square())
	id := v.Shapes()[0].ID

	var layers map[string]any
	require.NoError(t, json.Unmarshal([]byte(`{"`+id+`": [[null, 2], [0, 0.5]]}`), &layers))
	require.NoError(t, v.Controller().CommitEditPayload(layers))

	require.Len(t, rec.events, 1)
	assert.Equal(t, domain.BoundaryEdited, rec.events[0].Kind)
	assert.Equal(t, []domain.LatLng{{0, 0.5}}, rec.events[0].Vertices)
}

func TestEditPayload_NestedRingsAndSkips(t *testing.T) {
	v, rec := mount(t, square())
	c := v.Controller()
	id := v.Shapes()[0].ID

	require.NoError(t, c.StartEdit())
	err := c.CommitEditPayload(map[string]any{
		id: []any{
			[]any{[]any{0.0, 0.5}, []any{0.0, 1.0}, []any{1.0, 1.0}, []any{1.0, 0.0}},
			[]any{[]any{0.2, 0.2}, []any{0.3, 0.3}, []any{0.2, 0.3}},
		},
		"unknown-shape": []any{[]any{1.0, 1.0}},
	})
	require.NoError(t, err)

	require.Len(t, rec.events, 1)
	assert.Equal(t, []domain.LatLng{{0, 0.5}, {0, 1}, {1, 1}, {1, 0}}, rec.events[0].Vertices)
	assert.Equal(t, mapview.Idle, c.Mode())
}

func TestEditPayload_EmptyGeometryIsFiltered(t *testing.T) {
	v, rec := mount(t, square())
	id := v.Shapes()[0].ID

	require.NoError(t, v.Controller().CommitEditPayload(map[string]any{id: []any{"bad", 3}}))
	assert.Empty(t, rec.events)
	ring, _ := v.Surface().Layer().Get(id)
	assert.Len(t, ring, 4, "geometry without vertices must not replace the shape")
}

func TestDelete_OnlyShape(t *testing.T) {
	v, rec := mount(t, square())
	c := v.Controller()

	require.NoError(t, c.StartDelete())
	require.NoError(t, c.MarkDeleted(v.Shapes()[0].ID))
	require.NoError(t, c.CommitDelete())

	require.Len(t, rec.events, 1)
	assert.Equal(t, domain.BoundaryCleared, rec.events[0].Kind)
	assert.NotNil(t, rec.events[0].Vertices)
	assert.Empty(t, rec.events[0].Vertices)
	assert.Zero(t, v.Surface().Layer().Len())
}

func TestDelete_ManyShapesEmitOnce(t *testing.T) {
	preload := append(square(), []domain.GeoPoint{{Lat: 5, Lon: 5}, {Lat: 5, Lon: 6}, {Lat: 6, Lon: 6}})
	v, rec := mount(t, preload)

	ids := []string{v.Shapes()[0].ID, v.Shapes()[1].ID}
	require.NoError(t, v.Controller().CommitDeletePayload(ids))

	require.Len(t, rec.events, 1)
	assert.Empty(t, rec.events[0].Vertices)
}

func TestDelete_CancelKeepsShapes(t *testing.T) {
	v, rec := mount(t, square())
	c := v.Controller()

	require.NoError(t, c.StartDelete())
	require.NoError(t, c.MarkDeleted(v.Shapes()[0].ID))
	require.NoError(t, c.CancelDelete())

	assert.Equal(t, 1, v.Surface().Layer().Len())
	assert.Empty(t, rec.events)
}

func TestDelete_NothingRemoved(t *testing.T) {
	v, rec := mount(t, square())
	require.NoError(t, v.Controller().CommitDeletePayload([]string{"missing"}))
	assert.Empty(t, rec.events)
}

func TestTransitions_Invalid(t *testing.T) {
	v, _ := mount(t, square())
	c := v.Controller()

	assert.ErrorIs(t, c.AddVertex(domain.LatLng{1, 1}), mapview.ErrInvalidTransition)
	_, err := c.FinishDraw()
	assert.ErrorIs(t, err, mapview.ErrInvalidTransition)
	assert.ErrorIs(t, c.CommitEdit(), mapview.ErrInvalidTransition)
	assert.ErrorIs(t, c.CommitDelete(), mapview.ErrInvalidTransition)

	require.NoError(t, c.StartEdit())
	assert.ErrorIs(t, c.StartDraw(mapview.ToolPolygon), mapview.ErrInvalidTransition)
	assert.ErrorIs(t, c.StartDelete(), mapview.ErrInvalidTransition)
	assert.ErrorIs(t, c.CommitDeletePayload(nil), mapview.ErrInvalidTransition)
	assert.Equal(t, mapview.Editing, c.Mode())

	require.NoError(t, c.Cancel())
	assert.Equal(t, mapview.Idle, c.Mode())
	assert.ErrorIs(t, c.StartDraw("circle"), mapview.ErrInvalidTransition)
}

func TestLifecycle_UnmountBeforeInteraction(t *testing.T) {
	rec := &recorder{}
	v, err := mapview.Mount(mapview.DefaultOptions(), square(), rec.onChange)
	require.NoError(t, err)
	assert.Equal(t, 3, v.Surface().ListenerCount())

	v.Unmount()
	v.Unmount()

	assert.True(t, v.Surface().Released())
	assert.Zero(t, v.Surface().ListenerCount())
	assert.Zero(t, v.Surface().Layer().Len())
	assert.Empty(t, v.Surface().Tiles())
	assert.Empty(t, rec.events)
}

func TestLifecycle_NoEventsAfterUnmount(t *testing.T) {
	rec := &recorder{}
	v, err := mapview.Mount(mapview.DefaultOptions(), nil, rec.onChange)
	require.NoError(t, err)
	ch, _ := v.Events().Subscribe(4)

	c := v.Controller()
	require.NoError(t, c.StartDraw(mapview.ToolPolygon))
	require.NoError(t, c.AddVertex(domain.LatLng{1, 1}))
	require.NoError(t, c.AddVertex(domain.LatLng{1, 2}))
	require.NoError(t, c.AddVertex(domain.LatLng{2, 2}))
	v.Unmount()

	_, err = c.FinishDraw()
	require.Error(t, err, "detached controller is back to idle")
	assert.Empty(t, rec.events)

	_, open := <-ch
	assert.False(t, open)
}

func TestLifecycle_GesturesFailAfterUnmount(t *testing.T) {
	rec := &recorder{}
	v, err := mapview.Mount(mapview.DefaultOptions(), square(), rec.onChange)
	require.NoError(t, err)
	c := v.Controller()
	id := v.Shapes()[0].ID
	v.Unmount()

	assert.ErrorIs(t, c.StartDraw(mapview.ToolPolygon), mapview.ErrReleased)
	assert.ErrorIs(t, c.AddVertex(domain.LatLng{1, 1}), mapview.ErrReleased)
	_, err = c.FinishDraw()
	assert.ErrorIs(t, err, mapview.ErrReleased)
	_, err = c.CommitCreated([]any{[]any{1.0, 1.0}, []any{1.0, 2.0}, []any{2.0, 2.0}})
	assert.ErrorIs(t, err, mapview.ErrReleased)
	assert.ErrorIs(t, c.StartEdit(), mapview.ErrReleased)
	assert.ErrorIs(t, c.CommitEditPayload(map[string]any{id: []any{[]any{0.0, 0.5}}}), mapview.ErrReleased)
	assert.ErrorIs(t, c.StartDelete(), mapview.ErrReleased)
	assert.ErrorIs(t, c.CommitDeletePayload([]string{id}), mapview.ErrReleased)
	assert.ErrorIs(t, c.Cancel(), mapview.ErrReleased)

	assert.Zero(t, v.Surface().Layer().Len())
	assert.Empty(t, rec.events)
}

func TestCancel_RestoresEdit(t *testing.T) {
	v, rec := mount(t, square())
	c := v.Controller()
	id := v.Shapes()[0].ID

	require.NoError(t, c.StartEdit())
	require.NoError(t, c.MoveVertex(id, 0, domain.LatLng{5, 5}))
	require.NoError(t, c.Cancel())

	ring, _ := v.Surface().Layer().Get(id)
	assert.Equal(t, domain.LatLng{0, 0}, ring[0])
	assert.Equal(t, mapview.Idle, c.Mode())
	assert.Empty(t, rec.events)
}

func TestCancel_ConcurrentWithGestures(t *testing.T) {
	v, _ := mount(t, nil)
	c := v.Controller()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if err := c.StartDraw(mapview.ToolPolygon); err != nil {
				assert.ErrorIs(t, err, mapview.ErrInvalidTransition)
			}
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, c.Cancel())
		}()
	}
	wg.Wait()

	require.NoError(t, c.Cancel())
	assert.Equal(t, mapview.Idle, c.Mode())
}
