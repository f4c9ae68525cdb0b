package mapview_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darukaa/siteboundary/internal/core/domain"
	"github.com/darukaa/siteboundary/internal/mapview"
)

func TestLayer_Lifecycle(t *testing.T) {
	l := mapview.NewLayer()
	a := l.Add([]domain.LatLng{{0, 0}, {0, 1}, {1, 1}})
	b := l.Add([]domain.LatLng{{5, 5}, {5, 6}, {6, 6}})
	require.NotEqual(t, a, b)
	assert.Equal(t, []string{a, b}, l.IDs())

	assert.True(t, l.Replace(b, []domain.LatLng{{7, 7}}))
	assert.False(t, l.Replace("missing", nil))

	rings, ok := l.LatLngs(b)
	require.True(t, ok)
	assert.Equal(t, [][]domain.LatLng{{{7, 7}}}, rings)

	assert.True(t, l.Remove(a))
	assert.False(t, l.Remove(a))
	assert.Equal(t, 1, l.Len())

	l.Clear()
	assert.Zero(t, l.Len())
	assert.Empty(t, l.Shapes())
}

func TestLayer_ReturnsCopies(t *testing.T) {
	l := mapview.NewLayer()
	src := []domain.LatLng{{0, 0}, {0, 1}, {1, 1}}
	id := l.Add(src)
	src[0] = domain.LatLng{9, 9}

	ring, _ := l.Get(id)
	assert.Equal(t, domain.LatLng{0, 0}, ring[0])
	ring[1] = domain.LatLng{8, 8}

	again, _ := l.Get(id)
	assert.Equal(t, domain.LatLng{0, 1}, again[1])
}

func TestSurface_ListenersAndRelease(t *testing.T) {
	s, err := mapview.Acquire(mapview.DefaultOptions())
	require.NoError(t, err)

	var seen []any
	id, err := s.On(mapview.EventViewChanged, func(p any) { seen = append(seen, p) })
	require.NoError(t, err)

	require.NoError(t, s.SetView(domain.LatLng{1, 2}, 40))
	require.Len(t, seen, 1)
	assert.Equal(t, 18, s.Viewport().Zoom, "zoom is clamped to MaxZoom")

	s.Off(mapview.EventViewChanged, id)
	require.NoError(t, s.SetView(domain.LatLng{1, 2}, 3))
	assert.Len(t, seen, 1)

	s.Release()
	assert.ErrorIs(t, s.SetView(domain.LatLng{0, 0}, 1), mapview.ErrReleased)
	_, err = s.On(mapview.EventDrawCreated, func(any) {})
	assert.ErrorIs(t, err, mapview.ErrReleased)
}
