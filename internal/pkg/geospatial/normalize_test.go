package geospatial_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darukaa/siteboundary/internal/core/domain"
	"github.com/darukaa/siteboundary/internal/pkg/geospatial"
)

func TestRoundTrip_PreservesOrder(t *testing.T) {
	ring := []domain.LatLng{{10, 20}, {10, 21}, {11, 20}, {10.5, 19.5}}

	persisted := geospatial.ToPersistedForm(ring)
	require.Len(t, persisted, 4)
	assert.Equal(t, domain.GeoPoint{Lat: 10, Lon: 20}, persisted[0])
	assert.Equal(t, domain.GeoPoint{Lat: 10.5, Lon: 19.5}, persisted[3])

	assert.Equal(t, ring, geospatial.ToInteractionForm(persisted))
}

func TestRoundTrip_PersistedFirst(t *testing.T) {
	pts := []domain.GeoPoint{{Lat: -33.86, Lon: 151.2}, {Lat: -33.87, Lon: 151.21}, {Lat: -33.88, Lon: 151.19}}
	assert.Equal(t, pts, geospatial.ToPersistedForm(geospatial.ToInteractionForm(pts)))
}

func TestConversion_NeverCloses(t *testing.T) {
	ring := []domain.LatLng{{0, 0}, {0, 1}, {1, 1}}
	assert.Len(t, geospatial.ToPersistedForm(ring), 3)
	assert.Len(t, geospatial.ToInteractionForm(geospatial.ToPersistedForm(ring)), 3)
}

func TestConversion_Empty(t *testing.T) {
	assert.Empty(t, geospatial.ToInteractionForm(nil))
	assert.Empty(t, geospatial.ToPersistedForm(nil))
	assert.NotNil(t, geospatial.NormalizePoints(nil))
}

func TestNormalizePoints_Heterogeneous(t *testing.T) {
	in := []any{
		[]any{1.0, 2.0},
		map[string]any{"lat": 3.0, "lon": 4.0},
		map[string]any{"lat": 5.0, "lng": 6.0},
		map[string]any{"lat": 7.0},
		[]any{1.0},
		"garbage",
		[]any{"a", 2.0},
		nil,
		[]any{math.NaN(), 1.0},
		domain.GeoPoint{Lat: 9, Lon: 10},
	}
	got := geospatial.NormalizePoints(in)
	assert.Equal(t, []domain.LatLng{{1, 2}, {3, 4}, {5, 6}, {9, 10}}, got)
}

func TestNormalizePoints_DecodedJSON(t *testing.T) {
	var payload []any
	require.NoError(t, json.Unmarshal([]byte(`[[0,0.5],{"lat":0,"lon":1},{"bogus":true}]`), &payload))

	got := geospatial.NormalizePoints(payload)
	assert.Equal(t, []domain.LatLng{{0, 0.5}, {0, 1}}, got)
}

func TestNormalizePoints_UnknownContainer(t *testing.T) {
	assert.Empty(t, geospatial.NormalizePoints(42))
	assert.Empty(t, geospatial.NormalizePoints("[[1,2]]"))
}

func TestFlattenRings_Nested(t *testing.T) {
	nested := []any{
		[]any{[]any{0.0, 0.5}, []any{0.0, 1.0}, []any{1.0, 1.0}, []any{1.0, 0.0}},
		[]any{[]any{0.2, 0.2}, []any{0.3, 0.3}, []any{0.2, 0.3}},
	}
	got := geospatial.FlattenRings(nested)
	assert.Equal(t, []domain.LatLng{{0, 0.5}, {0, 1}, {1, 1}, {1, 0}}, got)
}

func TestFlattenRings_Flat(t *testing.T) {
	flat := []any{[]any{0.0, 0.0}, map[string]any{"lat": 1.0, "lng": 1.0}}
	assert.Equal(t, []domain.LatLng{{0, 0}, {1, 1}}, geospatial.FlattenRings(flat))
}

func TestFlattenRings_OnlyOneLevel(t *testing.T) {
	// three levels deep: after removing one level the elements are rings, not points
	deep := []any{[]any{[]any{[]any{0.0, 0.0}}}}
	assert.Empty(t, geospatial.FlattenRings(deep))
}

func TestFlattenRings_Typed(t *testing.T) {
	rings := [][]domain.LatLng{{{1, 2}, {3, 4}}, {{5, 6}}}
	assert.Equal(t, []domain.LatLng{{1, 2}, {3, 4}}, geospatial.FlattenRings(rings))
	assert.Empty(t, geospatial.FlattenRings([][]domain.LatLng{}))
}

func TestFlattenRings_TwoPointRingIsFlat(t *testing.T) {
	// [[1,2],[3,4]] is a ring of two points, not a nested ring
	assert.Equal(t, []domain.LatLng{{1, 2}, {3, 4}}, geospatial.FlattenRings([]any{[]any{1.0, 2.0}, []any{3.0, 4.0}}))
}

func TestFlattenRings_MalformedFirstVertexIsFlat(t *testing.T) {
	// [null, 2] decoded from JSON is a broken vertex, not a ring
	var payload any
	require.NoError(t, json.Unmarshal([]byte(`[[null, 2], [0, 0.5]]`), &payload))
	assert.Equal(t, []domain.LatLng{{0, 0.5}}, geospatial.FlattenRings(payload))

	nested := []any{[]any{[]any{nil, 2.0}, []any{0.0, 0.5}}}
	assert.Equal(t, []domain.LatLng{{0, 0.5}}, geospatial.FlattenRings(nested))
}
