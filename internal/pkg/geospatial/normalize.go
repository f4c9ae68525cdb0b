package geospatial

import (
	"encoding/json"
	"math"

	"github.com/darukaa/siteboundary/internal/core/domain"
)

// ToInteractionForm converts labeled {lat, lon} records into [lat, lon] pairs.
// Order is kept and no closing vertex is added.
func ToInteractionForm(persisted []domain.GeoPoint) []domain.LatLng {
	out := make([]domain.LatLng, len(persisted))
	for i, p := range persisted {
		out[i] = domain.LatLng{p.Lat, p.Lon}
	}
	return out
}

// ToPersistedForm converts [lat, lon] pairs into labeled {lat, lon} records.
func ToPersistedForm(interaction []domain.LatLng) []domain.GeoPoint {
	out := make([]domain.GeoPoint, len(interaction))
	for i, p := range interaction {
		out[i] = domain.GeoPoint{Lat: p[0], Lon: p[1]}
	}
	return out
}

// NormalizePoints converts a sequence of points of unknown shape into
// interaction form. Each element may be a positional pair or a labeled
// object with lat and lon (or lng); anything else is dropped.
func NormalizePoints(points any) []domain.LatLng {
	out := []domain.LatLng{}
	switch ps := points.(type) {
	case nil:
		return out
	case []domain.LatLng:
		for _, p := range ps {
			if finite(p[0]) && finite(p[1]) {
				out = append(out, p)
			}
		}
		return out
	case domain.Ring:
		return NormalizePoints([]domain.LatLng(ps))
	case []domain.GeoPoint:
		return NormalizePoints(ToInteractionForm(ps))
	case [][]float64:
		for _, p := range ps {
			if ll, ok := PointOf(p); ok {
				out = append(out, ll)
			}
		}
		return out
	case [][2]float64:
		for _, p := range ps {
			if ll, ok := PointOf(p); ok {
				out = append(out, ll)
			}
		}
		return out
	case []map[string]any:
		for _, p := range ps {
			if ll, ok := PointOf(p); ok {
				out = append(out, ll)
			}
		}
		return out
	case []any:
		for _, p := range ps {
			if ll, ok := PointOf(p); ok {
				out = append(out, ll)
			}
		}
		return out
	}
	return out
}

// FlattenRings extracts the outer ring from a geometry that may nest its
// rings one level deeper than a plain vertex list. Exactly one level is
// removed: [[p, p, ...], [hole...]] yields the first sequence, while a flat
// [p, p, ...] is normalized as is.
func FlattenRings(geometry any) []domain.LatLng {
	switch g := geometry.(type) {
	case [][]domain.LatLng:
		if len(g) == 0 {
			return []domain.LatLng{}
		}
		return NormalizePoints(g[0])
	case []domain.Ring:
		if len(g) == 0 {
			return []domain.LatLng{}
		}
		return NormalizePoints([]domain.LatLng(g[0]))
	case [][]domain.GeoPoint:
		if len(g) == 0 {
			return []domain.LatLng{}
		}
		return NormalizePoints(g[0])
	case [][][]float64:
		if len(g) == 0 {
			return []domain.LatLng{}
		}
		return NormalizePoints(g[0])
	case []any:
		if len(g) == 0 {
			return []domain.LatLng{}
		}
		if isRing(g[0]) {
			return NormalizePoints(g[0])
		}
		return NormalizePoints(g)
	}
	return NormalizePoints(geometry)
}

// isRing reports whether v is a sequence of vertices rather than a vertex.
// Only depth counts: a malformed vertex such as [null, 2] is still a vertex.
func isRing(v any) bool {
	switch s := v.(type) {
	case []domain.LatLng, domain.Ring, []domain.GeoPoint, [][]float64, [][2]float64, []map[string]any:
		return true
	case []any:
		for _, e := range s {
			switch e.(type) {
			case []any, []float64, [2]float64, map[string]any, domain.LatLng, domain.GeoPoint, *domain.GeoPoint:
				return true
			}
		}
	}
	return false
}

// PointOf recognizes a single vertex of unknown shape.
func PointOf(v any) (domain.LatLng, bool) {
	switch p := v.(type) {
	case domain.LatLng:
		return p, finite(p[0]) && finite(p[1])
	case [2]float64:
		return domain.LatLng(p), finite(p[0]) && finite(p[1])
	case domain.GeoPoint:
		return domain.LatLng{p.Lat, p.Lon}, finite(p.Lat) && finite(p.Lon)
	case *domain.GeoPoint:
		if p == nil {
			return domain.LatLng{}, false
		}
		return PointOf(*p)
	case []float64:
		if len(p) != 2 {
			return domain.LatLng{}, false
		}
		return domain.LatLng{p[0], p[1]}, finite(p[0]) && finite(p[1])
	case []any:
		if len(p) != 2 {
			return domain.LatLng{}, false
		}
		lat, ok1 := number(p[0])
		lon, ok2 := number(p[1])
		return domain.LatLng{lat, lon}, ok1 && ok2
	case map[string]any:
		lat, ok1 := number(p["lat"])
		lonRaw, has := p["lon"]
		if !has {
			lonRaw = p["lng"]
		}
		lon, ok2 := number(lonRaw)
		return domain.LatLng{lat, lon}, ok1 && ok2
	}
	return domain.LatLng{}, false
}

func number(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	return f, finite(f)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
