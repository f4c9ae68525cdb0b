package geospatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/darukaa/siteboundary/internal/core/domain"
)

const earthRadiusKm = 6371.0

// Haversine calculates the great-circle distance in meters between two points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c * 1000 // meters
}

// Perimeter returns the length in meters of a ring, including the implicit
// edge from the last vertex back to the first.
func Perimeter(ring []domain.LatLng) float64 {
	if len(ring) < 2 {
		return 0
	}
	var total float64
	for i := range ring {
		a := ring[i]
		b := ring[(i+1)%len(ring)]
		total += Haversine(a.Lat(), a.Lon(), b.Lat(), b.Lon())
	}
	return total
}

// Area returns the approximate area of a ring in square meters.
func Area(ring []domain.LatLng) float64 {
	if len(ring) < 3 {
		return 0
	}
	return geo.Area(ToOrbPolygon(ring))
}

// ToOrbPolygon builds a closed single-ring orb polygon ([lon, lat] order).
// The closing vertex exists only in the orb value, never in the ring passed in.
func ToOrbPolygon(ring []domain.LatLng) orb.Polygon {
	r := make(orb.Ring, 0, len(ring)+1)
	for _, p := range ring {
		r = append(r, orb.Point{p.Lon(), p.Lat()})
	}
	if len(r) > 0 && !r.Closed() {
		r = append(r, r[0])
	}
	return orb.Polygon{r}
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
