package geospatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"

	"github.com/darukaa/siteboundary/internal/core/domain"
)

const (
	tileSize = 256.0
	// maxMercatorLat is the latitude at which Web Mercator becomes square.
	maxMercatorLat = 85.0511287798
	// earthCircumference is the Web Mercator world width in meters.
	earthCircumference = 2 * 20037508.342789244
)

// BoundsOf returns the box covering every vertex of every ring.
// ok is false when there is no vertex at all.
func BoundsOf(rings ...[]domain.LatLng) (b domain.Bounds, ok bool) {
	var mp orb.MultiPoint
	for _, r := range rings {
		for _, p := range r {
			mp = append(mp, orb.Point{p.Lon(), p.Lat()})
		}
	}
	if len(mp) == 0 {
		return domain.Bounds{}, false
	}
	bound := mp.Bound()
	return domain.Bounds{
		MinLat: bound.Min.Lat(),
		MinLon: bound.Min.Lon(),
		MaxLat: bound.Max.Lat(),
		MaxLon: bound.Max.Lon(),
	}, true
}

// Viewport is a map view: center and integer zoom level.
type Viewport struct {
	Center domain.LatLng `json:"center"`
	Zoom   int           `json:"zoom"`
}

// FitOptions controls how a box is fitted into a pixel container.
type FitOptions struct {
	Width, Height int
	Padding       int
	MinZoom       int
	MaxZoom       int
}

// Fit computes the largest integer zoom at which b fits inside the
// container (minus padding on every side) and the Mercator center of b.
// A zero-size box fits at MaxZoom.
func Fit(b domain.Bounds, opts FitOptions) Viewport {
	sw := toMercator(b.MinLat, b.MinLon)
	ne := toMercator(b.MaxLat, b.MaxLon)

	center := project.Mercator.ToWGS84(orb.Point{(sw[0] + ne[0]) / 2, (sw[1] + ne[1]) / 2})

	availW := float64(opts.Width - 2*opts.Padding)
	availH := float64(opts.Height - 2*opts.Padding)
	if availW < 1 {
		availW = 1
	}
	if availH < 1 {
		availH = 1
	}

	// size of the box in pixels at zoom 0
	pxPerMeter := tileSize / earthCircumference
	boxW := (ne[0] - sw[0]) * pxPerMeter
	boxH := (ne[1] - sw[1]) * pxPerMeter

	zoom := opts.MaxZoom
	if boxW > 0 || boxH > 0 {
		scale := math.Inf(1)
		if boxW > 0 {
			scale = availW / boxW
		}
		if boxH > 0 {
			scale = math.Min(scale, availH/boxH)
		}
		zoom = int(math.Floor(math.Log2(scale)))
	}
	if zoom > opts.MaxZoom {
		zoom = opts.MaxZoom
	}
	if zoom < opts.MinZoom {
		zoom = opts.MinZoom
	}

	return Viewport{Center: domain.LatLng{center.Lat(), center.Lon()}, Zoom: zoom}
}

func toMercator(lat, lon float64) orb.Point {
	lat = math.Max(-maxMercatorLat, math.Min(maxMercatorLat, lat))
	return project.WGS84.ToMercator(orb.Point{lon, lat})
}
