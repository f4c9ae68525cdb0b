package domain

// GeoPoint represents a geographic coordinate (WGS 84).
// It is the persisted form of a vertex exchanged with storage and API clients.
type GeoPoint struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// LatLng is the positional [latitude, longitude] pair used by the drawing tools.
type LatLng [2]float64

// Lat returns the latitude component.
func (p LatLng) Lat() float64 { return p[0] }

// Lon returns the longitude component.
func (p LatLng) Lon() float64 { return p[1] }

// Ring is an ordered polygon boundary without a duplicated closing vertex.
type Ring []LatLng

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// Center returns the midpoint of the box.
func (b Bounds) Center() LatLng {
	return LatLng{(b.MinLat + b.MaxLat) / 2, (b.MinLon + b.MaxLon) / 2}
}
