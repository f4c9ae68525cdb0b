package geospatial

import (
	"github.com/paulmach/orb/geojson"

	"github.com/darukaa/siteboundary/internal/core/domain"
)

// SiteFeature renders a site boundary as a GeoJSON polygon feature.
// GeoJSON requires closed rings, so the exported ring repeats its first vertex.
func SiteFeature(site *domain.Site) *geojson.Feature {
	ring := ToInteractionForm(site.Geolocation)
	f := geojson.NewFeature(ToOrbPolygon(ring))
	f.ID = site.ID
	f.Properties["name"] = site.Name
	f.Properties["project_id"] = site.ProjectID
	f.Properties["vertices"] = len(ring)
	f.Properties["area_m2"] = Area(ring)
	f.Properties["perimeter_m"] = Perimeter(ring)
	return f
}
