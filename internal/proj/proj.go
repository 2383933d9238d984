// Package proj places case coordinates on the display map.
//
// Case geometries arrive in Web Mercator metres (EPSG:3857) and the map is
// drawn in geographic degrees (EPSG:4326). Project takes x before y and
// returns latitude before longitude; orb points keep the GeoJSON order
// (lon, lat).
package proj

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"

	"github.com/joeblew999/geo311/internal/cases"
)

// Reference systems of the source data and the display map.
const (
	SourceCRS  = "EPSG:3857"
	DisplayCRS = "EPSG:4326"
)

// Project converts a Web Mercator easting/northing to latitude/longitude.
func Project(x, y float64) (lat, lon float64) {
	p := project.Mercator.ToWGS84(orb.Point{x, y})
	return p.Lat(), p.Lon()
}

// ProjectFeature returns the display position of a case as orb.Point{lon, lat}.
// ok is false for features without a finite point geometry.
func ProjectFeature(f *geojson.Feature) (orb.Point, bool) {
	if f == nil {
		return orb.Point{}, false
	}
	p, ok := f.Geometry.(orb.Point)
	if !ok || !finite(p[0]) || !finite(p[1]) {
		return orb.Point{}, false
	}
	lat, lon := Project(p[0], p[1])
	return orb.Point{lon, lat}, true
}

// ProjectCollection returns a copy of fc with display coordinates. Features
// that cannot be placed are dropped and numberReturned is updated to match.
func ProjectCollection(fc *geojson.FeatureCollection) *geojson.FeatureCollection {
	if fc == nil {
		return cases.WithFeatures(nil, nil)
	}
	out := make([]*geojson.Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		p, ok := ProjectFeature(f)
		if !ok {
			continue
		}
		clone := geojson.NewFeature(p)
		clone.ID = f.ID
		for k, v := range f.Properties {
			clone.Properties[k] = v
		}
		out = append(out, clone)
	}
	return cases.WithFeatures(fc, out)
}

// Bounds is the smallest lon/lat rectangle covering every placeable case in
// fc. ok is false when there is nothing to cover.
func Bounds(fc *geojson.FeatureCollection) (b orb.Bound, ok bool) {
	if fc == nil {
		return orb.Bound{}, false
	}
	for _, f := range fc.Features {
		p, placed := ProjectFeature(f)
		if !placed {
			continue
		}
		if !ok {
			b, ok = p.Bound(), true
			continue
		}
		b = b.Extend(p)
	}
	return b, ok
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
