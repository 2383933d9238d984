package proj

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Map framing used before any cases have been fitted.
var DefaultCenter = orb.Point{-122.45, 37.75}

// DefaultZoom is the zoom of a frame that was never fitted.
const DefaultZoom = 12

// Viewport is the map frame derived from the visible cases.
type Viewport struct {
	bound  orb.Bound
	fitted bool
}

// Fit frames the cases of fc. When fc has nothing to place the receiver is
// returned unchanged, so the map keeps its previous view.
func (v Viewport) Fit(fc *geojson.FeatureCollection) Viewport {
	b, ok := Bounds(fc)
	if !ok {
		return v
	}
	return Viewport{bound: b, fitted: true}
}

// Bound returns the fitted rectangle, if any.
func (v Viewport) Bound() (orb.Bound, bool) {
	return v.bound, v.fitted
}

// Center is the middle of the fitted rectangle, or DefaultCenter.
func (v Viewport) Center() orb.Point {
	if !v.fitted {
		return DefaultCenter
	}
	return v.bound.Center()
}
