// Package service holds the shared case session and the view types served by
// the geo311 API.
package service

import (
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geo311/internal/cases"
	"github.com/joeblew999/geo311/internal/proj"
	"github.com/joeblew999/geo311/internal/session"
)

// CaseDetail is a case's popup fields plus its display position.
type CaseDetail struct {
	cases.Detail
	Lat *float64 `json:"lat,omitempty" doc:"Latitude (EPSG:4326)" example:"37.7792"`
	Lon *float64 `json:"lon,omitempty" doc:"Longitude (EPSG:4326)" example:"-122.4191"`
}

// DetailOf builds the detail view of f. Lat/Lon are omitted for features
// without a placeable point.
func DetailOf(f *geojson.Feature) CaseDetail {
	d := CaseDetail{Detail: cases.DetailOf(f)}
	if p, ok := proj.ProjectFeature(f); ok {
		lat, lon := p.Lat(), p.Lon()
		d.Lat, d.Lon = &lat, &lon
	}
	return d
}

// BoundsBody describes the map frame.
type BoundsBody struct {
	Fitted bool       `json:"fitted" doc:"Whether the frame was fitted to visible cases"`
	South  float64    `json:"south" doc:"Minimum latitude"`
	West   float64    `json:"west" doc:"Minimum longitude"`
	North  float64    `json:"north" doc:"Maximum latitude"`
	East   float64    `json:"east" doc:"Maximum longitude"`
	Center [2]float64 `json:"center" doc:"Map centre as [lat, lon]"`
	Zoom   int        `json:"zoom,omitempty" doc:"Zoom level for an unfitted frame" example:"12"`
}

// BoundsOf describes the viewport of s.
func BoundsOf(s session.Session) BoundsBody {
	vp := s.Viewport()
	c := vp.Center()
	b, ok := vp.Bound()
	if !ok {
		return BoundsBody{Center: [2]float64{c.Lat(), c.Lon()}, Zoom: proj.DefaultZoom}
	}
	return BoundsBody{
		Fitted: true,
		South:  b.Min.Lat(),
		West:   b.Min.Lon(),
		North:  b.Max.Lat(),
		East:   b.Max.Lon(),
		Center: [2]float64{c.Lat(), c.Lon()},
	}
}

// SelectionBody is the viewer's category selection with its effect.
type SelectionBody struct {
	cases.Selection
	VisibleCount int        `json:"visibleCount" doc:"Number of cases on the map"`
	Bounds       BoundsBody `json:"bounds" doc:"Map frame after the change"`
}

// SelectionOf describes the selection state of s.
func SelectionOf(s session.Session) SelectionBody {
	return SelectionBody{
		Selection:    s.Selection(),
		VisibleCount: len(s.Visible().Features),
		Bounds:       BoundsOf(s),
	}
}

// SummaryBody bundles stats and rankings, as printed by the load command.
type SummaryBody struct {
	Stats      cases.Stats           `json:"stats" yaml:"stats"`
	Categories []cases.CategoryCount `json:"categories" yaml:"categories"`
}
