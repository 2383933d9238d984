// Package session holds the viewer state of one loaded dataset as an
// immutable value. Every transition returns a new Session; derived views are
// computed from the dataset and never written back into it.
package session

import (
	"slices"

	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geo311/internal/cases"
	"github.com/joeblew999/geo311/internal/proj"
)

// Session is the dataset plus everything derived from it for the map.
type Session struct {
	collection *geojson.FeatureCollection
	stats      cases.Stats
	rankings   []cases.CategoryCount
	selection  cases.Selection
	visible    *geojson.FeatureCollection
	viewport   proj.Viewport
}

// New summarizes fc and frames the map on its open cases. fc must not be
// modified afterwards.
func New(fc *geojson.FeatureCollection) Session {
	if fc == nil {
		fc = cases.WithFeatures(nil, nil)
	}
	stats, rankings := cases.Summarize(fc)
	s := Session{
		collection: fc,
		stats:      stats,
		rankings:   rankings,
	}
	return s.derive()
}

// derive recomputes the visible subset and refits the viewport. An empty
// subset keeps the previous viewport.
func (s Session) derive() Session {
	s.visible = cases.VisibleSubset(s.collection, cases.IsOpen, s.selection)
	s.viewport = s.viewport.Fit(s.visible)
	return s
}

// Select restricts the map to open cases of category.
func (s Session) Select(category string) Session {
	s.selection = cases.Select(category)
	return s.derive()
}

// Reset clears the category selection.
func (s Session) Reset() Session {
	s.selection = cases.Selection{}
	return s.derive()
}

// Collection is the full dataset as loaded.
func (s Session) Collection() *geojson.FeatureCollection { return s.collection }

// Stats are the open and closed totals of the dataset.
func (s Session) Stats() cases.Stats { return s.stats }

// Rankings returns a copy of the categories ranked by case count.
func (s Session) Rankings() []cases.CategoryCount { return slices.Clone(s.rankings) }

// Selection is the active category filter, if any.
func (s Session) Selection() cases.Selection { return s.selection }

// Visible is the subset of cases currently drawn on the map.
func (s Session) Visible() *geojson.FeatureCollection { return s.visible }

// Viewport is the map frame for the visible cases.
func (s Session) Viewport() proj.Viewport { return s.viewport }
