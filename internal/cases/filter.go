package cases

import "github.com/paulmach/orb/geojson"

// StatusPredicate decides whether a feature's status qualifies it for display.
type StatusPredicate func(*geojson.Feature) bool

// IsOpen is the predicate used by the map: only open cases are shown.
func IsOpen(f *geojson.Feature) bool {
	return Status(f) == StatusOpen
}

// HasStatus builds a predicate matching a single status value.
func HasStatus(status string) StatusPredicate {
	return func(f *geojson.Feature) bool {
		return Status(f) == status
	}
}

// Selection is the viewer's category choice. The zero value selects nothing,
// which leaves every category visible.
type Selection struct {
	Category string `json:"category" doc:"Selected request type"`
	Active   bool   `json:"active" doc:"Whether a category filter is applied"`
}

// Select returns a selection of category.
func Select(category string) Selection {
	return Selection{Category: category, Active: true}
}

// Matches reports whether f passes the category part of the selection.
func (s Selection) Matches(f *geojson.Feature) bool {
	return !s.Active || Category(f) == s.Category
}

// VisibleSubset returns the features of fc satisfying pred and sel, in their
// original order. A nil pred accepts every status.
func VisibleSubset(fc *geojson.FeatureCollection, pred StatusPredicate, sel Selection) *geojson.FeatureCollection {
	if fc == nil {
		return WithFeatures(nil, nil)
	}

	visible := make([]*geojson.Feature, 0, len(fc.Features))
	for _, f := range fc.Features {
		if pred != nil && !pred(f) {
			continue
		}
		if !sel.Matches(f) {
			continue
		}
		visible = append(visible, f)
	}
	return WithFeatures(fc, visible)
}
