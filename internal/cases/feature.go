// Package cases derives statistics, rankings and view subsets from 311 case
// features. Every function here is pure: inputs are never mutated and the
// returned collections are fresh values.
package cases

import (
	"fmt"

	"github.com/paulmach/orb/geojson"
)

// Property names carried by each case feature.
const (
	PropCaseID      = "case_id"
	PropStatus      = "status"
	PropRequestType = "request_type"
	PropCategory    = "category"
	PropAgency      = "agency"
	PropAddress     = "address"
	PropOpenedAt    = "opened_ts"
	PropClosedAt    = "closed_ts"
	PropStatusNotes = "status_notes"
)

// Status values. Anything else counts as neither open nor closed.
const (
	StatusOpen   = "Open"
	StatusClosed = "Closed"
)

// Uncategorized is the label of features whose request type is missing.
const Uncategorized = ""

// numberReturnedKey is the WFS foreign member holding the declared count.
const numberReturnedKey = "numberReturned"

// Status returns the case status, or "" when missing or not a string.
func Status(f *geojson.Feature) string {
	return stringProp(f, PropStatus)
}

// Category returns the request type used to rank and filter cases.
func Category(f *geojson.Feature) string {
	return stringProp(f, PropRequestType)
}

func stringProp(f *geojson.Feature, key string) string {
	if f == nil || f.Properties == nil {
		return ""
	}
	if s, ok := f.Properties[key].(string); ok {
		return s
	}
	return ""
}

// textProp renders any scalar property as text; case ids arrive as numbers
// from some layers.
func textProp(f *geojson.Feature, key string) string {
	if f == nil || f.Properties == nil {
		return ""
	}
	switch v := f.Properties[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprint(v)
	}
}

// Detail is the popup-facing view of a single case.
type Detail struct {
	CaseID      string `json:"caseId" doc:"Case identifier" example:"17000123"`
	Status      string `json:"status" doc:"Case status" example:"Open"`
	OpenedAt    string `json:"openedAt,omitempty" doc:"Time the case was opened"`
	ClosedAt    string `json:"closedAt,omitempty" doc:"Time the case was closed"`
	RequestType string `json:"requestType" doc:"Request type" example:"Street and Sidewalk Cleaning"`
	Category    string `json:"category,omitempty" doc:"Service category"`
	Agency      string `json:"agency,omitempty" doc:"Responsible agency"`
	Address     string `json:"address,omitempty" doc:"Reported address"`
	Notes       string `json:"notes,omitempty" doc:"Status notes"`
}

// DetailOf extracts the display fields of a case.
func DetailOf(f *geojson.Feature) Detail {
	return Detail{
		CaseID:      textProp(f, PropCaseID),
		Status:      Status(f),
		OpenedAt:    textProp(f, PropOpenedAt),
		ClosedAt:    textProp(f, PropClosedAt),
		RequestType: Category(f),
		Category:    textProp(f, PropCategory),
		Agency:      textProp(f, PropAgency),
		Address:     textProp(f, PropAddress),
		Notes:       textProp(f, PropStatusNotes),
	}
}

// WithFeatures builds a new collection holding features, carrying over the
// foreign members of src and declaring numberReturned as len(features).
func WithFeatures(src *geojson.FeatureCollection, features []*geojson.Feature) *geojson.FeatureCollection {
	out := geojson.NewFeatureCollection()
	out.Features = make([]*geojson.Feature, len(features))
	copy(out.Features, features)

	members := geojson.Properties{}
	if src != nil {
		for k, v := range src.ExtraMembers {
			members[k] = v
		}
	}
	members[numberReturnedKey] = len(features)
	out.ExtraMembers = members
	return out
}

// NumberReturned reports the declared feature count of fc.
func NumberReturned(fc *geojson.FeatureCollection) (int, bool) {
	if fc == nil {
		return 0, false
	}
	switch n := fc.ExtraMembers[numberReturnedKey].(type) {
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}

// Find returns the first feature of fc whose case id renders as id.
func Find(fc *geojson.FeatureCollection, id string) (*geojson.Feature, bool) {
	if fc == nil || id == "" {
		return nil, false
	}
	for _, f := range fc.Features {
		if textProp(f, PropCaseID) == id {
			return f, true
		}
	}
	return nil, false
}
