// Package wfs pages through an OGC WFS GetFeature endpoint and assembles the
// pages into a single GeoJSON feature collection.
package wfs

import (
	"fmt"
	"net/url"
	"strconv"
)

// Defaults for the Castro 311 layer.
const (
	DefaultEndpoint = "https://geoserver.danielmyers.xyz/geoserver/census/ows"
	DefaultTypeName = "census:castro_311"
	DefaultPageSize = 1000
)

// Query identifies the feature type to page through.
type Query struct {
	Endpoint string
	TypeName string
}

// PageURL returns the GetFeature URL for count features starting at startIndex.
func (q Query) PageURL(startIndex, count int) (string, error) {
	u, err := url.Parse(q.Endpoint)
	if err != nil {
		return "", fmt.Errorf("parse endpoint %q: %w", q.Endpoint, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("endpoint %q is not an absolute URL", q.Endpoint)
	}

	v := u.Query()
	v.Set("service", "WFS")
	v.Set("version", "2.0.0")
	v.Set("request", "GetFeature")
	v.Set("typeNames", q.TypeName)
	v.Set("outputFormat", "application/json")
	v.Set("count", strconv.Itoa(count))
	v.Set("startIndex", strconv.Itoa(startIndex))
	u.RawQuery = v.Encode()
	return u.String(), nil
}
