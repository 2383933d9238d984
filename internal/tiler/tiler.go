// Package tiler renders the visible cases as Mapbox Vector Tiles.
//
// Case points arrive in Web Mercator metres. They are placed in WGS84 first
// so that maptile bounds and mvt projection work on the same coordinates the
// map client uses.
package tiler

import (
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"

	"github.com/joeblew999/geo311/internal/proj"
)

// LayerName is the MVT layer holding the cases.
const LayerName = "cases"

// MaxZoom is the deepest zoom level served.
const MaxZoom = 22

// ErrInvalidTile is returned for tile coordinates outside the pyramid.
var ErrInvalidTile = errors.New("invalid tile")

// TileAt validates z/x/y and returns the tile.
func TileAt(z, x, y int) (maptile.Tile, error) {
	if z < 0 || z > MaxZoom {
		return maptile.Tile{}, fmt.Errorf("%w: zoom %d out of range 0..%d", ErrInvalidTile, z, MaxZoom)
	}
	n := 1 << z
	if x < 0 || x >= n || y < 0 || y >= n {
		return maptile.Tile{}, fmt.Errorf("%w: %d/%d/%d", ErrInvalidTile, z, x, y)
	}
	return maptile.New(uint32(x), uint32(y), maptile.Zoom(z)), nil
}

// Tile encodes the placeable features of fc that fall inside t. It returns
// nil when the tile would be empty.
func Tile(fc *geojson.FeatureCollection, t maptile.Tile) ([]byte, error) {
	if fc == nil {
		return nil, nil
	}

	bound := t.Bound()
	inTile := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		p, ok := proj.ProjectFeature(f)
		if !ok || !bound.Contains(p) {
			continue
		}
		inTile.Append(tileFeature(f, p))
	}
	if len(inTile.Features) == 0 {
		return nil, nil
	}

	layer := mvt.NewLayer(LayerName, inTile)
	layer.ProjectToTile(t)

	data, err := mvt.Marshal(mvt.Layers{layer})
	if err != nil {
		return nil, fmt.Errorf("encode tile %d/%d/%d: %w", t.Z, t.X, t.Y, err)
	}
	return data, nil
}

// tileFeature copies f at p, keeping the property values MVT can encode.
func tileFeature(f *geojson.Feature, p orb.Point) *geojson.Feature {
	out := geojson.NewFeature(p)
	for k, v := range f.Properties {
		switch v.(type) {
		case string, float64, bool, int:
			out.Properties[k] = v
		}
	}
	return out
}
