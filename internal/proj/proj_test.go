package proj

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geo311/internal/cases"
)

// San Francisco City Hall in EPSG:3857 and EPSG:4326.
const (
	cityHallX   = -13627636.328150468
	cityHallY   = 4548279.555138997
	cityHallLat = 37.77919
	cityHallLon = -122.41914
)

const tolerance = 1e-6

func near(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

func pointCase(x, y float64) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{x, y})
	f.Properties[cases.PropStatus] = cases.StatusOpen
	return f
}

func TestProject_CityHall(t *testing.T) {
	lat, lon := Project(cityHallX, cityHallY)
	if !near(lat, cityHallLat) || !near(lon, cityHallLon) {
		t.Fatalf("Project(city hall) = (%f, %f), want (%f, %f)", lat, lon, cityHallLat, cityHallLon)
	}
}

func TestProject_Origin(t *testing.T) {
	lat, lon := Project(0, 0)
	if !near(lat, 0) || !near(lon, 0) {
		t.Fatalf("Project(0,0) = (%f, %f), want (0, 0)", lat, lon)
	}
}

func TestProjectFeature(t *testing.T) {
	p, ok := ProjectFeature(pointCase(cityHallX, cityHallY))
	if !ok {
		t.Fatalf("expected point feature to be placed")
	}
	if !near(p.Lon(), cityHallLon) || !near(p.Lat(), cityHallLat) {
		t.Fatalf("unexpected position %v", p)
	}

	if _, ok := ProjectFeature(geojson.NewFeature(nil)); ok {
		t.Fatalf("expected feature without geometry to be skipped")
	}
	line := geojson.NewFeature(orb.LineString{{0, 0}, {1, 1}})
	if _, ok := ProjectFeature(line); ok {
		t.Fatalf("expected non-point geometry to be skipped")
	}
	if _, ok := ProjectFeature(pointCase(math.NaN(), 0)); ok {
		t.Fatalf("expected NaN coordinates to be skipped")
	}
}

func TestProjectCollection(t *testing.T) {
	src := cases.WithFeatures(nil, []*geojson.Feature{
		pointCase(cityHallX, cityHallY),
		geojson.NewFeature(nil),
	})

	out := ProjectCollection(src)
	if len(out.Features) != 1 {
		t.Fatalf("expected 1 placed feature, got %d", len(out.Features))
	}
	if n, _ := cases.NumberReturned(out); n != 1 {
		t.Fatalf("numberReturned=%d, want 1", n)
	}
	if out.Features[0].Properties[cases.PropStatus] != cases.StatusOpen {
		t.Fatalf("properties were not copied")
	}
	if src.Features[0].Geometry.(orb.Point)[0] != cityHallX {
		t.Fatalf("source geometry was mutated")
	}
}

func TestBounds(t *testing.T) {
	fc := cases.WithFeatures(nil, []*geojson.Feature{
		pointCase(-13631071.64763635, 4544169.146645436), // 37.75, -122.45
		pointCase(cityHallX, cityHallY),
		pointCase(-13629401.855274448, 4545591.201060214), // 37.7601, -122.435
	})

	b, ok := Bounds(fc)
	if !ok {
		t.Fatalf("expected bounds")
	}
	if !near(b.Min.Lat(), 37.75) || !near(b.Min.Lon(), -122.45) {
		t.Fatalf("unexpected min %v", b.Min)
	}
	if !near(b.Max.Lat(), cityHallLat) || !near(b.Max.Lon(), cityHallLon) {
		t.Fatalf("unexpected max %v", b.Max)
	}
}

func TestBounds_Empty(t *testing.T) {
	if _, ok := Bounds(cases.WithFeatures(nil, nil)); ok {
		t.Fatalf("expected no bounds for empty collection")
	}
	if _, ok := Bounds(nil); ok {
		t.Fatalf("expected no bounds for nil collection")
	}
}

func TestViewport_EmptyFitKeepsPreviousBounds(t *testing.T) {
	var v Viewport
	if _, ok := v.Bound(); ok {
		t.Fatalf("zero viewport should not be fitted")
	}
	if v.Center() != DefaultCenter {
		t.Fatalf("zero viewport center = %v, want default", v.Center())
	}

	fitted := v.Fit(cases.WithFeatures(nil, []*geojson.Feature{pointCase(cityHallX, cityHallY)}))
	before, ok := fitted.Bound()
	if !ok {
		t.Fatalf("expected fitted viewport")
	}

	after := fitted.Fit(cases.WithFeatures(nil, nil))
	got, ok := after.Bound()
	if !ok || got != before {
		t.Fatalf("empty fit changed bounds: %v -> %v", before, got)
	}
	if after != fitted {
		t.Fatalf("empty fit must return the previous viewport")
	}
}
