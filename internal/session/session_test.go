package session

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/joeblew999/geo311/internal/cases"
)

func newCase(status, requestType string, x, y float64) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{x, y})
	f.Properties[cases.PropStatus] = status
	f.Properties[cases.PropRequestType] = requestType
	return f
}

func dataset() *geojson.FeatureCollection {
	return cases.WithFeatures(nil, []*geojson.Feature{
		newCase(cases.StatusOpen, "Graffiti", -13631071.64763635, 4544169.146645436),
		newCase(cases.StatusOpen, "Noise", -13627636.328150468, 4548279.555138997),
		newCase(cases.StatusClosed, "Graffiti", -13629401.855274448, 4545591.201060214),
		newCase(cases.StatusOpen, "Graffiti", -13629179.216292862, 4545929.143529864),
	})
}

func TestNew_DerivesSummaryAndView(t *testing.T) {
	s := New(dataset())

	if got := s.Stats(); got != (cases.Stats{Total: 4, Open: 3, Closed: 1}) {
		t.Fatalf("unexpected stats %+v", got)
	}
	r := s.Rankings()
	if len(r) != 2 || r[0] != (cases.CategoryCount{Category: "Graffiti", Count: 2}) {
		t.Fatalf("unexpected rankings %v", r)
	}
	if s.Selection().Active {
		t.Fatalf("new session should have no selection")
	}
	if n := len(s.Visible().Features); n != 3 {
		t.Fatalf("expected 3 visible open cases, got %d", n)
	}
	if _, ok := s.Viewport().Bound(); !ok {
		t.Fatalf("expected viewport fitted to open cases")
	}
}

func TestSelectAndReset(t *testing.T) {
	base := New(dataset())

	noise := base.Select("Noise")
	if n := len(noise.Visible().Features); n != 1 {
		t.Fatalf("expected 1 noise case, got %d", n)
	}
	nb, _ := noise.Viewport().Bound()
	bb, _ := base.Viewport().Bound()
	if nb == bb {
		t.Fatalf("selecting a category should refit the viewport")
	}

	// Transitions return new values; base is unchanged.
	if base.Selection().Active || len(base.Visible().Features) != 3 {
		t.Fatalf("Select mutated the original session")
	}

	reset := noise.Reset()
	if reset.Selection().Active {
		t.Fatalf("reset should clear the selection")
	}
	if n := len(reset.Visible().Features); n != 3 {
		t.Fatalf("expected 3 visible cases after reset, got %d", n)
	}
	rb, _ := reset.Viewport().Bound()
	if rb != bb {
		t.Fatalf("reset bounds %v, want %v", rb, bb)
	}
}

func TestSelect_EmptySubsetKeepsPreviousBounds(t *testing.T) {
	s := New(dataset()).Select("Graffiti")
	before, ok := s.Viewport().Bound()
	if !ok {
		t.Fatalf("expected fitted viewport")
	}

	empty := s.Select("Nothing Like This")
	if n := len(empty.Visible().Features); n != 0 {
		t.Fatalf("expected empty subset, got %d", n)
	}
	after, ok := empty.Viewport().Bound()
	if !ok || after != before {
		t.Fatalf("bounds changed on empty subset: %v -> %v", before, after)
	}
}

func TestSelect_Idempotent(t *testing.T) {
	s := New(dataset())
	a := s.Select("Graffiti")
	b := a.Select("Graffiti")

	if len(a.Visible().Features) != len(b.Visible().Features) {
		t.Fatalf("repeated selection changed the visible subset")
	}
	for i := range a.Visible().Features {
		if a.Visible().Features[i] != b.Visible().Features[i] {
			t.Fatalf("feature %d differs between repeated selections", i)
		}
	}
	if a.Viewport() != b.Viewport() {
		t.Fatalf("repeated selection changed the viewport")
	}
}

func TestNew_NilCollection(t *testing.T) {
	s := New(nil)
	if s.Stats() != (cases.Stats{}) {
		t.Fatalf("expected zero stats")
	}
	if _, ok := s.Viewport().Bound(); ok {
		t.Fatalf("empty dataset should not fit the viewport")
	}
}

func TestRankings_ReturnsCopy(t *testing.T) {
	s := New(dataset())
	r := s.Rankings()
	r[0].Count = 100
	if s.Rankings()[0].Count == 100 {
		t.Fatalf("Rankings must return a copy")
	}
}
