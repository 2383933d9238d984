package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/joeblew999/geo311/internal/cases"
)

type fakeLoader struct {
	mu    sync.Mutex
	fc    *geojson.FeatureCollection
	err   error
	calls int
	block chan struct{}
}

func (l *fakeLoader) LoadAll(ctx context.Context) (*geojson.FeatureCollection, error) {
	l.mu.Lock()
	l.calls++
	block := l.block
	fc, err := l.fc, l.err
	l.mu.Unlock()
	if block != nil {
		<-block
	}
	return fc, err
}

type fakeSink struct {
	got *geojson.FeatureCollection
	err error
}

func (s *fakeSink) ReplaceCases(ctx context.Context, fc *geojson.FeatureCollection) error {
	s.got = fc
	return s.err
}

func newCase(id, status, requestType string, x, y float64) *geojson.Feature {
	f := geojson.NewFeature(orb.Point{x, y})
	f.Properties[cases.PropCaseID] = id
	f.Properties[cases.PropStatus] = status
	f.Properties[cases.PropRequestType] = requestType
	return f
}

func dataset() *geojson.FeatureCollection {
	return cases.WithFeatures(nil, []*geojson.Feature{
		newCase("1", cases.StatusOpen, "Graffiti", -13631071.64763635, 4544169.146645436),
		newCase("2", cases.StatusOpen, "Noise", -13627636.328150468, 4548279.555138997),
		newCase("3", cases.StatusClosed, "Graffiti", -13629401.855274448, 4545591.201060214),
	})
}

func TestCaseService_NotLoaded(t *testing.T) {
	svc := NewCaseService(&fakeLoader{}, nil, nil, zerolog.Nop())

	if _, err := svc.Session(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded, got %v", err)
	}
	if _, err := svc.Select("Graffiti"); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded from Select, got %v", err)
	}
	if _, err := svc.Reset(); !errors.Is(err, ErrNotLoaded) {
		t.Fatalf("expected ErrNotLoaded from Reset, got %v", err)
	}
	if st := svc.Status(); st.Loaded || st.Cases != 0 {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestCaseService_LoadAndSelect(t *testing.T) {
	sink := &fakeSink{}
	bus := NewEventBus()
	events := bus.Subscribe()
	defer bus.Unsubscribe(events)

	svc := NewCaseService(&fakeLoader{fc: dataset()}, sink, bus, zerolog.Nop())
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if sink.got == nil || len(sink.got.Features) != 3 {
		t.Fatalf("sink did not receive the dataset")
	}
	if e := <-events; e.Kind != KindDataset || e.Action != ActionLoaded || e.Cases != 3 || e.Visible != 2 {
		t.Fatalf("unexpected event %+v", e)
	}

	s, err := svc.Select("Graffiti")
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if n := len(s.Visible().Features); n != 1 {
		t.Fatalf("expected 1 open graffiti case, got %d", n)
	}
	if e := <-events; e.Kind != KindSelection || e.Action != ActionSelected || e.Category != "Graffiti" || e.Visible != 1 {
		t.Fatalf("unexpected event %+v", e)
	}

	cur, _ := svc.Session()
	if !cur.Selection().Active || cur.Selection().Category != "Graffiti" {
		t.Fatalf("selection not stored: %+v", cur.Selection())
	}

	s, err = svc.Reset()
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if s.Selection().Active || len(s.Visible().Features) != 2 {
		t.Fatalf("reset did not clear the selection")
	}
	if e := <-events; e.Action != ActionReset || e.Category != "" || e.Visible != 2 {
		t.Fatalf("unexpected event %+v", e)
	}
	if st := svc.Status(); !st.Loaded || st.Cases != 3 || st.LoadedAt.IsZero() {
		t.Fatalf("unexpected status %+v", st)
	}
}

func TestCaseService_FailedReloadKeepsDataset(t *testing.T) {
	loader := &fakeLoader{fc: dataset()}
	svc := NewCaseService(loader, nil, nil, zerolog.Nop())
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := svc.Select("Noise"); err != nil {
		t.Fatalf("select: %v", err)
	}

	loader.err = errors.New("connection refused")
	if err := svc.Load(context.Background()); err == nil {
		t.Fatalf("expected reload error")
	}

	s, err := svc.Session()
	if err != nil {
		t.Fatalf("previous dataset should remain: %v", err)
	}
	if s.Stats().Total != 3 || s.Selection().Category != "Noise" {
		t.Fatalf("previous session not retained")
	}
	if st := svc.Status(); st.LastError == "" {
		t.Fatalf("expected last error in status")
	}
}

func TestCaseService_ReloadKeepsSelection(t *testing.T) {
	loader := &fakeLoader{fc: dataset()}
	svc := NewCaseService(loader, nil, nil, zerolog.Nop())
	_ = svc.Load(context.Background())
	_, _ = svc.Select("Noise")

	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}
	s, _ := svc.Session()
	if s.Selection().Category != "Noise" || len(s.Visible().Features) != 1 {
		t.Fatalf("selection not re-applied after reload")
	}
}

func TestCaseService_SinkFailureStillLoads(t *testing.T) {
	svc := NewCaseService(&fakeLoader{fc: dataset()}, &fakeSink{err: errors.New("disk full")}, nil, zerolog.Nop())
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load should succeed without the store: %v", err)
	}
	if _, err := svc.Session(); err != nil {
		t.Fatalf("expected session: %v", err)
	}
}

func TestCaseService_ConcurrentLoadRejected(t *testing.T) {
	loader := &fakeLoader{fc: dataset(), block: make(chan struct{})}
	svc := NewCaseService(loader, nil, nil, zerolog.Nop())

	done := make(chan error, 1)
	go func() { done <- svc.Load(context.Background()) }()

	deadline := time.Now().Add(2 * time.Second)
	for !svc.Status().Loading {
		if time.Now().After(deadline) {
			t.Fatalf("first load never started")
		}
		time.Sleep(time.Millisecond)
	}

	if err := svc.Load(context.Background()); !errors.Is(err, ErrLoadInProgress) {
		t.Fatalf("expected ErrLoadInProgress, got %v", err)
	}

	close(loader.block)
	if err := <-done; err != nil {
		t.Fatalf("first load: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected one loader call, got %d", loader.calls)
	}
}

func TestEventBus_NilPublishAndDoubleUnsubscribe(t *testing.T) {
	var nilBus *EventBus
	nilBus.Publish(Event{Kind: KindDataset})

	bus := NewEventBus()
	ch := bus.Subscribe()
	bus.Unsubscribe(ch)
	bus.Unsubscribe(ch)
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
}

func TestBoundsOf(t *testing.T) {
	svc := NewCaseService(&fakeLoader{fc: cases.WithFeatures(nil, nil)}, nil, nil, zerolog.Nop())
	_ = svc.Load(context.Background())
	s, _ := svc.Session()

	b := BoundsOf(s)
	if b.Fitted || b.Zoom != 12 || b.Center != [2]float64{37.75, -122.45} {
		t.Fatalf("expected default frame, got %+v", b)
	}

	svc = NewCaseService(&fakeLoader{fc: dataset()}, nil, nil, zerolog.Nop())
	_ = svc.Load(context.Background())
	s, _ = svc.Session()
	b = BoundsOf(s)
	if !b.Fitted || b.South >= b.North || b.West >= b.East {
		t.Fatalf("unexpected fitted frame %+v", b)
	}
}

func TestBoundsOf_ZeroEdgesEncoded(t *testing.T) {
	fc := cases.WithFeatures(nil, []*geojson.Feature{
		newCase("1", cases.StatusOpen, "Noise", 0, 0),
		newCase("2", cases.StatusOpen, "Noise", 100000, 100000),
	})
	svc := NewCaseService(&fakeLoader{fc: fc}, nil, nil, zerolog.Nop())
	if err := svc.Load(context.Background()); err != nil {
		t.Fatalf("load: %v", err)
	}
	s, _ := svc.Session()

	b := BoundsOf(s)
	if !b.Fitted || b.West != 0 {
		t.Fatalf("unexpected frame %+v", b)
	}
	data, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"south", "west", "north", "east"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("%s missing from %s", k, data)
		}
	}
}

func TestDetailOf(t *testing.T) {
	d := DetailOf(newCase("7", cases.StatusOpen, "Noise", -13627636.328150468, 4548279.555138997))
	if d.CaseID != "7" || d.Lat == nil || d.Lon == nil {
		t.Fatalf("unexpected detail %+v", d)
	}

	f := geojson.NewFeature(nil)
	f.Properties[cases.PropCaseID] = "8"
	if d := DetailOf(f); d.Lat != nil {
		t.Fatalf("expected no position for a feature without geometry")
	}
}
