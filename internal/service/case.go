package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/joeblew999/geo311/internal/session"
)

var (
	// ErrNotLoaded is returned before the first successful load.
	ErrNotLoaded = errors.New("dataset not loaded")
	// ErrLoadInProgress is returned when a load is requested while another runs.
	ErrLoadInProgress = errors.New("load already in progress")
)

// Loader produces the full case dataset.
type Loader interface {
	LoadAll(ctx context.Context) (*geojson.FeatureCollection, error)
}

// Sink receives each freshly loaded dataset, e.g. an analytics store.
type Sink interface {
	ReplaceCases(ctx context.Context, fc *geojson.FeatureCollection) error
}

// CaseService owns the current session and swaps it atomically on load and
// selection changes.
type CaseService struct {
	loader Loader
	sink   Sink
	bus    *EventBus
	log    zerolog.Logger

	loading atomic.Bool

	mu       sync.RWMutex
	current  session.Session
	loaded   bool
	loadedAt time.Time
	lastErr  error
}

// NewCaseService creates a case service. sink and bus may be nil.
func NewCaseService(loader Loader, sink Sink, bus *EventBus, log zerolog.Logger) *CaseService {
	return &CaseService{
		loader: loader,
		sink:   sink,
		bus:    bus,
		log:    log,
	}
}

// Load re-runs pagination from scratch. On failure the previous dataset stays
// in place. A selection made before the reload is re-applied to the new data.
func (s *CaseService) Load(ctx context.Context) error {
	if !s.loading.CompareAndSwap(false, true) {
		return ErrLoadInProgress
	}
	defer s.loading.Store(false)

	start := time.Now()
	fc, err := s.loader.LoadAll(ctx)
	if err != nil {
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()

		s.log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("case load failed")
		s.bus.Publish(Event{Kind: KindDataset, Action: ActionLoadFailed, Err: err.Error()})
		return fmt.Errorf("load cases: %w", err)
	}

	if s.sink != nil {
		if err := s.sink.ReplaceCases(ctx, fc); err != nil {
			s.log.Warn().Err(err).Msg("replace cases in store")
		}
	}

	next := session.New(fc)

	s.mu.Lock()
	if sel := s.current.Selection(); sel.Active {
		next = next.Select(sel.Category)
	}
	s.current = next
	s.loaded = true
	s.loadedAt = time.Now()
	s.lastErr = nil
	s.mu.Unlock()

	stats := next.Stats()
	s.log.Info().
		Int("total", stats.Total).
		Int("open", stats.Open).
		Int("closed", stats.Closed).
		Int("categories", len(next.Rankings())).
		Dur("elapsed", time.Since(start)).
		Msg("cases loaded")
	s.bus.Publish(eventFor(KindDataset, ActionLoaded, next))
	return nil
}

// Session returns the current session.
func (s *CaseService) Session() (session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return session.Session{}, ErrNotLoaded
	}
	return s.current, nil
}

// Select filters the map to one category. Categories absent from the
// dataset are accepted and yield an empty visible subset.
func (s *CaseService) Select(category string) (session.Session, error) {
	next, err := s.transition(func(cur session.Session) session.Session {
		return cur.Select(category)
	})
	if err != nil {
		return session.Session{}, err
	}
	s.log.Debug().Str("category", category).Int("visible", len(next.Visible().Features)).Msg("category selected")
	s.bus.Publish(eventFor(KindSelection, ActionSelected, next))
	return next, nil
}

// Reset clears the category selection.
func (s *CaseService) Reset() (session.Session, error) {
	next, err := s.transition(session.Session.Reset)
	if err != nil {
		return session.Session{}, err
	}
	s.log.Debug().Msg("selection reset")
	s.bus.Publish(eventFor(KindSelection, ActionReset, next))
	return next, nil
}

func eventFor(kind, action string, s session.Session) Event {
	return Event{
		Kind:     kind,
		Action:   action,
		Category: s.Selection().Category,
		Cases:    len(s.Collection().Features),
		Visible:  len(s.Visible().Features),
	}
}

func (s *CaseService) transition(fn func(session.Session) session.Session) (session.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.loaded {
		return session.Session{}, ErrNotLoaded
	}
	s.current = fn(s.current)
	return s.current, nil
}

// LoadStatus reports the state of the dataset.
type LoadStatus struct {
	Loaded    bool      `json:"loaded" doc:"Whether a dataset is available"`
	Loading   bool      `json:"loading" doc:"Whether a load is running"`
	Cases     int       `json:"cases" doc:"Number of cases in the dataset"`
	LoadedAt  time.Time `json:"loadedAt,omitempty" doc:"Time of the last successful load"`
	LastError string    `json:"lastError,omitempty" doc:"Error of the last failed load"`
}

// Status returns the current load status.
func (s *CaseService) Status() LoadStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := LoadStatus{
		Loaded:   s.loaded,
		Loading:  s.loading.Load(),
		LoadedAt: s.loadedAt,
	}
	if s.loaded {
		st.Cases = s.current.Stats().Total
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

// Events exposes the bus for SSE subscribers.
func (s *CaseService) Events() *EventBus {
	return s.bus
}
