package wfs

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/paulmach/orb/geojson"
	"github.com/rs/zerolog"

	"github.com/joeblew999/geo311/internal/cases"
	"github.com/joeblew999/geo311/internal/metrics"
)

// ErrInvalidPageSize is returned when the page size could never produce a
// short page.
var ErrInvalidPageSize = errors.New("page size must be positive")

// Paginator loads every feature of a layer, one page at a time.
//
// The last page is detected by its length alone: a page holding fewer than
// pageSize features ends the load. Count members in the responses are
// ignored. This assumes the server never returns a short page before the
// true end; a final page of exactly pageSize features costs one extra,
// empty request.
type Paginator struct {
	fetcher  PageFetcher
	pageSize int
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// NewPaginator creates a paginator. m may be nil.
func NewPaginator(fetcher PageFetcher, pageSize int, log zerolog.Logger, m *metrics.Metrics) *Paginator {
	return &Paginator{
		fetcher:  fetcher,
		pageSize: pageSize,
		log:      log,
		metrics:  m,
	}
}

// accumulator is the running result of a load.
type accumulator struct {
	features []*geojson.Feature
	last     *geojson.FeatureCollection
	pages    int
}

// fold returns a new accumulator with page appended. acc is left untouched.
func fold(acc accumulator, page *geojson.FeatureCollection) accumulator {
	n := len(acc.features)
	return accumulator{
		features: append(acc.features[:n:n], page.Features...),
		last:     page,
		pages:    acc.pages + 1,
	}
}

func (acc accumulator) collection() *geojson.FeatureCollection {
	return cases.WithFeatures(acc.last, acc.features)
}

// LoadAll fetches pages sequentially from startIndex 0 until a short page.
// Any page failure aborts the whole load; no partial collection is returned.
func (p *Paginator) LoadAll(ctx context.Context) (*geojson.FeatureCollection, error) {
	if p.pageSize <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidPageSize, p.pageSize)
	}

	start := time.Now()
	acc := accumulator{}

	for offset := 0; ; offset += p.pageSize {
		page, err := p.fetcher.FetchPage(ctx, offset, p.pageSize)
		if err == nil && page == nil {
			err = errors.New("empty response")
		}
		if err != nil {
			p.metrics.ObserveLoad("error", time.Since(start))
			return nil, fmt.Errorf("load page %d (startIndex=%d): %w", acc.pages+1, offset, err)
		}

		acc = fold(acc, page)
		p.metrics.IncPageFetched()
		p.log.Debug().
			Int("page", acc.pages).
			Int("start_index", offset).
			Int("returned", len(page.Features)).
			Int("accumulated", len(acc.features)).
			Msg("wfs page fetched")

		if len(page.Features) < p.pageSize {
			break
		}
	}

	fc := acc.collection()
	p.metrics.ObserveLoad("ok", time.Since(start))
	p.metrics.SetCasesLoaded(len(fc.Features))
	p.log.Info().
		Int("pages", acc.pages).
		Int("features", len(fc.Features)).
		Dur("elapsed", time.Since(start)).
		Msg("wfs load complete")
	return fc, nil
}
