package cases

import (
	"cmp"
	"slices"

	"github.com/paulmach/orb/geojson"
)

// Stats summarizes case counts. Open+Closed never exceeds Total.
type Stats struct {
	Total  int `json:"total" doc:"Total number of cases" example:"1520"`
	Open   int `json:"open" doc:"Cases with status Open" example:"312"`
	Closed int `json:"closed" doc:"Cases with status Closed" example:"1208"`
}

// CategoryCount is the number of open cases of one request type.
type CategoryCount struct {
	Category string `json:"category" doc:"Request type (empty when uncategorized)" example:"Graffiti"`
	Count    int    `json:"count" doc:"Number of open cases" example:"42"`
}

type rankEntry struct {
	CategoryCount
	firstSeen int
}

// Summarize computes the case statistics and the open-case ranking of fc.
//
// The ranking is ordered by count descending; equal counts keep the order in
// which their categories were first seen while scanning fc.
func Summarize(fc *geojson.FeatureCollection) (Stats, []CategoryCount) {
	if fc == nil {
		return Stats{}, []CategoryCount{}
	}

	stats := Stats{Total: len(fc.Features)}
	index := make(map[string]int)
	var entries []rankEntry

	for _, f := range fc.Features {
		switch Status(f) {
		case StatusOpen:
			stats.Open++
		case StatusClosed:
			stats.Closed++
			continue
		default:
			continue
		}

		category := Category(f)
		i, ok := index[category]
		if !ok {
			i = len(entries)
			index[category] = i
			entries = append(entries, rankEntry{
				CategoryCount: CategoryCount{Category: category},
				firstSeen:     i,
			})
		}
		entries[i].Count++
	}

	slices.SortFunc(entries, func(a, b rankEntry) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.firstSeen, b.firstSeen)
	})

	ranking := make([]CategoryCount, len(entries))
	for i, e := range entries {
		ranking[i] = e.CategoryCount
	}
	return stats, ranking
}

// TopCategories returns the first n entries of ranking. n <= 0 returns all.
func TopCategories(ranking []CategoryCount, n int) []CategoryCount {
	if n <= 0 || n > len(ranking) {
		n = len(ranking)
	}
	return slices.Clone(ranking[:n])
}
