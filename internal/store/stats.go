package store

import (
	"cmp"
	"context"
	"database/sql"
	"slices"
	"time"

	"github.com/erazemk/reconnect/internal/model"
)

// Stats summarizes the service for the admin dashboard.
type Stats struct {
	Total        int `json:"total"`
	Recovered    int `json:"recovered"`
	Today        int `json:"today"`
	Matches      int `json:"matches"`
	Pending      int `json:"pending"`
	HighPriority int `json:"high_priority"`
}

// GetStats computes dashboard counters as of now.
func GetStats(ctx context.Context, db *sql.DB, now time.Time) (*Stats, error) {
	items, err := SearchItems(ctx, db, ItemFilter{})
	if err != nil {
		return nil, err
	}

	s := &Stats{Total: len(items)}
	matched := 0
	for _, it := range items {
		if it.Status == model.ItemStatusReturned {
			s.Recovered++
		}
		if now.Sub(it.ReportedAt) < 24*time.Hour {
			s.Today++
		}
		if len(it.MatchIDs) > 0 {
			matched++
		}
		if model.IsHighPriority(it.Priority) && it.Status == model.ItemStatusOpen {
			s.HighPriority++
		}
	}
	// Each match links two items.
	s.Matches = matched / 2

	s.Pending, err = CountPendingClaims(ctx, db)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Count is a labelled tally.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Analytics breaks reports down for the admin dashboard.
type Analytics struct {
	// LostLocations are the most frequent places items are lost.
	LostLocations []Count `json:"lost_locations"`
	// Categories are the most frequent categories over all reports.
	Categories []Count `json:"categories"`
	// TimeOfDay counts lost reports by the period of day they were filed.
	TimeOfDay []Count `json:"time_of_day"`
}

// TopN is how many locations and categories analytics return.
const TopN = 6

var periods = []struct {
	label      string
	start, end int
}{
	{"Night (12am-6am)", 0, 6},
	{"Morning (6am-12pm)", 6, 12},
	{"Afternoon (12pm-6pm)", 12, 18},
	{"Evening (6pm-12am)", 18, 24},
}

// GetAnalytics computes report breakdowns. Hours of day are taken in loc.
func GetAnalytics(ctx context.Context, db *sql.DB, loc *time.Location) (*Analytics, error) {
	items, err := SearchItems(ctx, db, ItemFilter{})
	if err != nil {
		return nil, err
	}
	if loc == nil {
		loc = time.Local
	}

	locations := make(map[string]int)
	categories := make(map[string]int)
	timeOfDay := make([]int, len(periods))

	for _, it := range items {
		categories[it.Category]++
		if it.Type != model.ItemTypeLost {
			continue
		}
		where := it.Location
		if where == "" {
			where = "Unknown"
		}
		locations[where]++

		hour := it.ReportedAt.In(loc).Hour()
		for i, p := range periods {
			if hour >= p.start && hour < p.end {
				timeOfDay[i]++
			}
		}
	}

	a := &Analytics{
		LostLocations: top(locations, TopN),
		Categories:    top(categories, TopN),
	}
	for i, p := range periods {
		a.TimeOfDay = append(a.TimeOfDay, Count{Label: p.label, Count: timeOfDay[i]})
	}
	return a, nil
}

// top returns the n largest tallies, ties broken by label.
func top(m map[string]int, n int) []Count {
	counts := make([]Count, 0, len(m))
	for label, c := range m {
		counts = append(counts, Count{Label: label, Count: c})
	}
	slices.SortFunc(counts, func(a, b Count) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}
