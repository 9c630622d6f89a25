package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/reconnect/internal/db"
	"github.com/erazemk/reconnect/internal/model"
)

func TestGetStats(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()
	now := t0.Add(48 * time.Hour)

	lost := mustCreateItem(t, database, model.Item{Type: model.ItemTypeLost, Category: "Wallet", Name: "Wallet",
		Priority: model.PriorityHigh, ReportedAt: now.Add(-time.Hour)})
	found := mustCreateItem(t, database, model.Item{Type: model.ItemTypeFound, Category: "Wallet", Name: "Wallet",
		ReportedAt: now.Add(-30 * time.Hour)})
	returned := mustCreateItem(t, database, model.Item{Type: model.ItemTypeLost, Category: "Keys", Name: "Keys",
		Priority: model.PriorityUrgent, ReportedAt: t0})
	claimed := mustCreateItem(t, database, model.Item{Type: model.ItemTypeLost, Category: "Books", Name: "Book",
		ReportedAt: t0})

	LinkItems(ctx, database, lost.ID, found.ID)
	MarkItemReturned(ctx, database, returned.ID, now)
	mustCreateClaim(t, database, claimed.ID, 1, now)

	s, err := GetStats(ctx, database, now)
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	want := Stats{Total: 4, Recovered: 1, Today: 1, Matches: 1, Pending: 1, HighPriority: 1}
	if *s != want {
		t.Errorf("expected %+v, got %+v", want, *s)
	}
}

func TestGetAnalytics(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	reports := []model.Item{
		{Type: model.ItemTypeLost, Category: "Keys", Name: "a", Location: "Library", ReportedAt: day.Add(2 * time.Hour)},
		{Type: model.ItemTypeLost, Category: "Keys", Name: "b", Location: "Library", ReportedAt: day.Add(9 * time.Hour)},
		{Type: model.ItemTypeLost, Category: "Phone", Name: "c", Location: "Gym", ReportedAt: day.Add(13 * time.Hour)},
		{Type: model.ItemTypeLost, Category: "Wallet", Name: "d", ReportedAt: day.Add(20 * time.Hour)},
		{Type: model.ItemTypeFound, Category: "Keys", Name: "e", Location: "Cafeteria", ReportedAt: day.Add(21 * time.Hour)},
	}
	for _, r := range reports {
		mustCreateItem(t, database, r)
	}

	a, err := GetAnalytics(ctx, database, time.UTC)
	if err != nil {
		t.Fatalf("GetAnalytics: %v", err)
	}

	if len(a.LostLocations) != 3 || a.LostLocations[0] != (Count{"Library", 2}) {
		t.Errorf("unexpected lost locations: %+v", a.LostLocations)
	}
	for _, c := range a.LostLocations {
		if c.Label == "Cafeteria" {
			t.Error("found reports must not count toward lost locations")
		}
	}
	if a.LostLocations[2] != (Count{"Unknown", 1}) {
		t.Errorf("expected blank location counted as Unknown, got %+v", a.LostLocations[2])
	}

	if a.Categories[0] != (Count{"Keys", 3}) {
		t.Errorf("expected Keys first with 3, got %+v", a.Categories[0])
	}

	want := []int{1, 1, 1, 1}
	for i, c := range a.TimeOfDay {
		if c.Count != want[i] {
			t.Errorf("period %q: expected %d, got %d", c.Label, want[i], c.Count)
		}
	}
}

func TestTopTruncatesAndBreaksTies(t *testing.T) {
	got := top(map[string]int{"g": 1, "f": 1, "e": 1, "d": 1, "c": 1, "b": 2, "a": 1}, TopN)
	if len(got) != TopN {
		t.Fatalf("expected %d entries, got %d", TopN, len(got))
	}
	if got[0].Label != "b" || got[1].Label != "a" || got[5].Label != "f" {
		t.Errorf("unexpected order: %+v", got)
	}
}
