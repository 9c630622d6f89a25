package match

import (
	"context"
	"fmt"
	"sort"

	"github.com/erazemk/reconnect/internal/event"
	"github.com/erazemk/reconnect/internal/model"
)

// DefaultThreshold is the lowest score that counts as a match.
const DefaultThreshold = 55

// Repository is the item storage the matcher reads and links through.
type Repository interface {
	// ListOpen returns Open items of a type, newest report first.
	ListOpen(ctx context.Context, itemType string) ([]model.Item, error)
	// Get returns an item by ID, or nil if it does not exist.
	Get(ctx context.Context, id string) (*model.Item, error)
	// Link records a symmetric match between two items. Linking twice is a no-op.
	Link(ctx context.Context, a, b string) error
}

// Candidate is an opposite-type report that scored at or above the threshold.
type Candidate struct {
	Item  model.Item `json:"item"`
	Score int        `json:"score"`
}

// Matcher scores new reports against open reports of the opposite type.
type Matcher struct {
	Items     Repository
	Events    event.Emitter
	Threshold int
}

// New creates a Matcher with the default threshold.
func New(items Repository, events event.Emitter) *Matcher {
	return &Matcher{Items: items, Events: events, Threshold: DefaultThreshold}
}

// Run scores item against every open report of the opposite type and returns
// the qualifying candidates, best first. The best candidate is linked to item
// and announced. Equal scores keep repository order, so the first report
// encountered wins a tie.
func (m *Matcher) Run(ctx context.Context, item *model.Item) ([]Candidate, error) {
	others, err := m.Items.ListOpen(ctx, model.OppositeType(item.Type))
	if err != nil {
		return nil, fmt.Errorf("listing match candidates: %w", err)
	}

	var candidates []Candidate
	for _, other := range others {
		if other.ID == item.ID {
			continue
		}
		var score int
		if item.Type == model.ItemTypeLost {
			score = Score(item, &other)
		} else {
			score = Score(&other, item)
		}
		if score >= m.Threshold {
			candidates = append(candidates, Candidate{Item: other, Score: score})
		}
	}

	if len(candidates) == 0 {
		return nil, nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	best := &candidates[0]
	if err := m.Items.Link(ctx, item.ID, best.Item.ID); err != nil {
		return nil, fmt.Errorf("linking match: %w", err)
	}
	if !item.HasMatch(best.Item.ID) {
		item.MatchIDs = append(item.MatchIDs, best.Item.ID)
	}
	if !best.Item.HasMatch(item.ID) {
		best.Item.MatchIDs = append(best.Item.MatchIDs, item.ID)
	}

	if m.Events != nil {
		m.Events.Emit(ctx, event.Event{
			Name:    event.MatchFound,
			ItemIDs: []string{item.ID, best.Item.ID},
			Notice: &event.Notice{
				Message: fmt.Sprintf("Smart Match Found! %q matches %q (Score: %d/100). Check item details.",
					item.Name, best.Item.Name, best.Score),
				Tag: model.TagMatch,
			},
			Audit: &event.Audit{
				Action: "Auto-Match Found",
				Detail: fmt.Sprintf("%s <-> %s (score: %d)", item.ID, best.Item.ID, best.Score),
				Actor:  model.ActorSystem,
				Tag:    model.TagMatch,
			},
		})
	}

	return candidates, nil
}

// MatchesFor resolves an item's linked match IDs, skipping IDs that no longer exist.
func (m *Matcher) MatchesFor(ctx context.Context, item *model.Item) ([]model.Item, error) {
	var out []model.Item
	for _, id := range item.MatchIDs {
		other, err := m.Items.Get(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("resolving match %s: %w", id, err)
		}
		if other != nil {
			out = append(out, *other)
		}
	}
	return out, nil
}
