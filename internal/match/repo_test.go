package match

import (
	"context"
	"slices"

	"github.com/erazemk/reconnect/internal/model"
)

// memRepo is an in-memory Repository. Items are listed in insertion order.
type memRepo struct {
	order []string
	items map[string]*model.Item
	links int
}

func newMemRepo(items ...*model.Item) *memRepo {
	r := &memRepo{items: make(map[string]*model.Item)}
	for _, it := range items {
		r.add(it)
	}
	return r
}

func (r *memRepo) add(it *model.Item) {
	r.order = append(r.order, it.ID)
	r.items[it.ID] = it
}

func (r *memRepo) ListOpen(_ context.Context, itemType string) ([]model.Item, error) {
	var out []model.Item
	for _, id := range r.order {
		it := r.items[id]
		if it.Type == itemType && it.Status == model.ItemStatusOpen {
			cp := *it
			cp.MatchIDs = slices.Clone(it.MatchIDs)
			out = append(out, cp)
		}
	}
	return out, nil
}

func (r *memRepo) Get(_ context.Context, id string) (*model.Item, error) {
	it, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *it
	cp.MatchIDs = slices.Clone(it.MatchIDs)
	return &cp, nil
}

func (r *memRepo) Link(_ context.Context, a, b string) error {
	r.links++
	if it := r.items[a]; it != nil && !slices.Contains(it.MatchIDs, b) {
		it.MatchIDs = append(it.MatchIDs, b)
	}
	if it := r.items[b]; it != nil && !slices.Contains(it.MatchIDs, a) {
		it.MatchIDs = append(it.MatchIDs, a)
	}
	return nil
}
