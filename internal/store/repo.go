package store

import (
	"context"
	"database/sql"

	"github.com/erazemk/reconnect/internal/escalation"
	"github.com/erazemk/reconnect/internal/model"
)

// ItemRepo serves the matcher and the escalator from the database.
type ItemRepo struct {
	DB *sql.DB
}

// ListOpen returns Open items of a type, newest first.
func (r ItemRepo) ListOpen(ctx context.Context, itemType string) ([]model.Item, error) {
	return ListOpenItems(ctx, r.DB, itemType)
}

// ListByType returns all items of a type, newest first.
func (r ItemRepo) ListByType(ctx context.Context, itemType string) ([]model.Item, error) {
	return ListItemsByType(ctx, r.DB, itemType)
}

// Get returns an item by ID, or nil.
func (r ItemRepo) Get(ctx context.Context, id string) (*model.Item, error) {
	return GetItem(ctx, r.DB, id)
}

// Link records a symmetric match.
func (r ItemRepo) Link(ctx context.Context, a, b string) error {
	return LinkItems(ctx, r.DB, a, b)
}

// MarkEscalated sets a rung's flag once.
func (r ItemRepo) MarkEscalated(ctx context.Context, id string, rung escalation.Rung, status string) (bool, error) {
	return MarkItemEscalated(ctx, r.DB, id, rung.String(), status)
}
