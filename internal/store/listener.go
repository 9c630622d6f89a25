package store

import (
	"context"
	"database/sql"

	"github.com/erazemk/reconnect/internal/event"
)

// EventRecorder persists the audit and notification records events carry.
type EventRecorder struct {
	DB *sql.DB
}

// Handle writes e's audit entry and notification, if any.
func (r EventRecorder) Handle(ctx context.Context, e event.Event) error {
	if a := e.Audit; a != nil {
		if _, err := AddAudit(ctx, r.DB, a.Action, a.Detail, a.Actor, a.Tag, e.Time); err != nil {
			return err
		}
	}
	if n := e.Notice; n != nil {
		if _, err := AddNotification(ctx, r.DB, n.Message, n.Tag, e.Time); err != nil {
			return err
		}
	}
	return nil
}
