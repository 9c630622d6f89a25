package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/reconnect/internal/model"
)

// Feed caps. Older rows are dropped as new ones arrive.
const (
	MaxAuditEntries  = 200
	MaxNotifications = 50
)

// AddAudit appends an entry to the audit log.
func AddAudit(ctx context.Context, db *sql.DB, action, detail, actor, tag string, at time.Time) (*model.AuditEntry, error) {
	at = at.UTC()
	e := &model.AuditEntry{
		ID:     model.NewID("AUD", at),
		Action: action,
		Detail: detail,
		By:     actor,
		Type:   tag,
		Time:   at,
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO audit_log (id, action, detail, actor, type, at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Action, e.Detail, e.By, e.Type, e.Time,
	)
	if err != nil {
		return nil, fmt.Errorf("adding audit entry: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`DELETE FROM audit_log WHERE rowid NOT IN (
		     SELECT rowid FROM audit_log ORDER BY at DESC, rowid DESC LIMIT ?)`,
		MaxAuditEntries,
	)
	if err != nil {
		return nil, fmt.Errorf("trimming audit log: %w", err)
	}
	return e, nil
}

// ListAudit returns audit entries, newest first. A limit of 0 returns all.
func ListAudit(ctx context.Context, db *sql.DB, limit int) ([]model.AuditEntry, error) {
	if limit <= 0 {
		limit = MaxAuditEntries
	}
	rows, err := db.QueryContext(ctx,
		`SELECT id, action, detail, actor, type, at FROM audit_log
		 ORDER BY at DESC, rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing audit log: %w", err)
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.Detail, &e.By, &e.Type, &e.Time); err != nil {
			return nil, fmt.Errorf("scanning audit entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
