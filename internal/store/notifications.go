package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/reconnect/internal/model"
)

// AddNotification appends a message to the notification feed.
func AddNotification(ctx context.Context, db *sql.DB, message, tag string, at time.Time) (*model.Notification, error) {
	at = at.UTC()
	n := &model.Notification{
		ID:      model.NewID("N", at),
		Message: message,
		Type:    tag,
		Time:    at,
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO notifications (id, message, type, read, at) VALUES (?, ?, ?, 0, ?)`,
		n.ID, n.Message, n.Type, n.Time,
	)
	if err != nil {
		return nil, fmt.Errorf("adding notification: %w", err)
	}

	_, err = db.ExecContext(ctx,
		`DELETE FROM notifications WHERE rowid NOT IN (
		     SELECT rowid FROM notifications ORDER BY at DESC, rowid DESC LIMIT ?)`,
		MaxNotifications,
	)
	if err != nil {
		return nil, fmt.Errorf("trimming notifications: %w", err)
	}
	return n, nil
}

// ListNotifications returns the feed, newest first.
func ListNotifications(ctx context.Context, db *sql.DB) ([]model.Notification, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, message, type, read, at FROM notifications ORDER BY at DESC, rowid DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.Message, &n.Type, &n.Read, &n.Time); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// CountUnreadNotifications returns how many notifications are unread.
func CountUnreadNotifications(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE read = 0`,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting unread notifications: %w", err)
	}
	return n, nil
}

// MarkNotificationRead marks one notification read. It reports whether the
// notification exists.
func MarkNotificationRead(ctx context.Context, db *sql.DB, id string) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ?`, id,
	)
	if err != nil {
		return false, fmt.Errorf("marking notification read: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("marking notification read: %w", err)
	}
	return n > 0, nil
}

// MarkAllNotificationsRead marks the whole feed read.
func MarkAllNotificationsRead(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE read = 0`); err != nil {
		return fmt.Errorf("marking notifications read: %w", err)
	}
	return nil
}
