package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/reconnect/internal/model"
)

// ClaimAttempts returns how many wrong answers a user has given for an item.
func ClaimAttempts(ctx context.Context, db *sql.DB, userID int64, itemID string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT count FROM claim_attempts WHERE user_id = ? AND item_id = ?`, userID, itemID,
	).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("getting claim attempts: %w", err)
	}
	return count, nil
}

// IncrementClaimAttempts records a wrong answer and returns the new count.
func IncrementClaimAttempts(ctx context.Context, db *sql.DB, userID int64, itemID string) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`INSERT INTO claim_attempts (user_id, item_id, count) VALUES (?, ?, 1)
		 ON CONFLICT (user_id, item_id) DO UPDATE SET count = count + 1
		 RETURNING count`,
		userID, itemID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("incrementing claim attempts: %w", err)
	}
	return count, nil
}

// ResetClaimAttempts forgets all of a user's wrong answers.
func ResetClaimAttempts(ctx context.Context, db *sql.DB, userID int64) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM claim_attempts WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("resetting claim attempts: %w", err)
	}
	return nil
}

// FlagUser restricts a user from claiming until until. A restriction that is
// still active is left unchanged. It reports whether a flag was written.
func FlagUser(ctx context.Context, db *sql.DB, userID int64, reason string, at, until time.Time) (bool, error) {
	result, err := db.ExecContext(ctx,
		`INSERT INTO flagged_users (user_id, reason, flagged_at, until) VALUES (?, ?, ?, ?)
		 ON CONFLICT (user_id) DO UPDATE
		 SET reason = excluded.reason, flagged_at = excluded.flagged_at, until = excluded.until
		 WHERE flagged_users.until <= excluded.flagged_at`,
		userID, reason, at.UTC(), until.UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("flagging user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("flagging user: %w", err)
	}
	return n > 0, nil
}

// GetFlag returns a user's restriction, active or expired, or nil.
func GetFlag(ctx context.Context, db *sql.DB, userID int64) (*model.FlaggedUser, error) {
	f := &model.FlaggedUser{}
	err := db.QueryRowContext(ctx,
		`SELECT f.user_id, COALESCE(u.username, ''), f.reason, f.flagged_at, f.until
		 FROM flagged_users f LEFT JOIN users u ON u.id = f.user_id
		 WHERE f.user_id = ?`, userID,
	).Scan(&f.UserID, &f.Username, &f.Reason, &f.FlaggedAt, &f.Until)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting flag: %w", err)
	}
	return f, nil
}

// ListFlaggedUsers returns restrictions still active at now, newest first.
func ListFlaggedUsers(ctx context.Context, db *sql.DB, now time.Time) ([]model.FlaggedUser, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT f.user_id, COALESCE(u.username, ''), f.reason, f.flagged_at, f.until
		 FROM flagged_users f LEFT JOIN users u ON u.id = f.user_id
		 WHERE f.until > ?
		 ORDER BY f.flagged_at DESC`, now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing flagged users: %w", err)
	}
	defer rows.Close()

	var out []model.FlaggedUser
	for rows.Next() {
		var f model.FlaggedUser
		if err := rows.Scan(&f.UserID, &f.Username, &f.Reason, &f.FlaggedAt, &f.Until); err != nil {
			return nil, fmt.Errorf("scanning flagged user: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// UnflagUser lifts a restriction. It reports whether one existed.
func UnflagUser(ctx context.Context, db *sql.DB, userID int64) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM flagged_users WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("unflagging user: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("unflagging user: %w", err)
	}
	return n > 0, nil
}
