package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/reconnect/internal/model"
)

const claimColumns = `id, item_id, item_name, claimant, claimant_id, verification_answer,
	unique_identifier, proof, status, requires_admin_approval, submitted_at`

func scanClaim(s rowScanner, c *model.Claim) error {
	return s.Scan(&c.ID, &c.ItemID, &c.ItemName, &c.Claimant, &c.ClaimantID, &c.VerificationAnswer,
		&c.UniqueIdentifier, &c.Proof, &c.Status, &c.RequiresAdminApproval, &c.SubmittedAt)
}

// CreateClaim stores a claim together with its initial audit trail and sets
// the claimed item's status to Claimed, in one transaction.
func CreateClaim(ctx context.Context, db *sql.DB, c *model.Claim) (*model.Claim, error) {
	if c.SubmittedAt.IsZero() {
		c.SubmittedAt = time.Now()
	}
	c.SubmittedAt = c.SubmittedAt.UTC()
	if c.ID == "" {
		c.ID = model.NewID("CLM", c.SubmittedAt)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO claims (`+claimColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.ItemID, c.ItemName, c.Claimant, c.ClaimantID, c.VerificationAnswer,
		c.UniqueIdentifier, c.Proof, c.Status, c.RequiresAdminApproval, c.SubmittedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating claim: %w", err)
	}

	for _, e := range c.AuditLog {
		if err := addClaimAudit(ctx, tx, c.ID, e); err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE items SET status = ? WHERE id = ?`, model.ItemStatusClaimed, c.ItemID,
	); err != nil {
		return nil, fmt.Errorf("updating claimed item: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	return GetClaim(ctx, db, c.ID)
}

func addClaimAudit(ctx context.Context, tx *sql.Tx, claimID string, e model.ClaimAuditEntry) error {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO claim_audit (claim_id, action, actor, at) VALUES (?, ?, ?, ?)`,
		claimID, e.Action, e.By, e.Time.UTC(),
	)
	if err != nil {
		return fmt.Errorf("adding claim audit entry: %w", err)
	}
	return nil
}

// GetClaim returns a claim by ID, with its audit trail.
func GetClaim(ctx context.Context, db *sql.DB, id string) (*model.Claim, error) {
	c := &model.Claim{}
	err := scanClaim(db.QueryRowContext(ctx,
		`SELECT `+claimColumns+` FROM claims WHERE id = ?`, id,
	), c)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting claim: %w", err)
	}

	trails, err := claimAudit(ctx, db, id)
	if err != nil {
		return nil, err
	}
	c.AuditLog = trails[id]
	return c, nil
}

// ClaimFilter narrows ListClaims. Zero fields don't filter.
type ClaimFilter struct {
	ItemID      string
	ClaimantID  int64
	PendingOnly bool
}

// ListClaims returns claims, newest first.
func ListClaims(ctx context.Context, db *sql.DB, f ClaimFilter) ([]model.Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM claims WHERE 1=1`
	var args []any

	if f.ItemID != "" {
		query += ` AND item_id = ?`
		args = append(args, f.ItemID)
	}
	if f.ClaimantID > 0 {
		query += ` AND claimant_id = ?`
		args = append(args, f.ClaimantID)
	}
	if f.PendingOnly {
		query += ` AND status IN (?, ?)`
		args = append(args, model.ClaimStatusPendingOwner, model.ClaimStatusPendingAdmin)
	}

	query += ` ORDER BY submitted_at DESC, rowid DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}

	var claims []model.Claim
	for rows.Next() {
		var c model.Claim
		if err := scanClaim(rows, &c); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning claim: %w", err)
		}
		claims = append(claims, c)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("listing claims: %w", err)
	}

	trails, err := claimAudit(ctx, db, "")
	if err != nil {
		return nil, err
	}
	for i := range claims {
		claims[i].AuditLog = trails[claims[i].ID]
	}
	return claims, nil
}

func claimAudit(ctx context.Context, db *sql.DB, claimID string) (map[string][]model.ClaimAuditEntry, error) {
	query := `SELECT claim_id, action, actor, at FROM claim_audit`
	var args []any
	if claimID != "" {
		query += ` WHERE claim_id = ?`
		args = append(args, claimID)
	}
	query += ` ORDER BY id`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing claim audit: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]model.ClaimAuditEntry)
	for rows.Next() {
		var id string
		var e model.ClaimAuditEntry
		if err := rows.Scan(&id, &e.Action, &e.By, &e.Time); err != nil {
			return nil, fmt.Errorf("scanning claim audit entry: %w", err)
		}
		out[id] = append(out[id], e)
	}
	return out, rows.Err()
}

// HasPendingClaim reports whether a claimant already has a pending claim on
// an item.
func HasPendingClaim(ctx context.Context, db *sql.DB, itemID string, claimantID int64) (bool, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claims WHERE item_id = ? AND claimant_id = ? AND status IN (?, ?)`,
		itemID, claimantID, model.ClaimStatusPendingOwner, model.ClaimStatusPendingAdmin,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("checking pending claims: %w", err)
	}
	return count > 0, nil
}

// CountPendingClaims returns the number of claims awaiting a decision.
func CountPendingClaims(ctx context.Context, db *sql.DB) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM claims WHERE status IN (?, ?)`,
		model.ClaimStatusPendingOwner, model.ClaimStatusPendingAdmin,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting pending claims: %w", err)
	}
	return count, nil
}

// DecideClaim moves a pending claim to status and appends entry to its audit
// trail. It reports false, changing nothing, if the claim is not pending.
func DecideClaim(ctx context.Context, db *sql.DB, id, status string, entry model.ClaimAuditEntry) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`UPDATE claims SET status = ? WHERE id = ? AND status IN (?, ?)`,
		status, id, model.ClaimStatusPendingOwner, model.ClaimStatusPendingAdmin,
	)
	if err != nil {
		return false, fmt.Errorf("updating claim status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("updating claim status: %w", err)
	}
	if n == 0 {
		return false, nil
	}

	if err := addClaimAudit(ctx, tx, id, entry); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing claim decision: %w", err)
	}
	return true, nil
}
