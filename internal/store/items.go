package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/reconnect/internal/model"
)

const itemColumns = `id, type, category, name, description, location, event_date, status, priority,
	reported_by, reporter_id, reported_at, returned_at, verification_question, verification_answer,
	contact_preference, contact_info, storage_location, finder_contact, photo_mime,
	esc_24h, esc_72h, esc_7d`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(s rowScanner, item *model.Item) error {
	var photoMime sql.NullString
	if err := s.Scan(&item.ID, &item.Type, &item.Category, &item.Name, &item.Description,
		&item.Location, &item.Date, &item.Status, &item.Priority,
		&item.ReportedBy, &item.ReporterID, &item.ReportedAt, &item.ReturnedAt,
		&item.VerificationQuestion, &item.VerificationAnswer,
		&item.ContactPreference, &item.ContactInfo, &item.StorageLocation, &item.FinderContact,
		&photoMime, &item.Esc24h, &item.Esc72h, &item.Esc7d); err != nil {
		return err
	}
	item.PhotoMime = photoMime.String
	return nil
}

// CreateItem stores a new lost or found report. An ID is generated if unset,
// and the report time defaults to now.
func CreateItem(ctx context.Context, db *sql.DB, item *model.Item) (*model.Item, error) {
	if item.ReportedAt.IsZero() {
		item.ReportedAt = time.Now()
	}
	item.ReportedAt = item.ReportedAt.UTC()
	if item.ID == "" {
		item.ID = model.NewID("RC", item.ReportedAt)
	}
	if item.Status == "" {
		item.Status = model.ItemStatusOpen
	}
	if item.Priority == "" {
		item.Priority = model.PriorityNormal
	}

	_, err := db.ExecContext(ctx,
		`INSERT INTO items (id, type, category, name, description, location, event_date, status, priority,
		                    reported_by, reporter_id, reported_at, verification_question, verification_answer,
		                    contact_preference, contact_info, storage_location, finder_contact)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.Type, item.Category, item.Name, item.Description, item.Location, item.Date,
		item.Status, item.Priority, item.ReportedBy, item.ReporterID, item.ReportedAt,
		item.VerificationQuestion, item.VerificationAnswer,
		item.ContactPreference, item.ContactInfo, item.StorageLocation, item.FinderContact,
	)
	if err != nil {
		return nil, fmt.Errorf("creating item: %w", err)
	}

	return GetItem(ctx, db, item.ID)
}

// GetItem returns an item by ID, including its linked matches.
func GetItem(ctx context.Context, db *sql.DB, id string) (*model.Item, error) {
	item := &model.Item{}
	err := scanItem(db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE id = ?`, id,
	), item)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting item: %w", err)
	}

	matches, err := matchIDs(ctx, db, id)
	if err != nil {
		return nil, err
	}
	item.MatchIDs = matches[id]
	return item, nil
}

// ItemFilter narrows SearchItems. Zero fields don't filter.
type ItemFilter struct {
	Type     string
	Category string
	Location string
	// Priority is one of "urgent" (URGENT only), "high" (HIGH or URGENT) or
	// "normal" (NORMAL only).
	Priority string
	Status   string
	// Query is a case-insensitive substring over name, description,
	// category and location.
	Query string
}

// SearchItems returns items matching the filter, newest report first.
func SearchItems(ctx context.Context, db *sql.DB, f ItemFilter) ([]model.Item, error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE 1=1`
	var args []any

	if f.Type != "" {
		query += ` AND type = ?`
		args = append(args, f.Type)
	}
	if f.Category != "" {
		query += ` AND category = ?`
		args = append(args, f.Category)
	}
	if f.Location != "" {
		query += ` AND (location = ? OR storage_location = ?)`
		args = append(args, f.Location, f.Location)
	}
	switch strings.ToLower(f.Priority) {
	case "urgent":
		query += ` AND priority = ?`
		args = append(args, model.PriorityUrgent)
	case "high":
		query += ` AND priority != ?`
		args = append(args, model.PriorityNormal)
	case "normal":
		query += ` AND priority = ?`
		args = append(args, model.PriorityNormal)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		like := "%" + escapeLike(strings.ToLower(q)) + "%"
		query += ` AND (lower(name) LIKE ? ESCAPE '\' OR lower(description) LIKE ? ESCAPE '\'
		           OR lower(category) LIKE ? ESCAPE '\' OR lower(location) LIKE ? ESCAPE '\')`
		args = append(args, like, like, like, like)
	}

	query += ` ORDER BY reported_at DESC, rowid DESC`

	return queryItems(ctx, db, query, args...)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListItemsByType returns every item of a type, newest report first.
func ListItemsByType(ctx context.Context, db *sql.DB, itemType string) ([]model.Item, error) {
	return SearchItems(ctx, db, ItemFilter{Type: itemType})
}

// ListOpenItems returns Open items of a type, newest report first.
func ListOpenItems(ctx context.Context, db *sql.DB, itemType string) ([]model.Item, error) {
	return SearchItems(ctx, db, ItemFilter{Type: itemType, Status: model.ItemStatusOpen})
}

func queryItems(ctx context.Context, db *sql.DB, query string, args ...any) ([]model.Item, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	var items []model.Item
	for rows.Next() {
		var item model.Item
		if err := scanItem(rows, &item); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		items = append(items, item)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("listing items: %w", err)
	}

	// Rows must be closed before the next query: tests share one connection.
	matches, err := matchIDs(ctx, db, "")
	if err != nil {
		return nil, err
	}
	for i := range items {
		items[i].MatchIDs = matches[items[i].ID]
	}
	return items, nil
}

// matchIDs returns linked match IDs per item in link order, for one item or
// for all items if id is empty.
func matchIDs(ctx context.Context, db *sql.DB, id string) (map[string][]string, error) {
	query := `SELECT item_id, match_id FROM item_matches`
	var args []any
	if id != "" {
		query += ` WHERE item_id = ?`
		args = append(args, id)
	}
	query += ` ORDER BY rowid`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var itemID, matchID string
		if err := rows.Scan(&itemID, &matchID); err != nil {
			return nil, fmt.Errorf("scanning match: %w", err)
		}
		out[itemID] = append(out[itemID], matchID)
	}
	return out, rows.Err()
}

// LinkItems records a symmetric match between two items. Existing links are
// left alone.
func LinkItems(ctx context.Context, db *sql.DB, a, b string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO item_matches (item_id, match_id, linked_at) VALUES (?, ?, ?)`,
			pair[0], pair[1], now,
		); err != nil {
			return fmt.Errorf("linking items: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing link: %w", err)
	}
	return nil
}

// UpdateItemStatus sets an item's status.
func UpdateItemStatus(ctx context.Context, db *sql.DB, id, status string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET status = ? WHERE id = ?`, status, id,
	)
	if err != nil {
		return fmt.Errorf("updating item status: %w", err)
	}
	return nil
}

// MarkItemReturned sets an item's status to Returned and records when.
// It reports whether the item exists.
func MarkItemReturned(ctx context.Context, db *sql.DB, id string, at time.Time) (bool, error) {
	result, err := db.ExecContext(ctx,
		`UPDATE items SET status = ?, returned_at = ? WHERE id = ?`,
		model.ItemStatusReturned, at.UTC(), id,
	)
	if err != nil {
		return false, fmt.Errorf("marking item returned: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("marking item returned: %w", err)
	}
	return n > 0, nil
}

var escalationColumns = map[string]string{
	"24h":    "esc_24h",
	"72h":    "esc_72h",
	"7 Days": "esc_7d",
}

// MarkItemEscalated sets an escalation flag if it is still unset, and the
// status if status is not empty. Returned and Claimed items are left alone.
// It reports whether the flag changed, so concurrent runs fire each rung once.
func MarkItemEscalated(ctx context.Context, db *sql.DB, id, rung, status string) (bool, error) {
	col, ok := escalationColumns[rung]
	if !ok {
		return false, fmt.Errorf("unknown escalation rung %q", rung)
	}

	query := `UPDATE items SET ` + col + ` = 1`
	var args []any
	if status != "" {
		query += `, status = ?`
		args = append(args, status)
	}
	query += ` WHERE id = ? AND ` + col + ` = 0 AND status NOT IN (?, ?)`
	args = append(args, id, model.ItemStatusReturned, model.ItemStatusClaimed)

	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("escalating item: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("escalating item: %w", err)
	}
	return n > 0, nil
}

// SetItemPhoto sets an item's photo.
func SetItemPhoto(ctx context.Context, db *sql.DB, id string, photo []byte, mime string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE items SET photo = ?, photo_mime = ? WHERE id = ?`,
		photo, mime, id,
	)
	if err != nil {
		return fmt.Errorf("setting item photo: %w", err)
	}
	return nil
}

// GetItemPhoto returns an item's photo and MIME type. Both are empty if the
// item has no photo.
func GetItemPhoto(ctx context.Context, db *sql.DB, id string) ([]byte, string, error) {
	var photo []byte
	var mime sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT photo, photo_mime FROM items WHERE id = ?`, id,
	).Scan(&photo, &mime)
	if err == sql.ErrNoRows {
		return nil, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("getting item photo: %w", err)
	}
	return photo, mime.String, nil
}
