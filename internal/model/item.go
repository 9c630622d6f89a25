package model

import (
	"slices"
	"time"
)

// Item is a lost or found report.
type Item struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Category    string     `json:"category"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Location    string     `json:"location,omitempty"`
	Date        string     `json:"date,omitempty"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	ReportedBy  string     `json:"reported_by"`
	ReporterID  *int64     `json:"reporter_id,omitempty"`
	ReportedAt  time.Time  `json:"reported_at"`
	ReturnedAt  *time.Time `json:"returned_at,omitempty"`
	MatchIDs    []string   `json:"match_ids"`

	// Lost reports only.
	VerificationQuestion string `json:"verification_question,omitempty"`
	VerificationAnswer   string `json:"-"`
	ContactPreference    string `json:"contact_preference,omitempty"`
	ContactInfo          string `json:"contact_info,omitempty"`
	Esc24h               bool   `json:"esc_24h,omitempty"`
	Esc72h               bool   `json:"esc_72h,omitempty"`
	Esc7d                bool   `json:"esc_7d,omitempty"`

	// Found reports only.
	StorageLocation string `json:"storage_location,omitempty"`
	FinderContact   string `json:"finder_contact,omitempty"`

	PhotoMime string `json:"photo_mime,omitempty"`
}

// Item types.
const (
	ItemTypeLost  = "lost"
	ItemTypeFound = "found"
)

// Item statuses.
const (
	ItemStatusOpen      = "Open"
	ItemStatusClaimed   = "Claimed"
	ItemStatusReturned  = "Returned"
	ItemStatusUnclaimed = "Unclaimed"
)

// Priorities.
const (
	PriorityNormal = "NORMAL"
	PriorityHigh   = "HIGH"
	PriorityUrgent = "URGENT"
)

// CategoryOther lets a reporter describe a category not in the list.
const CategoryOther = "Other"

// Categories lists the report categories offered to users.
var Categories = []string{
	"ID Card", "Wallet", "Phone", "Laptop", "Keys",
	"Documents", "Exam Ticket", "Electronics", "Bag / Backpack",
	"Accessories", "Clothing", "Books", CategoryOther,
}

var highPriorityCategories = map[string]bool{
	"ID Card":     true,
	"Wallet":      true,
	"Phone":       true,
	"Laptop":      true,
	"Keys":        true,
	"Documents":   true,
	"Exam Ticket": true,
}

// ClassifyPriority derives a report's priority. It runs once, at creation.
func ClassifyPriority(category string, urgent bool) string {
	if urgent {
		return PriorityUrgent
	}
	if highPriorityCategories[category] {
		return PriorityHigh
	}
	return PriorityNormal
}

// IsHighPriority reports whether a priority is HIGH or URGENT.
func IsHighPriority(priority string) bool {
	return priority == PriorityHigh || priority == PriorityUrgent
}

// OppositeType returns the item type a report is matched against.
func OppositeType(itemType string) string {
	if itemType == ItemTypeLost {
		return ItemTypeFound
	}
	return ItemTypeLost
}

// ValidItemType checks an item type string.
func ValidItemType(t string) bool {
	return t == ItemTypeLost || t == ItemTypeFound
}

// ValidItemStatus checks an item status string.
func ValidItemStatus(s string) bool {
	switch s {
	case ItemStatusOpen, ItemStatusClaimed, ItemStatusReturned, ItemStatusUnclaimed:
		return true
	}
	return false
}

// HasMatch reports whether id is among the item's linked matches.
func (i *Item) HasMatch(id string) bool {
	return slices.Contains(i.MatchIDs, id)
}

// Resolved reports whether the item no longer awaits resolution.
func (i *Item) Resolved() bool {
	return i.Status == ItemStatusReturned || i.Status == ItemStatusClaimed
}
