package model

import "time"

// AuditEntry is a row in the global audit log.
type AuditEntry struct {
	ID     string    `json:"id"`
	Action string    `json:"action"`
	Detail string    `json:"detail"`
	By     string    `json:"by"`
	Time   time.Time `json:"time"`
	Type   string    `json:"type"`
}

// Notification is an entry in the admin notification feed.
type Notification struct {
	ID      string    `json:"id"`
	Message string    `json:"message"`
	Type    string    `json:"type"`
	Read    bool      `json:"read"`
	Time    time.Time `json:"time"`
}

// Audit and notification tags.
const (
	TagReport     = "report"
	TagMatch      = "match"
	TagClaim      = "claim"
	TagFraud      = "fraud"
	TagEscalation = "escalation"
	TagReturn     = "return"
	TagInfo       = "info"
	TagUrgent     = "urgent"
	TagSuccess    = "success"
)

// ActorSystem is the actor recorded for automatic actions.
const ActorSystem = "System"

// FlaggedUser is a temporary claim restriction.
type FlaggedUser struct {
	UserID    int64     `json:"user_id"`
	Username  string    `json:"username,omitempty"`
	Reason    string    `json:"reason"`
	FlaggedAt time.Time `json:"flagged_at"`
	Until     time.Time `json:"until"`
}

// Active reports whether the restriction still applies at now.
func (f *FlaggedUser) Active(now time.Time) bool {
	return f.Until.After(now)
}
