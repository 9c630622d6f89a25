package model

import (
	"strings"
	"time"
)

// Claim is an ownership claim on a reported item.
type Claim struct {
	ID                    string            `json:"id"`
	ItemID                string            `json:"item_id"`
	ItemName              string            `json:"item_name"`
	Claimant              string            `json:"claimant"`
	ClaimantID            int64             `json:"claimant_id"`
	VerificationAnswer    string            `json:"-"`
	UniqueIdentifier      string            `json:"unique_identifier"`
	Proof                 string            `json:"proof,omitempty"`
	Status                string            `json:"status"`
	RequiresAdminApproval bool              `json:"requires_admin_approval"`
	SubmittedAt           time.Time         `json:"submitted_at"`
	AuditLog              []ClaimAuditEntry `json:"audit_log"`
}

// ClaimAuditEntry is one step in a claim's append-only trail.
type ClaimAuditEntry struct {
	Action string    `json:"action"`
	Time   time.Time `json:"time"`
	By     string    `json:"by"`
}

// Claim statuses.
const (
	ClaimStatusPendingOwner = "Pending Owner Approval"
	ClaimStatusPendingAdmin = "Pending Admin Approval"
	ClaimStatusApproved     = "Approved"
	ClaimStatusRejected     = "Rejected"
)

// IsPending reports whether the claim still awaits a decision.
func (c *Claim) IsPending() bool {
	return strings.HasPrefix(c.Status, "Pending")
}
