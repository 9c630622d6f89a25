// Package claim runs the ownership claim workflow: answer verification,
// attempt limits, temporary restrictions and admin decisions.
package claim

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/erazemk/reconnect/internal/event"
	"github.com/erazemk/reconnect/internal/model"
	"github.com/erazemk/reconnect/internal/store"
)

// Limits.
const (
	MaxAttempts  = 3
	FlagDuration = 24 * time.Hour
)

// Claim errors.
var (
	ErrItemNotFound       = errors.New("item not found")
	ErrItemUnavailable    = errors.New("item is not open for claims")
	ErrUserFlagged        = errors.New("claims are temporarily restricted for this account")
	ErrDuplicateClaim     = errors.New("a claim for this item is already pending")
	ErrAnswerRequired     = errors.New("verification answer is required")
	ErrIdentifierRequired = errors.New("unique identifier is required")
	ErrWrongAnswer        = errors.New("incorrect verification answer")
	ErrClaimNotFound      = errors.New("claim not found")
	ErrClaimNotPending    = errors.New("claim has already been decided")
	ErrNotFlagged         = errors.New("user is not restricted")
)

// WrongAnswerError reports a failed verification and how many attempts the
// claimant has left on the item. With none left the claimant is flagged.
type WrongAnswerError struct {
	Remaining int
}

func (e *WrongAnswerError) Error() string {
	if e.Remaining == 0 {
		return ErrWrongAnswer.Error() + "; no attempts left"
	}
	return fmt.Sprintf("%s; %d attempt(s) left", ErrWrongAnswer, e.Remaining)
}

// Is matches ErrWrongAnswer, and ErrUserFlagged once no attempts are left.
func (e *WrongAnswerError) Is(target error) bool {
	return target == ErrWrongAnswer || (e.Remaining == 0 && target == ErrUserFlagged)
}

// Claimant is the user submitting a claim.
type Claimant struct {
	ID   int64
	Name string
}

// Submission is a claim as entered by a claimant.
type Submission struct {
	ItemID     string
	Answer     string
	Identifier string
	Proof      string
}

// Returner closes an item as returned.
type Returner interface {
	MarkReturned(ctx context.Context, id, by string) (*model.Item, error)
}

// Service runs the claim workflow.
type Service struct {
	DB     *sql.DB
	Items  Returner
	Events event.Emitter
	Now    func() time.Time
}

// New creates a Service on the wall clock.
func New(db *sql.DB, items Returner, events event.Emitter) *Service {
	return &Service{DB: db, Items: items, Events: events, Now: time.Now}
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now().UTC()
	}
	return s.Now().UTC()
}

func (s *Service) emit(ctx context.Context, e event.Event) {
	if s.Events != nil {
		s.Events.Emit(ctx, e)
	}
}

func normalize(answer string) string {
	return strings.ToLower(strings.TrimSpace(answer))
}

// Submit verifies and files a claim. A wrong answer counts against the
// claimant's attempts on the item; running out flags the claimant for
// FlagDuration.
func (s *Service) Submit(ctx context.Context, sub Submission, who Claimant) (*model.Claim, error) {
	now := s.now()

	item, err := store.GetItem(ctx, s.DB, sub.ItemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}

	pending, err := store.HasPendingClaim(ctx, s.DB, item.ID, who.ID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, ErrDuplicateClaim
	}
	// Only open lost reports can be claimed.
	if item.Type != model.ItemTypeLost || item.Status != model.ItemStatusOpen {
		return nil, ErrItemUnavailable
	}

	flag, err := store.GetFlag(ctx, s.DB, who.ID)
	if err != nil {
		return nil, err
	}
	if flag != nil && flag.Active(now) {
		return nil, ErrUserFlagged
	}

	attempts, err := store.ClaimAttempts(ctx, s.DB, who.ID, item.ID)
	if err != nil {
		return nil, err
	}
	if attempts >= MaxAttempts {
		if err := s.flag(ctx, who, fmt.Sprintf("Exceeded %d claim attempts on %s", MaxAttempts, item.ID), now); err != nil {
			return nil, err
		}
		return nil, ErrUserFlagged
	}

	answer := normalize(sub.Answer)
	if answer == "" {
		return nil, ErrAnswerRequired
	}
	if answer != normalize(item.VerificationAnswer) {
		count, err := store.IncrementClaimAttempts(ctx, s.DB, who.ID, item.ID)
		if err != nil {
			return nil, err
		}
		left := max(0, MaxAttempts-count)
		slog.Warn("wrong claim answer", "item", item.ID, "user", who.ID, "attempts_left", left)
		if left == 0 {
			if err := s.flag(ctx, who, "Repeated incorrect claim answers", now); err != nil {
				return nil, err
			}
		}
		return nil, &WrongAnswerError{Remaining: left}
	}

	identifier := strings.TrimSpace(sub.Identifier)
	if identifier == "" {
		return nil, ErrIdentifierRequired
	}

	high := model.IsHighPriority(item.Priority)
	status, route := model.ClaimStatusPendingOwner, "Sent for Owner approval"
	if high {
		status, route = model.ClaimStatusPendingAdmin, "Sent for Owner + Admin approval"
	}

	c, err := store.CreateClaim(ctx, s.DB, &model.Claim{
		ItemID:                item.ID,
		ItemName:              item.Name,
		Claimant:              who.Name,
		ClaimantID:            who.ID,
		VerificationAnswer:    answer,
		UniqueIdentifier:      identifier,
		Proof:                 strings.TrimSpace(sub.Proof),
		Status:                status,
		RequiresAdminApproval: high,
		SubmittedAt:           now,
		AuditLog: []model.ClaimAuditEntry{
			{Action: "Claim submitted", Time: now, By: who.Name},
			{Action: "Verification passed", Time: now, By: model.ActorSystem},
			{Action: route, Time: now, By: model.ActorSystem},
		},
	})
	if err != nil {
		return nil, err
	}
	slog.Info("claim submitted", "claim", c.ID, "item", item.ID, "user", who.ID, "status", c.Status)

	s.emit(ctx, event.Event{
		Name:    event.ClaimSubmitted,
		Time:    now,
		ItemIDs: []string{item.ID},
		Audit: &event.Audit{
			Action: "Claim Submitted",
			Detail: fmt.Sprintf("%s claimed %q (%s)", who.Name, item.Name, item.ID),
			Actor:  who.Name,
			Tag:    model.TagClaim,
		},
		Notice: &event.Notice{
			Message: fmt.Sprintf("New claim by %s for %q, awaiting approval.", who.Name, item.Name),
			Tag:     model.TagClaim,
		},
	})
	return c, nil
}

func (s *Service) flag(ctx context.Context, who Claimant, reason string, now time.Time) error {
	written, err := store.FlagUser(ctx, s.DB, who.ID, reason, now, now.Add(FlagDuration))
	if err != nil {
		return err
	}
	if !written {
		return nil
	}
	slog.Warn("user flagged", "user", who.ID, "reason", reason)

	s.emit(ctx, event.Event{
		Name: event.UserFlagged,
		Time: now,
		Audit: &event.Audit{
			Action: "User Flagged",
			Detail: fmt.Sprintf("%s: %s", who.Name, reason),
			Actor:  model.ActorSystem,
			Tag:    model.TagFraud,
		},
	})
	return nil
}

func (s *Service) decide(ctx context.Context, id, status, action, by string) (*model.Claim, error) {
	c, err := store.GetClaim(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrClaimNotFound
	}

	ok, err := store.DecideClaim(ctx, s.DB, id, status, model.ClaimAuditEntry{Action: action, Time: s.now(), By: by})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrClaimNotPending
	}
	c.Status = status
	return c, nil
}

// Approve accepts a pending claim and returns the item to the claimant.
func (s *Service) Approve(ctx context.Context, id, by string) (*model.Claim, error) {
	c, err := s.decide(ctx, id, model.ClaimStatusApproved, "Claim approved by Admin", by)
	if err != nil {
		return nil, err
	}
	slog.Info("claim approved", "claim", id, "item", c.ItemID, "by", by)

	if s.Items != nil {
		if _, err := s.Items.MarkReturned(ctx, c.ItemID, by); err != nil {
			return nil, fmt.Errorf("returning claimed item: %w", err)
		}
	}

	now := s.now()
	s.emit(ctx, event.Event{
		Name:    event.ClaimApproved,
		Time:    now,
		ItemIDs: []string{c.ItemID},
		Audit: &event.Audit{
			Action: "Claim Approved",
			Detail: fmt.Sprintf("%s approved by %s", id, by),
			Actor:  by,
			Tag:    model.TagClaim,
		},
		Notice: &event.Notice{
			Message: fmt.Sprintf("Claim approved: %q returned to %s.", c.ItemName, c.Claimant),
			Tag:     model.TagSuccess,
		},
	})

	return store.GetClaim(ctx, s.DB, id)
}

// Reject turns down a pending claim. The item keeps its Claimed status
// until an admin resolves it.
func (s *Service) Reject(ctx context.Context, id, by string) (*model.Claim, error) {
	c, err := s.decide(ctx, id, model.ClaimStatusRejected, "Claim rejected by Admin", by)
	if err != nil {
		return nil, err
	}
	slog.Info("claim rejected", "claim", id, "item", c.ItemID, "by", by)

	s.emit(ctx, event.Event{
		Name:    event.ClaimRejected,
		Time:    s.now(),
		ItemIDs: []string{c.ItemID},
		Audit: &event.Audit{
			Action: "Claim Rejected",
			Detail: fmt.Sprintf("%s rejected by %s", id, by),
			Actor:  by,
			Tag:    model.TagFraud,
		},
	})

	return store.GetClaim(ctx, s.DB, id)
}

// Unflag lifts a user's restriction and clears their wrong-answer counts.
func (s *Service) Unflag(ctx context.Context, userID int64, by string) error {
	ok, err := store.UnflagUser(ctx, s.DB, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFlagged
	}
	if err := store.ResetClaimAttempts(ctx, s.DB, userID); err != nil {
		return err
	}
	slog.Info("user unflagged", "user", userID, "by", by)

	s.emit(ctx, event.Event{
		Name: event.UserUnflagged,
		Time: s.now(),
		Audit: &event.Audit{
			Action: "Restriction Lifted",
			Detail: fmt.Sprintf("%d unflagged by %s", userID, by),
			Actor:  by,
			Tag:    model.TagInfo,
		},
	})
	return nil
}
