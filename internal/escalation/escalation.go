// Package escalation drives the lost-item escalation ladder: a reminder at
// 24 hours, an admin alert at 72 hours and an Unclaimed status at 7 days.
package escalation

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/erazemk/reconnect/internal/event"
	"github.com/erazemk/reconnect/internal/model"
)

// Rung is a step on the escalation ladder.
type Rung int

// Rungs, lowest first.
const (
	RungNone Rung = iota
	Rung24h
	Rung72h
	Rung7d
)

var rungs = []Rung{Rung24h, Rung72h, Rung7d}

// String returns the rung's display label.
func (r Rung) String() string {
	switch r {
	case Rung24h:
		return "24h"
	case Rung72h:
		return "72h"
	case Rung7d:
		return "7 Days"
	}
	return ""
}

// Threshold returns the item age at which the rung applies.
func (r Rung) Threshold() time.Duration {
	switch r {
	case Rung24h:
		return 24 * time.Hour
	case Rung72h:
		return 72 * time.Hour
	case Rung7d:
		return 168 * time.Hour
	}
	return 0
}

// MarshalText encodes the rung as its label, empty for RungNone.
func (r Rung) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// Repository is the item storage the escalator reads and flags through.
type Repository interface {
	ListByType(ctx context.Context, itemType string) ([]model.Item, error)
	// MarkEscalated sets the rung's flag if it is still unset, and the status
	// if newStatus is not empty. It reports whether the flag changed.
	MarkEscalated(ctx context.Context, id string, rung Rung, newStatus string) (bool, error)
}

// Escalator applies the ladder to every unresolved lost item.
type Escalator struct {
	Items  Repository
	Events event.Emitter
	Now    func() time.Time
}

// New creates an Escalator on the wall clock.
func New(items Repository, events event.Emitter) *Escalator {
	return &Escalator{Items: items, Events: events, Now: time.Now}
}

func (e *Escalator) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

// Level returns the rung that applies to item by age alone. Found items and
// items already Returned or Claimed have no level.
func Level(item *model.Item, now time.Time) Rung {
	if item == nil || item.Type != model.ItemTypeLost || item.Resolved() {
		return RungNone
	}
	age := now.Sub(item.ReportedAt)
	for i := len(rungs) - 1; i >= 0; i-- {
		if age >= rungs[i].Threshold() {
			return rungs[i]
		}
	}
	return RungNone
}

// NextIn returns the next rung item will reach and the time left until it
// does. It returns false once the top rung has been reached.
func NextIn(item *model.Item, now time.Time) (Rung, time.Duration, bool) {
	age := now.Sub(item.ReportedAt)
	for _, r := range rungs {
		if age < r.Threshold() {
			return r, r.Threshold() - age, true
		}
	}
	return RungNone, 0, false
}

// FormatNext renders a NextIn result, for example "5h to 72h".
func FormatNext(r Rung, left time.Duration, ok bool) string {
	if !ok {
		return "Max escalation reached"
	}
	hours := left.Hours()
	switch {
	case hours < 1:
		return fmt.Sprintf("< 1h to %s", r)
	case hours < 24:
		return fmt.Sprintf("%dh to %s", int(math.Round(hours)), r)
	default:
		return fmt.Sprintf("%dd to %s", int(math.Round(hours/24)), r)
	}
}

func flagged(item *model.Item, r Rung) bool {
	switch r {
	case Rung24h:
		return item.Esc24h
	case Rung72h:
		return item.Esc72h
	case Rung7d:
		return item.Esc7d
	}
	return true
}

// Run applies the highest applicable rung to each unresolved lost item whose
// flag for that rung is still unset. Lower rungs an item skipped over are
// never fired afterwards. It returns how many rungs fired.
func (e *Escalator) Run(ctx context.Context) (int, error) {
	items, err := e.Items.ListByType(ctx, model.ItemTypeLost)
	if err != nil {
		return 0, fmt.Errorf("listing lost items: %w", err)
	}

	now := e.now()
	fired := 0
	for i := range items {
		item := &items[i]
		r := Level(item, now)
		if r == RungNone || flagged(item, r) {
			continue
		}

		var status string
		if r == Rung7d {
			status = model.ItemStatusUnclaimed
		}
		changed, err := e.Items.MarkEscalated(ctx, item.ID, r, status)
		if err != nil {
			return fired, fmt.Errorf("escalating item %s: %w", item.ID, err)
		}
		if !changed {
			// Another run got there first.
			continue
		}
		fired++
		e.emit(ctx, item, r, now)
	}
	return fired, nil
}

func (e *Escalator) emit(ctx context.Context, item *model.Item, r Rung, now time.Time) {
	if e.Events == nil {
		return
	}

	ev := event.Event{Time: now, ItemIDs: []string{item.ID}}
	switch r {
	case Rung7d:
		ev.Name = event.Escalation7d
		ev.Audit = &event.Audit{
			Action: "Escalation: 7 Days",
			Detail: fmt.Sprintf("%q (%s) marked UNCLAIMED – no resolution", item.Name, item.ID),
			Actor:  model.ActorSystem,
			Tag:    model.TagEscalation,
		}
		ev.Notice = &event.Notice{
			Message: fmt.Sprintf("7-DAY ESCALATION: %q marked UNCLAIMED. Immediate admin action needed.", item.Name),
			Tag:     model.TagUrgent,
		}
	case Rung72h:
		ev.Name = event.Escalation72h
		ev.Audit = &event.Audit{
			Action: "Escalation: 72 Hours",
			Detail: fmt.Sprintf("%q open for 3+ days without resolution", item.Name),
			Actor:  model.ActorSystem,
			Tag:    model.TagEscalation,
		}
		ev.Notice = &event.Notice{
			Message: fmt.Sprintf("72h ESCALATION: %q still unresolved. Admin review required.", item.Name),
			Tag:     model.TagUrgent,
		}
	case Rung24h:
		// The reminder only makes sense when there is a match to chase.
		if len(item.MatchIDs) == 0 {
			return
		}
		ev.Name = event.Escalation24h
		ev.Notice = &event.Notice{
			Message: fmt.Sprintf("24h REMINDER: %q has a smart match (%s) but no claim made yet.",
				item.Name, item.MatchIDs[0]),
			Tag: model.TagMatch,
		}
	}
	e.Events.Emit(ctx, ev)
}
