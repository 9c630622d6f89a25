// Package event decouples domain logic from the records it leaves behind.
// Matching, escalation and claim handling emit events; listeners persist them
// to the audit log and notification feed, or forward them elsewhere.
package event

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Event names.
const (
	ItemReported   = "item.reported"
	ItemReturned   = "item.returned"
	HighPriority   = "item.high_priority"
	MatchFound     = "match.found"
	Escalation24h  = "escalation.24h"
	Escalation72h  = "escalation.72h"
	Escalation7d   = "escalation.7d"
	ClaimSubmitted = "claim.submitted"
	ClaimApproved  = "claim.approved"
	ClaimRejected  = "claim.rejected"
	UserFlagged    = "user.flagged"
	UserUnflagged  = "user.unflagged"
)

// Audit is a record destined for the global audit log.
type Audit struct {
	Action string `json:"action"`
	Detail string `json:"detail"`
	Actor  string `json:"actor"`
	Tag    string `json:"tag"`
}

// Notice is a message destined for the notification feed.
type Notice struct {
	Message string `json:"message"`
	Tag     string `json:"tag"`
}

// Event is a domain occurrence. Either record may be nil.
type Event struct {
	Name    string    `json:"name"`
	Time    time.Time `json:"time"`
	ItemIDs []string  `json:"item_ids,omitempty"`
	Audit   *Audit    `json:"audit,omitempty"`
	Notice  *Notice   `json:"notice,omitempty"`
}

// Emitter accepts events. Emission is fire-and-forget.
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

// Listener consumes events published on a Bus.
type Listener interface {
	Handle(ctx context.Context, e Event) error
}

// ListenerFunc adapts a function to the Listener interface.
type ListenerFunc func(ctx context.Context, e Event) error

// Handle calls f.
func (f ListenerFunc) Handle(ctx context.Context, e Event) error {
	return f(ctx, e)
}

type subscription struct {
	name     string
	listener Listener
}

// Bus delivers each event synchronously to every subscribed listener, in
// subscription order. A failing listener is logged and does not stop delivery.
type Bus struct {
	mu   sync.RWMutex
	subs []subscription
	now  func() time.Time
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{now: time.Now}
}

// Subscribe registers a listener under a name used in logs.
func (b *Bus) Subscribe(name string, l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, subscription{name: name, listener: l})
}

// Emit stamps the event time if unset and delivers it.
func (b *Bus) Emit(ctx context.Context, e Event) {
	if e.Time.IsZero() {
		e.Time = b.now().UTC()
	}

	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()

	for _, s := range subs {
		if err := s.listener.Handle(ctx, e); err != nil {
			slog.Error("event listener failed", "listener", s.name, "event", e.Name, "error", err)
		}
	}
	slog.Debug("event emitted", "event", e.Name, "listeners", len(subs))
}

// Recorder is an Emitter that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit records the event.
func (r *Recorder) Emit(_ context.Context, e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Named returns the recorded events with the given name.
func (r *Recorder) Named(name string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// Notices returns the notices carried by recorded events.
func (r *Recorder) Notices() []Notice {
	var out []Notice
	for _, e := range r.Events() {
		if e.Notice != nil {
			out = append(out, *e.Notice)
		}
	}
	return out
}

// Reset forgets all recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
