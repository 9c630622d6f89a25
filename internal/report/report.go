// Package report files lost and found reports and closes them out.
package report

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/erazemk/reconnect/internal/event"
	"github.com/erazemk/reconnect/internal/imaging"
	"github.com/erazemk/reconnect/internal/match"
	"github.com/erazemk/reconnect/internal/model"
	"github.com/erazemk/reconnect/internal/store"
)

// ErrItemNotFound is returned for operations on an unknown item.
var ErrItemNotFound = errors.New("item not found")

// Reporter identifies who files a report.
type Reporter struct {
	Name string
	ID   *int64
}

// LostReport describes a lost item.
type LostReport struct {
	Category string
	// CustomCategory replaces the "Other" category when set.
	CustomCategory       string
	Name                 string
	Description          string
	Location             string
	Date                 string
	Urgent               bool
	VerificationQuestion string
	VerificationAnswer   string
	ContactPreference    string
	ContactInfo          string
}

// FoundReport describes a found item.
type FoundReport struct {
	Category        string
	CustomCategory  string
	Name            string
	Description     string
	Location        string
	Date            string
	StorageLocation string
	FinderContact   string
}

// Result is a filed report and the matches it produced.
type Result struct {
	Item       *model.Item       `json:"item"`
	Candidates []match.Candidate `json:"candidates"`
}

// Service files reports.
type Service struct {
	DB      *sql.DB
	Matcher *match.Matcher
	Events  event.Emitter
	Now     func() time.Time
}

// New creates a Service on the wall clock.
func New(db *sql.DB, matcher *match.Matcher, events event.Emitter) *Service {
	return &Service{DB: db, Matcher: matcher, Events: events, Now: time.Now}
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

func category(c, custom string) string {
	if c == model.CategoryOther && strings.TrimSpace(custom) != "" {
		return strings.TrimSpace(custom)
	}
	return c
}

func actor(by Reporter) string {
	if by.Name == "" {
		return "User"
	}
	return by.Name
}

// ReportLost files a lost report, derives its priority and runs the matcher.
func (s *Service) ReportLost(ctx context.Context, r LostReport, by Reporter) (*Result, error) {
	now := s.now()
	item := &model.Item{
		Type:                 model.ItemTypeLost,
		Category:             category(r.Category, r.CustomCategory),
		Name:                 r.Name,
		Description:          r.Description,
		Location:             r.Location,
		Date:                 r.Date,
		Priority:             model.ClassifyPriority(r.Category, r.Urgent),
		ReportedBy:           by.Name,
		ReporterID:           by.ID,
		ReportedAt:           now,
		VerificationQuestion: r.VerificationQuestion,
		VerificationAnswer:   strings.TrimSpace(r.VerificationAnswer),
		ContactPreference:    r.ContactPreference,
		ContactInfo:          r.ContactInfo,
	}

	item, err := store.CreateItem(ctx, s.DB, item)
	if err != nil {
		return nil, err
	}
	slog.Info("lost item reported", "id", item.ID, "category", item.Category, "priority", item.Priority)

	s.emit(ctx, event.Event{
		Name:    event.ItemReported,
		Time:    now,
		ItemIDs: []string{item.ID},
		Audit: &event.Audit{
			Action: "Item Reported (Lost)",
			Detail: fmt.Sprintf("%s – %s", item.Name, item.Priority),
			Actor:  actor(by),
			Tag:    model.TagReport,
		},
	})
	if model.IsHighPriority(item.Priority) {
		s.emit(ctx, event.Event{
			Name:    event.HighPriority,
			Time:    now,
			ItemIDs: []string{item.ID},
			Notice: &event.Notice{
				Message: fmt.Sprintf("HIGH PRIORITY: %q reported lost at %s. Admin notified.", item.Name, item.Location),
				Tag:     model.TagUrgent,
			},
		})
	}

	return s.match(ctx, item)
}

// ReportFound files a found report and runs the matcher.
func (s *Service) ReportFound(ctx context.Context, r FoundReport, by Reporter) (*Result, error) {
	now := s.now()
	item := &model.Item{
		Type:            model.ItemTypeFound,
		Category:        category(r.Category, r.CustomCategory),
		Name:            r.Name,
		Description:     r.Description,
		Location:        r.Location,
		Date:            r.Date,
		Priority:        model.ClassifyPriority(r.Category, false),
		ReportedBy:      by.Name,
		ReporterID:      by.ID,
		ReportedAt:      now,
		StorageLocation: r.StorageLocation,
		FinderContact:   r.FinderContact,
	}

	item, err := store.CreateItem(ctx, s.DB, item)
	if err != nil {
		return nil, err
	}
	slog.Info("found item reported", "id", item.ID, "category", item.Category)

	s.emit(ctx, event.Event{
		Name:    event.ItemReported,
		Time:    now,
		ItemIDs: []string{item.ID},
		Audit: &event.Audit{
			Action: "Item Reported (Found)",
			Detail: fmt.Sprintf("%s at %s", item.Name, item.Location),
			Actor:  actor(by),
			Tag:    model.TagReport,
		},
	})

	return s.match(ctx, item)
}

func (s *Service) match(ctx context.Context, item *model.Item) (*Result, error) {
	res := &Result{Item: item}
	if s.Matcher == nil {
		return res, nil
	}

	candidates, err := s.Matcher.Run(ctx, item)
	if err != nil {
		// The report is stored either way.
		slog.Error("failed to match report", "id", item.ID, "error", err)
		return res, nil
	}
	res.Candidates = candidates
	return res, nil
}

// MarkReturned closes an item as returned to its owner.
func (s *Service) MarkReturned(ctx context.Context, id, by string) (*model.Item, error) {
	now := s.now()
	ok, err := store.MarkItemReturned(ctx, s.DB, id, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrItemNotFound
	}
	slog.Info("item returned", "id", id, "by", by)

	s.emit(ctx, event.Event{
		Name:    event.ItemReturned,
		Time:    now,
		ItemIDs: []string{id},
		Audit: &event.Audit{
			Action: "Item Returned",
			Detail: fmt.Sprintf("Item %s marked as returned", id),
			Actor:  by,
			Tag:    model.TagReturn,
		},
	})

	return store.GetItem(ctx, s.DB, id)
}

// AttachPhoto normalizes a photo and stores it on an item.
func (s *Service) AttachPhoto(ctx context.Context, id string, r io.Reader) (*imaging.Photo, error) {
	item, err := store.GetItem(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, ErrItemNotFound
	}

	photo, err := imaging.Process(r)
	if err != nil {
		return nil, err
	}
	if err := store.SetItemPhoto(ctx, s.DB, id, photo.Data, photo.MIME); err != nil {
		return nil, err
	}
	slog.Info("item photo attached", "id", id, "width", photo.Width, "height", photo.Height)
	return photo, nil
}
