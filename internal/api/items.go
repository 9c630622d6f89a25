package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/erazemk/reconnect/internal/escalation"
	"github.com/erazemk/reconnect/internal/imaging"
	"github.com/erazemk/reconnect/internal/match"
	"github.com/erazemk/reconnect/internal/model"
	"github.com/erazemk/reconnect/internal/report"
	"github.com/erazemk/reconnect/internal/store"
)

// ItemsHandler handles lost and found report endpoints.
type ItemsHandler struct {
	DB      *sql.DB
	Reports *report.Service
	Matcher *match.Matcher
	Now     func() time.Time
}

type lostItemRequest struct {
	Category             string `json:"category" validate:"required,category"`
	CustomCategory       string `json:"custom_category" validate:"max=64"`
	Name                 string `json:"name" validate:"required,max=120"`
	Description          string `json:"description" validate:"max=2000"`
	Location             string `json:"location" validate:"required,max=120"`
	Date                 string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	Urgent               bool   `json:"urgent"`
	VerificationQuestion string `json:"verification_question" validate:"required,max=200"`
	VerificationAnswer   string `json:"verification_answer" validate:"required,max=200"`
	ContactPreference    string `json:"contact_preference" validate:"omitempty,oneof=email phone"`
	ContactInfo          string `json:"contact_info" validate:"max=200"`
}

type foundItemRequest struct {
	Category        string `json:"category" validate:"required,category"`
	CustomCategory  string `json:"custom_category" validate:"max=64"`
	Name            string `json:"name" validate:"required,max=120"`
	Description     string `json:"description" validate:"max=2000"`
	Location        string `json:"location" validate:"required,max=120"`
	Date            string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StorageLocation string `json:"storage_location" validate:"max=120"`
	FinderContact   string `json:"finder_contact" validate:"max=200"`
}

type itemDetail struct {
	*model.Item
	Matches        []model.Item    `json:"matches"`
	Escalation     escalation.Rung `json:"escalation,omitempty"`
	NextEscalation string          `json:"next_escalation,omitempty"`
}

func (h *ItemsHandler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func reporter(r *http.Request) report.Reporter {
	claims := GetClaims(r.Context())
	if claims == nil {
		return report.Reporter{}
	}
	id := claims.UserID
	return report.Reporter{Name: claims.Name, ID: &id}
}

// List handles GET /api/items.
func (h *ItemsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := store.ItemFilter{
		Type:     q.Get("type"),
		Category: q.Get("category"),
		Location: q.Get("location"),
		Priority: q.Get("priority"),
		Status:   q.Get("status"),
		Query:    q.Get("q"),
	}
	if f.Type == "all" {
		f.Type = ""
	}
	if f.Type != "" && !model.ValidItemType(f.Type) {
		jsonError(w, http.StatusBadRequest, "invalid item type")
		return
	}
	if f.Status != "" && !model.ValidItemStatus(f.Status) {
		jsonError(w, http.StatusBadRequest, "invalid item status")
		return
	}

	items, err := store.SearchItems(r.Context(), h.DB, f)
	if err != nil {
		serverError(w, r, "failed to list items", err)
		return
	}
	if items == nil {
		items = []model.Item{}
	}
	jsonResponse(w, http.StatusOK, items)
}

// Get handles GET /api/items/{id}.
func (h *ItemsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := store.GetItem(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		serverError(w, r, "failed to get item", err)
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	matches, err := h.Matcher.MatchesFor(r.Context(), item)
	if err != nil {
		serverError(w, r, "failed to get matches", err)
		return
	}
	if matches == nil {
		matches = []model.Item{}
	}

	now := h.now()
	detail := itemDetail{
		Item:       item,
		Matches:    matches,
		Escalation: escalation.Level(item, now),
	}
	if item.Type == model.ItemTypeLost && !item.Resolved() {
		detail.NextEscalation = escalation.FormatNext(escalation.NextIn(item, now))
	}
	jsonResponse(w, http.StatusOK, detail)
}

// ReportLost handles POST /api/items/lost.
func (h *ItemsHandler) ReportLost(w http.ResponseWriter, r *http.Request) {
	var req lostItemRequest
	if err := decodeValid(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.Reports.ReportLost(r.Context(), report.LostReport{
		Category:             req.Category,
		CustomCategory:       req.CustomCategory,
		Name:                 req.Name,
		Description:          req.Description,
		Location:             req.Location,
		Date:                 req.Date,
		Urgent:               req.Urgent,
		VerificationQuestion: req.VerificationQuestion,
		VerificationAnswer:   req.VerificationAnswer,
		ContactPreference:    req.ContactPreference,
		ContactInfo:          req.ContactInfo,
	}, reporter(r))
	if err != nil {
		serverError(w, r, "failed to report item", err)
		return
	}
	jsonResponse(w, http.StatusCreated, res)
}

// ReportFound handles POST /api/items/found.
func (h *ItemsHandler) ReportFound(w http.ResponseWriter, r *http.Request) {
	var req foundItemRequest
	if err := decodeValid(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.Reports.ReportFound(r.Context(), report.FoundReport{
		Category:        req.Category,
		CustomCategory:  req.CustomCategory,
		Name:            req.Name,
		Description:     req.Description,
		Location:        req.Location,
		Date:            req.Date,
		StorageLocation: req.StorageLocation,
		FinderContact:   req.FinderContact,
	}, reporter(r))
	if err != nil {
		serverError(w, r, "failed to report item", err)
		return
	}
	jsonResponse(w, http.StatusCreated, res)
}

// MarkReturned handles POST /api/items/{id}/return.
func (h *ItemsHandler) MarkReturned(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	item, err := h.Reports.MarkReturned(r.Context(), r.PathValue("id"), claims.Name)
	if errors.Is(err, report.ErrItemNotFound) {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}
	if err != nil {
		serverError(w, r, "failed to mark item returned", err)
		return
	}
	jsonResponse(w, http.StatusOK, item)
}

// UploadPhoto handles PUT /api/items/{id}/photo. Only the reporter or an
// admin may replace an item's photo.
func (h *ItemsHandler) UploadPhoto(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	item, err := store.GetItem(r.Context(), h.DB, id)
	if err != nil {
		serverError(w, r, "failed to get item", err)
		return
	}
	if item == nil {
		jsonError(w, http.StatusNotFound, "item not found")
		return
	}

	claims := GetClaims(r.Context())
	owner := item.ReporterID != nil && *item.ReporterID == claims.UserID
	if !owner && !model.RoleAtLeast(claims.Role, model.RoleAdmin) {
		jsonError(w, http.StatusForbidden, "only the reporter can change the photo")
		return
	}

	// Leave room for the multipart envelope.
	r.Body = http.MaxBytesReader(w, r.Body, imaging.MaxUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(imaging.MaxUploadBytes); err != nil {
		jsonError(w, http.StatusBadRequest, "file too large or invalid multipart form")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		jsonError(w, http.StatusBadRequest, "photo file required")
		return
	}
	defer file.Close()

	photo, err := h.Reports.AttachPhoto(r.Context(), id, file)
	switch {
	case errors.Is(err, imaging.ErrTooLarge):
		jsonError(w, http.StatusRequestEntityTooLarge, err.Error())
		return
	case errors.Is(err, imaging.ErrUnsupported):
		jsonError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	case errors.Is(err, report.ErrItemNotFound):
		jsonError(w, http.StatusNotFound, "item not found")
		return
	case err != nil:
		serverError(w, r, "failed to save photo", err)
		return
	}

	slog.Info("item photo uploaded", "user", claims.Username, "item", id)
	jsonResponse(w, http.StatusOK, map[string]any{
		"message": "photo uploaded",
		"width":   photo.Width,
		"height":  photo.Height,
	})
}

// GetPhoto handles GET /api/items/{id}/photo.
func (h *ItemsHandler) GetPhoto(w http.ResponseWriter, r *http.Request) {
	data, mime, err := store.GetItemPhoto(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		serverError(w, r, "failed to get photo", err)
		return
	}
	if data == nil {
		jsonError(w, http.StatusNotFound, "no photo")
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(data)
}
