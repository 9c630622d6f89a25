package api

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/erazemk/reconnect/internal/claim"
	"github.com/erazemk/reconnect/internal/escalation"
	"github.com/erazemk/reconnect/internal/model"
	"github.com/erazemk/reconnect/internal/store"
)

// AdminHandler handles the admin dashboard, escalation, moderation, audit
// and notification endpoints.
type AdminHandler struct {
	DB        *sql.DB
	Escalator *escalation.Escalator
	Claims    *claim.Service
	// Location sets the day boundaries for time-of-day analytics.
	Location *time.Location
	Now      func() time.Time
}

type dashboardResponse struct {
	Stats               *store.Stats     `json:"stats"`
	Analytics           *store.Analytics `json:"analytics"`
	UnreadNotifications int              `json:"unread_notifications"`
	EscalationsFired    int              `json:"escalations_fired"`
}

func (h *AdminHandler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

// Dashboard handles GET /api/admin/dashboard. Pending escalations are fired
// before the numbers are collected.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fired, err := h.Escalator.Run(ctx)
	if err != nil {
		serverError(w, r, "failed to run escalations", err)
		return
	}

	stats, err := store.GetStats(ctx, h.DB, h.now())
	if err != nil {
		serverError(w, r, "failed to get stats", err)
		return
	}

	loc := h.Location
	if loc == nil {
		loc = time.Local
	}
	analytics, err := store.GetAnalytics(ctx, h.DB, loc)
	if err != nil {
		serverError(w, r, "failed to get analytics", err)
		return
	}

	unread, err := store.CountUnreadNotifications(ctx, h.DB)
	if err != nil {
		serverError(w, r, "failed to count notifications", err)
		return
	}

	jsonResponse(w, http.StatusOK, dashboardResponse{
		Stats:               stats,
		Analytics:           analytics,
		UnreadNotifications: unread,
		EscalationsFired:    fired,
	})
}

// RunEscalations handles POST /api/admin/escalations/run.
func (h *AdminHandler) RunEscalations(w http.ResponseWriter, r *http.Request) {
	fired, err := h.Escalator.Run(r.Context())
	if err != nil {
		serverError(w, r, "failed to run escalations", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]int{"fired": fired})
}

// Flagged handles GET /api/admin/flagged.
func (h *AdminHandler) Flagged(w http.ResponseWriter, r *http.Request) {
	flags, err := store.ListFlaggedUsers(r.Context(), h.DB, h.now())
	if err != nil {
		serverError(w, r, "failed to list flagged users", err)
		return
	}
	if flags == nil {
		flags = []model.FlaggedUser{}
	}
	jsonResponse(w, http.StatusOK, flags)
}

// Unflag handles DELETE /api/admin/flagged/{userID}.
func (h *AdminHandler) Unflag(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("userID"), 10, 64)
	if err != nil {
		jsonError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	claims := GetClaims(r.Context())
	if err := h.Claims.Unflag(r.Context(), id, claims.Name); err != nil {
		if errors.Is(err, claim.ErrNotFlagged) {
			jsonError(w, http.StatusNotFound, err.Error())
			return
		}
		serverError(w, r, "failed to unflag user", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "restriction lifted"})
}

// Audit handles GET /api/audit.
func (h *AdminHandler) Audit(w http.ResponseWriter, r *http.Request) {
	limit := store.MaxAuditEntries
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			jsonError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, store.MaxAuditEntries)
	}

	entries, err := store.ListAudit(r.Context(), h.DB, limit)
	if err != nil {
		serverError(w, r, "failed to list audit log", err)
		return
	}
	if entries == nil {
		entries = []model.AuditEntry{}
	}
	jsonResponse(w, http.StatusOK, entries)
}

// Notifications handles GET /api/notifications.
func (h *AdminHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	list, err := store.ListNotifications(r.Context(), h.DB)
	if err != nil {
		serverError(w, r, "failed to list notifications", err)
		return
	}
	if list == nil {
		list = []model.Notification{}
	}
	jsonResponse(w, http.StatusOK, list)
}

// MarkRead handles POST /api/notifications/{id}/read.
func (h *AdminHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	ok, err := store.MarkNotificationRead(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		serverError(w, r, "failed to mark notification read", err)
		return
	}
	if !ok {
		jsonError(w, http.StatusNotFound, "notification not found")
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "marked read"})
}

// MarkAllRead handles POST /api/notifications/read-all.
func (h *AdminHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	if err := store.MarkAllNotificationsRead(r.Context(), h.DB); err != nil {
		serverError(w, r, "failed to mark notifications read", err)
		return
	}
	jsonResponse(w, http.StatusOK, map[string]string{"message": "all marked read"})
}
