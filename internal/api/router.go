package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/erazemk/reconnect/internal/claim"
	"github.com/erazemk/reconnect/internal/escalation"
	"github.com/erazemk/reconnect/internal/event"
	"github.com/erazemk/reconnect/internal/match"
	"github.com/erazemk/reconnect/internal/model"
	"github.com/erazemk/reconnect/internal/report"
	"github.com/erazemk/reconnect/internal/store"
)

// Options tunes NewRouter. Zero values take defaults.
type Options struct {
	// Events receives domain events. Nil drops them.
	Events event.Emitter
	// Threshold is the minimum match score; 0 means match.DefaultThreshold.
	Threshold int
	// Location sets the day boundaries for analytics; nil means time.Local.
	Location *time.Location
	// Now overrides the clock.
	Now func() time.Time
}

// NewRouter creates the API router with all endpoints registered.
func NewRouter(db *sql.DB, jwtSecret string, opts Options) http.Handler {
	mux := http.NewServeMux()

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	items := store.ItemRepo{DB: db}
	matcher := match.New(items, opts.Events)
	if opts.Threshold > 0 {
		matcher.Threshold = opts.Threshold
	}
	escalator := escalation.New(items, opts.Events)
	escalator.Now = now
	reports := report.New(db, matcher, opts.Events)
	reports.Now = now
	claims := claim.New(db, reports, opts.Events)
	claims.Now = now

	authHandler := &AuthHandler{DB: db, JWTSecret: jwtSecret, Now: now}
	usersHandler := &UsersHandler{DB: db}
	itemsHandler := &ItemsHandler{DB: db, Reports: reports, Matcher: matcher, Now: now}
	claimsHandler := &ClaimsHandler{DB: db, Claims: claims}
	adminHandler := &AdminHandler{DB: db, Escalator: escalator, Claims: claims, Location: opts.Location, Now: now}

	authMW := AuthMiddleware(jwtSecret, db)
	requireAdmin := RequireRole(model.RoleAdmin)

	// Public: login and browsing reports.
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("GET /api/items", itemsHandler.List)
	mux.HandleFunc("GET /api/items/{id}", itemsHandler.Get)
	mux.HandleFunc("GET /api/items/{id}/photo", itemsHandler.GetPhoto)

	// Authenticated routes.
	mux.Handle("PUT /api/auth/password", authMW(http.HandlerFunc(authHandler.ChangePassword)))
	mux.Handle("POST /api/auth/logout", authMW(http.HandlerFunc(authHandler.Logout)))
	mux.Handle("POST /api/items/lost", authMW(http.HandlerFunc(itemsHandler.ReportLost)))
	mux.Handle("POST /api/items/found", authMW(http.HandlerFunc(itemsHandler.ReportFound)))
	mux.Handle("PUT /api/items/{id}/photo", authMW(http.HandlerFunc(itemsHandler.UploadPhoto)))
	mux.Handle("POST /api/claims", authMW(http.HandlerFunc(claimsHandler.Submit)))
	mux.Handle("GET /api/claims/mine", authMW(http.HandlerFunc(claimsHandler.Mine)))

	// Claims review (admin only).
	mux.Handle("GET /api/claims", authMW(requireAdmin(http.HandlerFunc(claimsHandler.List))))
	mux.Handle("GET /api/claims/{id}", authMW(requireAdmin(http.HandlerFunc(claimsHandler.Get))))
	mux.Handle("POST /api/claims/{id}/approve", authMW(requireAdmin(http.HandlerFunc(claimsHandler.Approve))))
	mux.Handle("POST /api/claims/{id}/reject", authMW(requireAdmin(http.HandlerFunc(claimsHandler.Reject))))
	mux.Handle("POST /api/items/{id}/return", authMW(requireAdmin(http.HandlerFunc(itemsHandler.MarkReturned))))

	// Dashboard and moderation (admin only).
	mux.Handle("GET /api/admin/dashboard", authMW(requireAdmin(http.HandlerFunc(adminHandler.Dashboard))))
	mux.Handle("POST /api/admin/escalations/run", authMW(requireAdmin(http.HandlerFunc(adminHandler.RunEscalations))))
	mux.Handle("GET /api/admin/flagged", authMW(requireAdmin(http.HandlerFunc(adminHandler.Flagged))))
	mux.Handle("DELETE /api/admin/flagged/{userID}", authMW(requireAdmin(http.HandlerFunc(adminHandler.Unflag))))
	mux.Handle("GET /api/audit", authMW(requireAdmin(http.HandlerFunc(adminHandler.Audit))))
	mux.Handle("GET /api/notifications", authMW(requireAdmin(http.HandlerFunc(adminHandler.Notifications))))
	mux.Handle("POST /api/notifications/{id}/read", authMW(requireAdmin(http.HandlerFunc(adminHandler.MarkRead))))
	mux.Handle("POST /api/notifications/read-all", authMW(requireAdmin(http.HandlerFunc(adminHandler.MarkAllRead))))

	// Users (admin only).
	mux.Handle("GET /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.List))))
	mux.Handle("POST /api/users", authMW(requireAdmin(http.HandlerFunc(usersHandler.Create))))

	return mux
}
