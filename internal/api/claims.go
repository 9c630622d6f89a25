package api

import (
	"database/sql"
	"errors"
	"net/http"

	"github.com/erazemk/reconnect/internal/claim"
	"github.com/erazemk/reconnect/internal/model"
	"github.com/erazemk/reconnect/internal/store"
)

// ClaimsHandler handles ownership claim endpoints.
type ClaimsHandler struct {
	DB     *sql.DB
	Claims *claim.Service
}

type claimRequest struct {
	ItemID     string `json:"item_id" validate:"required"`
	Answer     string `json:"answer" validate:"max=200"`
	Identifier string `json:"identifier" validate:"max=200"`
	Proof      string `json:"proof" validate:"max=2000"`
}

type wrongAnswerResponse struct {
	Error        string `json:"error"`
	AttemptsLeft int    `json:"attempts_left"`
}

// claimError maps claim workflow errors to responses.
func claimError(w http.ResponseWriter, r *http.Request, err error) {
	var wrong *claim.WrongAnswerError
	switch {
	case errors.As(err, &wrong):
		status := http.StatusUnprocessableEntity
		if wrong.Remaining == 0 {
			status = http.StatusForbidden
		}
		jsonResponse(w, status, wrongAnswerResponse{Error: err.Error(), AttemptsLeft: wrong.Remaining})
	case errors.Is(err, claim.ErrItemNotFound), errors.Is(err, claim.ErrClaimNotFound),
		errors.Is(err, claim.ErrNotFlagged):
		jsonError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, claim.ErrUserFlagged):
		jsonError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, claim.ErrDuplicateClaim), errors.Is(err, claim.ErrClaimNotPending),
		errors.Is(err, claim.ErrItemUnavailable):
		jsonError(w, http.StatusConflict, err.Error())
	case errors.Is(err, claim.ErrAnswerRequired), errors.Is(err, claim.ErrIdentifierRequired):
		jsonError(w, http.StatusBadRequest, err.Error())
	default:
		serverError(w, r, "claim request failed", err)
	}
}

// Submit handles POST /api/claims.
func (h *ClaimsHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req claimRequest
	if err := decodeValid(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	claims := GetClaims(r.Context())
	c, err := h.Claims.Submit(r.Context(), claim.Submission{
		ItemID:     req.ItemID,
		Answer:     req.Answer,
		Identifier: req.Identifier,
		Proof:      req.Proof,
	}, claim.Claimant{ID: claims.UserID, Name: claims.Name})
	if err != nil {
		claimError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusCreated, c)
}

// Mine handles GET /api/claims/mine.
func (h *ClaimsHandler) Mine(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	list, err := store.ListClaims(r.Context(), h.DB, store.ClaimFilter{ClaimantID: claims.UserID})
	if err != nil {
		serverError(w, r, "failed to list claims", err)
		return
	}
	if list == nil {
		list = []model.Claim{}
	}
	jsonResponse(w, http.StatusOK, list)
}

// List handles GET /api/claims.
func (h *ClaimsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := store.ListClaims(r.Context(), h.DB, store.ClaimFilter{
		ItemID:      q.Get("item"),
		PendingOnly: q.Get("pending") == "true",
	})
	if err != nil {
		serverError(w, r, "failed to list claims", err)
		return
	}
	if list == nil {
		list = []model.Claim{}
	}
	jsonResponse(w, http.StatusOK, list)
}

// Get handles GET /api/claims/{id}.
func (h *ClaimsHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := store.GetClaim(r.Context(), h.DB, r.PathValue("id"))
	if err != nil {
		serverError(w, r, "failed to get claim", err)
		return
	}
	if c == nil {
		jsonError(w, http.StatusNotFound, "claim not found")
		return
	}
	jsonResponse(w, http.StatusOK, c)
}

// Approve handles POST /api/claims/{id}/approve.
func (h *ClaimsHandler) Approve(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	c, err := h.Claims.Approve(r.Context(), r.PathValue("id"), claims.Name)
	if err != nil {
		claimError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, c)
}

// Reject handles POST /api/claims/{id}/reject.
func (h *ClaimsHandler) Reject(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	c, err := h.Claims.Reject(r.Context(), r.PathValue("id"), claims.Name)
	if err != nil {
		claimError(w, r, err)
		return
	}
	jsonResponse(w, http.StatusOK, c)
}
