package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/starford/devtally/internal/apperr"
	"github.com/starford/devtally/internal/models"
	"github.com/starford/devtally/internal/tallyservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *tallyservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *tallyservice.Service) *Handler {
	return &Handler{svc: svc}
}

// handleParam returns the unescaped {handle} path parameter.
func handleParam(r *http.Request) string {
	raw := chi.URLParam(r, "handle")
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return raw
	}
	return decoded
}

// ListTallies handles GET /api/tallies.
//
//	@Summary	List users ranked by done count
//	@Tags		tallies
//	@Produce	json
//	@Success	200	{object}	TallyListResponse
//	@Security	BearerAuth
//	@Router		/tallies [get]
func (h *Handler) ListTallies(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.Rows(r.Context())
	if err != nil {
		serverError(w, "list tallies", err)
		return
	}
	writeJSON(w, http.StatusOK, TallyListResponse{Tallies: rows, Total: len(rows)})
}

// GetTally handles GET /api/tallies/{handle}.
//
//	@Summary	Get one user's record
//	@Tags		tallies
//	@Produce	json
//	@Param		handle	path		string	true	"User handle"
//	@Success	200		{object}	UserResponse
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/tallies/{handle} [get]
func (h *Handler) GetTally(w http.ResponseWriter, r *http.Request) {
	key, rec, err := h.svc.User(r.Context(), handleParam(r))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("user not found"))
			return
		}
		serverError(w, "get tally", err)
		return
	}
	writeJSON(w, http.StatusOK, UserResponse{Handle: key, UserRecord: *rec})
}

// RecordTally handles POST /api/tallies/{handle}/{kind}.
//
//	@Summary	Add n to a user's done or fail counter
//	@Tags		tallies
//	@Accept		json
//	@Produce	json
//	@Param		handle	path		string			true	"User handle"
//	@Param		kind	path		string			true	"Counter"	Enums(done, fail)
//	@Param		body	body		RecordRequest	true	"Increment"
//	@Success	200		{object}	tallyservice.Result
//	@Failure	400		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/tallies/{handle}/{kind} [post]
func (h *Handler) RecordTally(w http.ResponseWriter, r *http.Request) {
	kind := models.Kind(chi.URLParam(r, "kind"))
	if !kind.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody("kind must be done or fail"))
		return
	}

	var req RecordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if err := req.Validate(); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	res, err := h.svc.Record(r.Context(), handleParam(r), kind, *req.N, req.Note)
	if err != nil {
		if errors.Is(err, apperr.ErrValidation) {
			writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
			return
		}
		serverError(w, "record tally", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ResetTallies handles DELETE /api/tallies.
//
//	@Summary	Clear every tally
//	@Tags		tallies
//	@Success	204
//	@Security	BearerAuth
//	@Router		/tallies [delete]
func (h *Handler) ResetTallies(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(r.Context()); err != nil {
		serverError(w, "reset tallies", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Report handles GET /api/report.
//
//	@Summary	Plain-text ranked report, as sent to the chat
//	@Tags		tallies
//	@Produce	plain
//	@Success	200	{string}	string
//	@Security	BearerAuth
//	@Router		/report [get]
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	text, err := h.svc.Report(r.Context())
	if err != nil {
		serverError(w, "report", err)
		return
	}
	writeText(w, http.StatusOK, text)
}
