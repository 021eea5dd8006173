package apply

import (
	"errors"
	"net/http"

	"samplebook/internal/httpx"
	"samplebook/internal/request"

	"github.com/rs/zerolog/log"
)

type HTTPHandler struct {
	flows     *Flows
	verifier  Verifier
	catalog   Catalog
	submitter Submitter
}

func NewHTTPHandler(flows *Flows, verifier Verifier, catalog Catalog, submitter Submitter) *HTTPHandler {
	return &HTTPHandler{flows: flows, verifier: verifier, catalog: catalog, submitter: submitter}
}

func (h *HTTPHandler) flow(w http.ResponseWriter, r *http.Request) (*Flow, bool) {
	f, err := h.flows.Get(r.PathValue("id"))
	if err != nil {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "신청서를 찾을 수 없습니다.", nil)
		return nil, false
	}
	return f, true
}

// Create handles POST /api/apply
func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	f := h.flows.Create()
	httpx.JSON(w, http.StatusCreated, f.Snapshot())
}

// Get handles GET /api/apply/{id}
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	f, ok := h.flow(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, f.Snapshot())
}

// Update handles PATCH /api/apply/{id}
func (h *HTTPHandler) Update(w http.ResponseWriter, r *http.Request) {
	f, ok := h.flow(w, r)
	if !ok {
		return
	}
	var p Patch
	if err := httpx.DecodeJSON(r, &p); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_JSON", "요청 형식이 올바르지 않습니다.", nil)
		return
	}
	h.respond(w, r, f, f.Update(p))
}

// VerifyEmail handles POST /api/apply/{id}/verify-email
func (h *HTTPHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	f, ok := h.flow(w, r)
	if !ok {
		return
	}
	h.respond(w, r, f, f.VerifyEmail(r.Context(), h.verifier))
}

// Next handles POST /api/apply/{id}/next
func (h *HTTPHandler) Next(w http.ResponseWriter, r *http.Request) {
	f, ok := h.flow(w, r)
	if !ok {
		return
	}
	h.respond(w, r, f, f.Next())
}

// Prev handles POST /api/apply/{id}/prev
func (h *HTTPHandler) Prev(w http.ResponseWriter, r *http.Request) {
	f, ok := h.flow(w, r)
	if !ok {
		return
	}
	h.respond(w, r, f, f.Prev())
}

// Submit handles POST /api/apply/{id}/submit
func (h *HTTPHandler) Submit(w http.ResponseWriter, r *http.Request) {
	f, ok := h.flow(w, r)
	if !ok {
		return
	}
	h.respond(w, r, f, f.Submit(r.Context(), h.catalog, h.submitter))
}

func (h *HTTPHandler) respond(w http.ResponseWriter, r *http.Request, f *Flow, err error) {
	if err == nil {
		httpx.JSON(w, http.StatusOK, f.Snapshot())
		return
	}

	var missing *MissingFieldError
	switch {
	case errors.As(err, &missing):
		httpx.JSONError(w, r, http.StatusBadRequest, "MISSING_FIELD", missing.Message,
			[]httpx.ErrorDetail{{Field: missing.Field, Message: missing.Message}})
	case errors.Is(err, ErrWrongStep):
		httpx.JSONError(w, r, http.StatusConflict, "INVALID_STEP", "현재 단계에서는 할 수 없는 작업입니다.", nil)
	case errors.Is(err, ErrNotAcademic):
		httpx.JSONError(w, r, http.StatusBadRequest, "NOT_ACADEMIC_EMAIL", ErrNotAcademic.Error(), nil)
	case errors.Is(err, ErrNotRegistered):
		httpx.JSONError(w, r, http.StatusForbidden, "EMAIL_NOT_REGISTERED", ErrNotRegistered.Error(), nil)
	case errors.Is(err, ErrVerificationFailed):
		httpx.JSONError(w, r, http.StatusBadGateway, "VERIFICATION_FAILED", ErrVerificationFailed.Error(), nil)
	case errors.Is(err, ErrBookNotFound):
		httpx.JSONError(w, r, http.StatusBadRequest, "BOOK_NOT_FOUND", ErrBookNotFound.Error(), nil)
	case request.IsUserError(err), errors.Is(err, request.ErrSubmitFailed):
		request.WriteError(w, r, err)
	default:
		log.Error().Err(err).Str("flow", f.ID()).Str("request_id", httpx.RequestIDFrom(r)).Msg("apply flow")
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "서버 오류가 발생했습니다.", nil)
	}
}

func (h *HTTPHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/apply", h.Create)
	mux.HandleFunc("GET /api/apply/{id}", h.Get)
	mux.HandleFunc("PATCH /api/apply/{id}", h.Update)
	mux.HandleFunc("POST /api/apply/{id}/verify-email", h.VerifyEmail)
	mux.HandleFunc("POST /api/apply/{id}/next", h.Next)
	mux.HandleFunc("POST /api/apply/{id}/prev", h.Prev)
	mux.HandleFunc("POST /api/apply/{id}/submit", h.Submit)
}
