package email

import (
	"errors"
	"net/http"

	"samplebook/internal/httpx"

	"github.com/rs/zerolog/log"
)

type HTTPHandler struct {
	service *Service
	tokens  *TokenIssuer
}

// NewHTTPHandler wires the verify endpoint. A nil issuer disables tokens.
func NewHTTPHandler(service *Service, tokens *TokenIssuer) *HTTPHandler {
	return &HTTPHandler{service: service, tokens: tokens}
}

type verifyResponse struct {
	Result
	Token string `json:"token,omitempty"`
}

// Verify handles GET /api/verify-email?email=
func (h *HTTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	addr := r.URL.Query().Get("email")

	res, err := h.service.Verify(r.Context(), addr)
	if err != nil {
		if errors.Is(err, ErrEmailRequired) {
			httpx.JSONError(w, r, http.StatusBadRequest, "EMAIL_REQUIRED", "이메일이 제공되지 않았습니다", nil)
			return
		}
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "서버 오류가 발생했습니다", nil)
		return
	}

	resp := verifyResponse{Result: res}
	if res.Verified && h.tokens != nil {
		token, err := h.tokens.Issue(addr)
		if err != nil {
			log.Error().Err(err).Str("request_id", httpx.RequestIDFrom(r)).Msg("issue verification token")
			httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "서버 오류가 발생했습니다", nil)
			return
		}
		resp.Token = token
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *HTTPHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/verify-email", h.Verify)
}
