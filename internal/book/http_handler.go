package book

import (
	"errors"
	"net/http"
	"strconv"

	"samplebook/internal/httpx"
)

type HTTPHandler struct {
	service *Service
}

func NewHTTPHandler(service *Service) *HTTPHandler {
	return &HTTPHandler{service: service}
}

// List handles GET /api/books?q=&category=
func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	books, err := h.service.List(r.Context(), Query{
		Q:        query.Get("q"),
		Category: query.Get("category"),
	})
	if err != nil {
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "서버 오류가 발생했습니다.", nil)
		return
	}

	httpx.JSON(w, http.StatusOK, books)
}

// GetByID handles GET /api/books/{id}
func (h *HTTPHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "도서를 찾을 수 없습니다", nil)
		return
	}

	book, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "도서를 찾을 수 없습니다", nil)
			return
		}
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "서버 오류가 발생했습니다.", nil)
		return
	}
	httpx.JSON(w, http.StatusOK, book)
}

// Categories handles GET /api/categories
func (h *HTTPHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "서버 오류가 발생했습니다.", nil)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	httpx.JSON(w, http.StatusOK, categories)
}

// Routes registers the catalog endpoints on mux.
func (h *HTTPHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/books", h.List)
	mux.HandleFunc("GET /api/books/{id}", h.GetByID)
	mux.HandleFunc("GET /api/categories", h.Categories)
}
