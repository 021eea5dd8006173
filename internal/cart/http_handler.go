package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"samplebook/internal/book"
	"samplebook/internal/httpx"
	"samplebook/internal/request"

	"github.com/rs/zerolog/log"
)

// SessionHeader carries the cart session between requests.
const SessionHeader = "X-Cart-Session"

type Catalog interface {
	GetByID(ctx context.Context, id int) (book.Book, error)
}

type Checkout interface {
	Submit(ctx context.Context, f request.Form, items []request.Item) (request.Receipt, error)
}

type HTTPHandler struct {
	carts    *Registry
	catalog  Catalog
	checkout Checkout
}

func NewHTTPHandler(carts *Registry, catalog Catalog, checkout Checkout) *HTTPHandler {
	return &HTTPHandler{carts: carts, catalog: catalog, checkout: checkout}
}

type cartResponse struct {
	Items []book.Book `json:"items"`
	Count int         `json:"count"`
	Max   int         `json:"max"`
}

func newCartResponse(items []book.Book) cartResponse {
	return cartResponse{Items: items, Count: len(items), Max: MaxItems}
}

// session resolves the caller's session. Mutating calls without a usable
// session get a new one, echoed in the response header.
func (h *HTTPHandler) session(w http.ResponseWriter, r *http.Request, create bool) (string, bool) {
	s := r.Header.Get(SessionHeader)
	if ValidSession(s) {
		w.Header().Set(SessionHeader, s)
		return s, true
	}
	if !create {
		return "", false
	}
	s = NewSession()
	w.Header().Set(SessionHeader, s)
	return s, true
}

// Get handles GET /api/cart
func (h *HTTPHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r, false)
	if !ok {
		httpx.JSON(w, http.StatusOK, newCartResponse([]book.Book{}))
		return
	}
	httpx.JSON(w, http.StatusOK, newCartResponse(h.carts.Get(r.Context(), s).Items()))
}

type addItemBody struct {
	BookID json.Number `json:"bookId"`
}

// AddItem handles POST /api/cart/items
func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var body addItemBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_JSON", "요청 형식이 올바르지 않습니다.", nil)
		return
	}
	id, err := strconv.Atoi(body.BookID.String())
	if err != nil || id < 1 {
		httpx.JSONError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "도서 ID가 올바르지 않습니다.",
			[]httpx.ErrorDetail{{Field: "bookId", Message: "양의 정수여야 합니다."}})
		return
	}

	b, err := h.catalog.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, book.ErrNotFound) {
			httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "도서를 찾을 수 없습니다", nil)
			return
		}
		h.internalError(w, r, err, "look up book")
		return
	}

	s, _ := h.session(w, r, true)
	store := h.carts.Get(r.Context(), s)
	if err := store.Add(r.Context(), b); err != nil {
		switch {
		case errors.Is(err, ErrAlreadyInCart):
			httpx.JSONError(w, r, http.StatusConflict, "ALREADY_IN_CART", "이미 장바구니에 담긴 도서입니다.", nil)
		case errors.Is(err, ErrCartFull):
			httpx.JSONError(w, r, http.StatusConflict, "CART_FULL", "장바구니에는 최대 3권까지 담을 수 있습니다.", nil)
		default:
			h.internalError(w, r, err, "add cart item")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, newCartResponse(store.Items()))
}

// RemoveItem handles DELETE /api/cart/items/{id}
func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id < 1 {
		httpx.JSONError(w, r, http.StatusNotFound, "NOT_FOUND", "도서를 찾을 수 없습니다", nil)
		return
	}

	s, _ := h.session(w, r, true)
	store := h.carts.Get(r.Context(), s)
	if err := store.Remove(r.Context(), id); err != nil {
		h.internalError(w, r, err, "remove cart item")
		return
	}
	httpx.JSON(w, http.StatusOK, newCartResponse(store.Items()))
}

// Clear handles DELETE /api/cart
func (h *HTTPHandler) Clear(w http.ResponseWriter, r *http.Request) {
	s, _ := h.session(w, r, true)
	store := h.carts.Get(r.Context(), s)
	if err := store.Clear(r.Context()); err != nil {
		h.internalError(w, r, err, "clear cart")
		return
	}
	httpx.JSON(w, http.StatusOK, newCartResponse(store.Items()))
}

type checkoutResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	RequestID   string `json:"requestId"`
	RequestDate string `json:"requestDate"`
	Count       int    `json:"count"`
}

// Checkout handles POST /api/cart/checkout
func (h *HTTPHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var form request.Form
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_JSON", "요청 형식이 올바르지 않습니다.", nil)
		return
	}
	form.Variant = request.Multi
	if form.VerificationToken == "" {
		form.VerificationToken = r.Header.Get("X-Verification-Token")
	}

	var (
		store *Store
		items []book.Book
	)
	s, ok := h.session(w, r, false)
	if ok {
		store = h.carts.Get(r.Context(), s)
		items = store.Items()
	}

	receipt, err := h.checkout.Submit(r.Context(), form, request.ItemsFromBooks(items))
	if err != nil {
		request.WriteError(w, r, err)
		return
	}

	if store != nil {
		submitted := make([]int, 0, len(items))
		for _, b := range items {
			submitted = append(submitted, b.ID)
		}
		if err := store.RemoveAll(r.Context(), submitted); err != nil {
			log.Warn().Err(err).Str("session", s).Msg("drop requested books from cart")
		}
	}
	httpx.JSON(w, http.StatusOK, checkoutResponse{
		Success:     true,
		Message:     "견본 도서 신청이 접수되었습니다.",
		RequestID:   receipt.RequestID,
		RequestDate: request.FormatDate(receipt.RequestDate),
		Count:       receipt.Count,
	})
}

func (h *HTTPHandler) internalError(w http.ResponseWriter, r *http.Request, err error, op string) {
	log.Error().Err(err).Str("request_id", httpx.RequestIDFrom(r)).Msg(op)
	httpx.JSONError(w, r, http.StatusInternalServerError, "INTERNAL_ERROR", "서버 오류가 발생했습니다.", nil)
}

func (h *HTTPHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/cart", h.Get)
	mux.HandleFunc("DELETE /api/cart", h.Clear)
	mux.HandleFunc("POST /api/cart/items", h.AddItem)
	mux.HandleFunc("DELETE /api/cart/items/{id}", h.RemoveItem)
	mux.HandleFunc("POST /api/cart/checkout", h.Checkout)
}
