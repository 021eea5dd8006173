package request

import (
	"bytes"
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"samplebook/internal/book"
	"samplebook/internal/httpx"

	"github.com/rs/zerolog/log"
)

// Catalog resolves requested book ids.
type Catalog interface {
	GetByID(ctx context.Context, id int) (book.Book, error)
}

type HTTPHandler struct {
	submitter *Submitter
	catalog   Catalog
}

func NewHTTPHandler(submitter *Submitter, catalog Catalog) *HTTPHandler {
	return &HTTPHandler{submitter: submitter, catalog: catalog}
}

// CodeInvalidBookID rejects a book id that is not a whole number.
const CodeInvalidBookID = "INVALID_BOOK_ID"

// bookID accepts a JSON number or a numeric string. Integral floats such
// as 2.0 are taken as ints; anything else is kept as malformed.
type bookID struct {
	N         int
	Malformed bool
}

func (id *bookID) UnmarshalJSON(b []byte) error {
	*id = bookID{}
	b = bytes.TrimSpace(bytes.Trim(b, `"`))
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil || f != math.Trunc(f) || f < 0 || f > math.MaxInt32 {
		id.Malformed = true
		return nil
	}
	id.N = int(f)
	return nil
}

type bookRef struct {
	ID        bookID `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Publisher string `json:"publisher"`
	ISBN      string `json:"isbn"`
}

// submitBody carries both request shapes. A books array selects the
// multi-book form; otherwise bookId with address and reason is expected.
type submitBody struct {
	Form
	BookID     bookID     `json:"bookId"`
	BookTitle  string     `json:"bookTitle"`
	BookAuthor string     `json:"bookAuthor"`
	BookISBN   string     `json:"bookIsbn"`
	Books      *[]bookRef `json:"books"`
}

// malformedIDs names the fields holding an id that could not be read.
func (b submitBody) malformedIDs() []string {
	var fields []string
	if b.Books == nil {
		if b.BookID.Malformed {
			fields = append(fields, "bookId")
		}
		return fields
	}
	for i, ref := range *b.Books {
		if ref.ID.Malformed {
			fields = append(fields, "books["+strconv.Itoa(i)+"].id")
		}
	}
	return fields
}

type submitResponse struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	RequestID   string `json:"requestId"`
	RequestDate string `json:"requestDate"`
	Count       int    `json:"count"`
}

// Submit handles POST /api/request
func (h *HTTPHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var body submitBody
	if err := httpx.DecodeJSON(r, &body); err != nil {
		httpx.JSONError(w, r, http.StatusBadRequest, "INVALID_JSON", "요청 형식이 올바르지 않습니다.", nil)
		return
	}

	if fields := body.malformedIDs(); len(fields) > 0 {
		WriteError(w, r, &ValidationError{
			Code:    CodeInvalidBookID,
			Message: "도서 번호가 올바르지 않습니다.",
			Fields:  fields,
			Status:  http.StatusBadRequest,
		})
		return
	}

	form := body.Form
	if form.VerificationToken == "" {
		form.VerificationToken = r.Header.Get("X-Verification-Token")
	}

	var items []Item
	if body.Books != nil {
		form.Variant = Multi
		items = make([]Item, 0, len(*body.Books))
		for _, ref := range *body.Books {
			items = append(items, h.resolve(r.Context(), ref.ID.N, Item{
				ID: ref.ID.N, Title: ref.Title, Author: ref.Author, Publisher: ref.Publisher, ISBN: ref.ISBN,
			}))
		}
	} else {
		form.Variant = Detailed
		if id := body.BookID.N; id > 0 {
			items = append(items, h.resolve(r.Context(), id, Item{
				ID: id, Title: body.BookTitle, Author: body.BookAuthor, ISBN: body.BookISBN,
			}))
		}
	}

	receipt, err := h.submitter.Submit(r.Context(), form, items)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	httpx.JSON(w, http.StatusOK, submitResponse{
		Success:     true,
		Message:     "견본 도서 신청이 접수되었습니다.",
		RequestID:   receipt.RequestID,
		RequestDate: FormatDate(receipt.RequestDate),
		Count:       receipt.Count,
	})
}

// resolve fills an item from the catalog, keeping what the client sent
// when the id is unknown.
func (h *HTTPHandler) resolve(ctx context.Context, id int, sent Item) Item {
	if h.catalog == nil || id < 1 {
		return sent
	}
	b, err := h.catalog.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, book.ErrNotFound) {
			log.Warn().Err(err).Int("book_id", id).Msg("resolve requested book")
		}
		return sent
	}
	return ItemFromBook(b)
}

// WriteError maps submission errors onto the API error shape.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		var details []httpx.ErrorDetail
		for _, f := range verr.Fields {
			details = append(details, httpx.ErrorDetail{Field: jsonField(f), Message: verr.Message})
		}
		httpx.JSONError(w, r, verr.Status, verr.Code, verr.Message, details)
		return
	}
	if !errors.Is(err, ErrSubmitFailed) {
		log.Error().Err(err).Str("request_id", httpx.RequestIDFrom(r)).Msg("unexpected submit error")
	}
	httpx.JSONError(w, r, http.StatusInternalServerError, "SUBMIT_FAILED", "견본 신청 제출 중 오류가 발생했습니다. 다시 시도해 주세요.", nil)
}

func jsonField(f string) string {
	if f == "" {
		return f
	}
	b := []byte(f)
	if b[0] >= 'A' && b[0] <= 'Z' {
		b[0] += 'a' - 'A'
	}
	return string(b)
}

func (h *HTTPHandler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/request", h.Submit)
}
