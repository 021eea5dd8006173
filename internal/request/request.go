package request

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"samplebook/internal/book"
)

const (
	// StatusReceived is the status every new record starts with; later
	// transitions belong to whoever works the request sheet.
	StatusReceived = "신청접수"
	// MaxBooks is the per-request title limit.
	MaxBooks = 3
)

// ErrSubmitFailed is returned when the request log did not accept every record.
var ErrSubmitFailed = errors.New("sample request submission failed")

// isoMillis matches JavaScript's Date.toISOString, which the sheet's
// existing rows use.
const isoMillis = "2006-01-02T15:04:05.000Z07:00"

// FormatDate renders t the way request dates are stored and returned.
func FormatDate(t time.Time) string {
	return t.UTC().Format(isoMillis)
}

// Variant selects which fields a form must carry.
type Variant int

const (
	// Detailed is the single-book form: shipping address and reason required.
	Detailed Variant = iota
	// Multi is the cart checkout form: name, email and institution only.
	Multi
)

// Form is what the requester filled in.
type Form struct {
	Name              string  `json:"name" validate:"required"`
	Email             string  `json:"email" validate:"required"`
	Institution       string  `json:"institution" validate:"required"`
	Department        string  `json:"department,omitempty"`
	Phone             string  `json:"phone,omitempty"`
	Position          string  `json:"position,omitempty"`
	Address           string  `json:"address,omitempty" validate:"required_if=Variant 0"`
	Reason            string  `json:"reason,omitempty" validate:"required_if=Variant 0"`
	VerificationToken string  `json:"verificationToken,omitempty"`
	Variant           Variant `json:"-"`
}

func (f Form) normalized() Form {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Institution = strings.TrimSpace(f.Institution)
	f.Department = strings.TrimSpace(f.Department)
	f.Phone = strings.TrimSpace(f.Phone)
	f.Position = strings.TrimSpace(f.Position)
	f.Address = strings.TrimSpace(f.Address)
	f.Reason = strings.TrimSpace(f.Reason)
	f.VerificationToken = strings.TrimSpace(f.VerificationToken)
	return f
}

// Item is a requested title.
type Item struct {
	ID        int    `json:"id"`
	Title     string `json:"title"`
	Author    string `json:"author,omitempty"`
	Publisher string `json:"publisher,omitempty"`
	ISBN      string `json:"isbn,omitempty"`
}

func ItemFromBook(b book.Book) Item {
	return Item{ID: b.ID, Title: b.Title, Author: b.Author, Publisher: b.Publisher, ISBN: b.ISBN}
}

func ItemsFromBooks(books []book.Book) []Item {
	out := make([]Item, 0, len(books))
	for _, b := range books {
		out = append(out, ItemFromBook(b))
	}
	return out
}

// SampleRequest is one row of the request log: one requester, one title.
type SampleRequest struct {
	RequestDate time.Time
	Name        string
	Email       string
	Institution string
	Department  string
	Phone       string
	Position    string
	Address     string
	Reason      string
	BookID      int
	BookTitle   string
	BookAuthor  string
	BookISBN    string
	Status      string
}

func newSampleRequest(f Form, item Item, at time.Time) SampleRequest {
	return SampleRequest{
		RequestDate: at,
		Name:        f.Name,
		Email:       f.Email,
		Institution: f.Institution,
		Department:  f.Department,
		Phone:       f.Phone,
		Position:    f.Position,
		Address:     f.Address,
		Reason:      f.Reason,
		BookID:      item.ID,
		BookTitle:   item.Title,
		BookAuthor:  item.Author,
		BookISBN:    item.ISBN,
		Status:      StatusReceived,
	}
}

// Row renders the record in the request sheet's column layout.
func (r SampleRequest) Row() map[string]any {
	return map[string]any{
		"requestDate": FormatDate(r.RequestDate),
		"name":        r.Name,
		"email":       r.Email,
		"institution": r.Institution,
		"department":  r.Department,
		"address":     r.Address,
		"reason":      r.Reason,
		"bookId":      strconv.Itoa(r.BookID),
		"bookTitle":   r.BookTitle,
		"bookAuthor":  r.BookAuthor,
		"bookIsbn":    r.BookISBN,
		"status":      r.Status,
	}
}

// Receipt acknowledges an accepted submission.
type Receipt struct {
	RequestID   string    `json:"requestId"`
	RequestDate time.Time `json:"requestDate"`
	Count       int       `json:"count"`
}
