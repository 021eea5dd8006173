package book

import (
	"errors"
)

// ErrNotFound is returned when a book is not found.
var ErrNotFound = errors.New("book not found")

// PlaceholderImage is used for catalog rows without an image.
const PlaceholderImage = "/images/book-placeholder.jpg"

// Book represents a catalog entry. Identity is ID.
type Book struct {
	ID          int    `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Author      string `json:"author" yaml:"author"`
	Publisher   string `json:"publisher" yaml:"publisher"`
	Price       int    `json:"price" yaml:"price"`
	Image       string `json:"image" yaml:"image"`
	Description string `json:"description" yaml:"description"`
	Category    string `json:"category" yaml:"category"`
	ISBN        string `json:"isbn" yaml:"isbn"`
	DetailURL   string `json:"detailUrl,omitempty" yaml:"detailUrl"`
}

// Query filters a catalog listing. Empty fields match everything.
type Query struct {
	Q        string
	Category string
}
