package book

import (
	"context"

	"samplebook/internal/platform/sheets"
)

// SheetReader is the read side of the sheet client.
type SheetReader interface {
	Rows(ctx context.Context, sheet string) ([]sheets.Row, error)
}

// SheetRepo reads the catalog sheet. Rows carry no id column, so a book's
// id is its 1-based row position.
type SheetRepo struct {
	client SheetReader
}

func NewSheetRepo(client SheetReader) *SheetRepo {
	return &SheetRepo{client: client}
}

func (r *SheetRepo) All(ctx context.Context) ([]Book, error) {
	rows, err := r.client.Rows(ctx, sheets.CatalogSheet)
	if err != nil {
		return nil, err
	}

	out := make([]Book, 0, len(rows))
	for i, row := range rows {
		out = append(out, fromRow(i+1, row))
	}
	return out, nil
}

func fromRow(id int, row sheets.Row) Book {
	image := row.String("image")
	if image == "" {
		image = PlaceholderImage
	}
	return Book{
		ID:          id,
		Title:       row.String("title"),
		Author:      row.String("author"),
		Publisher:   row.String("publisher"),
		Price:       row.Int("price"),
		Image:       image,
		Description: row.String("description"),
		Category:    row.String("category"),
		ISBN:        row.String("isbn"),
		DetailURL:   row.String("detailUrl"),
	}
}

// ToRow renders a book in the catalog sheet's column layout.
func ToRow(b Book) map[string]any {
	return map[string]any{
		"title":       b.Title,
		"author":      b.Author,
		"publisher":   b.Publisher,
		"price":       b.Price,
		"image":       b.Image,
		"description": b.Description,
		"category":    b.Category,
		"isbn":        b.ISBN,
		"detailUrl":   b.DetailURL,
	}
}
