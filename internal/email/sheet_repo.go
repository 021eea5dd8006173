package email

import (
	"context"

	"samplebook/internal/platform/sheets"
)

type SheetClient interface {
	Rows(ctx context.Context, sheet string) ([]sheets.Row, error)
	Append(ctx context.Context, sheet string, data map[string]any) error
}

// SheetRepo keeps the allow-list in the email sheet.
type SheetRepo struct {
	client SheetClient
}

func NewSheetRepo(client SheetClient) *SheetRepo {
	return &SheetRepo{client: client}
}

func (r *SheetRepo) All(ctx context.Context) ([]Record, error) {
	rows, err := r.client.Rows(ctx, sheets.EmailSheet)
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, Record{
			Email:            Normalize(row.String("email")),
			Name:             row.String("name"),
			Institution:      row.String("institution"),
			Department:       row.String("department"),
			RegistrationDate: row.String("registrationDate"),
		})
	}
	return out, nil
}

func (r *SheetRepo) Append(ctx context.Context, rec Record) error {
	return r.client.Append(ctx, sheets.EmailSheet, map[string]any{
		"email":            rec.Email,
		"name":             rec.Name,
		"institution":      rec.Institution,
		"department":       rec.Department,
		"registrationDate": rec.RegistrationDate,
	})
}
