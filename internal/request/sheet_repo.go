package request

import (
	"context"

	"samplebook/internal/platform/sheets"
)

type SheetWriter interface {
	Append(ctx context.Context, sheet string, data map[string]any) error
}

// SheetRepo appends requests to the request sheet.
type SheetRepo struct {
	client SheetWriter
}

func NewSheetRepo(client SheetWriter) *SheetRepo {
	return &SheetRepo{client: client}
}

func (r *SheetRepo) Append(ctx context.Context, req SampleRequest) error {
	return r.client.Append(ctx, sheets.RequestSheet, req.Row())
}
