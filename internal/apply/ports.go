package apply

import (
	"context"

	"samplebook/internal/book"
	"samplebook/internal/email"
	"samplebook/internal/request"
)

//go:generate mockgen -source=ports.go -destination=mock_ports_test.go -package=apply

type Verifier interface {
	Verify(ctx context.Context, addr string) (email.Result, error)
}

type Issuer interface {
	Issue(addr string) (string, error)
}

type Catalog interface {
	GetByID(ctx context.Context, id int) (book.Book, error)
}

type Submitter interface {
	Submit(ctx context.Context, f request.Form, items []request.Item) (request.Receipt, error)
}
