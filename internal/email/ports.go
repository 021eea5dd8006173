package email

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_ports_test.go -package=email

// Repository is the allow-list store.
type Repository interface {
	All(ctx context.Context) ([]Record, error)
	Append(ctx context.Context, rec Record) error
}
