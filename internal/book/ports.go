package book

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_ports_test.go -package=book

// Repository defines the contract for the catalog source.
type Repository interface {
	// All returns the whole catalog in sheet order.
	All(ctx context.Context) ([]Book, error)
}
