package request

import (
	"context"
)

//go:generate mockgen -source=ports.go -destination=mock_ports_test.go -package=request

// Repository is the authoritative request log.
type Repository interface {
	Append(ctx context.Context, r SampleRequest) error
}

// AuditLog mirrors accepted records; it is best effort.
type AuditLog interface {
	Record(ctx context.Context, r SampleRequest) error
}

// TokenChecker proves an email was verified in the requester's session.
type TokenChecker interface {
	Check(token, email string) error
}
