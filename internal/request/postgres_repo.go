package request

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresAudit keeps a local copy of every record the request sheet
// accepted, including the columns the sheet has no room for.
type PostgresAudit struct {
	db      *pgxpool.Pool
	timeout time.Duration
}

func NewPostgresAudit(db *pgxpool.Pool, timeout time.Duration) *PostgresAudit {
	return &PostgresAudit{db: db, timeout: timeout}
}

func (a *PostgresAudit) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.timeout)
}

func (a *PostgresAudit) Record(ctx context.Context, r SampleRequest) error {
	const query = `
		INSERT INTO sample_requests (
			request_date, name, email, institution, department, phone, position,
			address, reason, book_id, book_title, book_author, book_isbn, status
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	_, err := a.db.Exec(ctx, query,
		r.RequestDate, r.Name, r.Email, r.Institution, r.Department, r.Phone, r.Position,
		r.Address, r.Reason, r.BookID, r.BookTitle, r.BookAuthor, r.BookISBN, r.Status,
	)
	if err != nil {
		return fmt.Errorf("record sample request: %w", err)
	}
	return nil
}

// ListByEmail returns the audited requests of one requester, newest first.
func (a *PostgresAudit) ListByEmail(ctx context.Context, email string, limit int) ([]SampleRequest, error) {
	const query = `
		SELECT request_date, name, email, institution, department, phone, position,
		       address, reason, book_id, book_title, book_author, book_isbn, status
		FROM sample_requests
		WHERE lower(email) = lower($1)
		ORDER BY request_date DESC
		LIMIT $2`

	ctx, cancel := a.withTimeout(ctx)
	defer cancel()
	rows, err := a.db.Query(ctx, query, email, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (SampleRequest, error) {
		var r SampleRequest
		err := row.Scan(
			&r.RequestDate, &r.Name, &r.Email, &r.Institution, &r.Department, &r.Phone, &r.Position,
			&r.Address, &r.Reason, &r.BookID, &r.BookTitle, &r.BookAuthor, &r.BookISBN, &r.Status,
		)
		return r, err
	})
}
