package request

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Submitter validates forms and writes one record per requested title.
type Submitter struct {
	repo   Repository
	audit  AuditLog
	tokens TokenChecker
	now    func() time.Time
}

// NewSubmitter creates a submitter. audit and tokens may be nil: without a
// checker, verification is left to the caller.
func NewSubmitter(repo Repository, audit AuditLog, tokens TokenChecker) *Submitter {
	return &Submitter{repo: repo, audit: audit, tokens: tokens, now: time.Now}
}

// Submit validates the form and appends a record for every item. Records
// are sent concurrently and all of them run to completion; if any one is
// rejected the submission fails with ErrSubmitFailed and the records that
// did land stay in the log.
func (s *Submitter) Submit(ctx context.Context, f Form, items []Item) (Receipt, error) {
	f = f.normalized()
	if err := Validate(f, items); err != nil {
		return Receipt{}, err
	}
	if s.tokens != nil {
		if err := s.tokens.Check(f.VerificationToken, f.Email); err != nil {
			return Receipt{}, &ValidationError{
				Code:    CodeEmailNotVerified,
				Message: "이메일 인증이 필요합니다.",
				Fields:  []string{"Email"},
				Status:  http.StatusForbidden,
			}
		}
	}

	var g errgroup.Group
	for _, item := range items {
		rec := newSampleRequest(f, item, s.now())
		g.Go(func() error {
			if err := s.repo.Append(ctx, rec); err != nil {
				return fmt.Errorf("append book %d: %w", rec.BookID, err)
			}
			if s.audit != nil {
				if err := s.audit.Record(ctx, rec); err != nil {
					log.Warn().Err(err).Int("book_id", rec.BookID).Msg("audit sample request")
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error().Err(err).Str("email", f.Email).Int("books", len(items)).Msg("submit sample request")
		return Receipt{}, fmt.Errorf("%w: %w", ErrSubmitFailed, err)
	}

	at := s.now()
	log.Info().Str("email", f.Email).Int("books", len(items)).Msg("sample request received")
	return Receipt{
		RequestID:   "REQ-" + strconv.FormatInt(at.UnixMilli(), 10),
		RequestDate: at,
		Count:       len(items),
	}, nil
}

// IsUserError reports whether err is a validation failure the requester
// can fix.
func IsUserError(err error) bool {
	var verr *ValidationError
	return errors.As(err, &verr)
}
