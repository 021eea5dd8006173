package email

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Service answers allow-list lookups. When the allow-list cannot be read the
// fixed fallback list is consulted instead.
type Service struct {
	repo  Repository
	group singleflight.Group
	now   func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// records loads the allow-list once per burst of concurrent lookups.
func (s *Service) records(ctx context.Context) ([]Record, error) {
	ch := s.group.DoChan("allow-list", func() (interface{}, error) {
		return s.repo.All(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			log.Warn().Err(res.Err).Msg("allow-list unavailable, using fallback list")
			return Fallback(), nil
		}
		return res.Val.([]Record), nil
	}
}

// Verify reports whether email is on the allow-list.
func (s *Service) Verify(ctx context.Context, email string) (Result, error) {
	key := Normalize(email)
	if key == "" {
		return Result{}, ErrEmailRequired
	}

	records, err := s.records(ctx)
	if err != nil {
		return Result{}, err
	}
	for _, rec := range records {
		if Normalize(rec.Email) != key {
			continue
		}
		return Result{
			Verified:    true,
			Institution: rec.Institution,
			Department:  rec.Department,
			Name:        rec.Name,
		}, nil
	}
	return Result{Verified: false}, nil
}

// Register appends an address to the allow-list, stamping the registration
// date when the record has none.
func (s *Service) Register(ctx context.Context, rec Record) error {
	rec.Email = Normalize(rec.Email)
	if rec.Email == "" {
		return ErrEmailRequired
	}
	if rec.RegistrationDate == "" {
		rec.RegistrationDate = s.now().Format(time.RFC3339)
	}
	if err := s.repo.Append(ctx, rec); err != nil {
		return fmt.Errorf("register %s: %w", rec.Email, err)
	}
	return nil
}
