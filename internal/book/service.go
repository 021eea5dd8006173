package book

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

// Service provides catalog lookups. Upstream read failures never reach
// callers: the fixed fallback catalog is served instead.
type Service struct {
	repo  Repository
	group singleflight.Group
}

// NewService creates a new catalog service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// catalog fetches the current catalog, coalescing concurrent fetches. The
// shared fetch is detached from any one caller's cancellation; a caller
// that goes away stops waiting without failing the others.
func (s *Service) catalog(ctx context.Context) []Book {
	ch := s.group.DoChan("catalog", func() (interface{}, error) {
		return s.repo.All(context.WithoutCancel(ctx))
	})
	select {
	case <-ctx.Done():
		return Fallback()
	case res := <-ch:
		if res.Err != nil {
			log.Warn().Err(res.Err).Msg("catalog unavailable, serving fallback catalog")
			return Fallback()
		}
		return append([]Book(nil), res.Val.([]Book)...)
	}
}

// List returns the books matching q in catalog order.
func (s *Service) List(ctx context.Context, q Query) ([]Book, error) {
	return Filter(s.catalog(ctx), q), nil
}

// GetByID returns a book by its id.
func (s *Service) GetByID(ctx context.Context, id int) (Book, error) {
	for _, b := range s.catalog(ctx) {
		if b.ID == id {
			return b, nil
		}
	}
	return Book{}, ErrNotFound
}

// Categories returns the distinct categories in first-seen order.
func (s *Service) Categories(ctx context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var out []string
	for _, b := range s.catalog(ctx) {
		if b.Category == "" || seen[b.Category] {
			continue
		}
		seen[b.Category] = true
		out = append(out, b.Category)
	}
	return out, nil
}

// Filter applies a case-insensitive substring match of q.Q on title, author
// and publisher, then an exact match on q.Category.
func Filter(books []Book, q Query) []Book {
	needle := strings.ToLower(strings.TrimSpace(q.Q))
	out := make([]Book, 0, len(books))
	for _, b := range books {
		if needle != "" &&
			!strings.Contains(strings.ToLower(b.Title), needle) &&
			!strings.Contains(strings.ToLower(b.Author), needle) &&
			!strings.Contains(strings.ToLower(b.Publisher), needle) {
			continue
		}
		if q.Category != "" && b.Category != q.Category {
			continue
		}
		out = append(out, b)
	}
	return out
}
