package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"samplebook/internal/book"

	"github.com/rs/zerolog/log"
)

// MaxItems bounds the cart.
const MaxItems = 3

var (
	ErrAlreadyInCart = errors.New("book already in cart")
	ErrCartFull      = errors.New("cart is full")
)

// Observer receives a snapshot of the cart after each change.
type Observer func(items []book.Book)

// Store is an ordered set of at most MaxItems books, persisted under one
// storage key on every change.
type Store struct {
	mu        sync.Mutex
	storage   Storage
	key       string
	items     []book.Book
	observers map[int]Observer
	nextObs   int
}

// Open hydrates a store from storage. Unreadable or malformed data starts
// the cart empty.
func Open(ctx context.Context, storage Storage, key string) *Store {
	s := &Store{storage: storage, key: key, observers: make(map[int]Observer)}

	raw, ok, err := storage.Get(ctx, key)
	switch {
	case err != nil:
		log.Warn().Err(err).Str("key", key).Msg("read cart, starting empty")
	case !ok:
	default:
		var items []book.Book
		if err := json.Unmarshal(raw, &items); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("malformed cart data, starting empty")
			break
		}
		s.items = sanitize(items)
	}
	return s
}

// sanitize drops duplicate ids and anything past MaxItems.
func sanitize(items []book.Book) []book.Book {
	seen := make(map[int]bool, len(items))
	out := make([]book.Book, 0, MaxItems)
	for _, b := range items {
		if seen[b.ID] || len(out) == MaxItems {
			continue
		}
		seen[b.ID] = true
		out = append(out, b)
	}
	return out
}

func (s *Store) indexOf(id int) int {
	for i, b := range s.items {
		if b.ID == id {
			return i
		}
	}
	return -1
}

// commit persists next and, once stored, makes it the current content.
// Callers hold s.mu.
func (s *Store) commit(ctx context.Context, next []book.Book) ([]book.Book, []Observer, error) {
	raw, err := json.Marshal(next)
	if err != nil {
		return nil, nil, fmt.Errorf("encode cart: %w", err)
	}
	if err := s.storage.Set(ctx, s.key, raw); err != nil {
		return nil, nil, fmt.Errorf("persist cart: %w", err)
	}
	s.items = next

	observers := make([]Observer, 0, len(s.observers))
	for _, fn := range s.observers {
		observers = append(observers, fn)
	}
	return append([]book.Book(nil), next...), observers, nil
}

func notify(snapshot []book.Book, observers []Observer) {
	for _, fn := range observers {
		fn(append([]book.Book(nil), snapshot...))
	}
}

// Add appends b unless it is already present or the cart is full.
func (s *Store) Add(ctx context.Context, b book.Book) error {
	s.mu.Lock()
	if s.indexOf(b.ID) >= 0 {
		s.mu.Unlock()
		return ErrAlreadyInCart
	}
	if len(s.items) >= MaxItems {
		s.mu.Unlock()
		return ErrCartFull
	}
	next := append(append(make([]book.Book, 0, len(s.items)+1), s.items...), b)
	snapshot, observers, err := s.commit(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	notify(snapshot, observers)
	return nil
}

// Remove deletes the book with id. Removing an absent id is a no-op.
func (s *Store) Remove(ctx context.Context, id int) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return nil
	}
	next := make([]book.Book, 0, len(s.items)-1)
	next = append(next, s.items[:i]...)
	next = append(next, s.items[i+1:]...)
	snapshot, observers, err := s.commit(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	notify(snapshot, observers)
	return nil
}

// RemoveAll deletes every book whose id is in ids, leaving the rest in
// order.
func (s *Store) RemoveAll(ctx context.Context, ids []int) error {
	drop := make(map[int]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}

	s.mu.Lock()
	next := make([]book.Book, 0, len(s.items))
	for _, b := range s.items {
		if !drop[b.ID] {
			next = append(next, b)
		}
	}
	if len(next) == len(s.items) {
		s.mu.Unlock()
		return nil
	}
	snapshot, observers, err := s.commit(ctx, next)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	notify(snapshot, observers)
	return nil
}

// Clear empties the cart.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	snapshot, observers, err := s.commit(ctx, []book.Book{})
	s.mu.Unlock()
	if err != nil {
		return err
	}

	notify(snapshot, observers)
	return nil
}

func (s *Store) Contains(id int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(id) >= 0
}

// Items returns a copy of the cart in insertion order.
func (s *Store) Items() []book.Book {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]book.Book{}, s.items...)
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Subscribe registers fn for change notifications. Observers run on the
// mutating goroutine after the store lock is released.
func (s *Store) Subscribe(fn Observer) (unsubscribe func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextObs
	s.nextObs++
	s.observers[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			delete(s.observers, id)
		})
	}
}
