package cart

import (
	"context"
	"sync"
	"time"
	"weak"

	"samplebook/internal/book"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// DefaultKey is the storage key of a store not tied to a session.
const DefaultKey = "cart"

// Key returns the storage key for a session's cart.
func Key(session string) string {
	if session == "" {
		return DefaultKey
	}
	return DefaultKey + ":" + session
}

// NewSession allocates a session id.
func NewSession() string {
	return uuid.NewString()
}

// ValidSession reports whether s is a session id NewSession could have made.
func ValidSession(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}

type registryEntry struct {
	store    *Store
	lastUsed time.Time
}

// Registry keeps one open Store per session. At most max stores are pinned
// in memory; the least recently used is unpinned first. An unpinned store
// that a handler still holds is handed out again, so one session never has
// two live stores. Once collected it is rehydrated from storage.
type Registry struct {
	storage Storage
	max     int

	mu       sync.Mutex
	stores   map[string]*registryEntry
	unpinned map[string]weak.Pointer[Store]
	now      func() time.Time
}

func NewRegistry(storage Storage, max int) *Registry {
	if max < 1 {
		max = 1
	}
	return &Registry{
		storage: storage,
		max:     max,
		stores:   make(map[string]*registryEntry),
		unpinned: make(map[string]weak.Pointer[Store]),
		now:      time.Now,
	}
}

// Get returns the store for session, opening it on first use.
func (r *Registry) Get(ctx context.Context, session string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.stores[session]; ok {
		e.lastUsed = r.now()
		return e.store
	}

	s := r.unpinned[session].Value()
	delete(r.unpinned, session)

	if len(r.stores) >= r.max {
		r.evictOldest()
	}
	if s == nil {
		s = Open(ctx, r.storage, Key(session))
		s.Subscribe(func(items []book.Book) {
			log.Debug().Str("session", session).Int("count", len(items)).Msg("cart changed")
		})
	}
	r.stores[session] = &registryEntry{store: s, lastUsed: r.now()}
	return s
}

// Len reports how many stores are held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.stores)
}

func (r *Registry) evictOldest() {
	var (
		oldest string
		at     time.Time
		found  bool
	)
	for session, e := range r.stores {
		if !found || e.lastUsed.Before(at) {
			oldest, at, found = session, e.lastUsed, true
		}
	}
	if !found {
		return
	}
	r.unpinned[oldest] = weak.Make(r.stores[oldest].store)
	delete(r.stores, oldest)

	for session, p := range r.unpinned {
		if p.Value() == nil {
			delete(r.unpinned, session)
		}
	}
}
