package apply

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrFlowNotFound = errors.New("application not found")

// Flows holds in-progress applications in memory. Flows idle for longer
// than the TTL are dropped when new ones are created.
type Flows struct {
	mu     sync.Mutex
	flows  map[string]*Flow
	tokens Issuer
	ttl    time.Duration
	now    func() time.Time
}

// NewFlows creates a registry. tokens may be nil when submissions are not
// token-checked.
func NewFlows(tokens Issuer, ttl time.Duration) *Flows {
	return &Flows{flows: make(map[string]*Flow), tokens: tokens, ttl: ttl, now: time.Now}
}

func (fs *Flows) Create() *Flow {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.sweep()

	f := newFlow(uuid.NewString(), fs.tokens, fs.now)
	fs.flows[f.id] = f
	return f
}

func (fs *Flows) Get(id string) (*Flow, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	f, ok := fs.flows[id]
	if !ok {
		return nil, ErrFlowNotFound
	}
	return f, nil
}

func (fs *Flows) Len() int {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return len(fs.flows)
}

// sweep drops expired flows. Flows busy in another request are skipped.
// Callers hold fs.mu.
func (fs *Flows) sweep() {
	if fs.ttl <= 0 {
		return
	}
	cutoff := fs.now().Add(-fs.ttl)
	for id, f := range fs.flows {
		if !f.mu.TryLock() {
			continue
		}
		expired := f.updated.Before(cutoff)
		f.mu.Unlock()
		if expired {
			delete(fs.flows, id)
		}
	}
}
