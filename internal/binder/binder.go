// Package binder carries selection context from the moment an item is
// chosen to the moment its feedback arrives. Decisions queue per
// (user, plan) in FIFO order until delivery confirms them, then live in
// a bounded correlation-id cache until rated or evicted.
package binder

import (
	"context"
	"sync"
	"time"

	"github.com/yungbote/contentselect/internal/logger"
)

// Snapshot is the frozen context of one selection decision: the exact
// vector the policy scored so the eventual reward updates the same
// point in feature space.
type Snapshot struct {
	UserID     string    `json:"user_id"`
	PlanID     string    `json:"plan_id"`
	MissionID  string    `json:"mission_id"`
	ItemID     string    `json:"item_id"`
	Vector     []float64 `json:"vector,omitempty"`
	SelectedAt time.Time `json:"selected_at"`
}

// Mirror is an optional write-through replica of the bound cache; the
// in-memory binder stays authoritative and mirror failures never block.
type Mirror interface {
	Store(ctx context.Context, correlationID string, s Snapshot)
	Remove(ctx context.Context, correlationID string)
}

type planKey struct {
	userID string
	planID string
}

type Binder struct {
	mu       sync.Mutex
	capacity int
	pending  map[planKey][]Snapshot
	bound    map[string]Snapshot
	order    []string
	dead     int
	mirror   Mirror
	log      *logger.Logger
}

func New(capacity int, mirror Mirror, log *logger.Logger) *Binder {
	if log == nil {
		log = logger.NewNop()
	}
	return &Binder{
		capacity: capacity,
		pending:  map[planKey][]Snapshot{},
		bound:    map[string]Snapshot{},
		mirror:   mirror,
		log:      log,
	}
}

// Enqueue appends a freshly selected decision to its plan queue.
func (b *Binder) Enqueue(s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	k := planKey{s.UserID, s.PlanID}
	b.pending[k] = append(b.pending[k], s)
}

// BindOnSent moves the oldest queued decision for itemID (and
// missionID when given) from the plan queue into the correlation
// cache. It reports false when no queued decision matches, which
// callers resolve by reconstruction.
func (b *Binder) BindOnSent(ctx context.Context, userID, planID, itemID, missionID, correlationID string) (Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	k := planKey{userID, planID}
	queue := b.pending[k]
	for i, s := range queue {
		if s.ItemID != itemID {
			continue
		}
		if missionID != "" && s.MissionID != missionID {
			continue
		}
		b.pending[k] = append(queue[:i:i], queue[i+1:]...)
		if len(b.pending[k]) == 0 {
			delete(b.pending, k)
		}
		b.storeLocked(ctx, correlationID, s)
		return s, true
	}
	return Snapshot{}, false
}

// Put inserts a snapshot directly under a correlation id; the
// reconstruction path uses it after rebuilding a decision offline.
func (b *Binder) Put(ctx context.Context, correlationID string, s Snapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.storeLocked(ctx, correlationID, s)
}

func (b *Binder) Lookup(correlationID string) (Snapshot, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	s, ok := b.bound[correlationID]
	return s, ok
}

// Release removes a correlation id whether or not it is present.
func (b *Binder) Release(ctx context.Context, correlationID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.bound[correlationID]; ok {
		delete(b.bound, correlationID)
		b.dead++
		b.compactLocked()
	}
	if b.mirror != nil {
		b.mirror.Remove(ctx, correlationID)
	}
}

// compactLocked drops released ids from the insertion order once they
// outnumber the live ones, keeping the order slice proportional to the
// cache instead of growing with total traffic.
func (b *Binder) compactLocked() {
	if b.dead*2 <= len(b.order) {
		return
	}
	live := b.order[:0]
	for _, id := range b.order {
		if _, ok := b.bound[id]; ok {
			live = append(live, id)
		}
	}
	b.order = live
	b.dead = 0
}

// ClearPending drops any undelivered decisions for a plan; called when
// a new slate supersedes it.
func (b *Binder) ClearPending(userID, planID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pending, planKey{userID, planID})
}

func (b *Binder) BoundLen() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.bound)
}

func (b *Binder) PendingLen(userID, planID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.pending[planKey{userID, planID}])
}

func (b *Binder) storeLocked(ctx context.Context, correlationID string, s Snapshot) {
	if _, exists := b.bound[correlationID]; !exists {
		for len(b.bound) >= b.capacity && len(b.order) > 0 {
			oldest := b.order[0]
			b.order = b.order[1:]
			if _, live := b.bound[oldest]; !live {
				b.dead--
				continue
			}
			delete(b.bound, oldest)
			b.log.Warn("Binder cache full, evicting oldest bound decision",
				"evicted_correlation_id", oldest, "capacity", b.capacity)
			if b.mirror != nil {
				b.mirror.Remove(ctx, oldest)
			}
		}
		b.order = append(b.order, correlationID)
	}
	b.bound[correlationID] = s
	if b.mirror != nil {
		b.mirror.Store(ctx, correlationID, s)
	}
}
