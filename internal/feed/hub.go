// Package feed delivers full per-user transaction snapshots to subscribers
// whenever a user's data changes.
package feed

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"cashflow/internal/ledger"
	"cashflow/internal/logger"
	"cashflow/internal/models"
)

// Snapshot is the complete transaction set of one user, newest first.
// Receivers must treat it as read-only.
type Snapshot struct {
	UserID       string               `json:"userId"`
	Transactions []models.Transaction `json:"transactions"`
	At           time.Time            `json:"at"`
}

// Loader reads every transaction of a user.
type Loader interface {
	ListByUser(ctx context.Context, userID string) ([]models.Transaction, error)
}

// Source is a push-based view of a user's transactions.
type Source interface {
	// Subscribe calls fn with the current snapshot before returning and again
	// after every change until unsubscribe is called.
	Subscribe(ctx context.Context, userID string, fn func(Snapshot)) (unsubscribe func(), err error)
	// FetchOnce loads the current snapshot without subscribing.
	FetchOnce(ctx context.Context, userID string) (Snapshot, error)
}

// Notifier is told when a user's data has been written.
type Notifier interface {
	Changed(ctx context.Context, userID string)
}

// Hub is an in-process Source and Notifier.
//
// Every load is stamped with a sequence number taken before it starts, and
// a subscriber only receives snapshots newer than the last one it got. A
// subscriber is registered before its initial load, so a write that lands
// during that load is delivered by the write's own Changed call.
type Hub struct {
	loader Loader
	seq    atomic.Uint64

	mu     sync.Mutex
	nextID uint64
	subs   map[string]map[uint64]*subscription
}

type subscription struct {
	mu   sync.Mutex
	last uint64
	fn   func(Snapshot)
}

// deliver calls fn unless a snapshot from a later load was already delivered.
func (s *subscription) deliver(seq uint64, snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq <= s.last {
		return
	}
	s.last = seq
	s.fn(snap)
}

// NewHub creates a Hub that reloads snapshots from loader.
func NewHub(loader Loader) *Hub {
	return &Hub{
		loader: loader,
		subs:   make(map[string]map[uint64]*subscription),
	}
}

// FetchOnce loads the current snapshot for userID.
func (h *Hub) FetchOnce(ctx context.Context, userID string) (Snapshot, error) {
	records, err := h.loader.ListByUser(ctx, userID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return Snapshot{
		UserID:       userID,
		Transactions: ledger.SortByDateDesc(records),
		At:           time.Now(),
	}, nil
}

// Subscribe registers fn for userID and delivers the current snapshot. fn
// is never called concurrently with itself.
func (h *Hub) Subscribe(ctx context.Context, userID string, fn func(Snapshot)) (func(), error) {
	sub := &subscription{fn: fn}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	if h.subs[userID] == nil {
		h.subs[userID] = make(map[uint64]*subscription)
	}
	h.subs[userID][id] = sub
	h.mu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[userID], id)
			if len(h.subs[userID]) == 0 {
				delete(h.subs, userID)
			}
		})
	}

	seq := h.seq.Add(1)
	snap, err := h.FetchOnce(ctx, userID)
	if err != nil {
		unsubscribe()
		return nil, err
	}
	sub.deliver(seq, snap)
	return unsubscribe, nil
}

// Subscribers returns how many subscriptions userID has.
func (h *Hub) Subscribers(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[userID])
}

// Changed reloads userID's snapshot and pushes it to every subscriber. It
// does nothing when the user has no subscribers. Load failures are logged.
func (h *Hub) Changed(ctx context.Context, userID string) {
	h.mu.Lock()
	subs := make([]*subscription, 0, len(h.subs[userID]))
	for _, sub := range h.subs[userID] {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	if len(subs) == 0 {
		return
	}

	seq := h.seq.Add(1)
	snap, err := h.FetchOnce(ctx, userID)
	if err != nil {
		logger.Named("feed").Warnw("failed to reload snapshot", "user_id", userID, "error", err)
		return
	}
	for _, sub := range subs {
		sub.deliver(seq, snap)
	}
}
