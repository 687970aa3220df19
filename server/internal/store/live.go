package store

import (
	"sync"
	"sync/atomic"
	"time"
)

// Live holds the Store currently served to queries. Readers take the pointer
// once per query; Replace swaps in a freshly loaded Store without locking
// readers out.
type Live struct {
	cur atomic.Pointer[loaded]

	mu   sync.Mutex
	subs []chan struct{}
	now  func() time.Time // injectable for deterministic tests
}

type loaded struct {
	store *Store
	at    time.Time
}

// NewLive returns a Live serving st. A nil st is replaced by an empty Store.
func NewLive(st *Store) *Live {
	l := &Live{now: time.Now}
	l.Replace(st)
	return l
}

// Current returns the Store being served.
func (l *Live) Current() *Store {
	return l.cur.Load().store
}

// LoadedAt returns when the current Store was swapped in.
func (l *Live) LoadedAt() time.Time {
	return l.cur.Load().at
}

// Replace swaps st in and notifies subscribers.
func (l *Live) Replace(st *Store) {
	if st == nil {
		st = &Store{}
	}
	l.cur.Store(&loaded{store: st, at: l.now()})

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ch := range l.subs {
		// Subscribers only need to know that something changed since they
		// last looked, so a pending notification is enough.
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribe returns a channel that receives a value after each Replace.
// Notifications coalesce when the subscriber falls behind.
func (l *Live) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	l.mu.Lock()
	l.subs = append(l.subs, ch)
	l.mu.Unlock()
	return ch
}
