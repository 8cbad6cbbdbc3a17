package subscription

import (
	"sort"
	"sync"
)

// Registry tracks subscriptions by resource URI and by server-assigned id.
// It is safe for concurrent use.
type Registry struct {
	mu sync.RWMutex

	// Every subscription not yet closed, keyed by URI.
	byURI map[string]*Subscription

	// Subscribed entries, keyed by server id.
	byID map[uint32]*Subscription
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byURI: make(map[string]*Subscription),
		byID:  make(map[uint32]*Subscription),
	}
}

// Add registers sub under its URI. A failed or closed entry for the same URI
// is replaced; any other entry makes Add fail with ErrDuplicateResource.
func (r *Registry) Add(sub *Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byURI[sub.URI()]; ok && existing != sub {
		switch existing.State() {
		case StateFailed, StateClosed:
			r.unbindLocked(existing)
		default:
			return ErrDuplicateResource
		}
	}
	r.byURI[sub.URI()] = sub
	return nil
}

// Bind indexes sub under id. The subscription must already be registered.
func (r *Registry) Bind(sub *Subscription, id uint32) error {
	if id == 0 {
		return ErrInvalidID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byURI[sub.URI()] != sub {
		return ErrNotRegistered
	}
	if existing, ok := r.byID[id]; ok && existing != sub {
		return ErrDuplicateID
	}
	r.byID[id] = sub
	return nil
}

// Unbind removes the id index entry for id.
func (r *Registry) Unbind(id uint32) {
	r.mu.Lock()
	delete(r.byID, id)
	r.mu.Unlock()
}

// Remove drops sub from both indexes.
func (r *Registry) Remove(sub *Subscription) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.byURI[sub.URI()] == sub {
		delete(r.byURI, sub.URI())
	}
	r.unbindLocked(sub)
}

// unbindLocked removes every id entry pointing at sub. The subscription's own
// id may already be cleared, so the index is scanned. Caller must hold r.mu.
func (r *Registry) unbindLocked(sub *Subscription) {
	for id, s := range r.byID {
		if s == sub {
			delete(r.byID, id)
		}
	}
}

// ByID returns the subscription bound to id.
func (r *Registry) ByID(id uint32) (*Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.byID[id]
	return sub, ok
}

// ByURI returns the subscription registered for uri.
func (r *Registry) ByURI(uri string) (*Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sub, ok := r.byURI[uri]
	return sub, ok
}

// All returns every registered subscription ordered by URI.
func (r *Registry) All() []*Subscription {
	r.mu.RLock()
	subs := make([]*Subscription, 0, len(r.byURI))
	for _, s := range r.byURI {
		subs = append(subs, s)
	}
	r.mu.RUnlock()

	sortByURI(subs)
	return subs
}

// InState returns the registered subscriptions currently in state, ordered by
// URI.
func (r *Registry) InState(state State) []*Subscription {
	var out []*Subscription
	for _, s := range r.All() {
		if s.State() == state {
			out = append(out, s)
		}
	}
	return out
}

// Count returns the number of registered subscriptions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byURI)
}

// Detach is applied on connection loss. It clears the id index, resets every
// live entry to Unknown and returns the entries that must be subscribed again,
// ordered by URI. Entries waiting for an unsubscribe ack are closed and
// removed. Failed entries stay registered and are not returned.
func (r *Registry) Detach() []*Subscription {
	r.mu.Lock()
	r.byID = make(map[uint32]*Subscription)

	var resubscribe []*Subscription
	for uri, s := range r.byURI {
		if s.Reset() {
			resubscribe = append(resubscribe, s)
			continue
		}
		if s.State() == StateClosed {
			delete(r.byURI, uri)
		}
	}
	r.mu.Unlock()

	sortByURI(resubscribe)
	return resubscribe
}

func sortByURI(subs []*Subscription) {
	sort.Slice(subs, func(i, j int) bool {
		return subs[i].URI() < subs[j].URI()
	})
}
