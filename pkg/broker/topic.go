package broker

import "sync"

// Subscription is a registered handler. Unsubscribe is idempotent and safe on
// a nil Subscription.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Unsubscribe removes the handler from future publishes. A publish that
// started before the call may still deliver to the handler once, so handlers
// that must stop immediately need their own closed check.
func (s *Subscription) Unsubscribe() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

type entry[T any] struct {
	id uint64
	fn func(T)
}

// topic is an ordered list of handlers for one event kind.
type topic[T any] struct {
	mu   sync.RWMutex
	next uint64
	subs []entry[T]
}

func (t *topic[T]) subscribe(fn func(T)) *Subscription {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.next++
	id := t.next
	t.subs = append(t.subs, entry[T]{id: id, fn: fn})

	return &Subscription{cancel: func() { t.remove(id) }}
}

func (t *topic[T]) remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, e := range t.subs {
		if e.id == id {
			t.subs = append(t.subs[:i:i], t.subs[i+1:]...)
			return
		}
	}
}

// publish calls every handler in subscription order. The handler list is
// snapshotted so handlers may subscribe or unsubscribe while being called.
func (t *topic[T]) publish(ev T) int {
	t.mu.RLock()
	subs := make([]entry[T], len(t.subs))
	copy(subs, t.subs)
	t.mu.RUnlock()

	for _, e := range subs {
		e.fn(ev)
	}

	return len(subs)
}

func (t *topic[T]) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.subs)
}
