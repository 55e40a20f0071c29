package listener

import (
	"sync"

	"ohhey/pkg/logx"
)

// observers is an ordered callback registry. Subscribers run in
// subscription order, synchronously on the notifying thread; a panic in
// one subscriber is logged and does not stop the others.
type observers[T any] struct {
	log logx.Logger

	mu   sync.Mutex
	next int
	subs []observerEntry[T]
}

type observerEntry[T any] struct {
	id int
	fn func(T)
}

func newObservers[T any](log logx.Logger) *observers[T] {
	return &observers[T]{log: log}
}

// subscribe adds fn and returns its unsubscribe function. Unsubscribing
// twice is a no-op.
func (o *observers[T]) subscribe(fn func(T)) func() {
	o.mu.Lock()
	id := o.next
	o.next++
	o.subs = append(o.subs, observerEntry[T]{id: id, fn: fn})
	o.mu.Unlock()

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		for i, e := range o.subs {
			if e.id == id {
				o.subs = append(o.subs[:i:i], o.subs[i+1:]...)
				return
			}
		}
	}
}

func (o *observers[T]) notify(ev T) {
	o.mu.Lock()
	subs := o.subs
	o.mu.Unlock()

	for _, e := range subs {
		o.invoke(e.fn, ev)
	}
}

func (o *observers[T]) invoke(fn func(T), ev T) {
	defer func() {
		if rec := recover(); rec != nil {
			o.log.Error("panic in event subscriber", logx.Any("panic", rec))
		}
	}()
	fn(ev)
}
