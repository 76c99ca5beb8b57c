package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/GoSim-25-26J-441/docgen-client/internal/documents/domain"
)

// Handler receives progress events. A returned error is reported to the
// publisher but does not stop delivery to other handlers.
type Handler func(ctx context.Context, event domain.ProgressEvent) error

// Bus fans progress events out to in-process subscribers by operation kind.
// The zero kind subscribes to every event.
type Bus struct {
	mutex       sync.RWMutex
	subscribers map[domain.OperationKind]map[uint64]Handler
	counter     uint64
}

func NewBus() *Bus {
	return &Bus{
		subscribers: make(map[domain.OperationKind]map[uint64]Handler),
	}
}

// Subscribe registers handler for kind and returns its unsubscribe func.
func (b *Bus) Subscribe(kind domain.OperationKind, handler Handler) func() {
	if handler == nil {
		return func() {}
	}
	id := atomic.AddUint64(&b.counter, 1)
	b.mutex.Lock()
	if b.subscribers[kind] == nil {
		b.subscribers[kind] = make(map[uint64]Handler)
	}
	b.subscribers[kind][id] = handler
	b.mutex.Unlock()
	return func() {
		b.mutex.Lock()
		handlers, ok := b.subscribers[kind]
		if ok {
			delete(handlers, id)
			if len(handlers) == 0 {
				delete(b.subscribers, kind)
			}
		}
		b.mutex.Unlock()
	}
}

// SubscribeAll registers handler for every kind.
func (b *Bus) SubscribeAll(handler Handler) func() {
	return b.Subscribe("", handler)
}

func (b *Bus) Publish(ctx context.Context, event domain.ProgressEvent) error {
	b.mutex.RLock()
	handlers := make([]Handler, 0, len(b.subscribers[event.Kind])+len(b.subscribers[""]))
	for _, handler := range b.subscribers[event.Kind] {
		handlers = append(handlers, handler)
	}
	if event.Kind != "" {
		for _, handler := range b.subscribers[""] {
			handlers = append(handlers, handler)
		}
	}
	b.mutex.RUnlock()

	var errs []error
	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
