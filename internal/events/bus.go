package events

import (
	"context"
	"errors"
	"slices"
	"sync"
)

// Handler observes a published event.
type Handler func(ctx context.Context, event Event)

// Bus is an in-process publisher. Handlers run synchronously in subscription
// order on the publishing goroutine.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	handlers map[int]subscription
}

type subscription struct {
	types   map[string]struct{}
	handler Handler
}

func NewBus() *Bus {
	return &Bus{handlers: make(map[int]subscription)}
}

// Subscribe registers h for the given event types, or for every event when
// none are given. The returned func removes the subscription.
func (b *Bus) Subscribe(h Handler, eventTypes ...string) func() {
	sub := subscription{handler: h}
	if len(eventTypes) > 0 {
		sub.types = make(map[string]struct{}, len(eventTypes))
		for _, t := range eventTypes {
			sub.types[t] = struct{}{}
		}
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = sub
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		delete(b.handlers, id)
		b.mu.Unlock()
	}
}

func (b *Bus) Publish(ctx context.Context, event Event) error {
	b.mu.RLock()
	ids := make([]int, 0, len(b.handlers))
	for id := range b.handlers {
		ids = append(ids, id)
	}
	subs := make([]subscription, 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		subs = append(subs, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, sub := range subs {
		if sub.types != nil {
			if _, ok := sub.types[event.EventType]; !ok {
				continue
			}
		}
		sub.handler(ctx, event)
	}
	return nil
}

// Multi fans an event out to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
