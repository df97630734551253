package realtime

import (
	"context"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/itsJ0ker/midnight/internal/database"
)

var _ Broker = (*MemoryBroker)(nil)

// MemoryBroker is an in-process broker. Handlers run on their own goroutine.
type MemoryBroker struct {
	mu       sync.RWMutex
	handlers map[database.Collection]map[uint64]func()
	nextID   uint64
	closed   bool
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{
		handlers: make(map[database.Collection]map[uint64]func()),
	}
}

func (b *MemoryBroker) Publish(_ context.Context, collection database.Collection) error {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return ErrClosed
	}
	fns := make([]func(), 0, len(b.handlers[collection]))
	for _, fn := range b.handlers[collection] {
		fns = append(fns, fn)
	}
	b.mu.RUnlock()

	log.Debug("publishing change", "collection", collection, "subscribers", len(fns))
	for _, fn := range fns {
		go fn()
	}
	return nil
}

func (b *MemoryBroker) Subscribe(collection database.Collection, onChange func()) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	if b.handlers[collection] == nil {
		b.handlers[collection] = make(map[uint64]func())
	}
	b.handlers[collection][id] = onChange

	return &subscription{cancel: func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.handlers[collection], id)
	}}
}

// Subscribers returns the number of active subscriptions for a collection.
func (b *MemoryBroker) Subscribers(collection database.Collection) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.handlers[collection])
}

func (b *MemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[database.Collection]map[uint64]func())
	return nil
}
