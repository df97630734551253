// Package realtime delivers payload-less change signals per collection.
package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/itsJ0ker/midnight/internal/config"
	"github.com/itsJ0ker/midnight/internal/database"
)

// ErrClosed is returned when publishing on a closed broker.
var ErrClosed = errors.New("broker is closed")

// Broker fans out change signals. A signal only says that a collection may have changed.
type Broker interface {
	Publish(ctx context.Context, collection database.Collection) error
	Subscribe(collection database.Collection, onChange func()) Subscription
	Close() error
}

// Subscription is a handle returned by Subscribe. Unsubscribe may be called any number of times.
type Subscription interface {
	Unsubscribe()
}

// New returns the broker selected by the realtime configuration.
func New(ctx context.Context, cfg *config.RealtimeConfig) (Broker, error) {
	if cfg == nil {
		return NewMemoryBroker(), nil
	}
	switch cfg.Type {
	case config.BackendTypeMemory, "":
		return NewMemoryBroker(), nil
	case config.BackendTypeRedis:
		return NewRedisBroker(ctx, cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unknown realtime type %q", cfg.Type)
	}
}

type subscription struct {
	once   sync.Once
	cancel func()
}

func (s *subscription) Unsubscribe() {
	s.once.Do(s.cancel)
}

// Group bundles several subscriptions so they can be released together.
type Group struct {
	mu   sync.Mutex
	subs []Subscription
}

// Add keeps track of sub.
func (g *Group) Add(sub Subscription) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.subs = append(g.subs, sub)
}

// Len returns the number of subscriptions held.
func (g *Group) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.subs)
}

// Unsubscribe releases every subscription in the group and empties it.
func (g *Group) Unsubscribe() {
	g.mu.Lock()
	subs := g.subs
	g.subs = nil
	g.mu.Unlock()

	for _, sub := range subs {
		sub.Unsubscribe()
	}
}
