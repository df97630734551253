package moderation

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/itsJ0ker/midnight/internal/database"
	gocache "github.com/patrickmn/go-cache"
)

// Registry keeps one Controller per browser session, keyed by an opaque id.
// Controllers that are not used for ttl are evicted and closed.
type Registry struct {
	cache *gocache.Cache
	ttl   time.Duration
	new   func() *Controller
}

// NewRegistry creates a registry. newController builds the controller for a new browser session.
func NewRegistry(ttl time.Duration, newController func() *Controller) *Registry {
	c := gocache.New(ttl, cleanupInterval(ttl))
	c.OnEvicted(func(id string, v any) {
		if ctrl, ok := v.(*Controller); ok {
			log.Debug("closing admin controller", "sid", id)
			ctrl.Close()
		}
	})

	return &Registry{
		cache: c,
		ttl:   ttl,
		new:   newController,
	}
}

func cleanupInterval(ttl time.Duration) time.Duration {
	return min(max(ttl/2, 10*time.Millisecond), time.Minute)
}

// Create registers a new controller and returns its id.
func (r *Registry) Create() (string, *Controller) {
	id := uuid.NewString()
	ctrl := r.new()
	r.cache.Set(id, ctrl, gocache.DefaultExpiration)
	return id, ctrl
}

// Login authenticates on a new controller and registers it only if the login succeeded.
func (r *Registry) Login(ctx context.Context, email, password string) (string, *Controller, *database.Admin, error) {
	ctrl := r.new()
	admin, err := ctrl.Login(ctx, email, password)
	if err != nil {
		ctrl.Close()
		return "", nil, nil, err
	}

	id := uuid.NewString()
	r.cache.Set(id, ctrl, gocache.DefaultExpiration)
	return id, ctrl, admin, nil
}

// Get returns the controller for id and extends its lifetime.
func (r *Registry) Get(id string) (*Controller, bool) {
	if id == "" {
		return nil, false
	}
	v, ok := r.cache.Get(id)
	if !ok {
		return nil, false
	}
	ctrl := v.(*Controller)
	r.cache.Set(id, ctrl, gocache.DefaultExpiration)
	return ctrl, true
}

// Remove closes and forgets the controller for id.
func (r *Registry) Remove(id string) {
	r.cache.Delete(id)
}

// Len returns the number of live controllers.
func (r *Registry) Len() int {
	return r.cache.ItemCount()
}

// Close closes every controller.
func (r *Registry) Close() {
	for id := range r.cache.Items() {
		r.cache.Delete(id)
	}
}
