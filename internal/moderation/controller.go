// Package moderation implements the admin dashboard workflow: login, list synchronization,
// admin creation and confirmed deletion of records.
package moderation

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/itsJ0ker/midnight/internal/database"
	"github.com/itsJ0ker/midnight/internal/realtime"
	"github.com/itsJ0ker/midnight/internal/session"
	"golang.org/x/sync/errgroup"
)

const reloadTimeout = 30 * time.Second

// Gateway is the backend used by the controller.
type Gateway interface {
	session.Authenticator

	ListAdmins(ctx context.Context) ([]database.Admin, error)
	ListApplications(ctx context.Context) ([]database.Application, error)
	ListDevTeamApplications(ctx context.Context) ([]database.DevTeamApplication, error)
	CreateAdmin(ctx context.Context, admin *database.Admin) error
	Delete(ctx context.Context, collection database.Collection, id uint) error
	Subscribe(collection database.Collection, onChange func()) realtime.Subscription
}

// Controller owns the state of one admin browser session.
type Controller struct {
	gw              Gateway
	store           *session.Store
	defaultPassword string

	subs realtime.Group

	mu           sync.Mutex
	epoch        uint64
	subscribed   bool
	applications []database.Application
	devTeam      []database.DevTeamApplication
	admins       []database.Admin
	pending      *PendingDeletion
	deleting     bool
	watchers     map[uint64]chan database.Collection
	nextWatcher  uint64
	closed       bool
}

// Snapshot is a copy of the controller state.
type Snapshot struct {
	Account             *database.Admin
	Applications        []database.Application
	DevTeamApplications []database.DevTeamApplication
	Admins              []database.Admin
	Pending             *PendingDeletion
	State               DeletionState
	CanCreateAdmin      bool
	CanDelete           bool
}

// New creates a controller. defaultPassword is assigned to every admin created through AddAdmin.
func New(gw Gateway, defaultPassword string) *Controller {
	return &Controller{
		gw:              gw,
		store:           session.NewStore(gw),
		defaultPassword: defaultPassword,
		watchers:        make(map[uint64]chan database.Collection),
	}
}

// Session returns the current session.
func (c *Controller) Session() session.Session {
	return c.store.Current()
}

// Login authenticates the admin, loads all lists and subscribes to changes.
func (c *Controller) Login(ctx context.Context, email, password string) (*database.Admin, error) {
	c.release()

	admin, err := c.store.Authenticate(ctx, email, password)
	c.reset()
	if err != nil {
		return nil, err
	}

	if err := c.SubscribeToChanges(); err != nil {
		return nil, err
	}
	if err := c.Refresh(ctx); err != nil {
		log.Debug("initial load incomplete", "email", admin.Email, "error", err)
	}
	return admin, nil
}

// Logout releases the change subscriptions and ends the session.
func (c *Controller) Logout() {
	c.release()
	c.store.Clear()
	c.reset()
}

// Close logs out and closes every watcher channel.
func (c *Controller) Close() {
	c.Logout()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	for id, ch := range c.watchers {
		close(ch)
		delete(c.watchers, id)
	}
}

func (c *Controller) release() {
	c.subs.Unsubscribe()
	c.mu.Lock()
	c.subscribed = false
	c.mu.Unlock()
}

// reset drops all session data. Loads started before the reset are discarded when they resolve.
func (c *Controller) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.epoch++
	c.applications = nil
	c.devTeam = nil
	c.admins = nil
	c.pending = nil
	c.deleting = false
}

// Can reports whether the current session may perform action.
func (c *Controller) Can(action Action) bool {
	return Allowed(c.store.Current().Role(), action)
}

func (c *Controller) authorize(action Action) (session.Session, error) {
	s := c.store.Current()
	if !s.Authenticated() {
		return s, ErrNotAuthenticated
	}
	if !Allowed(s.Role(), action) {
		return s, ErrForbidden
	}
	return s, nil
}

// begin captures the epoch before the session check so a logout racing the load is always detected.
func (c *Controller) begin() (uint64, error) {
	c.mu.Lock()
	epoch := c.epoch
	c.mu.Unlock()

	if !c.store.Current().Authenticated() {
		return 0, ErrNotAuthenticated
	}
	return epoch, nil
}

// apply runs fn under the lock unless the session changed since epoch.
func (c *Controller) apply(epoch uint64, collection database.Collection, fn func()) {
	c.mu.Lock()
	if c.epoch != epoch {
		c.mu.Unlock()
		log.Debug("discarding stale reload", "collection", collection)
		return
	}
	fn()
	c.mu.Unlock()
	c.broadcast(collection)
}

// LoadApplications replaces the application list with a fresh copy from the gateway.
// On error the list is left as it was.
func (c *Controller) LoadApplications(ctx context.Context) error {
	epoch, err := c.begin()
	if err != nil {
		return err
	}

	apps, err := c.gw.ListApplications(ctx)
	if err != nil {
		log.Debug("failed to load applications", "error", err)
		return fmt.Errorf("failed to load applications: %w", err)
	}

	c.apply(epoch, database.CollectionApplications, func() { c.applications = apps })
	return nil
}

// LoadDevTeamApplications replaces the dev team list, newest first.
func (c *Controller) LoadDevTeamApplications(ctx context.Context) error {
	epoch, err := c.begin()
	if err != nil {
		return err
	}

	apps, err := c.gw.ListDevTeamApplications(ctx)
	if err != nil {
		log.Debug("failed to load dev team applications", "error", err)
		return fmt.Errorf("failed to load dev team applications: %w", err)
	}

	c.apply(epoch, database.CollectionDevTeamApplications, func() { c.devTeam = apps })
	return nil
}

// LoadAdmins replaces the admin list. Sessions without the god role get an empty list.
func (c *Controller) LoadAdmins(ctx context.Context) error {
	epoch, err := c.begin()
	if err != nil {
		return err
	}
	if !c.Can(ActionViewAdmins) {
		c.apply(epoch, database.CollectionAdmins, func() { c.admins = nil })
		return nil
	}

	admins, err := c.gw.ListAdmins(ctx)
	if err != nil {
		log.Debug("failed to load admins", "error", err)
		return fmt.Errorf("failed to load admins: %w", err)
	}

	c.apply(epoch, database.CollectionAdmins, func() { c.admins = admins })
	return nil
}

// Refresh reloads all three lists concurrently.
func (c *Controller) Refresh(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return c.LoadApplications(ctx) })
	g.Go(func() error { return c.LoadDevTeamApplications(ctx) })
	g.Go(func() error { return c.LoadAdmins(ctx) })
	return g.Wait()
}

func (c *Controller) reload(ctx context.Context, collection database.Collection) error {
	switch collection {
	case database.CollectionAdmins:
		return c.LoadAdmins(ctx)
	case database.CollectionApplications:
		return c.LoadApplications(ctx)
	case database.CollectionDevTeamApplications:
		return c.LoadDevTeamApplications(ctx)
	default:
		return fmt.Errorf("%w: %q", database.ErrUnknownCollection, string(collection))
	}
}

// SubscribeToChanges subscribes to all three collections. Every change signal triggers a full
// reload of that collection. Calling it again while subscribed does nothing.
func (c *Controller) SubscribeToChanges() error {
	if !c.store.Current().Authenticated() {
		return ErrNotAuthenticated
	}

	c.mu.Lock()
	if c.subscribed {
		c.mu.Unlock()
		return nil
	}
	c.subscribed = true
	c.mu.Unlock()

	for _, collection := range database.Collections {
		c.subs.Add(c.gw.Subscribe(collection, func() {
			ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
			defer cancel()
			if err := c.reload(ctx, collection); err != nil {
				log.Debug("reload after change signal failed", "collection", collection, "error", err)
			}
		}))
	}
	return nil
}

// AddAdmin creates an admin account with the default password.
// Uniqueness of the email is left to the gateway.
func (c *Controller) AddAdmin(ctx context.Context, email string, role database.Role) (*database.Admin, error) {
	if _, err := c.authorize(ActionCreateAdmin); err != nil {
		return nil, err
	}
	if strings.TrimSpace(email) == "" {
		return nil, ErrEmptyEmail
	}
	if !role.Valid() {
		return nil, ErrInvalidRole
	}

	admin := &database.Admin{
		Email:    email,
		Password: c.defaultPassword,
		Role:     role,
	}
	if err := c.gw.CreateAdmin(ctx, admin); err != nil {
		return nil, fmt.Errorf("failed to add admin: %w", err)
	}

	log.Info("admin created", "email", admin.Email, "role", admin.Role)
	return admin, nil
}

// RequestDelete marks a record for deletion. A previous pending request is replaced.
func (c *Controller) RequestDelete(id uint, kind Kind) error {
	if !c.store.Current().Authenticated() {
		return ErrNotAuthenticated
	}
	if _, err := kind.Collection(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deleting {
		return ErrDeletionInProgress
	}
	c.pending = &PendingDeletion{TargetID: id, TargetKind: kind}
	return nil
}

// CancelDelete drops the pending deletion. It is a no-op when nothing is pending.
func (c *Controller) CancelDelete() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deleting {
		return
	}
	c.pending = nil
}

// ConfirmDelete deletes the pending target and reloads its collection.
// The pending deletion is cleared whatever the outcome.
func (c *Controller) ConfirmDelete(ctx context.Context) error {
	c.mu.Lock()
	if c.deleting {
		c.mu.Unlock()
		return ErrDeletionInProgress
	}
	if c.pending == nil {
		c.mu.Unlock()
		return ErrNoPendingDeletion
	}
	target := *c.pending
	c.deleting = true
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.pending = nil
		c.deleting = false
		c.mu.Unlock()
	}()

	s, err := c.authorize(ActionDelete)
	if err != nil {
		return err
	}
	if target.TargetKind == KindAdmin && target.TargetID == s.Account.ID {
		return ErrSelfDeletion
	}

	collection, err := target.TargetKind.Collection()
	if err != nil {
		return err
	}

	if err := c.gw.Delete(ctx, collection, target.TargetID); err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", target.TargetKind, target.TargetID, err)
	}
	log.Info("record deleted", "kind", target.TargetKind, "id", target.TargetID, "by", s.Account.Email)

	if err := c.reload(ctx, collection); err != nil {
		log.Debug("reload after delete failed", "collection", collection, "error", err)
	}
	return nil
}

// State returns the state of the deletion workflow.
func (c *Controller) State() DeletionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state()
}

func (c *Controller) state() DeletionState {
	switch {
	case c.deleting:
		return StateDeleting
	case c.pending != nil:
		return StateAwaitingConfirmation
	default:
		return StateIdle
	}
}

// Pending returns a copy of the pending deletion, or nil.
func (c *Controller) Pending() *PendingDeletion {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return nil
	}
	p := *c.pending
	return &p
}

// Snapshot returns a copy of the current session, lists and deletion state.
func (c *Controller) Snapshot() Snapshot {
	s := c.store.Current()

	c.mu.Lock()
	defer c.mu.Unlock()

	snap := Snapshot{
		Account:             s.Account,
		Applications:        slices.Clone(c.applications),
		DevTeamApplications: slices.Clone(c.devTeam),
		Admins:              slices.Clone(c.admins),
		State:               c.state(),
		CanCreateAdmin:      Allowed(s.Role(), ActionCreateAdmin),
		CanDelete:           Allowed(s.Role(), ActionDelete),
	}
	if c.pending != nil {
		p := *c.pending
		snap.Pending = &p
	}
	return snap
}

// Watch returns a channel that receives the collection of every applied reload.
// Slow readers miss signals rather than block the controller. The returned func stops the watch.
func (c *Controller) Watch() (<-chan database.Collection, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan database.Collection, 16)
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextWatcher
	c.nextWatcher++
	c.watchers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if w, ok := c.watchers[id]; ok {
				close(w)
				delete(c.watchers, id)
			}
		})
	}
}

func (c *Controller) broadcast(collection database.Collection) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, ch := range c.watchers {
		select {
		case ch <- collection:
		default:
		}
	}
}
