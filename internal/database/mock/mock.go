package mock

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/itsJ0ker/midnight/internal/database"
)

var _ database.DB = (*MockDB)(nil)

// MockDB is a mock implementation of database.DB for testing.
type MockDB struct {
	mu sync.RWMutex

	admins       map[uint]database.Admin
	applications map[uint]database.Application
	devTeam      map[uint]database.DevTeamApplication
	nextID       uint
	now          time.Time

	// DeleteCalls records every Delete invocation in order.
	DeleteCalls []DeleteCall

	// Error simulation
	FindAdminError                error
	ListAdminsError               error
	CreateAdminError              error
	ListApplicationsError         error
	CreateApplicationError        error
	ListDevTeamApplicationsError  error
	CreateDevTeamApplicationError error
	DeleteError                   error
	StatsError                    error
}

// DeleteCall is a recorded Delete invocation.
type DeleteCall struct {
	Collection database.Collection
	ID         uint
}

// NewMockDB creates a new MockDB instance.
func NewMockDB() *MockDB {
	m := &MockDB{}
	m.Reset()
	return m
}

// Reset clears all data and errors from the mock database.
func (m *MockDB) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.admins = make(map[uint]database.Admin)
	m.applications = make(map[uint]database.Application)
	m.devTeam = make(map[uint]database.DevTeamApplication)
	m.nextID = 1
	m.now = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.DeleteCalls = nil

	m.FindAdminError = nil
	m.ListAdminsError = nil
	m.CreateAdminError = nil
	m.ListApplicationsError = nil
	m.CreateApplicationError = nil
	m.ListDevTeamApplicationsError = nil
	m.CreateDevTeamApplicationError = nil
	m.DeleteError = nil
	m.StatsError = nil
}

// stamp assigns the next id and a strictly increasing creation time. Callers hold the lock.
func (m *MockDB) stamp() (uint, time.Time) {
	id := m.nextID
	m.nextID++
	m.now = m.now.Add(time.Second)
	return id, m.now
}

// Admin operations

func (m *MockDB) FindAdminByCredentials(ctx context.Context, email, password string) (*database.Admin, error) {
	if m.FindAdminError != nil {
		return nil, m.FindAdminError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, a := range m.admins {
		if a.Email == email && a.Password == password {
			return &a, nil
		}
	}
	return nil, database.ErrNotFound
}

func (m *MockDB) ListAdmins(ctx context.Context) ([]database.Admin, error) {
	if m.ListAdminsError != nil {
		return nil, m.ListAdminsError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	admins := values(m.admins)
	slices.SortFunc(admins, func(a, b database.Admin) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return admins, nil
}

func (m *MockDB) CreateAdmin(ctx context.Context, admin *database.Admin) error {
	if m.CreateAdminError != nil {
		return m.CreateAdminError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	for _, a := range m.admins {
		if a.Email == admin.Email {
			return ErrDuplicateEmail
		}
	}
	admin.ID, admin.CreatedAt = m.stamp()
	m.admins[admin.ID] = *admin
	return nil
}

// Application operations

func (m *MockDB) ListApplications(ctx context.Context) ([]database.Application, error) {
	if m.ListApplicationsError != nil {
		return nil, m.ListApplicationsError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	apps := values(m.applications)
	slices.SortFunc(apps, func(a, b database.Application) int { return cmp.Compare(a.ID, b.ID) })
	return apps, nil
}

func (m *MockDB) RecentApplications(ctx context.Context, limit int) ([]database.Application, error) {
	apps, err := m.ListApplications(ctx)
	if err != nil {
		return nil, err
	}
	slices.Reverse(apps)
	return apps[:min(limit, len(apps))], nil
}

func (m *MockDB) CreateApplication(ctx context.Context, app *database.Application) error {
	if m.CreateApplicationError != nil {
		return m.CreateApplicationError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	app.ID, app.CreatedAt = m.stamp()
	m.applications[app.ID] = *app
	return nil
}

// Dev team application operations

func (m *MockDB) ListDevTeamApplications(ctx context.Context) ([]database.DevTeamApplication, error) {
	if m.ListDevTeamApplicationsError != nil {
		return nil, m.ListDevTeamApplicationsError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	apps := values(m.devTeam)
	slices.SortFunc(apps, func(a, b database.DevTeamApplication) int { return b.CreatedAt.Compare(a.CreatedAt) })
	return apps, nil
}

func (m *MockDB) RecentDevTeamApplications(ctx context.Context, limit int) ([]database.DevTeamApplication, error) {
	apps, err := m.ListDevTeamApplications(ctx)
	if err != nil {
		return nil, err
	}
	return apps[:min(limit, len(apps))], nil
}

func (m *MockDB) CreateDevTeamApplication(ctx context.Context, app *database.DevTeamApplication) error {
	if m.CreateDevTeamApplicationError != nil {
		return m.CreateDevTeamApplicationError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	app.ID, app.CreatedAt = m.stamp()
	m.devTeam[app.ID] = *app
	return nil
}

// Shared operations

func (m *MockDB) Delete(ctx context.Context, collection database.Collection, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.DeleteCalls = append(m.DeleteCalls, DeleteCall{Collection: collection, ID: id})
	if m.DeleteError != nil {
		return m.DeleteError
	}

	var found bool
	switch collection {
	case database.CollectionAdmins:
		_, found = m.admins[id]
		delete(m.admins, id)
	case database.CollectionApplications:
		_, found = m.applications[id]
		delete(m.applications, id)
	case database.CollectionDevTeamApplications:
		_, found = m.devTeam[id]
		delete(m.devTeam, id)
	default:
		return database.ErrUnknownCollection
	}
	if !found {
		return database.ErrNotFound
	}
	return nil
}

// DeleteCallCount returns the number of Delete invocations so far.
func (m *MockDB) DeleteCallCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.DeleteCalls)
}

func (m *MockDB) Stats(ctx context.Context) ([]database.CollectionStats, error) {
	if m.StatsError != nil {
		return nil, m.StatsError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	return []database.CollectionStats{
		{Collection: database.CollectionAdmins, Count: int64(len(m.admins))},
		{Collection: database.CollectionApplications, Count: int64(len(m.applications))},
		{Collection: database.CollectionDevTeamApplications, Count: int64(len(m.devTeam))},
	}, nil
}

func values[T any](m map[uint]T) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}
