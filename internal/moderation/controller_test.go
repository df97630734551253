package moderation

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/itsJ0ker/midnight/internal/database"
	"github.com/itsJ0ker/midnight/internal/database/mock"
	"github.com/itsJ0ker/midnight/internal/gateway"
	"github.com/itsJ0ker/midnight/internal/realtime"
	"github.com/itsJ0ker/midnight/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

const defaultPassword = "1234"

// testGateway is the real gateway with an optional hook for the dev team list.
type testGateway struct {
	*gateway.Gateway

	mu          sync.Mutex
	listDevTeam func(ctx context.Context) ([]database.DevTeamApplication, error)
}

func (g *testGateway) ListDevTeamApplications(ctx context.Context) ([]database.DevTeamApplication, error) {
	g.mu.Lock()
	fn := g.listDevTeam
	g.mu.Unlock()
	if fn != nil {
		return fn(ctx)
	}
	return g.Gateway.ListDevTeamApplications(ctx)
}

func (g *testGateway) setListDevTeam(fn func(ctx context.Context) ([]database.DevTeamApplication, error)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.listDevTeam = fn
}

type ControllerTestSuite struct {
	suite.Suite
	ctx    context.Context
	db     *mock.MockDB
	broker *realtime.MemoryBroker
	gw     *testGateway
	ctrl   *Controller
	god    *database.Admin
	admin  *database.Admin
}

func (s *ControllerTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.db = mock.NewMockDB()
	s.broker = realtime.NewMemoryBroker()
	s.gw = &testGateway{Gateway: gateway.New(s.db, s.broker)}
	s.ctrl = New(s.gw, defaultPassword)

	s.god = &database.Admin{Email: "god@midnight.club", Password: "godpass", Role: database.RoleGod}
	s.admin = &database.Admin{Email: "mod@midnight.club", Password: "modpass", Role: database.RoleAdmin}
	s.Require().NoError(s.db.CreateAdmin(s.ctx, s.god))
	s.Require().NoError(s.db.CreateAdmin(s.ctx, s.admin))
}

func (s *ControllerTestSuite) TearDownTest() {
	s.ctrl.Close()
	_ = s.broker.Close()
}

func (s *ControllerTestSuite) loginGod() {
	_, err := s.ctrl.Login(s.ctx, s.god.Email, s.god.Password)
	s.Require().NoError(err)
}

func (s *ControllerTestSuite) loginAdmin() {
	_, err := s.ctrl.Login(s.ctx, s.admin.Email, s.admin.Password)
	s.Require().NoError(err)
}

func (s *ControllerTestSuite) seedApplication(name string) *database.Application {
	app := &database.Application{
		Name: name, Email: name + "@example.com", Course: "BCA", Year: "1st Year", Contact: "123", Reason: "why not",
	}
	s.Require().NoError(s.db.CreateApplication(s.ctx, app))
	return app
}

func (s *ControllerTestSuite) subscribers() int {
	n := 0
	for _, c := range database.Collections {
		n += s.broker.Subscribers(c)
	}
	return n
}

func (s *ControllerTestSuite) TestLoginLoadsListsAndSubscribes() {
	s.seedApplication("ada")
	s.Require().NoError(s.db.CreateDevTeamApplication(s.ctx, &database.DevTeamApplication{Name: "linus"}))

	s.loginGod()

	snap := s.ctrl.Snapshot()
	s.Require().NotNil(snap.Account)
	s.Equal(s.god.Email, snap.Account.Email)
	s.Len(snap.Applications, 1)
	s.Len(snap.DevTeamApplications, 1)
	s.Len(snap.Admins, 2)
	s.True(snap.CanCreateAdmin)
	s.True(snap.CanDelete)
	s.Equal(3, s.subscribers())
}

func (s *ControllerTestSuite) TestLoginFailure() {
	_, err := s.ctrl.Login(s.ctx, s.god.Email, "wrong")
	s.ErrorIs(err, session.ErrInvalidCredentials)
	s.False(s.ctrl.Session().Authenticated())
	s.Equal(0, s.subscribers())
	s.Empty(s.ctrl.Snapshot().Applications)
}

func (s *ControllerTestSuite) TestSubscribeToChangesIsIdempotent() {
	s.loginGod()
	s.Require().NoError(s.ctrl.SubscribeToChanges())
	s.Require().NoError(s.ctrl.SubscribeToChanges())
	s.Equal(3, s.subscribers())
}

func (s *ControllerTestSuite) TestSubscribeRequiresSession() {
	s.ErrorIs(s.ctrl.SubscribeToChanges(), ErrNotAuthenticated)
	s.Equal(0, s.subscribers())
}

func (s *ControllerTestSuite) TestLogoutReleasesSubscriptions() {
	s.loginGod()
	s.seedApplication("ada")
	s.Require().NoError(s.ctrl.LoadApplications(s.ctx))

	s.ctrl.Logout()

	s.Equal(0, s.subscribers())
	s.False(s.ctrl.Session().Authenticated())
	snap := s.ctrl.Snapshot()
	s.Empty(snap.Applications)
	s.Empty(snap.Admins)
	s.ErrorIs(s.ctrl.LoadApplications(s.ctx), ErrNotAuthenticated)
}

func (s *ControllerTestSuite) TestReloginDoesNotLeakSubscriptions() {
	s.loginGod()
	s.loginAdmin()
	s.Equal(3, s.subscribers())
	s.Empty(s.ctrl.Snapshot().Admins)
}

func (s *ControllerTestSuite) TestReloginDropsPreviousAccountState() {
	s.loginGod()
	s.Require().Len(s.ctrl.Snapshot().Admins, 2)
	s.Require().NoError(s.ctrl.RequestDelete(s.admin.ID, KindAdmin))

	s.loginAdmin()

	snap := s.ctrl.Snapshot()
	s.Equal(database.RoleAdmin, snap.Account.Role)
	s.Empty(snap.Admins)
	s.Nil(snap.Pending)
	s.Equal(StateIdle, snap.State)
}

func (s *ControllerTestSuite) TestFailedReloginClearsState() {
	s.loginGod()
	s.seedApplication("ada")
	s.Require().NoError(s.ctrl.LoadApplications(s.ctx))

	_, err := s.ctrl.Login(s.ctx, s.god.Email, "wrong")
	s.ErrorIs(err, session.ErrInvalidCredentials)

	snap := s.ctrl.Snapshot()
	s.Empty(snap.Applications)
	s.Empty(snap.Admins)
	s.Equal(0, s.subscribers())
}

func (s *ControllerTestSuite) TestChangeSignalTriggersReload() {
	s.loginGod()
	updates, stop := s.ctrl.Watch()
	defer stop()

	s.Require().NoError(s.gw.CreateApplication(s.ctx, &database.Application{Name: "grace"}))

	s.Eventually(func() bool {
		return len(s.ctrl.Snapshot().Applications) == 1
	}, time.Second, 5*time.Millisecond)

	select {
	case c := <-updates:
		s.Equal(database.CollectionApplications, c)
	case <-time.After(time.Second):
		s.Fail("no update received")
	}
}

func (s *ControllerTestSuite) TestFetchFailureKeepsList() {
	s.loginGod()
	s.seedApplication("ada")
	s.Require().NoError(s.ctrl.LoadApplications(s.ctx))
	s.Require().Len(s.ctrl.Snapshot().Applications, 1)

	s.db.ListApplicationsError = errors.New("gateway unavailable")
	s.seedApplication("bob")

	s.Error(s.ctrl.LoadApplications(s.ctx))
	s.Len(s.ctrl.Snapshot().Applications, 1)
}

func (s *ControllerTestSuite) TestLoadAdminsOnlyForGod() {
	s.loginAdmin()
	s.Require().NoError(s.ctrl.LoadAdmins(s.ctx))
	s.Empty(s.ctrl.Snapshot().Admins)
	s.False(s.ctrl.Can(ActionViewAdmins))
}

func (s *ControllerTestSuite) TestAddAdmin() {
	s.loginGod()

	admin, err := s.ctrl.AddAdmin(s.ctx, "x@example.com", database.RoleAdmin)
	s.Require().NoError(err)
	s.Equal(defaultPassword, admin.Password)

	s.Require().NoError(s.ctrl.LoadAdmins(s.ctx))
	var found *database.Admin
	for _, a := range s.ctrl.Snapshot().Admins {
		if a.Email == "x@example.com" {
			found = &a
		}
	}
	s.Require().NotNil(found)
	s.Equal(database.RoleAdmin, found.Role)
	s.Equal(defaultPassword, found.Password)
}

func (s *ControllerTestSuite) TestAddAdminValidation() {
	s.loginGod()

	_, err := s.ctrl.AddAdmin(s.ctx, "", database.RoleAdmin)
	s.ErrorIs(err, ErrEmptyEmail)
	_, err = s.ctrl.AddAdmin(s.ctx, "   ", database.RoleAdmin)
	s.ErrorIs(err, ErrEmptyEmail)
	_, err = s.ctrl.AddAdmin(s.ctx, "y@example.com", database.Role("root"))
	s.ErrorIs(err, ErrInvalidRole)

	_, err = s.ctrl.AddAdmin(s.ctx, s.admin.Email, database.RoleAdmin)
	s.ErrorIs(err, mock.ErrDuplicateEmail)
	s.Contains(err.Error(), "UNIQUE constraint failed")
}

func (s *ControllerTestSuite) TestAddAdminForbiddenForAdmin() {
	s.loginAdmin()

	_, err := s.ctrl.AddAdmin(s.ctx, "x@example.com", database.RoleAdmin)
	s.ErrorIs(err, ErrForbidden)

	admins, err := s.db.ListAdmins(s.ctx)
	s.Require().NoError(err)
	s.Len(admins, 2)
}

func (s *ControllerTestSuite) TestAddAdminRequiresSession() {
	_, err := s.ctrl.AddAdmin(s.ctx, "x@example.com", database.RoleAdmin)
	s.ErrorIs(err, ErrNotAuthenticated)
}

func (s *ControllerTestSuite) TestRequestThenCancel() {
	s.loginGod()
	app := s.seedApplication("ada")

	s.Require().NoError(s.ctrl.RequestDelete(app.ID, KindApplication))
	s.Equal(StateAwaitingConfirmation, s.ctrl.State())
	s.Equal(&PendingDeletion{TargetID: app.ID, TargetKind: KindApplication}, s.ctrl.Pending())

	s.ctrl.CancelDelete()
	s.Equal(StateIdle, s.ctrl.State())
	s.Nil(s.ctrl.Pending())
	s.Equal(0, s.db.DeleteCallCount())
}

func (s *ControllerTestSuite) TestCancelWhenIdleIsNoop() {
	s.loginGod()
	before := s.ctrl.Snapshot()

	s.ctrl.CancelDelete()

	s.Equal(before, s.ctrl.Snapshot())
	s.Equal(StateIdle, s.ctrl.State())
}

func (s *ControllerTestSuite) TestRequestDeleteLastRequestWins() {
	s.loginGod()
	s.Require().NoError(s.ctrl.RequestDelete(1, KindApplication))
	s.Require().NoError(s.ctrl.RequestDelete(7, KindDevTeamApplication))

	s.Equal(&PendingDeletion{TargetID: 7, TargetKind: KindDevTeamApplication}, s.ctrl.Pending())
}

func (s *ControllerTestSuite) TestRequestDeleteUnknownKind() {
	s.loginGod()
	s.ErrorIs(s.ctrl.RequestDelete(1, Kind("user")), ErrUnknownKind)
	s.Equal(StateIdle, s.ctrl.State())
}

func (s *ControllerTestSuite) TestConfirmDeleteAsGod() {
	s.loginGod()
	keep := s.seedApplication("keep")
	drop := s.seedApplication("drop")
	s.Require().NoError(s.ctrl.LoadApplications(s.ctx))

	s.Require().NoError(s.ctrl.RequestDelete(drop.ID, KindApplication))
	s.Require().NoError(s.ctrl.ConfirmDelete(s.ctx))

	s.Equal([]mock.DeleteCall{{Collection: database.CollectionApplications, ID: drop.ID}}, s.db.DeleteCalls)
	apps := s.ctrl.Snapshot().Applications
	s.Require().Len(apps, 1)
	s.Equal(keep.ID, apps[0].ID)
	s.Equal(StateIdle, s.ctrl.State())
	s.Nil(s.ctrl.Pending())
}

func (s *ControllerTestSuite) TestConfirmDeleteForbiddenForAdmin() {
	s.loginAdmin()
	app := s.seedApplication("ada")

	s.Require().NoError(s.ctrl.RequestDelete(app.ID, KindApplication))
	err := s.ctrl.ConfirmDelete(s.ctx)

	s.ErrorIs(err, ErrForbidden)
	s.Equal(0, s.db.DeleteCallCount())
	s.Nil(s.ctrl.Pending())
	s.Equal(StateIdle, s.ctrl.State())
}

func (s *ControllerTestSuite) TestConfirmDeleteGatewayError() {
	s.loginGod()
	s.seedApplication("ada")
	s.Require().NoError(s.ctrl.LoadApplications(s.ctx))
	before := s.ctrl.Snapshot().Applications

	s.db.DeleteError = errors.New("permission denied for table applications")
	s.Require().NoError(s.ctrl.RequestDelete(42, KindApplication))
	err := s.ctrl.ConfirmDelete(s.ctx)

	s.Require().Error(err)
	s.Contains(err.Error(), "permission denied for table applications")
	s.Equal(before, s.ctrl.Snapshot().Applications)
	s.Nil(s.ctrl.Pending())
	s.Equal(StateIdle, s.ctrl.State())
}

func (s *ControllerTestSuite) TestConfirmDeleteWithoutPending() {
	s.loginGod()
	s.ErrorIs(s.ctrl.ConfirmDelete(s.ctx), ErrNoPendingDeletion)
	s.Equal(0, s.db.DeleteCallCount())
}

func (s *ControllerTestSuite) TestConfirmDeleteOwnAccount() {
	s.loginGod()

	s.Require().NoError(s.ctrl.RequestDelete(s.god.ID, KindAdmin))
	s.ErrorIs(s.ctrl.ConfirmDelete(s.ctx), ErrSelfDeletion)
	s.Equal(0, s.db.DeleteCallCount())
	s.Nil(s.ctrl.Pending())
}

func (s *ControllerTestSuite) TestConfirmDeleteOtherAdmin() {
	s.loginGod()

	s.Require().NoError(s.ctrl.RequestDelete(s.admin.ID, KindAdmin))
	s.Require().NoError(s.ctrl.ConfirmDelete(s.ctx))

	admins := s.ctrl.Snapshot().Admins
	s.Require().Len(admins, 1)
	s.Equal(s.god.Email, admins[0].Email)
}

// raceReloads starts a user reload of the dev team list, fires a change signal while it is in
// flight and resolves both fetches in the given order.
func (s *ControllerTestSuite) raceReloads(signalResolvesLast bool) {
	listA := []database.DevTeamApplication{{ID: 1, Name: "from user action"}}
	listB := []database.DevTeamApplication{{ID: 1, Name: "from change signal"}, {ID: 2, Name: "new"}}

	s.loginGod()

	userGate := make(chan []database.DevTeamApplication)
	signalGate := make(chan []database.DevTeamApplication)
	var calls atomic.Int32
	s.gw.setListDevTeam(func(ctx context.Context) ([]database.DevTeamApplication, error) {
		if calls.Add(1) == 1 {
			return <-userGate, nil
		}
		return <-signalGate, nil
	})

	userDone := make(chan error, 1)
	go func() { userDone <- s.ctrl.LoadDevTeamApplications(s.ctx) }()
	s.Require().Eventually(func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	s.Require().NoError(s.broker.Publish(s.ctx, database.CollectionDevTeamApplications))
	s.Require().Eventually(func() bool { return calls.Load() == 2 }, time.Second, time.Millisecond)

	showing := func(want []database.DevTeamApplication) func() bool {
		return func() bool {
			return assert.ObjectsAreEqual(want, s.ctrl.Snapshot().DevTeamApplications)
		}
	}

	if signalResolvesLast {
		userGate <- listA
		s.Require().NoError(<-userDone)
		s.Equal(listA, s.ctrl.Snapshot().DevTeamApplications)

		signalGate <- listB
		s.Eventually(showing(listB), time.Second, time.Millisecond)
		return
	}

	signalGate <- listB
	s.Eventually(showing(listB), time.Second, time.Millisecond)

	userGate <- listA
	s.Require().NoError(<-userDone)
	s.Equal(listA, s.ctrl.Snapshot().DevTeamApplications)
}

func (s *ControllerTestSuite) TestRaceChangeSignalResolvesLast() {
	s.raceReloads(true)
}

func (s *ControllerTestSuite) TestRaceUserReloadResolvesLast() {
	s.raceReloads(false)
}

func (s *ControllerTestSuite) TestLoadResolvingAfterLogoutIsIgnored() {
	s.loginGod()

	gate := make(chan []database.DevTeamApplication)
	var calls atomic.Int32
	s.gw.setListDevTeam(func(ctx context.Context) ([]database.DevTeamApplication, error) {
		calls.Add(1)
		return <-gate, nil
	})

	done := make(chan error, 1)
	go func() { done <- s.ctrl.LoadDevTeamApplications(s.ctx) }()
	s.Require().Eventually(func() bool { return calls.Load() == 1 }, time.Second, time.Millisecond)

	s.ctrl.Logout()
	gate <- []database.DevTeamApplication{{ID: 9, Name: "late"}}
	s.Require().NoError(<-done)

	s.Empty(s.ctrl.Snapshot().DevTeamApplications)
}

func (s *ControllerTestSuite) TestCloseClosesWatchers() {
	s.loginGod()
	updates, _ := s.ctrl.Watch()

	s.ctrl.Close()

	_, ok := <-updates
	s.False(ok)

	late, stop := s.ctrl.Watch()
	_, ok = <-late
	s.False(ok)
	stop()
}

func TestControllerTestSuite(t *testing.T) {
	suite.Run(t, new(ControllerTestSuite))
}

func TestAllowed(t *testing.T) {
	for _, action := range []Action{ActionViewAdmins, ActionCreateAdmin, ActionDelete} {
		assert.True(t, Allowed(database.RoleGod, action), action)
		assert.False(t, Allowed(database.RoleAdmin, action), action)
		assert.False(t, Allowed("", action), action)
	}
	assert.False(t, Allowed(database.RoleGod, Action("drop_tables")))
}

func TestKindCollection(t *testing.T) {
	tests := map[Kind]database.Collection{
		KindAdmin:              database.CollectionAdmins,
		KindApplication:        database.CollectionApplications,
		KindDevTeamApplication: database.CollectionDevTeamApplications,
	}
	for kind, want := range tests {
		got, err := kind.Collection()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := Kind("").Collection()
	assert.ErrorIs(t, err, ErrUnknownKind)
}
