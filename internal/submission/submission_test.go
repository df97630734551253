package submission

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/itsJ0ker/midnight/internal/cache"
	"github.com/itsJ0ker/midnight/internal/config"
	"github.com/itsJ0ker/midnight/internal/database"
	"github.com/itsJ0ker/midnight/internal/database/mock"
	"github.com/itsJ0ker/midnight/internal/gateway"
	"github.com/itsJ0ker/midnight/internal/moderation"
	"github.com/itsJ0ker/midnight/internal/notify"
	"github.com/itsJ0ker/midnight/internal/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu      sync.Mutex
	notices []notify.Notice
	err     error
}

func (n *recordingNotifier) NotifyNewApplication(_ context.Context, notice notify.Notice) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, notice)
	return n.err
}

func (n *recordingNotifier) all() []notify.Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Notice(nil), n.notices...)
}

type fixture struct {
	db       *mock.MockDB
	broker   *realtime.MemoryBroker
	gw       *gateway.Gateway
	notifier *recordingNotifier
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		db:       mock.NewMockDB(),
		broker:   realtime.NewMemoryBroker(),
		notifier: &recordingNotifier{},
	}
	f.gw = gateway.New(f.db, f.broker)
	f.svc = New(f.gw, cache.NewRecentCache(&config.CacheConfig{Type: config.BackendTypeMemory}), f.notifier, 2)
	t.Cleanup(func() {
		f.svc.Close()
		_ = f.broker.Close()
	})
	return f
}

func validApplication() ApplicationInput {
	return ApplicationInput{
		Name:      "Ada Lovelace",
		Email:     "ada@example.com",
		Course:    "B TECH",
		Year:      "2nd Year",
		Contact:   "+91 98765 43210",
		Reason:    "I want to build the analytical engine",
		ResumeURL: "https://example.com/ada.pdf",
	}
}

func validDevTeam() DevTeamInput {
	return DevTeamInput{
		Name:        "Linus",
		Email:       "linus@example.com",
		Course:      "Other",
		CurrentYear: "3rd Year",
		PhoneNo:     "12345",
		WhyJoin:     "kernels",
		AppliedFor:  "Backend Developer",
	}
}

func TestApplicationInput_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *ApplicationInput)
		fields []string
	}{
		{name: "valid", mutate: func(in *ApplicationInput) {}},
		{name: "resume is optional", mutate: func(in *ApplicationInput) { in.ResumeURL = "" }},
		{name: "missing name", mutate: func(in *ApplicationInput) { in.Name = "  " }, fields: []string{"name"}},
		{name: "bad email", mutate: func(in *ApplicationInput) { in.Email = "ada" }, fields: []string{"email"}},
		{name: "unknown course", mutate: func(in *ApplicationInput) { in.Course = "Other" }, fields: []string{"course"}},
		{name: "unknown year", mutate: func(in *ApplicationInput) { in.Year = "6th Year" }, fields: []string{"year"}},
		{name: "bad resume url", mutate: func(in *ApplicationInput) { in.ResumeURL = "not a url" }, fields: []string{"resumeUrl"}},
		{
			name:   "everything missing",
			mutate: func(in *ApplicationInput) { *in = ApplicationInput{} },
			fields: []string{"name", "email", "course", "year", "contact", "reason"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validApplication()
			tt.mutate(&in)
			err := in.validate()
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.ElementsMatch(t, tt.fields, keys(verr.Fields))
		})
	}
}

func TestDevTeamInput_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *DevTeamInput)
		fields []string
	}{
		{name: "valid", mutate: func(in *DevTeamInput) {}},
		{name: "valid weekly time", mutate: func(in *DevTeamInput) { in.WeeklyTime = "20+ hours" }},
		{name: "unknown weekly time", mutate: func(in *DevTeamInput) { in.WeeklyTime = "always" }, fields: []string{"weeklyTime"}},
		{name: "unknown role", mutate: func(in *DevTeamInput) { in.AppliedFor = "CEO" }, fields: []string{"appliedFor"}},
		{name: "course is required", mutate: func(in *DevTeamInput) { in.Course = "" }, fields: []string{"course"}},
		{name: "bad project link", mutate: func(in *DevTeamInput) { in.ProjectLink = "github" }, fields: []string{"projectLink"}},
		{name: "missing why join", mutate: func(in *DevTeamInput) { in.WhyJoin = "" }, fields: []string{"whyJoin"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validDevTeam()
			tt.mutate(&in)
			err := in.validate()
			if len(tt.fields) == 0 {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.ElementsMatch(t, tt.fields, keys(verr.Fields))
		})
	}
}

func TestValidationError_Message(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{"year": "is required", "email": "must be a valid email address"}}
	assert.Equal(t, "invalid submission: email must be a valid email address, year is required", err.Error())
}

func TestSubmitApplication_RoundTripToAdminList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.db.CreateAdmin(ctx, &database.Admin{Email: "god@midnight.club", Password: "pw", Role: database.RoleGod}))

	ctrl := moderation.New(f.gw, "1234")
	defer ctrl.Close()
	_, err := ctrl.Login(ctx, "god@midnight.club", "pw")
	require.NoError(t, err)

	in := validApplication()
	_, err = f.svc.SubmitApplication(ctx, in)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(ctrl.Snapshot().Applications) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, ctrl.LoadApplications(ctx))

	apps := ctrl.Snapshot().Applications
	require.Len(t, apps, 1)
	got := apps[0]
	assert.Equal(t, in.Name, got.Name)
	assert.Equal(t, in.Email, got.Email)
	assert.Equal(t, in.Course, got.Course)
	assert.Equal(t, in.Year, got.Year)
	assert.Equal(t, in.Contact, got.Contact)
	assert.Equal(t, in.Reason, got.Reason)
	require.NotNil(t, got.ResumeURL)
	assert.Equal(t, in.ResumeURL, *got.ResumeURL)
}

func TestSubmitApplication_StoresValuesAsSubmitted(t *testing.T) {
	f := newFixture(t)
	in := validApplication()
	in.Name = "  Ada Lovelace "
	in.Reason = "line one\nline two\n"

	_, err := f.svc.SubmitApplication(context.Background(), in)
	require.NoError(t, err)

	apps, err := f.db.ListApplications(context.Background())
	require.NoError(t, err)
	require.Len(t, apps, 1)
	assert.Equal(t, "  Ada Lovelace ", apps[0].Name)
	assert.Equal(t, "line one\nline two\n", apps[0].Reason)
}

func TestSubmitApplication_InvalidIsNotStored(t *testing.T) {
	f := newFixture(t)
	in := validApplication()
	in.Course = ""

	_, err := f.svc.SubmitApplication(context.Background(), in)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	apps, err := f.db.ListApplications(context.Background())
	require.NoError(t, err)
	assert.Empty(t, apps)
}

func TestSubmitApplication_GatewayError(t *testing.T) {
	f := newFixture(t)
	f.db.CreateApplicationError = errors.New("connection refused")

	_, err := f.svc.SubmitApplication(context.Background(), validApplication())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")

	f.svc.Close()
	assert.Empty(t, f.notifier.all())
}

func TestSubmit_NotifiesBestEffort(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("smtp down")

	_, err := f.svc.SubmitApplication(context.Background(), validApplication())
	require.NoError(t, err)
	_, err = f.svc.SubmitDevTeamApplication(context.Background(), validDevTeam())
	require.NoError(t, err)

	f.svc.Close()
	notices := f.notifier.all()
	require.Len(t, notices, 2)
	forms := []string{notices[0].Form, notices[1].Form}
	assert.ElementsMatch(t, []string{"application", "dev team application"}, forms)
}

func TestSubmitDevTeamApplication_OptionalFields(t *testing.T) {
	f := newFixture(t)

	in := validDevTeam()
	in.TechSkills = "Go, SQL"
	app, err := f.svc.SubmitDevTeamApplication(context.Background(), in)
	require.NoError(t, err)

	require.NotNil(t, app.TechSkills)
	assert.Equal(t, "Go, SQL", *app.TechSkills)
	assert.Nil(t, app.ProjectInterest)
	assert.Nil(t, app.WeeklyTime)
	assert.Nil(t, app.ProjectLink)
}

func TestRecentApplications_CachedAndInvalidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, name := range []string{"a", "b", "c"} {
		in := validApplication()
		in.Name = name
		_, err := f.svc.SubmitApplication(ctx, in)
		require.NoError(t, err)
	}

	recent, err := f.svc.RecentApplications(ctx)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].Name)
	assert.Equal(t, "b", recent[1].Name)

	// served from cache while the backend fails
	f.db.ListApplicationsError = errors.New("down")
	recent, err = f.svc.RecentApplications(ctx)
	require.NoError(t, err)
	assert.Len(t, recent, 2)

	// a change signal drops the cached list
	require.NoError(t, f.broker.Publish(ctx, database.CollectionApplications))
	assert.Eventually(t, func() bool {
		_, err := f.svc.RecentApplications(ctx)
		return err != nil
	}, time.Second, 5*time.Millisecond)
}

func TestRecentDevTeamApplications(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SubmitDevTeamApplication(ctx, validDevTeam())
	require.NoError(t, err)

	recent, err := f.svc.RecentDevTeamApplications(ctx)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "Backend Developer", recent[0].AppliedFor)
}

func keys(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
