// Package submission handles the two public application forms.
package submission

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/itsJ0ker/midnight/internal/cache"
	"github.com/itsJ0ker/midnight/internal/database"
	"github.com/itsJ0ker/midnight/internal/notify"
	"github.com/itsJ0ker/midnight/internal/realtime"
)

const notifyTimeout = 30 * time.Second

// Gateway is the backend used by the public forms.
type Gateway interface {
	CreateApplication(ctx context.Context, app *database.Application) error
	CreateDevTeamApplication(ctx context.Context, app *database.DevTeamApplication) error
	RecentApplications(ctx context.Context, limit int) ([]database.Application, error)
	RecentDevTeamApplications(ctx context.Context, limit int) ([]database.DevTeamApplication, error)
	Subscribe(collection database.Collection, onChange func()) realtime.Subscription
}

type Service struct {
	gw       Gateway
	recent   *cache.RecentCache
	notifier notify.Notifier
	limit    int

	subs    realtime.Group
	pending sync.WaitGroup
}

// New creates the service. The recent lists are cached and dropped on every change signal.
// notifier may be nil.
func New(gw Gateway, recent *cache.RecentCache, notifier notify.Notifier, limit int) *Service {
	s := &Service{
		gw:       gw,
		recent:   recent,
		notifier: notifier,
		limit:    limit,
	}
	for _, c := range []database.Collection{database.CollectionApplications, database.CollectionDevTeamApplications} {
		s.subs.Add(gw.Subscribe(c, func() {
			s.recent.Invalidate(context.Background(), c)
		}))
	}
	return s
}

// Close stops listening for changes and waits for pending notifications.
func (s *Service) Close() {
	s.subs.Unsubscribe()
	s.pending.Wait()
}

// SubmitApplication validates and stores a general application.
func (s *Service) SubmitApplication(ctx context.Context, in ApplicationInput) (*database.Application, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	app := &database.Application{
		Name:      in.Name,
		Email:     in.Email,
		Course:    in.Course,
		Year:      in.Year,
		Contact:   in.Contact,
		Reason:    in.Reason,
		ResumeURL: optional(in.ResumeURL),
	}
	if err := s.gw.CreateApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to submit application: %w", err)
	}
	s.recent.Invalidate(ctx, database.CollectionApplications)

	log.Info("new application", "id", app.ID, "course", app.Course)
	s.notify(notify.Notice{
		Form:        "application",
		Name:        app.Name,
		Email:       app.Email,
		Course:      app.Course,
		Year:        app.Year,
		SubmittedAt: app.CreatedAt,
	})
	return app, nil
}

// SubmitDevTeamApplication validates and stores a dev team application.
func (s *Service) SubmitDevTeamApplication(ctx context.Context, in DevTeamInput) (*database.DevTeamApplication, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	app := &database.DevTeamApplication{
		Name:            in.Name,
		Email:           in.Email,
		Course:          in.Course,
		CurrentYear:     in.CurrentYear,
		PhoneNo:         in.PhoneNo,
		WhyJoin:         in.WhyJoin,
		TechSkills:      optional(in.TechSkills),
		ProjectInterest: optional(in.ProjectInterest),
		WeeklyTime:      optional(in.WeeklyTime),
		ProjectLink:     optional(in.ProjectLink),
		AppliedFor:      in.AppliedFor,
	}
	if err := s.gw.CreateDevTeamApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to submit dev team application: %w", err)
	}
	s.recent.Invalidate(ctx, database.CollectionDevTeamApplications)

	log.Info("new dev team application", "id", app.ID, "appliedFor", app.AppliedFor)
	s.notify(notify.Notice{
		Form:        "dev team application",
		Name:        app.Name,
		Email:       app.Email,
		Course:      app.Course,
		Year:        app.CurrentYear,
		AppliedFor:  app.AppliedFor,
		SubmittedAt: app.CreatedAt,
	})
	return app, nil
}

// notify runs in the background. A failed notification never fails the submission.
func (s *Service) notify(notice notify.Notice) {
	if s.notifier == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		_ = s.notifier.NotifyNewApplication(ctx, notice)
	}()
}

// RecentApplications returns the newest general applications, public columns only.
func (s *Service) RecentApplications(ctx context.Context) ([]database.Application, error) {
	if apps, err := s.recent.Applications.Get(ctx, cache.RecentKey); err == nil {
		return apps, nil
	}

	apps, err := s.gw.RecentApplications(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent applications: %w", err)
	}
	if err := s.recent.Applications.Set(ctx, cache.RecentKey, apps, cache.TTL()); err != nil {
		log.Debug("failed to cache recent applications", "error", err)
	}
	return apps, nil
}

// RecentDevTeamApplications returns the newest dev team applications, public columns only.
func (s *Service) RecentDevTeamApplications(ctx context.Context) ([]database.DevTeamApplication, error) {
	if apps, err := s.recent.DevTeamApplications.Get(ctx, cache.RecentKey); err == nil {
		return apps, nil
	}

	apps, err := s.gw.RecentDevTeamApplications(ctx, s.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent dev team applications: %w", err)
	}
	if err := s.recent.DevTeamApplications.Set(ctx, cache.RecentKey, apps, cache.TTL()); err != nil {
		log.Debug("failed to cache recent dev team applications", "error", err)
	}
	return apps, nil
}
