// Package notify fans out new-application notifications to every enabled channel.
package notify

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/itsJ0ker/midnight/internal/config"
	"github.com/itsJ0ker/midnight/internal/notify/email"
	"github.com/itsJ0ker/midnight/internal/notify/ntfy"
	"github.com/itsJ0ker/midnight/internal/notify/webpush"
	"golang.org/x/sync/errgroup"
)

// Notice describes a new submission.
type Notice struct {
	Form        string
	Name        string
	Email       string
	Course      string
	Year        string
	AppliedFor  string
	SubmittedAt time.Time
}

func (n Notice) details() map[string]string {
	return map[string]string{
		"Course":      n.Course,
		"Year":        n.Year,
		"Applied for": n.AppliedFor,
	}
}

func (n Notice) fields() []email.Field {
	fields := []email.Field{
		{Label: "Email", Value: n.Email},
		{Label: "Course", Value: n.Course},
		{Label: "Year", Value: n.Year},
	}
	if n.AppliedFor != "" {
		fields = append(fields, email.Field{Label: "Applied for", Value: n.AppliedFor})
	}
	return fields
}

// Notifier is told about new submissions.
type Notifier interface {
	NotifyNewApplication(ctx context.Context, notice Notice) error
}

// Dispatcher sends a Notice through email, ntfy and webpush.
type Dispatcher struct {
	dashboardURL string
	email        *email.NotificationService
	ntfy         *ntfy.Client
	webpush      *webpush.Client
}

func New(cfg *config.Config, push *webpush.Client) *Dispatcher {
	d := &Dispatcher{
		dashboardURL: cfg.ServerURL + "/admin",
		webpush:      push,
	}
	if cfg.Email != nil && cfg.Email.Enabled {
		d.email = email.New(cfg.Email)
	}
	if cfg.Ntfy != nil && cfg.Ntfy.Enabled {
		d.ntfy = ntfy.NewClient(cfg.Ntfy)
	}
	return d
}

// NotifyNewApplication delivers notice on every channel concurrently. All channel errors are joined.
func (d *Dispatcher) NotifyNewApplication(ctx context.Context, notice Notice) error {
	var (
		g    errgroup.Group
		errs = make([]error, 3)
	)

	if d.email != nil {
		g.Go(func() error {
			errs[0] = d.email.SendNewApplication(email.NewApplication{
				Form:         notice.Form,
				Name:         notice.Name,
				Fields:       notice.fields(),
				SubmittedAt:  notice.SubmittedAt,
				DashboardURL: d.dashboardURL,
			})
			return nil
		})
	}
	if d.ntfy != nil {
		g.Go(func() error {
			errs[1] = d.ntfy.SendNewApplication(ctx, notice.Form, notice.Name, notice.details(), d.dashboardURL)
			return nil
		})
	}
	if d.webpush != nil && d.webpush.Enabled() {
		g.Go(func() error {
			err := d.webpush.SendNewApplicationNotification(ctx, notice.Form, notice.Name, d.dashboardURL)
			if !errors.Is(err, webpush.ErrNoSubscriptions) {
				errs[2] = err
			}
			return nil
		})
	}
	_ = g.Wait()

	err := errors.Join(errs...)
	if err != nil {
		log.Warn("failed to deliver some notifications", "form", notice.Form, "error", err)
	}
	return err
}
