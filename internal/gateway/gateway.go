// Package gateway is the backend the admin dashboard and the public forms talk to.
// It stores records through database.DB and announces every successful write on a realtime.Broker.
package gateway

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/itsJ0ker/midnight/internal/database"
	"github.com/itsJ0ker/midnight/internal/realtime"
)

type Gateway struct {
	db     database.DB
	broker realtime.Broker
}

func New(db database.DB, broker realtime.Broker) *Gateway {
	return &Gateway{
		db:     db,
		broker: broker,
	}
}

func (g *Gateway) FindAdminByCredentials(ctx context.Context, email, password string) (*database.Admin, error) {
	return g.db.FindAdminByCredentials(ctx, email, password)
}

func (g *Gateway) ListAdmins(ctx context.Context) ([]database.Admin, error) {
	return g.db.ListAdmins(ctx)
}

func (g *Gateway) ListApplications(ctx context.Context) ([]database.Application, error) {
	return g.db.ListApplications(ctx)
}

func (g *Gateway) ListDevTeamApplications(ctx context.Context) ([]database.DevTeamApplication, error) {
	return g.db.ListDevTeamApplications(ctx)
}

func (g *Gateway) RecentApplications(ctx context.Context, limit int) ([]database.Application, error) {
	return g.db.RecentApplications(ctx, limit)
}

func (g *Gateway) RecentDevTeamApplications(ctx context.Context, limit int) ([]database.DevTeamApplication, error) {
	return g.db.RecentDevTeamApplications(ctx, limit)
}

func (g *Gateway) CreateAdmin(ctx context.Context, admin *database.Admin) error {
	if err := g.db.CreateAdmin(ctx, admin); err != nil {
		return err
	}
	g.Notify(ctx, database.CollectionAdmins)
	return nil
}

func (g *Gateway) CreateApplication(ctx context.Context, app *database.Application) error {
	if err := g.db.CreateApplication(ctx, app); err != nil {
		return err
	}
	g.Notify(ctx, database.CollectionApplications)
	return nil
}

func (g *Gateway) CreateDevTeamApplication(ctx context.Context, app *database.DevTeamApplication) error {
	if err := g.db.CreateDevTeamApplication(ctx, app); err != nil {
		return err
	}
	g.Notify(ctx, database.CollectionDevTeamApplications)
	return nil
}

// Delete removes a record by id and signals its collection.
func (g *Gateway) Delete(ctx context.Context, collection database.Collection, id uint) error {
	if err := g.db.Delete(ctx, collection, id); err != nil {
		return err
	}
	g.Notify(ctx, collection)
	return nil
}

// Subscribe registers onChange for change signals of a collection.
func (g *Gateway) Subscribe(collection database.Collection, onChange func()) realtime.Subscription {
	return g.broker.Subscribe(collection, onChange)
}

// Notify publishes a change signal. Failures are logged, the write has already happened.
func (g *Gateway) Notify(ctx context.Context, collection database.Collection) {
	if err := g.broker.Publish(ctx, collection); err != nil {
		log.Warn("failed to publish change signal", "collection", collection, "error", err)
	}
}
