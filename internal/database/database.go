package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var _ DB = (*Client)(nil) // Ensure Client implements DB

// ErrNotFound is returned when a record addressed by id does not exist.
var ErrNotFound = errors.New("record not found")

// ErrUnknownCollection is returned for a collection name that is not one of the three stored sets.
var ErrUnknownCollection = errors.New("unknown collection")

// DB is the storage contract of the backend gateway.
type DB interface {
	FindAdminByCredentials(ctx context.Context, email, password string) (*Admin, error)
	ListAdmins(ctx context.Context) ([]Admin, error)
	CreateAdmin(ctx context.Context, admin *Admin) error

	ListApplications(ctx context.Context) ([]Application, error)
	RecentApplications(ctx context.Context, limit int) ([]Application, error)
	CreateApplication(ctx context.Context, app *Application) error

	ListDevTeamApplications(ctx context.Context) ([]DevTeamApplication, error)
	RecentDevTeamApplications(ctx context.Context, limit int) ([]DevTeamApplication, error)
	CreateDevTeamApplication(ctx context.Context, app *DevTeamApplication) error

	Delete(ctx context.Context, collection Collection, id uint) error
	Stats(ctx context.Context) ([]CollectionStats, error)
}

// Client wraps the gorm.DB instance.
type Client struct {
	db *gorm.DB
}

// New opens the sqlite database at dbpath and migrates the schema.
func New(dbpath string) (*Client, error) {
	db, err := gorm.Open(sqlite.Open(dbpath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	c := &Client{db: db}
	if err := c.Migrate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Migrate creates or updates the tables of all collections.
func (c *Client) Migrate() error {
	if err := c.db.AutoMigrate(
		&Admin{},
		&Application{},
		&DevTeamApplication{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (c *Client) Close() error {
	sqlDB, err := c.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Delete removes the record with the given id from a collection.
func (c *Client) Delete(ctx context.Context, collection Collection, id uint) error {
	model, err := collection.model()
	if err != nil {
		return err
	}
	result := c.db.WithContext(ctx).Delete(model, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete from %s: %w", collection, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
