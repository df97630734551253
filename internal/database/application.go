package database

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Application is a general membership application.
type Application struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"not null"`
	Email     string `gorm:"not null"`
	Course    string `gorm:"not null"`
	Year      string `gorm:"not null"`
	Contact   string `gorm:"not null"`
	Reason    string `gorm:"not null"`
	ResumeURL *string
	CreatedAt time.Time
}

func (Application) TableName() string {
	return string(CollectionApplications)
}

// DevTeamApplication is an application to join the dev team.
type DevTeamApplication struct {
	ID              uint   `gorm:"primaryKey"`
	Name            string `gorm:"not null"`
	Email           string `gorm:"not null"`
	Course          string `gorm:"not null"`
	CurrentYear     string `gorm:"not null"`
	PhoneNo         string `gorm:"not null"`
	WhyJoin         string `gorm:"not null"`
	TechSkills      *string
	ProjectInterest *string
	WeeklyTime      *string
	ProjectLink     *string
	AppliedFor      string `gorm:"not null"`
	CreatedAt       time.Time
}

func (DevTeamApplication) TableName() string {
	return string(CollectionDevTeamApplications)
}

// ListApplications returns every general application. No order is guaranteed.
func (c *Client) ListApplications(ctx context.Context) ([]Application, error) {
	var apps []Application
	if err := c.db.WithContext(ctx).Find(&apps).Error; err != nil {
		log.Error("failed to list applications", "error", err)
		return nil, err
	}
	return apps, nil
}

// RecentApplications returns up to limit applications ordered by id descending.
func (c *Client) RecentApplications(ctx context.Context, limit int) ([]Application, error) {
	var apps []Application
	if err := c.db.WithContext(ctx).
		Select("id", "name", "course", "year", "created_at").
		Order("id desc").
		Limit(limit).
		Find(&apps).Error; err != nil {
		log.Error("failed to list recent applications", "error", err)
		return nil, err
	}
	return apps, nil
}

func (c *Client) CreateApplication(ctx context.Context, app *Application) error {
	if err := c.db.WithContext(ctx).Create(app).Error; err != nil {
		log.Error("failed to create application", "error", err)
		return err
	}
	return nil
}

// ListDevTeamApplications returns every dev team application, newest first.
func (c *Client) ListDevTeamApplications(ctx context.Context) ([]DevTeamApplication, error) {
	var apps []DevTeamApplication
	if err := c.db.WithContext(ctx).Order("created_at desc").Order("id desc").Find(&apps).Error; err != nil {
		log.Error("failed to list dev team applications", "error", err)
		return nil, err
	}
	return apps, nil
}

// RecentDevTeamApplications returns up to limit dev team applications ordered by id descending.
func (c *Client) RecentDevTeamApplications(ctx context.Context, limit int) ([]DevTeamApplication, error) {
	var apps []DevTeamApplication
	if err := c.db.WithContext(ctx).
		Select("id", "name", "course", "current_year", "applied_for", "created_at").
		Order("id desc").
		Limit(limit).
		Find(&apps).Error; err != nil {
		log.Error("failed to list recent dev team applications", "error", err)
		return nil, err
	}
	return apps, nil
}

func (c *Client) CreateDevTeamApplication(ctx context.Context, app *DevTeamApplication) error {
	if err := c.db.WithContext(ctx).Create(app).Error; err != nil {
		log.Error("failed to create dev team application", "error", err)
		return err
	}
	return nil
}
