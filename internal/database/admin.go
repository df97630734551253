package database

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

// Role is the privilege level of an admin account.
type Role string

const (
	RoleAdmin Role = "admin"
	RoleGod   Role = "god"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleGod
}

// Admin is an account allowed to use the admin dashboard.
// Passwords are stored and compared as plain text.
type Admin struct {
	ID        uint   `gorm:"primaryKey"`
	Email     string `gorm:"uniqueIndex;not null"`
	Password  string `gorm:"not null"`
	Role      Role   `gorm:"not null;default:admin"`
	CreatedAt time.Time
}

func (Admin) TableName() string {
	return string(CollectionAdmins)
}

// FindAdminByCredentials returns the admin whose email and password both match exactly.
// It returns ErrNotFound if there is no such account.
func (c *Client) FindAdminByCredentials(ctx context.Context, email, password string) (*Admin, error) {
	var admin Admin
	if err := c.db.WithContext(ctx).Where("email = ? AND password = ?", email, password).First(&admin).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		log.Error("failed to look up admin", "error", err)
		return nil, err
	}
	return &admin, nil
}

// ListAdmins returns all admins, newest first.
func (c *Client) ListAdmins(ctx context.Context) ([]Admin, error) {
	var admins []Admin
	if err := c.db.WithContext(ctx).Order("created_at desc").Order("id desc").Find(&admins).Error; err != nil {
		log.Error("failed to list admins", "error", err)
		return nil, err
	}
	return admins, nil
}

func (c *Client) CreateAdmin(ctx context.Context, admin *Admin) error {
	if err := c.db.WithContext(ctx).Create(admin).Error; err != nil {
		log.Error("failed to create admin", "email", admin.Email, "error", err)
		return err
	}
	return nil
}
