package models

import (
	"time"

	"github.com/itsJ0ker/midnight/internal/moderation"
)

// Admin is the public view of an admin account. The password never leaves the server.
type Admin struct {
	ID         uint      `json:"id"`
	Email      string    `json:"email"`
	Role       string    `json:"role"`
	AvatarURL  string    `json:"avatarUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	CreatedAgo string    `json:"createdAgo"`
}

// Application is a general application as shown on the admin dashboard.
type Application struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Course       string    `json:"course"`
	Year         string    `json:"year"`
	Contact      string    `json:"contact"`
	Reason       string    `json:"reason"`
	ResumeURL    string    `json:"resumeUrl,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	SubmittedAgo string    `json:"submittedAgo"`
}

// DevTeamApplication is a dev-team application as shown on the admin dashboard.
type DevTeamApplication struct {
	ID              uint      `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Course          string    `json:"course"`
	CurrentYear     string    `json:"currentYear"`
	PhoneNo         string    `json:"phoneNo"`
	WhyJoin         string    `json:"whyJoin"`
	TechSkills      string    `json:"techSkills,omitempty"`
	ProjectInterest string    `json:"projectInterest,omitempty"`
	WeeklyTime      string    `json:"weeklyTime,omitempty"`
	ProjectLink     string    `json:"projectLink,omitempty"`
	AppliedFor      string    `json:"appliedFor"`
	CreatedAt       time.Time `json:"createdAt"`
	SubmittedAgo    string    `json:"submittedAgo"`
}

// RecentApplication is the public listing entry for a general application.
type RecentApplication struct {
	ID     uint   `json:"id"`
	Name   string `json:"name"`
	Course string `json:"course"`
	Year   string `json:"year"`
}

// RecentDevTeamApplication is the public listing entry for a dev-team application.
type RecentDevTeamApplication struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Course      string `json:"course"`
	CurrentYear string `json:"currentYear"`
	AppliedFor  string `json:"appliedFor"`
}

type Permissions struct {
	CanCreateAdmin bool `json:"canCreateAdmin"`
	CanDelete      bool `json:"canDelete"`
}

// Dashboard is everything the admin dashboard renders.
type Dashboard struct {
	Account             *Admin                      `json:"account"`
	Applications        []Application               `json:"applications"`
	DevTeamApplications []DevTeamApplication        `json:"devTeamApplications"`
	Admins              []Admin                     `json:"admins"`
	Pending             *moderation.PendingDeletion `json:"pending"`
	State               moderation.DeletionState    `json:"state"`
	Permissions         Permissions                 `json:"permissions"`
}
