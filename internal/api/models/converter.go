package models

import (
	"github.com/itsJ0ker/midnight/internal/config"
	"github.com/itsJ0ker/midnight/internal/database"
	"github.com/itsJ0ker/midnight/internal/gravatar"
	"github.com/itsJ0ker/midnight/internal/moderation"
	"github.com/mergestat/timediff"
	"github.com/samber/lo"
)

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// ToAdmin converts a database.Admin. The avatar is only resolved when gravatar is enabled.
func ToAdmin(a database.Admin, cfg *config.GravatarConfig) Admin {
	return Admin{
		ID:         a.ID,
		Email:      a.Email,
		Role:       string(a.Role),
		AvatarURL:  gravatar.AvatarURL(a.Email, cfg),
		CreatedAt:  a.CreatedAt,
		CreatedAgo: timediff.TimeDiff(a.CreatedAt),
	}
}

// ToAdmins converts a slice of database.Admin.
func ToAdmins(admins []database.Admin, cfg *config.GravatarConfig) []Admin {
	return lo.Map(admins, func(a database.Admin, _ int) Admin {
		return ToAdmin(a, cfg)
	})
}

func ToApplication(a database.Application) Application {
	return Application{
		ID:           a.ID,
		Name:         a.Name,
		Email:        a.Email,
		Course:       a.Course,
		Year:         a.Year,
		Contact:      a.Contact,
		Reason:       a.Reason,
		ResumeURL:    deref(a.ResumeURL),
		CreatedAt:    a.CreatedAt,
		SubmittedAgo: timediff.TimeDiff(a.CreatedAt),
	}
}

func ToApplications(items []database.Application) []Application {
	return lo.Map(items, func(a database.Application, _ int) Application {
		return ToApplication(a)
	})
}

func ToDevTeamApplication(a database.DevTeamApplication) DevTeamApplication {
	return DevTeamApplication{
		ID:              a.ID,
		Name:            a.Name,
		Email:           a.Email,
		Course:          a.Course,
		CurrentYear:     a.CurrentYear,
		PhoneNo:         a.PhoneNo,
		WhyJoin:         a.WhyJoin,
		TechSkills:      deref(a.TechSkills),
		ProjectInterest: deref(a.ProjectInterest),
		WeeklyTime:      deref(a.WeeklyTime),
		ProjectLink:     deref(a.ProjectLink),
		AppliedFor:      a.AppliedFor,
		CreatedAt:       a.CreatedAt,
		SubmittedAgo:    timediff.TimeDiff(a.CreatedAt),
	}
}

func ToDevTeamApplications(items []database.DevTeamApplication) []DevTeamApplication {
	return lo.Map(items, func(a database.DevTeamApplication, _ int) DevTeamApplication {
		return ToDevTeamApplication(a)
	})
}

// ToRecentApplications keeps only the publicly listed fields.
func ToRecentApplications(items []database.Application) []RecentApplication {
	return lo.Map(items, func(a database.Application, _ int) RecentApplication {
		return RecentApplication{ID: a.ID, Name: a.Name, Course: a.Course, Year: a.Year}
	})
}

// ToRecentDevTeamApplications keeps only the publicly listed fields.
func ToRecentDevTeamApplications(items []database.DevTeamApplication) []RecentDevTeamApplication {
	return lo.Map(items, func(a database.DevTeamApplication, _ int) RecentDevTeamApplication {
		return RecentDevTeamApplication{
			ID:          a.ID,
			Name:        a.Name,
			Course:      a.Course,
			CurrentYear: a.CurrentYear,
			AppliedFor:  a.AppliedFor,
		}
	})
}

// ToDashboard converts a controller snapshot.
func ToDashboard(s moderation.Snapshot, cfg *config.GravatarConfig) Dashboard {
	d := Dashboard{
		Applications:        ToApplications(s.Applications),
		DevTeamApplications: ToDevTeamApplications(s.DevTeamApplications),
		Admins:              ToAdmins(s.Admins, cfg),
		Pending:             s.Pending,
		State:               s.State,
		Permissions: Permissions{
			CanCreateAdmin: s.CanCreateAdmin,
			CanDelete:      s.CanDelete,
		},
	}
	if s.Account != nil {
		account := ToAdmin(*s.Account, cfg)
		d.Account = &account
	}
	return d
}
