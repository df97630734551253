package moderation

import (
	"errors"
	"fmt"

	"github.com/itsJ0ker/midnight/internal/database"
)

var (
	ErrNotAuthenticated   = errors.New("not logged in")
	ErrForbidden          = errors.New("permission denied: only god admins can do this")
	ErrEmptyEmail         = errors.New("email is required")
	ErrInvalidRole        = errors.New("role must be admin or god")
	ErrUnknownKind        = errors.New("unknown record kind")
	ErrNoPendingDeletion  = errors.New("no deletion is pending")
	ErrDeletionInProgress = errors.New("a deletion is already in progress")
	ErrSelfDeletion       = errors.New("you cannot delete your own admin account")
)

// Action is a privileged operation of the dashboard.
type Action string

const (
	ActionViewAdmins  Action = "view_admins"
	ActionCreateAdmin Action = "create_admin"
	ActionDelete      Action = "delete"
)

// Allowed is the single authorization rule: every action is reserved for the god role.
func Allowed(role database.Role, action Action) bool {
	switch action {
	case ActionViewAdmins, ActionCreateAdmin, ActionDelete:
		return role == database.RoleGod
	default:
		return false
	}
}

// Kind identifies the type of record targeted by a deletion.
type Kind string

const (
	KindAdmin              Kind = "admin"
	KindApplication        Kind = "application"
	KindDevTeamApplication Kind = "devTeamApplication"
)

// Collection returns the collection records of this kind live in.
func (k Kind) Collection() (database.Collection, error) {
	switch k {
	case KindAdmin:
		return database.CollectionAdmins, nil
	case KindApplication:
		return database.CollectionApplications, nil
	case KindDevTeamApplication:
		return database.CollectionDevTeamApplications, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, string(k))
	}
}

// PendingDeletion is a delete request waiting for confirmation.
type PendingDeletion struct {
	TargetID   uint `json:"targetId"`
	TargetKind Kind `json:"targetKind"`
}

// DeletionState is the state of the delete confirmation workflow.
type DeletionState string

const (
	StateIdle                 DeletionState = "idle"
	StateAwaitingConfirmation DeletionState = "awaiting_confirmation"
	StateDeleting             DeletionState = "deleting"
)
