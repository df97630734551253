package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/itsJ0ker/midnight/internal/database"
	"github.com/itsJ0ker/midnight/internal/moderation"
	"github.com/itsJ0ker/midnight/internal/scheduler"
	"github.com/itsJ0ker/midnight/internal/session"
	"github.com/itsJ0ker/midnight/internal/submission"
)

func statusFor(err error) int {
	var verr *submission.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest
	case errors.Is(err, moderation.ErrNotAuthenticated), errors.Is(err, session.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, moderation.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, moderation.ErrNoPendingDeletion), errors.Is(err, moderation.ErrDeletionInProgress):
		return http.StatusConflict
	case errors.Is(err, moderation.ErrEmptyEmail),
		errors.Is(err, moderation.ErrInvalidRole),
		errors.Is(err, moderation.ErrUnknownKind),
		errors.Is(err, moderation.ErrSelfDeletion):
		return http.StatusBadRequest
	case errors.Is(err, database.ErrNotFound), errors.Is(err, scheduler.ErrJobNotFound):
		return http.StatusNotFound
	case strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error("Request failed", "path", c.FullPath(), "error", err)
	}

	body := gin.H{
		"success": false,
		"error":   err.Error(),
	}
	var verr *submission.ValidationError
	if errors.As(err, &verr) {
		body["fields"] = verr.Fields
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"success": false,
		"error":   msg,
	})
}
