package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/itsJ0ker/midnight/internal/api/models"
	"github.com/itsJ0ker/midnight/internal/submission"
)

// PublicHandler serves the application forms.
type PublicHandler struct {
	submissions *submission.Service
}

func NewPublic(submissions *submission.Service) *PublicHandler {
	return &PublicHandler{
		submissions: submissions,
	}
}

// SubmitApplication stores a general application.
func (h *PublicHandler) SubmitApplication(c *gin.Context) {
	var in submission.ApplicationInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	app, err := h.submissions.SubmitApplication(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Application submitted successfully",
		"id":      app.ID,
	})
}

// RecentApplications lists the latest general applications, newest first.
func (h *PublicHandler) RecentApplications(c *gin.Context) {
	apps, err := h.submissions.RecentApplications(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"applications": models.ToRecentApplications(apps),
	})
}

// SubmitDevTeamApplication stores a dev-team application.
func (h *PublicHandler) SubmitDevTeamApplication(c *gin.Context) {
	var in submission.DevTeamInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	app, err := h.submissions.SubmitDevTeamApplication(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"message": "Application submitted successfully",
		"id":      app.ID,
	})
}

// RecentDevTeamApplications lists the latest dev-team applications, newest first.
func (h *PublicHandler) RecentDevTeamApplications(c *gin.Context) {
	apps, err := h.submissions.RecentDevTeamApplications(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"applications": models.ToRecentDevTeamApplications(apps),
	})
}
