package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/ccoveille/go-safecast"
	"github.com/gin-gonic/gin"
	"github.com/itsJ0ker/midnight/internal/api/auth"
	"github.com/itsJ0ker/midnight/internal/api/models"
	"github.com/itsJ0ker/midnight/internal/config"
	"github.com/itsJ0ker/midnight/internal/database"
	"github.com/itsJ0ker/midnight/internal/moderation"
)

const heartbeatInterval = 30 * time.Second

// AdminHandler serves the admin dashboard.
type AdminHandler struct {
	gravatar *config.GravatarConfig
}

func NewAdmin(gravatar *config.GravatarConfig) *AdminHandler {
	return &AdminHandler{
		gravatar: gravatar,
	}
}

// Dashboard returns the lists, the pending deletion and the permissions of the session.
func (h *AdminHandler) Dashboard(c *gin.Context) {
	snap := auth.Controller(c).Snapshot()
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"dashboard": models.ToDashboard(snap, h.gravatar),
	})
}

// Refresh reloads every list the admin may see.
func (h *AdminHandler) Refresh(c *gin.Context) {
	ctrl := auth.Controller(c)
	if err := ctrl.Refresh(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"dashboard": models.ToDashboard(ctrl.Snapshot(), h.gravatar),
	})
}

type addAdminRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// AddAdmin creates an admin with the default password. An empty role means admin.
func (h *AdminHandler) AddAdmin(c *gin.Context) {
	var req addAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	role := database.Role(req.Role)
	if role == "" {
		role = database.RoleAdmin
	}

	admin, err := auth.Controller(c).AddAdmin(c.Request.Context(), req.Email, role)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"admin":   models.ToAdmin(*admin, h.gravatar),
	})
}

type deletionRequest struct {
	TargetID   int64           `json:"targetId"`
	TargetKind moderation.Kind `json:"targetKind"`
}

// RequestDeletion records the record to delete. Nothing is deleted until it is confirmed.
func (h *AdminHandler) RequestDeletion(c *gin.Context) {
	var req deletionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	id, err := safecast.Convert[uint](req.TargetID)
	if err != nil {
		badRequest(c, "invalid target ID")
		return
	}

	ctrl := auth.Controller(c)
	if err := ctrl.RequestDelete(id, req.TargetKind); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"pending": ctrl.Pending(),
		"state":   ctrl.State(),
	})
}

// ConfirmDeletion deletes the pending record.
func (h *AdminHandler) ConfirmDeletion(c *gin.Context) {
	ctrl := auth.Controller(c)
	if err := ctrl.ConfirmDelete(c.Request.Context()); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Record deleted successfully",
	})
}

// CancelDeletion drops the pending deletion.
func (h *AdminHandler) CancelDeletion(c *gin.Context) {
	ctrl := auth.Controller(c)
	ctrl.CancelDelete()
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   ctrl.State(),
	})
}

// Events streams a change event each time one of the session's lists is reloaded.
func (h *AdminHandler) Events(c *gin.Context) {
	changes, stop := auth.Controller(c).Watch()
	defer stop()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case collection, ok := <-changes:
			if !ok {
				return false
			}
			c.SSEvent("change", gin.H{"collection": collection})
			return true
		case <-heartbeat.C:
			c.SSEvent("ping", gin.H{"time": time.Now().Unix()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
