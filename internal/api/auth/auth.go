package auth

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/itsJ0ker/midnight/internal/api/models"
	"github.com/itsJ0ker/midnight/internal/config"
	"github.com/itsJ0ker/midnight/internal/database"
	"github.com/itsJ0ker/midnight/internal/moderation"
	"github.com/itsJ0ker/midnight/internal/session"
)

// Provider authenticates admins against the accounts collection.
type Provider struct {
	registry *moderation.Registry
	gravatar *config.GravatarConfig
}

// NewProvider creates a provider backed by the controller registry.
func NewProvider(registry *moderation.Registry, gravatar *config.GravatarConfig) *Provider {
	return &Provider{
		registry: registry,
		gravatar: gravatar,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks the credentials and loads the dashboard of the session.
func (p *Provider) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "invalid request body",
		})
		return
	}

	admin, err := p.login(c, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "Invalid credentials!",
			})
			return
		}
		log.Error("Failed to complete login", "email", req.Email, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"admin":   models.ToAdmin(*admin, p.gravatar),
	})
}

// login reuses the controller of the browser session when there is one. Otherwise a controller
// is registered only once the credentials matched. A failed login drops the browser session.
func (p *Provider) login(c *gin.Context, email, password string) (*database.Admin, error) {
	if ctrl, ok := controller(c); ok {
		admin, err := ctrl.Login(c.Request.Context(), email, password)
		if err != nil {
			p.endSession(c)
		}
		return admin, err
	}

	sid, _, admin, err := p.registry.Login(c.Request.Context(), email, password)
	if err != nil {
		return nil, err
	}

	s := sessions.Default(c)
	s.Set(sessionIDKey, sid)
	if err := s.Save(); err != nil {
		p.registry.Remove(sid)
		return nil, fmt.Errorf("failed to save session: %w", err)
	}
	return admin, nil
}

// endSession drops the controller of the browser session, if any, and clears the cookie.
func (p *Provider) endSession(c *gin.Context) {
	if ctrl, ok := controller(c); ok {
		ctrl.Logout()
		p.registry.Remove(c.GetString(sessionIDKey))
	}

	s := sessions.Default(c)
	s.Clear()
	if err := s.Save(); err != nil {
		log.Error("Failed to clear session", "error", err)
	}
}

// Logout ends the session and drops its controller.
func (p *Provider) Logout(c *gin.Context) {
	p.endSession(c)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// Me returns the logged in admin.
func (p *Provider) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"admin":   models.ToAdmin(*User(c), p.gravatar),
	})
}
