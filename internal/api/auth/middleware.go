package auth

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/itsJ0ker/midnight/internal/database"
	"github.com/itsJ0ker/midnight/internal/moderation"
	"github.com/itsJ0ker/midnight/internal/session"
)

const (
	sessionIDKey  = "sid"
	controllerKey = "controller"
	userKey       = "user"
	apiKeyHeader  = "X-API-Key"
)

// Controller returns the controller attached by LoadController.
func Controller(c *gin.Context) *moderation.Controller {
	return c.MustGet(controllerKey).(*moderation.Controller)
}

func controller(c *gin.Context) (*moderation.Controller, bool) {
	v, ok := c.Get(controllerKey)
	if !ok {
		return nil, false
	}
	ctrl, ok := v.(*moderation.Controller)
	return ctrl, ok
}

// User returns the admin attached by RequireAuth.
func User(c *gin.Context) *database.Admin {
	return c.MustGet(userKey).(*database.Admin)
}

// RequireAPIKey rejects requests without the configured X-API-Key header.
// An empty key disables the check.
func RequireAPIKey(key string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if key == "" {
			c.Next()
			return
		}
		got := c.GetHeader(apiKeyHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   "invalid API key",
			})
			return
		}
		c.Next()
	}
}

// LoadController attaches the controller of the browser session if the registry still knows it.
// Controllers are only created by a successful login, the cookie only carries the registry id.
func (p *Provider) LoadController() gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, _ := sessions.Default(c).Get(sessionIDKey).(string)
		if ctrl, ok := p.registry.Get(sid); ok {
			c.Set(sessionIDKey, sid)
			c.Set(controllerKey, ctrl)
		}
		c.Next()
	}
}

// RequireAuth rejects requests whose controller holds no authenticated session.
func (p *Provider) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		var s session.Session
		if ctrl, ok := controller(c); ok {
			s = ctrl.Session()
		}
		if !s.Authenticated() {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"error":   moderation.ErrNotAuthenticated.Error(),
			})
			return
		}
		c.Set(userKey, s.Account)
		c.Next()
	}
}

// RequireGod rejects authenticated admins without the god role.
func (p *Provider) RequireGod() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := User(c)
		if user.Role != database.RoleGod {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"success": false,
				"error":   moderation.ErrForbidden.Error(),
			})
			return
		}
		c.Next()
	}
}
