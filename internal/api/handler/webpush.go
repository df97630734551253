package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/itsJ0ker/midnight/internal/api/auth"
	"github.com/itsJ0ker/midnight/internal/notify/webpush"
)

// SubscribeRequest represents the request body for push notification subscription.
type SubscribeRequest struct {
	Subscription struct {
		Endpoint string `json:"endpoint"`
		Keys     struct {
			P256dh string `json:"p256dh"`
			Auth   string `json:"auth"`
		} `json:"keys"`
	} `json:"subscription"`
}

// WebPushHandler lets admins receive a push notification for every new application.
type WebPushHandler struct {
	webpush *webpush.Client
}

func NewWebPushHandler(client *webpush.Client) *WebPushHandler {
	return &WebPushHandler{
		webpush: client,
	}
}

func (h *WebPushHandler) available(c *gin.Context) bool {
	if h.webpush == nil || !h.webpush.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"success": false,
			"error":   "webpush is not configured",
		})
		return false
	}
	return true
}

// GetVAPIDKey returns the VAPID public key for client subscription.
func (h *WebPushHandler) GetVAPIDKey(c *gin.Context) {
	if !h.available(c) {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"publicKey": h.webpush.PublicKey(),
	})
}

// Subscribe registers the browser subscription of the logged in admin.
func (h *WebPushHandler) Subscribe(c *gin.Context) {
	if !h.available(c) {
		return
	}

	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid subscription data")
		return
	}

	user := auth.User(c)
	sub := &webpush.Subscription{
		Endpoint:  req.Subscription.Endpoint,
		UserAgent: c.GetHeader("User-Agent"),
	}
	sub.Keys.P256dh = req.Subscription.Keys.P256dh
	sub.Keys.Auth = req.Subscription.Keys.Auth

	if err := h.webpush.Subscribe(user.Email, sub); err != nil {
		if errors.Is(err, webpush.ErrInvalidEndpoint) {
			badRequest(c, err.Error())
			return
		}
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         "successfully subscribed to push notifications",
		"subscription_id": sub.ID,
	})
}

// Unsubscribe removes one subscription when an endpoint is given, otherwise all of them.
func (h *WebPushHandler) Unsubscribe(c *gin.Context) {
	if !h.available(c) {
		return
	}

	var req struct {
		Endpoint string `json:"endpoint"`
	}
	// an empty body is valid
	_ = c.ShouldBindJSON(&req)

	user := auth.User(c)
	if req.Endpoint != "" {
		h.webpush.UnsubscribeByEndpoint(user.Email, req.Endpoint)
	} else {
		h.webpush.Unsubscribe(user.Email)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "successfully unsubscribed from push notifications",
	})
}
