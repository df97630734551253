package webpush

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/charmbracelet/log"
	"github.com/itsJ0ker/midnight/internal/config"
)

var (
	ErrDisabled         = errors.New("webpush notifications are disabled")
	ErrNoSubscriptions  = errors.New("no push subscriptions found")
	ErrInvalidEndpoint  = errors.New("subscription endpoint is required")
	errSubscriptionGone = errors.New("push subscription expired")
)

// Client keeps the push subscriptions of admins in memory and sends notifications to them.
type Client struct {
	config        *config.WebPushConfig
	mu            sync.RWMutex
	subscriptions map[string]map[string]*Subscription // admin email -> subscription id -> subscription
}

// Subscription is a browser push subscription.
type Subscription struct {
	ID       string `json:"id"`
	Owner    string `json:"owner"`
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
	CreatedAt time.Time `json:"createdAt"`
	UserAgent string    `json:"userAgent,omitempty"`
}

// NotificationPayload is the JSON document delivered to the service worker.
type NotificationPayload struct {
	Title string         `json:"title"`
	Body  string         `json:"body"`
	Icon  string         `json:"icon,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

func NewClient(cfg *config.WebPushConfig) *Client {
	if cfg == nil {
		cfg = &config.WebPushConfig{}
	}
	return &Client{
		config:        cfg,
		subscriptions: make(map[string]map[string]*Subscription),
	}
}

// GenerateVAPIDKeys generates a new VAPID key pair.
func GenerateVAPIDKeys() (privateKey, publicKey string, err error) {
	return webpush.GenerateVAPIDKeys()
}

func (c *Client) Enabled() bool {
	return c.config.Enabled
}

// PublicKey returns the VAPID public key browsers subscribe with.
func (c *Client) PublicKey() string {
	return c.config.PublicKey
}

// ValidateConfig checks that the VAPID keys are present and decodable.
func (c *Client) ValidateConfig() error {
	if !c.config.Enabled {
		return nil
	}
	if c.config.VAPIDEmail == "" {
		return fmt.Errorf("vapid_email is required when webpush is enabled")
	}
	if _, err := base64.RawURLEncoding.DecodeString(c.config.PublicKey); err != nil {
		return fmt.Errorf("invalid public key format: %w", err)
	}
	if _, err := base64.RawURLEncoding.DecodeString(c.config.PrivateKey); err != nil {
		return fmt.Errorf("invalid private key format: %w", err)
	}
	return nil
}

// Subscribe stores sub for owner. The id is derived from the endpoint, so a browser
// subscribing twice replaces its previous entry.
func (c *Client) Subscribe(owner string, sub *Subscription) error {
	if !c.config.Enabled {
		return ErrDisabled
	}
	if sub.Endpoint == "" {
		return ErrInvalidEndpoint
	}

	hash := sha256.Sum256([]byte(sub.Endpoint))
	sub.ID = hex.EncodeToString(hash[:])[:16]
	sub.Owner = owner
	sub.CreatedAt = time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subscriptions[owner] == nil {
		c.subscriptions[owner] = make(map[string]*Subscription)
	}
	c.subscriptions[owner][sub.ID] = sub

	log.Info("Added push subscription", "id", sub.ID, "owner", owner)
	return nil
}

// UnsubscribeByEndpoint removes the subscription of owner with the given endpoint.
func (c *Client) UnsubscribeByEndpoint(owner, endpoint string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for id, sub := range c.subscriptions[owner] {
		if sub.Endpoint == endpoint {
			c.removeLocked(owner, id)
			return
		}
	}
}

// Unsubscribe removes every subscription of owner.
func (c *Client) Unsubscribe(owner string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.subscriptions, owner)
}

func (c *Client) removeLocked(owner, id string) {
	if subs, ok := c.subscriptions[owner]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(c.subscriptions, owner)
		}
		log.Info("Removed push subscription", "id", id, "owner", owner)
	}
}

// SubscriptionCount returns the number of stored subscriptions.
func (c *Client) SubscriptionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	n := 0
	for _, subs := range c.subscriptions {
		n += len(subs)
	}
	return n
}

func (c *Client) all() []*Subscription {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Subscription, 0)
	for _, subs := range c.subscriptions {
		for _, sub := range subs {
			out = append(out, sub)
		}
	}
	return out
}

// SendNotificationToAll pushes payload to every subscription. Subscriptions reported gone by the
// push service are removed. It succeeds if at least one delivery succeeded.
func (c *Client) SendNotificationToAll(ctx context.Context, payload *NotificationPayload) error {
	if !c.config.Enabled {
		return ErrDisabled
	}

	subs := c.all()
	if len(subs) == 0 {
		return ErrNoSubscriptions
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification payload: %w", err)
	}

	var lastErr error
	sent := 0
	for _, sub := range subs {
		if err := c.send(ctx, data, sub); err != nil {
			if errors.Is(err, errSubscriptionGone) {
				c.mu.Lock()
				c.removeLocked(sub.Owner, sub.ID)
				c.mu.Unlock()
			}
			log.Warn("Failed to send push notification", "id", sub.ID, "owner", sub.Owner, "error", err)
			lastErr = err
			continue
		}
		sent++
	}

	if sent == 0 {
		return fmt.Errorf("failed to send push notification to any subscription: %w", lastErr)
	}
	log.Debug("Sent push notification", "delivered", sent, "total", len(subs))
	return nil
}

func (c *Client) send(ctx context.Context, data []byte, sub *Subscription) error {
	resp, err := webpush.SendNotificationWithContext(ctx, data, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.Keys.P256dh,
			Auth:   sub.Keys.Auth,
		},
	}, &webpush.Options{
		Subscriber:      c.config.VAPIDEmail,
		VAPIDPublicKey:  c.config.PublicKey,
		VAPIDPrivateKey: c.config.PrivateKey,
		TTL:             60,
		RecordSize:      3000, // higher caused issues with firefox on android
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	switch {
	case resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound:
		return errSubscriptionGone
	case resp.StatusCode >= 300:
		return fmt.Errorf("push service returned status %d", resp.StatusCode)
	}
	return nil
}

// SendNewApplicationNotification tells every subscribed admin about a new submission.
func (c *Client) SendNewApplicationNotification(ctx context.Context, form, name, dashboardURL string) error {
	return c.SendNotificationToAll(ctx, &NotificationPayload{
		Title: fmt.Sprintf("New %s", form),
		Body:  fmt.Sprintf("%s just applied.", name),
		Icon:  "/static/icons/icon-192x192.png",
		Data: map[string]any{
			"type":      "new_application",
			"url":       dashboardURL,
			"timestamp": time.Now().Unix(),
		},
	})
}

// CleanupExpiredSubscriptions removes subscriptions older than maxAge.
func (c *Client) CleanupExpiredSubscriptions(maxAge time.Duration) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for owner, subs := range c.subscriptions {
		for id, sub := range subs {
			if sub.CreatedAt.Before(cutoff) {
				c.removeLocked(owner, id)
				removed++
			}
		}
	}
	return removed
}
