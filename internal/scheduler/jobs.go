package scheduler

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/itsJ0ker/midnight/internal/database"
	"github.com/itsJ0ker/midnight/internal/notify/webpush"
)

const (
	JobResync         = "resync"
	JobWebPushCleanup = "webpush-cleanup"
)

// Notifier publishes change signals.
type Notifier interface {
	Notify(ctx context.Context, collection database.Collection)
}

// ResyncJob publishes a change signal for every collection so that subscribers reload
// even if an earlier signal was lost.
func ResyncJob(n Notifier) JobFunc {
	return func(ctx context.Context) error {
		for _, c := range database.Collections {
			n.Notify(ctx, c)
		}
		return nil
	}
}

// WebPushCleanupJob drops push subscriptions older than maxAge.
func WebPushCleanupJob(client *webpush.Client, maxAge time.Duration) JobFunc {
	return func(ctx context.Context) error {
		if removed := client.CleanupExpiredSubscriptions(maxAge); removed > 0 {
			log.Info("Removed expired push subscriptions", "count", removed)
		}
		return nil
	}
}
