package cache

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/eko/gocache/lib/v4/codec"
	"github.com/eko/gocache/lib/v4/store"
	"github.com/itsJ0ker/midnight/internal/config"
	"github.com/itsJ0ker/midnight/internal/database"
)

// Cache key prefixes.
const (
	RecentApplicationsCachePrefix        = "midnight-recent-applications-"
	RecentDevTeamApplicationsCachePrefix = "midnight-recent-avyukt-applications-"
)

// RecentKey is the key the recent lists are stored under.
const RecentKey = "latest"

// recentTTL bounds staleness if an invalidation is lost.
const recentTTL = 10 * time.Minute

// RecentCache holds the public recent-submission lists.
type RecentCache struct {
	Applications        *PrefixedCache[[]database.Application]
	DevTeamApplications *PrefixedCache[[]database.DevTeamApplication]
}

func NewRecentCache(cfg *config.CacheConfig) *RecentCache {
	return &RecentCache{
		Applications: NewPrefixedCache[[]database.Application](
			newCacheInstanceByType(cfg),
			RecentApplicationsCachePrefix,
		),
		DevTeamApplications: NewPrefixedCache[[]database.DevTeamApplication](
			newCacheInstanceByType(cfg),
			RecentDevTeamApplicationsCachePrefix,
		),
	}
}

// TTL returns the store option used for recent lists.
func TTL() store.Option {
	return store.WithExpiration(recentTTL)
}

// Invalidate drops the cached recent list of a collection.
func (r *RecentCache) Invalidate(ctx context.Context, collection database.Collection) {
	var err error
	switch collection {
	case database.CollectionApplications:
		err = r.Applications.Delete(ctx, RecentKey)
	case database.CollectionDevTeamApplications:
		err = r.DevTeamApplications.Delete(ctx, RecentKey)
	default:
		return
	}
	if err != nil {
		log.Debug("failed to invalidate recent cache", "collection", collection, "error", err)
	}
}

type Stats struct {
	*codec.Stats
	CacheName string `json:"cacheName"`
}

func (r *RecentCache) GetStats() []*Stats {
	return []*Stats{
		{
			Stats:     r.Applications.GetStats(),
			CacheName: "recent-applications",
		},
		{
			Stats:     r.DevTeamApplications.GetStats(),
			CacheName: "recent-avyukt-applications",
		},
	}
}
