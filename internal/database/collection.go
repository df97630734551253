package database

import (
	"context"
	"fmt"
	"time"
)

// Collection names one of the stored record sets.
type Collection string

const (
	CollectionAdmins              Collection = "admins"
	CollectionApplications        Collection = "applications"
	CollectionDevTeamApplications Collection = "avyukt_applications"
)

// Collections lists every collection in a stable order.
var Collections = []Collection{
	CollectionAdmins,
	CollectionApplications,
	CollectionDevTeamApplications,
}

// ParseCollection returns the collection for name or ErrUnknownCollection.
func ParseCollection(name string) (Collection, error) {
	c := Collection(name)
	if _, err := c.model(); err != nil {
		return "", err
	}
	return c, nil
}

func (c Collection) model() (any, error) {
	switch c {
	case CollectionAdmins:
		return &Admin{}, nil
	case CollectionApplications:
		return &Application{}, nil
	case CollectionDevTeamApplications:
		return &DevTeamApplication{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCollection, string(c))
	}
}

// CollectionStats summarises the content of a collection.
type CollectionStats struct {
	Collection Collection
	Count      int64
	LatestAt   *time.Time
}

// Stats counts the records of every collection.
func (c *Client) Stats(ctx context.Context) ([]CollectionStats, error) {
	stats := make([]CollectionStats, 0, len(Collections))
	for _, collection := range Collections {
		model, err := collection.model()
		if err != nil {
			return nil, err
		}

		s := CollectionStats{Collection: collection}
		if err := c.db.WithContext(ctx).Model(model).Count(&s.Count).Error; err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", collection, err)
		}
		if s.Count > 0 {
			var latest struct{ CreatedAt time.Time }
			if err := c.db.WithContext(ctx).Model(model).Select("created_at").Order("created_at desc").Limit(1).Scan(&latest).Error; err != nil {
				return nil, fmt.Errorf("failed to read latest %s: %w", collection, err)
			}
			s.LatestAt = &latest.CreatedAt
		}
		stats = append(stats, s)
	}
	return stats, nil
}
