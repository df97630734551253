package realtime

import (
	"context"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/itsJ0ker/midnight/internal/config"
	"github.com/itsJ0ker/midnight/internal/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBroker_PublishReachesSubscribersOfCollection(t *testing.T) {
	b := NewMemoryBroker()
	defer b.Close() //nolint:errcheck

	var apps, admins atomic.Int32
	b.Subscribe(database.CollectionApplications, func() { apps.Add(1) })
	b.Subscribe(database.CollectionApplications, func() { apps.Add(1) })
	b.Subscribe(database.CollectionAdmins, func() { admins.Add(1) })

	require.NoError(t, b.Publish(context.Background(), database.CollectionApplications))

	assert.Eventually(t, func() bool { return apps.Load() == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(0), admins.Load())
}

func TestMemoryBroker_UnsubscribeIsIdempotent(t *testing.T) {
	b := NewMemoryBroker()

	var calls atomic.Int32
	sub := b.Subscribe(database.CollectionAdmins, func() { calls.Add(1) })
	other := b.Subscribe(database.CollectionAdmins, func() {})
	assert.Equal(t, 2, b.Subscribers(database.CollectionAdmins))

	sub.Unsubscribe()
	sub.Unsubscribe()
	assert.Equal(t, 1, b.Subscribers(database.CollectionAdmins))

	require.NoError(t, b.Publish(context.Background(), database.CollectionAdmins))
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())

	other.Unsubscribe()
	assert.Equal(t, 0, b.Subscribers(database.CollectionAdmins))
}

func TestMemoryBroker_PublishAfterClose(t *testing.T) {
	b := NewMemoryBroker()
	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.Publish(context.Background(), database.CollectionAdmins), ErrClosed)
}

func TestGroup_Unsubscribe(t *testing.T) {
	b := NewMemoryBroker()

	var g Group
	for _, c := range database.Collections {
		g.Add(b.Subscribe(c, func() {}))
	}
	assert.Equal(t, 3, g.Len())

	g.Unsubscribe()
	g.Unsubscribe()
	assert.Equal(t, 0, g.Len())
	for _, c := range database.Collections {
		assert.Equal(t, 0, b.Subscribers(c))
	}
}

func TestNew(t *testing.T) {
	b, err := New(context.Background(), &config.RealtimeConfig{Type: config.BackendTypeMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryBroker{}, b)

	_, err = New(context.Background(), &config.RealtimeConfig{Type: "kafka"})
	assert.Error(t, err)
}

func TestRedisBroker(t *testing.T) {
	addr := os.Getenv("MIDNIGHT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("MIDNIGHT_TEST_REDIS_ADDR not set")
	}

	ctx := context.Background()
	b, err := NewRedisBroker(ctx, addr)
	require.NoError(t, err)
	defer b.Close() //nolint:errcheck

	var calls atomic.Int32
	sub := b.Subscribe(database.CollectionDevTeamApplications, func() { calls.Add(1) })
	defer sub.Unsubscribe()

	require.NoError(t, b.Publish(ctx, database.CollectionDevTeamApplications))
	assert.Eventually(t, func() bool { return calls.Load() == 1 }, 2*time.Second, 10*time.Millisecond)
}
