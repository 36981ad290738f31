package data

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"MeshGuard/internal/conf"
	"MeshGuard/internal/model"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEventStore(t *testing.T) (*EventStore, *redis.Client, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)

	rdb := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	d, _, err := NewData(&conf.Data{}, log.DefaultLogger, rdb)
	require.NoError(t, err)

	store := NewEventStore(&conf.Events{StreamTTL: time.Hour}, d, log.DefaultLogger)

	return store, rdb, mr
}

func testEvent(t *testing.T, eventType, subjectID string) *model.UserEvent {
	event, err := model.NewUserEvent(eventType, subjectID, map[string]string{"source": "test"})
	require.NoError(t, err)
	return event
}

func TestEventStore_PublishOne(t *testing.T) {
	store, rdb, mr := setupEventStore(t)
	defer mr.Close()

	ctx := context.Background()
	event := testEvent(t, model.EventUserCreated, "42")

	err := store.PublishOne(ctx, event)
	require.NoError(t, err)

	// Stats counters
	total, err := rdb.Get(ctx, "events:stats:total").Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	perType, err := rdb.Get(ctx, "events:stats:type:USER_CREATED").Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(1), perType)

	// Recent list holds the JSON envelope
	recent, err := rdb.LRange(ctx, "events:recent", 0, -1).Result()
	require.NoError(t, err)
	require.Len(t, recent, 1)

	var got model.UserEvent
	require.NoError(t, json.Unmarshal([]byte(recent[0]), &got))
	assert.Equal(t, event.CorrelationID, got.CorrelationID)

	// Durable stream with TTL
	length, err := rdb.XLen(ctx, "stream:user_created").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), length)
	assert.Equal(t, time.Hour, mr.TTL("stream:user_created"))
}

func TestEventStore_PublishOne_RecentListBounded(t *testing.T) {
	store, rdb, mr := setupEventStore(t)
	defer mr.Close()

	ctx := context.Background()
	for i := 0; i < 105; i++ {
		event := testEvent(t, model.EventUserLogin, fmt.Sprintf("user-%d", i))
		require.NoError(t, store.PublishOne(ctx, event))
	}

	// The recent list is trimmed to the newest 100 entries
	length, err := rdb.LLen(ctx, "events:recent").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(100), length)

	total, err := rdb.Get(ctx, "events:stats:total").Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(105), total)
}

func TestEventStore_PublishMany(t *testing.T) {
	store, rdb, mr := setupEventStore(t)
	defer mr.Close()

	ctx := context.Background()
	events := []*model.UserEvent{
		testEvent(t, model.EventUserCreated, "1"),
		testEvent(t, model.EventUserCreated, "2"),
		testEvent(t, model.EventUserDeleted, "3"),
	}

	err := store.PublishMany(ctx, events)
	require.NoError(t, err)

	total, err := rdb.Get(ctx, "events:stats:total").Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	created, err := rdb.Get(ctx, "events:stats:type:USER_CREATED").Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(2), created)

	deleted, err := rdb.Get(ctx, "events:stats:type:USER_DELETED").Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	createdLen, err := rdb.XLen(ctx, "stream:user_created").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(2), createdLen)

	deletedLen, err := rdb.XLen(ctx, "stream:user_deleted").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), deletedLen)

	recentLen, err := rdb.LLen(ctx, "events:recent").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), recentLen)
}

func TestEventStore_PublishMany_Empty(t *testing.T) {
	store, rdb, mr := setupEventStore(t)
	defer mr.Close()

	ctx := context.Background()
	err := store.PublishMany(ctx, nil)
	require.NoError(t, err)

	exists, err := rdb.Exists(ctx, "events:stats:total").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)
}

func TestEventStore_BroadcastTo(t *testing.T) {
	store, rdb, mr := setupEventStore(t)
	defer mr.Close()

	ctx := context.Background()

	sub := rdb.Subscribe(ctx, "service:user-service")
	defer sub.Close()

	// Wait for the subscription to be established
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	event := testEvent(t, model.EventUserUpdated, "42")
	err = store.BroadcastTo(ctx, "user-service", event)
	require.NoError(t, err)

	raw, err := sub.ReceiveTimeout(ctx, time.Second)
	require.NoError(t, err)
	msg, ok := raw.(*redis.Message)
	require.True(t, ok)

	var got model.UserEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &got))
	assert.Equal(t, model.EventUserUpdated, got.Type)
	assert.Equal(t, "42", got.SubjectID)

	// Direct broadcasts leave no stream or stats behind
	exists, err := rdb.Exists(ctx, "events:stats:total").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(0), exists)
}

func TestEventStore_Stats(t *testing.T) {
	store, _, mr := setupEventStore(t)
	defer mr.Close()

	ctx := context.Background()
	require.NoError(t, store.PublishOne(ctx, testEvent(t, model.EventUserCreated, "1")))
	require.NoError(t, store.PublishOne(ctx, testEvent(t, model.EventUserCreated, "2")))
	last := testEvent(t, model.EventUserDeleted, "3")
	require.NoError(t, store.PublishOne(ctx, last))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(3), stats.TotalEvents)
	assert.Equal(t, int64(2), stats.EventsByType[model.EventUserCreated])
	assert.Equal(t, int64(1), stats.EventsByType[model.EventUserDeleted])

	// Types never seen are not reported
	_, seen := stats.EventsByType[model.EventUserLogin]
	assert.False(t, seen)

	// Recent events come back newest first
	require.Len(t, stats.RecentEvents, 3)
	assert.Equal(t, last.CorrelationID, stats.RecentEvents[0].CorrelationID)
}

func TestEventStore_Stats_Empty(t *testing.T) {
	store, _, mr := setupEventStore(t)
	defer mr.Close()

	stats, err := store.Stats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(0), stats.TotalEvents)
	assert.Empty(t, stats.EventsByType)
	assert.Empty(t, stats.RecentEvents)
}

func TestEventStore_FailedQueue(t *testing.T) {
	store, _, mr := setupEventStore(t)
	defer mr.Close()

	ctx := context.Background()
	first := testEvent(t, model.EventUserCreated, "1")
	second := testEvent(t, model.EventSessionExpired, "2")

	require.NoError(t, store.QueueFailed(ctx, first))
	require.NoError(t, store.QueueFailed(ctx, second))

	raw, err := store.FailedEvents(ctx)
	require.NoError(t, err)
	require.Len(t, raw, 2)

	// Removing one entry leaves the other queued
	require.NoError(t, store.RemoveFailed(ctx, raw[0]))

	remaining, err := store.FailedEvents(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, raw[1], remaining[0])
}

func TestEventStore_Ping(t *testing.T) {
	store, _, mr := setupEventStore(t)
	defer mr.Close()

	assert.NoError(t, store.Ping(context.Background()))
}

func TestEventStore_NilClient(t *testing.T) {
	d, _, err := NewData(&conf.Data{}, log.DefaultLogger, nil)
	require.NoError(t, err)
	store := NewEventStore(&conf.Events{}, d, log.DefaultLogger)

	ctx := context.Background()
	event := testEvent(t, model.EventUserCreated, "1")

	assert.Error(t, store.PublishOne(ctx, event))
	assert.Error(t, store.PublishMany(ctx, []*model.UserEvent{event}))
	assert.Error(t, store.BroadcastTo(ctx, "svc", event))
	assert.Error(t, store.QueueFailed(ctx, event))
	assert.Error(t, store.Ping(ctx))

	_, err = store.Stats(ctx)
	assert.Error(t, err)

	_, err = store.FailedEvents(ctx)
	assert.Error(t, err)
}
