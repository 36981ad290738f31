package data

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"MeshGuard/internal/conf"
	"MeshGuard/internal/model"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/redis/go-redis/v9"
)

// Redis key layout shared by every replica
const (
	eventStatsTotalKey = "events:stats:total"
	eventStatsTypeKey  = "events:stats:type:" // + <TYPE>
	eventRecentKey     = "events:recent"
	eventFailedKey     = "events:failed"
	serviceChannelKey  = "service:" // + <name>

	// recentEventsMax bounds the shared recent-events list
	recentEventsMax = 100
)

// EventStore fans user events out through Redis: pub/sub broadcast, durable
// per-type stream and the shared publishing counters.
// Implements biz.EventStore.
type EventStore struct {
	rdb       *redis.Client
	streamTTL time.Duration
	logger    *log.Helper
}

// NewEventStore creates the event store. The stream TTL bounds how long
// durable event logs are retained after the last append.
func NewEventStore(c *conf.Events, d *Data, logger log.Logger) *EventStore {
	ttl := 24 * time.Hour
	if c != nil && c.StreamTTL > 0 {
		ttl = c.StreamTTL
	}

	return &EventStore{
		rdb:       d.GetRedisClient(),
		streamTTL: ttl,
		logger:    log.NewHelper(logger),
	}
}

// PublishOne runs the three publish steps for a single event: broadcast,
// stream append with expiry, and the stats update. The steps are independent;
// a failed broadcast must not stop the stream append or the stats update, so
// every step is attempted and the errors are reported together.
func (s *EventStore) PublishOne(ctx context.Context, event *model.UserEvent) error {
	if s.rdb == nil {
		return errors.New("events: redis client is nil")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: failed to marshal event: %w", err)
	}

	var errs []error

	if err := s.rdb.Publish(ctx, event.Channel(), payload).Err(); err != nil {
		errs = append(errs, fmt.Errorf("broadcast on %s: %w", event.Channel(), err))
	}

	if err := s.appendStream(ctx, event.StreamKey(), payload); err != nil {
		errs = append(errs, err)
	}

	if err := s.recordStats(ctx, event.Type, payload); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// PublishMany publishes a batch atomically: every broadcast, stream append,
// expiry and stats update goes through a single MULTI/EXEC round trip.
func (s *EventStore) PublishMany(ctx context.Context, events []*model.UserEvent) error {
	if s.rdb == nil {
		return errors.New("events: redis client is nil")
	}
	if len(events) == 0 {
		return nil
	}

	payloads := make([][]byte, len(events))
	for i, event := range events {
		payload, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("events: failed to marshal event %d of %d: %w", i+1, len(events), err)
		}
		payloads[i] = payload
	}

	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, event := range events {
			payload := payloads[i]
			pipe.Publish(ctx, event.Channel(), payload)
			pipe.XAdd(ctx, &redis.XAddArgs{
				Stream: event.StreamKey(),
				Values: map[string]interface{}{"event": payload},
			})
			pipe.Expire(ctx, event.StreamKey(), s.streamTTL)
			pipe.Incr(ctx, eventStatsTotalKey)
			pipe.Incr(ctx, eventStatsTypeKey+event.Type)
			pipe.LPush(ctx, eventRecentKey, payload)
			pipe.LTrim(ctx, eventRecentKey, 0, recentEventsMax-1)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("events: batch publish of %d events failed: %w", len(events), err)
	}

	return nil
}

// BroadcastTo publishes the event on a service-specific channel. No stream
// append and no stats update, matching direct service-to-service notification
// semantics.
func (s *EventStore) BroadcastTo(ctx context.Context, service string, event *model.UserEvent) error {
	if s.rdb == nil {
		return errors.New("events: redis client is nil")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: failed to marshal event: %w", err)
	}

	channel := serviceChannelKey + service
	if err := s.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("events: broadcast to %s: %w", channel, err)
	}

	return nil
}

// Stats reads the shared publishing counters and the recent-events list.
// Only event types that have been seen at least once are reported.
func (s *EventStore) Stats(ctx context.Context) (*model.PublishingStats, error) {
	if s.rdb == nil {
		return nil, errors.New("events: redis client is nil")
	}

	stats := &model.PublishingStats{
		EventsByType: make(map[string]int64),
	}

	total, err := s.rdb.Get(ctx, eventStatsTotalKey).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("events: failed to read total counter: %w", err)
	}
	stats.TotalEvents = total

	// Per-type counters in one MGET over the known tag set
	keys := make([]string, len(model.EventTypes))
	for i, typ := range model.EventTypes {
		keys[i] = eventStatsTypeKey + typ
	}
	vals, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("events: failed to read type counters: %w", err)
	}
	for i, val := range vals {
		if val == nil {
			continue
		}
		str, ok := val.(string)
		if !ok {
			continue
		}
		count, err := strconv.ParseInt(str, 10, 64)
		if err != nil || count == 0 {
			continue
		}
		stats.EventsByType[model.EventTypes[i]] = count
	}

	entries, err := s.rdb.LRange(ctx, eventRecentKey, 0, recentEventsMax-1).Result()
	if err != nil {
		return nil, fmt.Errorf("events: failed to read recent events: %w", err)
	}
	for _, entry := range entries {
		var event model.UserEvent
		if err := json.Unmarshal([]byte(entry), &event); err != nil {
			s.logger.Warnw("skipping malformed recent event entry", "error", err)
			continue
		}
		stats.RecentEvents = append(stats.RecentEvents, event)
	}

	return stats, nil
}

// QueueFailed pushes an event onto the shared failed-event queue so a later
// retry pass can re-publish it.
func (s *EventStore) QueueFailed(ctx context.Context, event *model.UserEvent) error {
	if s.rdb == nil {
		return errors.New("events: redis client is nil")
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("events: failed to marshal event: %w", err)
	}

	if err := s.rdb.LPush(ctx, eventFailedKey, payload).Err(); err != nil {
		return fmt.Errorf("events: failed to queue event for retry: %w", err)
	}

	return nil
}

// FailedEvents snapshots the failed-event queue. Raw entries are returned so
// a successful retry can remove exactly the entry it consumed.
func (s *EventStore) FailedEvents(ctx context.Context) ([][]byte, error) {
	if s.rdb == nil {
		return nil, errors.New("events: redis client is nil")
	}

	entries, err := s.rdb.LRange(ctx, eventFailedKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("events: failed to read failed-event queue: %w", err)
	}

	raw := make([][]byte, len(entries))
	for i, entry := range entries {
		raw[i] = []byte(entry)
	}

	return raw, nil
}

// RemoveFailed drops one occurrence of the raw entry from the failed queue.
func (s *EventStore) RemoveFailed(ctx context.Context, raw []byte) error {
	if s.rdb == nil {
		return errors.New("events: redis client is nil")
	}

	if err := s.rdb.LRem(ctx, eventFailedKey, 1, raw).Err(); err != nil {
		return fmt.Errorf("events: failed to remove retried event: %w", err)
	}

	return nil
}

// Ping verifies the shared store is reachable.
func (s *EventStore) Ping(ctx context.Context) error {
	if s.rdb == nil {
		return errors.New("events: redis client is nil")
	}

	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("events: redis ping failed: %w", err)
	}

	return nil
}

// appendStream appends the payload to the durable per-type stream and
// refreshes its expiry.
func (s *EventStore) appendStream(ctx context.Context, streamKey string, payload []byte) error {
	err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey,
		Values: map[string]interface{}{"event": payload},
	}).Err()
	if err != nil {
		return fmt.Errorf("stream append to %s: %w", streamKey, err)
	}

	if err := s.rdb.Expire(ctx, streamKey, s.streamTTL).Err(); err != nil {
		return fmt.Errorf("stream expire on %s: %w", streamKey, err)
	}

	return nil
}

// recordStats bumps the shared counters and the recent-events list in one
// pipeline round trip.
func (s *EventStore) recordStats(ctx context.Context, eventType string, payload []byte) error {
	pipe := s.rdb.Pipeline()
	pipe.Incr(ctx, eventStatsTotalKey)
	pipe.Incr(ctx, eventStatsTypeKey+eventType)
	pipe.LPush(ctx, eventRecentKey, payload)
	pipe.LTrim(ctx, eventRecentKey, 0, recentEventsMax-1)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("stats update for %s: %w", eventType, err)
	}

	return nil
}
