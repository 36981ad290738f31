package biz

import (
	"context"
	"encoding/json"

	"MeshGuard/internal/model"
	pkgerrors "MeshGuard/pkg/errors"

	"github.com/go-kratos/kratos/v2/log"
)

// EventStore is the shared pub/sub, stream and counter backend for events.
type EventStore interface {
	PublishOne(ctx context.Context, event *model.UserEvent) error
	PublishMany(ctx context.Context, events []*model.UserEvent) error
	BroadcastTo(ctx context.Context, service string, event *model.UserEvent) error
	Stats(ctx context.Context) (*model.PublishingStats, error)
	QueueFailed(ctx context.Context, event *model.UserEvent) error
	FailedEvents(ctx context.Context) ([][]byte, error)
	RemoveFailed(ctx context.Context, raw []byte) error
	Ping(ctx context.Context) error
}

// EventPublisherUsecase delivers domain events: a real-time broadcast for
// live subscribers, a durable expiring stream for consumers that reconnect
// later, and counters for observability. Durability is a hard requirement,
// so any failure inside a publish surfaces to the caller, who queues the
// event for the retry pass instead of dropping it.
type EventPublisherUsecase struct {
	store  EventStore
	logger *log.Helper
}

// NewEventPublisherUsecase creates the event publisher.
func NewEventPublisherUsecase(store EventStore, logger log.Logger) *EventPublisherUsecase {
	return &EventPublisherUsecase{
		store:  store,
		logger: log.NewHelper(logger),
	}
}

// Publish delivers one event: broadcast, durable stream append and stats
// update. The steps are independent, all three are attempted even when an
// earlier one fails, and any failure fails the call.
func (uc *EventPublisherUsecase) Publish(ctx context.Context, event *model.UserEvent) error {
	if err := uc.store.PublishOne(ctx, event); err != nil {
		uc.logger.Warnw("event publish failed",
			"type", event.Type,
			"correlation_id", event.CorrelationID,
			"error", err)
		return pkgerrors.NewPublish(event.Type, err)
	}

	uc.logger.Debugw("event published",
		"type", event.Type,
		"subject_id", event.SubjectID,
		"correlation_id", event.CorrelationID)
	return nil
}

// PublishToService broadcasts an event on one service's channel. Delivery is
// real-time only: no stream entry, no stats.
func (uc *EventPublisherUsecase) PublishToService(ctx context.Context, service string, event *model.UserEvent) error {
	if err := uc.store.BroadcastTo(ctx, service, event); err != nil {
		uc.logger.Warnw("service broadcast failed",
			"service", service,
			"type", event.Type,
			"error", err)
		return pkgerrors.NewPublish(event.Type, err)
	}

	uc.logger.Debugw("event broadcast to service", "service", service, "type", event.Type)
	return nil
}

// PublishBatch delivers the whole batch in one pipelined round trip. The
// caller sees a single aggregate outcome: either every event went through or
// the batch failed as one.
func (uc *EventPublisherUsecase) PublishBatch(ctx context.Context, events []*model.UserEvent) error {
	if len(events) == 0 {
		return nil
	}

	if err := uc.store.PublishMany(ctx, events); err != nil {
		uc.logger.Warnw("batch publish failed", "count", len(events), "error", err)
		return pkgerrors.NewPublishBatch(len(events), err)
	}

	uc.logger.Debugw("event batch published", "count", len(events))
	return nil
}

// GetPublishingStats reads the observability state written during publish.
func (uc *EventPublisherUsecase) GetPublishingStats(ctx context.Context) (*model.PublishingStats, error) {
	stats, err := uc.store.Stats(ctx)
	if err != nil {
		return nil, pkgerrors.NewStoreUnavailable(err)
	}
	return stats, nil
}

// QueueFailed records an event whose publish raised, so the next retry pass
// can re-deliver it.
func (uc *EventPublisherUsecase) QueueFailed(ctx context.Context, event *model.UserEvent) error {
	if err := uc.store.QueueFailed(ctx, event); err != nil {
		uc.logger.Warnw("failed to queue event for retry",
			"type", event.Type,
			"correlation_id", event.CorrelationID,
			"error", err)
		return pkgerrors.NewPublish(event.Type, err)
	}

	uc.logger.Infow("event queued for retry", "type", event.Type, "correlation_id", event.CorrelationID)
	return nil
}

// RetryFailedEvents drains the failed-event queue once: each entry is
// re-published and removed from the queue only on success, so events that
// fail again stay queued for the next pass. Delivery is at-least-once; a
// consumer can see a duplicate when the publish lands but the dequeue does
// not.
//
// It returns how many events were re-published and how many are still
// queued.
func (uc *EventPublisherUsecase) RetryFailedEvents(ctx context.Context) (int, int, error) {
	raws, err := uc.store.FailedEvents(ctx)
	if err != nil {
		return 0, 0, pkgerrors.NewStoreUnavailable(err)
	}
	if len(raws) == 0 {
		return 0, 0, nil
	}

	retried, dropped := 0, 0
	for _, raw := range raws {
		var event model.UserEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			uc.logger.Warnw("dropping undecodable failed event", "error", err)
			if err := uc.store.RemoveFailed(ctx, raw); err != nil {
				uc.logger.Warnw("failed to drop undecodable event", "error", err)
			} else {
				dropped++
			}
			continue
		}

		if err := uc.store.PublishOne(ctx, &event); err != nil {
			uc.logger.Warnw("retry publish failed, event stays queued",
				"type", event.Type,
				"correlation_id", event.CorrelationID,
				"error", err)
			continue
		}

		if err := uc.store.RemoveFailed(ctx, raw); err != nil {
			uc.logger.Warnw("failed to dequeue retried event, duplicate delivery possible",
				"type", event.Type,
				"correlation_id", event.CorrelationID,
				"error", err)
		}
		retried++
	}

	remaining := len(raws) - retried - dropped
	uc.logger.Infow("failed event retry pass complete", "retried", retried, "remaining", remaining)
	return retried, remaining, nil
}

// HealthCheck probes the shared store. It says nothing about publish
// correctness, only liveness.
func (uc *EventPublisherUsecase) HealthCheck(ctx context.Context) error {
	if err := uc.store.Ping(ctx); err != nil {
		return pkgerrors.NewStoreUnavailable(err)
	}
	return nil
}
