package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// User event type tags. Channel and stream names derive from these.
const (
	EventUserCreated        = "USER_CREATED"
	EventUserUpdated        = "USER_UPDATED"
	EventUserDeleted        = "USER_DELETED"
	EventUserLogin          = "USER_LOGIN"
	EventUserLogout         = "USER_LOGOUT"
	EventPreferencesUpdated = "PREFERENCES_UPDATED"
	EventPermissionsChanged = "PERMISSIONS_CHANGED"
	EventSessionExpired     = "SESSION_EXPIRED"
)

// EventTypes lists every known event type tag, in declaration order.
var EventTypes = []string{
	EventUserCreated,
	EventUserUpdated,
	EventUserDeleted,
	EventUserLogin,
	EventUserLogout,
	EventPreferencesUpdated,
	EventPermissionsChanged,
	EventSessionExpired,
}

// UserEvent is the envelope handed to the publisher. It is copied into the
// pub/sub broadcast, the durable per-type stream and the recent-events list,
// and is never mutated after construction.
type UserEvent struct {
	Type          string          `json:"type"`
	SubjectID     string          `json:"subjectId"`
	Timestamp     time.Time       `json:"timestamp"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	CorrelationID string          `json:"correlationId"`
}

// NewUserEvent builds an envelope for the given type and subject, encoding
// the payload and stamping the timestamp and a fresh correlation ID.
func NewUserEvent(eventType, subjectID string, payload interface{}) (*UserEvent, error) {
	var raw json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		raw = encoded
	}

	return &UserEvent{
		Type:          eventType,
		SubjectID:     subjectID,
		Timestamp:     time.Now().UTC(),
		Payload:       raw,
		CorrelationID: uuid.NewString(),
	}, nil
}

// Channel returns the pub/sub channel for the event, the lower-cased type tag.
func (e *UserEvent) Channel() string {
	return strings.ToLower(e.Type)
}

// StreamKey returns the durable log key for the event's channel.
func (e *UserEvent) StreamKey() string {
	return "stream:" + e.Channel()
}

// PublishingStats aggregates the shared publishing counters and the most
// recent events, newest first.
type PublishingStats struct {
	TotalEvents  int64            `json:"totalEvents"`
	EventsByType map[string]int64 `json:"eventsByType"`
	RecentEvents []UserEvent      `json:"recentEvents"`
}
