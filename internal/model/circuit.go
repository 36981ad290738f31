package model

import (
	"encoding/json"
	"time"
)

// CircuitState is the lifecycle state of a single named circuit.
type CircuitState int

const (
	CircuitClosed CircuitState = iota
	CircuitOpen
	CircuitHalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case CircuitOpen:
		return "OPEN"
	case CircuitHalfOpen:
		return "HALF_OPEN"
	default:
		return "CLOSED"
	}
}

// MarshalJSON encodes the state under its name so admin responses stay readable.
func (s CircuitState) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// CircuitStats is a point-in-time snapshot of one circuit record.
type CircuitStats struct {
	State           CircuitState `json:"state"`
	Failures        int          `json:"failures"`
	Successes       int          `json:"successes"`
	LastFailureTime *time.Time   `json:"lastFailureTime,omitempty"`
	NextAttempt     *time.Time   `json:"nextAttempt,omitempty"`
}

// BreakerHealth summarizes every tracked circuit for the health endpoint.
// Healthy is false as soon as one circuit is open.
type BreakerHealth struct {
	Healthy       bool     `json:"healthy"`
	TotalCircuits int      `json:"totalCircuits"`
	OpenCircuits  []string `json:"openCircuits"`
}
