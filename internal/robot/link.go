// Package robot owns the hardware side of GENESIS: the Link abstraction over
// the robot's control surface, the connection lifecycle, and the sensor
// poller that bridges blocking hardware reads into the orchestration runtime.
package robot

import (
	"context"
	"strings"
	"time"
)

// Event keys published by the robot's memory store.
const (
	EventWordRecognized = "WordRecognized"
	EventTextDone       = "ALTextToSpeech/TextDone"
	EventTouchChanged   = "TouchChanged"
	EventFrontTactil    = "FrontTactilTouched"
	EventMiddleTactil   = "MiddleTactilTouched"
	EventRearTactil     = "RearTactilTouched"
)

// MonitoredEvents is the fixed set of keys the poller samples.
var MonitoredEvents = []string{
	EventWordRecognized,
	EventTextDone,
	EventTouchChanged,
	EventFrontTactil,
	EventMiddleTactil,
	EventRearTactil,
}

// SensorEvent is one meaningful sample handed from the poller to the
// orchestrator. Value is opaque: a scalar, a small list, or a
// [text, confidence] pair for word recognition. Events are consumed exactly
// once and never persisted.
type SensorEvent struct {
	Name      string
	Value     any
	Timestamp time.Time
}

// Link is the robot's control surface. All methods are blocking and must be
// called off the orchestration path; Client and Poller own that discipline.
type Link interface {
	// Connect establishes the control session. ctx bounds the handshake.
	Connect(ctx context.Context) error

	// Close tears down the session.
	Close() error

	// Connected reports whether the session is currently usable.
	Connected() bool

	// Say speaks text through the robot's TTS, returning when speech ends.
	Say(text string) error

	// GoToPosture moves the robot to a named posture at the given speed.
	GoToPosture(posture string, speed float64) error

	// EventValue samples the current value of an event key from the robot's
	// memory store. A nil value means no data for the key.
	EventValue(key string) (any, error)

	// ClearEvent removes an event key's value from the robot's memory
	// store. The store retains the last value of one-shot events like
	// word recognition; clearing after delivery lets an identical repeat
	// register as a new event.
	ClearEvent(key string) error
}

// Meaningful applies the per-key noise filter deciding whether a sampled
// value is eligible for delivery.
func Meaningful(eventName string, value any) bool {
	if value == nil {
		return false
	}

	switch {
	case eventName == EventWordRecognized:
		// Value is typically [text, confidence].
		text, ok := UtteranceText(value)
		return ok && text != ""

	case strings.Contains(eventName, "Touched") || eventName == EventTouchChanged:
		// Touch events: 1 = pressed, 0 = released.
		if isOne(value) {
			return true
		}
		if list, ok := value.([]any); ok {
			for _, v := range list {
				if isOne(v) {
					return true
				}
			}
		}
		return false

	case strings.Contains(eventName, "TextDone"):
		return isOne(value)
	}

	return truthy(value)
}

// UtteranceText extracts recognized text from a WordRecognized value: the
// first element of a pair/list, or the raw value when it is already text.
// The second return is false when no text shape is present.
func UtteranceText(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return strings.TrimSpace(v), true
	case []any:
		if len(v) == 0 {
			return "", false
		}
		if s, ok := v[0].(string); ok {
			return strings.TrimSpace(s), true
		}
		return "", false
	case []string:
		if len(v) == 0 {
			return "", false
		}
		return strings.TrimSpace(v[0]), true
	}
	return "", false
}

func isOne(v any) bool {
	switch n := v.(type) {
	case int:
		return n == 1
	case int64:
		return n == 1
	case float64:
		return n == 1
	case bool:
		return n
	}
	return false
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return strings.TrimSpace(t) != ""
	case int:
		return t != 0
	case int64:
		return t != 0
	case float64:
		return t != 0
	case []any:
		return len(t) > 0
	}
	return true
}
