package main

import (
	"encoding/json"
	"fmt"
)

// ============================================================================
// Override Events
// ============================================================================
// Events represent user intent from external surfaces (tray menu, sunshift-ctl,
// scripts) delivered over IPC. The daemon's event pump consumes them and
// applies them to the OverrideController; there is no request/response beyond
// the IPC delivery acknowledgement.
// ============================================================================

// Event is the marker interface for override events.
type Event interface {
	eventMarker()
}

// ForceOn requests the filter pinned on until midnight or an Auto event.
type ForceOn struct {
	Origin string `json:"origin,omitempty"` // e.g. "ctl", "tray"
}

func (ForceOn) eventMarker() {}

// ForceOff requests the filter pinned off until midnight or an Auto event.
type ForceOff struct {
	Origin string `json:"origin,omitempty"`
}

func (ForceOff) eventMarker() {}

// AutoMode clears any override and returns to the solar schedule.
type AutoMode struct {
	Origin string `json:"origin,omitempty"`
}

func (AutoMode) eventMarker() {}

// Ping is a connectivity check; the daemon acknowledges and does nothing.
type Ping struct{}

func (Ping) eventMarker() {}

// EventEnvelope is the wire format: a type discriminator plus raw payload.
type EventEnvelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// UnmarshalEvent decodes a JSON envelope into a concrete Event.
func UnmarshalEvent(data []byte) (Event, error) {
	var env EventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal envelope: %w", err)
	}

	switch env.Type {
	case "force_on":
		var e ForceOn
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &e); err != nil {
				return nil, fmt.Errorf("unmarshal ForceOn: %w", err)
			}
		}
		return e, nil

	case "force_off":
		var e ForceOff
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &e); err != nil {
				return nil, fmt.Errorf("unmarshal ForceOff: %w", err)
			}
		}
		return e, nil

	case "auto":
		var e AutoMode
		if len(env.Data) > 0 {
			if err := json.Unmarshal(env.Data, &e); err != nil {
				return nil, fmt.Errorf("unmarshal AutoMode: %w", err)
			}
		}
		return e, nil

	case "ping":
		return Ping{}, nil

	default:
		return nil, fmt.Errorf("unknown event type: %q", env.Type)
	}
}

// MarshalEvent encodes an Event into its JSON envelope.
func MarshalEvent(e Event) ([]byte, error) {
	var env EventEnvelope

	switch e := e.(type) {
	case ForceOn:
		env.Type = "force_on"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal ForceOn: %w", err)
		}
		env.Data = data

	case ForceOff:
		env.Type = "force_off"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal ForceOff: %w", err)
		}
		env.Data = data

	case AutoMode:
		env.Type = "auto"
		data, err := json.Marshal(e)
		if err != nil {
			return nil, fmt.Errorf("marshal AutoMode: %w", err)
		}
		env.Data = data

	case Ping:
		env.Type = "ping"

	default:
		return nil, fmt.Errorf("unsupported event type: %T", e)
	}

	return json.Marshal(env)
}
