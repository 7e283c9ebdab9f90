package events

import (
	"encoding/json"
	"time"
)

// EventPayload is the interface all typed payloads implement.
type EventPayload interface {
	EventType() EventType
}

// =============================================================================
// HISTORY EVENTS
// =============================================================================

type HistoryAppendedPayload struct {
	Expression string `json:"expression"`
	Result     string `json:"result"`
	Size       int    `json:"size"`
}

func (HistoryAppendedPayload) EventType() EventType { return EventHistoryAppended }

type HistoryClearedPayload struct {
	Dropped int `json:"dropped"`
}

func (HistoryClearedPayload) EventType() EventType { return EventHistoryCleared }

// =============================================================================
// USER EVENTS
// =============================================================================

type UserSignedInPayload struct {
	User      string `json:"user"`
	Variables int    `json:"variables"`
}

func (UserSignedInPayload) EventType() EventType { return EventUserSignedIn }

type UserSignedOutPayload struct {
	User string `json:"user"`
}

func (UserSignedOutPayload) EventType() EventType { return EventUserSignedOut }

// =============================================================================
// VARIABLE EVENTS
// =============================================================================

type VariableSetPayload struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	User  string  `json:"user,omitempty"`
}

func (VariableSetPayload) EventType() EventType { return EventVariableSet }

type VariableUnsetPayload struct {
	Name string `json:"name"`
	User string `json:"user,omitempty"`
}

func (VariableUnsetPayload) EventType() EventType { return EventVariableUnset }

// =============================================================================
// VIEW EVENTS
// =============================================================================

// ViewChange names what changed in a view.changed event.
type ViewChange string

const (
	ViewZoomIn   ViewChange = "zoom_in"
	ViewZoomOut  ViewChange = "zoom_out"
	ViewRange    ViewChange = "range"
	ViewTheme    ViewChange = "theme"
	ViewFontSize ViewChange = "font_size"
)

type ViewChangedPayload struct {
	Change   ViewChange `json:"change"`
	XMin     float64    `json:"x_min"`
	XMax     float64    `json:"x_max"`
	YMin     float64    `json:"y_min"`
	YMax     float64    `json:"y_max"`
	DarkMode bool       `json:"dark_mode"`
	FontSize int        `json:"font_size"`
}

func (ViewChangedPayload) EventType() EventType { return EventViewChanged }

// =============================================================================
// CONSTRUCTORS
// =============================================================================

func NewTypedEvent(source EventSource, payload EventPayload) Event {
	return Event{
		ID:        generateEventID(),
		Type:      payload.EventType(),
		Timestamp: time.Now(),
		Source:    source,
		Payload:   toMap(payload),
	}
}

func NewTypedEventWithSession(source EventSource, payload EventPayload, session string) Event {
	e := NewTypedEvent(source, payload)
	e.Session = session
	return e
}

func toMap(v any) map[string]any {
	var result map[string]any
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return nil
	}
	return result
}

// =============================================================================
// TYPED PAYLOAD EXTRACTORS
// =============================================================================

func ExtractPayload[T EventPayload](e Event) (T, bool) {
	var result T
	if e.Type != result.EventType() {
		return result, false
	}
	data, err := json.Marshal(e.Payload)
	if err != nil {
		return result, false
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, false
	}
	return result, true
}
