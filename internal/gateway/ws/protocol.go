package ws

import (
	"encoding/json"
	"net/http"
)

// FrameType is the envelope discriminator.
type FrameType string

const (
	FrameTypeRequest  FrameType = "req"
	FrameTypeResponse FrameType = "res"
	FrameTypeEvent    FrameType = "event"
)

// Frame is the WebSocket protocol envelope.
//
//	req:   id, method, params
//	res:   id, ok, payload | (error, code)
//	event: event, session, payload
//
// Code on a failed response uses the HTTP status the same failure gets on
// the REST routes, so clients can tell bad input (400) from an expression
// that cannot be computed (422).
type Frame struct {
	Type    FrameType       `json:"type"`
	ID      string          `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	OK      *bool           `json:"ok,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
	Code    int             `json:"code,omitempty"`
	Event   string          `json:"event,omitempty"`
	Session string          `json:"session,omitempty"`
}

func MarshalFrame(f Frame) ([]byte, error) {
	return json.Marshal(f)
}

func UnmarshalFrame(data []byte) (Frame, error) {
	var f Frame
	err := json.Unmarshal(data, &f)
	return f, err
}

// NewRequestFrame encodes params for method. Nil params are omitted.
func NewRequestFrame(id, method string, params any) (Frame, error) {
	f := Frame{Type: FrameTypeRequest, ID: id, Method: method}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return Frame{}, err
		}
		f.Params = data
	}
	return f, nil
}

func NewEventFrame(event, session string, payload any) (Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Frame{}, err
	}
	return Frame{
		Type:    FrameTypeEvent,
		Event:   event,
		Session: session,
		Payload: data,
	}, nil
}

// NewResultFrame answers request id successfully. A nil payload is omitted.
func NewResultFrame(id string, payload any) (Frame, error) {
	ok := true
	f := Frame{Type: FrameTypeResponse, ID: id, OK: &ok}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Frame{}, err
		}
		f.Payload = data
	}
	return f, nil
}

// NewErrorFrame answers request id with a failure. A zero code becomes 500.
func NewErrorFrame(id string, code int, msg string) Frame {
	if code == 0 {
		code = http.StatusInternalServerError
	}
	ok := false
	return Frame{Type: FrameTypeResponse, ID: id, OK: &ok, Error: msg, Code: code}
}
