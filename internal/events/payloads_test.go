package events

import (
	"strings"
	"testing"
)

func TestTypedEvent_HistoryAppended(t *testing.T) {
	evt := NewTypedEvent(SourceSession, HistoryAppendedPayload{Expression: "1+2", Result: "3", Size: 1})

	if evt.Type != EventHistoryAppended {
		t.Fatalf("expected type %q, got %q", EventHistoryAppended, evt.Type)
	}
	got, ok := ExtractPayload[HistoryAppendedPayload](evt)
	if !ok {
		t.Fatal("ExtractPayload returned false")
	}
	if got.Expression != "1+2" || got.Result != "3" || got.Size != 1 {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestTypedEvent_ViewChanged(t *testing.T) {
	evt := NewTypedEventWithSession(SourceSession, ViewChangedPayload{
		Change: ViewZoomIn, XMin: -8, XMax: 8, YMin: -8, YMax: 8, FontSize: 18,
	}, "default")

	if evt.Session != "default" {
		t.Fatalf("expected session %q, got %q", "default", evt.Session)
	}
	got, ok := ExtractPayload[ViewChangedPayload](evt)
	if !ok {
		t.Fatal("ExtractPayload returned false")
	}
	if got.Change != ViewZoomIn || got.XMin != -8 {
		t.Fatalf("unexpected payload %+v", got)
	}
}

func TestExtractPayload_WrongType(t *testing.T) {
	evt := NewTypedEvent(SourceSession, UserSignedInPayload{User: "ada"})
	if _, ok := ExtractPayload[UserSignedOutPayload](evt); ok {
		t.Fatal("ExtractPayload matched a payload of another event type")
	}
}

func TestEventIDFormat(t *testing.T) {
	evt := NewEvent(EventHistoryCleared, SourceGateway, nil)
	if !strings.HasPrefix(evt.ID, "evt_") || len(evt.ID) != len("evt_")+8 {
		t.Fatalf("unexpected id %q", evt.ID)
	}
	if evt.Timestamp.IsZero() {
		t.Fatal("timestamp not set")
	}
}
