package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dohr-michael/graphcalc/internal/calculator"
	"github.com/dohr-michael/graphcalc/internal/events"
	"github.com/dohr-michael/graphcalc/internal/gateway"
	"github.com/dohr-michael/graphcalc/internal/session"
	"github.com/dohr-michael/graphcalc/internal/storage/dirstore"
)

func dialTestGateway(t *testing.T) (*Client, context.Context) {
	t.Helper()
	bus := events.NewBus(64)
	t.Cleanup(bus.Close)

	store := session.New(dirstore.New(t.TempDir()), session.Options{Notifier: bus})
	if err := store.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	srv := gateway.NewServer(bus, calculator.New(store, calculator.Options{}), "localhost", 0)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	c, err := Dial(ctx, "ws"+strings.TrimPrefix(ts.URL, "http")+"/api/ws")
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c, ctx
}

func TestCall(t *testing.T) {
	c, ctx := dialTestGateway(t)

	var res calculator.Evaluation
	if err := c.Call(ctx, gateway.MethodEval, map[string]string{"expression": "2*21"}, &res); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if res.Result != "42" {
		t.Errorf("result = %q", res.Result)
	}

	var d gateway.Derivation
	if err := c.Call(ctx, gateway.MethodDerive, map[string]string{"expression": "sin(x)"}, &d); err != nil {
		t.Fatalf("Call: %v", err)
	}
	if d.Derivative != "cos(x)" {
		t.Errorf("derivative = %q", d.Derivative)
	}
}

func TestCallRemoteError(t *testing.T) {
	c, ctx := dialTestGateway(t)

	err := c.Call(ctx, gateway.MethodEval, map[string]string{"expression": "1/0"}, nil)
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("Call error = %v, want RemoteError", err)
	}
	if remote.Method != gateway.MethodEval || remote.Code != 422 || !strings.Contains(remote.Message, "division by zero") {
		t.Errorf("remote = %+v", remote)
	}
}

func TestEvents(t *testing.T) {
	c, ctx := dialTestGateway(t)

	if err := c.Call(ctx, gateway.MethodSetVar, map[string]any{"name": "k", "value": 2}, nil); err != nil {
		t.Fatalf("Call: %v", err)
	}
	select {
	case f := <-c.Events():
		if f.Event != string(events.EventVariableSet) {
			t.Errorf("event = %q", f.Event)
		}
	case <-ctx.Done():
		t.Fatal("no event received")
	}
}

func TestCallAfterClose(t *testing.T) {
	c, ctx := dialTestGateway(t)
	c.Close()

	if err := c.Call(ctx, gateway.MethodSession, nil, nil); !errors.Is(err, ErrClosed) {
		t.Errorf("Call after Close = %v, want ErrClosed", err)
	}
}
