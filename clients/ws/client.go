// Package ws is a Go client for the graphcalc gateway WebSocket API.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/coder/websocket"

	wsprotocol "github.com/dohr-michael/graphcalc/internal/gateway/ws"
)

// ErrClosed is returned by calls on a closed or broken connection.
var ErrClosed = errors.New("connection closed")

// RemoteError is a request the gateway answered with ok=false. Code is
// the HTTP-style status: 400 for bad input, 422 for expressions that
// cannot be computed.
type RemoteError struct {
	Method  string
	Code    int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Method, e.Message, e.Code)
}

// Client multiplexes requests over one connection and surfaces event
// frames on Events.
type Client struct {
	conn   *websocket.Conn
	reqSeq atomic.Uint64
	cancel context.CancelFunc

	mu      sync.Mutex
	pending map[string]chan wsprotocol.Frame
	err     error

	events chan wsprotocol.Frame
	done   chan struct{}
}

// Dial connects to a gateway WebSocket endpoint, e.g.
// ws://127.0.0.1:18421/api/ws.
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("ws dial: %w", err)
	}

	readCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		conn:    conn,
		cancel:  cancel,
		pending: make(map[string]chan wsprotocol.Frame),
		events:  make(chan wsprotocol.Frame, 64),
		done:    make(chan struct{}),
	}
	go c.readLoop(readCtx)
	return c, nil
}

// Events delivers event frames. Frames are dropped when nobody reads.
// The channel is closed when the connection ends.
func (c *Client) Events() <-chan wsprotocol.Frame { return c.events }

// Call sends a request and waits for its response. A non-nil out receives
// the decoded payload.
func (c *Client) Call(ctx context.Context, method string, params, out any) error {
	id := fmt.Sprintf("req-%d", c.reqSeq.Add(1))
	f, err := wsprotocol.NewRequestFrame(id, method, params)
	if err != nil {
		return fmt.Errorf("encode params: %w", err)
	}
	data, err := wsprotocol.MarshalFrame(f)
	if err != nil {
		return err
	}

	ch := make(chan wsprotocol.Frame, 1)
	c.mu.Lock()
	if c.err != nil {
		c.mu.Unlock()
		return c.err
	}
	c.pending[id] = ch
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
	}()

	if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
		return fmt.Errorf("ws write: %w", err)
	}

	select {
	case f := <-ch:
		if f.OK == nil || !*f.OK {
			return &RemoteError{Method: method, Code: f.Code, Message: f.Error}
		}
		if out != nil && len(f.Payload) > 0 {
			return json.Unmarshal(f.Payload, out)
		}
		return nil
	case <-c.done:
		return c.closeErr()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) readLoop(ctx context.Context) {
	defer close(c.events)
	defer close(c.done)

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			c.mu.Lock()
			c.err = fmt.Errorf("%w: %v", ErrClosed, err)
			c.mu.Unlock()
			return
		}
		f, err := wsprotocol.UnmarshalFrame(data)
		if err != nil {
			continue
		}

		switch f.Type {
		case wsprotocol.FrameTypeResponse:
			c.mu.Lock()
			ch, ok := c.pending[f.ID]
			c.mu.Unlock()
			if ok {
				ch <- f
			}
		case wsprotocol.FrameTypeEvent:
			select {
			case c.events <- f:
			default:
			}
		}
	}
}

func (c *Client) closeErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	return ErrClosed
}

// Close ends the connection and waits for the reader to stop.
func (c *Client) Close() error {
	err := c.conn.Close(websocket.StatusNormalClosure, "bye")
	c.cancel()
	<-c.done
	return err
}
