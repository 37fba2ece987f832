// Package sink holds push-sink implementations handed to the registry on
// subscribe. The router only knows the PushSink contract; what sits behind
// it (a websocket writer, a test collector) is the subscriber's business.
package sink

import (
	"context"
	"fmt"
	"sync"

	"collabrick/contract"
)

var _ contract.PushSink = (*ClientSink)(nil)

// ClientSink buffers payloads for one connected client. Push is a cheap
// enqueue so the fanout round is never held hostage by a slow consumer; a
// full buffer means the client cannot keep up and the payload is refused,
// leaving the stores as the catch-up path.
type ClientSink struct {
	id      string
	mu      sync.Mutex
	closed  bool
	payload chan contract.Payload
}

func NewClientSink(id string, bufferSize int) *ClientSink {
	return &ClientSink{
		id:      id,
		payload: make(chan contract.Payload, bufferSize),
	}
}

func (c *ClientSink) ID() string {
	return c.id
}

func (c *ClientSink) Push(ctx context.Context, payload contract.Payload) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("sink %s is closed", c.id)
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case c.payload <- payload:
		return nil
	default:
		return fmt.Errorf("sink %s buffer full", c.id)
	}
}

// Payloads exposes the delivery stream for the connection writer to drain.
func (c *ClientSink) Payloads() <-chan contract.Payload {
	return c.payload
}

// Close stops accepting pushes and lets the writer drain what is already
// buffered before the channel closes.
func (c *ClientSink) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.payload)
}
