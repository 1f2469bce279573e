// Package source feeds raw messages into the pipeline. The channel source
// decouples producers (HTTP ingest, mailbox pollers) from pipeline workers.
package source

import (
	"context"
	"sync"

	"intake/internal/intake/models"
)

// Channel is an in-process message source with a bounded buffer.
type Channel struct {
	ch        chan models.RawMessage
	closeOnce sync.Once
}

func NewChannel(buffer int) *Channel {
	return &Channel{ch: make(chan models.RawMessage, buffer)}
}

// Submit enqueues a message, blocking while the buffer is full.
func (c *Channel) Submit(ctx context.Context, msg models.RawMessage) error {
	select {
	case c.ch <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive returns the next message. ok is false once the source is closed and
// drained.
func (c *Channel) Receive(ctx context.Context) (models.RawMessage, bool, error) {
	select {
	case msg, open := <-c.ch:
		if !open {
			return models.RawMessage{}, false, nil
		}
		return msg, true, nil
	case <-ctx.Done():
		return models.RawMessage{}, false, ctx.Err()
	}
}

// Close stops the source. Pending messages are still delivered.
func (c *Channel) Close() {
	c.closeOnce.Do(func() { close(c.ch) })
}
