package client

import (
	"context"

	"github.com/codewandler/gridwire-go/core/protocol"
)

// Listen sends the registration request req and routes every event carrying
// the registration's correlation id to handler. The returned id is that
// correlation id; pass it to Unlisten.
//
// The handler is registered before the request is written, so events that
// overtake the registration response are not lost.
func (c *Client) Listen(ctx context.Context, req *protocol.ClientMessage, handler EventHandler) (int32, error) {
	var regID int32
	_, err := c.invoke(ctx, req, func(id int32) {
		c.mu.Lock()
		if regID != 0 {
			delete(c.listeners, regID)
		}
		regID = id
		c.listeners[id] = handler
		c.mu.Unlock()
	})
	if err != nil {
		c.mu.Lock()
		delete(c.listeners, regID)
		c.mu.Unlock()
		return 0, err
	}
	return regID, nil
}

// Unlisten removes the local handler of a registration. Telling the member
// to stop sending is up to the caller.
func (c *Client) Unlisten(id int32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.listeners[id]; !ok {
		return ErrUnknownListener
	}
	delete(c.listeners, id)
	return nil
}

// Listeners returns the number of active registrations.
func (c *Client) Listeners() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.listeners)
}
