// Package client sends requests to a texcalc server.
//
// Every request uses its own connection: dial, write one request padded to a
// full block, read one response frame, close.
package client

import (
	"context"
	"net"

	"github.com/pkg/errors"

	"texcalc/message"
	"texcalc/protocol"
)

// Client talks to the server at Addr.
type Client struct {
	Addr   string
	Framer protocol.Framer

	// Exact sends requests unpadded, for servers configured with exact framing.
	Exact bool

	dialer net.Dialer
}

// New returns a client for addr using the default framing.
func New(addr string) *Client {
	return &Client{Addr: addr, Framer: protocol.Default()}
}

// Send performs one exchange and returns the response text.
func (c *Client) Send(ctx context.Context, text string) (string, error) {
	var (
		frame []byte
		err   error
	)
	if c.Exact {
		frame, err = c.Framer.Encode([]byte(text))
	} else {
		frame, err = c.Framer.EncodeBlock([]byte(text))
	}
	if err != nil {
		return "", err
	}

	conn, err := c.dialer.DialContext(ctx, "tcp", c.Addr)
	if err != nil {
		return "", errors.Wrap(err, "dial")
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	if _, err := conn.Write(frame); err != nil {
		return "", errors.Wrap(err, "send")
	}
	resp, err := c.Framer.ReadFrame(conn)
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

// Call invokes the named procedure.
func (c *Client) Call(ctx context.Context, name string) (string, error) {
	return c.Send(ctx, message.Call(name))
}

// Eval evaluates an arithmetic expression on the server.
func (c *Client) Eval(ctx context.Context, expr string) (string, error) {
	return c.Send(ctx, expr)
}
