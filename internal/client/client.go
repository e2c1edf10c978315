// Package client speaks the relay's wire protocol from the user side: it
// sends the name handshake, delivers inbound messages over a channel and
// queues outbound ones to a writer goroutine.
package client

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
)

type Client struct {
	conn net.Conn
	name string

	in   chan Incoming
	out  chan []byte
	done chan struct{}

	closeOnce sync.Once
	mu        sync.Mutex
	err       error
}

// Dial connects to the relay and sends the name handshake.
func Dial(ctx context.Context, args Args) (*Client, error) {
	if len(args.Name) > MaxNameLen {
		return nil, ErrNameTooLong
	}
	if args.Name == "" {
		return nil, ErrNameEmpty
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", args.Address())
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", args.Address(), err)
	}
	if _, err := conn.Write([]byte(args.Name)); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("send name: %w", err)
	}

	c := &Client{
		conn: conn,
		name: args.Name,
		in:   make(chan Incoming, 32),
		out:  make(chan []byte, 32),
		done: make(chan struct{}),
	}
	StartOutboundWriter(conn, c.out, c.done, c.setErr)
	go c.receive()
	return c, nil
}

func (c *Client) Name() string { return c.name }

// Incoming delivers messages from the relay. It is closed when the
// connection ends; Err then tells why.
func (c *Client) Incoming() <-chan Incoming { return c.in }

// Err returns the reason the connection ended, or nil while it is open.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Send queues text for the relay and returns what was queued. Surrounding
// whitespace is trimmed, blank input is ignored and long input is cut to
// what the relay will forward.
func (c *Client) Send(text string) (string, error) {
	text = truncate(strings.TrimSpace(text), MaxBuffer-1)
	if text == "" {
		return "", nil
	}
	select {
	case <-c.done:
		return "", c.closedErr()
	default:
	}
	select {
	case c.out <- []byte(text):
		return text, nil
	case <-c.done:
		return "", c.closedErr()
	}
}

func (c *Client) closedErr() error {
	if err := c.Err(); err != nil {
		return err
	}
	return net.ErrClosed
}

func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.conn.Close()
	})
	return err
}

func (c *Client) receive() {
	defer close(c.in)
	buf := make([]byte, MaxBuffer-1)
	for {
		n, err := c.conn.Read(buf)
		if n > 0 {
			text := string(buf[:n])
			if text == ServerFullMessage {
				c.setErr(ErrServerFull)
				_ = c.Close()
				return
			}
			select {
			case c.in <- Incoming{Text: text}:
			case <-c.done:
				return
			}
		}
		if err != nil {
			c.setErr(err)
			_ = c.Close()
			return
		}
	}
}

// setErr records the first terminal error.
func (c *Client) setErr(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = err
	}
}
