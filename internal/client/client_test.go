package client

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"testing"
	"time"
)

// fakeRelay accepts a single connection and hands it to the test.
func fakeRelay(t *testing.T) (Args, <-chan net.Conn) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	conns := make(chan net.Conn, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			close(conns)
			return
		}
		conns <- conn
	}()

	addr := ln.Addr().(*net.TCPAddr)
	return Args{IP: "127.0.0.1", Port: addr.Port, Name: "alice"}, conns
}

func acceptConn(t *testing.T, conns <-chan net.Conn) net.Conn {
	t.Helper()
	select {
	case conn, ok := <-conns:
		if !ok {
			t.Fatal("relay accept failed")
		}
		t.Cleanup(func() { _ = conn.Close() })
		return conn
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for client connection")
	}
	return nil
}

func readExactly(t *testing.T, conn net.Conn, n int) string {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	buf := make([]byte, n)
	if _, err := io.ReadFull(conn, buf); err != nil {
		t.Fatalf("read %d bytes: %v", n, err)
	}
	return string(buf)
}

func dial(t *testing.T, args Args) *Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, err := Dial(ctx, args)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func waitClosed(t *testing.T, c *Client) []Incoming {
	t.Helper()
	var got []Incoming
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg, ok := <-c.Incoming():
			if !ok {
				return got
			}
			got = append(got, msg)
		case <-deadline:
			t.Fatal("timeout waiting for incoming stream to close")
		}
	}
}

func TestDial_SendsNameHandshake(t *testing.T) {
	args, conns := fakeRelay(t)
	dial(t, args)
	relay := acceptConn(t, conns)

	if got := readExactly(t, relay, len("alice")); got != "alice" {
		t.Fatalf("handshake %q, want %q", got, "alice")
	}
}

func TestDial_RejectsLongName(t *testing.T) {
	args := Args{IP: "127.0.0.1", Port: 1, Name: strings.Repeat("n", MaxNameLen+1)}
	if _, err := Dial(context.Background(), args); !errors.Is(err, ErrNameTooLong) {
		t.Fatalf("expected ErrNameTooLong, got %v", err)
	}
}

func TestClient_SendAndReceive(t *testing.T) {
	args, conns := fakeRelay(t)
	c := dial(t, args)
	relay := acceptConn(t, conns)
	readExactly(t, relay, len(args.Name))

	sent, err := c.Send("  hi there \n")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if sent != "hi there" {
		t.Fatalf("queued %q, want %q", sent, "hi there")
	}
	if got := readExactly(t, relay, len(sent)); got != sent {
		t.Fatalf("relay received %q, want %q", got, sent)
	}

	if _, err := relay.Write([]byte("bob: hello")); err != nil {
		t.Fatalf("relay write: %v", err)
	}
	select {
	case msg := <-c.Incoming():
		if msg.Text != "bob: hello" {
			t.Fatalf("incoming %q", msg.Text)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for incoming message")
	}

	_ = relay.Close()
	waitClosed(t, c)
	if !errors.Is(c.Err(), io.EOF) {
		t.Fatalf("expected io.EOF, got %v", c.Err())
	}
}

func TestClient_SendIgnoresBlankInput(t *testing.T) {
	args, conns := fakeRelay(t)
	c := dial(t, args)
	acceptConn(t, conns)

	sent, err := c.Send("   \t")
	if err != nil || sent != "" {
		t.Fatalf("expected blank input to be ignored, got %q, %v", sent, err)
	}
}

func TestClient_ServerFull(t *testing.T) {
	args, conns := fakeRelay(t)
	c := dial(t, args)
	relay := acceptConn(t, conns)

	if _, err := relay.Write([]byte(ServerFullMessage)); err != nil {
		t.Fatalf("relay write: %v", err)
	}
	_ = relay.Close()

	if got := waitClosed(t, c); len(got) != 0 {
		t.Fatalf("expected no messages, got %v", got)
	}
	if !errors.Is(c.Err(), ErrServerFull) {
		t.Fatalf("expected ErrServerFull, got %v", c.Err())
	}
	if _, err := c.Send("anyone?"); !errors.Is(err, ErrServerFull) {
		t.Fatalf("expected send to report ErrServerFull, got %v", err)
	}
}
