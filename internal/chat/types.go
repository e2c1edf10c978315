package chat

import (
	"errors"
	"fmt"
)

// ServerFullMessage is sent verbatim to a peer refused for capacity reasons.
const ServerFullMessage = "[SERVERISFULL]"

// Peer is an accepted connection registered in the connection table.
type Peer struct {
	FD   int
	ID   string
	Name string
	Addr string
}

func (p *Peer) logAttrs() []any {
	if p == nil {
		return nil
	}
	return []any{"peer_id", p.ID, "fd", p.FD, "name", p.Name, "addr", p.Addr}
}

// Kind classifies the conditions that terminate the server.
type Kind int

const (
	KindSocketCreate Kind = iota + 1
	KindBind
	KindListen
	KindAccept
	KindWaitFailure
	KindWaitTimeout
	KindBadReadinessEvent
)

func (k Kind) String() string {
	switch k {
	case KindSocketCreate:
		return "socket creation failed"
	case KindBind:
		return "binding socket failed"
	case KindListen:
		return "listening failed"
	case KindAccept:
		return "accept failed"
	case KindWaitFailure:
		return "poll failed"
	case KindWaitTimeout:
		return "poll timed out"
	case KindBadReadinessEvent:
		return "unexpected revents"
	default:
		return fmt.Sprintf("unknown kind (%d)", int(k))
	}
}

// ExitCode is the process status reported for a terminal condition of this kind.
func (k Kind) ExitCode() int {
	if k < KindSocketCreate || k > KindBadReadinessEvent {
		return 1
	}
	return int(k)
}

// Error is a fatal server condition. Err holds the underlying OS error, if any.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err carries a fatal condition of the given kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

var (
	ErrTableFull = errorString("table_full")

	errHandshakeTimeout = errorString("handshake_timeout")
	errPeerClosed       = errorString("peer_closed")
)

type errorString string

func (e errorString) Error() string { return string(e) }
