package client

const (
	// ServerFullMessage is what the relay sends before closing a peer it
	// has no room for.
	ServerFullMessage = "[SERVERISFULL]"

	MaxBuffer          = 1024
	DefaultHistorySize = 30
)

// Incoming is one message received from the relay.
type Incoming struct {
	Text string
}

var (
	ErrUsage          = errorString("usage: <IP> <PORT> <NAME>")
	ErrInvalidAddress = errorString("invalid address")
	ErrInvalidPort    = errorString("invalid port")
	ErrNameEmpty      = errorString("name must not be empty")
	ErrNameTooLong    = errorString("name too long")
	ErrServerFull     = errorString("server is full")
)

type errorString string

func (e errorString) Error() string { return string(e) }
