package chat

import (
	"fmt"
	"time"
)

// Config holds the tunables of the relay. The zero value is not usable; start
// from DefaultConfig.
type Config struct {
	// Port to listen on, on all interfaces. 0 picks an ephemeral port.
	Port int
	// MaxClients is the number of peers served at once.
	MaxClients int
	// Backlog is passed to listen(2).
	Backlog int
	// MaxBuffer bounds a single relayed message, terminator included.
	MaxBuffer int
	// MaxNameLen bounds the name read during the handshake.
	MaxNameLen int
	// PollTimeout bounds a single readiness wait.
	PollTimeout time.Duration
	// HandshakeTimeout bounds the wait for a new peer's name. The loop
	// serves nobody else during that wait, so a silent connector delays
	// every broadcast by up to this long.
	HandshakeTimeout time.Duration
	// ExitOnIdle terminates the server when a readiness wait times out with
	// nothing ready. When false the loop keeps waiting.
	ExitOnIdle bool
	// CloseOnBadEvent closes a peer whose readiness carries anything other than
	// "readable". When false such an event terminates the server.
	CloseOnBadEvent bool
}

func DefaultConfig() Config {
	return Config{
		Port:             8080,
		MaxClients:       3,
		Backlog:          10,
		MaxBuffer:        1024,
		MaxNameLen:       30,
		PollTimeout:      6 * time.Minute,
		HandshakeTimeout: 5 * time.Second,
		ExitOnIdle:       true,
		CloseOnBadEvent:  true,
	}
}

func (c Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("chat.Config: invalid port (%d)", c.Port)
	}
	if c.MaxClients < 1 {
		return fmt.Errorf("chat.Config: max clients must be positive (%d)", c.MaxClients)
	}
	if c.Backlog < 1 {
		return fmt.Errorf("chat.Config: backlog must be positive (%d)", c.Backlog)
	}
	if c.MaxBuffer < 2 {
		return fmt.Errorf("chat.Config: max buffer too small (%d)", c.MaxBuffer)
	}
	if c.MaxNameLen < 1 {
		return fmt.Errorf("chat.Config: max name length must be positive (%d)", c.MaxNameLen)
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("chat.Config: invalid poll timeout (%v)", c.PollTimeout)
	}
	if c.HandshakeTimeout <= 0 {
		return fmt.Errorf("chat.Config: invalid handshake timeout (%v)", c.HandshakeTimeout)
	}
	return nil
}
