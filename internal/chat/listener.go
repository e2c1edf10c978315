package chat

import (
	"bytes"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"
)

// Listener is the passive, non-blocking TCP endpoint of the relay.
type Listener struct {
	fd   int
	port int
}

// Listen creates the listening socket on all interfaces. A partially set up
// socket is closed before returning an error.
func Listen(cfg Config) (*Listener, error) {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return nil, &Error{Kind: KindSocketCreate, Err: os.NewSyscallError("socket", err)}
	}
	unix.CloseOnExec(fd)

	fail := func(kind Kind, call string, err error) (*Listener, error) {
		_ = unix.Close(fd)
		return nil, &Error{Kind: kind, Err: os.NewSyscallError(call, err)}
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		return fail(KindSocketCreate, "setsockopt", err)
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return fail(KindSocketCreate, "fcntl", err)
	}
	// Wildcard address 0.0.0.0
	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: cfg.Port}); err != nil {
		return fail(KindBind, "bind", err)
	}
	if err := unix.Listen(fd, cfg.Backlog); err != nil {
		return fail(KindListen, "listen", err)
	}

	sa, err := unix.Getsockname(fd)
	if err != nil {
		return fail(KindBind, "getsockname", err)
	}
	port := cfg.Port
	if in4, ok := sa.(*unix.SockaddrInet4); ok {
		port = in4.Port
	}
	return &Listener{fd: fd, port: port}, nil
}

func (l *Listener) FD() int   { return l.fd }
func (l *Listener) Port() int { return l.port }

func (l *Listener) Close() error {
	return unix.Close(l.fd)
}

// readName performs the one-shot name handshake on a non-blocking socket,
// waiting at most timeout for the first bytes to arrive.
func readName(fd, maxLen int, timeout time.Duration) (string, error) {
	buf := make([]byte, maxLen)
	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	deadline := time.Now().Add(timeout)
	for {
		n, err := unix.Read(fd, buf)
		if err == nil {
			if n == 0 {
				return "", errPeerClosed
			}
			return cleanName(buf[:n]), nil
		}
		if err != unix.EAGAIN && err != unix.EINTR {
			return "", os.NewSyscallError("read", err)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return "", errHandshakeTimeout
		}
		if _, err := unix.Poll(pfd, pollMillis(remaining)); err != nil && err != unix.EINTR {
			return "", os.NewSyscallError("poll", err)
		}
	}
}

func cleanName(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return strings.TrimSpace(string(b))
}

// pollMillis converts d to a poll(2) timeout, rounding up so a positive
// duration never becomes a zero (non-blocking) wait.
func pollMillis(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	ms := (d + time.Millisecond - 1) / time.Millisecond
	if ms > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(ms)
}

func sockaddrString(sa unix.Sockaddr) string {
	switch v := sa.(type) {
	case *unix.SockaddrInet4:
		return fmt.Sprintf("%d.%d.%d.%d:%d", v.Addr[0], v.Addr[1], v.Addr[2], v.Addr[3], v.Port)
	case *unix.SockaddrInet6:
		return fmt.Sprintf("[%x]:%d", v.Addr[:], v.Port)
	default:
		return "unknown"
	}
}
