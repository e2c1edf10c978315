package chat

import (
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// writeBestEffort pushes p to a peer socket. On a non-blocking socket a full
// send buffer aborts the write and the rest of p is dropped.
func writeBestEffort(fd int, p []byte) error {
	for len(p) > 0 {
		n, err := unix.Write(fd, p)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return os.NewSyscallError("write", err)
		}
		p = p[n:]
	}
	return nil
}

// rejectLinger bounds how long a rejected connection is drained before close.
const rejectLinger = 100 * time.Millisecond

// lingerClose half-closes fd and discards what the peer already sent, so the
// final close doesn't answer unread bytes with a reset. It gives up after d.
func lingerClose(fd int, d time.Duration) {
	defer unix.Close(fd)
	if err := unix.Shutdown(fd, unix.SHUT_WR); err != nil {
		return
	}
	if err := unix.SetNonblock(fd, true); err != nil {
		return
	}

	buf := make([]byte, 256)
	pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	deadline := time.Now().Add(d)
	for {
		n, err := unix.Read(fd, buf)
		if err == nil && n == 0 {
			return
		}
		if err != nil && err != unix.EAGAIN && err != unix.EINTR {
			return
		}
		if err == nil {
			continue
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return
		}
		if _, err := unix.Poll(pfd, pollMillis(remaining)); err != nil && err != unix.EINTR {
			return
		}
	}
}
