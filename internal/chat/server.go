package chat

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
)

// Server relays every message received from one peer to all other peers. All
// socket work happens on the goroutine calling Run.
type Server struct {
	cfg    Config
	logger *slog.Logger

	ln    *Listener
	table *Table

	// buf accumulates one logical message; spill absorbs the overflow.
	buf   []byte
	spill []byte

	pollFds []unix.PollFd

	// Self-pipe used to interrupt the readiness wait on cancellation.
	wakeMu     sync.Mutex
	wakeR      int
	wakeW      int
	wakeClosed bool

	peers atomic.Int64
}

// NewServer validates cfg and opens the listening socket.
func NewServer(cfg Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	ln, err := Listen(cfg)
	if err != nil {
		return nil, err
	}

	var p [2]int
	if err := unix.Pipe(p[:]); err != nil {
		_ = ln.Close()
		return nil, &Error{Kind: KindSocketCreate, Err: os.NewSyscallError("pipe", err)}
	}
	for _, fd := range p {
		unix.CloseOnExec(fd)
		if err := unix.SetNonblock(fd, true); err != nil {
			_ = ln.Close()
			_ = unix.Close(p[0])
			_ = unix.Close(p[1])
			return nil, &Error{Kind: KindSocketCreate, Err: os.NewSyscallError("fcntl", err)}
		}
	}

	s := &Server{
		cfg:     cfg,
		logger:  logger,
		ln:      ln,
		table:   NewTable(ln.FD(), cfg.MaxClients),
		buf:     make([]byte, cfg.MaxBuffer),
		spill:   make([]byte, cfg.MaxBuffer),
		pollFds: make([]unix.PollFd, 0, cfg.MaxClients+2),
		wakeR:   p[0],
		wakeW:   p[1],
	}
	logger.Info("server is listening", "port", ln.Port(), "max_clients", cfg.MaxClients)
	return s, nil
}

// Port is the port the listener is bound to.
func (s *Server) Port() int { return s.ln.Port() }

// Peers is the number of registered peers. Safe for concurrent use.
func (s *Server) Peers() int { return int(s.peers.Load()) }

// Capacity is the configured peer limit.
func (s *Server) Capacity() int { return s.cfg.MaxClients }

// Run serves until a fatal condition or until ctx is done. Every descriptor
// the server owns is closed before Run returns. Cancellation yields nil; a
// fatal condition yields an *Error.
func (s *Server) Run(ctx context.Context) error {
	stop := context.AfterFunc(ctx, s.wake)
	defer stop()

	err := s.loop(ctx)
	s.closeAll()

	if err != nil {
		s.logger.Error("server terminated", "error", err)
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) loop(ctx context.Context) error {
	for {
		ready, err := s.wait()
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return nil
		}
		if ready == 0 {
			if s.cfg.ExitOnIdle {
				return &Error{Kind: KindWaitTimeout, Err: fmt.Errorf("no activity for %v", s.cfg.PollTimeout)}
			}
			s.logger.Debug("poll timed out, still waiting", "timeout", s.cfg.PollTimeout)
			continue
		}

		start := time.Now()
		err = s.dispatch()
		s.compact()
		PassDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			return err
		}
	}
}

// wait blocks until a slot is ready or the timeout elapses and returns the
// number of ready slots. The wake pipe is not counted.
func (s *Server) wait() (int, error) {
	s.pollFds = s.pollFds[:0]
	for i := 0; i < s.table.Len(); i++ {
		s.pollFds = append(s.pollFds, unix.PollFd{Fd: int32(s.table.Slot(i).FD), Events: unix.POLLIN})
	}
	s.pollFds = append(s.pollFds, unix.PollFd{Fd: int32(s.wakeR), Events: unix.POLLIN})

	deadline := time.Now().Add(s.cfg.PollTimeout)
	for {
		n, err := unix.Poll(s.pollFds, pollMillis(time.Until(deadline)))
		if err == unix.EINTR {
			if time.Until(deadline) <= 0 {
				return 0, nil
			}
			continue
		}
		if err != nil {
			return 0, &Error{Kind: KindWaitFailure, Err: os.NewSyscallError("poll", err)}
		}
		if s.pollFds[len(s.pollFds)-1].Revents != 0 {
			n--
		}
		return n, nil
	}
}

// dispatch visits the slots polled by the last wait in table order. Slots
// accepted during the pass are not visited until the next one.
func (s *Server) dispatch() error {
	n := len(s.pollFds) - 1
	for i := 0; i < n; i++ {
		revents := s.pollFds[i].Revents
		if revents == 0 {
			continue
		}

		if i == 0 {
			if revents != unix.POLLIN {
				return &Error{Kind: KindBadReadinessEvent, Err: fmt.Errorf("listener revents %#x", revents)}
			}
			if err := s.acceptPending(); err != nil {
				return err
			}
			continue
		}

		slot := s.table.Slot(i)
		if revents != unix.POLLIN {
			if !s.cfg.CloseOnBadEvent {
				return &Error{Kind: KindBadReadinessEvent, Err: fmt.Errorf("fd %d revents %#x", slot.FD, revents)}
			}
			if revents&unix.POLLIN == 0 {
				s.logger.Warn("closing connection on unexpected revents",
					append(slot.Peer.logAttrs(), "revents", fmt.Sprintf("%#x", revents))...)
				s.table.Mark(i)
				continue
			}
		}

		if !s.handleConnection(i) {
			s.table.Mark(i)
		}
	}
	return nil
}

// acceptPending accepts queued connections until accept would block.
func (s *Server) acceptPending() error {
	for {
		fd, sa, err := unix.Accept(s.ln.FD())
		if err != nil {
			switch err {
			case unix.EAGAIN:
				return nil
			case unix.EINTR, unix.ECONNABORTED:
				continue
			}
			return &Error{Kind: KindAccept, Err: os.NewSyscallError("accept", err)}
		}
		unix.CloseOnExec(fd)
		addr := sockaddrString(sa)

		if s.table.Full() {
			s.reject(fd, addr)
			continue
		}

		if err := unix.SetNonblock(fd, true); err != nil {
			s.logger.Warn("dropping connection", "addr", addr, "error", os.NewSyscallError("fcntl", err))
			_ = unix.Close(fd)
			continue
		}

		name, err := readName(fd, s.cfg.MaxNameLen, s.cfg.HandshakeTimeout)
		if err != nil {
			s.logger.Warn("handshake failed", "addr", addr, "fd", fd, "error", err)
			MessagesTotal.WithLabelValues("handshake_fail").Inc()
			_ = unix.Close(fd)
			continue
		}

		p := &Peer{FD: fd, ID: uuid.NewString(), Name: name, Addr: addr}
		if err := s.table.Add(p); err != nil {
			s.reject(fd, addr)
			continue
		}
		s.setPeers()
		MessagesTotal.WithLabelValues("join").Inc()
		s.logger.Info("new connection", p.logAttrs()...)
	}
}

func (s *Server) reject(fd int, addr string) {
	if err := writeBestEffort(fd, []byte(ServerFullMessage)); err != nil {
		s.logger.Warn("send failed", "addr", addr, "error", err)
	}
	lingerClose(fd, rejectLinger)
	MessagesTotal.WithLabelValues("reject").Inc()
	s.logger.Warn("server is full, connection rejected", "addr", addr, "capacity", s.cfg.MaxClients)
}

// handleConnection drains slot i and broadcasts what it read. It reports
// false when the peer is gone and the slot must be closed.
func (s *Server) handleConnection(i int) bool {
	slot := s.table.Slot(i)
	payload, open := s.drain(slot)
	if len(payload) > 0 {
		s.broadcast(i, payload)
	}
	return open
}

// drain reads everything currently available on the slot. At most
// MaxBuffer-1 bytes are kept; the message ends at the first NUL.
func (s *Server) drain(slot Slot) ([]byte, bool) {
	limit := s.cfg.MaxBuffer - 1
	n, dropped := 0, 0
	open := true
	for {
		dst := s.buf[n:limit]
		if len(dst) == 0 {
			dst = s.spill
		}
		m, err := unix.Read(slot.FD, dst)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if err != unix.EAGAIN {
				s.logger.Warn("connection closed", append(slot.Peer.logAttrs(), "error", os.NewSyscallError("read", err))...)
				open = false
			}
			break
		}
		if m == 0 {
			s.logger.Warn("connection closed", slot.Peer.logAttrs()...)
			open = false
			break
		}
		if n < limit {
			n += m
		} else {
			dropped += m
		}
	}

	if dropped > 0 {
		s.logger.Debug("message truncated", append(slot.Peer.logAttrs(), "dropped", dropped)...)
	}
	payload := s.buf[:n]
	if j := bytes.IndexByte(payload, 0); j >= 0 {
		payload = payload[:j]
	}
	return payload, open
}

// broadcast sends payload to every live peer except the one in slot from.
// A failed send only affects its recipient.
func (s *Server) broadcast(from int, payload []byte) {
	for j := 1; j < s.table.Len(); j++ {
		if j == from || s.table.Marked(j) {
			continue
		}
		dst := s.table.Slot(j)
		if err := writeBestEffort(dst.FD, payload); err != nil {
			SendFailures.Inc()
			s.logger.Warn("send failed", append(dst.Peer.logAttrs(), "error", err)...)
			continue
		}
		BytesRelayed.Add(float64(len(payload)))
	}
	MessagesTotal.WithLabelValues("broadcast").Inc()
}

func (s *Server) compact() {
	removed := s.table.Compact()
	if len(removed) == 0 {
		return
	}
	for _, slot := range removed {
		_ = unix.Close(slot.FD)
		MessagesTotal.WithLabelValues("disconnect").Inc()
	}
	s.setPeers()
}

func (s *Server) closeAll() {
	for _, slot := range s.table.Reset() {
		_ = unix.Close(slot.FD)
	}
	s.setPeers()

	s.wakeMu.Lock()
	defer s.wakeMu.Unlock()
	if !s.wakeClosed {
		s.wakeClosed = true
		_ = unix.Close(s.wakeR)
		_ = unix.Close(s.wakeW)
	}
}

func (s *Server) wake() {
	s.wakeMu.Lock()
	defer s.wakeMu.Unlock()
	if s.wakeClosed {
		return
	}
	_, _ = unix.Write(s.wakeW, []byte{1})
}

func (s *Server) setPeers() {
	peers := s.table.Peers()
	if peers < 0 {
		peers = 0
	}
	s.peers.Store(int64(peers))
	ConnectedClients.Set(float64(peers))
}
