package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/Wa4h1h/go-tftp-client/pkg/types"
	"github.com/Wa4h1h/go-tftp-client/pkg/utils"
	"go.uber.org/zap"
)

// session holds the state of a single transfer. It owns its socket and is
// never shared between transfers.
type session struct {
	conn     net.PacketConn
	server   net.Addr
	peer     net.Addr
	l        *zap.SugaredLogger
	timeout  time.Duration
	numTries uint
	tries    uint
	trace    bool
	datagram []byte
	// end of the current wait, moved only by sends from the transfer
	deadline time.Time
}

func newSession(server net.Addr, l *zap.SugaredLogger, timeout time.Duration, numTries uint, trace bool) (*session, error) {
	conn, err := net.ListenPacket("udp", ":0")
	if err != nil {
		return nil, fmt.Errorf("error while opening udp socket: %w", err)
	}

	return &session{
		conn:     conn,
		server:   server,
		l:        l,
		timeout:  timeout,
		numTries: numTries,
		trace:    trace,
		datagram: make([]byte, types.DatagramSize),
	}, nil
}

func (s *session) Close() error {
	if err := s.conn.Close(); err != nil {
		return fmt.Errorf("error while closing connection: %w", err)
	}

	return nil
}

// sendTo writes b to addr and opens a new wait window for the reply.
func (s *session) sendTo(b []byte, addr net.Addr) error {
	if _, err := s.conn.WriteTo(b, addr); err != nil {
		return fmt.Errorf("error while writing packet to %s: %w", addr, err)
	}

	s.deadline = time.Now().Add(s.timeout)

	return nil
}

// sendToPeer writes to the pinned transfer ID, or to the server address
// when nothing replied yet.
func (s *session) sendToPeer(b []byte) error {
	if s.peer == nil {
		return s.sendTo(b, s.server)
	}

	return s.sendTo(b, s.peer)
}

// sendError notifies the peer about a fatal local condition. Failures are
// only logged since the transfer is being torn down anyway.
func (s *session) sendError(code types.ErrCode, msg string) {
	if err := s.sendToPeer(types.EncodeError(code, msg)); err != nil {
		s.l.Debugf("error while sending error packet: %s", err.Error())
	}
}

// pin fixes the transfer ID on the first reply and reports whether addr
// belongs to it.
func (s *session) pin(addr net.Addr) bool {
	if s.peer == nil {
		s.peer = addr
		s.l.Debugf("pinned transfer id %s", addr)

		return true
	}

	return s.peer.String() == addr.String()
}

// rejectForeign answers a datagram from an unknown source with ERROR(5).
// The current wait window is left untouched.
func (s *session) rejectForeign(addr net.Addr) {
	s.l.Warnf("ignoring datagram from unknown transfer id %s", addr)

	b := types.EncodeError(types.ErrUnknownTransferId, types.ErrUnknownTransferId.Message())
	if _, err := s.conn.WriteTo(b, addr); err != nil {
		s.l.Debugf("error while rejecting %s: %s", addr, err.Error())
	}
}

// receive waits for one datagram until the window opened by the last send
// closes. A deadline hit is reported as utils.ErrTimeout and starts a new
// window. The returned slice is only valid until the next call.
func (s *session) receive(ctx context.Context) ([]byte, net.Addr, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	if s.deadline.IsZero() {
		s.deadline = time.Now().Add(s.timeout)
	}

	deadline := s.deadline
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	if err := s.conn.SetReadDeadline(deadline); err != nil {
		s.l.Errorf("error while setting read timeout: %s", err.Error())

		return nil, nil, utils.ErrCanNotSetReadTimeout
	}

	n, addr, err := s.conn.ReadFrom(s.datagram)
	if err != nil {
		if errors.Is(err, os.ErrDeadlineExceeded) {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, nil, ctxErr
			}

			s.deadline = time.Time{}

			return nil, nil, utils.ErrTimeout
		}

		return nil, nil, fmt.Errorf("error while reading from connection: %w", err)
	}

	return s.datagram[:n], addr, nil
}

// timedOut counts a timeout and reports whether another try is allowed.
func (s *session) timedOut() bool {
	s.tries++

	return s.tries < s.numTries
}

func (s *session) resetTries() {
	s.tries = 0
}

func (s *session) exhausted() error {
	return fmt.Errorf("no reply after %d tries of %s: %w", s.tries, s.timeout, utils.ErrTimeout)
}
