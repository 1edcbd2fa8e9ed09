package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Wa4h1h/go-tftp-client/pkg/types"
	"github.com/Wa4h1h/go-tftp-client/pkg/utils"
)

// upload sends wrq and then the content of r block by block. It returns once
// the block shorter than types.MaxPayloadSize has been acknowledged.
func (s *session) upload(ctx context.Context, wrq []byte, r io.ReadSeeker, progress ProgressFunc) (int64, error) {
	var (
		block uint16
		sent  int64
		// payload size of the DATA in flight, -1 while waiting for ACK(0)
		lastLen = -1
	)

	base, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return sent, fmt.Errorf("error while reading file offset: %w: %w", utils.ErrLocalIO, err)
	}

	chunk := make([]byte, types.MaxPayloadSize)

	if err := s.sendTo(wrq, s.server); err != nil {
		return sent, err
	}

	for {
		datagram, addr, err := s.receive(ctx)
		if err != nil {
			if !errors.Is(err, utils.ErrTimeout) {
				return sent, err
			}

			if !s.timedOut() {
				return sent, s.exhausted()
			}

			s.l.Warnf("timeout while waiting for ack block#=%d, retrying (%d/%d)", block, s.tries, s.numTries)

			if block == 0 {
				if err := s.sendTo(wrq, s.server); err != nil {
					return sent, err
				}

				continue
			}

			if _, err := r.Seek(base+sent, io.SeekStart); err != nil {
				s.sendError(types.ErrNotDefined, "client can not read file")

				return sent, fmt.Errorf("error while seeking block#=%d: %w: %w", block, utils.ErrLocalIO, err)
			}

			if _, err := s.sendNextBlock(r, chunk, block); err != nil {
				return sent, err
			}

			continue
		}

		if !s.pin(addr) {
			s.rejectForeign(addr)

			continue
		}

		op, _, err := types.DecodeHeader(datagram)
		if err != nil {
			s.sendError(types.ErrIllegalTftpOp, "malformed packet")

			return sent, err
		}

		switch op {
		case types.OpCodeACK:
			ackBlock, err := types.DecodeAck(datagram)
			if err != nil {
				s.sendError(types.ErrIllegalTftpOp, "malformed ack packet")

				return sent, fmt.Errorf("error while decoding ack packet: %w", err)
			}

			if ackBlock != block {
				if s.trace {
					s.l.Debugf("ignoring ack block#=%d, expected block#=%d", ackBlock, block)
				}

				continue
			}

			s.resetTries()

			if lastLen >= 0 {
				sent += int64(lastLen)
				progress(lastLen)

				if s.trace {
					s.l.Debugf("received ack block#=%d", ackBlock)
				}

				if lastLen < types.MaxPayloadSize {
					return sent, nil
				}
			}

			block++

			if lastLen, err = s.sendNextBlock(r, chunk, block); err != nil {
				return sent, err
			}
		case types.OpCodeError:
			return sent, serverError(datagram)
		default:
			s.sendError(types.ErrIllegalTftpOp, fmt.Sprintf("unexpected %s", op))

			return sent, fmt.Errorf("%s while waiting for ack block#=%d: %w", op, block, utils.ErrProtocolViolation)
		}
	}
}

// sendNextBlock reads up to one block from r and sends it as DATA. A zero
// byte read still produces an empty block, which ends the transfer.
func (s *session) sendNextBlock(r io.Reader, chunk []byte, block uint16) (int, error) {
	n, err := io.ReadFull(r, chunk)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		s.sendError(types.ErrNotDefined, "client can not read file")

		return n, fmt.Errorf("error while reading block#=%d: %w: %w", block, utils.ErrLocalIO, err)
	}

	b, err := types.EncodeData(block, chunk[:n])
	if err != nil {
		return n, fmt.Errorf("%w: %w", utils.ErrPacketMarshall, err)
	}

	if err := s.sendToPeer(b); err != nil {
		return n, err
	}

	if s.trace {
		s.l.Debugf("sent block#=%d, sent #bytes=%d", block, n)
	}

	return n, nil
}
