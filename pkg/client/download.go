package client

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Wa4h1h/go-tftp-client/pkg/types"
	"github.com/Wa4h1h/go-tftp-client/pkg/utils"
)

// download sends rrq and writes the incoming blocks to w until a block
// shorter than types.MaxPayloadSize arrives.
func (s *session) download(ctx context.Context, rrq []byte, w io.Writer, progress ProgressFunc) (int64, error) {
	var (
		expected uint16 = 1
		received int64
		lastAck  []byte
	)

	if err := s.sendTo(rrq, s.server); err != nil {
		return received, err
	}

	for {
		datagram, addr, err := s.receive(ctx)
		if err != nil {
			if !errors.Is(err, utils.ErrTimeout) {
				return received, err
			}

			if !s.timedOut() {
				return received, s.exhausted()
			}

			s.l.Warnf("timeout while waiting for block#=%d, retrying (%d/%d)", expected, s.tries, s.numTries)

			// nothing acknowledged yet, so the request itself is repeated
			if lastAck == nil {
				err = s.sendTo(rrq, s.server)
			} else {
				err = s.sendToPeer(lastAck)
			}

			if err != nil {
				return received, err
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

			return received, err
		}

		switch op {
		case types.OpCodeDATA:
			block, payload, err := types.DecodeData(datagram)
			if err != nil {
				s.sendError(types.ErrIllegalTftpOp, "malformed data packet")

				return received, fmt.Errorf("error while decoding data packet: %w", err)
			}

			if block != expected {
				if s.trace {
					s.l.Debugf("re-ack block#=%d, expected block#=%d", block, expected)
				}

				if err := s.sendToPeer(types.EncodeAck(block)); err != nil {
					return received, err
				}

				continue
			}

			if _, err := w.Write(payload); err != nil {
				s.sendError(types.ErrNotDefined, "client can not write block")

				return received, fmt.Errorf("error while writing block#=%d: %w: %w", block, utils.ErrLocalIO, err)
			}

			received += int64(len(payload))
			lastAck = types.EncodeAck(block)

			if err := s.sendToPeer(lastAck); err != nil {
				return received, err
			}

			if s.trace {
				s.l.Debugf("received block#=%d, received #bytes=%d", block, len(payload))
			}

			s.resetTries()
			progress(len(payload))
			expected++

			if len(payload) < types.MaxPayloadSize {
				return received, nil
			}
		case types.OpCodeError:
			return received, serverError(datagram)
		default:
			s.sendError(types.ErrIllegalTftpOp, fmt.Sprintf("unexpected %s", op))

			return received, fmt.Errorf("%s while waiting for block#=%d: %w", op, expected, utils.ErrProtocolViolation)
		}
	}
}
