package utils

import "errors"

var (
	ErrWrongOpCode          = errors.New("error: invalid operation code")
	ErrDataPayloadTooBig    = errors.New("error: payload exceeds 512 bytes")
	ErrPacketMarshall       = errors.New("error: can not marshall packet")
	ErrMalformedMessage     = errors.New("error: malformed message")
	ErrProtocolViolation    = errors.New("error: unexpected message from server")
	ErrTimeout              = errors.New("error: transfer timed out")
	ErrLocalIO              = errors.New("error: local file i/o failed")
	ErrNotConnected         = errors.New("error: no server address, use connect first")
	ErrCanNotSetReadTimeout = errors.New("error: can not set read timeout")
)
