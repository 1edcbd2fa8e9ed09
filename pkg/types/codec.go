package types

import (
	"encoding/binary"
	"fmt"

	"github.com/Wa4h1h/go-tftp-client/pkg/utils"
)

// EncodeRequest builds an RRQ or WRQ. filename and mode must be non-empty and
// must not contain a NUL byte.
func EncodeRequest(op OpCode, filename string, mode Mode) []byte {
	req := &Request{Opcode: op, Filename: filename, Mode: mode}

	b, err := req.MarshalBinary()
	if err != nil {
		panic(fmt.Sprintf("encode %s request: %s", op, err))
	}

	return b
}

func EncodeAck(block uint16) []byte {
	b := make([]byte, HeaderSize)
	binary.BigEndian.PutUint16(b, uint16(OpCodeACK))
	binary.BigEndian.PutUint16(b[2:], block)

	return b
}

func EncodeData(block uint16, payload []byte) ([]byte, error) {
	data := &Data{Opcode: OpCodeDATA, BlockNum: block, Payload: payload}

	b, err := data.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("error while marshalling data packet: %w", err)
	}

	return b, nil
}

func EncodeError(code ErrCode, msg string) []byte {
	errPacket := &Error{Opcode: OpCodeError, ErrorCode: code, ErrMsg: msg}

	b, err := errPacket.MarshalBinary()
	if err != nil {
		panic(fmt.Sprintf("encode error packet: %s", err))
	}

	return b
}

// DecodeHeader splits a datagram into its opcode and the bytes that follow it.
func DecodeHeader(b []byte) (OpCode, []byte, error) {
	if len(b) < 2 {
		return 0, nil, fmt.Errorf("datagram of %d bytes: %w", len(b), utils.ErrMalformedMessage)
	}

	return OpCode(binary.BigEndian.Uint16(b)), b[2:], nil
}

func DecodeData(b []byte) (uint16, []byte, error) {
	var data Data

	if err := data.UnmarshalBinary(b); err != nil {
		return 0, nil, err
	}

	return data.BlockNum, data.Payload, nil
}

func DecodeAck(b []byte) (uint16, error) {
	var ack Ack

	if err := ack.UnmarshalBinary(b); err != nil {
		return 0, err
	}

	return ack.BlockNum, nil
}

func DecodeError(b []byte) (ErrCode, string, error) {
	var errPacket Error

	if err := errPacket.UnmarshalBinary(b); err != nil {
		return 0, "", err
	}

	return errPacket.ErrorCode, errPacket.ErrMsg, nil
}

func DecodeRequest(b []byte) (*Request, error) {
	var req Request

	if err := req.UnmarshalBinary(b); err != nil {
		return nil, err
	}

	return &req, nil
}
