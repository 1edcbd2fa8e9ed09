package types

import "fmt"

type OpCode uint16

const (
	OpCodeRRQ OpCode = iota + 1
	OpCodeWRQ
	OpCodeDATA
	OpCodeACK
	OpCodeError
)

func (o OpCode) String() string {
	switch o {
	case OpCodeRRQ:
		return "RRQ"
	case OpCodeWRQ:
		return "WRQ"
	case OpCodeDATA:
		return "DATA"
	case OpCodeACK:
		return "ACK"
	case OpCodeError:
		return "ERROR"
	default:
		return fmt.Sprintf("OPCODE(%d)", uint16(o))
	}
}

type ErrCode uint16

const (
	ErrNotDefined ErrCode = iota
	ErrFileNotFound
	ErrAccessViolation
	ErrDiskFull
	ErrIllegalTftpOp
	ErrUnknownTransferId
	ErrFileAlreadyExists
	ErrNoSuchUser
)

var errMessages = map[ErrCode]string{
	ErrNotDefined:        "Not defined, see error message (if any).",
	ErrFileNotFound:      "File not found.",
	ErrAccessViolation:   "Access violation.",
	ErrDiskFull:          "Disk full or allocation exceeded.",
	ErrIllegalTftpOp:     "Illegal TFTP operation.",
	ErrUnknownTransferId: "Unknown transfer ID.",
	ErrFileAlreadyExists: "File already exists.",
	ErrNoSuchUser:        "No such user.",
}

// Message returns the fixed RFC 1350 text for the code.
func (e ErrCode) Message() string {
	if msg, ok := errMessages[e]; ok {
		return msg
	}

	return fmt.Sprintf("Unknown error code %d.", uint16(e))
}

type Mode string

const (
	ModeNetascii Mode = "netascii"
	ModeOctet    Mode = "octet"
	ModeMail     Mode = "mail"
)

const (
	MaxBlocks      = 65535
	MaxPayloadSize = 512
	DatagramSize   = 516
	HeaderSize     = 4
)

const (
	DefaultPort          = 69
	DefaultClientTimeout = 5
	DefaultNumTries      = 3
)
