package client

import (
	"fmt"

	"github.com/Wa4h1h/go-tftp-client/pkg/types"
)

// ServerError is returned when the server aborts a transfer with an ERROR packet.
type ServerError struct {
	Message string
	Code    types.ErrCode
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("error: server replied with error %d: %s", e.Code, e.Code.Message())
	}

	return fmt.Sprintf("error: server replied with error %d: %s (%s)", e.Code, e.Code.Message(), e.Message)
}

func serverError(b []byte) error {
	code, msg, err := types.DecodeError(b)
	if err != nil {
		return fmt.Errorf("error while decoding error packet: %w", err)
	}

	return &ServerError{Code: code, Message: msg}
}
