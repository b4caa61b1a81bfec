package wire

import "errors"

var (
	ErrClosed          = errors.New("wire: connection closed")
	ErrHandlerRequired = errors.New("wire: ConnOptions.Handler is required")
)
