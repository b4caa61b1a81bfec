package client

import (
	"errors"
	"fmt"
	"strings"

	"github.com/codewandler/gridwire-go/core/protocol/codec"
)

var (
	ErrClosed           = errors.New("client: closed")
	ErrNoAddresses      = errors.New("client: Options.Addresses is required")
	ErrConnectionLost   = errors.New("client: connection lost")
	ErrUnknownListener  = errors.New("client: unknown listener")
	ErrRetriesExhausted = errors.New("client: retries exhausted")
)

// RemoteError is an exception response sent by a member. Holders[0] is the
// error itself, the rest its causes.
type RemoteError struct {
	CorrelationID int32
	Holders       []codec.ErrorHolder
}

func (e *RemoteError) Error() string {
	if len(e.Holders) == 0 {
		return fmt.Sprintf("client: remote error (correlation %d)", e.CorrelationID)
	}
	var b strings.Builder
	for i, h := range e.Holders {
		if i > 0 {
			b.WriteString(": caused by ")
		}
		b.WriteString(h.ClassName)
		if h.Message != nil {
			b.WriteString(": ")
			b.WriteString(*h.Message)
		}
	}
	return "client: remote error " + b.String()
}

// Code returns the error code of the top-level holder.
func (e *RemoteError) Code() int32 {
	if len(e.Holders) == 0 {
		return 0
	}
	return e.Holders[0].Code
}
