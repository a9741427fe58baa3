package vision

import (
	"errors"
	"fmt"
)

var (
	// ErrTimeout indicates no complete line arrived within Config.Timeout.
	ErrTimeout = errors.New("response timeout")
	// ErrOverflow indicates the response line didn't fit in the line
	// buffer. The bytes beyond capacity were dropped.
	ErrOverflow = errors.New("response exceeds line buffer")
	// ErrProtocol matches every ResponseError with errors.Is.
	ErrProtocol = errors.New("peer reported error")
	// ErrInvalidCommand indicates the command contains the delimiter.
	ErrInvalidCommand = errors.New("command contains line delimiter")
	// ErrBusy indicates the Poller has too many queued requests.
	ErrBusy = errors.New("request queue full")
)

// ResponseError wraps a sentinel-prefixed line from the peer.
type ResponseError struct {
	Line string
}

// Error implements error.
func (e *ResponseError) Error() string {
	return fmt.Sprintf("peer reported error: %q", e.Line)
}

// Is reports ResponseError as ErrProtocol.
func (e *ResponseError) Is(target error) bool {
	return target == ErrProtocol
}
