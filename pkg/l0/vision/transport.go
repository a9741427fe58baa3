package vision

import "io"

// Transport is the byte stream to the coprocessor.
// Readable and ReadByte must not block.
type Transport interface {
	io.Writer
	io.ByteReader

	// Readable reports whether ReadByte has a byte ready.
	Readable() bool
	// FlushInput discards all bytes received so far.
	FlushInput() error
}

// Status is the state of the request session.
type Status int

// Statuses
const (
	StatusIdle Status = iota
	StatusWaiting
	StatusDone
	StatusError
)

var statusNames = [...]string{"idle", "waiting", "done", "error"}

func (s Status) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return "unknown"
}

// IsTerminal reports Done or Error.
func (s Status) IsTerminal() bool {
	return s == StatusDone || s == StatusError
}
