package vision

// LineBuffer accumulates bytes into lines of bounded length.
type LineBuffer struct {
	buf       []byte
	n         int
	delim     byte
	dropped   int
	truncated bool
}

// NewLineBuffer creates a LineBuffer holding lines up to size-1 bytes.
func NewLineBuffer(size int, delim byte) *LineBuffer {
	if size < 2 {
		size = 2
	}
	return &LineBuffer{buf: make([]byte, size), delim: delim}
}

// Cap is the configured buffer size, including the reserved slot.
func (b *LineBuffer) Cap() int {
	return len(b.buf)
}

// Len is the number of bytes of the line in progress.
func (b *LineBuffer) Len() int {
	return b.n
}

// Feed consumes one byte. When b is the delimiter, the completed line
// is returned with done set. The line aliases the internal buffer and
// is valid until the next Feed.
// Bytes beyond Cap()-1 are dropped and the line is marked truncated.
func (b *LineBuffer) Feed(c byte) (line []byte, done bool) {
	if c == b.delim {
		line = b.buf[:b.n]
		b.truncated = b.dropped > 0
		b.n, b.dropped = 0, 0
		return line, true
	}
	if b.n >= len(b.buf)-1 {
		b.dropped++
		return nil, false
	}
	b.buf[b.n] = c
	b.n++
	return nil, false
}

// Truncated reports whether the last completed line lost bytes.
func (b *LineBuffer) Truncated() bool {
	return b.truncated
}

// Reset discards the line in progress.
func (b *LineBuffer) Reset() {
	b.n, b.dropped, b.truncated = 0, 0, false
}
