package vision

import (
	"bytes"
	"math"
)

// Class is the kind of a response line.
type Class int

// Classes
const (
	ClassPayload Class = iota
	ClassProtocolError
)

// Classifier tells error lines from payload lines.
type Classifier struct {
	Sentinel []byte
}

// Classify matches the sentinel as an exact, case-sensitive prefix.
func (c Classifier) Classify(line []byte) Class {
	if len(c.Sentinel) > 0 && bytes.HasPrefix(line, c.Sentinel) {
		return ClassProtocolError
	}
	return ClassPayload
}

// Values is a bounded ordered sequence of integers.
type Values struct {
	buf []int
	n   int
}

// NewValues creates Values with fixed capacity.
func NewValues(capacity int) *Values {
	return &Values{buf: make([]int, capacity)}
}

// Len returns the number of stored values.
func (v *Values) Len() int { return v.n }

// Cap returns the capacity.
func (v *Values) Cap() int { return len(v.buf) }

// Full reports whether no more values fit.
func (v *Values) Full() bool { return v.n >= len(v.buf) }

// Append stores x unless full.
func (v *Values) Append(x int) bool {
	if v.Full() {
		return false
	}
	v.buf[v.n] = x
	v.n++
	return true
}

// Slice returns a read-only view of stored values.
func (v *Values) Slice() []int {
	return v.buf[:v.n:v.n]
}

// Copy returns stored values in a new slice.
func (v *Values) Copy() []int {
	out := make([]int, v.n)
	copy(out, v.buf[:v.n])
	return out
}

// Reset removes all values.
func (v *Values) Reset() {
	v.n = 0
}

// Decoder decodes a payload line into integers.
type Decoder struct {
	Separator byte
}

// Decode replaces dst with the values in line and returns the count.
// Empty tokens are skipped, malformed tokens decode to 0, and tokens
// beyond dst capacity are discarded.
func (d Decoder) Decode(line []byte, dst *Values) int {
	dst.Reset()
	for len(line) > 0 && !dst.Full() {
		tok := line
		if i := bytes.IndexByte(line, d.Separator); i >= 0 {
			tok, line = line[:i], line[i+1:]
		} else {
			line = nil
		}
		if len(tok) > 0 {
			dst.Append(Atoi(tok))
		}
	}
	return dst.Len()
}

// Atoi converts the leading decimal integer of tok, after optional
// white space and sign. It returns 0 when there are no digits and
// saturates at the int32 range.
func Atoi(tok []byte) int {
	i := 0
	for i < len(tok) && isSpace(tok[i]) {
		i++
	}
	neg := false
	if i < len(tok) && (tok[i] == '+' || tok[i] == '-') {
		neg = tok[i] == '-'
		i++
	}
	const limit = int64(math.MaxInt32) + 1
	var n int64
	for ; i < len(tok) && tok[i] >= '0' && tok[i] <= '9'; i++ {
		if n = n*10 + int64(tok[i]-'0'); n > limit {
			n = limit
		}
	}
	if neg {
		return int(-n)
	}
	if n > math.MaxInt32 {
		n = math.MaxInt32
	}
	return int(n)
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}
