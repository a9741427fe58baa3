// Package visiontest provides a scripted transport and a manual clock
// for testing code built on the vision client.
package visiontest

import (
	"bytes"
	"io"
	"sync"
	"time"
)

// Transport is an in-memory vision.Transport.
type Transport struct {
	// WriteErr fails every Write when set.
	WriteErr error
	// ReadErr fails every ReadByte when set.
	ReadErr error
	// OnWrite is called after bytes are written, e.g. to inject a reply.
	OnWrite func(t *Transport, p []byte)

	lock    sync.Mutex
	written bytes.Buffer
	inbox   []byte
	flushes int
}

// Write implements io.Writer.
func (t *Transport) Write(p []byte) (int, error) {
	if t.WriteErr != nil {
		return 0, t.WriteErr
	}
	t.lock.Lock()
	t.written.Write(p)
	t.lock.Unlock()
	if fn := t.OnWrite; fn != nil {
		fn(t, p)
	}
	return len(p), nil
}

// Readable implements vision.Transport.
func (t *Transport) Readable() bool {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.inbox) > 0 || t.ReadErr != nil
}

// ReadByte implements io.ByteReader.
func (t *Transport) ReadByte() (byte, error) {
	if t.ReadErr != nil {
		return 0, t.ReadErr
	}
	t.lock.Lock()
	defer t.lock.Unlock()
	if len(t.inbox) == 0 {
		return 0, io.EOF
	}
	b := t.inbox[0]
	t.inbox = t.inbox[1:]
	return b, nil
}

// FlushInput implements vision.Transport.
func (t *Transport) FlushInput() error {
	t.lock.Lock()
	t.inbox = nil
	t.flushes++
	t.lock.Unlock()
	return nil
}

// Inject makes s available for reading.
func (t *Transport) Inject(s string) {
	t.lock.Lock()
	t.inbox = append(t.inbox, s...)
	t.lock.Unlock()
}

// Pending returns the number of unread bytes.
func (t *Transport) Pending() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return len(t.inbox)
}

// Written returns everything written so far.
func (t *Transport) Written() string {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.written.String()
}

// Flushes returns how many times FlushInput was called.
func (t *Transport) Flushes() int {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.flushes
}

// Reply returns an OnWrite func answering every request with line.
func Reply(line string) func(*Transport, []byte) {
	return func(t *Transport, _ []byte) {
		t.Inject(line)
	}
}

// Clock is a manually advanced framework.TimeSource.
type Clock struct {
	lock sync.Mutex
	now  time.Time
}

// NewClock creates a Clock starting at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

// Time implements framework.TimeSource.
func (c *Clock) Time() time.Time {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.lock.Lock()
	c.now = c.now.Add(d)
	c.lock.Unlock()
}
