// Package port provides vision.Transport implementations over real
// byte streams: serial ports and websocket bridges.
package port

import (
	"errors"
	"io"
	"sync"

	"github.com/golang/glog"
)

// DefaultQueueSize bounds the bytes received but not yet consumed.
const DefaultQueueSize = 4096

var (
	// ErrClosed is reported once the stream is closed locally.
	ErrClosed = errors.New("port closed")
)

// Stream adapts an io.ReadWriteCloser to vision.Transport.
// A background reader moves received bytes into a bounded queue,
// so Readable and ReadByte never block.
type Stream struct {
	Name string

	rwc       io.ReadWriteCloser
	flushFunc func() error

	lock    sync.Mutex
	queue   []byte
	head    int
	max     int
	dropped int
	err     error
	closed  bool
	doneCh  chan struct{}
}

// NewStream wraps rwc and starts reading from it.
func NewStream(name string, rwc io.ReadWriteCloser, queueSize int) *Stream {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	s := &Stream{
		Name:   name,
		rwc:    rwc,
		max:    queueSize,
		queue:  make([]byte, 0, queueSize),
		doneCh: make(chan struct{}),
	}
	go s.readLoop()
	return s
}

// WithFlushFunc sets the device specific input flush, called before
// the queue is cleared.
func (s *Stream) WithFlushFunc(fn func() error) *Stream {
	s.flushFunc = fn
	return s
}

func (s *Stream) readLoop() {
	defer close(s.doneCh)
	buf := make([]byte, 256)
	for {
		n, err := s.rwc.Read(buf)
		if n > 0 {
			s.push(buf[:n])
		}
		if err != nil {
			s.lock.Lock()
			if s.closed {
				err = ErrClosed
			} else {
				glog.Warningf("%s: read error: %v", s.Name, err)
			}
			s.err = err
			s.lock.Unlock()
			return
		}
	}
}

func (s *Stream) push(data []byte) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.head > 0 && len(s.queue)+len(data) > s.max {
		s.queue = append(s.queue[:0], s.queue[s.head:]...)
		s.head = 0
	}
	if room := s.max - len(s.queue); len(data) > room {
		s.dropped += len(data) - room
		glog.V(1).Infof("%s: input queue full, dropped %d bytes", s.Name, len(data)-room)
		data = data[:room]
	}
	s.queue = append(s.queue, data...)
	if glog.V(3) {
		glog.Infof("%s: RCV %q", s.Name, data)
	}
}

// Write implements io.Writer.
func (s *Stream) Write(p []byte) (int, error) {
	if glog.V(3) {
		glog.Infof("%s: SND %q", s.Name, p)
	}
	return s.rwc.Write(p)
}

// Readable reports whether ReadByte returns without blocking: either
// a byte is queued or the reader has stopped with an error.
func (s *Stream) Readable() bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.head < len(s.queue) || s.err != nil
}

// ReadByte implements io.ByteReader. Queued bytes are returned before
// the reader error.
func (s *Stream) ReadByte() (byte, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if s.head < len(s.queue) {
		b := s.queue[s.head]
		if s.head++; s.head == len(s.queue) {
			s.queue, s.head = s.queue[:0], 0
		}
		return b, nil
	}
	if s.err != nil {
		return 0, s.err
	}
	return 0, io.EOF
}

// FlushInput discards everything received so far.
func (s *Stream) FlushInput() error {
	if s.flushFunc != nil {
		if err := s.flushFunc(); err != nil {
			return err
		}
	}
	s.lock.Lock()
	if n := len(s.queue) - s.head; n > 0 {
		glog.V(2).Infof("%s: flushed %d bytes", s.Name, n)
	}
	s.queue, s.head = s.queue[:0], 0
	s.lock.Unlock()
	return nil
}

// Dropped returns the number of bytes lost because the queue was full.
func (s *Stream) Dropped() int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.dropped
}

// Done is closed when the reader stops.
func (s *Stream) Done() <-chan struct{} {
	return s.doneCh
}

// Close implements io.Closer.
func (s *Stream) Close() error {
	s.lock.Lock()
	s.closed = true
	s.lock.Unlock()
	return s.rwc.Close()
}
