package vision

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang/glog"

	fx "github.com/robotalks/armlink/pkg/framework"
)

// Client is the request/response state machine over a Transport.
// It holds exactly one session and is not safe for concurrent use.
type Client struct {
	transport  Transport
	conf       Config
	clock      fx.TimeSource
	classifier Classifier
	decoder    Decoder

	status   Status
	command  string
	issuedAt time.Time
	line     *LineBuffer
	values   *Values
	raw      []byte
	out      []byte
	err      error
}

// NewClient creates a Client. Zero fields of conf take defaults.
func NewClient(t Transport, conf Config) *Client {
	conf = conf.WithDefaults()
	return &Client{
		transport:  t,
		conf:       conf,
		clock:      fx.SystemTime,
		classifier: Classifier{Sentinel: []byte(conf.ErrorSentinel)},
		decoder:    Decoder{Separator: conf.Separator},
		line:       NewLineBuffer(conf.BufferSize, conf.Delimiter),
		values:     NewValues(conf.MaxValues),
		raw:        make([]byte, 0, conf.BufferSize),
	}
}

// WithClock replaces the time source used for timeouts.
func (c *Client) WithClock(clock fx.TimeSource) *Client {
	c.clock = clock
	return c
}

// Config returns the effective config.
func (c *Client) Config() Config {
	return c.conf
}

// SendRequest discards pending input, writes command and starts
// a new session in Waiting. Any previous session is abandoned.
// If writing fails, the session is latched in Error and the
// write error is returned.
func (c *Client) SendRequest(command string) error {
	if strings.IndexByte(command, c.conf.Delimiter) >= 0 {
		return ErrInvalidCommand
	}
	if err := c.transport.FlushInput(); err != nil {
		return fmt.Errorf("flush input: %w", err)
	}
	if c.status.IsTerminal() {
		c.tracef("discard unread %s result of %q", c.status, c.command)
	}

	c.out = append(append(c.out[:0], command...), c.conf.Delimiter)
	_, err := c.transport.Write(c.out)
	c.line.Reset()
	c.command, c.err = command, nil
	c.issuedAt = c.clock.Time()
	c.status = StatusWaiting
	if err != nil {
		c.fail(fmt.Errorf("write command: %w", err))
		return c.err
	}
	c.tracef("sent: %s", command)
	return nil
}

// Update advances the session. It only acts in Waiting, never blocks,
// and reads at most one buffer worth of bytes per call.
func (c *Client) Update() Status {
	if c.status != StatusWaiting {
		return c.status
	}
	if c.clock.Time().Sub(c.issuedAt) > c.conf.Timeout {
		// Bytes of this request arriving from now on stay in the
		// transport until the next SendRequest flushes them.
		c.fail(ErrTimeout)
		return c.status
	}
	for budget := c.line.Cap(); budget > 0 && c.transport.Readable(); budget-- {
		b, err := c.transport.ReadByte()
		if err != nil {
			c.fail(fmt.Errorf("read response: %w", err))
			break
		}
		if line, done := c.line.Feed(b); done {
			c.complete(line)
			break
		}
	}
	return c.status
}

func (c *Client) complete(line []byte) {
	c.raw = append(c.raw[:0], line...)
	c.tracef("received: %s", c.raw)
	switch {
	case c.line.Truncated():
		c.fail(ErrOverflow)
	case c.classifier.Classify(line) == ClassProtocolError:
		c.fail(&ResponseError{Line: string(line)})
	default:
		c.decoder.Decode(line, c.values)
		c.status = StatusDone
	}
}

func (c *Client) fail(err error) {
	c.err, c.status = err, StatusError
	c.tracef("request %q failed: %v", c.command, err)
}

func (c *Client) tracef(format string, args ...interface{}) {
	if c.conf.Trace {
		glog.Infof("vision: "+format, args...)
	}
}

// Control implements framework.Controller.
func (c *Client) Control(fx.ControlContext) error {
	c.Update()
	return nil
}

// Available reports whether the session reached Done or Error.
func (c *Client) Available() bool {
	return c.status.IsTerminal()
}

// Status returns the current status.
func (c *Client) Status() Status {
	return c.status
}

// Values returns the decoded values. Only meaningful in Done; the
// returned slice is reused by the next successful request.
func (c *Client) Values() []int {
	return c.values.Slice()
}

// ValueCount returns the number of decoded values.
func (c *Client) ValueCount() int {
	return c.values.Len()
}

// RawResponse returns the last completed line without delimiter.
func (c *Client) RawResponse() string {
	return string(c.raw)
}

// Err returns the cause of Error, or nil.
func (c *Client) Err() error {
	if c.status != StatusError {
		return nil
	}
	return c.err
}

// Command returns the command of the current session.
func (c *Client) Command() string {
	return c.command
}

// IssuedAt returns when the current session was started.
func (c *Client) IssuedAt() time.Time {
	return c.issuedAt
}

// Reset returns to Idle. Buffers are left untouched.
func (c *Client) Reset() {
	c.status = StatusIdle
}
