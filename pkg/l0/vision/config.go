package vision

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Defaults of the reference deployment.
const (
	DefaultTimeout       = 3 * time.Second
	DefaultBufferSize    = 256
	DefaultMaxValues     = 20
	DefaultErrorSentinel = "ERROR"
	DefaultDelimiter     = '\n'
	DefaultSeparator     = ','
	DefaultPollInterval  = 10 * time.Millisecond
)

// Config defines the protocol parameters of a Client.
type Config struct {
	// Timeout is the window, counted from SendRequest, in which a
	// complete line must arrive.
	Timeout time.Duration
	// BufferSize is the capacity of the line buffer. One slot is
	// reserved, so the longest accepted line is BufferSize-1 bytes.
	BufferSize int
	// MaxValues is the capacity of decoded values.
	MaxValues int
	// ErrorSentinel is the prefix identifying an error line.
	ErrorSentinel string
	// Delimiter terminates request and response lines.
	Delimiter byte
	// Separator splits values in a payload line.
	Separator byte
	// PollInterval is the sleep between updates in Request.
	PollInterval time.Duration
	// Trace enables diagnostic messages about every exchange.
	Trace bool
}

// DefaultConfig returns the config of the reference deployment.
func DefaultConfig() Config {
	return Config{
		Timeout:       DefaultTimeout,
		BufferSize:    DefaultBufferSize,
		MaxValues:     DefaultMaxValues,
		ErrorSentinel: DefaultErrorSentinel,
		Delimiter:     DefaultDelimiter,
		Separator:     DefaultSeparator,
		PollInterval:  DefaultPollInterval,
	}
}

// WithDefaults fills zero fields with defaults.
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
	if c.BufferSize == 0 {
		c.BufferSize = def.BufferSize
	}
	if c.MaxValues == 0 {
		c.MaxValues = def.MaxValues
	}
	if c.ErrorSentinel == "" {
		c.ErrorSentinel = def.ErrorSentinel
	}
	if c.Delimiter == 0 {
		c.Delimiter = def.Delimiter
	}
	if c.Separator == 0 {
		c.Separator = def.Separator
	}
	if c.PollInterval == 0 {
		c.PollInterval = def.PollInterval
	}
	return c
}

// Validate checks the config after defaults are applied.
func (c Config) Validate() error {
	c = c.WithDefaults()
	switch {
	case c.Timeout < 0:
		return fmt.Errorf("invalid timeout %v", c.Timeout)
	case c.BufferSize < 2:
		return fmt.Errorf("buffer size %d too small", c.BufferSize)
	case c.MaxValues < 0:
		return fmt.Errorf("invalid max values %d", c.MaxValues)
	case c.PollInterval < 0:
		return fmt.Errorf("invalid poll interval %v", c.PollInterval)
	case c.Delimiter == c.Separator:
		return errors.New("delimiter and separator must differ")
	case strings.IndexByte(c.ErrorSentinel, c.Delimiter) >= 0:
		return errors.New("error sentinel contains delimiter")
	case len(c.ErrorSentinel) >= c.BufferSize:
		return errors.New("error sentinel longer than line buffer")
	}
	return nil
}
