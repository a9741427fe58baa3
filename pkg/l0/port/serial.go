package port

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate is the baud rate of the vision coprocessor link.
const DefaultBaudRate = 115200

// SerialConfig holds configuration for opening a serial port.
type SerialConfig struct {
	Port        string
	BaudRate    int
	ReadTimeout time.Duration
	QueueSize   int
}

// OpenSerial opens a serial port as a Stream. FlushInput also resets
// the driver's input buffer. Read timeouts only wake the reader up,
// they are not errors.
func OpenSerial(cfg SerialConfig) (*Stream, error) {
	if cfg.Port == "" {
		return nil, errors.New("serial port path is required")
	}
	if cfg.BaudRate == 0 {
		cfg.BaudRate = DefaultBaudRate
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 100 * time.Millisecond
	}

	mode := &serial.Mode{
		BaudRate: cfg.BaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(cfg.Port, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Port, err)
	}
	if err := p.SetReadTimeout(cfg.ReadTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return NewStream(cfg.Port, p, cfg.QueueSize).
		WithFlushFunc(p.ResetInputBuffer), nil
}

