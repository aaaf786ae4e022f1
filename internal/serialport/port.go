// Package serialport is the byte transport underneath the PDM driver.
//
// On Linux ports are opened directly through termios and Read polls the
// descriptor with the read timeout; elsewhere go.bug.st/serial provides the
// same contract. In both cases Read returns 0, nil only when the read
// timeout elapses without data, which lets a reader loop recheck its
// cancellation state. A hung up device or a concurrent Close makes Read
// return an error instead.
package serialport

import (
	"fmt"
	"io"
)

// Port represents an open serial connection
type Port interface {
	io.ReadWriteCloser

	// Drain waits until all output written to the port has been transmitted
	Drain() error
	// FlushInput discards any unread input data
	FlushInput() error
	// FlushOutput discards any unwritten output data
	FlushOutput() error
}

// Open opens a serial port with the given device path and options
func Open(device string, opts ...Option) (Port, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	p, err := openPort(device, config)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", device, err)
	}
	return p, nil
}
