//go:build !linux

package serialport

import (
	"errors"
	"fmt"

	"go.bug.st/serial"
)

// bugstPort adapts a go.bug.st/serial port to Port
type bugstPort struct {
	serial.Port
}

var _ Port = (*bugstPort)(nil)

func openPort(device string, config Config) (Port, error) {
	mode := &serial.Mode{
		BaudRate: config.BaudRate,
		DataBits: config.DataBits,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	switch config.Parity {
	case ParityOdd:
		mode.Parity = serial.OddParity
	case ParityEven:
		mode.Parity = serial.EvenParity
	}
	if config.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	p, err := serial.Open(device, mode)
	if err != nil {
		return nil, classifyOpenError(err)
	}

	if err := p.SetReadTimeout(config.ReadTimeout); err != nil {
		_ = p.Close()
		return nil, fmt.Errorf("failed to set read timeout: %w", err)
	}

	return &bugstPort{Port: p}, nil
}

func classifyOpenError(err error) error {
	var portErr *serial.PortError
	if !errors.As(err, &portErr) {
		return err
	}
	switch portErr.Code() {
	case serial.PortNotFound:
		return fmt.Errorf("%w: %v", ErrDeviceNotFound, err)
	case serial.PermissionDenied:
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	case serial.PortBusy:
		return fmt.Errorf("%w: %v", ErrDeviceInUse, err)
	default:
		return err
	}
}

// FlushInput discards any unread input data
func (p *bugstPort) FlushInput() error {
	return p.ResetInputBuffer()
}

// FlushOutput discards any unwritten output data
func (p *bugstPort) FlushOutput() error {
	return p.ResetOutputBuffer()
}
