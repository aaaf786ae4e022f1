package pdm

import (
	"errors"

	"github.com/allbin/go-pdm/internal/serialport"
)

// Predefined error types for robust error handling
var (
	ErrNotConnected       = errors.New("not connected to PDM")
	ErrTimeout            = errors.New("timed out waiting for PDM response")
	ErrLinkLost           = errors.New("serial link to PDM lost")
	ErrInvalidConfig      = errors.New("invalid client configuration")
	ErrInvalidCommand     = errors.New("command must be a single non-empty line")
	ErrUnexpectedResponse = errors.New("unexpected PDM response")

	// Transport errors surfaced by Connect
	ErrDeviceNotFound   = serialport.ErrDeviceNotFound
	ErrPermissionDenied = serialport.ErrPermissionDenied
	ErrDeviceInUse      = serialport.ErrDeviceInUse
)
