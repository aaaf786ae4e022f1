package pdm

import (
	"time"

	"github.com/allbin/go-pdm/internal/serialport"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// BaudRate is the fixed line speed of the PDM's USB serial interface
const BaudRate = 115200

// PortOpener opens the serial device at path. The returned port must make
// Read return 0, nil once readTimeout elapses without data.
type PortOpener func(path string, readTimeout time.Duration) (serialport.Port, error)

// OpenSerial opens path at 115200 8N1 with the given read timeout
func OpenSerial(path string, readTimeout time.Duration) (serialport.Port, error) {
	return serialport.Open(path,
		serialport.WithBaudRate(BaudRate),
		serialport.WithDataBits(8),
		serialport.WithStopBits(1),
		serialport.WithParity(serialport.ParityNone),
		serialport.WithReadTimeout(readTimeout),
	)
}

// Config holds the configuration for a Client
type Config struct {
	ReadTimeout    time.Duration // bound on each blocking read of the reader
	CommandTimeout time.Duration // wait for a command's response line
	SettleDelay    time.Duration // device reset-on-open settling time
	PrimeDelay     time.Duration // gap between the priming newline and STATUS
	JoinTimeout    time.Duration // how long Disconnect waits for the reader
	StatusWindow   time.Duration // how long multi-line queries collect lines
	ConfigCommand  string        // command that prints the configuration block

	Clock  clockwork.Clock
	Logger zerolog.Logger
	Opener PortOpener
}

// Option is a functional option for configuring a Client
type Option func(*Config) error

// DefaultConfig returns a configuration matching the PDM firmware's timing
func DefaultConfig() Config {
	return Config{
		ReadTimeout:    2 * time.Second,
		CommandTimeout: 3 * time.Second,
		SettleDelay:    2 * time.Second,
		PrimeDelay:     500 * time.Millisecond,
		JoinTimeout:    1 * time.Second,
		StatusWindow:   2 * time.Second,
		ConfigCommand:  CmdConfig,
		Clock:          clockwork.NewRealClock(),
		Logger:         log.Logger,
		Opener:         OpenSerial,
	}
}

func positive(d time.Duration, set func(time.Duration)) error {
	if d <= 0 {
		return ErrInvalidConfig
	}
	set(d)
	return nil
}

// WithReadTimeout sets the bound on each blocking read
func WithReadTimeout(d time.Duration) Option {
	return func(c *Config) error {
		return positive(d, func(d time.Duration) { c.ReadTimeout = d })
	}
}

// WithCommandTimeout sets how long SendCommand waits for a response
func WithCommandTimeout(d time.Duration) Option {
	return func(c *Config) error {
		return positive(d, func(d time.Duration) { c.CommandTimeout = d })
	}
}

// WithSettleDelay sets the wait after opening the port (0 disables it)
func WithSettleDelay(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return ErrInvalidConfig
		}
		c.SettleDelay = d
		return nil
	}
}

// WithPrimeDelay sets the wait between the priming newline and STATUS (0 disables it)
func WithPrimeDelay(d time.Duration) Option {
	return func(c *Config) error {
		if d < 0 {
			return ErrInvalidConfig
		}
		c.PrimeDelay = d
		return nil
	}
}

// WithJoinTimeout sets how long Disconnect waits for the reader to stop
func WithJoinTimeout(d time.Duration) Option {
	return func(c *Config) error {
		return positive(d, func(d time.Duration) { c.JoinTimeout = d })
	}
}

// WithStatusWindow sets how long GetDeviceStatus and GetConfiguration collect lines
func WithStatusWindow(d time.Duration) Option {
	return func(c *Config) error {
		return positive(d, func(d time.Duration) { c.StatusWindow = d })
	}
}

// WithConfigCommand overrides the command used by GetConfiguration
func WithConfigCommand(cmd string) Option {
	return func(c *Config) error {
		if err := validateCommand(cmd); err != nil {
			return ErrInvalidConfig
		}
		c.ConfigCommand = cmd
		return nil
	}
}

// WithClock sets the clock used for delays and timeouts
func WithClock(clock clockwork.Clock) Option {
	return func(c *Config) error {
		if clock == nil {
			return ErrInvalidConfig
		}
		c.Clock = clock
		return nil
	}
}

// WithLogger sets the logger; lines are logged at debug level
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Config) error {
		c.Logger = logger
		return nil
	}
}

// WithPortOpener replaces how serial devices are opened
func WithPortOpener(opener PortOpener) Option {
	return func(c *Config) error {
		if opener == nil {
			return ErrInvalidConfig
		}
		c.Opener = opener
		return nil
	}
}
