package pdm

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/allbin/go-pdm/internal/serialport"
	"github.com/allbin/go-pdm/internal/syncutil"
	"github.com/rs/zerolog"
)

// readBufferSize is the chunk size of each blocking read
const readBufferSize = 256

// spinLimit is how many empty reads in a row, each returning well before
// the read timeout, the reader accepts before it treats the port as hung up
const spinLimit = 64

// State is the lifecycle state of a Client
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Client owns the serial connection to one PDM
type Client struct {
	config Config
	log    zerolog.Logger

	mu    syncutil.RWMutex
	state State
	sess  *session

	// single flight: one command awaits a response at a time
	cmdMu syncutil.Mutex

	handlerMu   syncutil.RWMutex
	handler     func(Event)
	lineHandler func(string)
}

// session is one open port with its reader
type session struct {
	name   string
	port   serialport.Port
	router *router
	log    zerolog.Logger

	cancel context.CancelFunc
	done   chan struct{}
}

func (s *session) alive() bool {
	select {
	case <-s.done:
		return false
	default:
		return true
	}
}

func (s *session) writeLine(text string) error {
	if _, err := io.WriteString(s.port, text+"\r\n"); err != nil {
		return err
	}
	return s.port.Drain()
}

// New creates a disconnected Client
func New(opts ...Option) (*Client, error) {
	config := DefaultConfig()
	for _, opt := range opts {
		if err := opt(&config); err != nil {
			return nil, err
		}
	}

	return &Client{
		config: config,
		log:    config.Logger.With().Str("component", "pdm").Logger(),
	}, nil
}

// SetStatusHandler registers fn to receive parsed status events. It is
// called on the reader goroutine; nil removes the handler.
func (c *Client) SetStatusHandler(fn func(Event)) {
	c.handlerMu.Lock()
	c.handler = fn
	c.handlerMu.Unlock()
}

// SetLineHandler registers fn to receive every received line, echoes and
// responses included, before it is parsed. nil removes the handler.
func (c *Client) SetLineHandler(fn func(string)) {
	c.handlerMu.Lock()
	c.lineHandler = fn
	c.handlerMu.Unlock()
}

func (c *Client) handlers() (func(string), func(Event)) {
	c.handlerMu.RLock()
	defer c.handlerMu.RUnlock()
	return c.lineHandler, c.handler
}

// Connect opens port and starts the reader, replacing any existing session
func (c *Client) Connect(ctx context.Context, port string) error {
	if err := c.Disconnect(); err != nil {
		c.log.Warn().Err(err).Msg("closing previous session")
	}

	c.mu.Lock()
	c.state = StateConnecting
	c.mu.Unlock()

	s, err := c.open(ctx, port)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.state = StateDisconnected
		return err
	}
	c.sess = s
	c.state = StateConnected
	return nil
}

func (c *Client) open(ctx context.Context, path string) (*session, error) {
	logger := c.log.With().Str("port", path).Logger()
	logger.Info().Msg("opening serial port")

	p, err := c.config.Opener(path, c.config.ReadTimeout)
	if err != nil {
		logger.Error().Err(err).Msg("failed to open serial port")
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}

	fail := func(err error) (*session, error) {
		if closeErr := p.Close(); closeErr != nil {
			logger.Warn().Err(closeErr).Msg("closing port after failed connect")
		}
		logger.Error().Err(err).Msg("connect failed")
		return nil, fmt.Errorf("connect %s: %w", path, err)
	}

	// USB serial adapters reset the microcontroller when the port opens
	if err := c.sleep(ctx, c.config.SettleDelay); err != nil {
		return fail(err)
	}
	if err := p.FlushInput(); err != nil {
		return fail(fmt.Errorf("flush input: %w", err))
	}
	if err := p.FlushOutput(); err != nil {
		return fail(fmt.Errorf("flush output: %w", err))
	}

	s := &session{
		name:   path,
		port:   p,
		router: newRouter(),
		log:    logger,
		done:   make(chan struct{}),
	}

	if err := s.writeLine(""); err != nil {
		return fail(fmt.Errorf("prime link: %w", err))
	}
	if err := c.sleep(ctx, c.config.PrimeDelay); err != nil {
		return fail(err)
	}
	if err := s.writeLine(CmdStatus); err != nil {
		return fail(fmt.Errorf("prime link: %w", err))
	}

	readerCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go c.readLoop(readerCtx, s)

	logger.Info().Msg("connected")
	return s, nil
}

// sleep waits d on the configured clock or until ctx ends
func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := c.config.Clock.NewTimer(d)
	defer t.Stop()

	select {
	case <-t.Chan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readLoop frames lines off the port until cancelled or a read fails.
// Every line goes to the router, then to the status handler.
func (c *Client) readLoop(ctx context.Context, s *session) {
	defer close(s.done)
	defer s.router.close()

	framer := newLineFramer()
	buf := make([]byte, readBufferSize)
	spins := 0

	for ctx.Err() == nil {
		start := time.Now()
		n, err := s.port.Read(buf)
		if err != nil {
			if ctx.Err() == nil {
				s.log.Warn().Err(err).Msg("serial read failed, stopping reader")
			}
			return
		}
		if n == 0 {
			// a hung up tty can report end of file without waiting
			if time.Since(start) < c.config.ReadTimeout/2 {
				spins++
			} else {
				spins = 0
			}
			if spins >= spinLimit {
				s.log.Warn().Int("reads", spins).Msg("serial port returns empty reads without waiting, stopping reader")
				return
			}
			continue
		}
		spins = 0

		for _, line := range framer.feed(buf[:n]) {
			s.router.publish(line)
			c.dispatch(s, line)
		}
	}
}

func (c *Client) dispatch(s *session, line string) {
	s.log.Debug().Str("rx", line).Msg("line received")

	onLine, onStatus := c.handlers()
	if onLine != nil {
		invoke(s, line, func() { onLine(line) })
	}

	ev, ok := ParseStatusLine(line)
	if !ok || onStatus == nil {
		return
	}
	invoke(s, line, func() { onStatus(ev) })
}

// invoke runs a user callback, keeping the reader alive if it panics
func invoke(s *session, line string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Str("line", line).Msg("handler panicked")
		}
	}()
	fn()
}

// Disconnect stops the reader and closes the port. It is idempotent and
// safe to call from any goroutine.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	s := c.sess
	c.sess = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if s == nil {
		return nil
	}

	s.cancel()
	// closing the port wakes a reader blocked in Read
	closeErr := s.port.Close()

	t := c.config.Clock.NewTimer(c.config.JoinTimeout)
	select {
	case <-s.done:
	case <-t.Chan():
		s.log.Warn().Dur("timeout", c.config.JoinTimeout).Msg("reader did not stop in time")
	}
	t.Stop()

	if closeErr != nil {
		return fmt.Errorf("close %s: %w", s.name, closeErr)
	}
	s.log.Info().Msg("disconnected")
	return nil
}

// IsConnected reports whether a session exists and its reader is running
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sess != nil && c.sess.alive()
}

// State returns the lifecycle state; a session whose reader stopped on a
// read failure reports StateDisconnected
func (c *Client) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.state == StateConnected && (c.sess == nil || !c.sess.alive()) {
		return StateDisconnected
	}
	return c.state
}

// Port returns the device path of the current session, or "" when disconnected
func (c *Client) Port() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sess == nil {
		return ""
	}
	return c.sess.name
}

// activeSession returns the session commands may use
func (c *Client) activeSession() (*session, error) {
	c.mu.RLock()
	s := c.sess
	c.mu.RUnlock()

	if s == nil {
		return nil, ErrNotConnected
	}
	if !s.alive() {
		return nil, ErrLinkLost
	}
	return s, nil
}
