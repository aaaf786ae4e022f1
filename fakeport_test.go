package pdm

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/allbin/go-pdm/internal/serialport"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// fakePort is an in-memory serialport.Port. Lines written to it are
// recorded and handed to respond; feed queues inbound device output.
type fakePort struct {
	mu          sync.Mutex
	lines       []string
	partial     string
	respond     func(p *fakePort, line string)
	flushIn     int
	flushOut    int
	closeCount  int
	flushInErr  error
	readTimeout time.Duration

	incoming  chan []byte
	pending   []byte
	closed    chan struct{}
	closeOnce sync.Once
	failed    chan struct{}
	failOnce  sync.Once
	failErr   error

	// hungUp makes every Read return 0, nil at once, as a tty does after
	// a hangup when the transport cannot tell
	hungUp     chan struct{}
	hangupOnce sync.Once

	// ignoreClose keeps Read blocked after Close until release
	ignoreClose bool
	released    chan struct{}
}

func newFakePort() *fakePort {
	return &fakePort{
		incoming:    make(chan []byte, 1024),
		closed:      make(chan struct{}),
		failed:      make(chan struct{}),
		hungUp:      make(chan struct{}),
		released:    make(chan struct{}),
		readTimeout: 20 * time.Millisecond,
	}
}

// onLine installs a responder invoked for each complete written line
func (f *fakePort) onLine(fn func(p *fakePort, line string)) {
	f.mu.Lock()
	f.respond = fn
	f.mu.Unlock()
}

// feed queues device output lines, CRLF terminated
func (f *fakePort) feed(lines ...string) {
	for _, line := range lines {
		f.incoming <- []byte(line + "\r\n")
	}
}

func (f *fakePort) feedRaw(b []byte) {
	f.incoming <- b
}

// fail makes the next Read return err, as an unplugged adapter would
func (f *fakePort) fail(err error) {
	f.failOnce.Do(func() {
		f.failErr = err
		close(f.failed)
	})
}

func (f *fakePort) hangup() {
	f.hangupOnce.Do(func() { close(f.hungUp) })
}

func (f *fakePort) release() {
	close(f.released)
}

func (f *fakePort) written() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.lines...)
}

func (f *fakePort) closes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closeCount
}

func (f *fakePort) flushes() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.flushIn, f.flushOut
}

func (f *fakePort) Read(buf []byte) (int, error) {
	closed := f.closed
	if f.ignoreClose {
		closed = f.released
	}

	if len(f.pending) == 0 {
		select {
		case <-f.hungUp:
			return 0, nil
		default:
		}

		select {
		case chunk := <-f.incoming:
			f.pending = chunk
		case <-f.hungUp:
			return 0, nil
		case <-closed:
			return 0, serialport.ErrPortClosed
		case <-f.failed:
			return 0, f.failErr
		case <-time.After(f.readTimeout):
			return 0, nil
		}
	}
	n := copy(buf, f.pending)
	f.pending = f.pending[n:]
	return n, nil
}

func (f *fakePort) Write(data []byte) (int, error) {
	select {
	case <-f.closed:
		return 0, serialport.ErrPortClosed
	default:
	}

	f.mu.Lock()
	f.partial += string(data)
	var complete []string
	for {
		line, rest, ok := strings.Cut(f.partial, "\r\n")
		if !ok {
			break
		}
		complete = append(complete, line)
		f.partial = rest
	}
	f.lines = append(f.lines, complete...)
	respond := f.respond
	f.mu.Unlock()

	if respond != nil {
		for _, line := range complete {
			respond(f, line)
		}
	}
	return len(data), nil
}

func (f *fakePort) Close() error {
	f.mu.Lock()
	f.closeCount++
	f.mu.Unlock()
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakePort) Drain() error { return nil }

func (f *fakePort) FlushInput() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushIn++
	return f.flushInErr
}

func (f *fakePort) FlushOutput() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flushOut++
	return nil
}

// openerFor returns a PortOpener that always yields port
func openerFor(port serialport.Port) PortOpener {
	return func(string, time.Duration) (serialport.Port, error) {
		return port, nil
	}
}

func failingOpener(err error) PortOpener {
	return func(path string, _ time.Duration) (serialport.Port, error) {
		return nil, errors.Join(err, errors.New(path))
	}
}

// newTestClient builds a client with fast timings around port
func newTestClient(t *testing.T, port serialport.Port, opts ...Option) *Client {
	t.Helper()

	base := []Option{
		WithPortOpener(openerFor(port)),
		WithSettleDelay(0),
		WithPrimeDelay(0),
		WithReadTimeout(20 * time.Millisecond),
		WithCommandTimeout(500 * time.Millisecond),
		WithStatusWindow(500 * time.Millisecond),
		WithLogger(zerolog.Nop()),
	}
	c, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return c
}

// connectTestClient connects a fast client to a fresh fake port
func connectTestClient(t *testing.T, opts ...Option) (*Client, *fakePort) {
	t.Helper()

	port := newFakePort()
	c := newTestClient(t, port, opts...)
	require.NoError(t, c.Connect(t.Context(), "/dev/ttyFAKE0"))
	t.Cleanup(func() { _ = c.Disconnect() })
	return c, port
}

// queued reports how many lines wait in the current session's router
func queued(c *Client) int {
	c.mu.RLock()
	s := c.sess
	c.mu.RUnlock()
	if s == nil {
		return 0
	}
	s.router.mu.Lock()
	defer s.router.mu.Unlock()
	return len(s.router.queue)
}
