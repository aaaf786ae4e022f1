package pdm

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/allbin/go-pdm/internal/syncutil"
)

// echoPrefix marks the firmware echoing a command back; never a response
const echoPrefix = "Received:"

// router is the per-session queue that command waits consume. The reader
// publishes every framed line; closing signals that no more will arrive.
type router struct {
	mu    syncutil.Mutex
	queue []string

	notify    chan struct{}
	closed    chan struct{}
	closeOnce sync.Once
}

func newRouter() *router {
	return &router{
		notify: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (r *router) publish(line string) {
	r.mu.Lock()
	r.queue = append(r.queue, line)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
}

func (r *router) pop() (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.queue) == 0 {
		return "", false
	}
	line := r.queue[0]
	r.queue[0] = ""
	r.queue = r.queue[1:]
	return line, true
}

// drain discards queued lines and returns how many were dropped
func (r *router) drain() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.queue)
	r.queue = nil
	return n
}

func (r *router) close() {
	r.closeOnce.Do(func() { close(r.closed) })
}

// next blocks until a line is available. It fails with ErrTimeout when
// expired fires, ErrLinkLost once the router is closed and empty, or the
// context's error.
func (r *router) next(ctx context.Context, expired <-chan time.Time) (string, error) {
	for {
		if line, ok := r.pop(); ok {
			return line, nil
		}

		select {
		case <-r.notify:
		case <-r.closed:
			if line, ok := r.pop(); ok {
				return line, nil
			}
			return "", ErrLinkLost
		case <-expired:
			return "", ErrTimeout
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				return "", ErrTimeout
			}
			return "", ctx.Err()
		}
	}
}

// nextResponse skips firmware echo lines
func (r *router) nextResponse(ctx context.Context, expired <-chan time.Time) (string, error) {
	for {
		line, err := r.next(ctx, expired)
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(line, echoPrefix) {
			continue
		}
		return line, nil
	}
}
