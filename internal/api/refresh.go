package api

import (
	"context"
	"errors"
	"sync"
)

// errRefreshAborted is handed to queued requests when the leading request
// exits its refresh without settling it, e.g. on a panic.
var errRefreshAborted = errors.New("token refresh aborted")

type refreshOutcome struct {
	token string
	err   error
}

// pendingRefresh is a request suspended behind the refresh in flight. It is
// resolved exactly once, by settle.
type pendingRefresh struct {
	done chan refreshOutcome
}

// wait blocks until the refresh settles or ctx is done. A request that stops
// waiting stays queued; its outcome is delivered and dropped.
func (p *pendingRefresh) wait(ctx context.Context) (string, error) {
	select {
	case out := <-p.done:
		return out.token, out.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// refreshCoordinator lets one request at a time renew the session while the
// others queue up for its outcome.
type refreshCoordinator struct {
	mu       sync.Mutex
	inFlight bool
	queue    []*pendingRefresh
}

// acquireOrWait returns leader=true when the caller must perform the refresh
// and later call settle. Otherwise the caller is queued and gets a future.
func (c *refreshCoordinator) acquireOrWait() (leader bool, waiter *pendingRefresh) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.inFlight {
		c.inFlight = true
		return true, nil
	}
	p := &pendingRefresh{done: make(chan refreshOutcome, 1)}
	c.queue = append(c.queue, p)
	return false, p
}

// settle resolves every queued request in enqueue order with the same
// outcome, then releases the in-flight flag. It returns how many requests
// were released.
func (c *refreshCoordinator) settle(token string, err error) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := len(c.queue)
	for _, p := range c.queue {
		p.done <- refreshOutcome{token: token, err: err}
	}
	c.queue = nil
	c.inFlight = false
	return n
}

func (c *refreshCoordinator) waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queue)
}

func (c *refreshCoordinator) refreshing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.inFlight
}
