package hmip

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// correlator matches response frames to in-flight requests by frame ID.
// Each request registers a single-buffered channel; the read loop resolves
// it when the matching response arrives.
type correlator struct {
	mu      sync.Mutex
	pending map[string]chan ResponseBody
}

func newCorrelator() *correlator {
	return &correlator{pending: make(map[string]chan ResponseBody)}
}

// register reserves a fresh request ID and returns the channel its
// response will be delivered on.
func (c *correlator) register() (string, chan ResponseBody) {
	id := uuid.NewString()
	ch := make(chan ResponseBody, 1)

	c.mu.Lock()
	c.pending[id] = ch
	c.mu.Unlock()

	return id, ch
}

// resolve delivers a response to its waiter. Returns false when no request
// with that ID is pending, which happens after a timeout already gave up
// on the request.
func (c *correlator) resolve(id string, body ResponseBody) bool {
	c.mu.Lock()
	ch, ok := c.pending[id]
	if ok {
		delete(c.pending, id)
	}
	c.mu.Unlock()

	if !ok {
		return false
	}
	ch <- body
	return true
}

// discard removes a pending request without delivering a response.
func (c *correlator) discard(id string) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// await blocks until the response arrives, the timeout expires, or the
// done channel closes (connection loss fails all in-flight requests).
func (c *correlator) await(id string, ch chan ResponseBody, timeout time.Duration, done <-chan struct{}) (ResponseBody, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case body, ok := <-ch:
		if !ok {
			return ResponseBody{}, ErrConnectionLost
		}
		return body, nil
	case <-timer.C:
		c.discard(id)
		return ResponseBody{}, fmt.Errorf("%w: no response within %s", ErrRequestTimeout, timeout)
	case <-done:
		c.discard(id)
		return ResponseBody{}, ErrConnectionLost
	}
}

// failAll closes every pending channel, waking all waiters with
// ErrConnectionLost. Called when the session dies.
func (c *correlator) failAll() {
	c.mu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()
}

// pendingCount reports the number of in-flight requests.
func (c *correlator) pendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}
