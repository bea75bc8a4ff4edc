package protocol

import (
	"sync"
	"time"
)

// A Clock supplies server-synchronized time. Certificate and assertion
// windows are always checked against it, never against the local clock
// alone.
type Clock interface {
	Now() Timestamp
}

// SystemClock reads the local clock. Servers use it as their own time.
type SystemClock struct{}

func (SystemClock) Now() Timestamp {
	return TimestampOf(time.Now())
}

// ServerClock is the local clock corrected by the skew observed against
// the last server time reported to Sync.
type ServerClock struct {
	mu     sync.RWMutex
	offset time.Duration
	local  func() time.Time
}

// NewServerClock returns a ServerClock with no skew.
func NewServerClock() *ServerClock {
	return &ServerClock{local: time.Now}
}

// Sync records serverTime as the current server time.
func (c *ServerClock) Sync(serverTime Timestamp) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset = serverTime.Time().Sub(c.local())
}

// Skew returns the observed difference between server and local time.
func (c *ServerClock) Skew() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.offset
}

func (c *ServerClock) Now() Timestamp {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return TimestampOf(c.local().Add(c.offset))
}

// FixedClock always reports the same time. It is meant for tests.
type FixedClock Timestamp

func (c FixedClock) Now() Timestamp {
	return Timestamp(c)
}
