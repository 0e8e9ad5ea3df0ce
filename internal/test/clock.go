package test

import (
	"sync"
	"time"
)

// Clock is a manual clock, starting at a fixed date.
type Clock struct {
	mtx sync.Mutex
	now time.Time
}

func NewClock() *Clock {
	return &Clock{now: time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC)}
}

// Now is usable as a Config.Clock.
func (c *Clock) Now() time.Time {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.now = c.now.Add(d)
}
