package governance

import (
	"time"
)

type manualClock struct {
	t time.Time
}

func newManualClock() *manualClock {
	return &manualClock{t: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)}
}

func (c *manualClock) Now() time.Time { return c.t }

func (c *manualClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func testSpamConfig() SpamConfig {
	return SpamConfig{
		MinInterval:  800 * time.Millisecond,
		TooFastBlock: 3 * time.Second,
		Window:       5 * time.Minute,
		Cap:          5,
		Block:        10 * time.Minute,
	}
}
