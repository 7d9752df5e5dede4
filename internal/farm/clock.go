package farm

// Clock supplies the current time in unix seconds. Operations read it once.
type Clock interface {
	Now() uint64
}

// ManualClock is a Clock driven explicitly by the caller.
type ManualClock struct {
	ts uint64
}

func NewManualClock(ts uint64) *ManualClock {
	return &ManualClock{ts: ts}
}

func (c *ManualClock) Now() uint64 { return c.ts }

// Set moves the clock to ts. Moving backwards is ignored.
func (c *ManualClock) Set(ts uint64) {
	if ts > c.ts {
		c.ts = ts
	}
}

func (c *ManualClock) Advance(seconds uint64) {
	c.ts += seconds
}
