package tx868

// Line is a push-pull digital output feeding the radio module.
type Line interface {
	Set(high bool) error
}

// Clock is a monotonic microsecond clock with a blocking delay. DelayMicros must
// not yield to a scheduler; pulse widths are only as exact as the delay.
type Clock interface {
	NowMicros() uint64
	DelayMicros(us uint64)
}

// BitClock keys single bits onto a line. Every bit starts at an absolute deadline
// recorded when the previous bit went HIGH, so time spent between calls is absorbed
// by the wait before the next edge instead of stretching the slot.
type BitClock struct {
	line     Line
	clock    Clock
	timing   Timing
	nextEdge uint64
	err      error
}

func NewBitClock(line Line, clock Clock, timing Timing) *BitClock {
	return &BitClock{line: line, clock: clock, timing: timing}
}

// SendBit emits one bit slot: HIGH for Short (1) or Long (0) µs, then LOW.
func (c *BitClock) SendBit(one bool) {
	c.Mark()
	if one {
		c.clock.DelayMicros(c.timing.Short)
	} else {
		c.clock.DelayMicros(c.timing.Long())
	}
	c.Release()
}

// Mark waits for the pending edge, drives the line HIGH and schedules the next
// edge one slot later.
func (c *BitClock) Mark() {
	c.WaitEdge()
	c.set(true)
	c.nextEdge = c.clock.NowMicros() + c.timing.Total
}

// WaitEdge busy-waits until the scheduled edge if it lies in the future.
func (c *BitClock) WaitEdge() {
	if now := c.clock.NowMicros(); c.nextEdge > now {
		c.clock.DelayMicros(c.nextEdge - now)
	}
}

// Hold keeps the current line level for us microseconds.
func (c *BitClock) Hold(us uint64) {
	c.clock.DelayMicros(us)
}

// Release drives the line LOW.
func (c *BitClock) Release() {
	c.set(false)
}

// Reset forgets the pending deadline and any latched line error.
func (c *BitClock) Reset() {
	c.nextEdge = 0
	c.err = nil
}

// Err returns the first line error since the last call and clears it. Line errors
// never interrupt the timed sequence.
func (c *BitClock) Err() error {
	err := c.err
	c.err = nil
	return err
}

func (c *BitClock) set(high bool) {
	if err := c.line.Set(high); err != nil && c.err == nil {
		c.err = err
	}
}
