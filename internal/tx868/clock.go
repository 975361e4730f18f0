package tx868

import "time"

// MonoClock reads Go's monotonic clock. DelayMicros spins on it and never parks
// the goroutine.
type MonoClock struct {
	epoch time.Time
}

func NewMonoClock() *MonoClock {
	return &MonoClock{epoch: time.Now()}
}

func (c *MonoClock) NowMicros() uint64 {
	return uint64(time.Since(c.epoch).Microseconds())
}

func (c *MonoClock) DelayMicros(us uint64) {
	d := time.Duration(us) * time.Microsecond
	start := time.Now()
	for time.Since(start) < d {
	}
}
