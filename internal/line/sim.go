package line

import (
	"log/slog"
	"sync"
)

// Sim is an output line without hardware. It tracks the level and counts rising
// edges so a daemon can run (and be tested) on a workstation.
type Sim struct {
	mu     sync.Mutex
	high   bool
	rises  int
	logger *slog.Logger
}

func NewSim(logger *slog.Logger) *Sim {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sim{logger: logger}
}

func (s *Sim) Set(high bool) error {
	s.mu.Lock()
	if high && !s.high {
		s.rises++
	}
	s.high = high
	s.mu.Unlock()
	return nil
}

// High reports the current level.
func (s *Sim) High() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.high
}

// Rises returns the number of LOW to HIGH transitions seen so far.
func (s *Sim) Rises() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rises
}

func (s *Sim) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.high = false
	s.logger.Debug("sim line closed", "rises", s.rises)
	return nil
}

func (s *Sim) String() string { return "sim" }

// VirtualClock is a tx868.Clock whose delays return immediately and advance
// virtual time instead. Frames keyed with it take no wall time.
type VirtualClock struct {
	mu  sync.Mutex
	now uint64
}

func (c *VirtualClock) NowMicros() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *VirtualClock) DelayMicros(us uint64) {
	c.mu.Lock()
	c.now += us
	c.mu.Unlock()
}
