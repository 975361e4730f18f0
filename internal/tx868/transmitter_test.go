package tx868

import (
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"
)

// simClock advances only when delayed.
type simClock struct {
	now uint64
}

func (c *simClock) NowMicros() uint64     { return c.now }
func (c *simClock) DelayMicros(us uint64) { c.now += us }

type level struct {
	at   uint64
	high bool
}

// recLine records every Set call against a simClock. work, if set, is charged to
// the clock after each LOW to mimic code running between bits.
type recLine struct {
	clock  *simClock
	levels []level
	work   func() uint64
	failOn int
	calls  int
}

func (l *recLine) Set(high bool) error {
	l.calls++
	l.levels = append(l.levels, level{at: l.clock.now, high: high})
	if !high && l.work != nil {
		l.clock.now += l.work()
	}
	if l.failOn > 0 && l.calls == l.failOn {
		return errors.New("gpio write failed")
	}
	return nil
}

type pulse struct {
	rise, fall uint64
}

func (p pulse) high() uint64 { return p.fall - p.rise }

// pulses folds repeated levels and returns HIGH periods in order.
func (l *recLine) pulses() []pulse {
	var out []pulse
	high := false
	for _, lv := range l.levels {
		switch {
		case lv.high && !high:
			out = append(out, pulse{rise: lv.at})
		case !lv.high && high:
			out[len(out)-1].fall = lv.at
		}
		high = lv.high
	}
	return out
}

func newRecorded(t *testing.T, opts ...Option) (*Transmitter, *recLine) {
	t.Helper()
	clock := &simClock{now: 12345}
	line := &recLine{clock: clock}
	tx, err := New(line, append([]Option{WithClock(clock)}, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	line.levels = nil
	return tx, line
}

func referenceTransmitter(t *testing.T, opts ...Option) (*Transmitter, *recLine) {
	t.Helper()
	tx, line := newRecorded(t, opts...)
	tx.SetDataType(HTV)
	tx.SetAddress(2)
	if err := tx.SetData(21.5, 55.2, 3.30); err != nil {
		t.Fatalf("SetData: %v", err)
	}
	return tx, line
}

// decodeBits maps each pulse to a bit; the EOF pulse decodes as 1.
func decodeBits(t *testing.T, ps []pulse, timing Timing) []bool {
	t.Helper()
	bits := make([]bool, len(ps))
	for i, p := range ps {
		switch p.high() {
		case timing.Short, 2*timing.Total + timing.Short:
			bits[i] = true
		case timing.Long():
			bits[i] = false
		default:
			t.Fatalf("pulse %d: HIGH for %dµs", i, p.high())
		}
	}
	return bits
}

func TestNew_DrivesLineLow(t *testing.T) {
	clock := &simClock{}
	line := &recLine{clock: clock}
	if _, err := New(line, WithClock(clock)); err != nil {
		t.Fatalf("New: %v", err)
	}
	if len(line.levels) != 1 || line.levels[0].high {
		t.Fatalf("levels after New = %+v, want a single LOW", line.levels)
	}
}

func TestNew_LineUnavailable(t *testing.T) {
	clock := &simClock{}
	line := &recLine{clock: clock, failOn: 1}
	_, err := New(line, WithClock(clock))
	if !errors.Is(err, ErrLineUnavailable) {
		t.Fatalf("New error = %v, want ErrLineUnavailable", err)
	}
	if _, err := New(nil); !errors.Is(err, ErrLineUnavailable) {
		t.Fatalf("New(nil) error = %v, want ErrLineUnavailable", err)
	}
}

func TestNew_InvalidTiming(t *testing.T) {
	tests := []struct {
		name   string
		timing Timing
	}{
		{name: "zero period", timing: Timing{Total: 0, Short: 0, NSync: 9}},
		{name: "short equals total", timing: Timing{Total: 2000, Short: 2000, NSync: 9}},
		{name: "zero short", timing: Timing{Total: 2000, Short: 0, NSync: 9}},
		{name: "negative sync", timing: Timing{Total: 2000, Short: 600, NSync: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &simClock{}
			_, err := New(&recLine{clock: clock}, WithClock(clock), WithTiming(tt.timing))
			if !errors.Is(err, ErrInvalidTiming) {
				t.Fatalf("New error = %v, want ErrInvalidTiming", err)
			}
		})
	}
}

func TestTiming_Reference(t *testing.T) {
	timing := DefaultTiming()
	if timing.Slots() != 93 {
		t.Errorf("Slots() = %d, want 93", timing.Slots())
	}
	if timing.Long() != 1400 {
		t.Errorf("Long() = %d, want 1400", timing.Long())
	}
	if got, want := timing.FrameDuration(), 188600*time.Microsecond; got != want {
		t.Errorf("FrameDuration() = %v, want %v", got, want)
	}
}

func TestSend_SlotCount(t *testing.T) {
	frames := []Frame{
		{},
		{0, 2, 238, 27, 144, 21, 74, 1},
		{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
	}
	for _, f := range frames {
		tx, line := newRecorded(t)
		tx.enc.frame = f
		if err := tx.Send(); err != nil {
			t.Fatalf("Send: %v", err)
		}
		if got := len(line.pulses()); got != 93 {
			t.Fatalf("frame %v: %d slots, want 93", f, got)
		}
	}
}

func TestSend_SlotTiming(t *testing.T) {
	tx, line := referenceTransmitter(t)
	if err := tx.Send(); err != nil {
		t.Fatalf("Send: %v", err)
	}

	ps := line.pulses()
	last := len(ps) - 1
	for i, p := range ps[:last] {
		if h := p.high(); h != Short && h != Long {
			t.Fatalf("slot %d: HIGH %dµs, want %d or %d", i, h, Short, Long)
		}
		if period := ps[i+1].rise - p.rise; period != Total {
			t.Fatalf("slot %d: period %dµs, want %d", i, period, Total)
		}
	}
	if h := ps[last].high(); h != 2*Total+Short {
		t.Fatalf("EOF slot: HIGH %dµs, want %d", h, 2*Total+Short)
	}
	if lv := line.levels[len(line.levels)-1]; lv.high {
		t.Fatal("line left HIGH after Send")
	}
	if got := ps[last].fall - ps[0].rise; time.Duration(got)*time.Microsecond != tx.Timing().FrameDuration() {
		t.Errorf("frame took %dµs, want %v", got, tx.Timing().FrameDuration())
	}
}

func TestSend_Wire(t *testing.T) {
	tx, line := referenceTransmitter(t)
	if err := tx.Send(); err != nil {
		t.Fatalf("Send: %v", err)
	}
	bits := decodeBits(t, line.pulses(), DefaultTiming())

	if !bits[0] {
		t.Fatal("sync lead bit is 0")
	}
	for i := 1; i <= NSync; i++ {
		if bits[i] {
			t.Fatalf("sync bit %d is 1", i)
		}
	}
	if !bits[NSync+1] {
		t.Fatal("start bit is 0")
	}

	var got []byte
	pos := NSync + 2
	for n := 0; n < Length+1; n++ {
		var b byte
		for i := 0; i < 8; i++ {
			if bits[pos+i] {
				b |= 1 << i
			}
		}
		if !bits[pos+8] {
			t.Fatalf("byte %d: stop bit is 0", n)
		}
		got = append(got, b)
		pos += 9
	}
	want := []byte{0, 2, 238, 27, 144, 21, 74, 1, 0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("wire bytes = %v, want %v", got, want)
		}
	}
	if pos != len(bits)-1 || !bits[pos] {
		t.Fatalf("EOF bit missing at %d of %d", pos, len(bits))
	}
}

func TestSend_AbsorbsWorkBetweenBits(t *testing.T) {
	rng := rand.New(rand.NewSource(2000))
	tx, line := referenceTransmitter(t)
	// Any work shorter than the LOW part of a 0 bit must not move an edge.
	line.work = func() uint64 { return uint64(rng.Intn(int(Short))) }
	if err := tx.Send(); err != nil {
		t.Fatalf("Send: %v", err)
	}

	ps := line.pulses()
	if len(ps) != 93 {
		t.Fatalf("%d slots, want 93", len(ps))
	}
	for i := 1; i < len(ps); i++ {
		if period := ps[i].rise - ps[i-1].rise; period != Total {
			t.Fatalf("slot %d: period %dµs, want %d", i-1, period, Total)
		}
	}
}

func TestSend_Idempotent(t *testing.T) {
	tx, line := referenceTransmitter(t)
	if err := tx.Send(); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	first := line.pulses()
	line.levels = nil
	line.clock.now += 1_000_000
	if err := tx.Send(); err != nil {
		t.Fatalf("second Send: %v", err)
	}
	second := line.pulses()

	if len(first) != len(second) {
		t.Fatalf("slot counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a := pulse{first[i].rise - first[0].rise, first[i].fall - first[0].rise}
		b := pulse{second[i].rise - second[0].rise, second[i].fall - second[0].rise}
		if a != b {
			t.Fatalf("slot %d differs: %+v vs %+v", i, a, b)
		}
	}
}

func TestSend_BackToBackWaitsForDeadline(t *testing.T) {
	tx, line := referenceTransmitter(t)
	if err := tx.Send(); err != nil {
		t.Fatalf("first Send: %v", err)
	}
	eof := line.pulses()[92]
	line.levels = nil
	if err := tx.Send(); err != nil {
		t.Fatalf("second Send: %v", err)
	}
	// The EOF bit scheduled its successor one slot after the final rising edge.
	rise := line.pulses()[0].rise
	if want := eof.rise + 2*Total + Total; rise != want {
		t.Fatalf("second frame starts at %d, want %d", rise, want)
	}
}

func TestSend_LineErrorDoesNotAbort(t *testing.T) {
	tx, line := referenceTransmitter(t)
	line.failOn = line.calls + 10
	err := tx.Send()
	if err == nil {
		t.Fatal("Send error = nil, want line error")
	}
	if got := len(line.pulses()); got != 93 {
		t.Fatalf("%d slots after line error, want 93", got)
	}

	line.levels = nil
	if err := tx.Send(); err != nil {
		t.Fatalf("Send after recovery: %v", err)
	}
}

func TestSend_CustomTiming(t *testing.T) {
	timing := Timing{Total: 1000, Short: 300, NSync: 4}
	tx, line := newRecorded(t, WithTiming(timing))
	if err := tx.Send(); err != nil {
		t.Fatalf("Send: %v", err)
	}
	ps := line.pulses()
	if len(ps) != timing.Slots() || timing.Slots() != 88 {
		t.Fatalf("%d slots, Slots() = %d, want 88", len(ps), timing.Slots())
	}
	bits := decodeBits(t, ps, timing)
	for i := 1; i <= 4; i++ {
		if bits[i] {
			t.Fatalf("sync bit %d is 1", i)
		}
	}
}

func TestSend_IndependentTransmitters(t *testing.T) {
	var wg sync.WaitGroup
	results := make([][]pulse, 4)
	for i := range results {
		i := i
		tx, line := referenceTransmitter(t)
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tx.Send(); err != nil {
				t.Errorf("Send: %v", err)
				return
			}
			results[i] = line.pulses()
		}()
	}
	wg.Wait()

	for i := 1; i < len(results); i++ {
		if len(results[i]) != len(results[0]) {
			t.Fatalf("transmitter %d: %d slots, want %d", i, len(results[i]), len(results[0]))
		}
		for j := range results[0] {
			if results[i][j] != results[0][j] {
				t.Fatalf("transmitter %d slot %d: %+v, want %+v", i, j, results[i][j], results[0][j])
			}
		}
	}
}
