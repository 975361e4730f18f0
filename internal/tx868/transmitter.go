package tx868

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"

	"github.com/goepfert/TX868-HTU21-LowPower/internal/utils"
)

// Transmitter owns a frame and the bit clock keying it. Send always transmits the
// frame as last encoded, so a frame can be repeated without re-encoding.
type Transmitter struct {
	mu     sync.Mutex
	enc    Encoder
	bits   *BitClock
	timing Timing
	logger *slog.Logger
}

type Option func(*options)

type options struct {
	timing Timing
	clock  Clock
	logger *slog.Logger
}

// WithTiming overrides the reference protocol constants.
func WithTiming(t Timing) Option {
	return func(o *options) { o.timing = t }
}

// WithClock replaces the default monotonic clock.
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New binds a transmitter to line and drives it LOW. It fails with
// ErrLineUnavailable if the line cannot be driven.
func New(line Line, opts ...Option) (*Transmitter, error) {
	o := options{timing: DefaultTiming()}
	for _, opt := range opts {
		opt(&o)
	}
	if err := o.timing.Validate(); err != nil {
		return nil, err
	}
	if line == nil {
		return nil, fmt.Errorf("%w: no line", ErrLineUnavailable)
	}
	if o.clock == nil {
		o.clock = NewMonoClock()
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if err := line.Set(false); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLineUnavailable, err)
	}
	return &Transmitter{
		bits:   NewBitClock(line, o.clock, o.timing),
		timing: o.timing,
		logger: o.logger,
	}, nil
}

func (t *Transmitter) SetAddress(addr byte) {
	t.mu.Lock()
	t.enc.SetAddress(addr)
	t.mu.Unlock()
}

func (t *Transmitter) SetDataType(kind DataType) {
	t.mu.Lock()
	t.enc.SetDataType(kind)
	t.mu.Unlock()
}

// SetData encodes a reading. See Encoder.SetData.
func (t *Transmitter) SetData(temp, humidity, voltage float64) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enc.SetData(temp, humidity, voltage)
}

// Frame returns a copy of the frame Send would transmit.
func (t *Transmitter) Frame() Frame {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.enc.Frame()
}

func (t *Transmitter) Timing() Timing { return t.timing }

// Send keys the current frame and blocks until the EOF marker is complete. The
// sequence is never aborted; a line error seen on the way is returned afterwards.
func (t *Transmitter) Send() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	frame := t.enc.Frame()
	checksum := t.transmit(frame)

	if err := t.bits.Err(); err != nil {
		return fmt.Errorf("send frame %s: %w", frame, err)
	}
	t.logger.Debug("frame sent",
		"address", frame.Address(),
		"data_type", frame.DataType().String(),
		"frame", frame.String(),
		"checksum", utils.Hex2(checksum),
	)
	return nil
}

// transmit runs SYNC, START, DATA, CHECKSUM and EOF with the goroutine pinned to
// its thread. Nothing in here may log or allocate.
func (t *Transmitter) transmit(frame Frame) byte {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	t.bits.SendBit(true)
	for i := 0; i < t.timing.NSync; i++ {
		t.bits.SendBit(false)
	}
	t.bits.SendBit(true)

	sum := 0
	for _, b := range frame {
		sum += int(b)
		t.sendByte(b)
	}
	checksum := byte(sum + checksumBias)
	t.sendByte(checksum)

	t.sendEOF()
	return checksum
}

func (t *Transmitter) sendByte(b byte) {
	for i := 0; i < 8; i++ {
		t.bits.SendBit(b&0x01 != 0)
		b >>= 1
	}
	t.bits.SendBit(true)
}

func (t *Transmitter) sendEOF() {
	t.bits.Mark()
	t.bits.Hold(2 * t.timing.Total)
	t.bits.SendBit(true)
	t.bits.Release()
}
