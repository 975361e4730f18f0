package line

import (
	"fmt"
	"sync"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/goepfert/TX868-HTU21-LowPower/internal/tx868"
)

var (
	hostOnce sync.Once
	hostErr  error
)

// Periph drives a GPIO pin through periph.io (Raspberry Pi, BeagleBone, ...).
type Periph struct {
	pin gpio.PinOut
}

// OpenPeriph resolves name (e.g. "GPIO17", "P1_11") and drives it LOW.
func OpenPeriph(name string) (*Periph, error) {
	hostOnce.Do(func() {
		_, hostErr = host.Init()
	})
	if hostErr != nil {
		return nil, fmt.Errorf("%w: host init: %v", tx868.ErrLineUnavailable, hostErr)
	}
	return openPin(name)
}

func openPin(name string) (*Periph, error) {
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: no gpio named %q", tx868.ErrLineUnavailable, name)
	}
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", tx868.ErrLineUnavailable, name, err)
	}
	return &Periph{pin: pin}, nil
}

func (p *Periph) Set(high bool) error {
	return p.pin.Out(gpio.Level(high))
}

// Close leaves the radio keyed off.
func (p *Periph) Close() error {
	if err := p.pin.Out(gpio.Low); err != nil {
		return err
	}
	return p.pin.Halt()
}

func (p *Periph) String() string {
	return p.pin.Name()
}
