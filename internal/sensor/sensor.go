// Package sensor provides the readings a transmitter encodes: a BME280 on I2C via
// periph.io, or fixed values for development.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/devices/v3/bmxx80"
	"periph.io/x/host/v3"
)

// Source names accepted by Open.
const (
	SourceBME280 = "bme280"
	SourceStatic = "static"
)

var ErrUnknownSource = errors.New("unknown sensor source")

// Reading is one measurement in the units the frame encodes.
type Reading struct {
	Temperature float64 // °C
	Humidity    float64 // %RH
	Voltage     float64 // V
}

type Source interface {
	Read(ctx context.Context) (Reading, error)
	Close() error
}

type Options struct {
	Source  string
	I2CBus  string // "" selects the default bus, usually /dev/i2c-1
	Address uint16
	// Voltage is reported as supply voltage; the BME280 cannot measure it.
	Voltage float64
	Static  Reading
}

func Open(opts Options) (Source, error) {
	switch opts.Source {
	case SourceBME280:
		return OpenBME280(opts.I2CBus, opts.Address, opts.Voltage)
	case SourceStatic:
		r := opts.Static
		r.Voltage = opts.Voltage
		return NewStatic(r), nil
	default:
		return nil, fmt.Errorf("%w %q (allowed: %s, %s)", ErrUnknownSource, opts.Source, SourceBME280, SourceStatic)
	}
}

// BME280 reads temperature and humidity from a Bosch BME280.
type BME280 struct {
	bus     i2c.BusCloser
	dev     *bmxx80.Dev
	voltage float64
}

func OpenBME280(busName string, addr uint16, voltage float64) (*BME280, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("i2c open %q: %w", busName, err)
	}

	dev, err := bmxx80.NewI2C(bus, addr, &bmxx80.DefaultOpts)
	if err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("bme280 at %#x: %w", addr, err)
	}

	return &BME280{bus: bus, dev: dev, voltage: voltage}, nil
}

func (s *BME280) Read(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	var env physic.Env
	if err := s.dev.Sense(&env); err != nil {
		return Reading{}, fmt.Errorf("bme280 sense: %w", err)
	}
	return FromEnv(env, s.voltage), nil
}

func (s *BME280) Close() error {
	return errors.Join(s.dev.Halt(), s.bus.Close())
}

// FromEnv converts a periph measurement.
func FromEnv(env physic.Env, voltage float64) Reading {
	return Reading{
		Temperature: env.Temperature.Celsius(),
		Humidity:    float64(env.Humidity) / float64(physic.PercentRH),
		Voltage:     voltage,
	}
}

// Static returns the same reading until changed with Set.
type Static struct {
	mu sync.Mutex
	r  Reading
}

func NewStatic(r Reading) *Static {
	return &Static{r: r}
}

func (s *Static) Read(ctx context.Context) (Reading, error) {
	if err := ctx.Err(); err != nil {
		return Reading{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r, nil
}

func (s *Static) Set(r Reading) {
	s.mu.Lock()
	s.r = r
	s.mu.Unlock()
}

func (s *Static) Close() error { return nil }
