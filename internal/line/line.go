// Package line provides the output lines a transmitter can key: a periph.io GPIO
// pin on real hardware and an in-memory line for development.
package line

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/goepfert/TX868-HTU21-LowPower/internal/tx868"
)

// Driver names accepted by Open.
const (
	DriverPeriph = "periph"
	DriverSim    = "sim"
)

// Output is a line that can be released when the daemon stops.
type Output interface {
	tx868.Line
	io.Closer
	fmt.Stringer
}

// Open returns the output line for driver. pin is ignored by the sim driver.
func Open(driver, pin string, logger *slog.Logger) (Output, error) {
	switch driver {
	case DriverPeriph:
		p, err := OpenPeriph(pin)
		if err != nil {
			return nil, err
		}
		return p, nil
	case DriverSim:
		return NewSim(logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown line driver %q", tx868.ErrLineUnavailable, driver)
	}
}
