// Command txframe encodes one reading, prints the resulting frame and optionally
// keys it once on a GPIO line.
//
//	txframe -t 21.5 -h 55.2 -v 3.3 -addr 2
//	txframe -t 21.5 -h 55.2 -v 3.3 -send -pin GPIO17
package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/goepfert/TX868-HTU21-LowPower/internal/line"
	"github.com/goepfert/TX868-HTU21-LowPower/internal/tx868"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "txframe: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("txframe", flag.ContinueOnError)
	temp := fs.Float64("t", 20, "temperature in °C")
	hum := fs.Float64("h", 50, "relative humidity in %")
	volt := fs.Float64("v", 3.3, "supply voltage in V")
	addr := fs.Uint("addr", 2, "device address (0-255)")
	kind := fs.String("type", "htv", "data type: htv or none")
	wrap := fs.Bool("wrap", false, "wrap out-of-range values like legacy encoders instead of failing")
	send := fs.Bool("send", false, "key the frame once")
	driver := fs.String("line", line.DriverPeriph, "line driver: periph or sim")
	pin := fs.String("pin", "GPIO17", "gpio pin name")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *wrap && *send {
		return fmt.Errorf("-wrap cannot be combined with -send")
	}
	if *addr > 0xFF {
		return fmt.Errorf("address %d does not fit a byte", *addr)
	}
	dataType, err := tx868.ParseDataType(*kind)
	if err != nil {
		return err
	}

	var enc tx868.Encoder
	enc.SetDataType(dataType)
	enc.SetAddress(byte(*addr))
	if *wrap {
		enc.SetDataWrapped(*temp, *hum, *volt)
	} else if err := enc.SetData(*temp, *hum, *volt); err != nil {
		return err
	}

	frame := enc.Frame()
	timing := tx868.DefaultTiming()
	fmt.Fprintf(stdout, "frame     %v\n", frame.Bytes())
	fmt.Fprintf(stdout, "hex       %s\n", frame)
	fmt.Fprintf(stdout, "sum       %d\n", frame.Sum())
	fmt.Fprintf(stdout, "checksum  %d\n", frame.Checksum())
	fmt.Fprintf(stdout, "decoded   %.2f°C %.2f%% %.2fV\n", frame.Temperature(), frame.Humidity(), frame.Voltage())
	fmt.Fprintf(stdout, "slots     %d\n", timing.Slots())
	fmt.Fprintf(stdout, "duration  %v\n", timing.FrameDuration())

	if !*send {
		return nil
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	out, err := line.Open(*driver, *pin, logger)
	if err != nil {
		return err
	}
	defer out.Close()

	tx, err := tx868.New(out, tx868.WithLogger(logger))
	if err != nil {
		return err
	}
	tx.SetDataType(dataType)
	tx.SetAddress(byte(*addr))
	if err := tx.SetData(*temp, *hum, *volt); err != nil {
		return err
	}
	if err := tx.Send(); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "sent      on %s\n", out)
	return nil
}
