// Package tx868 encodes temperature, humidity and supply voltage readings into the
// 8-byte ELV frame and keys it onto a digital output line driving a TX868 radio module.
// The pulse train is understood by ELV weather-station receivers (USB-WDE 1, WS 200/300,
// IPWE 1) that decode S 300 / ASH 2200 sensors.
//
// Wire format, one bit slot per logical bit, every slot Total µs long:
//
//	logical 1: HIGH for Short µs, LOW for the rest of the slot
//	logical 0: HIGH for Long = Total-Short µs, LOW for the rest of the slot
//
// A frame is a sync preamble (1 then NSync zeros), a start bit, the eight frame bytes
// and a checksum byte (each LSB first followed by a 1 stop bit) and an end-of-frame
// marker (HIGH held for 2*Total µs followed by a final 1 bit).
package tx868

import (
	"fmt"
	"time"
)

// Reference protocol constants.
const (
	Total  uint64 = 2000 // bit slot in µs
	Short  uint64 = 600  // HIGH time of a logical 1 in µs
	Long          = Total - Short
	NSync         = 9 // zeros following the leading 1 of the preamble
	Length        = 8 // frame bytes

	checksumBias = 5
	slotsPerByte = 9
)

// Timing holds the protocol constants used by one transmitter. It is fixed at
// construction and never changes while a frame is on the air.
type Timing struct {
	Total uint64
	Short uint64
	NSync int
}

// DefaultTiming returns the reference timing understood by ELV receivers.
func DefaultTiming() Timing {
	return Timing{Total: Total, Short: Short, NSync: NSync}
}

// Long returns the HIGH time of a logical 0.
func (t Timing) Long() uint64 {
	return t.Total - t.Short
}

// Validate reports whether the timing can produce a decodable pulse train.
func (t Timing) Validate() error {
	if t.Total == 0 {
		return fmt.Errorf("%w: bit period must be positive", ErrInvalidTiming)
	}
	if t.Short == 0 || t.Short >= t.Total {
		return fmt.Errorf("%w: short pulse %dµs must be within (0, %dµs)", ErrInvalidTiming, t.Short, t.Total)
	}
	if t.NSync < 0 {
		return fmt.Errorf("%w: negative sync length %d", ErrInvalidTiming, t.NSync)
	}
	return nil
}

// Slots returns the number of bit slots in one frame:
// sync lead, NSync zeros, start bit, Length+1 framed bytes and the EOF bit.
func (t Timing) Slots() int {
	return 1 + t.NSync + 1 + (Length+1)*slotsPerByte + 1
}

// FrameDuration returns the nominal on-air time of one frame, measured from the first
// rising edge to the final falling edge. The EOF slot is stretched by 2*Total.
func (t Timing) FrameDuration() time.Duration {
	us := uint64(t.Slots()-1)*t.Total + 2*t.Total + t.Short
	return time.Duration(us) * time.Microsecond
}

// DataType tags the payload layout of a frame.
type DataType byte

const (
	HTV  DataType = iota // temperature, humidity, voltage
	None                 // no payload
)

func (d DataType) String() string {
	switch d {
	case HTV:
		return "htv"
	case None:
		return "none"
	default:
		return fmt.Sprintf("DataType(%d)", byte(d))
	}
}

// ParseDataType accepts the names returned by DataType.String.
func ParseDataType(s string) (DataType, error) {
	switch s {
	case "htv", "HTV":
		return HTV, nil
	case "none", "NONE":
		return None, nil
	default:
		return 0, fmt.Errorf("unknown data type %q (allowed: htv, none)", s)
	}
}
