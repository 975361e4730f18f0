package tx868

import (
	"encoding/binary"

	"github.com/goepfert/TX868-HTU21-LowPower/internal/utils"
)

// Byte offsets inside a Frame.
const (
	OffsetDataType = 0
	OffsetAddress  = 1
	OffsetVal1     = 2 // temperature
	OffsetVal2     = 4 // humidity
	OffsetVal3     = 6 // voltage
)

const temperatureOffset = 50.0

// Frame is the 8-byte payload keyed on the line. Values are int16 little-endian.
type Frame [Length]byte

func (f Frame) DataType() DataType { return DataType(f[OffsetDataType]) }

func (f Frame) Address() byte { return f[OffsetAddress] }

// Sum adds the frame bytes without truncation.
func (f Frame) Sum() int {
	sum := 0
	for _, b := range f {
		sum += int(b)
	}
	return sum
}

// Checksum returns (Sum+5) mod 256, the byte sent after the frame.
func (f Frame) Checksum() byte {
	return byte(f.Sum() + checksumBias)
}

// Temperature decodes VAL1 in °C.
func (f Frame) Temperature() float64 {
	return float64(f.value(OffsetVal1))/100 - temperatureOffset
}

// Humidity decodes VAL2 in %RH.
func (f Frame) Humidity() float64 {
	return float64(f.value(OffsetVal2)) / 100
}

// Voltage decodes VAL3 in V.
func (f Frame) Voltage() float64 {
	return float64(f.value(OffsetVal3)) / 100
}

// Bytes returns the frame in wire order as a new slice.
func (f Frame) Bytes() []byte {
	return append([]byte(nil), f[:]...)
}

// String renders the frame bytes as upper-case hex, e.g. "0002EE1B90154A01".
func (f Frame) String() string {
	return utils.BytesToHex(f[:])
}

func (f Frame) value(off int) int16 {
	return int16(binary.LittleEndian.Uint16(f[off : off+2]))
}

func (f *Frame) putValue(off int, v int16) {
	binary.LittleEndian.PutUint16(f[off:off+2], uint16(v))
}
