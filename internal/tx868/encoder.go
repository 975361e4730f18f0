package tx868

import (
	"fmt"
	"math"
)

// Encoder writes readings into a Frame as fixed-point values.
//
// Scaling is trunc((value+offset)*100 + 0.5) evaluated in float32: half ties round up
// for positive values and toward zero for negative ones. Receivers expect exactly this
// rounding, including the float32 error on inputs like 0.285 (scaled to 29, not 28).
type Encoder struct {
	frame Frame
}

// SetAddress stores addr verbatim. Receivers only interpret a small address range;
// no check is made here.
func (e *Encoder) SetAddress(addr byte) {
	e.frame[OffsetAddress] = addr
}

func (e *Encoder) SetDataType(kind DataType) {
	e.frame[OffsetDataType] = byte(kind)
}

// SetData encodes temperature (°C), humidity (%RH) and voltage (V).
//
// Unlike the legacy ELV encoders, which silently wrap values that overflow the 16-bit
// field, SetData rejects them with ErrOutOfRange and leaves the frame as it was.
// Use SetDataWrapped for the legacy behavior.
func (e *Encoder) SetData(temp, humidity, voltage float64) error {
	t, err := Scale(temp, temperatureOffset)
	if err != nil {
		return fmt.Errorf("temperature: %w", err)
	}
	h, err := Scale(humidity, 0)
	if err != nil {
		return fmt.Errorf("humidity: %w", err)
	}
	v, err := Scale(voltage, 0)
	if err != nil {
		return fmt.Errorf("voltage: %w", err)
	}
	e.put(t, h, v)
	return nil
}

// SetDataWrapped encodes like SetData but truncates out-of-range values to 16 bits
// (two's complement) the way the reference encoder does.
func (e *Encoder) SetDataWrapped(temp, humidity, voltage float64) {
	e.put(
		ScaleWrapped(temp, temperatureOffset),
		ScaleWrapped(humidity, 0),
		ScaleWrapped(voltage, 0),
	)
}

// Frame returns a copy of the current frame.
func (e *Encoder) Frame() Frame {
	return e.frame
}

func (e *Encoder) put(t, h, v int16) {
	e.frame.putValue(OffsetVal1, t)
	e.frame.putValue(OffsetVal2, h)
	e.frame.putValue(OffsetVal3, v)
}

// Scale converts value to the fixed-point representation.
func Scale(value, offset float64) (int16, error) {
	scaled := scale(value, offset)
	if math.IsNaN(scaled) || scaled < math.MinInt16 || scaled > math.MaxInt16 {
		return 0, fmt.Errorf("%w: %v", ErrOutOfRange, value)
	}
	return int16(scaled), nil
}

// ScaleWrapped converts value to fixed point keeping only the low 16 bits.
// NaN encodes as 0.
func ScaleWrapped(value, offset float64) int16 {
	scaled := scale(value, offset)
	if math.IsNaN(scaled) || math.IsInf(scaled, 0) {
		return 0
	}
	return int16(int64(math.Mod(scaled, 1<<16)))
}

// scale narrows value to float32 and rounds after every step so that no fused
// multiply-add changes the result.
func scale(value, offset float64) float64 {
	v := float32(value)
	sum := float32(v + float32(offset))
	product := float32(sum * 100)
	return math.Trunc(float64(float32(product + 0.5)))
}
