package protocol

import (
	"encoding/binary"
	"math"
)

// IEEE-11073 medical floats used by the SIG health profiles: SFLOAT is a
// 16-bit value with a 12-bit mantissa and 4-bit exponent, FLOAT is 32-bit
// with a 24-bit mantissa and 8-bit exponent. Both are little-endian with
// base-10 exponents.

const (
	sfloatNaN = 0x07ff
	floatNaN  = 0x007fffff
)

// SFloat decodes a 16-bit IEEE-11073 SFLOAT. Returns NaN for the
// reserved special values.
func SFloat(data []byte) float64 {
	if len(data) < 2 {
		return math.NaN()
	}
	raw := binary.LittleEndian.Uint16(data)

	mantissa := int(raw & 0x0fff)
	if mantissa == sfloatNaN {
		return math.NaN()
	}
	if mantissa >= 0x0800 {
		mantissa -= 0x1000
	}

	exponent := int(raw >> 12)
	if exponent >= 0x08 {
		exponent -= 0x10
	}

	return float64(mantissa) * math.Pow10(exponent)
}

// Float decodes a 32-bit IEEE-11073 FLOAT
func Float(data []byte) float64 {
	if len(data) < 4 {
		return math.NaN()
	}
	raw := binary.LittleEndian.Uint32(data)

	mantissa := int(raw & 0x00ffffff)
	if mantissa == floatNaN {
		return math.NaN()
	}
	if mantissa >= 0x00800000 {
		mantissa -= 0x01000000
	}

	exponent := int(int8(raw >> 24))

	return float64(mantissa) * math.Pow10(exponent)
}
