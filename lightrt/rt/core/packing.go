package core

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	mask10Bit = (1 << 10) - 1
	mask11Bit = (1 << 11) - 1
	mask14Bit = (1 << 14) - 1
	mask16Bit = (1 << 16) - 1
)

// PackR16G14ToUint packs a [0,1] UV into 16 bits of x (bits 0-15) and 14 bits
// of y (bits 16-29). Bit 30 stays clear, so the word reinterpreted as a
// float32 never has an all-ones exponent and cannot become NaN or Inf.
func PackR16G14ToUint(uv mgl32.Vec2) uint32 {
	x := uint32(clamp01(uv.X())*mask16Bit) & mask16Bit
	y := uint32(clamp01(uv.Y())*mask14Bit) & mask14Bit
	return x | y<<16
}

// UnpackR16G14ToUV is the inverse of PackR16G14ToUint.
func UnpackR16G14ToUV(v uint32) mgl32.Vec2 {
	return mgl32.Vec2{
		float32(v&mask16Bit) / mask16Bit,
		float32((v>>16)&mask14Bit) / mask14Bit,
	}
}

// PackR10G11B11ToUint packs a grid coordinate as x:10 (bits 22-31),
// y:11 (bits 11-21), z:11 (bits 0-10).
func PackR10G11B11ToUint(x, y, z int) uint32 {
	if x < 0 || x > mask10Bit || y < 0 || y > mask11Bit || z < 0 || z > mask11Bit {
		panic("PackR10G11B11ToUint: coordinate out of range")
	}
	return uint32(x)<<22 | uint32(y)<<11 | uint32(z)
}

func UnpackR10G11B11(v uint32) (x, y, z int) {
	return int(v >> 22 & mask10Bit), int(v >> 11 & mask11Bit), int(v & mask11Bit)
}

// SafelyPackColor32ToUint packs RGBA little end first. Colours whose packed
// bit pattern would read back as a NaN float have their alpha nudged down
// by one step.
func SafelyPackColor32ToUint(c Color32) uint32 {
	x := uint32(c.R)
	y := uint32(c.G) << 8
	z := uint32(c.B) << 16
	w := uint32(c.A) << 24
	if (c.A == 127 || c.A == 255) && c.B > 127 {
		w = uint32(c.A-1) << 24
	}
	return x | y | z | w
}

func UnpackColor32(v uint32) Color32 {
	return Color32{R: uint8(v), G: uint8(v >> 8), B: uint8(v >> 16), A: uint8(v >> 24)}
}

func AsFloat(v uint32) float32 { return math.Float32frombits(v) }
func AsUint(f float32) uint32  { return math.Float32bits(f) }
