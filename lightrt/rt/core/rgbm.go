package core

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// rgbmRange is the HDR range of the RGBM encoding, applied in sqrt space.
const rgbmRange = 6.0

// DecodeRGBM converts an RGBM colour to linear RGB.
func DecodeRGBM(c Color32) mgl32.Vec3 {
	m := float32(c.A) / 255
	decode := func(v uint8) float32 {
		x := rgbmRange * (float32(v) / 255) * m
		return x * x
	}
	return mgl32.Vec3{decode(c.R), decode(c.G), decode(c.B)}
}

// EncodeRGBM converts linear RGB to RGBM. The multiplier is rounded up to the
// next 8-bit step so that the colour channels never overflow.
func EncodeRGBM(col mgl32.Vec3) Color32 {
	enc := mgl32.Vec3{
		math32.Sqrt(math32.Max(col.X(), 0)) / rgbmRange,
		math32.Sqrt(math32.Max(col.Y(), 0)) / rgbmRange,
		math32.Sqrt(math32.Max(col.Z(), 0)) / rgbmRange,
	}
	m := clamp01(math32.Max(math32.Max(enc.X(), enc.Y()), enc.Z()))
	m = math32.Ceil(m*255) / 255
	if m <= 0 {
		return Color32{}
	}
	enc = enc.Mul(1 / m)
	return Color32{
		R: unorm8(enc.X()),
		G: unorm8(enc.Y()),
		B: unorm8(enc.Z()),
		A: unorm8(m),
	}
}

// Luminance uses the Rec. 709 weights.
func Luminance(col mgl32.Vec3) float32 {
	return col.Dot(mgl32.Vec3{0.2126, 0.7152, 0.0722})
}

func clamp01(v float32) float32 {
	return math32.Min(math32.Max(v, 0), 1)
}

func unorm8(v float32) uint8 {
	return uint8(math32.Round(clamp01(v) * 255))
}
