package core

import "fmt"

// Color32 is an 8-bit-per-channel colour. Receiver irradiance is stored
// RGBM encoded in it.
type Color32 struct {
	R uint8 `json:"r" yaml:"r"`
	G uint8 `json:"g" yaml:"g"`
	B uint8 `json:"b" yaml:"b"`
	A uint8 `json:"a" yaml:"a"`
}

// Receiver is one baked sample: a lightmap texel or volumetric cell that
// received irradiance from a single dynamic light.
type Receiver struct {
	PosX uint32 `json:"x" yaml:"x"`
	PosY uint32 `json:"y" yaml:"y"`
	PosZ uint32 `json:"z,omitempty" yaml:"z,omitempty"`
	// RGBA8888, RGBM encoded
	Irradiance Color32 `json:"irradiance" yaml:"irradiance"`
	// Octahedron encoded
	Direction uint32 `json:"direction,omitempty" yaml:"direction,omitempty"`
}

func (r Receiver) Luminance() float32 {
	return Luminance(DecodeRGBM(r.Irradiance))
}

// HasIrradiance reports whether any colour channel is non-zero. The alpha
// (RGBM multiplier) channel is ignored.
func (r Receiver) HasIrradiance() bool {
	return r.Irradiance.R > 0 || r.Irradiance.G > 0 || r.Irradiance.B > 0
}

// Span addresses the receivers of one light inside ReceiverAsset.Receivers.
type Span struct {
	Offset int `json:"offset" yaml:"offset"`
	Count  int `json:"count" yaml:"count"`
}

// ReceiverAsset is the flat receiver list produced by the baker, partitioned
// per light: Offsets[i] locates the receivers of light i.
type ReceiverAsset struct {
	Offsets   []Span     `json:"offsets" yaml:"offsets"`
	Receivers []Receiver `json:"receivers" yaml:"receivers"`
}

func (a *ReceiverAsset) LightCount() int {
	if a == nil {
		return 0
	}
	return len(a.Offsets)
}

// ForLight returns the receivers of light i. The returned slice aliases the
// asset storage.
func (a *ReceiverAsset) ForLight(i int) []Receiver {
	if i < 0 || i >= len(a.Offsets) {
		panic(fmt.Sprintf("receiver asset: light index %d out of range [0,%d)", i, len(a.Offsets)))
	}
	s := a.Offsets[i]
	return a.Receivers[s.Offset : s.Offset+s.Count]
}

// AppendLight adds the receivers of the next light and records its span.
func (a *ReceiverAsset) AppendLight(receivers []Receiver) {
	a.Offsets = append(a.Offsets, Span{Offset: len(a.Receivers), Count: len(receivers)})
	a.Receivers = append(a.Receivers, receivers...)
}

// Validate checks that every span lies inside the receiver list.
func (a *ReceiverAsset) Validate() error {
	for i, s := range a.Offsets {
		if s.Offset < 0 || s.Count < 0 || s.Offset+s.Count > len(a.Receivers) {
			return fmt.Errorf("light %d span [%d,+%d) exceeds %d receivers", i, s.Offset, s.Count, len(a.Receivers))
		}
	}
	return nil
}
