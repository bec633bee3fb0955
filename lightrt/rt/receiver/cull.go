package receiver

import (
	"slices"

	"github.com/chewxy/math32"
	"github.com/gekko3d/lightbake/lightrt/rt/core"
)

// MinReceiverLuminance is the luminance below which a sample is treated as
// unlit and discarded before culling.
const MinReceiverLuminance = 0.001

// CullAndSmooth keeps the brightest (1-cullingRatio) share of src and fades
// samples between the culling threshold and a conservative upper threshold
// towards zero, so the cut does not show as a hard edge. conservativeFactor
// in [0,1] moves the upper threshold from the maximum luminance (0) down to
// the culling threshold (1). src is not modified.
func CullAndSmooth(src []core.Receiver, cullingRatio, conservativeFactor float32) []core.Receiver {
	cullingRatio = clamp01(cullingRatio)
	conservativeFactor = clamp01(conservativeFactor)

	lit := make([]core.Receiver, 0, len(src))
	lum := make([]float32, 0, len(src))
	for _, r := range src {
		l := r.Luminance()
		if l < MinReceiverLuminance {
			continue
		}
		lit = append(lit, r)
		lum = append(lum, l)
	}
	if len(lit) == 0 {
		return lit
	}

	sorted := slices.Clone(lum)
	slices.Sort(sorted)
	n := len(sorted)

	targetIndex := min(int(cullingRatio*float32(n)), n-1)
	threshold := sorted[targetIndex]

	conservativeIndex := int((cullingRatio + (1-conservativeFactor)*(1-cullingRatio)) * float32(n))
	conservativeIndex = min(max(conservativeIndex, targetIndex), n-1)
	upper := sorted[conservativeIndex]

	out := lit[:0]
	for i, r := range lit {
		l := lum[i]
		if l < threshold {
			continue
		}
		if targetIndex > 0 && l < upper {
			r.Irradiance = attenuate(r.Irradiance, l, threshold, upper)
		}
		out = append(out, r)
	}
	return out
}

// attenuate scales an RGBM colour by 1 - t^4 where t is how far its
// luminance sits below upper, relative to the threshold..upper range.
func attenuate(c core.Color32, luminance, threshold, upper float32) core.Color32 {
	rangeLen := upper - threshold
	if rangeLen <= 0 {
		return c
	}
	t := clamp01((upper - luminance) / rangeLen)
	t *= t
	attenuation := clamp01(1 - t*t)
	return core.EncodeRGBM(core.DecodeRGBM(c).Mul(attenuation))
}

func clamp01(v float32) float32 {
	return math32.Min(math32.Max(v, 0), 1)
}
