// Package dynamic drives the per-frame relighting of baked receivers from
// the current intensities of the dynamic lights.
package dynamic

import "github.com/chewxy/math32"

// MaxIntensity bounds the intensity a dynamic light can be driven to.
const MaxIntensity = 2.0

const (
	DefaultCullingRatio       = 0.6
	DefaultConservativeFactor = 0.5
)

// CullingSettings controls how many of a light's baked receivers survive
// import. See receiver.CullAndSmooth.
type CullingSettings struct {
	CullingRatioForLightmap                 float32 `json:"culling_ratio_lightmap" yaml:"culling_ratio_lightmap"`
	ConservativeFactorForLightmap           float32 `json:"conservative_factor_lightmap" yaml:"conservative_factor_lightmap"`
	CullingRatioForVolumetricLightmap       float32 `json:"culling_ratio_volumetric" yaml:"culling_ratio_volumetric"`
	ConservativeFactorForVolumetricLightmap float32 `json:"conservative_factor_volumetric" yaml:"conservative_factor_volumetric"`
}

func DefaultCullingSettings() CullingSettings {
	return CullingSettings{
		CullingRatioForLightmap:                 DefaultCullingRatio,
		ConservativeFactorForLightmap:           DefaultConservativeFactor,
		CullingRatioForVolumetricLightmap:       DefaultCullingRatio,
		ConservativeFactorForVolumetricLightmap: DefaultConservativeFactor,
	}
}

// Light is the runtime state of one dynamic light. Its index in the
// manager's light list is the light index used by receiver groups.
type Light struct {
	Name    string
	Culling CullingSettings

	intensity     float32
	delta         float32
	prevIntensity float32
}

func NewLight(name string, intensity float32) *Light {
	l := &Light{Name: name, Culling: DefaultCullingSettings(), prevIntensity: -1}
	l.SetIntensity(intensity)
	return l
}

func (l *Light) Intensity() float32 { return l.intensity }

// SetIntensity clamps to [0, MaxIntensity].
func (l *Light) SetIntensity(v float32) {
	l.intensity = math32.Min(math32.Max(v, 0), MaxIntensity)
}

// Delta is the intensity change seen by the last Tick.
func (l *Light) Delta() float32 { return l.delta }

// Tick samples the intensity for this frame. The first tick after creation
// reports no change.
func (l *Light) Tick() {
	if l.prevIntensity < 0 {
		l.delta = 0
	} else {
		l.delta = math32.Abs(l.intensity - l.prevIntensity)
	}
	l.prevIntensity = l.intensity
}

// Enable restarts change tracking from zero intensity.
func (l *Light) Enable() {
	l.delta = 0
	l.prevIntensity = 0
}

// MaxDelta is the largest Delta over lights.
func MaxDelta(lights []*Light) float32 {
	var d float32
	for _, l := range lights {
		d = math32.Max(d, l.Delta())
	}
	return d
}
