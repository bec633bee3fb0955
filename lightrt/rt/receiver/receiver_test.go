package receiver

import (
	"math/bits"
	"math/rand"
	"testing"

	"github.com/gekko3d/lightbake/lightrt/rt/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lit(x, y, z uint32, v uint8) core.Receiver {
	return core.Receiver{PosX: x, PosY: y, PosZ: z, Irradiance: core.Color32{R: v, G: v, B: v / 2, A: 128}}
}

func assetOf(perLight ...[]core.Receiver) *core.ReceiverAsset {
	a := &core.ReceiverAsset{}
	for _, rs := range perLight {
		a.AppendLight(rs)
	}
	return a
}

func TestImportLightmap_TwoLightsShareOneRecord(t *testing.T) {
	a := lit(3, 5, 0, 40)
	b := lit(3, 5, 0, 90)
	res := ImportLightmapReceivers(LightmapContext{
		Asset:      assetOf([]core.Receiver{a}, []core.Receiver{b}),
		LightCount: 2,
		Width:      8,
		Height:     8,
	})

	assert.Empty(t, res.OneLight)
	assert.Empty(t, res.ThreeLight)
	require.Len(t, res.TwoLight, 1)

	g := res.TwoLight[0]
	assert.Equal(t, []int{0, 1}, g.Lights)
	assert.Equal(t, LightmapFrameGroup(3, 5), g.FrameGroup)
	assert.Equal(t, 3, g.FrameGroup)
	assert.NotEmpty(t, g.ID)
	require.Len(t, g.Receivers, 1)

	rec := g.Receivers[0]
	assert.Equal(t, a.Irradiance, rec.Irradiance(0))
	assert.Equal(t, b.Irradiance, rec.Irradiance(1))
	uv := rec.UV()
	assert.InDelta(t, 3.5/8, uv.X(), 1e-3)
	assert.InDelta(t, 5.5/8, uv.Y(), 1e-3)
}

func TestImportLightmap_ThreeLightsUseIrradiance2(t *testing.T) {
	res := ImportLightmapReceivers(LightmapContext{
		Asset: assetOf(
			[]core.Receiver{lit(1, 1, 0, 10)},
			[]core.Receiver{lit(1, 1, 0, 20)},
			[]core.Receiver{lit(1, 1, 0, 30)},
		),
		LightCount:         3,
		Width:              4,
		Height:             4,
		DisableFrameGroups: true,
	})
	require.Len(t, res.ThreeLight, 1)
	rec := res.ThreeLight[0].Receivers[0]
	assert.Equal(t, uint8(30), rec.Irradiance2.R)
	assert.Len(t, res.ThreeLight[0].Bytes(), ReceiverStride)
}

func TestImportLightmap_DropsLocationsWithMoreThanThreeLights(t *testing.T) {
	var perLight [][]core.Receiver
	for i := 0; i < 4; i++ {
		perLight = append(perLight, []core.Receiver{lit(2, 2, 0, 50)})
	}
	// A second texel lit by light 0 only survives.
	perLight[0] = append(perLight[0], lit(0, 0, 0, 50))

	res := ImportLightmapReceivers(LightmapContext{Asset: assetOf(perLight...), LightCount: 4, Width: 4, Height: 4})
	assert.Equal(t, 1, res.DroppedLocations)
	assert.Equal(t, 1, res.ReceiverCount())
	require.Len(t, res.OneLight, 1)
	assert.Equal(t, []int{0}, res.OneLight[0].Lights)
}

func TestImportLightmap_DisabledFrameGroupsUseDefault(t *testing.T) {
	res := ImportLightmapReceivers(LightmapContext{
		Asset:              assetOf([]core.Receiver{lit(0, 0, 0, 10), lit(1, 0, 0, 10), lit(0, 1, 0, 10)}),
		LightCount:         1,
		Width:              2,
		Height:             2,
		DisableFrameGroups: true,
	})
	require.Len(t, res.OneLight, 1)
	g := res.OneLight[0]
	assert.Equal(t, DefaultFrameGroup, g.FrameGroup)
	assert.True(t, g.AlwaysUpdated())
	assert.Len(t, g.Receivers, 3)
}

func TestImportLightmap_SplitsByCheckerboard(t *testing.T) {
	var rs []core.Receiver
	for y := uint32(0); y < 4; y++ {
		for x := uint32(0); x < 4; x++ {
			rs = append(rs, lit(x, y, 0, 10))
		}
	}
	res := ImportLightmapReceivers(LightmapContext{Asset: assetOf(rs), LightCount: 1, Width: 4, Height: 4})
	require.Len(t, res.OneLight, LightmapFrameGroupCount)
	for i, g := range res.OneLight {
		assert.Equal(t, i, g.FrameGroup)
		assert.Len(t, g.Receivers, 4)
		assert.False(t, g.AlwaysUpdated())
	}
}

func TestImportLightmap_IgnoresBlackSamples(t *testing.T) {
	black := core.Receiver{PosX: 1, PosY: 1, Irradiance: core.Color32{A: 255}}
	res := ImportLightmapReceivers(LightmapContext{
		Asset:      assetOf([]core.Receiver{lit(1, 1, 0, 10)}, []core.Receiver{black}),
		LightCount: 2,
		Width:      2,
		Height:     2,
	})
	assert.Empty(t, res.TwoLight)
	require.Len(t, res.OneLight, 1)
	assert.Equal(t, []int{0}, res.OneLight[0].Lights)
}

func TestImportLightmap_EmptyInputs(t *testing.T) {
	res := ImportLightmapReceivers(LightmapContext{Asset: &core.ReceiverAsset{}, LightCount: 0})
	assert.Empty(t, res.All())

	res = ImportLightmapReceivers(LightmapContext{Asset: assetOf(nil, nil), LightCount: 2, Width: 4, Height: 4})
	assert.Empty(t, res.All())
}

func TestImportLightmap_Panics(t *testing.T) {
	asset := assetOf([]core.Receiver{lit(0, 0, 0, 1)}, []core.Receiver{lit(0, 0, 0, 1)})
	assert.Panics(t, func() {
		ImportLightmapReceivers(LightmapContext{Asset: asset, LightCount: 1, Width: 2, Height: 2})
	}, "asset has more lights than the scene")

	assert.Panics(t, func() {
		ImportLightmapReceivers(LightmapContext{Asset: asset, LightCount: 2, Width: 0, Height: 0})
	}, "missing lightmap size")

	outside := assetOf([]core.Receiver{lit(5, 0, 0, 1)})
	assert.Panics(t, func() {
		ImportLightmapReceivers(LightmapContext{Asset: outside, LightCount: 1, Width: 2, Height: 2})
	}, "texel outside the lightmap")

	assert.Panics(t, func() {
		ImportLightmapReceivers(LightmapContext{Asset: asset, LightCount: MaxDynamicLights + 1, Width: 2, Height: 2})
	})
}

func TestImportLightmap_GroupOrder(t *testing.T) {
	// Lights {0,2} at two parities and {0,1} at one.
	res := ImportLightmapReceivers(LightmapContext{
		Asset: assetOf(
			[]core.Receiver{lit(0, 0, 0, 10), lit(1, 0, 0, 10), lit(3, 3, 0, 10)},
			[]core.Receiver{lit(3, 3, 0, 10)},
			[]core.Receiver{lit(0, 0, 0, 10), lit(1, 0, 0, 10)},
		),
		LightCount: 3,
		Width:      4,
		Height:     4,
	})
	require.Len(t, res.TwoLight, 3)
	assert.Equal(t, []int{0, 1}, res.TwoLight[0].Lights)
	assert.Equal(t, 3, res.TwoLight[0].FrameGroup)
	assert.Equal(t, []int{0, 2}, res.TwoLight[1].Lights)
	assert.Equal(t, 0, res.TwoLight[1].FrameGroup)
	assert.Equal(t, []int{0, 2}, res.TwoLight[2].Lights)
	assert.Equal(t, 1, res.TwoLight[2].FrameGroup)
}

func TestImportVolumetric_UnionMatchesUsage(t *testing.T) {
	const w, h, d, lights = 6, 5, 4, 5
	rng := rand.New(rand.NewSource(7))

	asset := &core.ReceiverAsset{}
	for l := 0; l < lights; l++ {
		var rs []core.Receiver
		for i := 0; i < 40; i++ {
			rs = append(rs, lit(uint32(rng.Intn(w)), uint32(rng.Intn(h)), uint32(rng.Intn(d)), uint8(1+rng.Intn(200))))
		}
		asset.AppendLight(rs)
	}

	type cell struct{ x, y, z int }
	usage := map[cell]uint64{}
	for l := 0; l < lights; l++ {
		for _, r := range asset.ForLight(l) {
			usage[cell{int(r.PosX), int(r.PosY), int(r.PosZ)}] |= 1 << uint(l)
		}
	}
	want := map[cell]uint64{}
	dropped := 0
	for c, m := range usage {
		if bits.OnesCount64(m) <= MaxLightsPerReceiver {
			want[c] = m
		} else {
			dropped++
		}
	}

	res := ImportVolumetricReceivers(VolumetricContext{Asset: asset, LightCount: lights, Width: w, Height: h, Depth: d})
	assert.Equal(t, dropped, res.DroppedLocations)

	got := map[cell]uint64{}
	for n := 1; n <= MaxLightsPerReceiver; n++ {
		for _, g := range res.ByLightCount(n) {
			require.Len(t, g.Lights, n)
			var mask uint64
			for _, l := range g.Lights {
				mask |= 1 << uint(l)
			}
			for _, rec := range g.Receivers {
				x, y, z := rec.Cell()
				c := cell{x, y, z}
				_, dup := got[c]
				require.False(t, dup, "cell %v emitted twice", c)
				got[c] = mask
				assert.Equal(t, VolumetricFrameGroup(x, y, z), g.FrameGroup)
			}
		}
	}
	assert.Equal(t, want, got)
}

func TestImportVolumetric_MirrorX(t *testing.T) {
	asset := assetOf([]core.Receiver{lit(1, 2, 3, 10)})
	res := ImportVolumetricReceivers(VolumetricContext{Asset: asset, LightCount: 1, Width: 8, Height: 8, Depth: 8, MirrorX: true})
	require.Len(t, res.OneLight, 1)
	x, y, z := res.OneLight[0].Receivers[0].Cell()
	assert.Equal(t, []int{8, 2, 3}, []int{x, y, z})
}

func TestPackedVolumetricReceiver_ToBytes(t *testing.T) {
	r := NewPackedVolumetricReceiver(1, 2, 3)
	r.SetIrradiance(1, core.Color32{R: 9, A: 255})
	b := r.ToBytes()
	require.Len(t, b, ReceiverStride)
	assert.Equal(t, core.PackR10G11B11ToUint(1, 2, 3), uint32(b[0])|uint32(b[1])<<8|uint32(b[2])<<16|uint32(b[3])<<24)
	assert.Equal(t, byte(9), b[8])
	assert.Panics(t, func() { r.SetIrradiance(3, core.Color32{}) })
}

func TestCombination(t *testing.T) {
	c := NewCombination(1, 4, 7)
	assert.Equal(t, 1, c.IndexOf(4))
	assert.Equal(t, -1, c.IndexOf(5))
	assert.Equal(t, []int{1, 4, 7}, c.Slice())
	assert.Equal(t, c, combinationFromMask(1<<1|1<<4|1<<7, 3, 8))
	assert.Panics(t, func() { NewCombination(2, 1) })
	assert.Panics(t, func() { NewCombination() })
	assert.Panics(t, func() { combinationFromMask(1, 2, 8) })
}

func luminances(rs []core.Receiver) []float32 {
	out := make([]float32, len(rs))
	for i, r := range rs {
		out[i] = r.Luminance()
	}
	return out
}

func gradient(n int) []core.Receiver {
	rs := make([]core.Receiver, n)
	for i := range rs {
		v := uint8(20 * (i + 1))
		rs[i] = core.Receiver{PosX: uint32(i), Irradiance: core.Color32{R: v, G: v, B: v, A: 255}}
	}
	return rs
}

func TestCullAndSmooth_RatioZeroKeepsAll(t *testing.T) {
	src := gradient(10)
	src = append(src, core.Receiver{PosX: 99, Irradiance: core.Color32{A: 255}})
	out := CullAndSmooth(src, 0, 0.5)
	assert.Equal(t, gradient(10), out)
}

func TestCullAndSmooth_RatioOneKeepsMaximum(t *testing.T) {
	src := gradient(10)
	out := CullAndSmooth(src, 1, 0.5)
	require.Len(t, out, 1)
	assert.Equal(t, src[9], out[0])
}

func TestCullAndSmooth_FadesBetweenThresholds(t *testing.T) {
	src := gradient(10)
	before := luminances(src)
	out := CullAndSmooth(src, 0.5, 0.5)

	// threshold = sorted[5], upper = sorted[7]
	require.Len(t, out, 5)
	assert.Equal(t, src[5].PosX, out[0].PosX)
	assert.False(t, out[0].HasIrradiance(), "sample at the threshold fades to black")
	assert.Less(t, out[1].Luminance(), before[6])
	assert.Greater(t, out[1].Luminance(), float32(0))
	assert.Equal(t, src[7:], out[2:])
	assert.Equal(t, gradient(10), src, "input is not modified")
}

func TestCullAndSmooth_Empty(t *testing.T) {
	assert.Empty(t, CullAndSmooth(nil, 0.6, 0.5))
	assert.Empty(t, CullAndSmooth([]core.Receiver{{Irradiance: core.Color32{R: 0, A: 255}}}, 0.6, 0.5))
}
