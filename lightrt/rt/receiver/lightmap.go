package receiver

import (
	"encoding/binary"
	"fmt"

	"github.com/gekko3d/lightbake/lightrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// PackedLightmapReceiver is one lightmap texel influenced by up to three
// dynamic lights. X holds the texel UV, Y and Z the first two irradiance
// slots; all three are packed words reinterpreted as float bits.
type PackedLightmapReceiver struct {
	UVAndIrradiance01 mgl32.Vec3
	Irradiance2       core.Color32
}

// NewPackedLightmapReceiver addresses the centre of texel (x, y).
func NewPackedLightmapReceiver(x, y, width, height int) PackedLightmapReceiver {
	var r PackedLightmapReceiver
	w, h := float32(width), float32(height)
	r.SetUV(mgl32.Vec2{float32(x)/w + 0.5/w, float32(y)/h + 0.5/h})
	return r
}

func (r *PackedLightmapReceiver) SetUV(uv mgl32.Vec2) {
	r.UVAndIrradiance01[0] = core.AsFloat(core.PackR16G14ToUint(uv))
}

func (r *PackedLightmapReceiver) UV() mgl32.Vec2 {
	return core.UnpackR16G14ToUV(core.AsUint(r.UVAndIrradiance01[0]))
}

func (r *PackedLightmapReceiver) SetIrradiance(slot int, c core.Color32) {
	switch slot {
	case 0:
		r.UVAndIrradiance01[1] = core.AsFloat(core.SafelyPackColor32ToUint(c))
	case 1:
		r.UVAndIrradiance01[2] = core.AsFloat(core.SafelyPackColor32ToUint(c))
	case 2:
		r.Irradiance2 = c
	default:
		panic(fmt.Sprintf("lightmap receiver: irradiance slot %d out of range", slot))
	}
}

// Irradiance returns the colour stored in slot, as it will be read on the GPU.
func (r *PackedLightmapReceiver) Irradiance(slot int) core.Color32 {
	switch slot {
	case 0:
		return core.UnpackColor32(core.AsUint(r.UVAndIrradiance01[1]))
	case 1:
		return core.UnpackColor32(core.AsUint(r.UVAndIrradiance01[2]))
	case 2:
		return r.Irradiance2
	}
	panic(fmt.Sprintf("lightmap receiver: irradiance slot %d out of range", slot))
}

func (r PackedLightmapReceiver) ToBytes() []byte {
	buf := make([]byte, ReceiverStride)
	binary.LittleEndian.PutUint32(buf[0:4], core.AsUint(r.UVAndIrradiance01[0]))
	binary.LittleEndian.PutUint32(buf[4:8], core.AsUint(r.UVAndIrradiance01[1]))
	binary.LittleEndian.PutUint32(buf[8:12], core.AsUint(r.UVAndIrradiance01[2]))
	buf[12] = r.Irradiance2.R
	buf[13] = r.Irradiance2.G
	buf[14] = r.Irradiance2.B
	buf[15] = r.Irradiance2.A
	return buf
}

type LightmapContext struct {
	Asset      *core.ReceiverAsset
	LightCount int
	Width      int
	Height     int

	// DisableFrameGroups puts every receiver in DefaultFrameGroup so it is
	// refreshed each frame.
	DisableFrameGroups bool

	Logger core.Logger
}

type LightmapGroup = Group[PackedLightmapReceiver]
type LightmapResult = Result[PackedLightmapReceiver]

// ImportLightmapReceivers groups lightmap texels by the set of dynamic
// lights that reach them and by checkerboard frame group.
func ImportLightmapReceivers(ctx LightmapContext) LightmapResult {
	width, height := ctx.Width, ctx.Height
	if ctx.LightCount > 0 && ctx.Asset.LightCount() > 0 && (width <= 0 || height <= 0) {
		panic(fmt.Sprintf("lightmap receivers: invalid lightmap size %dx%d", width, height))
	}

	inside := func(r core.Receiver) (int, int) {
		x, y := int(r.PosX), int(r.PosY)
		if x >= width || y >= height {
			panic(fmt.Sprintf("lightmap receivers: texel (%d,%d) outside %dx%d", x, y, width, height))
		}
		return x, y
	}

	return classify(classifyParams{
		asset:            ctx.Asset,
		lightCount:       ctx.LightCount,
		frameGroupCount:  LightmapFrameGroupCount,
		splitFrameGroups: !ctx.DisableFrameGroups,
		log:              ctx.Logger,
		kind:             "lightmap",
	}, grid[PackedLightmapReceiver]{
		locationKey: func(r core.Receiver) int {
			x, y := inside(r)
			return x + y*width
		},
		frameGroup: func(r core.Receiver) int {
			return LightmapFrameGroup(int(r.PosX), int(r.PosY))
		},
		newRecord: func(r core.Receiver) PackedLightmapReceiver {
			return NewPackedLightmapReceiver(int(r.PosX), int(r.PosY), width, height)
		},
		setIrradiance: func(rec *PackedLightmapReceiver, slot int, c core.Color32) {
			rec.SetIrradiance(slot, c)
		},
	})
}
