package receiver

import (
	"encoding/binary"
	"fmt"

	"github.com/gekko3d/lightbake/lightrt/rt/core"
)

// PackedVolumetricReceiver is one volume cell influenced by up to three
// dynamic lights.
type PackedVolumetricReceiver struct {
	XYZ         uint32
	Irradiance0 uint32
	Irradiance1 uint32
	Irradiance2 uint32
}

func NewPackedVolumetricReceiver(x, y, z int) PackedVolumetricReceiver {
	return PackedVolumetricReceiver{XYZ: core.PackR10G11B11ToUint(x, y, z)}
}

func (r *PackedVolumetricReceiver) Cell() (x, y, z int) {
	return core.UnpackR10G11B11(r.XYZ)
}

func (r *PackedVolumetricReceiver) SetIrradiance(slot int, c core.Color32) {
	v := core.SafelyPackColor32ToUint(c)
	switch slot {
	case 0:
		r.Irradiance0 = v
	case 1:
		r.Irradiance1 = v
	case 2:
		r.Irradiance2 = v
	default:
		panic(fmt.Sprintf("volumetric receiver: irradiance slot %d out of range", slot))
	}
}

func (r *PackedVolumetricReceiver) Irradiance(slot int) core.Color32 {
	switch slot {
	case 0:
		return core.UnpackColor32(r.Irradiance0)
	case 1:
		return core.UnpackColor32(r.Irradiance1)
	case 2:
		return core.UnpackColor32(r.Irradiance2)
	}
	panic(fmt.Sprintf("volumetric receiver: irradiance slot %d out of range", slot))
}

func (r PackedVolumetricReceiver) ToBytes() []byte {
	buf := make([]byte, ReceiverStride)
	binary.LittleEndian.PutUint32(buf[0:4], r.XYZ)
	binary.LittleEndian.PutUint32(buf[4:8], r.Irradiance0)
	binary.LittleEndian.PutUint32(buf[8:12], r.Irradiance1)
	binary.LittleEndian.PutUint32(buf[12:16], r.Irradiance2)
	return buf
}

// Largest volume the packed cell coordinates can address. Mirroring shifts
// x up by one past the width, which costs two columns.
const (
	MaxVolumeWidth         = 1 << 10
	MaxVolumeHeight        = 1 << 11
	MaxVolumeDepth         = 1 << 11
	MaxMirroredVolumeWidth = MaxVolumeWidth - 2
)

type VolumetricContext struct {
	Asset      *core.ReceiverAsset
	LightCount int
	Width      int
	Height     int
	Depth      int

	DisableFrameGroups bool

	// MirrorX selects the cell x written into each record. Off, records
	// keep the bake's x, for hosts whose volume texture shares the bake's
	// axes. On, records store width-x+1, the convention of update shaders
	// that sample the volume with a flipped x axis and a one texel border.
	// Mirrored volumes are limited to MaxMirroredVolumeWidth.
	MirrorX bool

	Logger core.Logger
}

type VolumetricGroup = Group[PackedVolumetricReceiver]
type VolumetricResult = Result[PackedVolumetricReceiver]

// ImportVolumetricReceivers groups volume cells by the set of dynamic lights
// that reach them and by 2x2x2 checkerboard frame group.
func ImportVolumetricReceivers(ctx VolumetricContext) VolumetricResult {
	width, height, depth := ctx.Width, ctx.Height, ctx.Depth
	if ctx.LightCount > 0 && ctx.Asset.LightCount() > 0 && (width <= 0 || height <= 0 || depth <= 0) {
		panic(fmt.Sprintf("volumetric receivers: invalid volume size %dx%dx%d", width, height, depth))
	}

	return classify(classifyParams{
		asset:            ctx.Asset,
		lightCount:       ctx.LightCount,
		frameGroupCount:  VolumetricFrameGroupCount,
		splitFrameGroups: !ctx.DisableFrameGroups,
		log:              ctx.Logger,
		kind:             "volumetric",
	}, grid[PackedVolumetricReceiver]{
		locationKey: func(r core.Receiver) int {
			x, y, z := int(r.PosX), int(r.PosY), int(r.PosZ)
			if x >= width || y >= height || z >= depth {
				panic(fmt.Sprintf("volumetric receivers: cell (%d,%d,%d) outside %dx%dx%d", x, y, z, width, height, depth))
			}
			return x + (y+z*height)*width
		},
		frameGroup: func(r core.Receiver) int {
			return VolumetricFrameGroup(int(r.PosX), int(r.PosY), int(r.PosZ))
		},
		newRecord: func(r core.Receiver) PackedVolumetricReceiver {
			x := int(r.PosX)
			if ctx.MirrorX {
				x = width - x + 1
			}
			return NewPackedVolumetricReceiver(x, int(r.PosY), int(r.PosZ))
		},
		setIrradiance: func(rec *PackedVolumetricReceiver, slot int, c core.Color32) {
			rec.SetIrradiance(slot, c)
		},
	})
}
