package receiver

import (
	"github.com/google/uuid"
)

// ReceiverStride is the size in bytes of one packed record on the GPU.
const ReceiverStride = 16

// AssetId names a receiver group buffer for the host renderer.
type AssetId string

func makeAssetId() AssetId {
	return AssetId(uuid.NewString())
}

// Record is a packed per-location receiver ready for upload.
type Record interface {
	ToBytes() []byte
}

// Group holds the receivers of one light combination in one frame group.
type Group[R Record] struct {
	ID         AssetId
	Lights     []int
	FrameGroup int
	Receivers  []R
}

// Key returns the lookup key of g.
func (g *Group[R]) Key() GroupKey {
	return GroupKey{Lights: NewCombination(g.Lights...), FrameGroup: g.FrameGroup}
}

// AlwaysUpdated reports whether g opted out of temporal splitting.
func (g *Group[R]) AlwaysUpdated() bool {
	return g.FrameGroup == DefaultFrameGroup
}

// Bytes concatenates the packed records, ReceiverStride bytes each.
func (g *Group[R]) Bytes() []byte {
	out := make([]byte, 0, len(g.Receivers)*ReceiverStride)
	for _, r := range g.Receivers {
		out = append(out, r.ToBytes()...)
	}
	return out
}

// Result lists the groups of one classification pass by combination size.
type Result[R Record] struct {
	OneLight   []*Group[R]
	TwoLight   []*Group[R]
	ThreeLight []*Group[R]

	// Locations touched by more than MaxLightsPerReceiver lights.
	DroppedLocations int
}

// ByLightCount returns the groups whose combination has n lights.
func (r *Result[R]) ByLightCount(n int) []*Group[R] {
	switch n {
	case 1:
		return r.OneLight
	case 2:
		return r.TwoLight
	case 3:
		return r.ThreeLight
	}
	return nil
}

func (r *Result[R]) All() []*Group[R] {
	out := make([]*Group[R], 0, len(r.OneLight)+len(r.TwoLight)+len(r.ThreeLight))
	out = append(out, r.OneLight...)
	out = append(out, r.TwoLight...)
	return append(out, r.ThreeLight...)
}

func (r *Result[R]) ReceiverCount() int {
	n := 0
	for _, g := range r.All() {
		n += len(g.Receivers)
	}
	return n
}

func (r *Result[R]) add(size int, g *Group[R]) {
	switch size {
	case 1:
		r.OneLight = append(r.OneLight, g)
	case 2:
		r.TwoLight = append(r.TwoLight, g)
	case 3:
		r.ThreeLight = append(r.ThreeLight, g)
	default:
		panic("receiver: group size out of range")
	}
}
