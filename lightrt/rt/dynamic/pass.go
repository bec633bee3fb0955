package dynamic

import (
	"fmt"

	"github.com/gekko3d/lightbake/lightrt/rt/core"
	"github.com/gekko3d/lightbake/lightrt/rt/frames"
	"github.com/gekko3d/lightbake/lightrt/rt/receiver"
)

// Compute work group sizes of the update shaders.
const (
	LightmapWorkGroupSize   = 64
	VolumetricWorkGroupSize = 8
)

// WorkGroupCount matches the dispatch size used by the update shaders,
// which always launch one extra group.
func WorkGroupCount(receivers, groupSize int) int {
	return receivers/groupSize + 1
}

// Dispatch is one group update: the host binds Group's buffer, sets the
// intensities and launches WorkGroups compute groups.
type Dispatch[R receiver.Record] struct {
	Group       *receiver.Group[R]
	Intensities [receiver.MaxLightsPerReceiver]float32
	WorkGroups  int
}

// Frame is the work selected for one frame.
type Frame[R receiver.Record] struct {
	Frames     frames.FrameState
	Dispatches []Dispatch[R]
}

func (f *Frame[R]) ReceiverCount() int {
	n := 0
	for _, d := range f.Dispatches {
		n += len(d.Group.Receivers)
	}
	return n
}

// Pass selects the receiver groups to refresh each frame.
type Pass[R receiver.Record] struct {
	Name          string
	groups        []*receiver.Group[R]
	allocator     *frames.Allocator
	workGroupSize int
	log           core.Logger
}

func NewPass[R receiver.Record](name string, result receiver.Result[R], allocator *frames.Allocator, workGroupSize int, logger core.Logger) *Pass[R] {
	if workGroupSize <= 0 {
		panic(fmt.Sprintf("dynamic pass %s: work group size %d", name, workGroupSize))
	}
	return &Pass[R]{
		Name:          name,
		groups:        result.All(),
		allocator:     allocator,
		workGroupSize: workGroupSize,
		log:           core.OrNop(logger),
	}
}

func NewLightmapPass(result receiver.LightmapResult, logger core.Logger) *Pass[receiver.PackedLightmapReceiver] {
	return NewPass("lightmap", result, frames.NewLightmapAllocator(), LightmapWorkGroupSize, logger)
}

func NewVolumetricPass(result receiver.VolumetricResult, logger core.Logger) *Pass[receiver.PackedVolumetricReceiver] {
	return NewPass("volumetric", result, frames.NewVolumetricAllocator(), VolumetricWorkGroupSize, logger)
}

func (p *Pass[R]) Groups() []*receiver.Group[R] { return p.groups }

func (p *Pass[R]) Allocator() *frames.Allocator { return p.allocator }

// Begin picks this frame's work from the lights' current deltas. While not
// playing every frame group is refreshed. ok is false when there is nothing
// to dispatch.
func (p *Pass[R]) Begin(lights []*Light, playing bool) (frame Frame[R], ok bool) {
	if len(lights) == 0 || len(p.groups) == 0 {
		return frame, false
	}

	if playing {
		frame.Frames = p.allocator.AllocateFrames(MaxDelta(lights))
	} else {
		frame.Frames = p.allocator.AllocateAllFrames()
	}
	if frame.Frames.Empty() {
		return frame, false
	}

	for _, g := range p.groups {
		if !frame.Frames.Contains(g.FrameGroup) && !g.AlwaysUpdated() {
			continue
		}
		d := Dispatch[R]{Group: g, WorkGroups: WorkGroupCount(len(g.Receivers), p.workGroupSize)}
		for slot, light := range g.Lights {
			if light >= len(lights) {
				panic(fmt.Sprintf("dynamic pass %s: group references light %d of %d", p.Name, light, len(lights)))
			}
			d.Intensities[slot] = lights[light].Intensity()
		}
		frame.Dispatches = append(frame.Dispatches, d)
	}

	if p.log.DebugEnabled() {
		p.log.Debugf("%s pass: frame groups %v, %d dispatches, %d receivers",
			p.Name, frame.Frames.Groups(), len(frame.Dispatches), frame.ReceiverCount())
	}
	return frame, true
}
