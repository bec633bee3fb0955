// Package frames spreads dynamic relighting work across frames. Receivers
// are split into checkerboard frame groups; an Allocator decides which
// groups to refresh this frame based on how fast the lights are changing.
package frames

import (
	"fmt"
	"math/bits"
)

// FrameState is a set of frame groups, one bit per group.
type FrameState uint32

func (s FrameState) Contains(group int) bool {
	if group < 0 || group >= 32 {
		return false
	}
	return s&(1<<uint(group)) != 0
}

func (s FrameState) Empty() bool { return s == 0 }

// ActiveNum is the number of groups in s.
func (s FrameState) ActiveNum() int { return bits.OnesCount32(uint32(s)) }

func (s FrameState) Set(group int) FrameState {
	return s | 1<<uint(group)
}

// Groups lists the groups in s in ascending order.
func (s FrameState) Groups() []int {
	var out []int
	for g := 0; g < 32; g++ {
		if s.Contains(g) {
			out = append(out, g)
		}
	}
	return out
}

// Step maps a light delta above Threshold to a per-frame group budget.
type Step struct {
	Threshold float32
	Budget    int
}

// Allocator tracks which frame groups were refreshed in the current cycle.
// A cycle ends once every group has been refreshed; the next change in
// lighting starts a new one.
type Allocator struct {
	order   []int
	steps   []Step
	all     FrameState
	current FrameState
}

// NewAllocator visits groups in order and picks the budget of the first step
// whose threshold the delta exceeds. Steps must be sorted by descending
// threshold. order must be a permutation of 0..len(order)-1.
func NewAllocator(order []int, steps []Step) *Allocator {
	if len(order) == 0 || len(order) > 32 {
		panic(fmt.Sprintf("frames: %d frame groups", len(order)))
	}
	var all FrameState
	for _, g := range order {
		if g < 0 || g >= len(order) || all.Contains(g) {
			panic(fmt.Sprintf("frames: visitation order %v is not a permutation", order))
		}
		all = all.Set(g)
	}
	for i := 1; i < len(steps); i++ {
		if steps[i].Threshold >= steps[i-1].Threshold {
			panic("frames: steps must have descending thresholds")
		}
	}
	return &Allocator{
		order: append([]int(nil), order...),
		steps: append([]Step(nil), steps...),
		all:   all,
	}
}

// NewLightmapAllocator covers the 4 lightmap texel parities.
func NewLightmapAllocator() *Allocator {
	return NewAllocator([]int{0, 2, 1, 3}, []Step{
		{Threshold: 0.08, Budget: 4},
		{Threshold: 0.04, Budget: 2},
		{Threshold: 0, Budget: 1},
	})
}

// NewVolumetricAllocator covers the 8 volume cell parities.
func NewVolumetricAllocator() *Allocator {
	return NewAllocator([]int{0, 2, 1, 3, 4, 6, 5, 7}, []Step{
		{Threshold: 0.2, Budget: 8},
		{Threshold: 0.1, Budget: 4},
		{Threshold: 0, Budget: 2},
	})
}

func (a *Allocator) GroupCount() int { return len(a.order) }

// Current returns the groups refreshed so far in this cycle.
func (a *Allocator) Current() FrameState { return a.current }

func (a *Allocator) AllUpdated() bool { return a.current == a.all }

func (a *Allocator) Reset() { a.current = 0 }

// AllocateFrames returns the groups to refresh this frame. A non-zero delta
// after a completed cycle starts a new cycle. With no change, groups left
// over from the last cycle are caught up all at once.
func (a *Allocator) AllocateFrames(delta float32) FrameState {
	if delta > 0 && a.AllUpdated() {
		a.Reset()
	}
	for _, s := range a.steps {
		if delta > s.Threshold {
			return a.pop(s.Budget)
		}
	}
	if a.AllUpdated() {
		return a.pop(0)
	}
	return a.pop(len(a.order))
}

// AllocateAllFrames returns every group without touching the cycle state.
func (a *Allocator) AllocateAllFrames() FrameState { return a.all }

func (a *Allocator) pop(num int) FrameState {
	var result FrameState
	added := 0
	for _, g := range a.order {
		if added >= num {
			break
		}
		if a.current.Contains(g) {
			continue
		}
		a.current = a.current.Set(g)
		result = result.Set(g)
		added++
	}
	return result
}
