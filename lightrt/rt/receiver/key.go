package receiver

import (
	"fmt"
	"math/bits"
)

// MaxLightsPerReceiver is the largest light combination a receiver record
// can hold. Locations lit by more dynamic lights are dropped.
const MaxLightsPerReceiver = 3

// MaxDynamicLights is bounded by the width of the usage bitmask.
const MaxDynamicLights = 64

// DefaultFrameGroup marks groups that are refreshed every frame.
const DefaultFrameGroup = 65535

const (
	LightmapFrameGroupCount   = 4
	VolumetricFrameGroupCount = 8
)

// Combination is a sorted set of 1 to MaxLightsPerReceiver light indices.
// It is a comparable value and can be used as a map key.
type Combination struct {
	Count  int
	Lights [MaxLightsPerReceiver]int
}

// NewCombination builds a combination from strictly increasing indices.
func NewCombination(lights ...int) Combination {
	if len(lights) == 0 || len(lights) > MaxLightsPerReceiver {
		panic(fmt.Sprintf("receiver: combination of %d lights", len(lights)))
	}
	var c Combination
	for i, l := range lights {
		if i > 0 && l <= lights[i-1] {
			panic(fmt.Sprintf("receiver: combination %v is not strictly increasing", lights))
		}
		c.Lights[i] = l
	}
	c.Count = len(lights)
	return c
}

func (c Combination) Slice() []int {
	return append([]int(nil), c.Lights[:c.Count]...)
}

// IndexOf returns the slot of light in c, or -1.
func (c Combination) IndexOf(light int) int {
	for i := 0; i < c.Count; i++ {
		if c.Lights[i] == light {
			return i
		}
	}
	return -1
}

func (c Combination) String() string {
	return fmt.Sprint(c.Lights[:c.Count])
}

// combinationFromMask takes the first length set bits of mask in ascending
// light order.
func combinationFromMask(mask uint64, length int, lightCount int) Combination {
	var c Combination
	for light := 0; light < lightCount && c.Count < length; light++ {
		if mask&(1<<uint(light)) != 0 {
			c.Lights[c.Count] = light
			c.Count++
		}
	}
	if c.Count != length {
		panic(fmt.Sprintf("receiver: usage mask %b has %d lights below %d, want %d", mask, c.Count, lightCount, length))
	}
	return c
}

// GroupKey identifies one receiver group.
type GroupKey struct {
	Lights     Combination
	FrameGroup int
}

// UsageMap maps a location key to the bitmask of lights with a non-zero
// sample there.
type UsageMap map[int]uint64

// LightCount returns how many lights touch location key.
func (u UsageMap) LightCount(key int) int {
	return bits.OnesCount64(u[key])
}

// LightmapFrameGroup is the 2x2 checkerboard parity of a texel.
func LightmapFrameGroup(x, y int) int {
	return x&1 + 2*(y&1)
}

// VolumetricFrameGroup is the 2x2x2 checkerboard parity of a cell.
func VolumetricFrameGroup(x, y, z int) int {
	return LightmapFrameGroup(x, y) + 4*(z&1)
}
