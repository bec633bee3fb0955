package receiver

import (
	"fmt"
	"math/bits"
	"slices"

	"github.com/gekko3d/lightbake/lightrt/rt/combin"
	"github.com/gekko3d/lightbake/lightrt/rt/core"
)

// grid adapts classification to a lightmap or a volume.
type grid[R Record] struct {
	locationKey   func(core.Receiver) int
	frameGroup    func(core.Receiver) int
	newRecord     func(core.Receiver) R
	setIrradiance func(rec *R, slot int, c core.Color32)
}

type classifyParams struct {
	asset            *core.ReceiverAsset
	lightCount       int
	frameGroupCount  int
	splitFrameGroups bool
	log              core.Logger
	kind             string
}

// BuildUsageMap records, per location, which lights have a sample with
// non-zero irradiance there.
func BuildUsageMap(asset *core.ReceiverAsset, locationKey func(core.Receiver) int) UsageMap {
	usage := make(UsageMap)
	for light := 0; light < asset.LightCount(); light++ {
		for _, r := range asset.ForLight(light) {
			if !r.HasIrradiance() {
				continue
			}
			key := locationKey(r)
			usage[key] |= 1 << uint(light)
		}
	}
	return usage
}

// classify partitions receivers by (light combination, frame group). A
// location yields one record per group key no matter how many of its
// lights contributed; each light writes its own irradiance slot.
func classify[R Record](p classifyParams, g grid[R]) Result[R] {
	var result Result[R]
	log := core.OrNop(p.log)

	if p.lightCount <= 0 || p.asset == nil || len(p.asset.Receivers) == 0 {
		return result
	}
	if p.lightCount > MaxDynamicLights {
		panic(fmt.Sprintf("receiver: %d dynamic lights exceed the limit of %d", p.lightCount, MaxDynamicLights))
	}
	if n := p.asset.LightCount(); n > p.lightCount {
		panic(fmt.Sprintf("receiver: asset holds %d lights but only %d are dynamic", n, p.lightCount))
	}

	usage := BuildUsageMap(p.asset, g.locationKey)
	for _, mask := range usage {
		if bits.OnesCount64(mask) > MaxLightsPerReceiver {
			result.DroppedLocations++
		}
	}

	records := make(map[GroupKey]map[int]R)
	for light := 0; light < p.asset.LightCount(); light++ {
		for _, r := range p.asset.ForLight(light) {
			if !r.HasIrradiance() {
				continue
			}
			loc := g.locationKey(r)
			mask := usage[loc]
			n := bits.OnesCount64(mask)
			if n == 0 || n > MaxLightsPerReceiver {
				continue
			}

			frameGroup := DefaultFrameGroup
			if p.splitFrameGroups {
				frameGroup = g.frameGroup(r)
			}
			key := GroupKey{Lights: combinationFromMask(mask, n, p.lightCount), FrameGroup: frameGroup}

			byLocation, ok := records[key]
			if !ok {
				byLocation = make(map[int]R)
				records[key] = byLocation
			}
			rec, ok := byLocation[loc]
			if !ok {
				rec = g.newRecord(r)
			}
			slot := key.Lights.IndexOf(light)
			if slot < 0 {
				panic(fmt.Sprintf("receiver: light %d missing from combination %v", light, key.Lights))
			}
			g.setIrradiance(&rec, slot, r.Irradiance)
			byLocation[loc] = rec
		}
	}

	frameGroups := []int{DefaultFrameGroup}
	if p.splitFrameGroups {
		frameGroups = make([]int, p.frameGroupCount)
		for i := range frameGroups {
			frameGroups[i] = i
		}
	}

	// Emit in enumeration order so results are reproducible.
	for size := 1; size <= MaxLightsPerReceiver; size++ {
		for lights := range combin.Seq(p.lightCount, size) {
			combination := NewCombination(lights...)
			for _, frameGroup := range frameGroups {
				byLocation := records[GroupKey{Lights: combination, FrameGroup: frameGroup}]
				if len(byLocation) == 0 {
					continue
				}
				locations := make([]int, 0, len(byLocation))
				for loc := range byLocation {
					locations = append(locations, loc)
				}
				slices.Sort(locations)

				group := &Group[R]{
					ID:         makeAssetId(),
					Lights:     lights,
					FrameGroup: frameGroup,
					Receivers:  make([]R, len(locations)),
				}
				for i, loc := range locations {
					group.Receivers[i] = byLocation[loc]
				}
				result.add(size, group)
			}
		}
	}

	log.Debugf("%s receivers: %d locations, %d groups, %d locations dropped (more than %d lights)",
		p.kind, len(usage), len(result.All()), result.DroppedLocations, MaxLightsPerReceiver)
	return result
}
