package pack

import (
	"image"
	"slices"
	"sort"

	"github.com/gekko3d/lightbake/lightrt/rt/core"
	"github.com/go-gl/mathgl/mgl32"
)

// MinItemResolution is the smallest edge an item is shrunk to by
// ForcePackIntoSingleContainer.
const MinItemResolution = 8

// scaleSearchSteps samples of the global scale, endpoints included.
const scaleSearchSteps = 32

// Item is one chart to place. ID, Size and MinResolution are inputs; Index,
// ScaleAndOffset and Rect are written by packing.
type Item struct {
	ID            int
	Size          image.Point
	MinResolution int

	// Container index, -1 when the item was skipped.
	Index int
	// (sx, sy, ox, oy) normalised to the container, padding excluded.
	ScaleAndOffset mgl32.Vec4
	// Padded placement in container pixels.
	Rect image.Rectangle
}

func NewItem(id, width, height, minResolution int) *Item {
	return &Item{ID: id, Size: image.Pt(width, height), MinResolution: minResolution, Index: -1}
}

func (it *Item) area() int { return it.Size.X * it.Size.Y }

// Session holds the containers of one packing run. Sessions are independent,
// so separate runs may proceed concurrently.
type Session struct {
	ContainerSize image.Point
	Padding       int
	Layouts       []*RectLayout

	log core.Logger
}

func NewSession(containerSize image.Point, padding int, logger core.Logger) *Session {
	if padding < 0 {
		padding = 0
	}
	return &Session{
		ContainerSize: containerSize,
		Padding:       padding,
		log:           core.OrNop(logger),
	}
}

// Pack creates a session and packs items into as many containers as needed.
func Pack(containerSize image.Point, padding int, items []*Item, logger core.Logger) *Session {
	s := NewSession(containerSize, padding, logger)
	s.Pack(items)
	return s
}

// ForcePackIntoSingleContainer creates a session and shrinks items uniformly
// until they fit one container.
func ForcePackIntoSingleContainer(containerSize image.Point, padding int, items []*Item, logger core.Logger) *Session {
	s := NewSession(containerSize, padding, logger)
	s.ForcePackIntoSingleContainer(items)
	return s
}

func (s *Session) ContainerCount() int { return len(s.Layouts) }

// Reset drops all containers.
func (s *Session) Reset() { s.Layouts = s.Layouts[:0] }

// Pack places items into the session's containers, opening new ones when an
// item fits nowhere. Items are visited in ascending area order; the caller's
// slice order is left untouched.
func (s *Session) Pack(items []*Item) {
	if len(s.Layouts) == 0 {
		s.Layouts = append(s.Layouts, NewRectLayout(s.ContainerSize))
	}

	sorted := slices.Clone(items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].area() < sorted[j].area() })

	cw, ch := s.ContainerSize.X, s.ContainerSize.Y
	lastLayoutIndex := 0

	for _, it := range sorted {
		if it.Size.X > cw || it.Size.Y > ch || it.Size.X <= 0 || it.Size.Y <= 0 {
			s.log.Errorf("pack: skipping item %d of size %dx%d, container is %dx%d", it.ID, it.Size.X, it.Size.Y, cw, ch)
			it.Index = -1
			it.Rect = image.Rectangle{}
			it.ScaleAndOffset = mgl32.Vec4{}
			continue
		}

		pad := image.Pt(2*s.Padding, 2*s.Padding)
		w, h := it.Size.X+pad.X, it.Size.Y+pad.Y
		if w > cw {
			w = cw
			pad.X = w - it.Size.X
		}
		if h > ch {
			h = ch
			pad.Y = h - it.Size.Y
		}

		found := false
		for k := lastLayoutIndex; k < len(s.Layouts); k++ {
			if r, ok := s.Layouts[k].FindFree(w, h); ok {
				it.Index, it.Rect = k, r
				lastLayoutIndex = k
				found = true
				break
			}
		}
		if !found {
			layout := NewRectLayout(s.ContainerSize)
			r, ok := layout.FindFree(w, h)
			if !ok {
				panic("pack: item does not fit an empty container")
			}
			s.Layouts = append(s.Layouts, layout)
			it.Index, it.Rect = len(s.Layouts)-1, r
			lastLayoutIndex = it.Index
		}

		it.ScaleAndOffset = mgl32.Vec4{
			float32(it.Size.X) / float32(cw),
			float32(it.Size.Y) / float32(ch),
			(float32(it.Rect.Min.X) + float32(pad.X)*0.5) / float32(cw),
			(float32(it.Rect.Min.Y) + float32(pad.Y)*0.5) / float32(ch),
		}
	}
}

// ForcePackIntoSingleContainer sweeps a global scale from the largest useful
// value down to zero and keeps the first one where every item lands in a
// single container. An item whose minimum resolution exceeds the container
// is never placed, so the sweep runs to the end and leaves it skipped. Each item edge stays within
// [max(MinItemResolution, MinResolution), min(original, container)], the
// lower bound taking precedence. Item sizes are overwritten with the chosen
// resolution.
func (s *Session) ForcePackIntoSingleContainer(items []*Item) {
	if len(items) == 0 {
		s.Reset()
		return
	}

	initial := make([]image.Point, len(items))
	totalArea := float32(0)
	for i, it := range items {
		initial[i] = it.Size
		totalArea += float32(it.Size.X * it.Size.Y)
	}
	if totalArea <= 0 {
		s.Reset()
		s.Pack(items)
		return
	}

	containerArea := float32(s.ContainerSize.X * s.ContainerSize.Y)
	right := min(1, containerArea/totalArea)
	left := float32(0)

	for i := 0; i < scaleSearchSteps; i++ {
		mid := lerp(right, left, float32(i)/float32(scaleSearchSteps-1))

		s.Reset()
		for j, it := range items {
			it.Size = image.Pt(
				scaledEdge(initial[j].X, mid, it.MinResolution, s.ContainerSize.X),
				scaledEdge(initial[j].Y, mid, it.MinResolution, s.ContainerSize.Y),
			)
			it.Index = 0
		}
		s.Pack(items)

		if s.ContainerCount() <= 1 && len(Skipped(items)) == 0 {
			s.log.Debugf("pack: %d items fit one %dx%d container at scale %.4f", len(items), s.ContainerSize.X, s.ContainerSize.Y, mid)
			return
		}
	}

	s.log.Errorf("pack: container %dx%d is not big enough for %d items, using %d containers and skipping %d",
		s.ContainerSize.X, s.ContainerSize.Y, len(items), s.ContainerCount(), len(Skipped(items)))
}

// Skipped returns the items the last pack left without a container.
func Skipped(items []*Item) []*Item {
	var out []*Item
	for _, it := range items {
		if it.Index < 0 {
			out = append(out, it)
		}
	}
	return out
}

func scaledEdge(original int, scale float32, minResolution int, container int) int {
	lo := max(MinItemResolution, minResolution)
	hi := min(original, container)
	v := int(scale * float32(original))
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}

func lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
