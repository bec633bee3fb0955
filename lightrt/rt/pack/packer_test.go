package pack

import (
	"bytes"
	"image"
	"io"
	"math/rand"
	"testing"

	"github.com/gekko3d/lightbake/lightrt/rt/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newItems(sizes ...image.Point) []*Item {
	items := make([]*Item, len(sizes))
	for i, s := range sizes {
		items[i] = &Item{ID: i, Size: s}
	}
	return items
}

// checkRows verifies that free and used segments of every row tile the row
// exactly and that used segments are merged.
func checkRows(t *testing.T, l *RectLayout) {
	t.Helper()
	for y, row := range l.Rows {
		covered := make([]int, l.Width)
		for _, s := range append(append([]Segment{}, row.Free...), row.Used...) {
			require.True(t, s.Start >= 0 && s.End() <= l.Width, "row %d segment %+v out of bounds", y, s)
			for x := s.Start; x < s.End(); x++ {
				covered[x]++
			}
		}
		for x, c := range covered {
			require.Equal(t, 1, c, "row %d pixel %d covered %d times", y, x, c)
		}
		for i := 1; i < len(row.Used); i++ {
			require.Less(t, row.Used[i-1].End(), row.Used[i].Start, "row %d used segments not merged", y)
		}
	}
}

func checkNoOverlap(t *testing.T, s *Session, items []*Item) {
	t.Helper()
	bounds := image.Rect(0, 0, s.ContainerSize.X, s.ContainerSize.Y)
	for i, a := range items {
		if a.Index < 0 {
			continue
		}
		require.True(t, a.Rect.In(bounds), "item %d rect %v outside container", a.ID, a.Rect)
		require.True(t, ChartRect(a, s.ContainerSize).In(a.Rect), "item %d chart outside its padded rect", a.ID)
		for _, b := range items[i+1:] {
			if b.Index != a.Index {
				continue
			}
			require.False(t, a.Rect.Overlaps(b.Rect), "items %d and %d overlap: %v %v", a.ID, b.ID, a.Rect, b.Rect)
		}
	}
	for _, l := range s.Layouts {
		checkRows(t, l)
	}
}

func TestPack_TwoItemsOneContainer(t *testing.T) {
	items := newItems(image.Pt(100, 100), image.Pt(28, 28))
	s := Pack(image.Pt(128, 128), 0, items, nil)

	assert.Equal(t, 1, s.ContainerCount())
	assert.Equal(t, 0, items[0].Index)
	assert.Equal(t, 0, items[1].Index)
	checkNoOverlap(t, s, items)
}

func TestPack_KeepsCallerOrder(t *testing.T) {
	items := newItems(image.Pt(64, 64), image.Pt(8, 8), image.Pt(32, 32))
	Pack(image.Pt(128, 128), 1, items, nil)
	for i, it := range items {
		assert.Equal(t, i, it.ID)
	}
}

func TestPack_OpensNewContainer(t *testing.T) {
	items := newItems(image.Pt(100, 100), image.Pt(50, 50))
	s := Pack(image.Pt(128, 128), 0, items, nil)

	assert.Equal(t, 2, s.ContainerCount())
	assert.NotEqual(t, items[0].Index, items[1].Index)
	checkNoOverlap(t, s, items)
}

func TestPack_SkipsOversizedItem(t *testing.T) {
	items := newItems(image.Pt(200, 10), image.Pt(10, 10))
	s := Pack(image.Pt(128, 128), 0, items, nil)

	assert.Equal(t, -1, items[0].Index)
	assert.Equal(t, 0, items[1].Index)
	assert.Equal(t, 1, s.ContainerCount())
	assert.Equal(t, []*Item{items[0]}, Skipped(items))
}

func TestPack_PaddingReducedAtContainerEdge(t *testing.T) {
	items := newItems(image.Pt(126, 20))
	s := Pack(image.Pt(128, 128), 4, items, nil)

	it := items[0]
	require.Equal(t, 0, it.Index)
	assert.Equal(t, 128, it.Rect.Dx())
	assert.Equal(t, 28, it.Rect.Dy())
	// One pixel either side horizontally, four vertically.
	assert.InDelta(t, 1.0/128, it.ScaleAndOffset[2], 1e-6)
	assert.InDelta(t, 4.0/128, it.ScaleAndOffset[3], 1e-6)
	assert.InDelta(t, 126.0/128, it.ScaleAndOffset[0], 1e-6)
	checkNoOverlap(t, s, items)
}

func TestPack_RandomNoOverlap(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 20; round++ {
		var sizes []image.Point
		for i := 0; i < 40; i++ {
			sizes = append(sizes, image.Pt(1+rng.Intn(60), 1+rng.Intn(60)))
		}
		items := newItems(sizes...)
		s := Pack(image.Pt(128, 128), rng.Intn(3), items, nil)
		for _, it := range items {
			assert.GreaterOrEqual(t, it.Index, 0)
		}
		checkNoOverlap(t, s, items)
	}
}

func TestForcePack_SingleContainer(t *testing.T) {
	items := newItems(image.Pt(100, 100), image.Pt(50, 50))
	s := ForcePackIntoSingleContainer(image.Pt(128, 128), 0, items, nil)

	assert.Equal(t, 1, s.ContainerCount())
	assert.Equal(t, 0, items[0].Index)
	assert.Equal(t, 0, items[1].Index)
	checkNoOverlap(t, s, items)
}

func TestForcePack_ResolutionBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	var items []*Item
	var original []image.Point
	for i := 0; i < 60; i++ {
		size := image.Pt(8+rng.Intn(120), 8+rng.Intn(120))
		items = append(items, &Item{ID: i, Size: size, MinResolution: rng.Intn(24)})
		original = append(original, size)
	}

	s := ForcePackIntoSingleContainer(image.Pt(256, 256), 2, items, nil)
	checkNoOverlap(t, s, items)

	for i, it := range items {
		lo := max(MinItemResolution, it.MinResolution)
		assert.GreaterOrEqual(t, it.Size.X, lo, "item %d", i)
		assert.GreaterOrEqual(t, it.Size.Y, lo, "item %d", i)
		assert.LessOrEqual(t, it.Size.X, max(original[i].X, lo), "item %d", i)
		assert.LessOrEqual(t, it.Size.Y, max(original[i].Y, lo), "item %d", i)
	}
}

func TestForcePack_DoesNotUpscale(t *testing.T) {
	items := newItems(image.Pt(16, 16), image.Pt(10, 12))
	s := ForcePackIntoSingleContainer(image.Pt(512, 512), 2, items, nil)

	assert.Equal(t, 1, s.ContainerCount())
	assert.Equal(t, image.Pt(16, 16), items[0].Size)
	assert.Equal(t, image.Pt(10, 12), items[1].Size)
}

func TestForcePack_GivesUpAtMinimumScale(t *testing.T) {
	// 64 items of at least 8x8 plus padding 4 cannot share a 32x32 page.
	var sizes []image.Point
	for i := 0; i < 64; i++ {
		sizes = append(sizes, image.Pt(16, 16))
	}
	items := newItems(sizes...)
	s := ForcePackIntoSingleContainer(image.Pt(32, 32), 4, items, nil)

	assert.Greater(t, s.ContainerCount(), 1)
	for _, it := range items {
		assert.Equal(t, image.Pt(MinItemResolution, MinItemResolution), it.Size)
	}
	checkNoOverlap(t, s, items)
}

func TestForcePack_MinResolutionAboveContainer(t *testing.T) {
	items := []*Item{NewItem(0, 32, 32, 0), NewItem(1, 32, 32, 100)}
	var errOut bytes.Buffer
	s := ForcePackIntoSingleContainer(image.Pt(64, 64), 0, items, core.NewWriterLogger(io.Discard, &errOut, "", false))

	assert.Equal(t, 1, s.ContainerCount())
	assert.Equal(t, 0, items[0].Index)
	assert.Equal(t, -1, items[1].Index)
	assert.Equal(t, image.Pt(100, 100), items[1].Size)
	assert.Equal(t, []*Item{items[1]}, Skipped(items))

	// A skipped item is not a fit, so the sweep reaches the smallest scale.
	assert.Equal(t, image.Pt(MinItemResolution, MinItemResolution), items[0].Size)
	assert.Contains(t, errOut.String(), "skipping 1")
}

func TestForcePack_Empty(t *testing.T) {
	s := ForcePackIntoSingleContainer(image.Pt(64, 64), 2, nil, nil)
	assert.Equal(t, 0, s.ContainerCount())
}

func TestSessionsAreIndependent(t *testing.T) {
	a := newItems(image.Pt(100, 100))
	b := newItems(image.Pt(100, 100))
	sa := Pack(image.Pt(128, 128), 0, a, nil)
	sb := Pack(image.Pt(128, 128), 0, b, nil)

	assert.Equal(t, 1, sa.ContainerCount())
	assert.Equal(t, 1, sb.ContainerCount())
	assert.Equal(t, a[0].Rect, b[0].Rect)
}

func TestRectLayout_FillSplitsAndMerges(t *testing.T) {
	l := NewRectLayout(image.Pt(10, 2))
	l.Fill(image.Rect(2, 0, 4, 1))
	l.Fill(image.Rect(4, 0, 6, 1))

	assert.Equal(t, []Segment{{Start: 2, Length: 4}}, l.Rows[0].Used)
	assert.Equal(t, []Segment{{Start: 0, Length: 2}, {Start: 6, Length: 4}}, l.Rows[0].Free)
	assert.Equal(t, []Segment{{Start: 0, Length: 10}}, l.Rows[1].Free)
	assert.False(t, l.IsFree(image.Rect(1, 0, 3, 1)))
	assert.True(t, l.IsFree(image.Rect(6, 0, 10, 2)))
	assert.Panics(t, func() { l.Fill(image.Rect(0, 0, 3, 1)) })
	checkRows(t, l)
	assert.Equal(t, 4, l.UsedArea())
}

func TestRectLayout_FindFreeRespectsSegmentEnd(t *testing.T) {
	l := NewRectLayout(image.Pt(10, 4))
	l.Fill(image.Rect(4, 0, 10, 1))
	// Row 0 only has [0,4) free; a 6 wide rect must go below it.
	r, ok := l.FindFree(6, 2)
	require.True(t, ok)
	assert.Equal(t, image.Rect(0, 1, 6, 3), r)
	checkRows(t, l)
}

func TestRenderDebugImage(t *testing.T) {
	items := newItems(image.Pt(40, 30), image.Pt(20, 20))
	s := Pack(image.Pt(64, 64), 1, items, nil)
	pages := RenderDebugImage(s, items)

	require.Len(t, pages, 1)
	assert.Equal(t, image.Rect(0, 0, 64, 64), pages[0].Bounds())

	chart := ChartRect(items[0], s.ContainerSize)
	want := itemColor(items[0].ID)
	// bottom-right texel of the chart is clear of the label
	got := pages[0].RGBAAt(chart.Max.X-1, chart.Max.Y-1)
	assert.Equal(t, want, got)
	assert.Equal(t, debugPadding, pages[0].RGBAAt(items[0].Rect.Min.X, items[0].Rect.Min.Y))
}
