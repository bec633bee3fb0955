package pack

import (
	"fmt"
	"image"
	"sort"
)

// Segment is a horizontal run of pixels [Start, Start+Length) in one row.
type Segment struct {
	Start  int
	Length int
}

func (s Segment) End() int { return s.Start + s.Length }

func (s Segment) covers(x, w int) bool {
	return s.Start <= x && x+w <= s.End()
}

// Row tracks the free and used runs of one container row. Free and used
// segments together tile [0, width) exactly.
type Row struct {
	Free []Segment
	Used []Segment
}

// RectLayout is a single square container (lightmap page) being filled.
type RectLayout struct {
	Width  int
	Height int
	Rows   []Row

	// Size of the last request that failed to fit. Anything at least as
	// large in both dimensions cannot fit either, since layouts only fill up.
	failed image.Point
}

func NewRectLayout(size image.Point) *RectLayout {
	l := &RectLayout{
		Width:  size.X,
		Height: size.Y,
		Rows:   make([]Row, size.Y),
	}
	for y := range l.Rows {
		l.Rows[y].Free = []Segment{{Start: 0, Length: size.X}}
	}
	return l
}

// IsFree reports whether every row of r has a single free segment covering
// r's horizontal extent.
func (l *RectLayout) IsFree(r image.Rectangle) bool {
	if r.Min.X < 0 || r.Min.Y < 0 || r.Max.X > l.Width || r.Max.Y > l.Height {
		return false
	}
	x, w := r.Min.X, r.Dx()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		if findCovering(l.Rows[y].Free, x, w) < 0 {
			return false
		}
	}
	return true
}

// Fill marks r as used. r must be free.
func (l *RectLayout) Fill(r image.Rectangle) {
	x, w := r.Min.X, r.Dx()
	for y := r.Min.Y; y < r.Max.Y; y++ {
		row := &l.Rows[y]
		i := findCovering(row.Free, x, w)
		if i < 0 {
			panic(fmt.Sprintf("pack: fill of %v overlaps used space in row %d", r, y))
		}
		seg := row.Free[i]
		var split []Segment
		if x > seg.Start {
			split = append(split, Segment{Start: seg.Start, Length: x - seg.Start})
		}
		if x+w < seg.End() {
			split = append(split, Segment{Start: x + w, Length: seg.End() - (x + w)})
		}
		// Replace seg in place; free segments stay sorted by start.
		row.Free = append(row.Free[:i], append(split, row.Free[i+1:]...)...)

		row.Used = append(row.Used, Segment{Start: x, Length: w})
		row.Used = mergeSegments(row.Used)
	}
}

// FindFree searches rows top-down for the first position where a w×h rect
// fits, fills it and returns it.
func (l *RectLayout) FindFree(w, h int) (image.Rectangle, bool) {
	if w > l.Width || h > l.Height || w <= 0 || h <= 0 {
		return image.Rectangle{}, false
	}
	if l.failed != (image.Point{}) && w >= l.failed.X && h >= l.failed.Y {
		return image.Rectangle{}, false
	}

	for y := 0; y <= l.Height-h; y++ {
		for _, seg := range l.Rows[y].Free {
			if seg.Length < w {
				continue
			}
			r := image.Rect(seg.Start, y, seg.Start+w, y+h)
			if l.IsFree(r) {
				l.Fill(r)
				return r, true
			}
		}
	}

	l.failed = image.Pt(w, h)
	return image.Rectangle{}, false
}

// UsedArea returns the number of occupied pixels.
func (l *RectLayout) UsedArea() int {
	area := 0
	for _, row := range l.Rows {
		for _, s := range row.Used {
			area += s.Length
		}
	}
	return area
}

// Occupancy is UsedArea as a fraction of the container.
func (l *RectLayout) Occupancy() float32 {
	if l.Width == 0 || l.Height == 0 {
		return 0
	}
	return float32(l.UsedArea()) / float32(l.Width*l.Height)
}

func findCovering(free []Segment, x, w int) int {
	for i, s := range free {
		if s.covers(x, w) {
			return i
		}
	}
	return -1
}

func mergeSegments(segs []Segment) []Segment {
	sort.Slice(segs, func(i, j int) bool { return segs[i].Start < segs[j].Start })
	out := segs[:0]
	for _, s := range segs {
		if n := len(out); n > 0 && out[n-1].End() == s.Start {
			out[n-1].Length += s.Length
			continue
		}
		out = append(out, s)
	}
	return out
}
