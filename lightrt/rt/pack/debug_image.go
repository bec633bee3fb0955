package pack

import (
	"image"
	"image/color"
	"math"
	"strconv"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

var (
	debugBackground = color.RGBA{24, 24, 28, 255}
	debugPadding    = color.RGBA{60, 60, 70, 255}
)

// RenderDebugImage draws one image per container of s showing every placed
// item: padding in grey, the chart area in a colour derived from its ID, and
// the ID as a label when it fits.
func RenderDebugImage(s *Session, items []*Item) []*image.RGBA {
	bounds := image.Rect(0, 0, s.ContainerSize.X, s.ContainerSize.Y)
	pages := make([]*image.RGBA, s.ContainerCount())
	for i := range pages {
		pages[i] = image.NewRGBA(bounds)
		draw.Draw(pages[i], bounds, image.NewUniform(debugBackground), image.Point{}, draw.Src)
	}

	face := basicfont.Face7x13
	for _, it := range items {
		if it.Index < 0 || it.Index >= len(pages) {
			continue
		}
		page := pages[it.Index]
		draw.Draw(page, it.Rect, image.NewUniform(debugPadding), image.Point{}, draw.Src)

		chart := ChartRect(it, s.ContainerSize)
		draw.Draw(page, chart, image.NewUniform(itemColor(it.ID)), image.Point{}, draw.Src)

		label := strconv.Itoa(it.ID)
		lw := font.MeasureString(face, label).Ceil()
		lh := face.Metrics().Height.Ceil()
		if chart.Dx() < lw+2 || chart.Dy() < lh+2 {
			continue
		}
		d := font.Drawer{
			Dst:  page,
			Src:  image.White,
			Face: face,
			Dot:  fixed.P(chart.Min.X+1, chart.Min.Y+1+face.Metrics().Ascent.Ceil()),
		}
		d.DrawString(label)
	}
	return pages
}

// ChartRect converts an item's ScaleAndOffset back to container pixels.
func ChartRect(it *Item, containerSize image.Point) image.Rectangle {
	x := int(math.Round(float64(it.ScaleAndOffset[2]) * float64(containerSize.X)))
	y := int(math.Round(float64(it.ScaleAndOffset[3]) * float64(containerSize.Y)))
	return image.Rect(x, y, x+it.Size.X, y+it.Size.Y)
}

func itemColor(id int) color.RGBA {
	h := uint32(id)*2654435761 + 1
	return color.RGBA{
		R: uint8(96 + h%160),
		G: uint8(96 + (h>>8)%160),
		B: uint8(96 + (h>>16)%160),
		A: 255,
	}
}
