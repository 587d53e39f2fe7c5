// Package layout converts millimeter exam-layout positions into pixel
// rectangles on rasterized scan pages and extracts the crops.
package layout

import (
	"image"
	"math"

	"github.com/Extazy1/ezmark/internal/types"
)

// A4 page dimensions in millimeters. Layout positions are expressed
// against this page size.
const (
	PageWidthMM  = 210.0
	PageHeightMM = 297.0
)

// DefaultPaddingPX is the margin added around component crops so sloppy
// scans don't clip answer strokes at the rectangle edge.
const DefaultPaddingPX = 12

// PixelRect converts a millimeter position to a pixel rectangle against a
// raster of the given dimensions, pads it by padding pixels on every side,
// and clamps it to the image bounds.
func PixelRect(pos types.Position, imgWidth, imgHeight, padding int) image.Rectangle {
	scaleX := float64(imgWidth) / PageWidthMM
	scaleY := float64(imgHeight) / PageHeightMM

	x0 := int(math.Floor(pos.LeftMM*scaleX)) - padding
	y0 := int(math.Floor(pos.TopMM*scaleY)) - padding
	x1 := int(math.Ceil((pos.LeftMM+pos.WidthMM)*scaleX)) + padding
	y1 := int(math.Ceil((pos.TopMM+pos.HeightMM)*scaleY)) + padding

	return clamp(image.Rect(x0, y0, x1, y1), imgWidth, imgHeight)
}

// clamp restricts r to [0,0]-[w,h].
func clamp(r image.Rectangle, w, h int) image.Rectangle {
	if r.Min.X < 0 {
		r.Min.X = 0
	}
	if r.Min.Y < 0 {
		r.Min.Y = 0
	}
	if r.Max.X > w {
		r.Max.X = w
	}
	if r.Max.Y > h {
		r.Max.Y = h
	}
	if r.Max.X < r.Min.X {
		r.Max.X = r.Min.X
	}
	if r.Max.Y < r.Min.Y {
		r.Max.Y = r.Min.Y
	}
	return r
}
