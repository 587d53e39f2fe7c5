package layout

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Extazy1/ezmark/internal/types"
)

func TestPixelRect(t *testing.T) {
	t.Run("scales millimeters to pixels", func(t *testing.T) {
		// 2100x2970 raster means exactly 10 px per mm on both axes.
		pos := types.Position{TopMM: 20, LeftMM: 30, WidthMM: 50, HeightMM: 10}
		r := PixelRect(pos, 2100, 2970, 0)

		want := image.Rect(300, 200, 800, 300)
		if r != want {
			t.Fatalf("expected %v, got %v", want, r)
		}
	})

	t.Run("applies padding", func(t *testing.T) {
		pos := types.Position{TopMM: 20, LeftMM: 30, WidthMM: 50, HeightMM: 10}
		r := PixelRect(pos, 2100, 2970, 12)

		want := image.Rect(288, 188, 812, 312)
		if r != want {
			t.Fatalf("expected %v, got %v", want, r)
		}
	})

	t.Run("clamps to image bounds", func(t *testing.T) {
		pos := types.Position{TopMM: 0, LeftMM: 0, WidthMM: 210, HeightMM: 297}
		r := PixelRect(pos, 2100, 2970, 50)

		want := image.Rect(0, 0, 2100, 2970)
		if r != want {
			t.Fatalf("expected %v, got %v", want, r)
		}
	})

	t.Run("rounds outward so strokes are not clipped", func(t *testing.T) {
		// 1240x1754 is pdftoppm's 150dpi A4 raster, which gives
		// non-integer px/mm scale factors.
		pos := types.Position{TopMM: 10.5, LeftMM: 10.5, WidthMM: 33.3, HeightMM: 7.1}
		r := PixelRect(pos, 1240, 1754, 0)

		scaleX := 1240.0 / PageWidthMM
		scaleY := 1754.0 / PageHeightMM
		if float64(r.Min.X) > 10.5*scaleX || float64(r.Max.X) < (10.5+33.3)*scaleX {
			t.Fatalf("rectangle %v does not cover the horizontal extent", r)
		}
		if float64(r.Min.Y) > 10.5*scaleY || float64(r.Max.Y) < (10.5+7.1)*scaleY {
			t.Fatalf("rectangle %v does not cover the vertical extent", r)
		}
	})
}

func TestCropToFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "page-1.png")
	dst := filepath.Join(dir, "crop.png")

	// 210x297 raster means 1 px per mm.
	img := image.NewRGBA(image.Rect(0, 0, 210, 297))
	for y := 100; y < 110; y++ {
		for x := 50; x < 100; x++ {
			img.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}
	f, err := os.Create(src)
	if err != nil {
		t.Fatalf("creating source image: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encoding source image: %v", err)
	}
	f.Close()

	pos := types.Position{TopMM: 100, LeftMM: 50, WidthMM: 50, HeightMM: 10}
	err = CropToFile(src, dst, func(w, h int) image.Rectangle {
		return PixelRect(pos, w, h, 0)
	})
	if err != nil {
		t.Fatalf("cropping: %v", err)
	}

	out, err := LoadPNG(dst)
	if err != nil {
		t.Fatalf("loading crop: %v", err)
	}
	b := out.Bounds()
	if b.Dx() != 50 || b.Dy() != 10 {
		t.Fatalf("expected 50x10 crop, got %dx%d", b.Dx(), b.Dy())
	}
}
