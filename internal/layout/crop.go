package layout

import (
	"fmt"
	"image"
	"image/png"
	"os"
)

// subImager is implemented by the image types png.Decode produces.
type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// LoadPNG decodes a PNG page raster from disk.
func LoadPNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening page image: %w", err)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decoding page image %s: %w", path, err)
	}
	return img, nil
}

// SavePNG writes img to path, creating or truncating the file.
func SavePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating crop file: %w", err)
	}
	defer f.Close()

	if err := png.Encode(f, img); err != nil {
		return fmt.Errorf("encoding crop %s: %w", path, err)
	}
	return nil
}

// Crop extracts the rectangle r from img. The returned image shares pixels
// with img, which is fine because crops are encoded immediately.
func Crop(img image.Image, r image.Rectangle) (image.Image, error) {
	si, ok := img.(subImager)
	if !ok {
		return nil, fmt.Errorf("image type %T does not support cropping", img)
	}
	return si.SubImage(r), nil
}

// CropToFile loads the page raster at srcPath, extracts the pixel rectangle
// for pos, and writes it to dstPath.
func CropToFile(srcPath, dstPath string, rect func(w, h int) image.Rectangle) error {
	img, err := LoadPNG(srcPath)
	if err != nil {
		return err
	}
	b := img.Bounds()
	cropped, err := Crop(img, rect(b.Dx(), b.Dy()))
	if err != nil {
		return err
	}
	return SavePNG(dstPath, cropped)
}
