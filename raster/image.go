package raster

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"io"
	"math"
	"os"

	"golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/tiff"

	"github.com/tsawler/transcripta/format"
)

// imageDocument is a single-page document backed by a plain image file.
// The file is decoded on Rasterize, not on Open, so a corrupt image
// surfaces as a page-scoped RasterizationError.
type imageDocument struct {
	path   string
	format format.Format
	opts   Options
}

func (d *imageDocument) PageCount() int { return 1 }

func (d *imageDocument) Rasterize(ctx context.Context, page int) (image.Image, error) {
	if page != 0 {
		return nil, &RasterizationError{Page: page, Err: fmt.Errorf("image input has a single page")}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(d.path)
	if err != nil {
		return nil, &RasterizationError{Page: page, Err: err}
	}
	defer f.Close()

	img, err := decodeImage(f, d.format)
	if err != nil {
		return nil, &RasterizationError{Page: page, Err: err}
	}

	if d.opts.SourceDPI > 0 && d.opts.SourceDPI != d.opts.dpi() {
		img = resample(img, d.opts.SourceDPI, d.opts.dpi())
	}
	if d.opts.Grayscale {
		img = grayscale(img)
	}
	return img, nil
}

func (d *imageDocument) Close() error { return nil }

// decodeImage decodes an image in the detected format. Multi-frame
// TIFFs decode to their first frame.
func decodeImage(r io.Reader, f format.Format) (image.Image, error) {
	switch f {
	case format.PNG:
		return png.Decode(r)
	case format.JPEG:
		return jpeg.Decode(r)
	case format.TIFF:
		return tiff.Decode(r)
	case format.BMP:
		return bmp.Decode(r)
	default:
		return nil, fmt.Errorf("cannot decode %v content", f)
	}
}

// resample scales img so content at srcDPI lands at dstDPI.
func resample(img image.Image, srcDPI, dstDPI int) image.Image {
	if srcDPI <= 0 || dstDPI <= 0 || srcDPI == dstDPI {
		return img
	}

	scale := float64(dstDPI) / float64(srcDPI)
	bounds := img.Bounds()
	w := int(math.Round(float64(bounds.Dx()) * scale))
	h := int(math.Round(float64(bounds.Dy()) * scale))
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, bounds, xdraw.Over, nil)
	return dst
}

// grayscale converts an image to 8-bit grayscale. Images that already
// are grayscale pass through untouched.
func grayscale(img image.Image) image.Image {
	if g, ok := img.(*image.Gray); ok {
		return g
	}

	bounds := img.Bounds()
	dst := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return dst
}

// WritePNG encodes img to the named file.
func WritePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
