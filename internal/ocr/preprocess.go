package ocr

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	// Decoders for the formats embedded in office documents.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

const (
	// MaxImageSize is the longest edge fed to recognition; larger inputs
	// are scaled down proportionally.
	MaxImageSize = 4096

	// MinImageSize is the edge below which no upscaling is attempted.
	MinImageSize = 32
)

// DecodeImage decodes raw bytes into an image.
func DecodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDecode, err)
	}
	return img, nil
}

// ResizeIfNeeded scales an image down when either edge exceeds
// MaxImageSize, keeping aspect ratio. Images smaller than MinImageSize in
// both dimensions are returned untouched rather than blown up.
func ResizeIfNeeded(img image.Image) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()

	if w > MaxImageSize || h > MaxImageSize {
		scale := float64(MaxImageSize) / float64(w)
		if s := float64(MaxImageSize) / float64(h); s < scale {
			scale = s
		}
		nw := int(float64(w) * scale)
		nh := int(float64(h) * scale)
		return imaging.Resize(img, nw, nh, imaging.Lanczos)
	}

	// No upscaling: anything at or below MaxImageSize, including images
	// under MinImageSize on both edges, passes through unchanged.
	return img
}

// lineBand is a horizontal strip believed to contain one text line.
type lineBand struct {
	top, bottom int
}

// segmentLines splits an image into horizontal text bands using a row
// darkness profile. Returns the whole image as one band when no structure
// is found, so recognition always gets a chance.
func segmentLines(img image.Image) []lineBand {
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	const inkThreshold = 128
	rowInk := make([]int, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if gray.Pix[gray.PixOffset(b.Min.X+x, b.Min.Y+y)] < inkThreshold {
				rowInk[y]++
			}
		}
	}

	// A row counts as text when at least 1% of its pixels carry ink.
	minInk := w / 100
	if minInk < 1 {
		minInk = 1
	}

	var bands []lineBand
	inBand := false
	start := 0
	for y := 0; y < h; y++ {
		if rowInk[y] >= minInk {
			if !inBand {
				inBand = true
				start = y
			}
			continue
		}
		if inBand {
			inBand = false
			if y-start >= 4 {
				bands = append(bands, lineBand{top: start, bottom: y})
			}
		}
	}
	if inBand && h-start >= 4 {
		bands = append(bands, lineBand{top: start, bottom: h})
	}

	if len(bands) == 0 {
		return []lineBand{{top: 0, bottom: h}}
	}
	return bands
}

// bandRect maps a band's relative rows back to source-image coordinates.
func bandRect(img image.Image, band lineBand) image.Rectangle {
	b := img.Bounds()
	return image.Rect(b.Min.X, b.Min.Y+band.top, b.Max.X, b.Min.Y+band.bottom)
}

// normalizeForRecognition converts a band image resized to targetH into a
// CHW float32 tensor with PaddleOCR's (x/255 - 0.5)/0.5 normalization.
func normalizeForRecognition(img image.Image, targetH int) ([]float32, int64, int64) {
	b := img.Bounds()
	srcH := b.Dy()
	if srcH < 1 {
		srcH = 1
	}
	w := b.Dx() * targetH / srcH
	if w < 1 {
		w = 1
	}
	resized := imaging.Resize(img, w, targetH, imaging.Lanczos)

	rb := resized.Bounds()
	width, height := rb.Dx(), rb.Dy()
	data := make([]float32, 3*height*width)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			off := resized.PixOffset(rb.Min.X+x, rb.Min.Y+y)
			r := resized.Pix[off]
			g := resized.Pix[off+1]
			bl := resized.Pix[off+2]
			idx := y*width + x
			data[idx] = (float32(r)/255.0 - 0.5) / 0.5
			data[height*width+idx] = (float32(g)/255.0 - 0.5) / 0.5
			data[2*height*width+idx] = (float32(bl)/255.0 - 0.5) / 0.5
		}
	}
	return data, int64(height), int64(width)
}
