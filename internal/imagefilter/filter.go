// Package imagefilter decides which embedded images are worth sending to
// OCR. Decorative full-bleed artwork is filtered before it pays the IPC and
// recognition cost; text-bearing figures must never be dropped, so every
// undecidable case falls through to "keep".
package imagefilter

import (
	"bytes"
	"image"
	"log/slog"

	// Register the decoders the office formats embed.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

const (
	// MaxBytes is the serialized size above which an image is treated as
	// background artwork.
	MaxBytes = 300 * 1024

	// MaxWidth and MaxHeight bound the "full bleed" dimension check. An
	// image is background only when it exceeds both.
	MaxWidth  = 1600
	MaxHeight = 900

	// MinIconBytes is the raw size below which extractors skip an image
	// as icon-like before it ever reaches the filter.
	MinIconBytes = 5 * 1024
)

// IsBackground reports whether the image should be skipped as decorative.
// Width and height may be zero when the caller does not know them; the
// filter then decodes the header to obtain dimensions. If even that fails
// the image is kept so OCR gets a chance at it.
func IsBackground(data []byte, width, height int) bool {
	if len(data) > MaxBytes {
		slog.Debug("background filter: size exceeds limit", "size", len(data))
		return true
	}

	if width > 0 && height > 0 {
		return width > MaxWidth && height > MaxHeight
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		slog.Warn("background filter: cannot determine dimensions, keeping image", "error", err)
		return false
	}
	if cfg.Width > MaxWidth && cfg.Height > MaxHeight {
		slog.Debug("background filter: dimensions exceed limit", "width", cfg.Width, "height", cfg.Height)
		return true
	}
	return false
}

// IsIcon reports whether the raw blob is too small to carry readable text.
func IsIcon(data []byte) bool {
	return len(data) < MinIconBytes
}
