package api

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// Scoreboard region as fractions of a 16:9 frame.
const (
	cropLeft   = 0.22
	cropTop    = 0.25
	cropWidth  = 0.56
	cropHeight = 0.45

	minCropWidth  = 1280
	minCropHeight = 720

	// Longest edge sent to the extractor.
	maxExtractEdge = 1568
)

// CropScoreboard cuts the scoreboard out of a full screenshot. The game
// anchors its UI to a centred 16:9 box, so ultrawide frames are measured
// against that box. Frames below 1280x720 are passed through whole.
func CropScoreboard(src image.Image) image.Image {
	b := src.Bounds()
	w, h := float64(b.Dx()), float64(b.Dy())

	if b.Dx() < minCropWidth || b.Dy() < minCropHeight {
		return src
	}

	refWidth, xOffset := w, 0.0
	if w/h > 16.0/9.0+0.05 {
		refWidth = h * 16.0 / 9.0
		xOffset = (w - refWidth) / 2
	}

	x0 := b.Min.X + int(xOffset+refWidth*cropLeft)
	y0 := b.Min.Y + int(h*cropTop)
	rect := image.Rect(x0, y0, x0+int(refWidth*cropWidth), y0+int(h*cropHeight)).Intersect(b)

	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Copy(dst, image.Point{}, src, rect, draw.Src, nil)
	return dst
}

// fitWithin downscales img so its longest edge is at most edge.
func fitWithin(img image.Image, edge int) image.Image {
	b := img.Bounds()
	longest := max(b.Dx(), b.Dy())
	if longest <= edge {
		return img
	}

	scale := float64(edge) / float64(longest)
	dst := image.NewRGBA(image.Rect(0, 0, int(float64(b.Dx())*scale), int(float64(b.Dy())*scale)))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

// PrepareScreenshot decodes a PNG, JPEG or WebP screenshot, crops the
// scoreboard and re-encodes it as PNG for extraction.
func PrepareScreenshot(data []byte) ([]byte, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode screenshot: %w", err)
	}

	out := fitWithin(CropScoreboard(img), maxExtractEdge)

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, fmt.Errorf("failed to encode %s crop: %w", format, err)
	}
	return buf.Bytes(), nil
}
