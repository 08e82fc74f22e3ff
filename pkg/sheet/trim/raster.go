package trim

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
)

const (
	// analysisMaxDim bounds the downsampled analysis canvas.
	analysisMaxDim = 512

	// alphaThreshold: pixels at or below this alpha are transparent
	// background regardless of color.
	alphaThreshold = 16

	// diffThreshold: a pixel is foreground when some channel deviates
	// from the sampled background by more than this (8-bit scale).
	diffThreshold = 24

	// rasterSkipCoverage: foreground covering at least this fraction of
	// the analysis canvas in both axes means the image is already tight.
	rasterSkipCoverage = 0.92

	// rasterPadFraction pads each side of the content box by this
	// fraction of the box's own dimension.
	rasterPadFraction = 0.006
)

// Raster crops an image to its detected foreground. The background color
// is sampled from border pixels; foreground is anything opaque enough that
// deviates from it. technicalPad is extra padding in pixels re-added
// around technical drawings so dimension text is not flush to the frame.
//
// When no foreground is found, the content box is degenerate, or the image
// is already tight, the original image is returned unchanged.
func Raster(img image.Image, technicalPad int) image.Image {
	srcW := img.Bounds().Dx()
	srcH := img.Bounds().Dy()
	if srcW < 4 || srcH < 4 {
		return img
	}

	analysis := img
	scale := 1.0
	if srcW > analysisMaxDim || srcH > analysisMaxDim {
		analysis = imaging.Fit(img, analysisMaxDim, analysisMaxDim, imaging.Box)
		scale = float64(srcW) / float64(analysis.Bounds().Dx())
	}

	bg, ok := sampleBackground(analysis)
	if !ok {
		// Fully transparent border; foreground is anything opaque.
		bg = rgb{255, 255, 255}
	}

	box, found := foregroundBox(analysis, bg)
	if !found {
		return img
	}

	aw := analysis.Bounds().Dx()
	ah := analysis.Bounds().Dy()
	boxW := box.Dx()
	boxH := box.Dy()
	if boxW < 2 || boxH < 2 {
		return img
	}
	if float64(boxW) >= rasterSkipCoverage*float64(aw) &&
		float64(boxH) >= rasterSkipCoverage*float64(ah) {
		return img
	}

	// Scale back to source resolution and pad.
	padX := int(math.Ceil(rasterPadFraction*float64(boxW)*scale)) + technicalPad
	padY := int(math.Ceil(rasterPadFraction*float64(boxH)*scale)) + technicalPad

	x0 := int(math.Floor(float64(box.Min.X)*scale)) - padX
	y0 := int(math.Floor(float64(box.Min.Y)*scale)) - padY
	x1 := int(math.Ceil(float64(box.Max.X)*scale)) + padX
	y1 := int(math.Ceil(float64(box.Max.Y)*scale)) + padY

	crop := image.Rect(max(x0, 0), max(y0, 0), min(x1, srcW), min(y1, srcH))
	if crop.Dx() < 2 || crop.Dy() < 2 {
		return img
	}
	if crop.Dx() == srcW && crop.Dy() == srcH {
		return img
	}

	return imaging.Crop(img, crop)
}

type rgb struct{ r, g, b uint8 }

// sampleBackground averages the border corner and edge-midpoint pixels
// that are not transparent. Returns false when every sample is
// transparent.
func sampleBackground(img image.Image) (rgb, bool) {
	bnd := img.Bounds()
	w, h := bnd.Dx(), bnd.Dy()
	points := []image.Point{
		{0, 0}, {w - 1, 0}, {0, h - 1}, {w - 1, h - 1},
		{w / 2, 0}, {w / 2, h - 1}, {0, h / 2}, {w - 1, h / 2},
	}

	var sumR, sumG, sumB, n int
	for _, p := range points {
		r, g, b, a := img.At(bnd.Min.X+p.X, bnd.Min.Y+p.Y).RGBA()
		if uint8(a>>8) <= alphaThreshold {
			continue
		}
		sumR += int(r >> 8)
		sumG += int(g >> 8)
		sumB += int(b >> 8)
		n++
	}
	if n == 0 {
		return rgb{}, false
	}
	return rgb{uint8(sumR / n), uint8(sumG / n), uint8(sumB / n)}, true
}

// foregroundBox scans every pixel and returns the bounding box of pixels
// that are opaque and deviate from the background color.
func foregroundBox(img image.Image, bg rgb) (image.Rectangle, bool) {
	bnd := img.Bounds()
	minX, minY := bnd.Max.X, bnd.Max.Y
	maxX, maxY := bnd.Min.X-1, bnd.Min.Y-1

	for y := bnd.Min.Y; y < bnd.Max.Y; y++ {
		for x := bnd.Min.X; x < bnd.Max.X; x++ {
			r, g, b, a := img.At(x, y).RGBA()
			if uint8(a>>8) <= alphaThreshold {
				continue
			}
			if !deviates(uint8(r>>8), bg.r) && !deviates(uint8(g>>8), bg.g) && !deviates(uint8(b>>8), bg.b) {
				continue
			}
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if maxX < minX || maxY < minY {
		return image.Rectangle{}, false
	}
	// Half-open rect covering the inclusive pixel span.
	return image.Rect(minX-bnd.Min.X, minY-bnd.Min.Y, maxX-bnd.Min.X+1, maxY-bnd.Min.Y+1), true
}

func deviates(c, bg uint8) bool {
	d := int(c) - int(bg)
	if d < 0 {
		d = -d
	}
	return d > diffThreshold
}
