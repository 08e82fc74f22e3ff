// Package place fits source images into slot rectangles under the
// cover/contain policy, with optional 90 degree auto-rotation for
// technical drawings.
//
// Placement always produces an image exactly sized to the requested box.
// Cover crops to the slot aspect and fills it; contain letterboxes,
// reporting how much of the slot the drawn content occupies.
package place

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// AspectEpsilon: cover-mode sources whose aspect already matches the slot
// within this tolerance skip cropping and resize directly.
const AspectEpsilon = 0.001

// RotateGain: auto-rotation happens only when the 90 degree contain
// occupancy beats the 0 degree occupancy by more than this.
const RotateGain = 0.08

// Occupancy describes how much of a contain-mode slot the drawn content
// covers. Cover-mode placements always fill the slot entirely.
type Occupancy struct {
	DrawnW int
	DrawnH int
	Ratio  float64
}

// containRatio computes contain-mode occupancy analytically, without
// resizing anything.
func containRatio(srcW, srcH, boxW, boxH int) float64 {
	if srcW <= 0 || srcH <= 0 || boxW <= 0 || boxH <= 0 {
		return 0
	}
	scale := math.Min(float64(boxW)/float64(srcW), float64(boxH)/float64(srcH))
	return (float64(srcW) * scale * float64(srcH) * scale) / (float64(boxW) * float64(boxH))
}

// Contain letterboxes src into a boxW x boxH canvas filled with bg,
// centered, preserving aspect. The source is scaled up as well as down,
// so occupancy depends on geometry alone, never on source resolution:
// the reported ratio matches containRatio up to pixel rounding.
func Contain(src image.Image, boxW, boxH int, bg color.Color) (*image.NRGBA, Occupancy) {
	canvas := imaging.New(boxW, boxH, bg)
	srcW, srcH := src.Bounds().Dx(), src.Bounds().Dy()
	if srcW <= 0 || srcH <= 0 || boxW <= 0 || boxH <= 0 {
		return canvas, Occupancy{}
	}

	scale := math.Min(float64(boxW)/float64(srcW), float64(boxH)/float64(srcH))
	dw := min(int(math.Round(float64(srcW)*scale)), boxW)
	dh := min(int(math.Round(float64(srcH)*scale)), boxH)
	dw = max(dw, 1)
	dh = max(dh, 1)

	resized := imaging.Resize(src, dw, dh, imaging.Lanczos)
	out := imaging.Paste(canvas, resized, image.Pt((boxW-dw)/2, (boxH-dh)/2))

	return out, Occupancy{
		DrawnW: dw,
		DrawnH: dh,
		Ratio:  float64(dw) * float64(dh) / (float64(boxW) * float64(boxH)),
	}
}

// Cover fills a boxW x boxH canvas entirely, cropping the source to the
// box aspect first. alignX/alignY choose which part survives the crop
// (0 keeps the left/top edge, 1 the right/bottom, 0.5 is centered).
// Sources whose aspect already matches within AspectEpsilon skip the crop.
func Cover(src image.Image, boxW, boxH int, alignX, alignY float64) *image.NRGBA {
	srcW, srcH := src.Bounds().Dx(), src.Bounds().Dy()
	if srcW <= 0 || srcH <= 0 {
		return imaging.New(boxW, boxH, color.White)
	}

	srcAspect := float64(srcW) / float64(srcH)
	boxAspect := float64(boxW) / float64(boxH)

	if math.Abs(srcAspect-boxAspect) <= AspectEpsilon {
		return imaging.Resize(src, boxW, boxH, imaging.Lanczos)
	}

	cropped := src
	if srcAspect > boxAspect {
		// Relatively wider: crop width.
		cropW := int(math.Round(float64(srcH) * boxAspect))
		x0 := int(math.Round(alignX * float64(srcW-cropW)))
		cropped = imaging.Crop(src, image.Rect(x0, 0, x0+cropW, srcH).Add(src.Bounds().Min))
	} else {
		// Relatively taller: crop height.
		cropH := int(math.Round(float64(srcW) / boxAspect))
		y0 := int(math.Round(alignY * float64(srcH-cropH)))
		cropped = imaging.Crop(src, image.Rect(0, y0, srcW, y0+cropH).Add(src.Bounds().Min))
	}

	return imaging.Resize(cropped, boxW, boxH, imaging.Lanczos)
}

// AutoRotate rotates src 90 degrees counter-clockwise when that improves
// contain occupancy in the box by more than RotateGain. Returns the image
// to place and whether rotation happened.
func AutoRotate(src image.Image, boxW, boxH int) (image.Image, bool) {
	srcW, srcH := src.Bounds().Dx(), src.Bounds().Dy()
	straight := containRatio(srcW, srcH, boxW, boxH)
	rotated := containRatio(srcH, srcW, boxW, boxH)
	if rotated-straight > RotateGain {
		return imaging.Rotate90(src), true
	}
	return src, false
}

// Result is a finished placement.
type Result struct {
	Image     *image.NRGBA
	Occupancy Occupancy
	Rotated   bool
}

// Fit places src into a boxW x boxH area. cover crops and fills; contain
// letterboxes. rotatable enables the auto-rotation comparison before
// contain placement.
func Fit(src image.Image, boxW, boxH int, cover bool, alignX, alignY float64, rotatable bool, bg color.Color) Result {
	if cover {
		return Result{
			Image:     Cover(src, boxW, boxH, alignX, alignY),
			Occupancy: Occupancy{DrawnW: boxW, DrawnH: boxH, Ratio: 1},
		}
	}

	rotated := false
	if rotatable {
		src, rotated = AutoRotate(src, boxW, boxH)
	}
	img, occ := Contain(src, boxW, boxH, bg)
	return Result{Image: img, Occupancy: occ, Rotated: rotated}
}

// CaptionBand returns the caption band height in pixels for a sheet of
// the given height: about 24px per 1000px, never below 20.
func CaptionBand(sheetH int) int {
	h := int(math.Round(0.024 * float64(sheetH)))
	if h < 20 {
		return 20
	}
	return h
}
