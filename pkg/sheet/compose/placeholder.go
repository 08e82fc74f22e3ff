package compose

import (
	"image"

	"github.com/fogleman/gg"

	"github.com/genarch/sheetpress/pkg/fonts"
)

// placeholderImage draws the substitute for a failed lenient panel: a
// muted fill, a red border, the panel's display label and a warning line.
func placeholderImage(w, h int, label string) *image.NRGBA {
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	dc := gg.NewContext(w, h)

	dc.SetRGB(0.93, 0.93, 0.93)
	dc.Clear()

	dc.SetRGB(0.85, 0.2, 0.2)
	dc.SetLineWidth(2)
	dc.DrawRectangle(1, 1, float64(w)-2, float64(h)-2)
	dc.Stroke()

	size := float64(h) / 12
	if size < 10 {
		size = 10
	}
	if size > 28 {
		size = 28
	}
	if face, err := fonts.Face(size); err == nil {
		dc.SetFontFace(face)
		dc.SetRGB(0.85, 0.2, 0.2)
		dc.DrawStringAnchored("MISSING: "+label, float64(w)/2, float64(h)/2, 0.5, 0.5)
		if small, err := fonts.Face(size * 0.6); err == nil {
			dc.SetFontFace(small)
			dc.SetRGB(0.4, 0.4, 0.4)
			dc.DrawStringAnchored("panel substituted", float64(w)/2, float64(h)/2+size*1.4, 0.5, 0.5)
		}
	}

	return imageToNRGBA(dc.Image())
}

func imageToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out.Set(x-b.Min.X, y-b.Min.Y, img.At(x, y))
		}
	}
	return out
}
