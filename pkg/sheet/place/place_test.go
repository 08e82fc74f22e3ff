package place

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/disintegration/imaging"
)

func solid(w, h int) image.Image {
	return imaging.New(w, h, color.NRGBA{R: 40, G: 80, B: 120, A: 255})
}

func TestContainExactSize(t *testing.T) {
	out, occ := Contain(solid(300, 200), 400, 400, color.White)
	if out.Bounds().Dx() != 400 || out.Bounds().Dy() != 400 {
		t.Fatalf("contain output %dx%d, want 400x400", out.Bounds().Dx(), out.Bounds().Dy())
	}
	// 300x200 fit into 400x400 scales to 400x267 -> ratio ~0.667.
	if occ.Ratio < 0.6 || occ.Ratio > 0.7 {
		t.Errorf("occupancy = %v, want about 0.667", occ.Ratio)
	}
	if occ.DrawnW != 400 {
		t.Errorf("drawn width = %d, want 400", occ.DrawnW)
	}
}

func TestContainLetterboxesWithBackground(t *testing.T) {
	out, _ := Contain(solid(100, 100), 300, 100, color.White)

	// Margins left and right of the centered square must be background.
	r, g, b, _ := out.At(5, 50).RGBA()
	if r>>8 != 255 || g>>8 != 255 || b>>8 != 255 {
		t.Errorf("margin pixel = (%d,%d,%d), want white", r>>8, g>>8, b>>8)
	}
	r, g, b, _ = out.At(150, 50).RGBA()
	if r>>8 == 255 && g>>8 == 255 && b>>8 == 255 {
		t.Error("center pixel should be content, not background")
	}
}

func TestContainUpscalesSmallSource(t *testing.T) {
	// An aspect-matched source smaller than the box must be scaled up to
	// fill it, not pasted at native size.
	out, occ := Contain(solid(100, 80), 1000, 800, color.White)
	if out.Bounds().Dx() != 1000 || out.Bounds().Dy() != 800 {
		t.Fatalf("contain output %v, want 1000x800", out.Bounds())
	}
	if occ.DrawnW != 1000 || occ.DrawnH != 800 {
		t.Errorf("drawn = %dx%d, want 1000x800", occ.DrawnW, occ.DrawnH)
	}
	if occ.Ratio < 0.99 {
		t.Errorf("occupancy = %v, want about 1.0", occ.Ratio)
	}
	r, g, b, _ := out.At(500, 400).RGBA()
	if r>>8 == 255 && g>>8 == 255 && b>>8 == 255 {
		t.Error("center pixel should be upscaled content, not background")
	}
}

func TestContainOccupancyIndependentOfBoxScale(t *testing.T) {
	// The same source letterboxed into geometrically similar boxes at
	// different pixel scales must report the same occupancy. The 3x pair
	// mirrors the preview-to-print dimension ratio.
	src := solid(300, 100)
	_, preview := Contain(src, 505, 304, color.White)
	_, print := Contain(src, 1515, 912, color.White)

	if math.Abs(preview.Ratio-print.Ratio) > 0.01 {
		t.Errorf("occupancy diverges across scales: %v vs %v", preview.Ratio, print.Ratio)
	}

	want := containRatio(300, 100, 505, 304)
	if math.Abs(preview.Ratio-want) > 0.01 {
		t.Errorf("occupancy = %v, want about %v", preview.Ratio, want)
	}
	if math.Abs(print.Ratio-want) > 0.01 {
		t.Errorf("occupancy at 3x = %v, want about %v", print.Ratio, want)
	}
}

func TestCoverExactSize(t *testing.T) {
	out := Cover(solid(1000, 300), 200, 200, 0.5, 0.5)
	if out.Bounds().Dx() != 200 || out.Bounds().Dy() != 200 {
		t.Fatalf("cover output %dx%d, want 200x200", out.Bounds().Dx(), out.Bounds().Dy())
	}
}

func TestCoverAspectMatchSkipsCrop(t *testing.T) {
	// Same aspect within epsilon: a 800x600 source and a 400x300 box.
	src := solid(800, 600)
	out := Cover(src, 400, 300, 0.5, 0.5)
	if out.Bounds().Dx() != 400 || out.Bounds().Dy() != 300 {
		t.Fatalf("cover output %v", out.Bounds())
	}
	// Nothing to assert about pixels for a solid fill; the property under
	// test is the code path, covered by the alignment test below showing
	// cropping does happen when aspects differ.
}

func TestCoverAlignmentBias(t *testing.T) {
	// Source: top half red, bottom half blue, twice as tall as the box
	// aspect. AlignY 0 keeps the top, AlignY 1 keeps the bottom.
	src := image.NewNRGBA(image.Rect(0, 0, 100, 200))
	for y := 0; y < 200; y++ {
		c := color.NRGBA{R: 255, A: 255}
		if y >= 100 {
			c = color.NRGBA{B: 255, A: 255}
		}
		for x := 0; x < 100; x++ {
			src.SetNRGBA(x, y, c)
		}
	}

	top := Cover(src, 100, 100, 0.5, 0)
	r, _, _, _ := top.At(50, 50).RGBA()
	if r>>8 < 200 {
		t.Error("alignY=0 should keep the top (red) half")
	}

	bottom := Cover(src, 100, 100, 0.5, 1)
	_, _, b, _ := bottom.At(50, 50).RGBA()
	if b>>8 < 200 {
		t.Error("alignY=1 should keep the bottom (blue) half")
	}
}

func TestAutoRotateMonotonicity(t *testing.T) {
	// Portrait source, landscape slot, sourceAspect < 1/slotAspect:
	// rotation must strictly increase occupancy.
	srcW, srcH := 200, 600 // aspect 1/3
	boxW, boxH := 300, 150 // aspect 2

	before := containRatio(srcW, srcH, boxW, boxH)
	after := containRatio(srcH, srcW, boxW, boxH)
	if after <= before {
		t.Fatalf("rotation should increase occupancy: %v -> %v", before, after)
	}

	img, rotated := AutoRotate(solid(srcW, srcH), boxW, boxH)
	if !rotated {
		t.Fatal("AutoRotate should rotate")
	}
	if img.Bounds().Dx() != srcH || img.Bounds().Dy() != srcW {
		t.Errorf("rotated dims = %v, want %dx%d", img.Bounds(), srcH, srcW)
	}
}

func TestAutoRotateSkipsMarginalGain(t *testing.T) {
	// Nearly square source: rotation changes nothing worth having.
	img, rotated := AutoRotate(solid(100, 105), 200, 200)
	if rotated {
		t.Error("AutoRotate should not rotate for marginal gains")
	}
	if img.Bounds().Dx() != 100 {
		t.Error("source must pass through unrotated")
	}
}

func TestFitCoverAlwaysFullOccupancy(t *testing.T) {
	res := Fit(solid(500, 100), 200, 200, true, 0.5, 0.5, false, color.White)
	if res.Occupancy.Ratio != 1 {
		t.Errorf("cover occupancy = %v, want 1", res.Occupancy.Ratio)
	}
	if res.Rotated {
		t.Error("cover placements never rotate")
	}
}

func TestFitContainReportsOccupancy(t *testing.T) {
	res := Fit(solid(100, 400), 400, 200, false, 0.5, 0.5, true, color.White)
	if res.Image.Bounds().Dx() != 400 || res.Image.Bounds().Dy() != 200 {
		t.Fatalf("output %v, want 400x200", res.Image.Bounds())
	}
	if !res.Rotated {
		t.Error("extreme portrait source in a landscape box should rotate")
	}
	want := containRatio(400, 100, 400, 200)
	if math.Abs(res.Occupancy.Ratio-want) > 0.02 {
		t.Errorf("occupancy = %v, want about %v", res.Occupancy.Ratio, want)
	}
}

func TestCaptionBand(t *testing.T) {
	tests := []struct {
		sheetH int
		want   int
	}{
		{1188, 29},
		{3564, 86},
		{500, 20},
	}
	for _, tt := range tests {
		if got := CaptionBand(tt.sheetH); got != tt.want {
			t.Errorf("CaptionBand(%d) = %d, want %d", tt.sheetH, got, tt.want)
		}
	}
}
