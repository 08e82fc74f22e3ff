package qa

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/genarch/sheetpress/pkg/errors"
	"github.com/genarch/sheetpress/pkg/sheet/catalog"
	"github.com/genarch/sheetpress/pkg/sheet/place"
)

func strictPlan() catalog.PanelSpec {
	return catalog.Default().Spec(catalog.KeyGroundFloorPlan)
}

func lenientSection() catalog.PanelSpec {
	return catalog.Default().Spec(catalog.KeySectionAA)
}

func TestOccupancyBoundary(t *testing.T) {
	e := New()
	spec := strictPlan()

	// Exactly at the minimum passes.
	if err := e.CheckOccupancy("ground_floor_plan", spec, place.Occupancy{Ratio: DefaultMinOccupancy}); err != nil {
		t.Errorf("occupancy exactly at the minimum should pass: %v", err)
	}

	// One unit below fails.
	err := e.CheckOccupancy("ground_floor_plan", spec, place.Occupancy{Ratio: DefaultMinOccupancy - 0.001})
	if err == nil {
		t.Fatal("occupancy below the minimum should fail")
	}
	if !errors.Is(err, errors.ErrCodeOccupancyBelowMin) {
		t.Errorf("error code = %q", errors.GetCode(err))
	}
	ge, ok := errors.AsGateError(err)
	if !ok {
		t.Fatal("gate failure should carry a GateError")
	}
	if ge.Key != "ground_floor_plan" || ge.Required != DefaultMinOccupancy {
		t.Errorf("GateError = %+v", ge)
	}
}

func TestOccupancySeverityFollowsPartition(t *testing.T) {
	e := New()
	low := place.Occupancy{Ratio: 0.1}

	if err := e.CheckOccupancy("ground_floor_plan", strictPlan(), low); !errors.IsFatal(err) {
		t.Error("strict panel occupancy failure should be fatal")
	}
	if err := e.CheckOccupancy("section_aa", lenientSection(), low); err == nil || errors.IsFatal(err) {
		t.Error("lenient panel occupancy failure should be recoverable, not fatal")
	}
}

func TestOccupancyGateScope(t *testing.T) {
	e := New()
	low := place.Occupancy{Ratio: 0.05}
	cat := catalog.Default()

	// Cover panels always fill the slot; never gated.
	if err := e.CheckOccupancy("perspective", cat.Spec(catalog.KeyPerspective), low); err != nil {
		t.Errorf("cover panel should not be occupancy-gated: %v", err)
	}
	// Non-rotatable contain panels (stats, title) letterbox freely.
	if err := e.CheckOccupancy("stats_panel", cat.Spec(catalog.KeyStatsPanel), low); err != nil {
		t.Errorf("non-rotatable contain panel should not be gated: %v", err)
	}
}

func TestOccupancyDisabledEngine(t *testing.T) {
	e := Engine{Enabled: false}
	if err := e.CheckOccupancy("ground_floor_plan", strictPlan(), place.Occupancy{Ratio: 0}); err != nil {
		t.Errorf("disabled engine should pass everything: %v", err)
	}
}

func TestRenderSanityThinStrip(t *testing.T) {
	e := New()
	img := imaging.New(400, 300, color.White)

	err := e.CheckRenderSanity("north_elevation", strictPlan(), img,
		place.Occupancy{DrawnW: 400, DrawnH: 4, Ratio: 0.013})
	if err == nil {
		t.Fatal("a thin content strip should fail render sanity")
	}
	if !errors.Is(err, errors.ErrCodeRenderSanity) || !errors.IsFatal(err) {
		t.Errorf("want fatal RENDER_SANITY, got %v", err)
	}
}

func TestRenderSanityBlank(t *testing.T) {
	e := New()
	blank := imaging.New(400, 300, color.White)

	err := e.CheckRenderSanity("ground_floor_plan", strictPlan(), blank,
		place.Occupancy{DrawnW: 390, DrawnH: 290, Ratio: 0.94})
	if err == nil {
		t.Fatal("a visually blank placement should fail render sanity")
	}
}

func TestRenderSanityPassesRealContent(t *testing.T) {
	e := New()
	img := image.NewNRGBA(image.Rect(0, 0, 400, 300))
	for y := 0; y < 300; y++ {
		for x := 0; x < 400; x++ {
			// Checkerboard: plenty of variation.
			if (x/20+y/20)%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{A: 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
			}
		}
	}

	if err := e.CheckRenderSanity("ground_floor_plan", strictPlan(), img,
		place.Occupancy{DrawnW: 380, DrawnH: 280, Ratio: 0.88}); err != nil {
		t.Errorf("real content should pass render sanity: %v", err)
	}
}

func TestRenderSanityLenientSkipped(t *testing.T) {
	e := New()
	blank := imaging.New(400, 300, color.White)

	if err := e.CheckRenderSanity("section_aa", lenientSection(), blank,
		place.Occupancy{DrawnW: 390, DrawnH: 290, Ratio: 0.94}); err != nil {
		t.Errorf("lenient panels are not sanity-checked: %v", err)
	}
}
