// Package qa enforces the quality gates on placed panels: minimum
// occupancy for contain-mode technical drawings, and render sanity for
// load-bearing panels.
//
// Gate failures carry a GateError with the measured and required values.
// Severity follows the strict/lenient partition: strict panels abort the
// composition, lenient failures are recorded and substituted.
package qa

import (
	"image"

	"github.com/genarch/sheetpress/pkg/errors"
	"github.com/genarch/sheetpress/pkg/sheet/catalog"
	"github.com/genarch/sheetpress/pkg/sheet/place"
)

// DefaultMinOccupancy is the minimum contain-mode occupancy ratio.
const DefaultMinOccupancy = 0.4

// boundaryEpsilon absorbs float noise at the gate boundary so a ratio
// exactly at the minimum passes.
const boundaryEpsilon = 1e-9

// Render sanity thresholds.
const (
	// minStripFraction: drawn content narrower than this fraction of the
	// slot in either axis is a degenerate strip.
	minStripFraction = 0.04

	// blankSampleStride controls how densely the blank check samples.
	blankSampleStride = 7

	// maxBlankFraction: more near-uniform samples than this means the
	// placement rendered effectively nothing.
	maxBlankFraction = 0.995
)

// Engine evaluates quality gates. The zero value uses defaults; Enabled
// false short-circuits every check.
type Engine struct {
	MinOccupancy float64
	Enabled      bool
}

// New returns an enabled engine with the default minimum occupancy.
func New() Engine {
	return Engine{MinOccupancy: DefaultMinOccupancy, Enabled: true}
}

// CheckOccupancy gates a contain-mode placement. Only rotation-eligible
// contain panels are gated; cover placements always fill the slot and
// decorative panels are allowed to letterbox heavily. The returned error
// is fatal for strict panels and recoverable otherwise; nil when the gate
// passes or does not apply.
func (e Engine) CheckOccupancy(key string, spec catalog.PanelSpec, occ place.Occupancy) error {
	if !e.Enabled {
		return nil
	}
	if spec.Fit != catalog.FitContain || !spec.Rotatable {
		return nil
	}

	required := e.MinOccupancy
	if required <= 0 {
		required = DefaultMinOccupancy
	}
	if occ.Ratio+boundaryEpsilon >= required {
		return nil
	}

	ge := &errors.GateError{
		Key:      key,
		Reason:   "occupancy",
		Measured: occ.Ratio,
		Required: required,
	}
	err := errors.Wrap(errors.ErrCodeOccupancyBelowMin, ge,
		"panel %q occupancy %.3f below minimum %.3f", key, occ.Ratio, required)
	if spec.Strict {
		return errors.Escalate(err)
	}
	return err
}

// CheckRenderSanity rejects degenerate results for strict panels after
// compositing: a thin strip of content, or a placement that is visually
// blank. Lenient panels are not sanity-checked; a weak decorative panel
// is better than a placeholder.
func (e Engine) CheckRenderSanity(key string, spec catalog.PanelSpec, img image.Image, occ place.Occupancy) error {
	if !e.Enabled || !spec.Strict {
		return nil
	}

	w := img.Bounds().Dx()
	h := img.Bounds().Dy()
	if w == 0 || h == 0 {
		return errors.Escalate(sanityError(key, 0, minStripFraction))
	}

	fracW := float64(occ.DrawnW) / float64(w)
	fracH := float64(occ.DrawnH) / float64(h)
	if fracW < minStripFraction || fracH < minStripFraction {
		return errors.Escalate(sanityError(key, min(fracW, fracH), minStripFraction))
	}

	if blank := blankFraction(img); blank > maxBlankFraction {
		return errors.Escalate(sanityError(key, 1-blank, 1-maxBlankFraction))
	}
	return nil
}

func sanityError(key string, measured, required float64) error {
	ge := &errors.GateError{
		Key:      key,
		Reason:   "render-sanity",
		Measured: measured,
		Required: required,
	}
	return errors.Wrap(errors.ErrCodeRenderSanity, ge,
		"panel %q failed render sanity: %.4f below %.4f", key, measured, required)
}

// blankFraction samples the image on a grid and returns the fraction of
// samples that are near-uniform with the top-left pixel.
func blankFraction(img image.Image) float64 {
	bnd := img.Bounds()
	r0, g0, b0, _ := img.At(bnd.Min.X, bnd.Min.Y).RGBA()

	var total, same int
	for y := bnd.Min.Y; y < bnd.Max.Y; y += blankSampleStride {
		for x := bnd.Min.X; x < bnd.Max.X; x += blankSampleStride {
			total++
			r, g, b, _ := img.At(x, y).RGBA()
			if near(r, r0) && near(g, g0) && near(b, b0) {
				same++
			}
		}
	}
	if total == 0 {
		return 1
	}
	return float64(same) / float64(total)
}

func near(a, b uint32) bool {
	d := int(a>>8) - int(b>>8)
	if d < 0 {
		d = -d
	}
	return d <= 8
}
