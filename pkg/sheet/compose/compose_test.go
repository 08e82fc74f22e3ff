package compose

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/genarch/sheetpress/pkg/errors"
	"github.com/genarch/sheetpress/pkg/fetch"
	"github.com/genarch/sheetpress/pkg/sheet/catalog"
)

// checkerPNG encodes a checkerboard so placements carry real content that
// survives the render-sanity gate.
func checkerPNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/16+y/16)%2 == 0 {
				img.SetNRGBA(x, y, color.NRGBA{R: 40, G: 40, B: 40, A: 255})
			} else {
				img.SetNRGBA(x, y, color.NRGBA{R: 230, G: 230, B: 230, A: 255})
			}
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// strictPanels supplies every strict panel for a single-storey
// presentation sheet.
func strictPanels(t *testing.T) []Panel {
	t.Helper()
	return []Panel{
		{RawKey: "perspective", Data: checkerPNG(t, 500, 400)},
		{RawKey: "ground_floor_plan", Data: checkerPNG(t, 600, 400)},
		{RawKey: "north_elevation", Data: checkerPNG(t, 600, 220)},
	}
}

func newComposer(t *testing.T, opts ...Option) *Composer {
	t.Helper()
	c, err := New(nil, opts...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestComposeSuccessWithSubstitutions(t *testing.T) {
	c := newComposer(t)

	sheet, err := c.Compose(context.Background(), Options{
		Panels:     strictPanels(t),
		Template:   "presentation",
		FloorCount: 1,
		Title:      "Test House",
	})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	if sheet.TemplateUsed != "presentation" {
		t.Errorf("TemplateUsed = %q", sheet.TemplateUsed)
	}
	if sheet.Width != 1682 || sheet.Height != 1188 {
		t.Errorf("dimensions = %dx%d, want 1682x1188", sheet.Width, sheet.Height)
	}
	if len(sheet.PNG) == 0 {
		t.Error("PNG output is empty")
	}
	if sheet.SheetID == "" {
		t.Error("SheetID not assigned")
	}

	// Every lenient slot without a source degrades to a placeholder.
	for _, key := range []string{"section_aa", "site_plan", "interior_render", "materials_board", "stats_panel", "title_block"} {
		if !slices.Contains(sheet.Substitutions, key) {
			t.Errorf("substitutions missing %q: %v", key, sheet.Substitutions)
		}
	}
	for _, key := range []string{"perspective", "ground_floor_plan", "north_elevation"} {
		if slices.Contains(sheet.Substitutions, key) {
			t.Errorf("strict panel %q should not be substituted", key)
		}
	}
}

func TestComposeMissingLenientPanel(t *testing.T) {
	c := newComposer(t)

	panels := append(strictPanels(t), Panel{RawKey: "stats_panel", Data: checkerPNG(t, 300, 200)})
	sheet, err := c.Compose(context.Background(), Options{Panels: panels, FloorCount: 1})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}

	if slices.Contains(sheet.Substitutions, "stats_panel") {
		t.Error("supplied lenient panel must not be substituted")
	}
	if !slices.Contains(sheet.Substitutions, "title_block") {
		t.Errorf("missing lenient panel should be substituted: %v", sheet.Substitutions)
	}
	if rec := sheet.Panels["title_block"]; !rec.Substituted {
		t.Error("panel record should mark the substitution")
	}
}

// countingFetcher records how many fetches happen without serving any.
type countingFetcher struct {
	calls atomic.Int32
}

func (f *countingFetcher) Fetch(context.Context, string) ([]byte, fetch.Format, error) {
	f.calls.Add(1)
	return nil, "", errors.New(errors.ErrCodeFetch, "unavailable")
}

func TestComposeMissingStrictPanelFailsFastBeforeDecoding(t *testing.T) {
	fetcher := &countingFetcher{}
	c := newComposer(t, WithFetcher(fetcher))

	// Strict ground_floor_plan missing; everything else addressed by URL
	// so any decode attempt would show up as a fetch.
	_, err := c.Compose(context.Background(), Options{
		Panels: []Panel{
			{RawKey: "perspective", URL: "https://cdn.example.com/p.png"},
			{RawKey: "north_elevation", URL: "https://cdn.example.com/e.png"},
		},
		FloorCount: 1,
	})
	if err == nil {
		t.Fatal("Compose() should reject a missing strict panel")
	}
	if !errors.Is(err, errors.ErrCodeStrictPanelMissing) {
		t.Errorf("error code = %q, want STRICT_PANEL_MISSING", errors.GetCode(err))
	}
	if !errors.IsFatal(err) {
		t.Error("strict rejection must be fatal")
	}
	if !strings.Contains(err.Error(), "ground_floor_plan") {
		t.Errorf("rejection must name the missing key: %v", err)
	}
	if n := fetcher.calls.Load(); n != 0 {
		t.Errorf("fetches before rejection = %d, want 0", n)
	}
}

func TestComposeCoordinatesMatchLayout(t *testing.T) {
	c := newComposer(t)

	sheet, err := c.Compose(context.Background(), Options{Panels: strictPanels(t), FloorCount: 1})
	if err != nil {
		t.Fatal(err)
	}

	full := len(catalog.Default().Templates["presentation"].Slots)
	if sheet.PanelCount != full-2 {
		t.Errorf("PanelCount = %d, want %d (both upper floors pruned)", sheet.PanelCount, full-2)
	}

	bounds := image.Rect(0, 0, sheet.Width, sheet.Height)
	keys := make([]string, 0, len(sheet.Coordinates))
	for key, rect := range sheet.Coordinates {
		keys = append(keys, key)
		if rect.Empty() || !rect.In(bounds) {
			t.Errorf("coordinate %q = %v out of bounds", key, rect)
		}
		rec, ok := sheet.Panels[key]
		if !ok {
			t.Errorf("panel record missing for %q", key)
			continue
		}
		if rec.Rect != rect {
			t.Errorf("manifest rect for %q = %v, coordinate map says %v", key, rec.Rect, rect)
		}
	}
	for i, a := range keys {
		for _, b := range keys[i+1:] {
			if sheet.Coordinates[a].Overlaps(sheet.Coordinates[b]) {
				t.Errorf("coordinates %q and %q overlap", a, b)
			}
		}
	}
}

func TestComposeStrictOccupancyFailure(t *testing.T) {
	c := newComposer(t)

	panels := []Panel{
		{RawKey: "perspective", Data: checkerPNG(t, 500, 400)},
		// An extreme strip letterboxes far below the minimum.
		{RawKey: "ground_floor_plan", Data: checkerPNG(t, 1600, 32)},
		{RawKey: "north_elevation", Data: checkerPNG(t, 600, 220)},
	}

	_, err := c.Compose(context.Background(), Options{Panels: panels, FloorCount: 1})
	if err == nil {
		t.Fatal("Compose() should reject a strict panel below minimum occupancy")
	}
	if !errors.Is(err, errors.ErrCodeOccupancyBelowMin) {
		t.Errorf("error code = %q, want OCCUPANCY_BELOW_MIN", errors.GetCode(err))
	}
	ge, ok := errors.AsGateError(err)
	if !ok {
		t.Fatal("rejection should carry measured vs required values")
	}
	if ge.Key != "ground_floor_plan" || ge.Measured >= ge.Required {
		t.Errorf("GateError = %+v", ge)
	}
}

func TestComposeSmallStrictPanelUpscaledThroughGate(t *testing.T) {
	c := newComposer(t)

	// A low-resolution plan whose aspect roughly matches its slot must
	// pass the occupancy gate: placement scales up to fill the slot, so
	// occupancy depends on geometry, not source pixel count.
	panels := []Panel{
		{RawKey: "perspective", Data: checkerPNG(t, 500, 400)},
		{RawKey: "ground_floor_plan", Data: checkerPNG(t, 160, 96)},
		{RawKey: "north_elevation", Data: checkerPNG(t, 600, 220)},
	}

	sheet, err := c.Compose(context.Background(), Options{Panels: panels, FloorCount: 1})
	if err != nil {
		t.Fatalf("Compose() error = %v", err)
	}
	rec := sheet.Panels["ground_floor_plan"]
	if rec.Occupancy < 0.9 {
		t.Errorf("occupancy = %v, want near 1.0 for an aspect-matched source", rec.Occupancy)
	}
	if rec.Substituted {
		t.Error("strict panel must not be substituted")
	}
}

func TestComposeDisabledQARecordsWarning(t *testing.T) {
	c := newComposer(t)

	panels := []Panel{
		{RawKey: "perspective", Data: checkerPNG(t, 500, 400)},
		{RawKey: "ground_floor_plan", Data: checkerPNG(t, 1600, 32)},
		{RawKey: "north_elevation", Data: checkerPNG(t, 600, 220)},
	}

	sheet, err := c.Compose(context.Background(), Options{
		Panels:     panels,
		FloorCount: 1,
		DisableQA:  true,
	})
	if err != nil {
		t.Fatalf("Compose() with QA disabled should succeed: %v", err)
	}

	found := false
	for _, w := range sheet.Warnings {
		if strings.Contains(w, "ground_floor_plan") && strings.Contains(w, "occupancy") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a low-occupancy warning, got %v", sheet.Warnings)
	}
}

func TestComposeUnknownKeyWarns(t *testing.T) {
	c := newComposer(t)

	panels := append(strictPanels(t), Panel{RawKey: "mystery_panel", Data: checkerPNG(t, 100, 100)})
	sheet, err := c.Compose(context.Background(), Options{Panels: panels, FloorCount: 1})
	if err != nil {
		t.Fatal(err)
	}

	found := false
	for _, w := range sheet.Warnings {
		if strings.Contains(w, "mystery_panel") {
			found = true
		}
	}
	if !found {
		t.Errorf("unknown key should be recorded as a warning: %v", sheet.Warnings)
	}
}

func TestComposeDuplicateCanonicalKeysRejected(t *testing.T) {
	c := newComposer(t)

	panels := append(strictPanels(t),
		Panel{RawKey: "Floor Plan", Data: checkerPNG(t, 100, 100)}) // alias of ground_floor_plan
	_, err := c.Compose(context.Background(), Options{Panels: panels, FloorCount: 1})
	if err == nil {
		t.Fatal("two panels resolving to one canonical key should be rejected")
	}
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error code = %q", errors.GetCode(err))
	}
}

func TestComposeFloorCountAddsSlots(t *testing.T) {
	c := newComposer(t)

	panels := append(strictPanels(t),
		Panel{RawKey: "first_floor_plan", Data: checkerPNG(t, 600, 400)})
	sheet, err := c.Compose(context.Background(), Options{Panels: panels, FloorCount: 2})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := sheet.Coordinates["first_floor_plan"]; !ok {
		t.Error("floorCount=2 should include the first floor slot")
	}
	if _, ok := sheet.Coordinates["second_floor_plan"]; ok {
		t.Error("floorCount=2 should still prune the second floor slot")
	}
}

func TestComposeInvalidOptions(t *testing.T) {
	c := newComposer(t)
	ctx := context.Background()

	cases := []Options{
		{Panels: []Panel{{RawKey: "", Data: []byte("x")}}},
		{Panels: []Panel{{RawKey: "perspective"}}},                                  // no data, no URL
		{Panels: []Panel{{RawKey: "perspective", URL: "ftp://x/y.png"}}},            // bad scheme
		{Panels: strictPanels(t), FloorCount: 9},                                    // floors out of range
		{Panels: []Panel{{RawKey: "../etc", Data: []byte("x")}}},                    // traversal
		{Panels: []Panel{{RawKey: "a", Data: []byte("x")}, {RawKey: "a", Data: []byte("y")}}}, // dup
	}
	for i, opts := range cases {
		if _, err := c.Compose(ctx, opts); err == nil {
			t.Errorf("case %d: Compose() should fail validation", i)
		}
	}
}

func TestBuildManifest(t *testing.T) {
	c := newComposer(t)

	opts := Options{Panels: strictPanels(t), FloorCount: 1, Title: "Brick House", Client: "ACME"}
	sheet, err := c.Compose(context.Background(), opts)
	if err != nil {
		t.Fatal(err)
	}

	m := BuildManifest(sheet, opts)
	if m.SheetID != sheet.SheetID || m.Template != sheet.TemplateUsed {
		t.Error("manifest must echo sheet identity")
	}
	if m.TitleBlock.Title != "Brick House" || m.TitleBlock.Client != "ACME" {
		t.Errorf("title block = %+v", m.TitleBlock)
	}
	if len(m.Panels) != sheet.PanelCount {
		t.Errorf("manifest panels = %d, want %d", len(m.Panels), sheet.PanelCount)
	}
	for key, rect := range sheet.Coordinates {
		rec := m.Panels[key]
		if rec.X != rect.Min.X || rec.Width != rect.Dx() {
			t.Errorf("manifest rect for %q diverges from coordinates", key)
		}
	}
}

type rejectingCritic struct{}

func (rejectingCritic) Review(context.Context, *Sheet) error {
	return errors.New(errors.ErrCodeRenderSanity, "critic says no")
}

func TestComposeCriticRejection(t *testing.T) {
	c := newComposer(t, WithCritic(rejectingCritic{}))

	_, err := c.Compose(context.Background(), Options{Panels: strictPanels(t), FloorCount: 1})
	if err == nil {
		t.Fatal("critic rejection should fail the composition")
	}
	if !errors.IsFatal(err) {
		t.Error("critic rejection must be fatal")
	}
}
