// Package catalog defines the grid catalog: named sheet templates with
// normalized slot rectangles, the per-panel fit policy, the strict/lenient
// partition, and the alias tables for template and panel names.
//
// The catalog is built once at startup and never mutated. Composition code
// receives it explicitly; there are no package-level mutable tables.
package catalog

import (
	"maps"
	"sort"

	"github.com/genarch/sheetpress/pkg/errors"
)

// Epsilon tolerated on normalized slot bounds.
const boundsEpsilon = 1e-9

// SlotRect is a slot position in normalized sheet coordinates (0..1).
type SlotRect struct {
	X      float64 `toml:"x"`
	Y      float64 `toml:"y"`
	Width  float64 `toml:"width"`
	Height float64 `toml:"height"`
}

// overlaps reports whether two rects share positive area. Touching edges
// do not count as overlap.
func (r SlotRect) overlaps(o SlotRect) bool {
	return r.X < o.X+o.Width && o.X < r.X+r.Width &&
		r.Y < o.Y+o.Height && o.Y < r.Y+r.Height
}

// FitMode selects how a source image fills its slot.
type FitMode string

const (
	// FitCover crops the source to the slot aspect and fills it entirely.
	FitCover FitMode = "cover"

	// FitContain letterboxes the source so it fits entirely inside.
	FitContain FitMode = "contain"
)

// PanelSpec is the per-category policy for one canonical panel key.
type PanelSpec struct {
	// Fit is the placement policy (default contain).
	Fit FitMode

	// Strict panels abort the whole composition on failure. Lenient
	// panels degrade to a labeled placeholder.
	Strict bool

	// Rotatable panels (plans, elevations, sections) are eligible for
	// 90 degree auto-rotation and the occupancy gate.
	Rotatable bool

	// TechnicalPad is re-added around trimmed technical drawings, in
	// pixels at preview scale, so captions are not flush to the frame.
	TechnicalPad int

	// AlignX/AlignY bias the cover-mode crop (0 = keep the left/top edge,
	// 1 = keep the right/bottom edge, 0.5 = centered).
	AlignX float64
	AlignY float64

	// Label is the display name drawn in the caption band.
	Label string
}

// Template is an immutable named layout: canonical key to normalized slot.
type Template struct {
	Name  string
	Slots map[string]SlotRect
}

// Catalog holds every template, the panel policy table and the alias maps.
type Catalog struct {
	Templates       map[string]Template
	TemplateAliases map[string]string
	DefaultTemplate string
	Panels          map[string]PanelSpec
	KeyAliases      map[string]string
}

// Canonical panel keys.
const (
	KeyPerspective     = "perspective"
	KeyGroundFloorPlan = "ground_floor_plan"
	KeyFirstFloorPlan  = "first_floor_plan"
	KeySecondFloorPlan = "second_floor_plan"
	KeyNorthElevation  = "north_elevation"
	KeySectionAA       = "section_aa"
	KeySitePlan        = "site_plan"
	KeyInteriorRender  = "interior_render"
	KeyMaterialsBoard  = "materials_board"
	KeyStatsPanel      = "stats_panel"
	KeyTitleBlock      = "title_block"
)

// Default returns the built-in catalog. The result is freshly allocated so
// callers can extend a copy without affecting other users.
func Default() *Catalog {
	return &Catalog{
		DefaultTemplate: "presentation",
		Templates: map[string]Template{
			"presentation": {
				Name: "presentation",
				Slots: map[string]SlotRect{
					KeyGroundFloorPlan: {X: 0.02, Y: 0.03, Width: 0.30, Height: 0.28},
					KeyFirstFloorPlan:  {X: 0.02, Y: 0.32, Width: 0.30, Height: 0.28},
					KeySecondFloorPlan: {X: 0.02, Y: 0.61, Width: 0.30, Height: 0.28},
					KeyPerspective:     {X: 0.33, Y: 0.03, Width: 0.33, Height: 0.40},
					KeyNorthElevation:  {X: 0.33, Y: 0.45, Width: 0.33, Height: 0.21},
					KeySectionAA:       {X: 0.33, Y: 0.68, Width: 0.33, Height: 0.21},
					KeySitePlan:        {X: 0.67, Y: 0.03, Width: 0.31, Height: 0.25},
					KeyInteriorRender:  {X: 0.67, Y: 0.30, Width: 0.31, Height: 0.25},
					KeyMaterialsBoard:  {X: 0.67, Y: 0.57, Width: 0.31, Height: 0.16},
					KeyStatsPanel:      {X: 0.67, Y: 0.75, Width: 0.31, Height: 0.14},
					KeyTitleBlock:      {X: 0.02, Y: 0.92, Width: 0.96, Height: 0.06},
				},
			},
			"compact": {
				Name: "compact",
				Slots: map[string]SlotRect{
					KeyPerspective:     {X: 0.02, Y: 0.03, Width: 0.47, Height: 0.55},
					KeyNorthElevation:  {X: 0.02, Y: 0.60, Width: 0.47, Height: 0.29},
					KeyGroundFloorPlan: {X: 0.51, Y: 0.03, Width: 0.47, Height: 0.27},
					KeyFirstFloorPlan:  {X: 0.51, Y: 0.32, Width: 0.47, Height: 0.27},
					KeySecondFloorPlan: {X: 0.51, Y: 0.61, Width: 0.47, Height: 0.17},
					KeyStatsPanel:      {X: 0.51, Y: 0.80, Width: 0.47, Height: 0.09},
					KeyTitleBlock:      {X: 0.02, Y: 0.92, Width: 0.96, Height: 0.06},
				},
			},
			"portfolio": {
				Name: "portfolio",
				Slots: map[string]SlotRect{
					KeyPerspective:     {X: 0.02, Y: 0.03, Width: 0.58, Height: 0.52},
					KeyInteriorRender:  {X: 0.62, Y: 0.03, Width: 0.36, Height: 0.25},
					KeyMaterialsBoard:  {X: 0.62, Y: 0.30, Width: 0.36, Height: 0.25},
					KeyGroundFloorPlan: {X: 0.02, Y: 0.58, Width: 0.225, Height: 0.31},
					KeyFirstFloorPlan:  {X: 0.265, Y: 0.58, Width: 0.225, Height: 0.31},
					KeySecondFloorPlan: {X: 0.51, Y: 0.58, Width: 0.225, Height: 0.31},
					KeySectionAA:       {X: 0.755, Y: 0.58, Width: 0.225, Height: 0.31},
					KeyTitleBlock:      {X: 0.02, Y: 0.92, Width: 0.96, Height: 0.06},
				},
			},
		},
		TemplateAliases: map[string]string{
			"standard": "presentation",
			"default":  "presentation",
			"a1":       "presentation",
			"sheet":    "presentation",
			"minimal":  "compact",
			"summary":  "compact",
			"gallery":  "portfolio",
		},
		Panels: map[string]PanelSpec{
			KeyPerspective: {
				Fit: FitCover, Strict: true,
				AlignX: 0.5, AlignY: 0.33,
				Label: "Perspective",
			},
			KeyGroundFloorPlan: {
				Fit: FitContain, Strict: true, Rotatable: true, TechnicalPad: 12,
				AlignX: 0.5, AlignY: 0.5,
				Label: "Ground Floor Plan",
			},
			KeyFirstFloorPlan: {
				Fit: FitContain, Strict: true, Rotatable: true, TechnicalPad: 12,
				AlignX: 0.5, AlignY: 0.5,
				Label: "First Floor Plan",
			},
			KeySecondFloorPlan: {
				Fit: FitContain, Strict: true, Rotatable: true, TechnicalPad: 12,
				AlignX: 0.5, AlignY: 0.5,
				Label: "Second Floor Plan",
			},
			KeyNorthElevation: {
				Fit: FitContain, Strict: true, Rotatable: true, TechnicalPad: 12,
				AlignX: 0.5, AlignY: 0.5,
				Label: "North Elevation",
			},
			KeySectionAA: {
				Fit: FitContain, Rotatable: true, TechnicalPad: 12,
				AlignX: 0.5, AlignY: 0.5,
				Label: "Section A-A",
			},
			KeySitePlan: {
				Fit: FitContain, Rotatable: true, TechnicalPad: 12,
				AlignX: 0.5, AlignY: 0.5,
				Label: "Site Plan",
			},
			KeyInteriorRender: {
				Fit: FitCover,
				AlignX: 0.5, AlignY: 0.5,
				Label: "Interior",
			},
			KeyMaterialsBoard: {
				Fit: FitCover,
				AlignX: 0.5, AlignY: 0.5,
				Label: "Materials",
			},
			KeyStatsPanel: {
				Fit: FitContain,
				AlignX: 0.5, AlignY: 0.5,
				Label: "Project Data",
			},
			KeyTitleBlock: {
				Fit: FitContain,
				AlignX: 0.5, AlignY: 0.5,
				Label: "Title Block",
			},
		},
		KeyAliases: map[string]string{
			"floor_plan":         KeyGroundFloorPlan,
			"plan":               KeyGroundFloorPlan,
			"ground_floor":       KeyGroundFloorPlan,
			"ground_plan":        KeyGroundFloorPlan,
			"first_floor":        KeyFirstFloorPlan,
			"upper_floor_plan":   KeyFirstFloorPlan,
			"second_floor":       KeySecondFloorPlan,
			"hero":               KeyPerspective,
			"render":             KeyPerspective,
			"3d_render":          KeyPerspective,
			"perspective_render": KeyPerspective,
			"exterior_render":    KeyPerspective,
			"elevation":          KeyNorthElevation,
			"front_elevation":    KeyNorthElevation,
			"elevation_north":    KeyNorthElevation,
			"section":            KeySectionAA,
			"cross_section":      KeySectionAA,
			"section_a_a":        KeySectionAA,
			"site":               KeySitePlan,
			"siteplan":           KeySitePlan,
			"interior":           KeyInteriorRender,
			"materials":          KeyMaterialsBoard,
			"material_board":     KeyMaterialsBoard,
			"stats":              KeyStatsPanel,
			"data_panel":         KeyStatsPanel,
			"room_schedule":      KeyStatsPanel,
			"title":              KeyTitleBlock,
			"titleblock":         KeyTitleBlock,
		},
	}
}

// Spec returns the panel spec for a canonical key. Unknown keys get the
// default policy: contain fit, lenient, centered, no rotation.
func (c *Catalog) Spec(key string) PanelSpec {
	if spec, ok := c.Panels[key]; ok {
		return spec
	}
	return PanelSpec{Fit: FitContain, AlignX: 0.5, AlignY: 0.5, Label: key}
}

// ResolveTemplate maps a requested template name through the alias table.
// Unknown names fall back to the default template.
func (c *Catalog) ResolveTemplate(name string) Template {
	if t, ok := c.Templates[name]; ok {
		return t
	}
	if canonical, ok := c.TemplateAliases[name]; ok {
		if t, ok := c.Templates[canonical]; ok {
			return t
		}
	}
	return c.Templates[c.DefaultTemplate]
}

// Validate checks every template for out-of-range or overlapping slots and
// verifies the default template exists. Called once at startup; a catalog
// that fails validation must not be used.
func (c *Catalog) Validate() error {
	if _, ok := c.Templates[c.DefaultTemplate]; !ok {
		return errors.Fatal(errors.ErrCodeInvalidCatalog,
			"default template %q not defined", c.DefaultTemplate)
	}

	for name, tmpl := range c.Templates {
		keys := make([]string, 0, len(tmpl.Slots))
		for key := range tmpl.Slots {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			r := tmpl.Slots[key]
			if r.Width <= 0 || r.Height <= 0 {
				return errors.Fatal(errors.ErrCodeInvalidCatalog,
					"template %q slot %q has non-positive size", name, key)
			}
			if r.X < -boundsEpsilon || r.Y < -boundsEpsilon ||
				r.X+r.Width > 1+boundsEpsilon || r.Y+r.Height > 1+boundsEpsilon {
				return errors.Fatal(errors.ErrCodeInvalidCatalog,
					"template %q slot %q out of normalized bounds", name, key)
			}
		}

		for i, a := range keys {
			for _, b := range keys[i+1:] {
				if tmpl.Slots[a].overlaps(tmpl.Slots[b]) {
					return errors.Fatal(errors.ErrCodeInvalidCatalog,
						"template %q slots %q and %q overlap", name, a, b)
				}
			}
		}
	}

	for alias, target := range c.TemplateAliases {
		if _, ok := c.Templates[target]; !ok {
			return errors.Fatal(errors.ErrCodeInvalidCatalog,
				"template alias %q points at unknown template %q", alias, target)
		}
	}

	return nil
}

// clone returns a deep copy so overrides never mutate the built-in tables.
func (c *Catalog) clone() *Catalog {
	out := &Catalog{
		DefaultTemplate: c.DefaultTemplate,
		Templates:       make(map[string]Template, len(c.Templates)),
		TemplateAliases: maps.Clone(c.TemplateAliases),
		Panels:          maps.Clone(c.Panels),
		KeyAliases:      maps.Clone(c.KeyAliases),
	}
	for name, tmpl := range c.Templates {
		out.Templates[name] = Template{Name: tmpl.Name, Slots: maps.Clone(tmpl.Slots)}
	}
	return out
}
