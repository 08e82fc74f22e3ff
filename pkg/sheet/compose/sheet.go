package compose

import (
	"image"
	"time"
)

// Sheet is a finished composition. Built once and returned; the composer
// retains nothing.
type Sheet struct {
	// PNG is the encoded output raster.
	PNG []byte

	// Image is the composed raster before encoding.
	Image *image.NRGBA

	// Coordinates maps each placed canonical key to its slot pixel rect,
	// letting downstream tooling reuse exact placements.
	Coordinates map[string]image.Rectangle

	// Panels records per-slot placement detail for the manifest.
	Panels map[string]PanelRecord

	Width  int
	Height int

	// TemplateUsed names the layout after alias resolution and fallback.
	TemplateUsed string

	// Tier is the resolved resolution tier.
	Tier string

	// PanelCount is the number of slots filled, placeholders included.
	PanelCount int

	// Substitutions lists canonical keys that degraded to a placeholder.
	Substitutions []string

	// Warnings lists recoverable events: trim fallbacks, lenient gate
	// failures, unknown keys.
	Warnings []string

	// SheetID uniquely identifies this composition in the manifest.
	SheetID string

	// Stats holds stage timings.
	Stats Stats
}

// Stats contains composition timing per stage.
type Stats struct {
	Resolve time.Duration
	Panels  time.Duration
	Overlay time.Duration
	Encode  time.Duration
}

// PanelRecord describes one placed slot.
type PanelRecord struct {
	Rect        image.Rectangle `json:"-"`
	X           int             `json:"x"`
	Y           int             `json:"y"`
	Width       int             `json:"width"`
	Height      int             `json:"height"`
	SourceHash  string          `json:"source_hash,omitempty"`
	Occupancy   float64         `json:"occupancy"`
	Rotated     bool            `json:"rotated,omitempty"`
	Substituted bool            `json:"substituted,omitempty"`
}
