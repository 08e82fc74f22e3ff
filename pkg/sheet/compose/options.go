package compose

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/genarch/sheetpress/pkg/errors"
)

// Default values shared by the CLI and library callers.
const (
	// DefaultWorkers bounds the per-slot worker pool.
	DefaultWorkers = 4

	// DefaultFloorCount assumes a single-storey building when the caller
	// does not say otherwise.
	DefaultFloorCount = 1

	// MaxFloorCount is the largest building the catalog serves.
	MaxFloorCount = 3
)

// Panel is one externally generated source image. Either Data or URL must
// be set; Data wins when both are present.
type Panel struct {
	// RawKey is the caller's panel identifier, normalized on ingestion.
	RawKey string `json:"key"`

	// Data holds inline source bytes (PNG, JPEG or SVG text).
	Data []byte `json:"-"`

	// URL addresses the source when Data is absent.
	URL string `json:"url,omitempty"`

	// Floor and RunID identify the generation run upstream. They are
	// recorded in the manifest but do not affect placement.
	Floor int    `json:"floor,omitempty"`
	RunID string `json:"run_id,omitempty"`
}

// Options configures one composition request.
type Options struct {
	// Panels are the source images, one per canonical key.
	Panels []Panel `json:"panels"`

	// Template selects the layout; unknown names fall back to the
	// catalog default.
	Template string `json:"template,omitempty"`

	// FloorCount prunes upper-floor slots (1-3, default 1).
	FloorCount int `json:"floor_count,omitempty"`

	// Tier selects preview or print-master output dimensions.
	Tier string `json:"tier,omitempty"`

	// DisableQA skips the occupancy and render-sanity gates. Failures
	// that would have gated are still recorded as warnings.
	DisableQA bool `json:"disable_qa,omitempty"`

	// Workers bounds the per-slot worker pool (default 4).
	Workers int `json:"workers,omitempty"`

	// Title block metadata.
	Title         string  `json:"title,omitempty"`
	Client        string  `json:"client,omitempty"`
	ProjectNumber string  `json:"project_number,omitempty"`
	NorthDeg      float64 `json:"north_deg,omitempty"`

	// Logger receives composition progress (default: discard).
	Logger *log.Logger `json:"-"`

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool `json:"-"`
}

// ValidateAndSetDefaults checks the request and applies defaults.
// Idempotent: calling it repeatedly has the same effect as once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}

	if o.FloorCount == 0 {
		o.FloorCount = DefaultFloorCount
	}
	if o.FloorCount < 1 || o.FloorCount > MaxFloorCount {
		return errors.Fatal(errors.ErrCodeInvalidInput,
			"floor count %d out of range (1-%d)", o.FloorCount, MaxFloorCount)
	}

	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}

	seen := make(map[string]bool, len(o.Panels))
	for i, p := range o.Panels {
		if err := errors.ValidatePanelKey(p.RawKey); err != nil {
			return err
		}
		if len(p.Data) == 0 && p.URL == "" {
			return errors.Fatal(errors.ErrCodeInvalidPanel,
				"panel %q supplies neither data nor a source URL", p.RawKey)
		}
		if len(p.Data) == 0 {
			if err := errors.ValidateSourceURL(p.URL); err != nil {
				return err
			}
		}
		if seen[p.RawKey] {
			return errors.Fatal(errors.ErrCodeInvalidInput,
				"duplicate panel key %q", p.RawKey)
		}
		seen[p.RawKey] = true
		o.Panels[i] = p
	}

	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	o.validated = true
	return nil
}
