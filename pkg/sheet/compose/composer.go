// Package compose orchestrates sheet composition: validate, normalize,
// resolve the layout, then per slot trim, place and gate, and finally
// overlay annotations and encode the output.
//
// The composer is stateless apart from its injected collaborators; one
// instance serves concurrent requests. There is no retry inside a request:
// regeneration is an external concern that re-invokes the whole pipeline.
package compose

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"sort"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/genarch/sheetpress/pkg/cache"
	"github.com/genarch/sheetpress/pkg/errors"
	"github.com/genarch/sheetpress/pkg/fetch"
	"github.com/genarch/sheetpress/pkg/observability"
	"github.com/genarch/sheetpress/pkg/sheet/catalog"
	"github.com/genarch/sheetpress/pkg/sheet/keys"
	"github.com/genarch/sheetpress/pkg/sheet/layout"
	"github.com/genarch/sheetpress/pkg/sheet/place"
	"github.com/genarch/sheetpress/pkg/sheet/qa"
	"github.com/genarch/sheetpress/pkg/sheet/trim"
)

// previewWidth is the reference width for catalog pixel values such as
// TechnicalPad; other tiers scale proportionally.
const previewWidth = 1682

// Fetcher retrieves source bytes for URL-addressed panels.
type Fetcher interface {
	Fetch(ctx context.Context, source string) ([]byte, fetch.Format, error)
}

// Registry supplies the authoritative required-key list per floor count.
// The default derives it from the catalog's strict set.
type Registry interface {
	RequiredKeys(floorCount int) []string
}

// Critic semantically grades a finished sheet. The default accepts
// everything; real critics are injected by the caller.
type Critic interface {
	Review(ctx context.Context, s *Sheet) error
}

// Composer composes presentation sheets. Create one with New.
type Composer struct {
	cat          *catalog.Catalog
	norm         *keys.Normalizer
	fetcher      Fetcher
	registry     Registry
	critic       Critic
	minOccupancy float64
}

// Option configures a Composer.
type Option func(*Composer)

// WithFetcher sets the source fetcher for URL-addressed panels.
func WithFetcher(f Fetcher) Option {
	return func(c *Composer) {
		if f != nil {
			c.fetcher = f
		}
	}
}

// WithRegistry replaces the default catalog-derived required-key registry.
func WithRegistry(r Registry) Option {
	return func(c *Composer) {
		if r != nil {
			c.registry = r
		}
	}
}

// WithCritic sets the sheet critic.
func WithCritic(cr Critic) Option {
	return func(c *Composer) {
		if cr != nil {
			c.critic = cr
		}
	}
}

// WithMinOccupancy overrides the occupancy gate minimum.
func WithMinOccupancy(v float64) Option {
	return func(c *Composer) { c.minOccupancy = v }
}

// New creates a composer over the given catalog (nil selects the built-in
// default). The catalog is validated once here.
func New(cat *catalog.Catalog, opts ...Option) (*Composer, error) {
	if cat == nil {
		cat = catalog.Default()
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}

	c := &Composer{
		cat:          cat,
		norm:         keys.New(cat),
		registry:     catalogRegistry{cat: cat},
		critic:       noopCritic{},
		minOccupancy: qa.DefaultMinOccupancy,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// catalogRegistry derives required keys from the catalog strict set,
// pruned by floor count the same way the layout resolver prunes slots.
type catalogRegistry struct {
	cat *catalog.Catalog
}

func (r catalogRegistry) RequiredKeys(floorCount int) []string {
	var out []string
	for key, spec := range r.cat.Panels {
		if !spec.Strict {
			continue
		}
		if floorCount < 2 && key == catalog.KeyFirstFloorPlan {
			continue
		}
		if floorCount < 3 && key == catalog.KeySecondFloorPlan {
			continue
		}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

type noopCritic struct{}

func (noopCritic) Review(context.Context, *Sheet) error { return nil }

// recorder accumulates substitutions and warnings across slot workers.
type recorder struct {
	mu       sync.Mutex
	subs     []string
	warnings []string
}

func (r *recorder) substitute(ctx context.Context, key, reason string) {
	r.mu.Lock()
	r.subs = append(r.subs, key)
	r.mu.Unlock()
	observability.Composer().OnSubstitution(ctx, key, reason)
}

func (r *recorder) warn(format string, args ...any) {
	r.mu.Lock()
	r.warnings = append(r.warnings, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

// placed is one finished slot: the content image sized to the slot's
// content box (the slot minus its caption band).
type placed struct {
	key         string
	img         *image.NRGBA
	occ         place.Occupancy
	rotated     bool
	substituted bool
	sourceHash  string
}

// Compose runs the full pipeline for one request. On success the sheet
// may carry substitutions; on a strict failure no partial sheet is
// returned.
func (c *Composer) Compose(ctx context.Context, opts Options) (*Sheet, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	observability.Composer().OnComposeStart(ctx, opts.Template, len(opts.Panels))
	start := time.Now()
	sheet, err := c.compose(ctx, opts)
	observability.Composer().OnComposeComplete(ctx, opts.Template, time.Since(start), err)
	return sheet, err
}

func (c *Composer) compose(ctx context.Context, opts Options) (*Sheet, error) {
	logger := opts.Logger
	rec := &recorder{}
	var stats Stats

	// Normalize panel keys.
	resolveStart := time.Now()
	panels := make(map[string]Panel, len(opts.Panels))
	for _, p := range opts.Panels {
		key := c.norm.Normalize(p.RawKey)
		if !c.norm.Known(key) {
			msg := fmt.Sprintf("unknown panel key %q", p.RawKey)
			if sugg := c.norm.Suggest(key); len(sugg) > 0 {
				msg += fmt.Sprintf(" (did you mean %q?)", sugg[0])
			}
			logger.Warn(msg)
			rec.warn("%s", msg)
		}
		if _, dup := panels[key]; dup {
			return nil, errors.Fatal(errors.ErrCodeInvalidInput,
				"panels %q resolve to the same canonical key %q", p.RawKey, key)
		}
		panels[key] = p
	}

	resolved, err := layout.Resolve(c.cat, opts.Template, opts.FloorCount, opts.Tier)
	if err != nil {
		return nil, err
	}
	stats.Resolve = time.Since(resolveStart)

	// Strict panels fail fast, before any bytes are fetched or decoded.
	for _, key := range c.registry.RequiredKeys(opts.FloorCount) {
		if _, inLayout := resolved.Slots[key]; !inLayout {
			continue
		}
		if _, ok := panels[key]; !ok {
			return nil, errors.Fatal(errors.ErrCodeStrictPanelMissing,
				"required panel %q not supplied", key)
		}
	}

	logger.Debug("layout resolved",
		"template", resolved.TemplateUsed,
		"tier", resolved.Tier,
		"slots", len(resolved.Slots))

	// Per-slot trim, place, gate on a bounded pool. Each worker reads
	// only its own source bytes and writes only its own result.
	panelsStart := time.Now()
	gate := qa.Engine{MinOccupancy: c.minOccupancy, Enabled: !opts.DisableQA}
	bandH := place.CaptionBand(resolved.Height)

	var resultsMu sync.Mutex
	results := make(map[string]*placed, len(resolved.Slots))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for _, key := range resolved.Keys() {
		key := key
		g.Go(func() error {
			slotStart := time.Now()
			res, err := c.processSlot(gctx, key, panels, resolved, gate, bandH, rec, logger)
			ratio := 0.0
			if res != nil {
				ratio = res.occ.Ratio
			}
			observability.Composer().OnSlotPlaced(gctx, key, ratio, time.Since(slotStart), err)
			if err != nil {
				return err
			}
			resultsMu.Lock()
			results[key] = res
			resultsMu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	stats.Panels = time.Since(panelsStart)

	// Overlay: paste placements, draw frames, captions and annotations.
	overlayStart := time.Now()
	meta := overlayMeta{
		Title:         opts.Title,
		Client:        opts.Client,
		ProjectNumber: opts.ProjectNumber,
		NorthDeg:      opts.NorthDeg,
		FloorCount:    opts.FloorCount,
		SheetID:       uuid.NewString(),
		Date:          time.Now().Format("2006-01-02"),
	}
	img, err := renderOverlay(resolved, results, bandH, c.cat, meta)
	if err != nil {
		return nil, errors.Escalate(err)
	}
	stats.Overlay = time.Since(overlayStart)

	// Finalize.
	encodeStart := time.Now()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, errors.Escalate(errors.Wrap(errors.ErrCodeCodec, err, "encode sheet"))
	}
	stats.Encode = time.Since(encodeStart)

	coords := make(map[string]image.Rectangle, len(resolved.Slots))
	records := make(map[string]PanelRecord, len(resolved.Slots))
	for key := range resolved.Slots {
		rect := resolved.PixelRect(key)
		coords[key] = rect
		if res, ok := results[key]; ok {
			records[key] = PanelRecord{
				Rect:        rect,
				X:           rect.Min.X,
				Y:           rect.Min.Y,
				Width:       rect.Dx(),
				Height:      rect.Dy(),
				SourceHash:  res.sourceHash,
				Occupancy:   res.occ.Ratio,
				Rotated:     res.rotated,
				Substituted: res.substituted,
			}
		}
	}

	sort.Strings(rec.subs)
	sheet := &Sheet{
		PNG:           buf.Bytes(),
		Image:         img,
		Coordinates:   coords,
		Panels:        records,
		Width:         resolved.Width,
		Height:        resolved.Height,
		TemplateUsed:  resolved.TemplateUsed,
		Tier:          string(resolved.Tier),
		PanelCount:    len(resolved.Slots),
		Substitutions: rec.subs,
		Warnings:      rec.warnings,
		SheetID:       meta.SheetID,
		Stats:         stats,
	}

	if err := c.critic.Review(ctx, sheet); err != nil {
		return nil, errors.Escalate(err)
	}

	logger.Info("sheet composed",
		"template", sheet.TemplateUsed,
		"tier", sheet.Tier,
		"panels", sheet.PanelCount,
		"substitutions", len(sheet.Substitutions))
	return sheet, nil
}

// processSlot turns one slot's source into a placed content image. A nil
// error with a substituted result means the slot degraded to a
// placeholder; a non-nil error aborts the whole composition.
func (c *Composer) processSlot(
	ctx context.Context,
	key string,
	panels map[string]Panel,
	resolved *layout.Resolved,
	gate qa.Engine,
	bandH int,
	rec *recorder,
	logger *log.Logger,
) (*placed, error) {
	spec := c.cat.Spec(key)
	rect := resolved.PixelRect(key)
	contentW := rect.Dx()
	contentH := rect.Dy()
	if hasCaption(key) && contentH > 2*bandH {
		contentH -= bandH
	}

	fail := func(err error) (*placed, error) {
		if spec.Strict {
			return nil, errors.Escalate(err)
		}
		rec.warn("panel %q: %s", key, errors.UserMessage(err))
		rec.substitute(ctx, key, errors.UserMessage(err))
		return &placed{
			key:         key,
			img:         placeholderImage(contentW, contentH, spec.Label),
			substituted: true,
		}, nil
	}

	panel, ok := panels[key]
	if !ok {
		return fail(errors.New(errors.ErrCodeStrictPanelMissing, "panel not supplied"))
	}

	data := panel.Data
	var format fetch.Format
	var err error
	if len(data) == 0 {
		if c.fetcher == nil {
			return fail(errors.New(errors.ErrCodeFetch, "panel addressed by URL but no fetcher configured"))
		}
		data, format, err = c.fetcher.Fetch(ctx, panel.URL)
		if err != nil {
			return fail(err)
		}
	} else {
		format, err = fetch.SniffFormat(data)
		if err != nil {
			return fail(err)
		}
	}

	techPad := spec.TechnicalPad * resolved.Width / previewWidth

	var src image.Image
	if format == fetch.FormatSVG {
		svgData, _, trimErr := trim.SVG(data)
		if trimErr != nil {
			observability.Composer().OnTrimFallback(ctx, key, "svg", trimErr)
			rec.warn("panel %q: geometry trim failed, using pixel bounds", key)
			logger.Warn("geometry trim failed", "key", key, "err", trimErr)
			svgData = data
		}
		src, err = trim.Rasterize(svgData, 2*contentW)
		if err != nil {
			return fail(errors.Wrap(errors.ErrCodeCodec, err, "rasterize svg"))
		}
		if trimErr != nil {
			src = trim.Raster(src, techPad)
		}
	} else {
		src, err = imaging.Decode(bytes.NewReader(data))
		if err != nil {
			return fail(errors.Wrap(errors.ErrCodeCodec, err, "decode %s panel", format))
		}
		src = trim.Raster(src, techPad)
	}

	res := place.Fit(src, contentW, contentH,
		spec.Fit == catalog.FitCover, spec.AlignX, spec.AlignY, spec.Rotatable, color.White)
	if res.Rotated {
		logger.Warn("rotated panel for better occupancy", "key", key)
	}

	if err := gate.CheckOccupancy(key, spec, res.Occupancy); err != nil {
		if errors.IsFatal(err) {
			return nil, err
		}
		rec.warn("panel %q: %s", key, errors.UserMessage(err))
	} else if !gate.Enabled && spec.Fit == catalog.FitContain && spec.Rotatable &&
		res.Occupancy.Ratio < c.minOccupancy {
		// Gates off: record what would have failed.
		rec.warn("panel %q: occupancy %.3f below minimum %.3f (qa disabled)",
			key, res.Occupancy.Ratio, c.minOccupancy)
	}

	if err := gate.CheckRenderSanity(key, spec, res.Image, res.Occupancy); err != nil {
		if errors.IsFatal(err) {
			return nil, err
		}
		rec.warn("panel %q: %s", key, errors.UserMessage(err))
	}

	return &placed{
		key:        key,
		img:        res.Image,
		occ:        res.Occupancy,
		rotated:    res.Rotated,
		sourceHash: cache.Hash(data),
	}, nil
}

// hasCaption reports whether a slot gets a caption band. The title block
// carries its own text and gets none.
func hasCaption(key string) bool {
	return key != catalog.KeyTitleBlock
}
