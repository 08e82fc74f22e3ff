// Package layout resolves a template name, floor count and resolution tier
// into a concrete slot set with pixel dimensions.
//
// Resolution is a pure function of its inputs. Both tiers share the exact
// A1 landscape aspect (841:594) so normalized slots translate to pixels
// without distortion.
package layout

import (
	"image"
	"math"
	"sort"

	"github.com/genarch/sheetpress/pkg/errors"
	"github.com/genarch/sheetpress/pkg/sheet/catalog"
)

// Tier names the output resolution class.
type Tier string

const (
	// TierPreview is the fast screen-resolution tier (2x A1 mm).
	TierPreview Tier = "preview"

	// TierPrint is the print-master tier (6x A1 mm, ~152 dpi at A1).
	TierPrint Tier = "print"
)

// Pixel dimensions per tier. 1682:1188 and 5046:3564 are both exact
// multiples of 841x594, so cross-multiplied aspects are identical.
var tierDims = map[Tier]image.Point{
	TierPreview: {X: 1682, Y: 1188},
	TierPrint:   {X: 5046, Y: 3564},
}

var tierAliases = map[string]Tier{
	"draft":  TierPreview,
	"screen": TierPreview,
	"master": TierPrint,
	"final":  TierPrint,
}

// ResolveTier maps a tier name through the alias table. An empty name
// selects preview; unknown names are an input error.
func ResolveTier(name string) (Tier, error) {
	switch Tier(name) {
	case "":
		return TierPreview, nil
	case TierPreview, TierPrint:
		return Tier(name), nil
	}
	if t, ok := tierAliases[name]; ok {
		return t, nil
	}
	return "", errors.Fatal(errors.ErrCodeInvalidInput, "unknown resolution tier %q", name)
}

// Resolved is a concrete layout: the slot set after floor-count pruning
// plus output pixel dimensions.
type Resolved struct {
	TemplateUsed string
	Tier         Tier
	Width        int
	Height       int
	Slots        map[string]catalog.SlotRect
}

// Resolve computes the concrete layout for a request. Unknown template
// names fall back to the catalog default; floorCount below 2 removes the
// first floor slot and below 3 removes the second, so one catalog serves
// one to three storey buildings.
func Resolve(cat *catalog.Catalog, templateName string, floorCount int, tierName string) (*Resolved, error) {
	tier, err := ResolveTier(tierName)
	if err != nil {
		return nil, err
	}
	if floorCount < 1 {
		return nil, errors.Fatal(errors.ErrCodeInvalidInput, "floor count %d out of range (1-3)", floorCount)
	}

	tmpl := cat.ResolveTemplate(templateName)

	slots := make(map[string]catalog.SlotRect, len(tmpl.Slots))
	for key, rect := range tmpl.Slots {
		if floorCount < 2 && key == catalog.KeyFirstFloorPlan {
			continue
		}
		if floorCount < 3 && key == catalog.KeySecondFloorPlan {
			continue
		}
		slots[key] = rect
	}

	dims := tierDims[tier]
	return &Resolved{
		TemplateUsed: tmpl.Name,
		Tier:         tier,
		Width:        dims.X,
		Height:       dims.Y,
		Slots:        slots,
	}, nil
}

// PixelRect converts a resolved slot to output pixel coordinates.
// The zero rectangle is returned for keys not present in the layout.
func (r *Resolved) PixelRect(key string) image.Rectangle {
	rect, ok := r.Slots[key]
	if !ok {
		return image.Rectangle{}
	}
	x0 := int(math.Round(rect.X * float64(r.Width)))
	y0 := int(math.Round(rect.Y * float64(r.Height)))
	x1 := int(math.Round((rect.X + rect.Width) * float64(r.Width)))
	y1 := int(math.Round((rect.Y + rect.Height) * float64(r.Height)))
	return image.Rect(x0, y0, x1, y1)
}

// Keys returns the resolved slot keys in deterministic order.
func (r *Resolved) Keys() []string {
	out := make([]string, 0, len(r.Slots))
	for key := range r.Slots {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
