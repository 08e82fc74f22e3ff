package compose

import (
	"fmt"
	"image"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"github.com/genarch/sheetpress/pkg/fonts"
	"github.com/genarch/sheetpress/pkg/sheet/catalog"
	"github.com/genarch/sheetpress/pkg/sheet/layout"
)

// overlayMeta carries the generated title block and annotation inputs.
type overlayMeta struct {
	Title         string
	Client        string
	ProjectNumber string
	NorthDeg      float64
	FloorCount    int
	SheetID       string
	Date          string
}

// renderOverlay assembles the final sheet: white canvas, placed content,
// hairline frames, caption bands, and the drawn annotations (north arrow
// and scale bar on the ground floor plan, generated title block text).
func renderOverlay(
	resolved *layout.Resolved,
	results map[string]*placed,
	bandH int,
	cat *catalog.Catalog,
	meta overlayMeta,
) (*image.NRGBA, error) {
	dc := gg.NewContext(resolved.Width, resolved.Height)
	dc.SetRGB(1, 1, 1)
	dc.Clear()

	captionFace, err := fonts.Face(float64(bandH) * 0.5)
	if err != nil {
		return nil, err
	}

	for _, key := range resolved.Keys() {
		res, ok := results[key]
		if !ok {
			continue
		}
		rect := resolved.PixelRect(key)
		spec := cat.Spec(key)

		if key == catalog.KeyTitleBlock && res.substituted {
			// A missing title block is generated, not flagged.
			if err := drawTitleBlock(dc, rect, meta); err != nil {
				return nil, err
			}
			continue
		}

		dc.DrawImage(res.img, rect.Min.X, rect.Min.Y)

		if hasCaption(key) {
			drawCaption(dc, rect, bandH, spec.Label, captionFace)
		}

		// Hairline frame around the whole slot.
		dc.SetRGB(0.15, 0.15, 0.15)
		dc.SetLineWidth(1)
		dc.DrawRectangle(float64(rect.Min.X)+0.5, float64(rect.Min.Y)+0.5,
			float64(rect.Dx())-1, float64(rect.Dy())-1)
		dc.Stroke()

		if key == catalog.KeyGroundFloorPlan && !res.substituted {
			drawNorthArrow(dc, rect, meta.NorthDeg)
			drawScaleBar(dc, rect, captionFace)
		}
	}

	// A provided title block image still gets the generated text row; the
	// run metadata is authoritative even when the panel supplies artwork.
	if res, ok := results[catalog.KeyTitleBlock]; ok && !res.substituted {
		if err := drawTitleBlockText(dc, resolved.PixelRect(catalog.KeyTitleBlock), meta); err != nil {
			return nil, err
		}
	}

	return imageToNRGBA(dc.Image()), nil
}

// drawCaption fills the band at the bottom of the slot and centers the
// panel label in it.
func drawCaption(dc *gg.Context, rect image.Rectangle, bandH int, label string, face font.Face) {
	x := float64(rect.Min.X)
	y := float64(rect.Max.Y - bandH)
	w := float64(rect.Dx())
	h := float64(bandH)

	dc.SetRGB(0.96, 0.96, 0.96)
	dc.DrawRectangle(x, y, w, h)
	dc.Fill()

	dc.SetRGB(0.15, 0.15, 0.15)
	dc.SetLineWidth(1)
	dc.DrawLine(x, y+0.5, x+w, y+0.5)
	dc.Stroke()

	dc.SetFontFace(face)
	dc.DrawStringAnchored(label, x+w/2, y+h/2, 0.5, 0.5)
}

// drawNorthArrow draws the arrow in the top-right corner of the plan,
// rotated by the site's north direction.
func drawNorthArrow(dc *gg.Context, rect image.Rectangle, northDeg float64) {
	size := float64(rect.Dy()) * 0.06
	if size < 14 {
		size = 14
	}
	cx := float64(rect.Max.X) - size*1.6
	cy := float64(rect.Min.Y) + size*1.6

	dc.Push()
	dc.Translate(cx, cy)
	dc.Rotate(gg.Radians(northDeg))

	dc.SetRGB(0.1, 0.1, 0.1)
	dc.MoveTo(0, -size)
	dc.LineTo(size/3, size/2)
	dc.LineTo(0, size/4)
	dc.LineTo(-size/3, size/2)
	dc.ClosePath()
	dc.Fill()

	if face, err := fonts.Face(size * 0.6); err == nil {
		dc.SetFontFace(face)
		dc.DrawStringAnchored("N", 0, -size*1.35, 0.5, 0.5)
	}
	dc.Pop()
}

// drawScaleBar draws a reference bar with end ticks in the bottom-left
// corner of the plan.
func drawScaleBar(dc *gg.Context, rect image.Rectangle, face font.Face) {
	barLen := float64(rect.Dx()) * 0.12
	x := float64(rect.Min.X) + barLen*0.3
	y := float64(rect.Max.Y) - barLen*0.35

	dc.SetRGB(0.1, 0.1, 0.1)
	dc.SetLineWidth(2)
	dc.DrawLine(x, y, x+barLen, y)
	dc.Stroke()

	dc.SetLineWidth(1)
	tick := math.Max(barLen*0.06, 4)
	dc.DrawLine(x, y-tick, x, y+tick)
	dc.DrawLine(x+barLen, y-tick, x+barLen, y+tick)
	dc.Stroke()

	dc.SetFontFace(face)
	dc.DrawStringAnchored("1m", x+barLen/2, y-tick*2.2, 0.5, 0.5)
}

// drawTitleBlock renders the whole generated title block: background,
// border and text. Used when no title block panel was supplied.
func drawTitleBlock(dc *gg.Context, rect image.Rectangle, meta overlayMeta) error {
	dc.SetRGB(1, 1, 1)
	dc.DrawRectangle(float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()))
	dc.Fill()

	dc.SetRGB(0.1, 0.1, 0.1)
	dc.SetLineWidth(1.5)
	dc.DrawRectangle(float64(rect.Min.X)+0.5, float64(rect.Min.Y)+0.5,
		float64(rect.Dx())-1, float64(rect.Dy())-1)
	dc.Stroke()

	return drawTitleBlockText(dc, rect, meta)
}

// drawTitleBlockText draws the project title and the metadata row into the
// title block rect.
func drawTitleBlockText(dc *gg.Context, rect image.Rectangle, meta overlayMeta) error {
	title := meta.Title
	if title == "" {
		title = "Architectural Design"
	}

	h := float64(rect.Dy())
	titleFace, err := fonts.Face(h * 0.32)
	if err != nil {
		return err
	}
	metaFace, err := fonts.Face(h * 0.16)
	if err != nil {
		return err
	}

	pad := h * 0.18
	dc.SetRGB(0.1, 0.1, 0.1)
	dc.SetFontFace(titleFace)
	dc.DrawStringAnchored(title, float64(rect.Min.X)+pad, float64(rect.Min.Y)+h*0.38, 0, 0.5)

	fields := []string{}
	if meta.Client != "" {
		fields = append(fields, "Client: "+meta.Client)
	}
	if meta.ProjectNumber != "" {
		fields = append(fields, "Project: "+meta.ProjectNumber)
	}
	fields = append(fields,
		fmt.Sprintf("Floors: %d", meta.FloorCount),
		"Date: "+meta.Date,
		"Sheet: "+shortID(meta.SheetID),
	)

	dc.SetFontFace(metaFace)
	x := float64(rect.Min.X) + pad
	y := float64(rect.Min.Y) + h*0.78
	for _, f := range fields {
		dc.DrawStringAnchored(f, x, y, 0, 0.5)
		w, _ := dc.MeasureString(f)
		x += w + h*0.5
	}
	return nil
}

// shortID truncates a uuid for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
