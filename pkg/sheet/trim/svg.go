package trim

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/genarch/sheetpress/pkg/errors"
)

// svgSkipCoverage: a content union covering at least this fraction of the
// declared viewBox in both axes is treated as already tight.
const svgSkipCoverage = 0.90

// svgPadFraction pads each side of the content union by this fraction of
// the union's own dimension before rewriting the viewBox.
const svgPadFraction = 0.0125

// Background-rect heuristic thresholds. A rect covering nearly the whole
// viewBox with a background-like fill is a canvas, not content; a rect
// covering effectively all of it is a canvas regardless of fill.
const (
	bgRectCoverage       = 0.95
	bgRectHardCoverage   = 0.99
	bgRectMaxFillOpacity = 0.05
)

// viewBox is the declared SVG coordinate window.
type viewBox struct {
	minX, minY float64
	w, h       float64
}

// SVG computes geometry bounds over the drawable primitives of an SVG
// document and rewrites its viewBox to the padded content union. The
// second return reports whether a rewrite happened; content already
// covering most of the viewBox is left alone. Parse failures return an
// error so the caller can fall back to pixel trimming.
func SVG(data []byte) ([]byte, bool, error) {
	vb, err := parseViewBox(data)
	if err != nil {
		return data, false, err
	}

	b, err := scanGeometry(data, vb)
	if err != nil {
		return data, false, err
	}
	if !b.ok || b.width() <= 0 || b.height() <= 0 {
		// No drawable content found; leave the document untouched.
		return data, false, nil
	}

	if b.width() >= svgSkipCoverage*vb.w && b.height() >= svgSkipCoverage*vb.h {
		return data, false, nil
	}

	padX := svgPadFraction * b.width()
	padY := svgPadFraction * b.height()
	minX := math.Max(b.minX-padX, vb.minX)
	minY := math.Max(b.minY-padY, vb.minY)
	maxX := math.Min(b.maxX+padX, vb.minX+vb.w)
	maxY := math.Min(b.maxY+padY, vb.minY+vb.h)

	out, err := rewriteViewBox(data, viewBox{minX: minX, minY: minY, w: maxX - minX, h: maxY - minY})
	if err != nil {
		return data, false, err
	}
	return out, true, nil
}

// parseViewBox extracts the root viewBox, falling back to width/height
// attributes when the document declares none.
func parseViewBox(data []byte) (viewBox, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return viewBox{}, errors.Wrap(errors.ErrCodeTrimFailed, err, "parse svg")
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		if start.Name.Local != "svg" {
			return viewBox{}, errors.New(errors.ErrCodeTrimFailed, "root element is %q, not svg", start.Name.Local)
		}

		if raw := attr(start, "viewBox"); raw != "" {
			parts := strings.Fields(strings.ReplaceAll(raw, ",", " "))
			if len(parts) != 4 {
				return viewBox{}, errors.New(errors.ErrCodeTrimFailed, "malformed viewBox %q", raw)
			}
			var vals [4]float64
			for i, p := range parts {
				v, err := strconv.ParseFloat(p, 64)
				if err != nil {
					return viewBox{}, errors.Wrap(errors.ErrCodeTrimFailed, err, "malformed viewBox %q", raw)
				}
				vals[i] = v
			}
			if vals[2] <= 0 || vals[3] <= 0 {
				return viewBox{}, errors.New(errors.ErrCodeTrimFailed, "degenerate viewBox %q", raw)
			}
			return viewBox{minX: vals[0], minY: vals[1], w: vals[2], h: vals[3]}, nil
		}

		w := parseLength(attr(start, "width"))
		h := parseLength(attr(start, "height"))
		if w > 0 && h > 0 {
			return viewBox{w: w, h: h}, nil
		}
		return viewBox{}, errors.New(errors.ErrCodeTrimFailed, "svg declares neither viewBox nor width/height")
	}
	return viewBox{}, errors.New(errors.ErrCodeTrimFailed, "no svg root element")
}

// scanGeometry unions the bounds of every drawable primitive. Content
// inside defs, clipPath, mask or symbol is not directly rendered and is
// skipped.
func scanGeometry(data []byte, vb viewBox) (bounds, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.Strict = false

	var b bounds
	skipDepth := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return bounds{}, errors.Wrap(errors.ErrCodeTrimFailed, err, "scan svg geometry")
		}

		switch el := tok.(type) {
		case xml.StartElement:
			if skipDepth > 0 {
				skipDepth++
				continue
			}
			switch el.Name.Local {
			case "defs", "clipPath", "mask", "symbol", "metadata":
				skipDepth = 1
			case "rect":
				if rb, ok := rectBounds(el, vb); ok {
					b.union(rb)
				}
			case "line":
				var lb bounds
				lb.add(num(el, "x1"), num(el, "y1"))
				lb.add(num(el, "x2"), num(el, "y2"))
				b.union(lb)
			case "polyline", "polygon":
				b.union(pointsBounds(attr(el, "points")))
			case "path":
				b.union(scanPathBounds(attr(el, "d")))
			case "circle":
				cx, cy, r := num(el, "cx"), num(el, "cy"), num(el, "r")
				if r > 0 {
					var cb bounds
					cb.add(cx-r, cy-r)
					cb.add(cx+r, cy+r)
					b.union(cb)
				}
			case "text":
				var tb bounds
				tb.add(num(el, "x"), num(el, "y"))
				b.union(tb)
			}
		case xml.EndElement:
			if skipDepth > 0 {
				skipDepth--
			}
		}
	}
	return b, nil
}

// rectBounds returns the bounds of a rect element, excluding rects that
// look like a background canvas. A rect covering at least 95% of the
// viewBox in both axes with a background-like fill is excluded, as is any
// rect covering at least 99% regardless of fill.
func rectBounds(el xml.StartElement, vb viewBox) (bounds, bool) {
	x, y := num(el, "x"), num(el, "y")
	w, h := num(el, "width"), num(el, "height")
	if w <= 0 || h <= 0 {
		return bounds{}, false
	}

	coverW, coverH := w/vb.w, h/vb.h
	if coverW >= bgRectHardCoverage && coverH >= bgRectHardCoverage {
		return bounds{}, false
	}
	if coverW >= bgRectCoverage && coverH >= bgRectCoverage && backgroundFill(el) {
		return bounds{}, false
	}

	var b bounds
	b.add(x, y)
	b.add(x+w, y+h)
	return b, true
}

// backgroundFill reports whether the element's fill reads as background:
// none, white, transparent, or effectively invisible via fill-opacity.
func backgroundFill(el xml.StartElement) bool {
	fill := strings.ToLower(strings.TrimSpace(attr(el, "fill")))
	switch fill {
	case "none", "white", "#fff", "#ffffff", "transparent":
		return true
	}
	if op := attr(el, "fill-opacity"); op != "" {
		if v, err := strconv.ParseFloat(op, 64); err == nil && v <= bgRectMaxFillOpacity {
			return true
		}
	}
	return false
}

// pointsBounds parses a polyline/polygon points list.
func pointsBounds(points string) bounds {
	fields := strings.FieldsFunc(points, func(r rune) bool {
		return r == ' ' || r == ',' || r == '\t' || r == '\n' || r == '\r'
	})
	var b bounds
	for i := 0; i+1 < len(fields); i += 2 {
		x, errX := strconv.ParseFloat(fields[i], 64)
		y, errY := strconv.ParseFloat(fields[i+1], 64)
		if errX != nil || errY != nil {
			break
		}
		b.add(x, y)
	}
	return b
}

var viewBoxAttrRe = regexp.MustCompile(`viewBox\s*=\s*"[^"]*"`)
var svgOpenTagRe = regexp.MustCompile(`<svg\b`)

// rewriteViewBox replaces the root viewBox attribute in place, inserting
// one when the document has none. Only the attribute changes; everything
// else in the document is preserved byte for byte.
func rewriteViewBox(data []byte, vb viewBox) ([]byte, error) {
	attr := fmt.Sprintf(`viewBox="%s %s %s %s"`,
		formatCoord(vb.minX), formatCoord(vb.minY), formatCoord(vb.w), formatCoord(vb.h))

	if loc := viewBoxAttrRe.FindIndex(data); loc != nil {
		out := make([]byte, 0, len(data)+len(attr))
		out = append(out, data[:loc[0]]...)
		out = append(out, attr...)
		out = append(out, data[loc[1]:]...)
		return out, nil
	}

	loc := svgOpenTagRe.FindIndex(data)
	if loc == nil {
		return nil, errors.New(errors.ErrCodeTrimFailed, "no <svg> tag to rewrite")
	}
	out := make([]byte, 0, len(data)+len(attr)+1)
	out = append(out, data[:loc[1]]...)
	out = append(out, ' ')
	out = append(out, attr...)
	out = append(out, data[loc[1]:]...)
	return out, nil
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// attr returns the named attribute value or "".
func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}

// num parses a numeric attribute, treating absence or garbage as zero.
func num(el xml.StartElement, name string) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(attr(el, name)), 64)
	return v
}

// parseLength parses an SVG length, ignoring a trailing unit suffix.
func parseLength(s string) float64 {
	s = strings.TrimSpace(s)
	end := len(s)
	for end > 0 {
		c := s[end-1]
		if (c >= '0' && c <= '9') || c == '.' {
			break
		}
		end--
	}
	v, _ := strconv.ParseFloat(s[:end], 64)
	return v
}
