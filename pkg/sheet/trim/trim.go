// Package trim computes tight content bounding boxes and removes
// generator-introduced margins from panel images.
//
// Two strategies exist: geometry bounds for SVG sources (exact and cheap,
// rewrites the viewBox) and pixel bounds for raster sources (or when the
// vector analysis fails). Trimming is an optimization, never a correctness
// requirement: any failure returns the source untouched.
package trim

import "math"

// bounds accumulates a min/max box over 2D points.
type bounds struct {
	minX, minY float64
	maxX, maxY float64
	ok         bool
}

func (b *bounds) add(x, y float64) {
	if !b.ok {
		b.minX, b.minY, b.maxX, b.maxY = x, y, x, y
		b.ok = true
		return
	}
	b.minX = math.Min(b.minX, x)
	b.minY = math.Min(b.minY, y)
	b.maxX = math.Max(b.maxX, x)
	b.maxY = math.Max(b.maxY, y)
}

func (b *bounds) union(o bounds) {
	if !o.ok {
		return
	}
	b.add(o.minX, o.minY)
	b.add(o.maxX, o.maxY)
}

func (b bounds) width() float64  { return b.maxX - b.minX }
func (b bounds) height() float64 { return b.maxY - b.minY }
