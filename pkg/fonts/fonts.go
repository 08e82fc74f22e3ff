// Package fonts resolves the typeface used for captions, labels and the
// generated title block.
//
// A system sans-serif is preferred so overlay text matches the platform's
// rendering of the rest of the document set. When none of the candidates
// can be found the embedded Go Regular face is used, so composition never
// fails for want of a font file.
package fonts

import (
	"os"
	"sync"

	"github.com/flopp/go-findfont"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// Candidate system fonts, in preference order.
var candidates = []string{
	"DejaVuSans.ttf",
	"Helvetica.ttf",
	"Arial.ttf",
	"LiberationSans-Regular.ttf",
	"FreeSans.ttf",
}

var (
	parsedFont *truetype.Font
	parseErr   error
	parseOnce  sync.Once
)

// load resolves and parses the overlay font exactly once.
func load() (*truetype.Font, error) {
	parseOnce.Do(func() {
		for _, name := range candidates {
			path, err := findfont.Find(name)
			if err != nil {
				continue
			}
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			if f, err := truetype.Parse(data); err == nil {
				parsedFont = f
				return
			}
		}
		parsedFont, parseErr = truetype.Parse(goregular.TTF)
	})
	return parsedFont, parseErr
}

// Face returns a font face at the given point size for overlay text.
func Face(points float64) (font.Face, error) {
	f, err := load()
	if err != nil {
		return nil, err
	}
	return truetype.NewFace(f, &truetype.Options{
		Size:    points,
		DPI:     72,
		Hinting: font.HintingFull,
	}), nil
}
