package trim

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os/exec"

	"github.com/genarch/sheetpress/pkg/errors"
)

// Rasterize converts SVG bytes to an image at the given pixel width using
// rsvg-convert, preserving aspect ratio.
// Requires librsvg: brew install librsvg (macOS), apt install librsvg2-bin (Linux).
func Rasterize(svg []byte, width int) (image.Image, error) {
	if _, err := exec.LookPath("rsvg-convert"); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCodec, err,
			"svg rasterization requires librsvg. Install with:\n  macOS:  brew install librsvg\n  Linux:  apt install librsvg2-bin")
	}

	cmd := exec.Command("rsvg-convert", "-f", "png", "-w", fmt.Sprintf("%d", width), "--keep-aspect-ratio")
	cmd.Stdin = bytes.NewReader(svg)

	var out, errBuf bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errBuf

	if err := cmd.Run(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeCodec, err, "rsvg-convert: %s", errBuf.String())
	}

	img, err := png.Decode(&out)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeCodec, err, "decode rasterized svg")
	}
	return img, nil
}
