package fetch

import (
	"bytes"
	"net/http"

	"github.com/genarch/sheetpress/pkg/errors"
)

// Format identifies a supported panel payload format.
type Format string

// Supported payload formats.
const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatSVG  Format = "svg"
)

// SniffFormat inspects payload bytes and returns the panel format, or an
// error for anything that is not a supported image. This runs before any
// decoder sees the bytes: generators occasionally return HTML error pages
// with a success status, and feeding those to an image codec aborts the
// whole composition task.
func SniffFormat(data []byte) (Format, error) {
	if len(data) == 0 {
		return "", errors.New(errors.ErrCodeFetch, "empty payload")
	}

	switch http.DetectContentType(data) {
	case "image/png":
		return FormatPNG, nil
	case "image/jpeg":
		return FormatJPEG, nil
	}

	if looksLikeSVG(data) {
		return FormatSVG, nil
	}

	return "", errors.New(errors.ErrCodeFetch,
		"payload is not a supported image (detected %s)", http.DetectContentType(data))
}

// looksLikeSVG reports whether the payload is SVG text. It tolerates a
// UTF-8 BOM, leading whitespace, an XML declaration, comments and a
// DOCTYPE before the root element.
func looksLikeSVG(data []byte) bool {
	rest := bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	rest = bytes.TrimLeft(rest, " \t\r\n")

	for {
		switch {
		case bytes.HasPrefix(rest, []byte("<?")):
			end := bytes.Index(rest, []byte("?>"))
			if end < 0 {
				return false
			}
			rest = bytes.TrimLeft(rest[end+2:], " \t\r\n")
		case bytes.HasPrefix(rest, []byte("<!--")):
			end := bytes.Index(rest, []byte("-->"))
			if end < 0 {
				return false
			}
			rest = bytes.TrimLeft(rest[end+3:], " \t\r\n")
		case bytes.HasPrefix(rest, []byte("<!DOCTYPE")), bytes.HasPrefix(rest, []byte("<!doctype")):
			end := bytes.IndexByte(rest, '>')
			if end < 0 {
				return false
			}
			rest = bytes.TrimLeft(rest[end+1:], " \t\r\n")
		default:
			return bytes.HasPrefix(rest, []byte("<svg"))
		}
	}
}
