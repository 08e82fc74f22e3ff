package trim

import "strconv"

// scanPathBounds walks SVG path data and unions every point the path
// touches. Control points of curves expand the bound along with their end
// points; the true curve always lies inside that hull, so the result is a
// safe (slightly loose) cover.
//
// Supported commands: M, L, H, V, C, Q, Z and their relative forms. An
// unsupported command (arcs, smooth curves) stops the scan; the partial
// bounds accumulated so far are kept.
func scanPathBounds(d string) bounds {
	s := pathScanner{data: d}
	var b bounds

	var curX, curY float64
	var startX, startY float64
	haveStart := false

	for {
		cmd, ok := s.command()
		if !ok {
			return b
		}

		rel := cmd >= 'a' && cmd <= 'z'
		switch cmd {
		case 'M', 'm':
			x, y, ok := s.pair()
			if !ok {
				return b
			}
			if rel {
				x, y = curX+x, curY+y
			}
			curX, curY = x, y
			startX, startY = x, y
			haveStart = true
			b.add(curX, curY)

			// Further pairs after a moveto are implicit linetos.
			for {
				x, y, ok := s.pair()
				if !ok {
					break
				}
				if rel {
					x, y = curX+x, curY+y
				}
				curX, curY = x, y
				b.add(curX, curY)
			}

		case 'L', 'l':
			for {
				x, y, ok := s.pair()
				if !ok {
					break
				}
				if rel {
					x, y = curX+x, curY+y
				}
				curX, curY = x, y
				b.add(curX, curY)
			}

		case 'H', 'h':
			for {
				x, ok := s.number()
				if !ok {
					break
				}
				if rel {
					x = curX + x
				}
				curX = x
				b.add(curX, curY)
			}

		case 'V', 'v':
			for {
				y, ok := s.number()
				if !ok {
					break
				}
				if rel {
					y = curY + y
				}
				curY = y
				b.add(curX, curY)
			}

		case 'C', 'c':
			for {
				x1, y1, ok := s.pair()
				if !ok {
					break
				}
				x2, y2, ok := s.pair()
				if !ok {
					return b
				}
				x, y, ok := s.pair()
				if !ok {
					return b
				}
				if rel {
					x1, y1 = curX+x1, curY+y1
					x2, y2 = curX+x2, curY+y2
					x, y = curX+x, curY+y
				}
				b.add(x1, y1)
				b.add(x2, y2)
				curX, curY = x, y
				b.add(curX, curY)
			}

		case 'Q', 'q':
			for {
				x1, y1, ok := s.pair()
				if !ok {
					break
				}
				x, y, ok := s.pair()
				if !ok {
					return b
				}
				if rel {
					x1, y1 = curX+x1, curY+y1
					x, y = curX+x, curY+y
				}
				b.add(x1, y1)
				curX, curY = x, y
				b.add(curX, curY)
			}

		case 'Z', 'z':
			if haveStart {
				curX, curY = startX, startY
			}

		default:
			// Unsupported command; keep what we have.
			return b
		}
	}
}

// pathScanner is a minimal lexer over SVG path data: commands are single
// letters, numbers are separated by whitespace or commas.
type pathScanner struct {
	data string
	pos  int
}

func (s *pathScanner) skipSep() {
	for s.pos < len(s.data) {
		switch s.data[s.pos] {
		case ' ', '\t', '\r', '\n', ',':
			s.pos++
		default:
			return
		}
	}
}

// command returns the next command letter.
func (s *pathScanner) command() (byte, bool) {
	s.skipSep()
	if s.pos >= len(s.data) {
		return 0, false
	}
	c := s.data[s.pos]
	if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
		s.pos++
		return c, true
	}
	return 0, false
}

// number parses the next numeric token without consuming a following
// command letter.
func (s *pathScanner) number() (float64, bool) {
	s.skipSep()
	start := s.pos
	if s.pos < len(s.data) && (s.data[s.pos] == '-' || s.data[s.pos] == '+') {
		s.pos++
	}
	digits := false
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		if c >= '0' && c <= '9' {
			digits = true
			s.pos++
			continue
		}
		if c == '.' {
			s.pos++
			continue
		}
		if (c == 'e' || c == 'E') && digits {
			// Exponent: consume sign and digits.
			s.pos++
			if s.pos < len(s.data) && (s.data[s.pos] == '-' || s.data[s.pos] == '+') {
				s.pos++
			}
			continue
		}
		break
	}
	if !digits {
		s.pos = start
		return 0, false
	}
	v, err := strconv.ParseFloat(s.data[start:s.pos], 64)
	if err != nil {
		s.pos = start
		return 0, false
	}
	return v, true
}

func (s *pathScanner) pair() (float64, float64, bool) {
	save := s.pos
	x, ok := s.number()
	if !ok {
		return 0, 0, false
	}
	y, ok := s.number()
	if !ok {
		s.pos = save
		return 0, 0, false
	}
	return x, y, true
}
