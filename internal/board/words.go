package board

import "strings"

// direction is a unit step along one axis.
type direction struct{ dx, dy int }

var (
	horizontal = direction{dx: 1}
	vertical   = direction{dy: 1}
)

// run walks from (x, y) in both directions along d while squares are filled
// and returns the word found and its length in cells.
func (b *Board) run(x, y int, d direction) (string, int) {
	sx, sy := x, y
	for b.Occupied(sx-d.dx, sy-d.dy) {
		sx, sy = sx-d.dx, sy-d.dy
	}
	var sb strings.Builder
	n := 0
	for cx, cy := sx, sy; b.Occupied(cx, cy); cx, cy = cx+d.dx, cy+d.dy {
		sb.WriteString(b[cy][cx].Display())
		n++
	}
	return strings.ToUpper(sb.String()), n
}

// extractWords returns the primary word along the placement line plus one
// cross word per placed tile that has perpendicular neighbours.
//
// A single tile has no inherent line. It is read along whichever axis
// actually extends beyond it, preferring the row.
func extractWords(b *Board, placed []Placement, sameRow bool) []string {
	line, cross := vertical, horizontal
	if sameRow {
		line, cross = horizontal, vertical
	}
	if len(placed) == 1 {
		// The other axis then yields a one-cell run, which the cross-word
		// rule (n > 1) skips. A lone letter beside a column is not a row word.
		p := placed[0]
		if _, n := b.run(p.X, p.Y, horizontal); n > 1 {
			line, cross = horizontal, vertical
		} else if _, n := b.run(p.X, p.Y, vertical); n > 1 {
			line, cross = vertical, horizontal
		}
	}

	seen := make(map[string]struct{})
	var out []string
	add := func(w string) {
		if w == "" {
			return
		}
		if _, dup := seen[w]; dup {
			return
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}

	primary, _ := b.run(placed[0].X, placed[0].Y, line)
	add(primary)
	for _, p := range placed {
		if w, n := b.run(p.X, p.Y, cross); n > 1 {
			add(w)
		}
	}
	return out
}
