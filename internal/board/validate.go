package board

import (
	"errors"
	"unicode"
	"unicode/utf8"
)

// Rejection reasons. The error text is the code reported to clients.
var (
	ErrNoTiles            = errors.New("no_tiles")
	ErrNotSingleLine      = errors.New("not_single_line")
	ErrOutOfBounds        = errors.New("out_of_bounds")
	ErrCellOccupied       = errors.New("cell_occupied")
	ErrBlankMissingLetter = errors.New("blank_missing_letter")
	ErrGapInLine          = errors.New("gap_in_line")
	ErrNoConnection       = errors.New("no_connection")
	ErrMustCoverCenter    = errors.New("must_cover_center")
	ErrNoWords            = errors.New("no_words")
)

// Result is the outcome of a successful validation.
type Result struct {
	Board Board    // board with the placements applied
	Words []string // uppercase, de-duplicated by letter string, first-seen order
}

// Validate checks a proposed move against the current board and extracts
// every word it forms. It never modifies current; the returned Board is a
// new snapshot.
//
// Rules, in order (the first failure is returned):
//  1. at least one placement
//  2. all placements share a row or a column
//  3. on the board, onto empty squares, blanks carry exactly one letter
//  4. no gaps between the outermost placements
//  5. touches an existing tile, or covers the center on an empty board
//  6. at least one word results
func Validate(current Board, placed []Placement, firstMove bool) (Result, error) {
	if len(placed) == 0 {
		return Result{}, ErrNoTiles
	}

	sameRow, sameCol := true, true
	for _, p := range placed[1:] {
		if p.Y != placed[0].Y {
			sameRow = false
		}
		if p.X != placed[0].X {
			sameCol = false
		}
	}
	if !sameRow && !sameCol {
		return Result{}, ErrNotSingleLine
	}

	next := current
	for _, p := range placed {
		if !InBounds(p.X, p.Y) {
			return Result{}, ErrOutOfBounds
		}
		if next[p.Y][p.X] != nil {
			return Result{}, ErrCellOccupied
		}
		c := p.cell()
		if c.IsBlank && !singleLetter(c.AssignedLetter) {
			return Result{}, ErrBlankMissingLetter
		}
		next[p.Y][p.X] = c
	}

	lo, hi := span(placed, sameRow)
	for i := lo; i <= hi; i++ {
		x, y := placed[0].X, i
		if sameRow {
			x, y = i, placed[0].Y
		}
		if next[y][x] == nil {
			return Result{}, ErrGapInLine
		}
	}

	hadExisting := !current.IsEmpty()
	if hadExisting || !firstMove {
		if !touchesExisting(&current, placed) {
			return Result{}, ErrNoConnection
		}
	} else if !coversCenter(placed) {
		return Result{}, ErrMustCoverCenter
	}

	words := extractWords(&next, placed, sameRow)
	if len(words) == 0 {
		return Result{}, ErrNoWords
	}
	return Result{Board: next, Words: words}, nil
}

// span returns the min and max coordinate along the placement line.
func span(placed []Placement, alongRow bool) (int, int) {
	coord := func(p Placement) int {
		if alongRow {
			return p.X
		}
		return p.Y
	}
	lo, hi := coord(placed[0]), coord(placed[0])
	for _, p := range placed[1:] {
		c := coord(p)
		if c < lo {
			lo = c
		}
		if c > hi {
			hi = c
		}
	}
	return lo, hi
}

// singleLetter reports whether s is exactly one letter rune.
func singleLetter(s string) bool {
	r, n := utf8.DecodeRuneInString(s)
	return n > 0 && n == len(s) && unicode.IsLetter(r)
}

func touchesExisting(b *Board, placed []Placement) bool {
	for _, p := range placed {
		if b.Occupied(p.X, p.Y-1) || b.Occupied(p.X, p.Y+1) ||
			b.Occupied(p.X-1, p.Y) || b.Occupied(p.X+1, p.Y) {
			return true
		}
	}
	return false
}

func coversCenter(placed []Placement) bool {
	for _, p := range placed {
		if p.X == CenterX && p.Y == CenterY {
			return true
		}
	}
	return false
}
