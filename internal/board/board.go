// internal/board/board.go
//
// Board model for a single Wortkunst game.
// Defines:
//   - Cell: an occupied square (letter tile or blank with an assigned letter).
//   - Board: the fixed 15x15 grid, indexed [y][x], origin top-left.
//   - Placement: one proposed tile position submitted with a move.
//
// Notes:
//   - Cells are write-once. A Board value shares *Cell pointers with earlier
//     snapshots, which is safe because a Cell is never mutated after placement.
//   - Letters are always stored uppercase (including Ä/Ö/Ü).

package board

import "strings"

const (
	// Size is the edge length of the square board.
	Size = 15
	// CenterX/CenterY is the cell every opening move must cover.
	CenterX = 7
	CenterY = 7
)

// Cell is the occupant of a board square.
type Cell struct {
	Letter         string `json:"letter"`
	IsBlank        bool   `json:"isBlank"`
	AssignedLetter string `json:"assignedLetter,omitempty"` // set iff IsBlank
}

// Display returns the letter shown on the square, preferring a blank's assignment.
func (c *Cell) Display() string {
	if c == nil {
		return ""
	}
	if c.AssignedLetter != "" {
		return c.AssignedLetter
	}
	return c.Letter
}

// Board is the grid of optional cells. The zero value is an empty board.
type Board [Size][Size]*Cell

// At returns the cell at (x, y) or nil if empty or off the board.
func (b *Board) At(x, y int) *Cell {
	if !InBounds(x, y) {
		return nil
	}
	return b[y][x]
}

// Occupied reports whether (x, y) is on the board and filled.
func (b *Board) Occupied(x, y int) bool { return b.At(x, y) != nil }

// IsEmpty reports whether no cell has been filled yet.
func (b *Board) IsEmpty() bool {
	return b.Count() == 0
}

// Count returns the number of occupied cells.
func (b *Board) Count() int {
	n := 0
	for y := 0; y < Size; y++ {
		for x := 0; x < Size; x++ {
			if b[y][x] != nil {
				n++
			}
		}
	}
	return n
}

// InBounds reports whether (x, y) lies on the board.
func InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < Size && y < Size
}

// Placement is one tile a player drops onto the board.
// For blanks, AssignedLetter carries the letter the blank stands for.
type Placement struct {
	X              int    `json:"x"`
	Y              int    `json:"y"`
	Letter         string `json:"letter,omitempty"`
	IsBlank        bool   `json:"isBlank,omitempty"`
	AssignedLetter string `json:"assignedLetter,omitempty"`
}

// cell converts a placement into the Cell it will occupy.
func (p Placement) cell() *Cell {
	if p.IsBlank {
		a := normalizeLetter(p.AssignedLetter)
		return &Cell{Letter: a, IsBlank: true, AssignedLetter: a}
	}
	return &Cell{Letter: normalizeLetter(p.Letter)}
}

func normalizeLetter(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
