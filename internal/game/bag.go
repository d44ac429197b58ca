package game

import (
	"math/rand/v2"
	"strings"
)

// Tile is one letter tile or a blank. A blank never carries a letter; it only
// receives one when placed on the board.
type Tile struct {
	Letter  string `json:"letter,omitempty"`
	IsBlank bool   `json:"isBlank"`
}

// matches reports whether a rack tile can back a proposed placement.
// Blanks match any blank; letters match case-insensitively.
func (t Tile) matches(letter string, blank bool) bool {
	if t.IsBlank != blank {
		return false
	}
	if t.IsBlank {
		return true
	}
	return t.Letter == strings.ToUpper(strings.TrimSpace(letter))
}

// Distribution is the German tile set, in a fixed order so seeded shuffles
// are reproducible.
var Distribution = []struct {
	Letter string
	Count  int
}{
	{"A", 5}, {"B", 2}, {"C", 2}, {"D", 4}, {"E", 15}, {"F", 2}, {"G", 3},
	{"H", 4}, {"I", 6}, {"J", 1}, {"K", 2}, {"L", 3}, {"M", 4}, {"N", 9},
	{"O", 3}, {"P", 1}, {"Q", 1}, {"R", 6}, {"S", 7}, {"T", 6}, {"U", 6},
	{"V", 1}, {"W", 1}, {"X", 1}, {"Y", 1}, {"Z", 1}, {"Ä", 1}, {"Ö", 1},
	{"Ü", 1},
}

const (
	// BlankCount is the number of blanks added to Distribution.
	BlankCount = 2
	// TotalTiles is the number of tiles in circulation for every game.
	TotalTiles = 102
	// RackSize is the number of tiles a rack is refilled to.
	RackSize = 7
)

// Bag is the shuffled pool of undrawn tiles. Not safe for concurrent use;
// the owning Session serialises access.
type Bag struct {
	tiles []Tile
	rng   *rand.Rand
}

// NewBag returns a full, shuffled bag.
func NewBag(rng *rand.Rand) *Bag {
	b := &Bag{tiles: make([]Tile, 0, TotalTiles), rng: rng}
	for _, d := range Distribution {
		for i := 0; i < d.Count; i++ {
			b.tiles = append(b.tiles, Tile{Letter: d.Letter})
		}
	}
	for i := 0; i < BlankCount; i++ {
		b.tiles = append(b.tiles, Tile{IsBlank: true})
	}
	b.Shuffle()
	return b
}

// Len returns the number of tiles left.
func (b *Bag) Len() int { return len(b.tiles) }

// Draw pops one tile. ok is false when the bag is empty.
func (b *Bag) Draw() (t Tile, ok bool) {
	n := len(b.tiles)
	if n == 0 {
		return Tile{}, false
	}
	t = b.tiles[n-1]
	b.tiles = b.tiles[:n-1]
	return t, true
}

// Return pushes tiles back. Callers shuffle afterwards if order matters.
func (b *Bag) Return(ts ...Tile) {
	b.tiles = append(b.tiles, ts...)
}

// Shuffle randomises the remaining tiles in place.
func (b *Bag) Shuffle() {
	b.rng.Shuffle(len(b.tiles), func(i, j int) {
		b.tiles[i], b.tiles[j] = b.tiles[j], b.tiles[i]
	})
}

// fill draws from the bag until rack holds RackSize tiles or the bag is empty.
func (b *Bag) fill(rack []Tile) []Tile {
	for len(rack) < RackSize {
		t, ok := b.Draw()
		if !ok {
			break
		}
		rack = append(rack, t)
	}
	return rack
}
