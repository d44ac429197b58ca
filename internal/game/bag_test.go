package game

import (
	"math/rand/v2"
	"testing"
)

func TestNewBagHasFullSet(t *testing.T) {
	b := NewBag(rand.New(rand.NewPCG(1, 2)))
	if b.Len() != TotalTiles {
		t.Fatalf("expected %d tiles, got %d", TotalTiles, b.Len())
	}
	counts := map[string]int{}
	blanks := 0
	for _, tile := range b.tiles {
		if tile.IsBlank {
			blanks++
			continue
		}
		counts[tile.Letter]++
	}
	if blanks != BlankCount {
		t.Fatalf("expected %d blanks, got %d", BlankCount, blanks)
	}
	for _, d := range Distribution {
		if counts[d.Letter] != d.Count {
			t.Fatalf("letter %s: expected %d, got %d", d.Letter, d.Count, counts[d.Letter])
		}
	}
}

func TestSeededBagsAgree(t *testing.T) {
	a := NewBag(rand.New(rand.NewPCG(7, 7)))
	b := NewBag(rand.New(rand.NewPCG(7, 7)))
	for i := range a.tiles {
		if a.tiles[i] != b.tiles[i] {
			t.Fatalf("bags diverge at %d", i)
		}
	}
}

func TestDrawReturnFill(t *testing.T) {
	b := NewBag(rand.New(rand.NewPCG(3, 4)))
	rack := b.fill(nil)
	if len(rack) != RackSize || b.Len() != TotalTiles-RackSize {
		t.Fatalf("fill: rack %d bag %d", len(rack), b.Len())
	}
	b.Return(rack...)
	if b.Len() != TotalTiles {
		t.Fatalf("return: bag %d", b.Len())
	}

	b.tiles = b.tiles[:3]
	rack = b.fill(nil)
	if len(rack) != 3 || b.Len() != 0 {
		t.Fatalf("short fill: rack %d bag %d", len(rack), b.Len())
	}
	if _, ok := b.Draw(); ok {
		t.Fatalf("draw from empty bag should fail")
	}
}

func TestTileMatches(t *testing.T) {
	if !(Tile{Letter: "Ä"}).matches("ä", false) {
		t.Fatalf("letters should match case-insensitively")
	}
	if (Tile{Letter: "A"}).matches("A", true) {
		t.Fatalf("letter tile must not back a blank placement")
	}
	if !(Tile{IsBlank: true}).matches("", true) {
		t.Fatalf("blank should back a blank placement")
	}
}
