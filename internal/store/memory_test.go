package store

import (
	"context"
	"errors"
	"testing"

	"github.com/robalobadob/wortkunst/internal/game"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	a, _, err := game.New(game.Options{ID: "b-game", Seats: 1})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	b, _, err := game.New(game.Options{ID: "a-game", Seats: 1})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, s := range []*game.Session{a, b} {
		if err := st.Save(ctx, s); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	got, err := st.Get(ctx, "b-game")
	if err != nil || got != a {
		t.Fatalf("get: %v %v", got, err)
	}
	if _, err := st.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	list, _ := st.List(ctx)
	if len(list) != 2 || list[0].ID() != "a-game" || list[1].ID() != "b-game" {
		t.Fatalf("unexpected list order")
	}

	if err := st.Delete(ctx, "a-game"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := st.Delete(ctx, "a-game"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete: %v", err)
	}
	if list, _ := st.List(ctx); len(list) != 1 {
		t.Fatalf("expected 1 session left, got %d", len(list))
	}
}

func TestNewIDUnique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewID()
		if len(id) != 36 || seen[id] {
			t.Fatalf("bad id %q", id)
		}
		seen[id] = true
	}
}
