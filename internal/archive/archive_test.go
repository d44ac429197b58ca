package archive

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/robalobadob/wortkunst/internal/game"
)

func openMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(MemoryDSN)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func final(id string, ended time.Time, scores ...int) game.Final {
	f := game.Final{GameID: id, Provider: "mistral", StartedAt: ended.Add(-time.Hour), EndedAt: ended}
	for i, sc := range scores {
		f.Seats = append(f.Seats, game.FinalSeat{
			SeatID:      "S" + string(rune('1'+i)),
			DisplayName: "Spieler",
			Score:       sc,
			Moves:       3,
		})
	}
	return f
}

func TestRecordAndLeaderboard(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	if err := s.RecordGame(ctx, final("g1", t0, 120, -40)); err != nil {
		t.Fatalf("record g1: %v", err)
	}
	if err := s.RecordGame(ctx, final("g2", t0.Add(time.Minute), 120, 300)); err != nil {
		t.Fatalf("record g2: %v", err)
	}

	lb, err := s.Leaderboard(ctx, 0)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(lb) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(lb))
	}
	if lb[0].GameID != "g2" || lb[0].Score != 300 {
		t.Fatalf("unexpected top row %+v", lb[0])
	}
	// Equal scores: the earlier finish ranks first.
	if lb[1].GameID != "g1" || lb[2].GameID != "g2" {
		t.Fatalf("unexpected tie order %+v", lb[1:3])
	}
	if lb[3].Score != -40 || lb[3].Provider != "mistral" {
		t.Fatalf("unexpected last row %+v", lb[3])
	}

	top, _ := s.Leaderboard(ctx, 1)
	if len(top) != 1 {
		t.Fatalf("limit ignored: %d rows", len(top))
	}
}

func TestRecordGameIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	t0 := time.Now()
	f := final("g1", t0, 50)
	if err := s.RecordGame(ctx, f); err != nil {
		t.Fatalf("record: %v", err)
	}
	f.Seats[0].Score = 999
	if err := s.RecordGame(ctx, f); err != nil {
		t.Fatalf("re-record: %v", err)
	}
	lb, _ := s.Leaderboard(ctx, 10)
	if len(lb) != 1 || lb[0].Score != 50 {
		t.Fatalf("expected the first record to stick, got %+v", lb)
	}
}

func TestOpenFileAndReopen(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "nested", "wortkunst.db")
	s, err := Open(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.RecordGame(context.Background(), final("g1", time.Now(), 10)); err != nil {
		t.Fatalf("record: %v", err)
	}
	_ = s.Close()

	s, err = Open(dsn)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	lb, err := s.Leaderboard(context.Background(), 5)
	if err != nil || len(lb) != 1 {
		t.Fatalf("expected persisted row, got %v %v", lb, err)
	}
}

func TestDSNHandling(t *testing.T) {
	cases := []struct {
		dsn, dir, full string
	}{
		{"./data/w.db", "data", "./data/w.db?_busy_timeout=5000&_journal_mode=WAL"},
		{"file:./data/w.db?cache=shared", "data", "file:./data/w.db?cache=shared&_busy_timeout=5000&_journal_mode=WAL"},
		{"w.db", ".", "w.db?_busy_timeout=5000&_journal_mode=WAL"},
	}
	for _, tc := range cases {
		if got := dsnDir(tc.dsn); got != tc.dir {
			t.Fatalf("dsnDir(%q) = %q, want %q", tc.dsn, got, tc.dir)
		}
		if got := withDSNDefaults(tc.dsn); got != tc.full {
			t.Fatalf("withDSNDefaults(%q) = %q", tc.dsn, got)
		}
	}
}

func TestOpenFileURIWithQuery(t *testing.T) {
	dsn := "file:" + filepath.Join(t.TempDir(), "sub", "w.db") + "?cache=shared"
	s, err := Open(dsn)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if err := s.RecordGame(context.Background(), final("g1", time.Now(), 1)); err != nil {
		t.Fatalf("record: %v", err)
	}
}
