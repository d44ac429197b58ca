package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/robalobadob/wortkunst/internal/archive"
	"github.com/robalobadob/wortkunst/internal/game"
	"github.com/robalobadob/wortkunst/internal/scoring"
	"github.com/robalobadob/wortkunst/internal/store"
)

const testSecret = "test-admin-secret"

type stubEvaluator struct{}

func (stubEvaluator) Evaluate(_ context.Context, words []string, _ scoring.Provider) (scoring.Result, error) {
	evals := make([]scoring.Evaluation, 0, len(words))
	for _, w := range words {
		evals = append(evals, scoring.Evaluation{Word: w, Score: 10})
	}
	return scoring.Result{Evaluations: evals}, nil
}

type testEnv struct {
	ts      *httptest.Server
	srv     *Server
	archive *archive.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	arc, err := archive.Open(archive.MemoryDSN)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	srv := New(Options{
		Store:         store.NewMemoryStore(),
		Catalog:       scoring.NewCatalog(scoring.KeyMistral, scoring.Mistral{}, scoring.OpenAI{}, scoring.Anthropic{}),
		Evaluator:     stubEvaluator{},
		Archive:       arc,
		AdminSecret:   testSecret,
		PublicBaseURL: "https://wortkunst.example",
	})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(func() {
		srv.Close()
		ts.Close()
		_ = arc.Close()
	})
	return &testEnv{ts: ts, srv: srv, archive: arc}
}

func (e *testEnv) do(t *testing.T, method, path, body, token string) (*http.Response, map[string]any) {
	t.Helper()
	req, _ := http.NewRequest(method, e.ts.URL+path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	out := map[string]any{}
	_ = json.Unmarshal(buf.Bytes(), &out)
	return resp, out
}

// createGame returns the game id and the seat tokens cut from the player URLs.
func (e *testEnv) createGame(t *testing.T, body string) (string, []string) {
	t.Helper()
	resp, out := e.do(t, http.MethodPost, "/api/games", body, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("create: status %d %v", resp.StatusCode, out)
	}
	id, _ := out["gameId"].(string)
	urls, _ := out["playerUrls"].([]any)
	tokens := make([]string, 0, len(urls))
	prefix := "https://wortkunst.example/g/" + id + "/p/"
	for _, u := range urls {
		s, _ := u.(string)
		if !strings.HasPrefix(s, prefix) {
			t.Fatalf("unexpected player url %q", s)
		}
		tokens = append(tokens, strings.TrimPrefix(s, prefix))
	}
	return id, tokens
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
	Error   string          `json:"error"`
}

func (e *testEnv) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil reads frames until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) frame {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var f frame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("waiting for %q: %v", typ, err)
		}
		if f.Type == typ {
			return f
		}
	}
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	if err := conn.WriteJSON(v); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestHealth(t *testing.T) {
	e := newTestEnv(t)
	resp, out := e.do(t, http.MethodGet, "/health", "", "")
	if resp.StatusCode != http.StatusOK || out["ok"] != true {
		t.Fatalf("unexpected health %d %v", resp.StatusCode, out)
	}
}

func TestCreateGameValidation(t *testing.T) {
	e := newTestEnv(t)
	if resp, out := e.do(t, http.MethodPost, "/api/games", `{"llm":"gemini"}`, ""); resp.StatusCode != http.StatusBadRequest || out["error"] != "unknown_provider" {
		t.Fatalf("unknown provider: %d %v", resp.StatusCode, out)
	}
	if resp, out := e.do(t, http.MethodPost, "/api/games", `{nope`, ""); resp.StatusCode != http.StatusBadRequest || out["error"] != "bad_json" {
		t.Fatalf("bad json: %d %v", resp.StatusCode, out)
	}
	if _, tokens := e.createGame(t, `{"playerCount":9,"llm":"anthropic"}`); len(tokens) != 4 {
		t.Fatalf("expected clamp to 4 seats, got %d", len(tokens))
	}
	if _, tokens := e.createGame(t, ""); len(tokens) != 1 {
		t.Fatalf("empty body should create one seat, got %d", len(tokens))
	}
}

func TestSummaryAndStart(t *testing.T) {
	e := newTestEnv(t)
	id, tokens := e.createGame(t, `{"playerCount":2}`)

	resp, out := e.do(t, http.MethodGet, "/api/games/"+id, "", "")
	if resp.StatusCode != http.StatusOK || out["status"] != "lobby" || out["hostSeatId"] != "S1" {
		t.Fatalf("summary: %d %v", resp.StatusCode, out)
	}
	if resp, _ := e.do(t, http.MethodGet, "/api/games/missing", "", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	// Nobody has joined yet.
	if resp, out := e.do(t, http.MethodPost, "/api/games/"+id+"/start", `{"seatToken":"`+tokens[0]+`"}`, ""); resp.StatusCode != http.StatusBadRequest || out["error"] != "cannot_start" {
		t.Fatalf("start before join: %d %v", resp.StatusCode, out)
	}
}

func TestPlayOverWebSocket(t *testing.T) {
	e := newTestEnv(t)
	id, tokens := e.createGame(t, `{"playerCount":1}`)

	conn := e.dial(t)
	send(t, conn, map[string]any{"type": "join", "gameId": "nope", "seatToken": tokens[0]})
	if f := readUntil(t, conn, "error"); f.Error != "not_found" {
		t.Fatalf("expected not_found, got %q", f.Error)
	}
	send(t, conn, map[string]any{"type": "join", "gameId": id, "seatToken": "bogus"})
	if f := readUntil(t, conn, "error"); f.Error != "cannot_join" {
		t.Fatalf("expected cannot_join, got %q", f.Error)
	}

	send(t, conn, map[string]any{"type": "join", "gameId": id, "seatToken": tokens[0], "displayName": "Berta"})
	var sum game.Summary
	if err := json.Unmarshal(readUntil(t, conn, "joined").Payload, &sum); err != nil || sum.GameID != id {
		t.Fatalf("joined payload: %+v %v", sum, err)
	}

	if resp, _ := e.do(t, http.MethodPost, "/api/games/"+id+"/start", `{"seatToken":"`+tokens[0]+`"}`, ""); resp.StatusCode != http.StatusOK {
		t.Fatalf("start: %d", resp.StatusCode)
	}
	var v game.View
	if err := json.Unmarshal(readUntil(t, conn, "state").Payload, &v); err != nil {
		t.Fatalf("state payload: %v", err)
	}
	if v.Status != game.StatusActive || v.YouSeatID != "S1" || len(v.Rack) != game.RackSize {
		t.Fatalf("unexpected view %+v", v)
	}

	// Garbage is dropped; the socket keeps working.
	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	send(t, conn, map[string]any{"type": "exchange", "rackIndices": []int{}})
	if f := readUntil(t, conn, "error"); f.Error != "no_tiles_selected" {
		t.Fatalf("expected no_tiles_selected, got %q", f.Error)
	}

	send(t, conn, map[string]any{"type": "pass"})
	if err := json.Unmarshal(readUntil(t, conn, "state").Payload, &v); err != nil {
		t.Fatalf("state payload: %v", err)
	}
	if v.Status != game.StatusEnded || v.Scores["S1"] != -700 || v.LastMove == nil || v.LastMove.Action != game.ActionPass {
		t.Fatalf("unexpected final view %+v", v)
	}

	lb, err := e.archive.Leaderboard(context.Background(), 10)
	if err != nil || len(lb) != 1 || lb[0].Score != -700 || lb[0].DisplayName != "Berta" {
		t.Fatalf("archive: %+v %v", lb, err)
	}
	resp, err := http.Get(e.ts.URL + "/api/leaderboard?limit=5")
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	defer resp.Body.Close()
	var rows []archive.Entry
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil || len(rows) != 1 || rows[0].GameID != id {
		t.Fatalf("leaderboard rows: %+v %v", rows, err)
	}
}

func TestDisconnectIsBroadcast(t *testing.T) {
	e := newTestEnv(t)
	id, tokens := e.createGame(t, `{"playerCount":2}`)

	a := e.dial(t)
	send(t, a, map[string]any{"type": "join", "gameId": id, "seatToken": tokens[0]})
	readUntil(t, a, "joined")

	b := e.dial(t)
	send(t, b, map[string]any{"type": "join", "gameId": id, "seatToken": tokens[1]})
	readUntil(t, b, "joined")
	_ = b.Close()

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		var v game.View
		if err := json.Unmarshal(readUntil(t, a, "state").Payload, &v); err != nil {
			t.Fatalf("state payload: %v", err)
		}
		if o, ok := v.Others["S2"]; ok && !o.Connected {
			return
		}
	}
	t.Fatalf("disconnect of S2 was never broadcast")
}

func TestAdminRoutes(t *testing.T) {
	e := newTestEnv(t)
	id, _ := e.createGame(t, `{"playerCount":2}`)

	if resp, _ := e.do(t, http.MethodGet, "/api/admin/games", "", ""); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if resp, _ := e.do(t, http.MethodGet, "/api/admin/games", "", "garbage"); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", resp.StatusCode)
	}
	wrong, _, _ := IssueAdminToken("other-secret", "ops", time.Hour)
	if resp, _ := e.do(t, http.MethodGet, "/api/admin/games", "", wrong); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for foreign signature, got %d", resp.StatusCode)
	}

	tok, _, err := IssueAdminToken(testSecret, "ops", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	req, _ := http.NewRequest(http.MethodGet, e.ts.URL+"/api/admin/games", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var list []game.Summary
	_ = json.NewDecoder(resp.Body).Decode(&list)
	resp.Body.Close()
	if len(list) != 1 || list[0].GameID != id {
		t.Fatalf("unexpected list %+v", list)
	}

	if resp, _ := e.do(t, http.MethodDelete, "/api/admin/games/"+id, "", tok); resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: %d", resp.StatusCode)
	}
	if resp, _ := e.do(t, http.MethodDelete, "/api/admin/games/"+id, "", tok); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("second delete: %d", resp.StatusCode)
	}
	if resp, _ := e.do(t, http.MethodGet, "/api/games/"+id, "", ""); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("deleted game still served: %d", resp.StatusCode)
	}
}

func TestAdminDisabledWithoutSecret(t *testing.T) {
	srv := New(Options{Store: store.NewMemoryStore(), Catalog: scoring.NewCatalog(scoring.KeyMistral, scoring.Mistral{})})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()
	resp, err := http.Get(ts.URL + "/api/admin/games")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 with admin disabled, got %d", resp.StatusCode)
	}
}
