// internal/httpserver/routes_games.go
//
// REST routes for game setup. Play itself happens over /ws.
//   - POST /api/games                 → create a game, return one URL per seat
//   - POST /api/games/{gameID}/start  → host starts the game
//   - GET  /api/games/{gameID}        → public summary for pre-join display
//   - GET  /api/leaderboard           → best archived final scores

package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wortkunst/internal/archive"
	"github.com/robalobadob/wortkunst/internal/game"
	"github.com/robalobadob/wortkunst/internal/scoring"
	"github.com/robalobadob/wortkunst/internal/store"
)

func (s *Server) mountGames(r chi.Router) {
	r.Post("/games", s.handleCreateGame)
	r.Post("/games/{gameID}/start", s.handleStartGame)
	r.Get("/games/{gameID}", s.handleGameSummary)
	r.Get("/leaderboard", s.handleLeaderboard)
}

type createGameReq struct {
	PlayerCount int    `json:"playerCount"`
	LLM         string `json:"llm"`
}

type createGameRes struct {
	GameID     string   `json:"gameId"`
	PlayerURLs []string `json:"playerUrls"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameReq
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	provider, err := s.opts.Catalog.Lookup(req.LLM)
	if err != nil {
		writeError(w, http.StatusBadRequest, scoring.ErrUnknownProvider.Error())
		return
	}

	sess, tokens, err := game.New(game.Options{
		ID:                store.NewID(),
		Seats:             req.PlayerCount,
		Provider:          provider,
		Evaluator:         s.opts.Evaluator,
		EndPenaltyPerTile: s.opts.EndPenaltyPerTile,
	})
	if err != nil {
		log.Error().Err(err).Msg("create game")
		writeError(w, http.StatusInternalServerError, "create_failed")
		return
	}
	if err := s.store.Save(r.Context(), sess); err != nil {
		log.Error().Err(err).Msg("save game")
		writeError(w, http.StatusInternalServerError, "save_failed")
		return
	}

	base := s.baseURL(r)
	res := createGameRes{GameID: sess.ID(), PlayerURLs: make([]string, 0, len(tokens))}
	for _, tok := range tokens {
		res.PlayerURLs = append(res.PlayerURLs, base+"/g/"+sess.ID()+"/p/"+tok)
	}
	log.Info().Str("gameId", sess.ID()).Int("seats", len(tokens)).Str("provider", provider.Name()).Msg("game created")
	_ = json.NewEncoder(w).Encode(res)
}

type startGameReq struct {
	SeatToken string `json:"seatToken"`
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	var req startGameReq
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	if !sess.Start(req.SeatToken) {
		writeError(w, http.StatusBadRequest, "cannot_start")
		return
	}
	s.afterAction(sess)
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}

func (s *Server) handleGameSummary(w http.ResponseWriter, r *http.Request) {
	sess, err := s.store.Get(r.Context(), chi.URLParam(r, "gameID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "not_found")
		return
	}
	_ = json.NewEncoder(w).Encode(sess.Summary())
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit > 100 {
		limit = 100
	}
	if s.opts.Archive == nil {
		_ = json.NewEncoder(w).Encode([]archive.Entry{})
		return
	}
	rows, err := s.opts.Archive.Leaderboard(r.Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("leaderboard")
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	_ = json.NewEncoder(w).Encode(rows)
}

// baseURL is the configured public base, or one derived from the request
// and its forwarding headers.
func (s *Server) baseURL(r *http.Request) string {
	if s.opts.PublicBaseURL != "" {
		return s.opts.PublicBaseURL
	}
	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "http"
		if r.TLS != nil {
			proto = "https"
		}
	}
	host := r.Header.Get("X-Forwarded-Host")
	if host == "" {
		host = r.Host
	}
	return proto + "://" + host
}

// decodeBody decodes a JSON body into v. An empty body leaves v untouched.
func decodeBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeError(w http.ResponseWriter, status int, code string) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": code})
}
