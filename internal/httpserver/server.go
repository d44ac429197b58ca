// internal/httpserver/server.go
//
// HTTP server wiring for the Wortkunst backend.
// Responsibilities:
//   - Router + middleware (JSON, CORS, timeouts, panic recovery, request IDs).
//   - Public endpoints: "/", "/health".
//   - Game endpoints under /api: create, start, summary, leaderboard.
//   - Admin endpoints under /api/admin, gated by an HS256 bearer JWT.
//   - The /ws endpoint carrying seat connections (see ws.go).
//
// Notes:
//   - chimw.Timeout only wraps /api; a hijacked WebSocket must outlive it.
//   - Every successful mutation is followed by a per-seat broadcast, issued
//     after the session action has returned.

package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wortkunst/internal/archive"
	"github.com/robalobadob/wortkunst/internal/game"
	"github.com/robalobadob/wortkunst/internal/scoring"
	"github.com/robalobadob/wortkunst/internal/store"
)

// Archive records finished games. *archive.Store satisfies it.
type Archive interface {
	RecordGame(ctx context.Context, f game.Final) error
	Leaderboard(ctx context.Context, limit int) ([]archive.Entry, error)
}

// Options are the server's dependencies.
type Options struct {
	Store     store.Store
	Catalog   *scoring.Catalog
	Evaluator game.Evaluator
	Archive   Archive // nil disables archiving and the leaderboard

	ClientOrigin      string
	AdminSecret       string // empty disables /api/admin
	PublicBaseURL     string // empty derives player URLs from the request
	EndPenaltyPerTile int
}

// Server bundles router, session registry, and the socket hub.
type Server struct {
	r        *chi.Mux
	opts     Options
	store    store.Store
	hub      *hub
	upgrader websocket.Upgrader
}

// New constructs a Server, installs middleware, and registers routes.
func New(o Options) *Server {
	s := &Server{
		r:     chi.NewRouter(),
		opts:  o,
		store: o.Store,
		hub:   newHub(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)

	// --- diagnostics ---
	s.r.With(jsonContentType).Get("/", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"service":"wortkunst","endpoints":["/health","POST /api/games","/ws"]}`))
	})
	s.r.With(jsonContentType).Get("/health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	s.r.Route("/api", func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)
		r.Use(cors(o.ClientOrigin))
		s.mountGames(r)
		if o.AdminSecret != "" {
			r.Route("/admin", func(r chi.Router) {
				r.Use(requireAdmin(o.AdminSecret))
				s.mountAdmin(r)
			})
		}
	})

	s.r.Get("/ws", s.handleWS)

	s.r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		writeError(w, http.StatusNotFound, "not_found")
	})
	return s
}

// Router exposes the internal router (useful for tests and http.Server).
func (s *Server) Router() chi.Router { return s.r }

// Close drops every open seat connection.
func (s *Server) Close() { s.hub.closeAll() }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors allows cross-origin REST calls from origin. Credentials are only
// advertised for a concrete origin, never for "*".
func cors(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "*"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			if origin != "*" {
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ------------------------------ helpers ------------------------------------

// afterAction archives the session if the last action ended it and pushes
// fresh views to every connected seat.
func (s *Server) afterAction(sess *game.Session) {
	if f, ok := sess.Final(); ok && s.opts.Archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.opts.Archive.RecordGame(ctx, f); err != nil {
			log.Warn().Err(err).Str("gameId", f.GameID).Msg("archive game")
		}
		cancel()
	}
	s.broadcast(sess)
}
