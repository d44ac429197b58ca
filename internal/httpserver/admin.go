package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wortkunst/internal/game"
	"github.com/robalobadob/wortkunst/internal/store"
)

const adminRole = "admin"

type ctxAdminKey struct{}

// IssueAdminToken signs an HS256 admin JWT valid for ttl.
func IssueAdminToken(secret, subject string, ttl time.Duration) (string, time.Time, error) {
	if secret == "" {
		return "", time.Time{}, errors.New("admin secret not configured")
	}
	now := time.Now()
	exp := now.Add(ttl)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  subject,
		"role": adminRole,
		"exp":  exp.Unix(),
		"iat":  now.Unix(),
	})
	ss, err := t.SignedString([]byte(secret))
	return ss, exp, err
}

// requireAdmin enforces a valid admin JWT and puts its subject into the
// request context.
func requireAdmin(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearer(r)
			if tokenStr == "" {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, "invalid_token")
				return
			}
			if role, _ := claims["role"].(string); role != adminRole {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			sub, _ := claims["sub"].(string)
			ctx := context.WithValue(r.Context(), ctxAdminKey{}, sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearer extracts the token from an "Authorization: Bearer <token>" header.
func bearer(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return ""
}

func (s *Server) mountAdmin(r chi.Router) {
	r.Get("/games", s.handleAdminList)
	r.Delete("/games/{gameID}", s.handleAdminDelete)
}

func (s *Server) handleAdminList(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed")
		return
	}
	out := make([]game.Summary, 0, len(sessions))
	for _, sess := range sessions {
		out = append(out, sess.Summary())
	}
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) handleAdminDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "gameID")
	if err := s.store.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusInternalServerError, "delete_failed")
		return
	}
	s.hub.closeGame(id)
	admin, _ := r.Context().Value(ctxAdminKey{}).(string)
	log.Info().Str("gameId", id).Str("admin", admin).Msg("game removed")
	_ = json.NewEncoder(w).Encode(map[string]bool{"ok": true})
}
