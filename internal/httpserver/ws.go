// internal/httpserver/ws.go
//
// Seat connections over WebSocket.
//
// Client frames (flat JSON, "type" selects the action):
//   join{gameId, seatToken, displayName}, request_state, place{tiles},
//   exchange{rackIndices}, pass
// Server frames:
//   joined{payload: summary}, state{payload: view}, error{error: code}
//
// Unparseable frames and actions before a successful join are dropped.

package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/wortkunst/internal/board"
	"github.com/robalobadob/wortkunst/internal/game"
)

const (
	writeWait    = 10 * time.Second
	maxFrameSize = 64 << 10
)

type inFrame struct {
	Type        string            `json:"type"`
	GameID      string            `json:"gameId"`
	SeatToken   string            `json:"seatToken"`
	DisplayName string            `json:"displayName"`
	Tiles       []board.Placement `json:"tiles"`
	RackIndices []int             `json:"rackIndices"`
}

type outFrame struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// client is one socket. The seat fields are set by a successful join.
type client struct {
	conn *websocket.Conn
	wmu  sync.Mutex // serialises writes

	gameID string
	token  string
	seatID string
}

func (c *client) send(f outFrame) {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := c.conn.WriteJSON(f); err != nil {
		log.Debug().Err(err).Str("gameId", c.gameID).Str("seat", c.seatID).Msg("ws write")
	}
}

func (c *client) sendError(err error) { c.send(outFrame{Type: "error", Error: err.Error()}) }

// hub tracks the sockets of every game.
type hub struct {
	mu    sync.RWMutex
	games map[string]map[*client]struct{}
}

func newHub() *hub { return &hub{games: make(map[string]map[*client]struct{})} }

func (h *hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.games[c.gameID]
	if set == nil {
		set = make(map[*client]struct{})
		h.games[c.gameID] = set
	}
	set[c] = struct{}{}
}

// remove drops c and reports whether another socket still holds its seat.
func (h *hub) remove(c *client) (seatStillOpen bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.games[c.gameID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.games, c.gameID)
	}
	for other := range set {
		if other.seatID == c.seatID {
			return true
		}
	}
	return false
}

func (h *hub) clients(gameID string) []*client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*client, 0, len(h.games[gameID]))
	for c := range h.games[gameID] {
		out = append(out, c)
	}
	return out
}

func (h *hub) closeGame(gameID string) {
	for _, c := range h.clients(gameID) {
		_ = c.conn.Close()
	}
}

func (h *hub) closeAll() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.games))
	for id := range h.games {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	for _, id := range ids {
		h.closeGame(id)
	}
}

// broadcast sends every socket of sess the view of its own seat.
func (s *Server) broadcast(sess *game.Session) {
	for _, c := range s.hub.clients(sess.ID()) {
		c.send(outFrame{Type: "state", Payload: sess.ViewFor(c.seatID)})
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("ws upgrade")
		return
	}
	conn.SetReadLimit(maxFrameSize)
	go s.readLoop(&client{conn: conn})
}

func (s *Server) readLoop(c *client) {
	defer func() {
		_ = c.conn.Close()
		s.leave(c)
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("gameId", c.gameID).Msg("ws read")
			}
			return
		}
		var f inFrame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		s.dispatch(c, f)
	}
}

// leave unregisters c and marks its seat disconnected when no other socket
// holds it.
func (s *Server) leave(c *client) {
	if c.gameID == "" {
		return
	}
	if s.hub.remove(c) {
		return
	}
	sess, err := s.store.Get(context.Background(), c.gameID)
	if err != nil {
		return
	}
	sess.MarkDisconnected(c.seatID)
	s.broadcast(sess)
}

func (s *Server) dispatch(c *client, f inFrame) {
	if f.Type == "join" {
		s.join(c, f)
		return
	}
	if c.gameID == "" {
		return
	}
	sess, err := s.store.Get(context.Background(), c.gameID)
	if err != nil {
		return
	}

	switch f.Type {
	case "request_state":
		c.send(outFrame{Type: "state", Payload: sess.ViewFor(c.seatID)})
		return
	case "place":
		// Not tied to the socket: a dropped connection must not abort a
		// scoring call that is about to commit.
		err = sess.PlaceMove(context.Background(), c.token, f.Tiles)
	case "exchange":
		err = sess.Exchange(c.token, f.RackIndices)
	case "pass":
		err = sess.Pass(c.token)
	default:
		return
	}
	if err != nil {
		c.sendError(err)
		return
	}
	s.afterAction(sess)
}

// join binds c to a seat. A socket is bound at most once; repeating the same
// join only re-sends the summary.
func (s *Server) join(c *client, f inFrame) {
	if c.gameID != "" && (c.gameID != f.GameID || c.token != f.SeatToken) {
		c.send(outFrame{Type: "error", Error: "cannot_join"})
		return
	}
	sess, err := s.store.Get(context.Background(), f.GameID)
	if err != nil {
		c.send(outFrame{Type: "error", Error: "not_found"})
		return
	}
	info, ok := sess.Join(f.SeatToken, f.DisplayName)
	if !ok {
		c.send(outFrame{Type: "error", Error: "cannot_join"})
		return
	}
	if c.gameID == "" {
		c.gameID, c.token, c.seatID = sess.ID(), f.SeatToken, info.SeatID
		s.hub.add(c)
	}
	s.broadcast(sess)
	c.send(outFrame{Type: "joined", Payload: sess.Summary()})
}
