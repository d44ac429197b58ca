// internal/game/session.go
//
// Session state machine for a single Wortkunst game.
// Responsibilities:
//   - Seat bookkeeping (join, disconnect) authenticated by seat token.
//   - Lifecycle: lobby → active (host start) → ended (endgame check).
//   - Turn-gated actions: place, exchange, pass.
//   - Racks, bag, scores, and the append-only move history.
//
// Notes:
//   - Every action holds the session mutex for its whole duration, including
//     the scoring round trip inside PlaceMove. Two sessions never contend.
//   - PlaceMove commits nothing until the evaluation has succeeded, so an
//     llm_failed rejection leaves board, rack, score and turn untouched.

package game

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	mrand "math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/wortkunst/internal/board"
	"github.com/robalobadob/wortkunst/internal/scoring"
)

// Evaluator scores the words formed by a move.
type Evaluator interface {
	Evaluate(ctx context.Context, words []string, p scoring.Provider) (scoring.Result, error)
}

// Options configures a new Session. Zero fields take defaults.
type Options struct {
	ID                string
	Seats             int // clamped to [1, 4]
	Provider          scoring.Provider
	Evaluator         Evaluator
	EndPenaltyPerTile int
	Rand              *mrand.Rand      // tile shuffles
	NewToken          func() string    // seat token generator
	Now               func() time.Time // clock
	TokenCost         int              // bcrypt cost for seat token hashes
}

// Session is one game instance.
type Session struct {
	mu sync.Mutex

	id          string
	status      Status
	seats       []*Seat
	hostSeatID  string
	seatsLocked bool
	turnIndex   int
	bag         *Bag
	board       board.Board
	racks       map[string][]Tile
	scores      map[string]int
	history     []MoveRecord
	passes      int
	config      Config
	startedAt   time.Time
	endedAt     time.Time

	provider  scoring.Provider
	evaluator Evaluator
	now       func() time.Time
}

// New creates a session in the lobby and returns it together with one
// capability token per seat, in seat order. Tokens are not retrievable later.
func New(o Options) (*Session, []string, error) {
	if o.Seats < 1 {
		o.Seats = 1
	}
	if o.Seats > 4 {
		o.Seats = 4
	}
	if o.EndPenaltyPerTile == 0 {
		o.EndPenaltyPerTile = DefaultEndPenaltyPerTile
	}
	if o.Rand == nil {
		o.Rand = mrand.New(mrand.NewPCG(mrand.Uint64(), mrand.Uint64()))
	}
	if o.NewToken == nil {
		o.NewToken = genToken
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.TokenCost == 0 {
		o.TokenCost = bcrypt.MinCost
	}

	s := &Session{
		id:     o.ID,
		status: StatusLobby,
		bag:    NewBag(o.Rand),
		racks:  make(map[string][]Tile),
		scores: make(map[string]int),
		config: Config{
			NoPremiumSquares:  true,
			EndPenaltyPerTile: o.EndPenaltyPerTile,
			InitialSeatCount:  o.Seats,
		},
		provider:  o.Provider,
		evaluator: o.Evaluator,
		now:       o.Now,
	}

	tokens := make([]string, 0, o.Seats)
	for i := 0; i < o.Seats; i++ {
		tok := o.NewToken()
		h, err := bcrypt.GenerateFromPassword([]byte(tok), o.TokenCost)
		if err != nil {
			return nil, nil, fmt.Errorf("hash seat token: %w", err)
		}
		seat := &Seat{ID: "S" + strconv.Itoa(i+1), tokenHash: h}
		s.seats = append(s.seats, seat)
		s.racks[seat.ID] = []Tile{}
		s.scores[seat.ID] = 0
		tokens = append(tokens, tok)
	}
	s.hostSeatID = s.seats[0].ID
	return s, tokens, nil
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Status returns the current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// seatByToken resolves a token to its seat. Must hold s.mu.
func (s *Session) seatByToken(token string) *Seat {
	if token == "" {
		return nil
	}
	for _, seat := range s.seats {
		if bcrypt.CompareHashAndPassword(seat.tokenHash, []byte(token)) == nil {
			return seat
		}
	}
	return nil
}

// SeatID resolves a token to a seat id without side effects.
func (s *Session) SeatID(token string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seat := s.seatByToken(token); seat != nil {
		return seat.ID, true
	}
	return "", false
}

// Join marks the seat behind token as connected. It is idempotent on
// reconnection. Once the game is active only seats that joined before the
// start may return.
func (s *Session) Join(token, displayName string) (SeatInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat := s.seatByToken(token)
	if seat == nil {
		return SeatInfo{}, false
	}
	if s.status == StatusActive && !seat.joined() {
		return SeatInfo{}, false
	}
	seat.Connected = true
	if !seat.joined() {
		seat.JoinedAt = s.now()
	}
	if n := len([]rune(displayName)); n > 0 && n <= maxDisplayName {
		seat.DisplayName = displayName
	}
	log.Info().Str("gameId", s.id).Str("seat", seat.ID).Msg("seat joined")
	return seat.info(), true
}

// MarkDisconnected clears the connection flag of a seat.
func (s *Session) MarkDisconnected(seatID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, seat := range s.seats {
		if seat.ID == seatID {
			seat.Connected = false
			return
		}
	}
}

// Start moves the game from lobby to active. Only the host may start, and
// seats that never joined are dropped for good. It reports false when the
// start is not allowed.
func (s *Session) Start(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat := s.seatByToken(token)
	if seat == nil || seat.ID != s.hostSeatID || s.status != StatusLobby {
		return false
	}

	kept := make([]*Seat, 0, len(s.seats))
	for _, st := range s.seats {
		if st.joined() {
			kept = append(kept, st)
		}
	}
	if len(kept) == 0 {
		return false
	}
	s.seats = kept
	s.seatsLocked = true

	s.racks = make(map[string][]Tile, len(kept))
	s.scores = make(map[string]int, len(kept))
	for _, st := range kept {
		s.racks[st.ID] = []Tile{}
		s.scores[st.ID] = 0
	}
	for _, st := range kept {
		s.racks[st.ID] = s.bag.fill(s.racks[st.ID])
	}

	s.status = StatusActive
	s.startedAt = s.now()
	s.turnIndex = 0
	s.passes = 0
	log.Info().Str("gameId", s.id).Int("seats", len(kept)).Msg("game started")
	return true
}

// actor resolves the acting seat for a turn-gated action. Must hold s.mu.
func (s *Session) actor(token string) (*Seat, error) {
	if s.status != StatusActive {
		return nil, ErrNotActive
	}
	seat := s.seatByToken(token)
	if seat == nil {
		return nil, ErrNotJoined
	}
	if seat.ID != s.seats[s.turnIndex].ID {
		return nil, ErrNotYourTurn
	}
	return seat, nil
}

// PlaceMove validates, scores and applies a tile placement.
//
// Phase one (no mutation): rack check, geometric validation, evaluation.
// Phase two runs only if all of those succeed: board, rack, score, history,
// refill, turn, endgame.
func (s *Session) PlaceMove(ctx context.Context, token string, placed []board.Placement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat, err := s.actor(token)
	if err != nil {
		return err
	}

	remaining, ok := takeFromRack(s.racks[seat.ID], placed)
	if !ok {
		return ErrTilesNotInRack
	}

	res, err := board.Validate(s.board, placed, s.board.IsEmpty())
	if err != nil {
		return err
	}

	log.Info().Str("gameId", s.id).Str("seat", seat.ID).Str("provider", s.providerName()).
		Strs("words", res.Words).Msg("evaluating move")
	eval, err := s.evaluator.Evaluate(ctx, res.Words, s.provider)
	if err != nil {
		log.Warn().Err(err).Str("gameId", s.id).Str("seat", seat.ID).Msg("evaluation failed")
		return ErrLLMFailed
	}

	score := eval.Total()
	s.board = res.Board
	s.racks[seat.ID] = remaining
	s.scores[seat.ID] += score
	s.history = append(s.history, MoveRecord{
		SeatID:             seat.ID,
		PlacedTiles:        append([]board.Placement(nil), placed...),
		Words:              res.Words,
		PerWordEvaluations: eval.Evaluations,
		MoveScore:          score,
		ExplanationText:    explanationText(eval.Evaluations),
		Timestamp:          s.now().UnixMilli(),
	})
	s.racks[seat.ID] = s.bag.fill(s.racks[seat.ID])
	s.passes = 0
	s.advance()
	log.Info().Str("gameId", s.id).Str("seat", seat.ID).Int("score", score).
		Int("total", s.scores[seat.ID]).Msg("move placed")
	return nil
}

// Exchange swaps the rack tiles at the given indices for fresh ones from the
// bag. Out-of-range and repeated indices are ignored.
func (s *Session) Exchange(token string, rackIndices []int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat, err := s.actor(token)
	if err != nil {
		return err
	}
	if len(rackIndices) == 0 {
		return ErrNoTilesSelected
	}
	if s.bag.Len() < RackSize {
		return ErrBagTooSmall
	}

	rack := s.racks[seat.ID]
	pick := make([]bool, len(rack))
	n := 0
	for _, i := range rackIndices {
		if i >= 0 && i < len(rack) && !pick[i] {
			pick[i] = true
			n++
		}
	}
	if n == 0 {
		return ErrNoTilesSelected
	}

	kept := make([]Tile, 0, len(rack))
	swapped := make([]Tile, 0, n)
	for i, t := range rack {
		if pick[i] {
			swapped = append(swapped, t)
		} else {
			kept = append(kept, t)
		}
	}
	s.bag.Return(swapped...)
	s.bag.Shuffle()
	s.racks[seat.ID] = s.bag.fill(kept)

	s.history = append(s.history, s.emptyRecord(seat.ID, ActionExchange))
	s.passes = 0
	s.advance()
	return nil
}

// Pass gives up the turn.
func (s *Session) Pass(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seat, err := s.actor(token)
	if err != nil {
		return err
	}
	s.history = append(s.history, s.emptyRecord(seat.ID, ActionPass))
	s.passes++
	s.advance()
	return nil
}

func (s *Session) emptyRecord(seatID, action string) MoveRecord {
	return MoveRecord{
		SeatID:             seatID,
		PlacedTiles:        []board.Placement{},
		Words:              []string{},
		PerWordEvaluations: []scoring.Evaluation{},
		Timestamp:          s.now().UnixMilli(),
		Action:             action,
	}
}

// advance moves the turn to the next seat and runs the endgame check.
func (s *Session) advance() {
	s.turnIndex = (s.turnIndex + 1) % len(s.seats)
	s.checkEndgame()
}

// checkEndgame ends the game when a rack and the bag are both empty, or when
// every seat has passed in an unbroken row.
func (s *Session) checkEndgame() {
	emptyRack := false
	for _, st := range s.seats {
		if len(s.racks[st.ID]) == 0 {
			emptyRack = true
			break
		}
	}
	if (emptyRack && s.bag.Len() == 0) || s.passes >= len(s.seats) {
		s.end()
	}
}

func (s *Session) end() {
	for _, st := range s.seats {
		s.scores[st.ID] -= s.config.EndPenaltyPerTile * len(s.racks[st.ID])
	}
	s.status = StatusEnded
	s.endedAt = s.now()
	log.Info().Str("gameId", s.id).Interface("scores", s.scores).Msg("game ended")
}

func (s *Session) providerName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// takeFromRack matches every placement to a distinct rack tile and returns
// the rack without them. ok is false if some placement has no backing tile.
func takeFromRack(rack []Tile, placed []board.Placement) ([]Tile, bool) {
	left := append([]Tile(nil), rack...)
	for _, p := range placed {
		idx := -1
		for i, t := range left {
			if t.matches(p.Letter, p.IsBlank) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, false
		}
		left = append(left[:idx], left[idx+1:]...)
	}
	return left, true
}

func explanationText(evals []scoring.Evaluation) string {
	parts := make([]string, 0, len(evals))
	for _, e := range evals {
		parts = append(parts, e.Word+": "+e.Explanation)
	}
	return strings.Join(parts, " ")
}

// genToken creates a 22-char URL-safe, crypto-random seat token (no padding).
func genToken() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
