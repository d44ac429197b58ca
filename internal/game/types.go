// internal/game/types.go
//
// Core type definitions for the Wortkunst session engine.
// Defines:
//   - Status: lobby → active → ended, never reversed.
//   - Seat / SeatInfo: a player slot and its public projection.
//   - MoveRecord: one entry of the append-only move history.
//   - Config: per-game rule settings.
//   - Rejection codes surfaced to clients.

package game

import (
	"errors"
	"time"

	"github.com/robalobadob/wortkunst/internal/board"
	"github.com/robalobadob/wortkunst/internal/scoring"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusLobby  Status = "lobby"
	StatusActive Status = "active"
	StatusEnded  Status = "ended"
)

// Rejection codes. The error text is the code sent to clients.
// Geometric rejections come from the board package.
var (
	ErrNotActive       = errors.New("not_active")
	ErrNotJoined       = errors.New("not_joined")
	ErrNotYourTurn     = errors.New("not_your_turn")
	ErrTilesNotInRack  = errors.New("tiles_not_in_rack")
	ErrNoTilesSelected = errors.New("no_tiles_selected")
	ErrBagTooSmall     = errors.New("bag_too_small")
	ErrLLMFailed       = errors.New("llm_failed")
)

// Action tags for non-placing moves.
const (
	ActionExchange = "exchange"
	ActionPass     = "pass"
)

// maxDisplayName is the longest display name accepted on join.
const maxDisplayName = 30

// Seat is a player slot. The token itself is never stored, only its hash.
type Seat struct {
	ID          string
	DisplayName string
	Connected   bool
	JoinedAt    time.Time

	tokenHash []byte
}

// SeatInfo is the public projection of a Seat.
type SeatInfo struct {
	SeatID      string  `json:"seatId"`
	Connected   bool    `json:"connected"`
	DisplayName *string `json:"displayName"`
}

func (s *Seat) info() SeatInfo {
	si := SeatInfo{SeatID: s.ID, Connected: s.Connected}
	if s.DisplayName != "" {
		name := s.DisplayName
		si.DisplayName = &name
	}
	return si
}

func (s *Seat) joined() bool { return !s.JoinedAt.IsZero() }

// MoveRecord is one applied action. Records are never modified once appended.
type MoveRecord struct {
	SeatID             string               `json:"seatId"`
	PlacedTiles        []board.Placement    `json:"placedTiles"`
	Words              []string             `json:"words"`
	PerWordEvaluations []scoring.Evaluation `json:"perWordEvaluations"`
	MoveScore          int                  `json:"moveScore"`
	ExplanationText    string               `json:"explanationText"`
	Timestamp          int64                `json:"timestamp"` // unix millis
	Action             string               `json:"action,omitempty"`
}

// Config holds the rule settings of one game.
type Config struct {
	NoPremiumSquares  bool `json:"noPremiumSquares"`
	EndPenaltyPerTile int  `json:"endPenaltyPerTile"`
	InitialSeatCount  int  `json:"initialSeatCount"`
}

// DefaultEndPenaltyPerTile is subtracted per tile left on a rack at game end.
const DefaultEndPenaltyPerTile = 100
