package game

import (
	"time"

	"github.com/robalobadob/wortkunst/internal/board"
)

// OtherSeat is what a seat may learn about an opponent: never rack contents.
type OtherSeat struct {
	RackCount   int     `json:"rackCount"`
	Connected   bool    `json:"connected"`
	DisplayName *string `json:"displayName"`
}

// View is the state pushed to one seat after every mutation.
type View struct {
	GameID      string               `json:"gameId"`
	Status      Status               `json:"status"`
	HostSeatID  string               `json:"hostSeatId"`
	SeatsLocked bool                 `json:"seatsLocked"`
	YouSeatID   string               `json:"youSeatId"`
	Seats       []SeatInfo           `json:"seats"`
	Board       board.Board          `json:"board"`
	Rack        []Tile               `json:"rack"`
	Others      map[string]OtherSeat `json:"others"`
	Scores      map[string]int       `json:"scores"`
	BagCount    int                  `json:"bagCount"`
	TurnSeatID  string               `json:"turnSeatId,omitempty"`
	LastMove    *MoveRecord          `json:"lastMove"`
	Config      Config               `json:"config"`
	LLMProvider string               `json:"llmProvider"`
}

// ViewFor projects the session for seatID. The returned value shares no
// mutable state with the session.
func (s *Session) ViewFor(seatID string) View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		GameID:      s.id,
		Status:      s.status,
		HostSeatID:  s.hostSeatID,
		SeatsLocked: s.seatsLocked,
		YouSeatID:   seatID,
		Seats:       s.seatInfos(),
		Board:       s.board,
		Rack:        append([]Tile{}, s.racks[seatID]...),
		Others:      make(map[string]OtherSeat, len(s.seats)),
		Scores:      make(map[string]int, len(s.scores)),
		BagCount:    s.bag.Len(),
		Config:      s.config,
		LLMProvider: s.providerName(),
	}
	for _, st := range s.seats {
		if st.ID == seatID {
			continue
		}
		info := st.info()
		v.Others[st.ID] = OtherSeat{
			RackCount:   len(s.racks[st.ID]),
			Connected:   st.Connected,
			DisplayName: info.DisplayName,
		}
	}
	for id, sc := range s.scores {
		v.Scores[id] = sc
	}
	if s.turnIndex < len(s.seats) {
		v.TurnSeatID = s.seats[s.turnIndex].ID
	}
	if n := len(s.history); n > 0 {
		last := s.history[n-1]
		v.LastMove = &last
	}
	return v
}

func (s *Session) seatInfos() []SeatInfo {
	out := make([]SeatInfo, 0, len(s.seats))
	for _, st := range s.seats {
		out = append(out, st.info())
	}
	return out
}

// Summary is the public, pre-join description of a game.
type Summary struct {
	GameID     string     `json:"gameId"`
	Status     Status     `json:"status"`
	Seats      []SeatInfo `json:"seats"`
	HostSeatID string     `json:"hostSeatId"`
}

// Summary returns the public summary of the session.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		GameID:     s.id,
		Status:     s.status,
		Seats:      s.seatInfos(),
		HostSeatID: s.hostSeatID,
	}
}

// FinalSeat is one seat's standing in a finished game.
type FinalSeat struct {
	SeatID      string
	DisplayName string
	Score       int
	Moves       int
}

// Final describes a finished game for archiving.
type Final struct {
	GameID    string
	Provider  string
	StartedAt time.Time
	EndedAt   time.Time
	Seats     []FinalSeat
}

// Final returns the outcome once the game has ended; ok is false before that.
func (s *Session) Final() (Final, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != StatusEnded {
		return Final{}, false
	}
	moves := make(map[string]int, len(s.seats))
	for _, m := range s.history {
		if m.Action == "" {
			moves[m.SeatID]++
		}
	}
	f := Final{
		GameID:    s.id,
		Provider:  s.providerName(),
		StartedAt: s.startedAt,
		EndedAt:   s.endedAt,
	}
	for _, st := range s.seats {
		f.Seats = append(f.Seats, FinalSeat{
			SeatID:      st.ID,
			DisplayName: st.DisplayName,
			Score:       s.scores[st.ID],
			Moves:       moves[st.ID],
		})
	}
	return f, true
}
