package game

import (
	"slices"
	"time"
)

// Player is owned by its room; every field is guarded by the room mutex.
type Player struct {
	id       string
	username string
	userID   string
	roomID   string

	score           int
	words           []string
	isViewer        bool
	isEliminated    bool
	eliminationTime time.Time

	connected      bool
	disconnectedAt time.Time
	joinOrder      int
}

func newPlayer(id, username, userID string, viewer bool) *Player {
	return &Player{
		id:       id,
		username: username,
		userID:   userID,
		isViewer: viewer,
		words:    []string{},
	}
}

func (p *Player) resetForMatch() {
	p.score = 0
	p.words = []string{}
	p.isEliminated = false
	p.eliminationTime = time.Time{}
}

// competing reports whether the player can still score in the current match.
func (p *Player) competing() bool {
	return !p.isViewer && !p.isEliminated
}

func (p *Player) eliminate(at time.Time) {
	p.isEliminated = true
	p.eliminationTime = at
}

func (p *Player) snapshot() PlayerState {
	ps := PlayerState{
		ID:           p.id,
		Username:     p.username,
		UserID:       p.userID,
		RoomID:       p.roomID,
		Score:        p.score,
		Words:        slices.Clone(p.words),
		IsViewer:     p.isViewer,
		IsEliminated: p.isEliminated,
		Connected:    p.connected,
		JoinOrder:    p.joinOrder,
	}
	if !p.eliminationTime.IsZero() {
		t := p.eliminationTime
		ps.EliminationTime = &t
	}
	return ps
}
