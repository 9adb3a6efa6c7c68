package game

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/ardacey/Lexo/shared/logger"
	"github.com/jonboulle/clockwork"
)

// RoomCreator is the part of the lifecycle the matchmaker needs.
type RoomCreator interface {
	CreateRoom(ctx context.Context, name, username, userID string, mode GameMode) (RoomState, PlayerState, error)
	JoinRoom(ctx context.Context, roomID, username, userID string, asViewer bool) (RoomState, PlayerState, error)
	IsBusy(userID string) bool
	DiscardRoom(roomID string)
}

type QueueEntry struct {
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	JoinedAt time.Time `json:"joinedAt"`
}

type Match struct {
	Room    RoomState
	Players []PlayerState
}

type MatchStatus struct {
	InQueue  bool               `json:"inQueue"`
	Position int                `json:"position,omitempty"`
	Match    *MatchFoundMessage `json:"match,omitempty"`
	Invite   *InviteView        `json:"invite,omitempty"`
}

// Matchmaker pairs queued players first come first served and handles
// friend invites, which bypass the queue.
type Matchmaker struct {
	mu           sync.Mutex
	queue        []QueueEntry
	matches      map[string]MatchFoundMessage // user id -> match not yet picked up
	invites      map[string]*Invite
	inviteByUser map[string]string
	rooms        RoomCreator
	idGen        UniqueIdGenerator
	clock        clockwork.Clock
}

func NewMatchmaker(rooms RoomCreator, idGen UniqueIdGenerator, clock clockwork.Clock) *Matchmaker {
	return &Matchmaker{
		queue:        []QueueEntry{},
		matches:      make(map[string]MatchFoundMessage),
		invites:      make(map[string]*Invite),
		inviteByUser: make(map[string]string),
		rooms:        rooms,
		idGen:        idGen,
		clock:        clock,
	}
}

// Enqueue puts the user at the tail of the queue and returns their
// 1-based position. Enqueueing again moves the user to the tail.
func (m *Matchmaker) Enqueue(userID, username string) (int, error) {
	if m.rooms.IsBusy(userID) {
		return 0, ErrPlayerBusy
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, invited := m.inviteByUser[userID]; invited {
		return 0, ErrInviteAlreadyExists
	}
	delete(m.matches, userID)
	m.removeLocked(userID)
	m.queue = append(m.queue, QueueEntry{UserID: userID, Username: username, JoinedAt: m.clock.Now()})
	return len(m.queue), nil
}

func (m *Matchmaker) Dequeue(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.removeLocked(userID) != nil
}

func (m *Matchmaker) InQueue(userID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.ContainsFunc(m.queue, func(e QueueEntry) bool { return e.UserID == userID })
}

func (m *Matchmaker) removeLocked(userID string) *QueueEntry {
	i := slices.IndexFunc(m.queue, func(e QueueEntry) bool { return e.UserID == userID })
	if i < 0 {
		return nil
	}
	entry := m.queue[i]
	m.queue = slices.Delete(m.queue, i, i+1)
	return &entry
}

func (m *Matchmaker) QueueLength() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue)
}

// Status reports the queue position of the user, or the match found for
// them. A match is handed out once.
func (m *Matchmaker) Status(userID string) MatchStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	status := MatchStatus{}
	if match, ok := m.matches[userID]; ok {
		delete(m.matches, userID)
		status.Match = &match
	}
	if i := slices.IndexFunc(m.queue, func(e QueueEntry) bool { return e.UserID == userID }); i >= 0 {
		status.InQueue = true
		status.Position = i + 1
	}
	if id, ok := m.inviteByUser[userID]; ok {
		view := m.invites[id].view()
		status.Invite = &view
	}
	return status
}

// TryMatchPlayers pairs the head of the queue with the first entry of a
// different user. Users who got seated elsewhere are dropped from the queue.
// A pair that cannot be seated goes back to the front.
func (m *Matchmaker) TryMatchPlayers(ctx context.Context) (Match, bool, error) {
	match, failed, ok, err := m.tryMatch(ctx)
	if len(failed) > 0 {
		m.requeue(failed)
	}
	return match, ok, err
}

// MatchAll pairs players until the queue has no more matches. Pairs that
// fail are set aside so the rest of the queue still gets matched.
func (m *Matchmaker) MatchAll(ctx context.Context) int {
	matched := 0
	var aside []QueueEntry
	for {
		_, failed, ok, err := m.tryMatch(ctx)
		aside = append(aside, failed...)
		if err == nil && !ok {
			break
		}
		if ok {
			matched++
		}
	}
	if len(aside) > 0 {
		m.requeue(aside)
	}
	return matched
}

func (m *Matchmaker) tryMatch(ctx context.Context) (Match, []QueueEntry, bool, error) {
	m.mu.Lock()
	m.queue = slices.DeleteFunc(m.queue, func(e QueueEntry) bool {
		if m.rooms.IsBusy(e.UserID) {
			logger.Debugf("[Matchmaker] %s is already seated, leaving the queue", e.Username)
			return true
		}
		return false
	})
	if len(m.queue) < 2 {
		m.mu.Unlock()
		return Match{}, nil, false, nil
	}
	head := m.queue[0]
	i := slices.IndexFunc(m.queue[1:], func(e QueueEntry) bool { return e.UserID != head.UserID })
	if i < 0 {
		m.mu.Unlock()
		return Match{}, nil, false, nil
	}
	second := m.queue[i+1]
	m.queue = slices.Delete(m.queue, i+1, i+2)
	m.queue = m.queue[1:]
	m.mu.Unlock()

	match, err := m.createMatch(ctx, head, second, "")
	if err != nil {
		logger.Warningf("[Matchmaker] could not seat %s and %s: %v", head.Username, second.Username, err)
		return Match{}, []QueueEntry{head, second}, false, err
	}
	return match, nil, true, nil
}

// requeue puts entries back at the front of the queue, skipping users that
// are seated or queued again in the meantime.
func (m *Matchmaker) requeue(entries []QueueEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	back := make([]QueueEntry, 0, len(entries))
	for _, e := range entries {
		if m.rooms.IsBusy(e.UserID) {
			continue
		}
		if slices.ContainsFunc(m.queue, func(q QueueEntry) bool { return q.UserID == e.UserID }) {
			continue
		}
		if _, invited := m.inviteByUser[e.UserID]; invited {
			continue
		}
		back = append(back, e)
	}
	m.queue = append(back, m.queue...)
}

// createMatch seats both players in a new classic room and records the
// match for each of them. A room whose second seat fails is discarded.
func (m *Matchmaker) createMatch(ctx context.Context, first, second QueueEntry, inviteID string) (Match, error) {
	name := first.Username + " vs " + second.Username
	_, p1, err := m.rooms.CreateRoom(ctx, name, first.Username, first.UserID, ModeClassic)
	if err != nil {
		return Match{}, err
	}
	rs, p2, err := m.rooms.JoinRoom(ctx, p1.RoomID, second.Username, second.UserID, false)
	if err != nil {
		m.rooms.DiscardRoom(p1.RoomID)
		return Match{}, err
	}

	m.mu.Lock()
	m.matches[first.UserID] = MakeMessageMatchFound(rs.ID, p1.ID, inviteID)
	m.matches[second.UserID] = MakeMessageMatchFound(rs.ID, p2.ID, inviteID)
	m.mu.Unlock()

	logger.Infof("[Matchmaker] matched %s and %s in room %s", first.Username, second.Username, rs.ID)
	return Match{Room: rs, Players: []PlayerState{p1, p2}}, nil
}
