package game

import (
	"context"
	"time"

	"github.com/ardacey/Lexo/shared/logger"
)

type InviteStatus string

const (
	InvitePending   InviteStatus = "pending"
	InviteAccepted  InviteStatus = "accepted"
	InviteDeclined  InviteStatus = "declined"
	InviteCancelled InviteStatus = "cancelled"
)

type Invite struct {
	id        string
	inviter   QueueEntry
	target    QueueEntry
	status    InviteStatus
	joiners   map[string]struct{}
	createdAt time.Time
	roomID    string
	creating  bool

	// queue entries to give back if the invite falls through
	inviterQueued *QueueEntry
	targetQueued  *QueueEntry
}

type InviteView struct {
	ID          string       `json:"id"`
	InviterID   string       `json:"inviterId"`
	InviterName string       `json:"inviterName"`
	TargetID    string       `json:"targetId"`
	TargetName  string       `json:"targetName"`
	Status      InviteStatus `json:"status"`
	Joined      []string     `json:"joined"`
	RoomID      string       `json:"roomId,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	InviterInQ  bool         `json:"inviterWasQueued"`
	TargetInQ   bool         `json:"targetWasQueued"`
}

func (inv *Invite) view() InviteView {
	joined := make([]string, 0, len(inv.joiners))
	for _, id := range []string{inv.inviter.UserID, inv.target.UserID} {
		if _, ok := inv.joiners[id]; ok {
			joined = append(joined, id)
		}
	}
	return InviteView{
		ID:          inv.id,
		InviterID:   inv.inviter.UserID,
		InviterName: inv.inviter.Username,
		TargetID:    inv.target.UserID,
		TargetName:  inv.target.Username,
		Status:      inv.status,
		Joined:      joined,
		RoomID:      inv.roomID,
		CreatedAt:   inv.createdAt,
		InviterInQ:  inv.inviterQueued != nil,
		TargetInQ:   inv.targetQueued != nil,
	}
}

func (inv *Invite) participant(userID string) bool {
	return userID == inv.inviter.UserID || userID == inv.target.UserID
}

// CreateInvite pulls both users out of the queue and opens an invite.
// A user can be part of only one open invite at a time.
func (m *Matchmaker) CreateInvite(inviterID, inviterName, targetID, targetName string) (InviteView, error) {
	if inviterID == targetID {
		return InviteView{}, ErrCannotInviteSelf
	}
	if m.rooms.IsBusy(inviterID) || m.rooms.IsBusy(targetID) {
		return InviteView{}, ErrPlayerBusy
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, open := m.inviteByUser[inviterID]; open {
		return InviteView{}, ErrInviteAlreadyExists
	}
	if _, open := m.inviteByUser[targetID]; open {
		return InviteView{}, ErrInviteAlreadyExists
	}

	now := m.clock.Now()
	inv := &Invite{
		id:            m.idGen.Generate(),
		inviter:       QueueEntry{UserID: inviterID, Username: inviterName, JoinedAt: now},
		target:        QueueEntry{UserID: targetID, Username: targetName, JoinedAt: now},
		status:        InvitePending,
		joiners:       make(map[string]struct{}),
		createdAt:     now,
		inviterQueued: m.removeLocked(inviterID),
		targetQueued:  m.removeLocked(targetID),
	}
	m.invites[inv.id] = inv
	m.inviteByUser[inviterID] = inv.id
	m.inviteByUser[targetID] = inv.id

	logger.Infof("[Matchmaker] %s invited %s (invite %s)", inviterName, targetName, inv.id)
	return inv.view(), nil
}

// RespondInvite lets the target accept or decline a pending invite.
func (m *Matchmaker) RespondInvite(inviteID, userID string, accept bool) (InviteView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inv, ok := m.invites[inviteID]
	if !ok || inv.status != InvitePending {
		return InviteView{}, ErrInviteNotFound
	}
	if userID != inv.target.UserID {
		return InviteView{}, ErrNotInviteParticipant
	}
	if accept {
		inv.status = InviteAccepted
		return inv.view(), nil
	}
	inv.status = InviteDeclined
	m.closeInviteLocked(inv, true)
	return inv.view(), nil
}

// CancelInvite withdraws the open invite of the user, from either side.
func (m *Matchmaker) CancelInvite(userID string) (InviteView, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.inviteByUser[userID]
	if !ok {
		return InviteView{}, ErrInviteNotFound
	}
	inv := m.invites[id]
	if inv.creating {
		return InviteView{}, ErrInviteNotFound
	}
	inv.status = InviteCancelled
	m.closeInviteLocked(inv, true)
	return inv.view(), nil
}

func (m *Matchmaker) InviteForUser(userID string) (InviteView, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.inviteByUser[userID]
	if !ok {
		return InviteView{}, false
	}
	return m.invites[id].view(), true
}

// JoinInvite records that a participant is ready. The room is created
// once both participants have joined an accepted invite.
func (m *Matchmaker) JoinInvite(ctx context.Context, inviteID, userID string) (InviteView, *Match, error) {
	m.mu.Lock()
	inv, ok := m.invites[inviteID]
	if !ok {
		m.mu.Unlock()
		return InviteView{}, nil, ErrInviteNotFound
	}
	if !inv.participant(userID) {
		m.mu.Unlock()
		return InviteView{}, nil, ErrNotInviteParticipant
	}
	switch inv.status {
	case InvitePending:
		m.mu.Unlock()
		return InviteView{}, nil, ErrInviteNotAccepted
	case InviteAccepted:
	default:
		m.mu.Unlock()
		return InviteView{}, nil, ErrInviteNotFound
	}
	inv.joiners[userID] = struct{}{}
	if len(inv.joiners) < 2 || inv.creating || inv.roomID != "" {
		view := inv.view()
		m.mu.Unlock()
		return view, nil, nil
	}
	inv.creating = true
	inviter, target := inv.inviter, inv.target
	m.mu.Unlock()

	match, err := m.createMatch(ctx, inviter, target, inviteID)

	m.mu.Lock()
	defer m.mu.Unlock()
	inv.creating = false
	if err != nil {
		inv.status = InviteCancelled
		m.closeInviteLocked(inv, true)
		return inv.view(), nil, err
	}
	inv.roomID = match.Room.ID
	m.closeInviteLocked(inv, false)
	return inv.view(), &match, nil
}

// closeInviteLocked forgets the invite and, when restore is set, puts
// participants back in the queue if they were queued before.
func (m *Matchmaker) closeInviteLocked(inv *Invite, restore bool) {
	delete(m.invites, inv.id)
	if m.inviteByUser[inv.inviter.UserID] == inv.id {
		delete(m.inviteByUser, inv.inviter.UserID)
	}
	if m.inviteByUser[inv.target.UserID] == inv.id {
		delete(m.inviteByUser, inv.target.UserID)
	}
	if !restore {
		return
	}
	for _, entry := range []*QueueEntry{inv.inviterQueued, inv.targetQueued} {
		if entry != nil {
			m.queue = append(m.queue, *entry)
		}
	}
}
