package game

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ardacey/Lexo/shared/logger"
	"github.com/jonboulle/clockwork"
)

// Connection is a live client socket.
type Connection interface {
	Write(data []byte) error
	Close(reason string)
}

type outgoing struct {
	playerID string
	conn     Connection
}

// Broadcaster keeps room id -> player id -> socket and fans messages out.
// Sends happen outside the lock on a snapshot of the recipients.
type Broadcaster struct {
	mu           sync.RWMutex
	rooms        map[string]map[string]Connection
	cleanups     map[string]clockwork.Timer
	maxPerRoom   int
	cleanupDelay time.Duration
	clock        clockwork.Clock
	onEmpty      func(roomID string)
}

func NewBroadcaster(clock clockwork.Clock, maxPerRoom int, cleanupDelay time.Duration) *Broadcaster {
	return &Broadcaster{
		rooms:        make(map[string]map[string]Connection),
		cleanups:     make(map[string]clockwork.Timer),
		maxPerRoom:   maxPerRoom,
		cleanupDelay: cleanupDelay,
		clock:        clock,
	}
}

// OnRoomEmpty sets the callback run when a room stayed without sockets
// for the cleanup delay.
func (b *Broadcaster) OnRoomEmpty(fn func(roomID string)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onEmpty = fn
}

// Connect registers the socket of a player. An older socket for the same
// player is replaced and closed.
func (b *Broadcaster) Connect(roomID, playerID string, conn Connection) error {
	b.mu.Lock()
	conns, ok := b.rooms[roomID]
	if !ok {
		conns = make(map[string]Connection)
		b.rooms[roomID] = conns
	}
	old, replacing := conns[playerID]
	if !replacing && b.maxPerRoom > 0 && len(conns) >= b.maxPerRoom {
		if len(conns) == 0 {
			delete(b.rooms, roomID)
		}
		b.mu.Unlock()
		return ErrTooManyConnections
	}
	conns[playerID] = conn
	if timer, pending := b.cleanups[roomID]; pending {
		timer.Stop()
		delete(b.cleanups, roomID)
	}
	b.mu.Unlock()

	if replacing && old != conn {
		old.Close("replaced")
	}
	return nil
}

// Release removes the socket only if it is still the one registered for
// the player, so a stale reader cannot unregister a fresh reconnection.
func (b *Broadcaster) Release(roomID, playerID string, conn Connection) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	conns, ok := b.rooms[roomID]
	if !ok || conns[playerID] != conn {
		return false
	}
	b.removeLocked(roomID, playerID)
	return true
}

// Disconnect removes whatever socket the player has, without closing it.
func (b *Broadcaster) Disconnect(roomID, playerID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(roomID, playerID)
}

func (b *Broadcaster) removeLocked(roomID, playerID string) {
	conns, ok := b.rooms[roomID]
	if !ok {
		return
	}
	if _, ok := conns[playerID]; !ok {
		return
	}
	delete(conns, playerID)
	if len(conns) > 0 {
		return
	}
	delete(b.rooms, roomID)
	b.scheduleCleanupLocked(roomID)
}

func (b *Broadcaster) scheduleCleanupLocked(roomID string) {
	if timer, pending := b.cleanups[roomID]; pending {
		timer.Stop()
	}
	var timer clockwork.Timer
	timer = b.clock.AfterFunc(b.cleanupDelay, func() {
		b.mu.Lock()
		current, pending := b.cleanups[roomID]
		stillEmpty := len(b.rooms[roomID]) == 0
		if pending && current == timer {
			delete(b.cleanups, roomID)
		}
		onEmpty := b.onEmpty
		b.mu.Unlock()

		if pending && current == timer && stillEmpty && onEmpty != nil {
			onEmpty(roomID)
		}
	})
	b.cleanups[roomID] = timer
}

func (b *Broadcaster) Count(roomID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[roomID])
}

func (b *Broadcaster) IsConnected(roomID, playerID string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, ok := b.rooms[roomID][playerID]
	return ok
}

func (b *Broadcaster) recipients(roomID string, exclude []string) []outgoing {
	b.mu.RLock()
	defer b.mu.RUnlock()
	conns := b.rooms[roomID]
	out := make([]outgoing, 0, len(conns))
	for pid, conn := range conns {
		skip := false
		for _, ex := range exclude {
			if ex == pid {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, outgoing{playerID: pid, conn: conn})
		}
	}
	return out
}

// Broadcast sends msg to every socket of the room except the excluded
// players. A socket that fails is dropped on its own.
func (b *Broadcaster) Broadcast(roomID string, msg any, exclude ...string) {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.Criticalf("[Broadcaster] failed to marshal message for room %s: %v", roomID, err)
		return
	}
	for _, target := range b.recipients(roomID, exclude) {
		b.deliver(roomID, target.playerID, target.conn, data)
	}
}

// SendTo unicasts msg to one player.
func (b *Broadcaster) SendTo(roomID, playerID string, msg any) error {
	b.mu.RLock()
	conn, ok := b.rooms[roomID][playerID]
	b.mu.RUnlock()
	if !ok {
		return ErrPlayerNotFound
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return b.deliver(roomID, playerID, conn, data)
}

func (b *Broadcaster) deliver(roomID, playerID string, conn Connection, data []byte) error {
	if err := conn.Write(data); err != nil {
		logger.Warningf("[Broadcaster] dropping socket of player %s in room %s: %v", playerID, roomID, err)
		if b.Release(roomID, playerID, conn) {
			conn.Close("send-failed")
		}
		return err
	}
	return nil
}

// CloseRoom closes and forgets every socket of the room.
func (b *Broadcaster) CloseRoom(roomID, reason string) {
	b.mu.Lock()
	conns := b.rooms[roomID]
	delete(b.rooms, roomID)
	if timer, pending := b.cleanups[roomID]; pending {
		timer.Stop()
		delete(b.cleanups, roomID)
	}
	b.mu.Unlock()

	for _, conn := range conns {
		conn.Close(reason)
	}
}
