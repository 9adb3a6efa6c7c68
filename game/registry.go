package game

import (
	"context"
	"sync"
)

// Registry is the authoritative store of live rooms and the indexes used to
// find them. Lock order is registry before room: nothing here takes a room
// lock, and room code never calls the registry while holding its own lock.
type Registry struct {
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc
	rooms      map[string]*Room
	players    map[string]string // player id -> room id
	users      map[string]string // user id -> room id, competitors only
	countdowns map[string]uint64
	nextToken  uint64
}

func NewRegistry() *Registry {
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		ctx:        ctx,
		cancel:     cancel,
		rooms:      make(map[string]*Room),
		players:    make(map[string]string),
		users:      make(map[string]string),
		countdowns: make(map[string]uint64),
	}
}

// AddRoom registers the room and gives it its task group.
func (reg *Registry) AddRoom(room *Room) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	room.tasks = newRoomTasks(reg.ctx, room.id)
	reg.rooms[room.id] = room
}

func (reg *Registry) Room(id string) (*Room, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	room, ok := reg.rooms[id]
	return room, ok
}

func (reg *Registry) Rooms() []*Room {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	out := make([]*Room, 0, len(reg.rooms))
	for _, room := range reg.rooms {
		out = append(out, room)
	}
	return out
}

func (reg *Registry) RoomCount() int {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	return len(reg.rooms)
}

// RemoveRoom drops the room with its indexes and cancels its tasks.
func (reg *Registry) RemoveRoom(id string) (*Room, bool) {
	reg.mu.Lock()
	room, ok := reg.rooms[id]
	if ok {
		delete(reg.rooms, id)
		delete(reg.countdowns, id)
		for pid, rid := range reg.players {
			if rid == id {
				delete(reg.players, pid)
			}
		}
		for uid, rid := range reg.users {
			if rid == id {
				delete(reg.users, uid)
			}
		}
	}
	reg.mu.Unlock()

	if ok && room.tasks != nil {
		room.tasks.Stop()
	}
	return room, ok
}

func (reg *Registry) BindPlayer(playerID, roomID, userID string, viewer bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.players[playerID] = roomID
	if userID != "" && !viewer {
		reg.users[userID] = roomID
	}
}

func (reg *Registry) UnbindPlayer(playerID, userID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	roomID, ok := reg.players[playerID]
	delete(reg.players, playerID)
	if ok && userID != "" && reg.users[userID] == roomID {
		delete(reg.users, userID)
	}
}

// ReleaseUsers frees the competitors of a finished room so they can queue again.
func (reg *Registry) ReleaseUsers(roomID string) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	for uid, rid := range reg.users {
		if rid == roomID {
			delete(reg.users, uid)
		}
	}
}

func (reg *Registry) RoomOfPlayer(playerID string) (string, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	id, ok := reg.players[playerID]
	return id, ok
}

func (reg *Registry) RoomOfUser(userID string) (string, bool) {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	id, ok := reg.users[userID]
	return id, ok
}

// TryBeginCountdown claims the countdown slot of a room. It returns false
// when a countdown task already owns it. The token must be handed back to
// EndCountdown.
func (reg *Registry) TryBeginCountdown(roomID string) (uint64, bool) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if _, running := reg.countdowns[roomID]; running {
		return 0, false
	}
	if _, exists := reg.rooms[roomID]; !exists {
		return 0, false
	}
	reg.nextToken++
	reg.countdowns[roomID] = reg.nextToken
	return reg.nextToken, true
}

// EndCountdown releases the slot if it is still held with the given token.
func (reg *Registry) EndCountdown(roomID string, token uint64) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if reg.countdowns[roomID] == token {
		delete(reg.countdowns, roomID)
	}
}

func (reg *Registry) CountdownActive(roomID string) bool {
	reg.mu.RLock()
	defer reg.mu.RUnlock()
	_, ok := reg.countdowns[roomID]
	return ok
}

// Close cancels every room task and waits for them to return.
func (reg *Registry) Close() {
	reg.cancel()
	for _, room := range reg.Rooms() {
		room.tasks.Wait()
	}
}
