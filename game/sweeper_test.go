package game

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepRooms(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	s := env.service

	running, _ := env.seedRoom(t, ModeClassic, StatusInProgress, "a", "b")
	waiting, wp := env.seedRoom(t, ModeClassic, StatusWaiting, "c")
	empty, _ := env.seedRoom(t, ModeClassic, StatusWaiting)
	finished, _ := env.seedRoom(t, ModeClassic, StatusFinished, "d", "e")
	finishedBR, _ := env.seedRoom(t, ModeBattleRoyale, StatusFinished, "f", "g", "h")
	for _, room := range []*Room{finished, finishedBR} {
		room.mu.Lock()
		room.finished = true
		room.finishedAt = s.clock.Now()
		room.mu.Unlock()
	}
	conn := env.connect(t, waiting.id, wp[0].id)

	exists := func(room *Room) bool {
		_, ok := s.GetRoom(room.id)
		return ok
	}

	env.clock.Advance(61 * time.Second)
	assert.Equal(t, 2, s.SweepRooms())
	assert.False(t, exists(empty))
	assert.False(t, exists(finished))
	assert.True(t, exists(finishedBR), "battle royale rooms cool down longer")
	assert.True(t, exists(waiting))
	assert.True(t, exists(running))

	env.clock.Advance(30 * time.Minute)
	assert.Equal(t, 1, s.SweepRooms(), "the finished battle royale room is past its cooldown")
	assert.True(t, exists(waiting), "someone is still connected")

	s.Broadcaster().Disconnect(waiting.id, wp[0].id)
	assert.Equal(t, 1, s.SweepRooms())
	assert.False(t, exists(waiting))
	assert.True(t, exists(running))
	closed, _ := conn.isClosed()
	assert.False(t, closed, "the socket was already unregistered")
}

func TestSweeperMatchesQueue(t *testing.T) {
	t.Parallel()
	settings := DefaultSettings()
	settings.MatchInterval = time.Second
	env := newTestEnv(t, WithSettings(settings))
	mm := NewMatchmaker(env.service, &sequentialIds{prefix: "invite"}, env.service.Clock())

	sw, err := NewSweeper(env.service, mm)
	require.NoError(t, err)
	sw.Start()
	defer func() { assert.NoError(t, sw.Shutdown()) }()

	_, err = mm.Enqueue("user-a", "a")
	require.NoError(t, err)
	_, err = mm.Enqueue("user-b", "b")
	require.NoError(t, err)

	matched := func() bool {
		mm.mu.Lock()
		defer mm.mu.Unlock()
		_, ok := mm.matches["user-b"]
		return ok
	}
	require.Eventually(t, func() bool {
		env.clock.Advance(time.Second)
		return matched()
	}, 2*time.Second, 5*time.Millisecond)
	assert.Zero(t, mm.QueueLength())

	status := mm.Status("user-a")
	require.NotNil(t, status.Match)
	room, ok := env.service.GetRoom(status.Match.RoomID)
	require.True(t, ok)
	assert.Len(t, room.Players, 2)
}
