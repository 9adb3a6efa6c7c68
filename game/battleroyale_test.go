package game

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlayersPerElimination(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name         string
		n            int
		duration     time.Duration
		interval     time.Duration
		minSurviving int
		want         int
	}{
		{"One Per Tick", 5, 120 * time.Second, 30 * time.Second, 1, 1},
		{"More Players Than Ticks", 10, 60 * time.Second, 30 * time.Second, 1, 5},
		{"Default Battle Royale", 16, 240 * time.Second, 30 * time.Second, 1, 2},
		{"Already At Minimum", 1, 240 * time.Second, 30 * time.Second, 1, 0},
		{"No Interval", 5, 240 * time.Second, 0, 1, 0},
		{"Interval Longer Than Match", 4, 20 * time.Second, 30 * time.Second, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, PlayersPerElimination(tt.n, tt.duration, tt.interval, tt.minSurviving))
		})
	}
}

// setScores gives each player a score and a number of words.
func setScores(room *Room, players []*Player, scores []int, words []int) {
	room.mu.Lock()
	defer room.mu.Unlock()
	for i, p := range players {
		p.score = scores[i]
		p.words = make([]string, words[i])
	}
}

func TestEliminationTick(t *testing.T) {
	t.Parallel()

	t.Run("Lowest Score Goes First", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		s := env.service
		room, players := env.seedRoom(t, ModeBattleRoyale, StatusInProgress, "a", "b", "c", "d", "e")
		conn := env.connect(t, room.id, players[0].id)
		require.Equal(t, 1, room.State().PlayersPerElimination)
		// b and c tie on score, c has fewer words
		setScores(room, players, []int{10, 3, 3, 5, 7}, []int{2, 1, 0, 1, 1})

		env.clock.Advance(29 * time.Second)
		assert.False(t, s.eliminationTick(room))
		assert.Zero(t, conn.count(MsgPlayersEliminated))

		var update EliminationUpdateMessage
		conn.last(t, MsgEliminationUpdate, &update)
		assert.Equal(t, 1, update.EliminationInfo.NextEliminationTime)
		assert.Equal(t, []string{"c"}, update.EliminationInfo.NextEliminationPlayers)

		env.clock.Advance(time.Second)
		assert.False(t, s.eliminationTick(room))
		var eliminated PlayersEliminatedMessage
		conn.last(t, MsgPlayersEliminated, &eliminated)
		assert.Equal(t, []string{"c"}, eliminated.EliminatedPlayers)

		// a second tick in the same interval does nothing
		assert.False(t, s.eliminationTick(room))
		assert.Equal(t, 1, conn.count(MsgPlayersEliminated))

		leaderboard, err := s.BattleRoyaleLeaderboard(room.id)
		require.NoError(t, err)
		want := []LeaderboardEntry{
			{Username: "a", Score: 10, IsActive: true, Rank: 1},
			{Username: "e", Score: 7, IsActive: true, Rank: 2},
			{Username: "d", Score: 5, IsActive: true, Rank: 3},
			{Username: "b", Score: 3, IsActive: true, Rank: 4},
			{Username: "c", Score: 3, IsEliminated: true, Rank: 5},
		}
		if diff := cmp.Diff(want, leaderboard, cmpopts.IgnoreFields(LeaderboardEntry{}, "EliminationTime")); diff != "" {
			t.Errorf("leaderboard mismatch (-want +got):\n%s", diff)
		}
		require.NotNil(t, leaderboard[4].EliminationTime)

		env.clock.Advance(30 * time.Second)
		assert.False(t, s.eliminationTick(room))
		conn.last(t, MsgPlayersEliminated, &eliminated)
		assert.Equal(t, []string{"b"}, eliminated.EliminatedPlayers)
	})

	t.Run("Last Survivor Ends Match", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		s := env.service
		room, players := env.seedRoom(t, ModeBattleRoyale, StatusInProgress, "a", "b", "c")
		conn := env.connect(t, room.id, players[0].id)
		setScores(room, players, []int{9, 4, 1}, []int{1, 1, 1})

		env.clock.Advance(30 * time.Second)
		assert.False(t, s.eliminationTick(room))
		env.clock.Advance(30 * time.Second)
		assert.True(t, s.eliminationTick(room))

		var over GameOverMessage
		conn.last(t, MsgBattleRoyaleGameOver, &over)
		assert.Equal(t, ReasonLastSurvivor, over.Reason)
		assert.Equal(t, []string{"a"}, over.WinnerData.Usernames)
		require.Len(t, over.Leaderboard, 3)
		assert.Equal(t, "b", over.Leaderboard[1].Username, "latest eliminated ranks first among the eliminated")
		assert.Equal(t, "c", over.Leaderboard[2].Username)

		s.Close()
		records := env.recorder.records()
		require.Len(t, records, 3)
		assert.Equal(t, []int{1, 2, 3}, []int{records[0].FinalPosition, records[1].FinalPosition, records[2].FinalPosition})
	})

	t.Run("Final Tick Eliminates Before Time Up", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		s := env.service
		room, players := env.seedRoom(t, ModeBattleRoyale, StatusInProgress, "a", "b", "c", "d", "e")
		setScores(room, players, []int{5, 4, 3, 2, 1}, []int{1, 1, 1, 1, 1})

		env.clock.Advance(240 * time.Second)
		assert.True(t, s.eliminationTick(room))

		state := room.State()
		assert.Equal(t, StatusFinished, state.Status)
		e, _ := state.Player(players[4].id)
		assert.True(t, e.IsEliminated)

		_, result, err := s.EndGame(context.Background(), room.id)
		assert.ErrorIs(t, err, ErrGameAlreadyEnded)
		assert.Equal(t, ReasonTimeUp, result.Reason)
		assert.Equal(t, []string{"a"}, result.WinnerData.Usernames)
	})

	t.Run("Stopped Room", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		room, _ := env.seedRoom(t, ModeBattleRoyale, StatusWaiting, "a")
		assert.True(t, env.service.eliminationTick(room))
	})
}

func TestBattleRoyaleOperations(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	s := env.service
	classic, _ := env.seedRoom(t, ModeClassic, StatusInProgress, "x", "y")

	_, err := s.BattleRoyaleLeaderboard(classic.id)
	assert.ErrorIs(t, err, ErrNotBattleRoyale)
	_, err = s.StartBattleRoyaleCountdown(classic.id)
	assert.ErrorIs(t, err, ErrNotBattleRoyale)
	_, err = s.EliminateWorstPlayers("missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)

	waiting, _ := env.seedRoom(t, ModeBattleRoyale, StatusWaiting, "a", "b")
	started, err := s.StartBattleRoyaleCountdown(waiting.id)
	require.NoError(t, err)
	assert.False(t, started, "two players are below the minimum")
	_, err = s.EliminateWorstPlayers(waiting.id)
	assert.ErrorIs(t, err, ErrGameNotInProgress)
	_, err = s.CheckBattleRoyaleEndCondition(waiting.id)
	assert.ErrorIs(t, err, ErrGameNotInProgress)

	room, players := env.seedRoom(t, ModeBattleRoyale, StatusInProgress, "c", "d", "e", "f")
	setScores(room, players, []int{1, 8, 8, 2}, []int{1, 2, 1, 1})

	over, err := s.CheckBattleRoyaleEndCondition(room.id)
	require.NoError(t, err)
	assert.False(t, over)

	// active means still in the game, not holding a socket
	room.mu.Lock()
	players[0].connected = false
	room.mu.Unlock()
	leaderboard, err := s.BattleRoyaleLeaderboard(room.id)
	require.NoError(t, err)
	require.Len(t, leaderboard, 4)
	assert.Equal(t, "c", leaderboard[3].Username)
	assert.True(t, leaderboard[3].IsActive)

	info, err := s.NextEliminationInfo(room.id, 10*time.Second)
	require.NoError(t, err)
	assert.Equal(t, 20, info.NextEliminationTime)
	assert.Equal(t, "c", info.NextEliminationPlayer)
	assert.Equal(t, 1, info.PlayersPerElimination)

	out, err := s.EliminateWorstPlayers(room.id)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "c", out[0].Username)
	assert.True(t, out[0].IsEliminated)

	env.clock.Advance(240 * time.Second)
	over, err = s.CheckBattleRoyaleEndCondition(room.id)
	require.NoError(t, err)
	assert.True(t, over)

	enough, _ := env.seedRoom(t, ModeBattleRoyale, StatusWaiting, "g", "h", "i")
	started, err = s.StartBattleRoyaleCountdown(enough.id)
	require.NoError(t, err)
	assert.True(t, started)
	started, err = s.StartBattleRoyaleCountdown(enough.id)
	require.NoError(t, err)
	assert.False(t, started, "a countdown is already running")
}
