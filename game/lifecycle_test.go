package game

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestEndGame(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Only First Call Has Effects", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		s := env.service
		room, players := env.seedRoom(t, ModeClassic, StatusInProgress, "ali", "veli")
		setPool(room, "e", "v", "a", "t")
		conn := env.connect(t, room.id, players[1].id)
		_, err := s.ProcessWord(ctx, room.id, players[0].id, "ev")
		require.NoError(t, err)

		rs, result, err := s.EndGame(ctx, room.id)
		require.NoError(t, err)
		assert.Equal(t, StatusFinished, rs.Status)
		assert.Equal(t, []string{"ali"}, result.WinnerData.Usernames)
		assert.Equal(t, 4, result.WinnerData.Score)
		assert.False(t, result.IsTie)
		assert.Equal(t, ReasonTimeUp, result.Reason)
		require.NotNil(t, result.HighestScoringWord)
		assert.Equal(t, "ev", result.HighestScoringWord.Word)

		_, again, err := s.EndGame(ctx, room.id)
		assert.ErrorIs(t, err, ErrGameAlreadyEnded)
		assert.Equal(t, result, again)
		assert.Equal(t, 1, conn.count(MsgGameOver))
		assert.False(t, s.IsBusy("user-ali"))

		s.Close()
		records := env.recorder.records()
		require.Len(t, records, 2)
		assert.Equal(t, "user-ali", records[0].UserID)
		assert.Equal(t, OutcomeWin, records[0].Result)
		assert.Equal(t, 1, records[0].FinalPosition)
		assert.Equal(t, 1, records[0].WordsPlayed)
		assert.Equal(t, "user-veli", records[1].UserID)
		assert.Equal(t, OutcomeLoss, records[1].Result)
		assert.Equal(t, 2, records[1].TotalPlayers)
		env.publisher.AssertNumberOfCalls(t, "PublishGameFinished", 1)
	})

	t.Run("Tie Is A Draw", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		room, _ := env.seedRoom(t, ModeClassic, StatusInProgress, "ali", "veli")

		_, result, err := env.service.EndGame(ctx, room.id)
		require.NoError(t, err)
		assert.True(t, result.IsTie)
		assert.ElementsMatch(t, []string{"ali", "veli"}, result.WinnerData.Usernames)

		env.service.Close()
		for _, r := range env.recorder.records() {
			assert.Equal(t, OutcomeDraw, r.Result)
		}
	})

	t.Run("Not Running", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		room, _ := env.seedRoom(t, ModeClassic, StatusWaiting, "ali")
		_, _, err := env.service.EndGame(ctx, room.id)
		assert.ErrorIs(t, err, ErrGameNotInProgress)
		_, _, err = env.service.EndGame(ctx, "missing")
		assert.ErrorIs(t, err, ErrRoomNotFound)
	})

	t.Run("Recorder Failure Does Not Block Publish", func(t *testing.T) {
		t.Parallel()
		recorder := &MockStatsRecorder{}
		recorder.On("RecordGameResult", mock.Anything, mock.Anything).Return(assert.AnError)
		env := newTestEnv(t, WithStatsRecorder(recorder))
		room, _ := env.seedRoom(t, ModeClassic, StatusInProgress, "ali", "veli")

		_, _, err := env.service.EndGame(ctx, room.id)
		require.NoError(t, err)
		env.service.Close()
		recorder.AssertNumberOfCalls(t, "RecordGameResult", 2)
		env.publisher.AssertNumberOfCalls(t, "PublishGameFinished", 1)
	})

	t.Run("Room Removed After Cooldown", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		s := env.service
		room, players := env.seedRoom(t, ModeClassic, StatusInProgress, "ali", "veli")
		conn := env.connect(t, room.id, players[0].id)
		_, _, err := s.EndGame(ctx, room.id)
		require.NoError(t, err)

		assert.Eventually(t, func() bool {
			env.clock.Advance(time.Second)
			_, ok := s.GetRoom(room.id)
			return !ok
		}, 2*time.Second, time.Millisecond)
		closed, reason := conn.isClosed()
		assert.True(t, closed)
		assert.Equal(t, "room-closed", reason)
	})
}

func TestClassicMatch(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv(t)
	s := env.service

	rs, ali, err := s.CreateRoom(ctx, "r", "ali", "user-ali", ModeClassic)
	require.NoError(t, err)
	aliConn := &fakeConn{}
	require.NoError(t, s.Connect(rs.ID, ali.ID, aliConn))
	_, veli, err := s.JoinRoom(ctx, rs.ID, "veli", "user-veli", false)
	require.NoError(t, err)

	assert.Equal(t, 1, aliConn.count(MsgPlayerJoined))
	assert.Equal(t, 1, aliConn.count(MsgCountdown))

	status := func() RoomStatus {
		state, ok := s.GetRoom(rs.ID)
		if !ok {
			return ""
		}
		return state.Status
	}
	require.Eventually(t, func() bool {
		env.clock.Advance(time.Second)
		return status() == StatusInProgress
	}, 2*time.Second, time.Millisecond)
	assert.Eventually(t, func() bool { return !s.Registry().CountdownActive(rs.ID) }, time.Second, time.Millisecond)

	room, _ := s.Registry().Room(rs.ID)
	setPool(room, "k", "i", "t", "a", "p", "e", "v")
	_, err = s.ProcessWord(ctx, rs.ID, veli.ID, "kitap")
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		env.clock.Advance(time.Second)
		return status() == StatusFinished
	}, 2*time.Second, time.Millisecond)

	require.Eventually(t, func() bool { return aliConn.count(MsgGameOver) == 1 }, time.Second, time.Millisecond)

	var over GameOverMessage
	aliConn.last(t, MsgGameOver, &over)
	assert.Equal(t, []string{"veli"}, over.WinnerData.Usernames)
	assert.Equal(t, 14, over.WinnerData.Score)
	assert.Equal(t, ReasonTimeUp, over.Reason)
	assert.Equal(t, 1, aliConn.count(MsgStartGame))
}

func TestCountdownLeave(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("Classic Aborts", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		s := env.service
		room, players := env.seedRoom(t, ModeClassic, StatusCountdown, "ali", "veli")
		conn := env.connect(t, room.id, players[0].id)

		out, err := s.HandleDisconnect(ctx, room.id, players[1].id)
		require.NoError(t, err)
		assert.True(t, out.CountdownStopped)
		assert.False(t, out.Temporary)
		assert.Equal(t, StatusFinished, out.Room.Status)
		assert.Equal(t, 1, conn.count(MsgPlayerLeft))
		assert.Equal(t, 1, conn.count(MsgGameOver))
		assert.False(t, s.IsBusy("user-ali"))

		_, _, err = s.EndGame(ctx, room.id)
		assert.ErrorIs(t, err, ErrGameAlreadyEnded)

		s.Close()
		env.recorder.AssertNotCalled(t, "RecordGameResult", mock.Anything, mock.Anything)
	})

	t.Run("Battle Royale Stops Once", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		s := env.service

		rs, a, err := s.CreateRoom(ctx, "arena", "a", "user-a", ModeBattleRoyale)
		require.NoError(t, err)
		_, b, err := s.JoinRoom(ctx, rs.ID, "b", "user-b", false)
		require.NoError(t, err)
		_, c, err := s.JoinRoom(ctx, rs.ID, "c", "user-c", false)
		require.NoError(t, err)
		state, _ := s.GetRoom(rs.ID)
		require.Equal(t, StatusCountdown, state.Status)

		aConn := env.connect(t, rs.ID, a.ID)
		env.connect(t, rs.ID, b.ID)

		out, err := s.HandleDisconnect(ctx, rs.ID, c.ID)
		require.NoError(t, err)
		assert.True(t, out.CountdownStopped)
		assert.Equal(t, StatusWaiting, out.Room.Status)

		room, _ := s.Registry().Room(rs.ID)
		assert.True(t, s.countdownTick(room), "tick after the stop ends the countdown")
		assert.False(t, s.stopCountdown(room))

		// the countdown task notices on its next tick and frees the slot
		assert.Eventually(t, func() bool {
			env.clock.Advance(time.Second)
			return !s.Registry().CountdownActive(rs.ID)
		}, 2*time.Second, time.Millisecond)
		assert.Equal(t, 1, aConn.count(MsgCountdownStopped))

		state, _ = s.GetRoom(rs.ID)
		assert.Equal(t, StatusWaiting, state.Status)
		assert.False(t, s.IsBusy("user-c"))
	})

	t.Run("Battle Royale Keeps Going Above Minimum", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		room, players := env.seedRoom(t, ModeBattleRoyale, StatusCountdown, "a", "b", "c", "d")

		out, err := env.service.HandleDisconnect(ctx, room.id, players[3].id)
		require.NoError(t, err)
		assert.False(t, out.CountdownStopped)
		assert.Equal(t, StatusCountdown, out.Room.Status)
	})
}

func TestStartGameNeedsCountdown(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	room, _ := env.seedRoom(t, ModeClassic, StatusWaiting, "ali", "veli")
	assert.False(t, env.service.startGame(room))

	countdown, _ := env.seedRoom(t, ModeClassic, StatusCountdown, "can", "ece")
	env.clock.Advance(5 * time.Second)
	assert.True(t, env.service.countdownTick(countdown))
	assert.Equal(t, StatusInProgress, countdown.State().Status)
	assert.Len(t, countdown.State().LetterPool, 16)
}

func TestFinish(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	s := env.service

	running, _ := env.seedRoom(t, ModeClassic, StatusInProgress, "ali", "veli")
	assert.NoError(t, s.finish(running, ReasonTimeUp, "game timer"))
	assert.NoError(t, s.finish(running, ReasonTimeUp, "game timer"), "a game already over is not a failure")
	assert.Equal(t, StatusFinished, running.State().Status)

	waiting, _ := env.seedRoom(t, ModeClassic, StatusWaiting, "can")
	assert.ErrorIs(t, s.finish(waiting, ReasonTimeUp, "game timer"), ErrGameNotInProgress)
}

func TestConcurrentFinalizers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	const racers = 8

	t.Run("Classic End And Grace Expiry", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		s := env.service
		room, players := env.seedRoom(t, ModeClassic, StatusInProgress, "ali", "veli")
		conn := env.connect(t, room.id, players[1].id)
		_, err := s.HandleDisconnect(ctx, room.id, players[0].id)
		require.NoError(t, err)

		var wg sync.WaitGroup
		for i := range racers {
			wg.Go(func() {
				if i%2 == 0 {
					s.EndGame(ctx, room.id)
				} else {
					s.graceExpired(room, players[0].id)
				}
			})
		}
		wg.Wait()

		assert.Equal(t, StatusFinished, room.State().Status)
		assert.Equal(t, 1, conn.count(MsgGameOver))
		s.Close()
		assert.Len(t, env.recorder.records(), 2)
		env.publisher.AssertNumberOfCalls(t, "PublishGameFinished", 1)
	})

	t.Run("Battle Royale End And Elimination Tick", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv(t)
		s := env.service
		room, players := env.seedRoom(t, ModeBattleRoyale, StatusInProgress, "a", "b", "c")
		conn := env.connect(t, room.id, players[0].id)
		setScores(room, players, []int{3, 2, 1}, []int{1, 1, 1})
		env.clock.Advance(240 * time.Second)

		var wg sync.WaitGroup
		for i := range racers {
			wg.Go(func() {
				if i%2 == 0 {
					s.EndGame(ctx, room.id)
				} else {
					s.eliminationTick(room)
				}
			})
		}
		wg.Wait()

		assert.Equal(t, StatusFinished, room.State().Status)
		assert.Equal(t, 1, conn.count(MsgBattleRoyaleGameOver))
		s.Close()
		assert.Len(t, env.recorder.records(), 3)
		env.publisher.AssertNumberOfCalls(t, "PublishGameFinished", 1)
	})
}
