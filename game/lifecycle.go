package game

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/ardacey/Lexo/shared/logger"
)

// countdownEligible expects r.mu held.
func (r *Room) countdownEligible() bool {
	active := len(r.activePlayers())
	if r.mode == ModeBattleRoyale {
		return active >= r.minPlayers
	}
	return active == 2
}

// maybeStartCountdown moves a waiting room into COUNTDOWN when it has
// enough competitors and spawns the countdown task. Concurrent callers
// race on the registry guard; at most one task runs per room.
func (s *Service) maybeStartCountdown(room *Room) bool {
	room.mu.Lock()
	eligible := room.status == StatusWaiting && room.countdownEligible()
	room.mu.Unlock()
	if !eligible {
		return false
	}

	token, claimed := s.registry.TryBeginCountdown(room.id)
	if !claimed {
		return false
	}

	room.mu.Lock()
	if room.status != StatusWaiting || !room.countdownEligible() {
		room.mu.Unlock()
		s.registry.EndCountdown(room.id, token)
		return false
	}
	room.status = StatusCountdown
	room.countdownStartTime = s.clock.Now()
	first := s.countdownMessageLocked(room, room.countdownDuration)
	room.mu.Unlock()

	logger.Infof("[Room %s] countdown started", room.id)
	s.broadcaster.Broadcast(room.id, first)
	room.tasks.Go("countdown", func(ctx context.Context) {
		s.runCountdown(ctx, room, token)
	})
	return true
}

func (s *Service) countdownMessageLocked(room *Room, remaining time.Duration) any {
	if room.mode == ModeBattleRoyale {
		return MakeMessageBattleRoyaleCountdown(seconds(remaining), len(room.activePlayers()), room.minPlayers, leaderboardLocked(room))
	}
	return MakeMessageCountdown(seconds(remaining))
}

func (s *Service) runCountdown(ctx context.Context, room *Room, token uint64) {
	defer func() {
		s.registry.EndCountdown(room.id, token)
		// a join may have raced with the release of the guard
		if ctx.Err() == nil {
			s.maybeStartCountdown(room)
		}
	}()

	ticker := s.clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if s.countdownTick(room) {
				return
			}
		}
	}
}

// countdownTick advances the countdown by one step and reports whether the
// countdown is over, either because the game started or it was stopped.
func (s *Service) countdownTick(room *Room) bool {
	room.mu.Lock()
	if room.status != StatusCountdown {
		room.mu.Unlock()
		return true
	}
	if room.mode == ModeBattleRoyale && len(room.activePlayers()) < room.minPlayers {
		room.mu.Unlock()
		s.stopCountdown(room)
		return true
	}
	remaining := room.countdownDuration - s.clock.Since(room.countdownStartTime)
	if remaining <= 0 {
		room.mu.Unlock()
		s.startGame(room)
		return true
	}
	msg := s.countdownMessageLocked(room, remaining)
	room.mu.Unlock()

	s.broadcaster.Broadcast(room.id, msg)
	return false
}

// revertCountdownLocked is the compare-and-set behind a stopped battle
// royale countdown. Expects r.mu held.
func revertCountdownLocked(room *Room) bool {
	if room.status != StatusCountdown || room.mode != ModeBattleRoyale {
		return false
	}
	room.status = StatusWaiting
	room.countdownStartTime = time.Time{}
	return true
}

// stopCountdown reverts a battle royale countdown to WAITING. Only the
// caller that flips the status broadcasts, so the event goes out once.
func (s *Service) stopCountdown(room *Room) bool {
	room.mu.Lock()
	stopped := revertCountdownLocked(room)
	room.mu.Unlock()
	if !stopped {
		return false
	}

	logger.Infof("[Room %s] countdown stopped, not enough players", room.id)
	s.broadcaster.Broadcast(room.id, MakeMessageCountdownStopped(StatusWaiting))
	return true
}

func (s *Service) startGame(room *Room) bool {
	room.mu.Lock()
	if room.status != StatusCountdown || !room.countdownEligible() {
		room.mu.Unlock()
		return false
	}
	now := s.clock.Now()
	room.startMatch(s.letters.Pool(room.poolSize), now)
	gameCtx, cancel := context.WithCancel(room.tasks.Context())
	room.gameCancel = cancel

	rs := room.snapshot()
	var leaderboard []LeaderboardEntry
	var info *EliminationInfo
	if room.mode == ModeBattleRoyale {
		leaderboard = leaderboardLocked(room)
		next := nextEliminationInfoLocked(room, 0)
		info = &next
	}
	duration := room.totalGameTime
	room.mu.Unlock()

	logger.Infof("[Room %s] game started with %d players", room.id, len(rs.Competitors()))
	s.broadcaster.Broadcast(room.id, MakeMessageStartGame(rs, now.Add(duration), leaderboard, info))

	if room.mode == ModeBattleRoyale {
		room.tasks.GoWithin(gameCtx, "elimination", func(ctx context.Context) {
			s.runEliminationLoop(ctx, room)
		})
	} else {
		room.tasks.GoWithin(gameCtx, "game-timer", func(ctx context.Context) {
			s.runGameTimer(ctx, room, duration)
		})
	}
	return true
}

func (s *Service) runGameTimer(ctx context.Context, room *Room, duration time.Duration) {
	select {
	case <-ctx.Done():
	case <-s.clock.After(duration):
		_ = s.finish(room, ReasonTimeUp, "game timer")
	}
}

// finish ends the game from a timer or a tick. Losing the race to another
// finalizer is expected; any other failure is logged and returned.
func (s *Service) finish(room *Room, reason EndReason, source string) error {
	_, _, err := s.endGame(room, reason, "")
	if err == nil || errors.Is(err, ErrGameAlreadyEnded) {
		return nil
	}
	logger.Warningf("[Room %s] %s could not end the game: %v", room.id, source, err)
	return err
}

// EndGame finishes the match of a room. Only the first call has effects;
// later calls get the stored result together with ErrGameAlreadyEnded.
func (s *Service) EndGame(ctx context.Context, roomID string) (RoomState, GameResult, error) {
	room, ok := s.registry.Room(roomID)
	if !ok {
		return RoomState{}, GameResult{}, ErrRoomNotFound
	}
	return s.endGame(room, ReasonTimeUp, "")
}

func (s *Service) endGame(room *Room, reason EndReason, winnerID string) (RoomState, GameResult, error) {
	room.mu.Lock()
	if room.finished {
		rs, result := room.snapshot(), room.result
		room.mu.Unlock()
		return rs, result, ErrGameAlreadyEnded
	}
	if room.status != StatusInProgress {
		rs := room.snapshot()
		room.mu.Unlock()
		return rs, GameResult{}, ErrGameNotInProgress
	}

	// flip first so nothing below can leave the room half finished
	room.finished = true
	room.status = StatusFinished
	room.finishedAt = s.clock.Now()
	if room.gameCancel != nil {
		room.gameCancel()
	}
	for id, cancel := range room.graceCancel {
		cancel()
		delete(room.graceCancel, id)
	}

	result, winners := computeResultLocked(room, reason, winnerID)
	room.result = result
	records := buildRecordsLocked(room, result, winners)
	summary := GameSummary{
		RoomID:    room.id,
		Mode:      room.mode,
		StartedAt: room.gameStartTime,
		EndedAt:   room.finishedAt,
		Result:    result,
	}
	rs := room.snapshot()
	room.mu.Unlock()

	logger.Infof("[Room %s] game over (%s), winners %v", room.id, reason, result.WinnerData.Usernames)
	s.registry.ReleaseUsers(room.id)
	s.broadcaster.Broadcast(room.id, MakeMessageGameOver(room.mode, result))
	s.recordAsync(room.id, records, summary)
	s.scheduleDeletion(room, s.settings.cooldown(room.mode))
	return rs, result, nil
}

// abortCountdownLocked ends a classic room whose countdown lost a player.
// No match was played, so no stats are written. Expects r.mu held.
func abortCountdownLocked(room *Room, now time.Time) GameResult {
	room.status = StatusFinished
	room.finished = true
	room.aborted = true
	room.finishedAt = now

	result := GameResult{
		Scores:     room.scores(),
		WinnerData: WinnerData{Usernames: []string{}},
		Reason:     ReasonWalkover,
	}
	for _, p := range room.competitors() {
		result.WinnerData.Usernames = append(result.WinnerData.Usernames, p.username)
	}
	room.result = result
	return result
}

// rankedLocked orders competitors the way the final standings are shown:
// active players by score, then eliminated ones, most recent first.
func rankedLocked(room *Room) []*Player {
	active := room.activePlayers()
	slices.SortStableFunc(active, func(a, b *Player) int {
		if a.score != b.score {
			return b.score - a.score
		}
		return a.joinOrder - b.joinOrder
	})

	var eliminated []*Player
	for _, p := range room.competitors() {
		if p.isEliminated {
			eliminated = append(eliminated, p)
		}
	}
	slices.SortStableFunc(eliminated, func(a, b *Player) int {
		return b.eliminationTime.Compare(a.eliminationTime)
	})
	return append(active, eliminated...)
}

func computeResultLocked(room *Room, reason EndReason, winnerID string) (GameResult, map[string]bool) {
	result := GameResult{
		Scores:     room.scores(),
		WinnerData: WinnerData{Usernames: []string{}},
		Reason:     reason,
	}
	if room.highestWord != nil {
		hw := *room.highestWord
		result.HighestScoringWord = &hw
	}
	if room.mode == ModeBattleRoyale {
		result.Leaderboard = leaderboardLocked(room)
	}

	winners := make(map[string]bool)
	if w := room.findPlayer(winnerID); w != nil {
		winners[w.id] = true
		result.WinnerData = WinnerData{Usernames: []string{w.username}, Score: w.score}
		return result, winners
	}

	ranked := rankedLocked(room)
	if len(ranked) == 0 {
		return result, winners
	}
	top := ranked[0].score
	result.WinnerData.Score = top
	for _, p := range ranked {
		if p.isEliminated || p.score != top {
			break
		}
		winners[p.id] = true
		result.WinnerData.Usernames = append(result.WinnerData.Usernames, p.username)
	}
	result.IsTie = len(winners) > 1
	return result, winners
}

func buildRecordsLocked(room *Room, result GameResult, winners map[string]bool) []GameRecord {
	ranked := rankedLocked(room)
	split := slices.IndexFunc(ranked, func(p *Player) bool { return p.isEliminated })
	if split < 0 {
		split = len(ranked)
	}
	active, eliminated := ranked[:split:split], ranked[split:]

	// eliminated players who left keep their place by elimination time,
	// the others rank last, latest departure first
	var quit []*Player
	for i := len(room.departed) - 1; i >= 0; i-- {
		p := room.departed[i]
		if p.isEliminated {
			eliminated = append(eliminated, p)
		} else {
			quit = append(quit, p)
		}
	}
	slices.SortStableFunc(eliminated, func(a, b *Player) int {
		return b.eliminationTime.Compare(a.eliminationTime)
	})
	ranked = slices.Concat(active, eliminated, quit)

	// a walkover winner comes first whatever the scores
	slices.SortStableFunc(ranked, func(a, b *Player) int {
		switch {
		case winners[a.id] == winners[b.id]:
			return 0
		case winners[a.id]:
			return -1
		}
		return 1
	})

	records := make([]GameRecord, 0, len(ranked))
	for i, p := range ranked {
		if p.userID == "" {
			continue
		}
		outcome := OutcomeLoss
		if winners[p.id] {
			outcome = OutcomeWin
			if result.IsTie {
				outcome = OutcomeDraw
			}
		}
		records = append(records, GameRecord{
			UserID:        p.userID,
			RoomID:        room.id,
			Mode:          room.mode,
			Result:        outcome,
			Score:         p.score,
			WordsPlayed:   len(p.words),
			StartedAt:     room.gameStartTime,
			EndedAt:       room.finishedAt,
			FinalPosition: i + 1,
			TotalPlayers:  len(ranked),
		})
	}
	return records
}

// recordAsync writes stats and publishes the summary off the hot path.
func (s *Service) recordAsync(roomID string, records []GameRecord, summary GameSummary) {
	s.background.Go(func() error {
		ctx, cancel := context.WithTimeout(s.bgCtx, recordTimeout)
		defer cancel()
		for _, record := range records {
			if err := s.recorder.RecordGameResult(ctx, record); err != nil {
				logger.Criticalf("[Room %s] failed to record result of user %s: %v", roomID, record.UserID, err)
			}
		}
		if err := s.publisher.PublishGameFinished(ctx, summary); err != nil {
			logger.Warningf("[Room %s] failed to publish game summary: %v", roomID, err)
		}
		return nil
	})
}

func (s *Service) scheduleDeletion(room *Room, after time.Duration) {
	room.tasks.Go("deferred-deletion", func(ctx context.Context) {
		select {
		case <-ctx.Done():
		case <-s.clock.After(after):
			s.removeRoom(room.id, "room-closed")
		}
	})
}
