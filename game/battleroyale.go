package game

import (
	"context"
	"slices"
	"time"

	"github.com/ardacey/Lexo/shared/logger"
)

// PlayersPerElimination spreads the eliminations needed to get from n
// players down to minSurviving over the ticks that fit in the match.
func PlayersPerElimination(n int, duration, interval time.Duration, minSurviving int) int {
	toEliminate := n - minSurviving
	if toEliminate <= 0 || interval <= 0 {
		return 0
	}
	maxTicks := int(duration / interval)
	if maxTicks <= 0 || toEliminate <= maxTicks {
		return 1
	}
	return (toEliminate + maxTicks - 1) / maxTicks
}

// leaderboardLocked ranks active players by score, then eliminated players
// by elimination time, most recent first.
func leaderboardLocked(room *Room) []LeaderboardEntry {
	ranked := rankedLocked(room)
	entries := make([]LeaderboardEntry, 0, len(ranked))
	for i, p := range ranked {
		entry := LeaderboardEntry{
			Username:     p.username,
			Score:        p.score,
			IsEliminated: p.isEliminated,
			IsActive:     p.competing(),
			Rank:         i + 1,
		}
		if p.isEliminated {
			t := p.eliminationTime
			entry.EliminationTime = &t
		}
		entries = append(entries, entry)
	}
	return entries
}

// eliminationCandidatesLocked returns the players that would go next. Ties
// on score go to the player with fewer words, then to the earliest joined.
func eliminationCandidatesLocked(room *Room) []*Player {
	active := room.activePlayers()
	count := min(room.playersPerElimination, len(active)-room.minSurviving)
	if count <= 0 {
		return nil
	}
	slices.SortStableFunc(active, func(a, b *Player) int {
		if a.score != b.score {
			return a.score - b.score
		}
		if len(a.words) != len(b.words) {
			return len(a.words) - len(b.words)
		}
		return a.joinOrder - b.joinOrder
	})
	return active[:count]
}

func eliminateLocked(room *Room, now time.Time) []*Player {
	candidates := eliminationCandidatesLocked(room)
	for _, p := range candidates {
		p.eliminate(now)
	}
	room.eliminationsDone++
	return candidates
}

func nextEliminationInfoLocked(room *Room, elapsed time.Duration) EliminationInfo {
	info := EliminationInfo{
		NextEliminationPlayers: []string{},
		PlayersPerElimination:  room.playersPerElimination,
	}
	if room.eliminationInterval > 0 {
		untilNext := room.eliminationInterval - elapsed%room.eliminationInterval
		info.NextEliminationTime = seconds(untilNext)
	}
	for _, p := range eliminationCandidatesLocked(room) {
		info.NextEliminationPlayers = append(info.NextEliminationPlayers, p.username)
	}
	if len(info.NextEliminationPlayers) > 0 {
		info.NextEliminationPlayer = info.NextEliminationPlayers[0]
	}
	return info
}

func endConditionLocked(room *Room, now time.Time) (bool, EndReason) {
	if len(room.activePlayers()) <= room.minSurviving {
		return true, ReasonLastSurvivor
	}
	if now.Sub(room.gameStartTime) >= room.totalGameTime {
		return true, ReasonTimeUp
	}
	return false, ""
}

func (s *Service) runEliminationLoop(ctx context.Context, room *Room) {
	ticker := s.clock.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if s.eliminationTick(room) {
				return
			}
		}
	}
}

// eliminationTick runs one second of the battle royale clock. A due
// elimination is applied before the end condition is checked, so the last
// tick of the match still eliminates. It reports whether the loop is done.
func (s *Service) eliminationTick(room *Room) bool {
	room.mu.Lock()
	if room.status != StatusInProgress {
		room.mu.Unlock()
		return true
	}
	now := s.clock.Now()
	elapsed := now.Sub(room.gameStartTime)

	var eliminated []string
	if room.eliminationInterval > 0 {
		maxTicks := int(room.totalGameTime / room.eliminationInterval)
		due := int(elapsed / room.eliminationInterval)
		if due > room.eliminationsDone && room.eliminationsDone < maxTicks {
			for _, p := range eliminateLocked(room, now) {
				eliminated = append(eliminated, p.username)
			}
		}
	}
	leaderboard := leaderboardLocked(room)
	over, reason := endConditionLocked(room, now)
	info := nextEliminationInfoLocked(room, elapsed)
	room.mu.Unlock()

	if len(eliminated) > 0 {
		logger.Infof("[Room %s] eliminated %v", room.id, eliminated)
		s.broadcaster.Broadcast(room.id, MakeMessagePlayersEliminated(eliminated, leaderboard))
		s.broadcaster.Broadcast(room.id, MakeMessageLeaderboardUpdate(leaderboard))
	}
	if over {
		_ = s.finish(room, reason, "elimination")
		return true
	}
	s.broadcaster.Broadcast(room.id, MakeMessageEliminationUpdate(info))
	return false
}

func (s *Service) battleRoyaleRoom(roomID string) (*Room, error) {
	room, ok := s.registry.Room(roomID)
	if !ok {
		return nil, ErrRoomNotFound
	}
	if room.mode != ModeBattleRoyale {
		return nil, ErrNotBattleRoyale
	}
	return room, nil
}

// StartBattleRoyaleCountdown starts the countdown if the room has enough
// players and no countdown is running yet.
func (s *Service) StartBattleRoyaleCountdown(roomID string) (bool, error) {
	room, err := s.battleRoyaleRoom(roomID)
	if err != nil {
		return false, err
	}
	return s.maybeStartCountdown(room), nil
}

func (s *Service) BattleRoyaleLeaderboard(roomID string) ([]LeaderboardEntry, error) {
	room, err := s.battleRoyaleRoom(roomID)
	if err != nil {
		return nil, err
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return leaderboardLocked(room), nil
}

// EliminateWorstPlayers applies one elimination round immediately.
func (s *Service) EliminateWorstPlayers(roomID string) ([]PlayerState, error) {
	room, err := s.battleRoyaleRoom(roomID)
	if err != nil {
		return nil, err
	}
	room.mu.Lock()
	if room.status != StatusInProgress {
		room.mu.Unlock()
		return nil, ErrGameNotInProgress
	}
	var out []PlayerState
	var names []string
	for _, p := range eliminateLocked(room, s.clock.Now()) {
		out = append(out, p.snapshot())
		names = append(names, p.username)
	}
	leaderboard := leaderboardLocked(room)
	room.mu.Unlock()

	if len(names) > 0 {
		s.broadcaster.Broadcast(roomID, MakeMessagePlayersEliminated(names, leaderboard))
		s.broadcaster.Broadcast(roomID, MakeMessageLeaderboardUpdate(leaderboard))
	}
	return out, nil
}

// CheckBattleRoyaleEndCondition reports whether the match should end: at
// most minSurviving players remain or the time is up.
func (s *Service) CheckBattleRoyaleEndCondition(roomID string) (bool, error) {
	room, err := s.battleRoyaleRoom(roomID)
	if err != nil {
		return false, err
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	if room.status != StatusInProgress {
		return false, ErrGameNotInProgress
	}
	over, _ := endConditionLocked(room, s.clock.Now())
	return over, nil
}

func (s *Service) NextEliminationInfo(roomID string, elapsed time.Duration) (EliminationInfo, error) {
	room, err := s.battleRoyaleRoom(roomID)
	if err != nil {
		return EliminationInfo{}, err
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	return nextEliminationInfoLocked(room, elapsed), nil
}
