package game

import (
	"context"
	"slices"
)

// ProcessWord validates and applies a submission. The whole
// validate-then-mutate sequence runs under the room lock so two players
// cannot consume the same letters or score the same word.
//
// Failures are returned to the caller only; on success the other players
// are told about the word.
func (s *Service) ProcessWord(ctx context.Context, roomID, playerID, word string) (WordResult, error) {
	room, ok := s.registry.Room(roomID)
	if !ok {
		return WordResult{}, ErrRoomNotFound
	}
	normalized := NormalizeWord(word)

	room.mu.Lock()
	p := room.findPlayer(playerID)
	if p == nil {
		room.mu.Unlock()
		return WordResult{}, ErrPlayerNotFound
	}
	if err := submissionAllowedLocked(room, p); err != nil {
		room.mu.Unlock()
		return WordResult{}, err
	}
	if err := validateWord(normalized, room.minWordLength, room.usedWords, room.letterPool, s.dict); err != nil {
		room.mu.Unlock()
		return WordResult{}, err
	}

	letters := splitLetters(normalized)
	remaining := removeLetters(room.letterPool, letters)
	room.letterPool = append(remaining, s.letters.Replenish(letters, remaining)...)
	room.markUsed(normalized)

	score := ScoreWord(normalized)
	p.score += score
	p.words = append(p.words, normalized)
	if room.highestWord == nil || score > room.highestWord.Score {
		room.highestWord = &ScoredWord{Word: normalized, Score: score, Username: p.username}
	}

	result := WordResult{
		Word:          normalized,
		Score:         score,
		TotalScore:    p.score,
		NewPool:       slices.Clone(room.letterPool),
		CurrentScores: room.scores(),
	}
	username := p.username
	mode := room.mode
	var leaderboard []LeaderboardEntry
	if mode == ModeBattleRoyale {
		leaderboard = leaderboardLocked(room)
	}
	room.mu.Unlock()

	if mode == ModeBattleRoyale {
		s.broadcaster.Broadcast(roomID, MakeMessagePlayerWordUpdate(username, result), playerID)
		s.broadcaster.Broadcast(roomID, MakeMessageLeaderboardUpdate(leaderboard))
	} else {
		s.broadcaster.Broadcast(roomID, MakeMessageOpponentWord(username, result), playerID)
	}
	return result, nil
}

func submissionAllowedLocked(room *Room, p *Player) error {
	switch {
	case room.status == StatusFinished:
		return ErrGameAlreadyEnded
	case room.status != StatusInProgress:
		return ErrGameNotInProgress
	case p.isViewer:
		return ErrViewerCannotSubmit
	case p.isEliminated:
		return ErrPlayerEliminated
	}
	return nil
}
