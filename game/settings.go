package game

import "time"

type Settings struct {
	ClassicPoolSize  int
	ClassicDuration  time.Duration
	ClassicCountdown time.Duration
	ClassicCooldown  time.Duration

	BattleRoyalePoolSize            int
	BattleRoyaleDuration            time.Duration
	BattleRoyaleCountdown           time.Duration
	BattleRoyaleCooldown            time.Duration
	BattleRoyaleMinPlayers          int
	BattleRoyaleMaxPlayers          int
	BattleRoyaleEliminationInterval time.Duration
	MinSurvivingPlayers             int

	MinWordLength int

	EmptyRoomCleanupDelay time.Duration
	MaxConnectionsPerRoom int
	SweepInterval         time.Duration
	StaleWaitingRoomAge   time.Duration
	MatchInterval         time.Duration

	PracticePoolSize    int
	PracticeDuration    time.Duration
	PracticeMaxDuration time.Duration
	PracticeRetention   time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		ClassicPoolSize:  16,
		ClassicDuration:  60 * time.Second,
		ClassicCountdown: 5 * time.Second,
		ClassicCooldown:  60 * time.Second,

		BattleRoyalePoolSize:            50,
		BattleRoyaleDuration:            240 * time.Second,
		BattleRoyaleCountdown:           60 * time.Second,
		BattleRoyaleCooldown:            300 * time.Second,
		BattleRoyaleMinPlayers:          3,
		BattleRoyaleMaxPlayers:          16,
		BattleRoyaleEliminationInterval: 30 * time.Second,
		MinSurvivingPlayers:             1,

		MinWordLength: 2,

		EmptyRoomCleanupDelay: 30 * time.Second,
		MaxConnectionsPerRoom: 64,
		SweepInterval:         time.Minute,
		StaleWaitingRoomAge:   30 * time.Minute,
		MatchInterval:         time.Second,

		PracticePoolSize:    12,
		PracticeDuration:    5 * time.Minute,
		PracticeMaxDuration: 30 * time.Minute,
		PracticeRetention:   10 * time.Minute,
	}
}

func (s Settings) poolSize(mode GameMode) int {
	if mode == ModeBattleRoyale {
		return s.BattleRoyalePoolSize
	}
	return s.ClassicPoolSize
}

func (s Settings) cooldown(mode GameMode) time.Duration {
	if mode == ModeBattleRoyale {
		return s.BattleRoyaleCooldown
	}
	return s.ClassicCooldown
}
