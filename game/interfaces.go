package game

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type GameOutcome string

const (
	OutcomeWin  GameOutcome = "win"
	OutcomeLoss GameOutcome = "loss"
	OutcomeDraw GameOutcome = "draw"
)

// GameRecord is one player's result in a finished game.
type GameRecord struct {
	UserID        string
	RoomID        string
	Mode          GameMode
	Result        GameOutcome
	Score         int
	WordsPlayed   int
	StartedAt     time.Time
	EndedAt       time.Time
	FinalPosition int
	TotalPlayers  int
}

type StatsRecorder interface {
	RecordGameResult(ctx context.Context, record GameRecord) error
}

// GameSummary is the room-level view of a finished game.
type GameSummary struct {
	RoomID    string     `json:"roomId"`
	Mode      GameMode   `json:"gameMode"`
	StartedAt time.Time  `json:"startedAt"`
	EndedAt   time.Time  `json:"endedAt"`
	Result    GameResult `json:"result"`
}

type EventPublisher interface {
	PublishGameFinished(ctx context.Context, summary GameSummary) error
}

type UniqueIdGenerator interface {
	Generate() string
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

func NewUUIDGenerator() UniqueIdGenerator {
	return uuidGenerator{}
}

type nopRecorder struct{}

func (nopRecorder) RecordGameResult(context.Context, GameRecord) error { return nil }

type nopPublisher struct{}

func (nopPublisher) PublishGameFinished(context.Context, GameSummary) error { return nil }
