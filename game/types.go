package game

import "time"

type RoomStatus string

const (
	StatusWaiting    RoomStatus = "waiting"
	StatusCountdown  RoomStatus = "countdown"
	StatusInProgress RoomStatus = "in_progress"
	StatusFinished   RoomStatus = "finished"
)

type GameMode string

const (
	ModeClassic      GameMode = "classic"
	ModeBattleRoyale GameMode = "battle_royale"
)

// ParseGameMode accepts the wire names of the modes. An empty string is classic.
func ParseGameMode(s string) (GameMode, bool) {
	switch GameMode(s) {
	case ModeClassic, "":
		return ModeClassic, true
	case ModeBattleRoyale:
		return ModeBattleRoyale, true
	}
	return "", false
}

type EndReason string

const (
	ReasonTimeUp       EndReason = "time_up"
	ReasonWalkover     EndReason = "walkover"
	ReasonLastSurvivor EndReason = "last_survivor"
)

type PlayerState struct {
	ID              string     `json:"id"`
	Username        string     `json:"username"`
	UserID          string     `json:"userId,omitempty"`
	RoomID          string     `json:"roomId"`
	Score           int        `json:"score"`
	Words           []string   `json:"words"`
	IsViewer        bool       `json:"isViewer"`
	IsEliminated    bool       `json:"isEliminated"`
	EliminationTime *time.Time `json:"eliminationTime,omitempty"`
	Connected       bool       `json:"connected"`
	JoinOrder       int        `json:"-"`
}

type RoomState struct {
	ID                    string        `json:"id"`
	Name                  string        `json:"name"`
	Status                RoomStatus    `json:"status"`
	Mode                  GameMode      `json:"gameMode"`
	LetterPool            []string      `json:"letterPool"`
	UsedWords             []string      `json:"usedWords"`
	MaxPlayers            int           `json:"maxPlayers"`
	MinPlayers            int           `json:"minPlayers"`
	Duration              int           `json:"duration"`
	EliminationInterval   int           `json:"eliminationInterval,omitempty"`
	PlayersPerElimination int           `json:"playersPerElimination,omitempty"`
	GameStartTime         time.Time     `json:"gameStartTime,omitzero"`
	CountdownStartTime    time.Time     `json:"countdownStartTime,omitzero"`
	CreatedAt             time.Time     `json:"createdAt"`
	Players               []PlayerState `json:"players"`
}

// Competitors returns the non-viewer players of the snapshot.
func (rs RoomState) Competitors() []PlayerState {
	out := make([]PlayerState, 0, len(rs.Players))
	for _, p := range rs.Players {
		if !p.IsViewer {
			out = append(out, p)
		}
	}
	return out
}

func (rs RoomState) Player(id string) (PlayerState, bool) {
	for _, p := range rs.Players {
		if p.ID == id {
			return p, true
		}
	}
	return PlayerState{}, false
}

type WordResult struct {
	Word          string         `json:"word"`
	Score         int            `json:"score"`
	TotalScore    int            `json:"totalScore"`
	NewPool       []string       `json:"newPool"`
	CurrentScores map[string]int `json:"currentScores"`
}

type WinnerData struct {
	Usernames []string `json:"usernames"`
	Score     int      `json:"score"`
}

type ScoredWord struct {
	Word     string `json:"word"`
	Score    int    `json:"score"`
	Username string `json:"username"`
}

type GameResult struct {
	Scores             map[string]int     `json:"scores"`
	WinnerData         WinnerData         `json:"winnerData"`
	IsTie              bool               `json:"isTie"`
	HighestScoringWord *ScoredWord        `json:"highestScoringWord,omitempty"`
	Reason             EndReason          `json:"reason"`
	Leaderboard        []LeaderboardEntry `json:"leaderboard,omitempty"`
}

type LeaderboardEntry struct {
	Username        string     `json:"username"`
	Score           int        `json:"score"`
	IsEliminated    bool       `json:"isEliminated"`
	IsActive        bool       `json:"isActive"`
	Rank            int        `json:"rank"`
	EliminationTime *time.Time `json:"eliminationTime,omitempty"`
}

type EliminationInfo struct {
	NextEliminationTime    int      `json:"nextEliminationTime"`
	NextEliminationPlayer  string   `json:"nextEliminationPlayer,omitempty"`
	NextEliminationPlayers []string `json:"nextEliminationPlayers"`
	PlayersPerElimination  int      `json:"playersPerElimination"`
}

// DisconnectOutcome describes what a disconnect did to the room.
// RoomRemoved is set when the room no longer exists afterwards, in which
// case Room holds the last snapshot taken before removal.
type DisconnectOutcome struct {
	Room             RoomState
	Player           PlayerState
	RoomRemoved      bool
	Temporary        bool
	Walkover         bool
	CountdownStopped bool
}
