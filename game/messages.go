package game

import "time"

const (
	MsgRoomState             = "room_state"
	MsgPlayerJoined          = "player_joined"
	MsgPlayerLeft            = "player_left"
	MsgPlayerDisconnected    = "player_disconnected"
	MsgPlayerReconnected     = "player_reconnected"
	MsgCountdown             = "countdown"
	MsgBattleRoyaleCountdown = "battle_royale_countdown"
	MsgCountdownStopped      = "countdown_stopped"
	MsgStartGame             = "start_game"
	MsgWordResult            = "word_result"
	MsgOpponentWord          = "opponent_word"
	MsgPlayerWordUpdate      = "player_word_update"
	MsgLeaderboardUpdate     = "leaderboard_update"
	MsgEliminationUpdate     = "elimination_update"
	MsgPlayersEliminated     = "players_eliminated"
	MsgGameOver              = "game_over"
	MsgBattleRoyaleGameOver  = "battle_royale_game_over"
	MsgMatchFound            = "match_found"
	MsgError                 = "error"
	MsgPong                  = "pong"
)

type RoomStateMessage struct {
	Type     string    `json:"type"`
	PlayerID string    `json:"playerId"`
	TimeLeft int       `json:"timeLeft"`
	Room     RoomState `json:"room"`
}

type PlayerJoinedMessage struct {
	Type     string        `json:"type"`
	Username string        `json:"username"`
	IsViewer bool          `json:"isViewer"`
	Players  []PlayerState `json:"players"`
}

type PlayerLeftMessage struct {
	Type     string        `json:"type"`
	Username string        `json:"username"`
	Players  []PlayerState `json:"players"`
}

type PlayerDisconnectedMessage struct {
	Type         string `json:"type"`
	Username     string `json:"username"`
	GraceSeconds int    `json:"graceSeconds"`
}

type PlayerReconnectedMessage struct {
	Type     string `json:"type"`
	Username string `json:"username"`
}

type CountdownMessage struct {
	Type    string `json:"type"`
	Time    int    `json:"time"`
	Message string `json:"message"`
}

type BattleRoyaleCountdownMessage struct {
	Type         string             `json:"type"`
	Time         int                `json:"time"`
	Message      string             `json:"message"`
	PlayersCount int                `json:"playersCount"`
	MinPlayers   int                `json:"minPlayers"`
	Leaderboard  []LeaderboardEntry `json:"leaderboard"`
}

type CountdownStoppedMessage struct {
	Type       string     `json:"type"`
	Message    string     `json:"message"`
	RoomStatus RoomStatus `json:"roomStatus"`
}

type StartGameMessage struct {
	Type            string             `json:"type"`
	LetterPool      []string           `json:"letterPool"`
	Duration        int                `json:"duration"`
	EndTime         time.Time          `json:"endTime"`
	GameMode        GameMode           `json:"gameMode"`
	Leaderboard     []LeaderboardEntry `json:"leaderboard,omitempty"`
	EliminationInfo *EliminationInfo   `json:"eliminationInfo,omitempty"`
}

type WordResultMessage struct {
	Type    string `json:"type"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	*WordResult
}

type OpponentWordMessage struct {
	Type     string         `json:"type"`
	Username string         `json:"username"`
	Word     string         `json:"word"`
	Score    int            `json:"score"`
	NewPool  []string       `json:"newPool"`
	Scores   map[string]int `json:"scores"`
}

type PlayerWordUpdateMessage struct {
	Type       string   `json:"type"`
	Username   string   `json:"username"`
	Word       string   `json:"word"`
	Score      int      `json:"score"`
	TotalScore int      `json:"totalScore"`
	NewPool    []string `json:"newPool"`
}

type LeaderboardUpdateMessage struct {
	Type        string             `json:"type"`
	Leaderboard []LeaderboardEntry `json:"leaderboard"`
}

type EliminationUpdateMessage struct {
	Type            string          `json:"type"`
	EliminationInfo EliminationInfo `json:"eliminationInfo"`
}

type PlayersEliminatedMessage struct {
	Type              string             `json:"type"`
	EliminatedPlayers []string           `json:"eliminatedPlayers"`
	Leaderboard       []LeaderboardEntry `json:"leaderboard"`
}

type GameOverMessage struct {
	Type string `json:"type"`
	GameResult
}

type MatchFoundMessage struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId"`
	PlayerID string `json:"playerId"`
	InviteID string `json:"inviteId,omitempty"`
}

type ErrorMessage struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type PongMessage struct {
	Type string `json:"type"`
}

func MakeMessageRoomState(playerID string, timeLeft time.Duration, room RoomState) RoomStateMessage {
	return RoomStateMessage{Type: MsgRoomState, PlayerID: playerID, TimeLeft: seconds(timeLeft), Room: room}
}

func MakeMessagePlayerJoined(player PlayerState, players []PlayerState) PlayerJoinedMessage {
	return PlayerJoinedMessage{Type: MsgPlayerJoined, Username: player.Username, IsViewer: player.IsViewer, Players: players}
}

func MakeMessagePlayerLeft(username string, players []PlayerState) PlayerLeftMessage {
	return PlayerLeftMessage{Type: MsgPlayerLeft, Username: username, Players: players}
}

func MakeMessagePlayerDisconnected(username string, grace time.Duration) PlayerDisconnectedMessage {
	return PlayerDisconnectedMessage{Type: MsgPlayerDisconnected, Username: username, GraceSeconds: seconds(grace)}
}

func MakeMessagePlayerReconnected(username string) PlayerReconnectedMessage {
	return PlayerReconnectedMessage{Type: MsgPlayerReconnected, Username: username}
}

func MakeMessageCountdown(remaining int) CountdownMessage {
	return CountdownMessage{Type: MsgCountdown, Time: remaining, Message: "game starting"}
}

func MakeMessageBattleRoyaleCountdown(remaining, playersCount, minPlayers int, leaderboard []LeaderboardEntry) BattleRoyaleCountdownMessage {
	return BattleRoyaleCountdownMessage{
		Type:         MsgBattleRoyaleCountdown,
		Time:         remaining,
		Message:      "battle royale starting",
		PlayersCount: playersCount,
		MinPlayers:   minPlayers,
		Leaderboard:  leaderboard,
	}
}

func MakeMessageCountdownStopped(status RoomStatus) CountdownStoppedMessage {
	return CountdownStoppedMessage{Type: MsgCountdownStopped, Message: "not enough players", RoomStatus: status}
}

func MakeMessageStartGame(room RoomState, endTime time.Time, leaderboard []LeaderboardEntry, info *EliminationInfo) StartGameMessage {
	return StartGameMessage{
		Type:            MsgStartGame,
		LetterPool:      room.LetterPool,
		Duration:        room.Duration,
		EndTime:         endTime,
		GameMode:        room.Mode,
		Leaderboard:     leaderboard,
		EliminationInfo: info,
	}
}

func MakeMessageWordAccepted(result WordResult) WordResultMessage {
	return WordResultMessage{Type: MsgWordResult, Success: true, WordResult: &result}
}

func MakeMessageWordRejected(err error) WordResultMessage {
	return WordResultMessage{Type: MsgWordResult, Success: false, Error: ErrorCode(err)}
}

func MakeMessageOpponentWord(username string, result WordResult) OpponentWordMessage {
	return OpponentWordMessage{
		Type:     MsgOpponentWord,
		Username: username,
		Word:     result.Word,
		Score:    result.Score,
		NewPool:  result.NewPool,
		Scores:   result.CurrentScores,
	}
}

func MakeMessagePlayerWordUpdate(username string, result WordResult) PlayerWordUpdateMessage {
	return PlayerWordUpdateMessage{
		Type:       MsgPlayerWordUpdate,
		Username:   username,
		Word:       result.Word,
		Score:      result.Score,
		TotalScore: result.TotalScore,
		NewPool:    result.NewPool,
	}
}

func MakeMessageLeaderboardUpdate(leaderboard []LeaderboardEntry) LeaderboardUpdateMessage {
	return LeaderboardUpdateMessage{Type: MsgLeaderboardUpdate, Leaderboard: leaderboard}
}

func MakeMessageEliminationUpdate(info EliminationInfo) EliminationUpdateMessage {
	return EliminationUpdateMessage{Type: MsgEliminationUpdate, EliminationInfo: info}
}

func MakeMessagePlayersEliminated(usernames []string, leaderboard []LeaderboardEntry) PlayersEliminatedMessage {
	return PlayersEliminatedMessage{Type: MsgPlayersEliminated, EliminatedPlayers: usernames, Leaderboard: leaderboard}
}

func MakeMessageGameOver(mode GameMode, result GameResult) GameOverMessage {
	if mode == ModeBattleRoyale {
		return GameOverMessage{Type: MsgBattleRoyaleGameOver, GameResult: result}
	}
	return GameOverMessage{Type: MsgGameOver, GameResult: result}
}

func MakeMessageMatchFound(roomID, playerID, inviteID string) MatchFoundMessage {
	return MatchFoundMessage{Type: MsgMatchFound, RoomID: roomID, PlayerID: playerID, InviteID: inviteID}
}

func MakeMessageError(err error) ErrorMessage {
	return ErrorMessage{Type: MsgError, Error: ErrorCode(err)}
}

func MakeMessagePong() PongMessage {
	return PongMessage{Type: MsgPong}
}

func seconds(d time.Duration) int {
	return int((d + time.Second - 1) / time.Second)
}
