package game

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ardacey/Lexo/shared/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// StatsReader serves a user's aggregated results.
type StatsReader interface {
	UserStats(ctx context.Context, userID string) (UserStats, error)
}

type UserStats struct {
	UserID       string `json:"userId"`
	GamesPlayed  int    `json:"gamesPlayed"`
	Wins         int    `json:"wins"`
	Losses       int    `json:"losses"`
	Draws        int    `json:"draws"`
	TotalScore   int    `json:"totalScore"`
	HighestScore int    `json:"highestScore"`
	WordsPlayed  int    `json:"wordsPlayed"`
}

type GameHandler struct {
	service    *Service
	matchmaker *Matchmaker
	stats      StatsReader
	upgrader   websocket.Upgrader
}

func NewGameHandler(service *Service, matchmaker *Matchmaker, stats StatsReader, allowedOrigins []string) *GameHandler {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}
	return &GameHandler{
		service:    service,
		matchmaker: matchmaker,
		stats:      stats,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				_, ok := allowed[r.Header.Get("Origin")]
				return ok
			},
		},
	}
}

// RegisterRoutes mounts the game routes on an authenticated group.
func (h *GameHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/rooms", h.CreateRoomHandler)
	group.POST("/rooms/:roomid/join", h.JoinRoomHandler)
	group.GET("/rooms/:roomid", h.GetRoomHandler)
	group.GET("/rooms/:roomid/leaderboard", h.LeaderboardHandler)

	group.POST("/matchmaking/queue", h.EnqueueHandler)
	group.DELETE("/matchmaking/queue", h.DequeueHandler)
	group.GET("/matchmaking/status", h.MatchStatusHandler)

	group.POST("/invites", h.CreateInviteHandler)
	group.POST("/invites/:inviteid/accept", h.RespondInviteHandler(true))
	group.POST("/invites/:inviteid/decline", h.RespondInviteHandler(false))
	group.POST("/invites/:inviteid/join", h.JoinInviteHandler)
	group.DELETE("/invites", h.CancelInviteHandler)

	group.GET("/stats/me", h.StatsHandler)

	group.POST("/practice", h.StartPracticeHandler)
	group.GET("/practice/:sessionid", h.PracticeStatusHandler)
	group.POST("/practice/:sessionid/submit", h.SubmitPracticeHandler)
	group.POST("/practice/:sessionid/end", h.EndPracticeHandler)
	group.POST("/words/validate", h.ValidateWordHandler)

	group.GET("/ws/rooms/:roomid/players/:playerid", h.ConnectHandler)
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrPlayerNotFound),
		errors.Is(err, ErrInviteNotFound), errors.Is(err, ErrStatsUnavailable),
		errors.Is(err, ErrPracticeNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRoomFull), errors.Is(err, ErrPlayerBusy),
		errors.Is(err, ErrInviteAlreadyExists), errors.Is(err, ErrGameAlreadyEnded),
		errors.Is(err, ErrInviteNotAccepted), errors.Is(err, ErrPracticeEnded):
		return http.StatusConflict
	case errors.Is(err, ErrNotInviteParticipant), errors.Is(err, ErrNotYourPlayer):
		return http.StatusForbidden
	case errors.Is(err, ErrCannotInviteSelf), errors.Is(err, ErrNotBattleRoyale),
		errors.Is(err, ErrGameNotInProgress):
		return http.StatusBadRequest
	case errors.Is(err, ErrTooManyConnections):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}

func abortWithError(ctx *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logger.Criticalf("[Handler] %s %s failed: %v", ctx.Request.Method, ctx.FullPath(), err)
	}
	ctx.AbortWithStatusJSON(status, gin.H{"error": ErrorCode(err)})
}

// identity reads what the auth middleware stored.
func identity(ctx *gin.Context) (string, string, bool) {
	id := ctx.GetString("id")
	if id == "" {
		logger.Critical("[Handler] request reached a game route without an id")
		ctx.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "unknown-error"})
		return "", "", false
	}
	username := ctx.GetString("username")
	if username == "" {
		username = id
	}
	return id, username, true
}

type roomResponse struct {
	Room   RoomState   `json:"room"`
	Player PlayerState `json:"player"`
}

func (h *GameHandler) CreateRoomHandler(ctx *gin.Context) {
	id, username, ok := identity(ctx)
	if !ok {
		return
	}
	var body struct {
		Name string `json:"name"`
		Mode string `json:"gameMode"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad-request-format"})
		return
	}
	mode, valid := ParseGameMode(body.Mode)
	if !valid {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid-game-mode"})
		return
	}

	room, player, err := h.service.CreateRoom(ctx.Request.Context(), body.Name, username, id, mode)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	h.matchmaker.Dequeue(id)
	ctx.JSON(http.StatusCreated, roomResponse{Room: room, Player: player})
}

func (h *GameHandler) JoinRoomHandler(ctx *gin.Context) {
	id, username, ok := identity(ctx)
	if !ok {
		return
	}
	var body struct {
		Viewer bool `json:"viewer"`
	}
	// an empty body joins as a competitor
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&body); err != nil {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad-request-format"})
			return
		}
	}

	room, player, err := h.service.JoinRoom(ctx.Request.Context(), ctx.Param("roomid"), username, id, body.Viewer)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	if !player.IsViewer {
		h.matchmaker.Dequeue(id)
	}
	ctx.JSON(http.StatusOK, roomResponse{Room: room, Player: player})
}

func (h *GameHandler) GetRoomHandler(ctx *gin.Context) {
	room, ok := h.service.GetRoom(ctx.Param("roomid"))
	if !ok {
		abortWithError(ctx, ErrRoomNotFound)
		return
	}
	ctx.JSON(http.StatusOK, room)
}

func (h *GameHandler) LeaderboardHandler(ctx *gin.Context) {
	leaderboard, err := h.service.BattleRoyaleLeaderboard(ctx.Param("roomid"))
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"leaderboard": leaderboard})
}

func (h *GameHandler) EnqueueHandler(ctx *gin.Context) {
	id, username, ok := identity(ctx)
	if !ok {
		return
	}
	position, err := h.matchmaker.Enqueue(id, username)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"position": position})
}

func (h *GameHandler) DequeueHandler(ctx *gin.Context) {
	id, _, ok := identity(ctx)
	if !ok {
		return
	}
	h.matchmaker.Dequeue(id)
	ctx.Status(http.StatusNoContent)
}

func (h *GameHandler) MatchStatusHandler(ctx *gin.Context) {
	id, _, ok := identity(ctx)
	if !ok {
		return
	}
	ctx.JSON(http.StatusOK, h.matchmaker.Status(id))
}

func (h *GameHandler) CreateInviteHandler(ctx *gin.Context) {
	id, username, ok := identity(ctx)
	if !ok {
		return
	}
	var body struct {
		TargetID       string `json:"targetId" binding:"required"`
		TargetUsername string `json:"targetUsername" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad-request-format"})
		return
	}
	invite, err := h.matchmaker.CreateInvite(id, username, body.TargetID, body.TargetUsername)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, invite)
}

func (h *GameHandler) RespondInviteHandler(accept bool) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		id, _, ok := identity(ctx)
		if !ok {
			return
		}
		invite, err := h.matchmaker.RespondInvite(ctx.Param("inviteid"), id, accept)
		if err != nil {
			abortWithError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, invite)
	}
}

func (h *GameHandler) JoinInviteHandler(ctx *gin.Context) {
	id, _, ok := identity(ctx)
	if !ok {
		return
	}
	invite, match, err := h.matchmaker.JoinInvite(ctx.Request.Context(), ctx.Param("inviteid"), id)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	if match == nil {
		ctx.JSON(http.StatusAccepted, gin.H{"invite": invite})
		return
	}
	for _, p := range match.Players {
		if p.UserID == id {
			found := MakeMessageMatchFound(match.Room.ID, p.ID, invite.ID)
			ctx.JSON(http.StatusOK, gin.H{"invite": invite, "match": found})
			return
		}
	}
	ctx.JSON(http.StatusOK, gin.H{"invite": invite})
}

func (h *GameHandler) CancelInviteHandler(ctx *gin.Context) {
	id, _, ok := identity(ctx)
	if !ok {
		return
	}
	if _, err := h.matchmaker.CancelInvite(id); err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.Status(http.StatusNoContent)
}

func (h *GameHandler) StatsHandler(ctx *gin.Context) {
	id, _, ok := identity(ctx)
	if !ok {
		return
	}
	if h.stats == nil {
		abortWithError(ctx, ErrStatsUnavailable)
		return
	}
	stats, err := h.stats.UserStats(ctx.Request.Context(), id)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, stats)
}

// ConnectHandler upgrades the request and runs the socket of a player
// until it closes. Only the socket that is still registered when the read
// loop ends reports the disconnect, so a reconnection is not undone by the
// socket it replaced.
func (h *GameHandler) StartPracticeHandler(ctx *gin.Context) {
	id, _, ok := identity(ctx)
	if !ok {
		return
	}
	var body struct {
		Duration int `json:"duration" binding:"min=0"`
	}
	// an empty body takes the default duration
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&body); err != nil {
			ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad-request-format"})
			return
		}
	}
	state := h.service.StartPractice(id, time.Duration(body.Duration)*time.Second)
	ctx.JSON(http.StatusCreated, state)
}

func (h *GameHandler) PracticeStatusHandler(ctx *gin.Context) {
	id, _, ok := identity(ctx)
	if !ok {
		return
	}
	state, err := h.service.PracticeStatus(ctx.Param("sessionid"), id)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, state)
}

func (h *GameHandler) SubmitPracticeHandler(ctx *gin.Context) {
	id, _, ok := identity(ctx)
	if !ok {
		return
	}
	var body struct {
		Word string `json:"word" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad-request-format"})
		return
	}
	result, err := h.service.SubmitPracticeWord(ctx.Param("sessionid"), id, body.Word)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, result)
}

func (h *GameHandler) EndPracticeHandler(ctx *gin.Context) {
	id, _, ok := identity(ctx)
	if !ok {
		return
	}
	summary, err := h.service.EndPractice(ctx.Param("sessionid"), id)
	if err != nil {
		abortWithError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, summary)
}

func (h *GameHandler) ValidateWordHandler(ctx *gin.Context) {
	var body struct {
		Word string `json:"word" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad-request-format"})
		return
	}
	word, err := h.service.ValidateWord(body.Word)
	resp := gin.H{"word": word, "valid": err == nil}
	if err != nil {
		resp["error"] = ErrorCode(err)
	}
	ctx.JSON(http.StatusOK, resp)
}

func (h *GameHandler) ConnectHandler(ctx *gin.Context) {
	id, _, ok := identity(ctx)
	if !ok {
		return
	}
	roomID, playerID := ctx.Param("roomid"), ctx.Param("playerid")

	player, found := h.service.GetPlayer(playerID)
	if !found || player.RoomID != roomID {
		abortWithError(ctx, ErrPlayerNotFound)
		return
	}
	if player.UserID != "" && player.UserID != id {
		abortWithError(ctx, ErrNotYourPlayer)
		return
	}

	conn, err := h.upgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		logger.Warningf("[Handler] websocket upgrade failed for player %s: %v", playerID, err)
		return
	}

	client := NewClient(roomID, playerID, NewWebsocketConnection(conn))
	go client.WritePump()

	if err := h.service.Connect(roomID, playerID, client); err != nil {
		client.Send(MakeMessageError(err))
		client.Close(ErrorCode(err))
		return
	}

	client.ReadPump(func(msg ClientMessage) {
		h.handleClientMessage(client, msg)
	})

	if h.service.Broadcaster().Release(roomID, playerID, client) {
		if _, err := h.service.HandleDisconnect(context.Background(), roomID, playerID); err != nil && !errors.Is(err, ErrRoomNotFound) {
			logger.Warningf("[Room %s] disconnect of %s failed: %v", roomID, playerID, err)
		}
	}
	client.Close("bye")
}

func (h *GameHandler) handleClientMessage(client *Client, msg ClientMessage) {
	switch msg.Type {
	case ClientMsgPing:
		client.Send(MakeMessagePong())

	case ClientMsgSubmitWord:
		if !client.Allow() {
			client.Send(MakeMessageWordRejected(ErrRateLimited))
			return
		}
		result, err := h.service.ProcessWord(context.Background(), client.roomID, client.playerID, msg.Word)
		if err != nil {
			client.Send(MakeMessageWordRejected(err))
			return
		}
		client.Send(MakeMessageWordAccepted(result))

	default:
		client.Send(MakeMessageError(ErrBadMessage))
	}
}
