package game

import (
	"context"
	"time"

	"github.com/ardacey/Lexo/shared/logger"
)

// HandleDisconnect processes a player losing their socket or leaving.
//
// A classic competitor in a running match keeps their seat for a grace
// period equal to the time left in the match; if they are not back by
// then, the opponent wins by walkover. Everyone else leaves the room
// immediately, which may stop a countdown or end a battle royale.
func (s *Service) HandleDisconnect(ctx context.Context, roomID, playerID string) (DisconnectOutcome, error) {
	room, ok := s.registry.Room(roomID)
	if !ok {
		return DisconnectOutcome{}, ErrRoomNotFound
	}
	s.broadcaster.Disconnect(roomID, playerID)

	now := s.clock.Now()
	out := DisconnectOutcome{}

	room.mu.Lock()
	p := room.findPlayer(playerID)
	if p == nil {
		room.mu.Unlock()
		return DisconnectOutcome{}, ErrPlayerNotFound
	}

	var (
		grace        time.Duration
		abortResult  *GameResult
		checkBREnd   bool
		graceCtx     context.Context
		cancelGrace  context.CancelFunc
		wasCompeting = p.competing()
	)

	switch {
	case !p.isViewer && room.status == StatusInProgress && room.mode == ModeClassic:
		p.connected = false
		p.disconnectedAt = now
		grace = room.timeLeft(now)
		out.Temporary = true
		if cancel, pending := room.graceCancel[playerID]; pending {
			cancel()
		}
		graceCtx, cancelGrace = context.WithCancel(room.tasks.Context())
		room.graceCancel[playerID] = cancelGrace

	default:
		room.removePlayer(playerID)
		p.connected = false
		if p.isViewer {
			break
		}
		switch room.status {
		case StatusInProgress:
			room.departed = append(room.departed, p)
			checkBREnd = wasCompeting
		case StatusCountdown:
			if room.mode == ModeClassic {
				result := abortCountdownLocked(room, now)
				abortResult = &result
				out.CountdownStopped = true
			} else if len(room.activePlayers()) < room.minPlayers {
				out.CountdownStopped = revertCountdownLocked(room)
			}
		}
	}

	out.Player = p.snapshot()
	out.Room = room.snapshot()
	empty := len(room.players) == 0
	mode := room.mode
	room.mu.Unlock()

	if !out.Temporary {
		s.registry.UnbindPlayer(playerID, p.userID)
	}

	switch {
	case out.Temporary:
		logger.Infof("[Room %s] %s disconnected, grace %s", roomID, p.username, grace)
		s.broadcaster.Broadcast(roomID, MakeMessagePlayerDisconnected(p.username, grace), playerID)
		if grace <= 0 {
			cancelGrace()
			out.Walkover = s.graceExpired(room, playerID)
		} else {
			room.tasks.GoWithin(graceCtx, "grace", func(ctx context.Context) {
				s.runGrace(ctx, room, playerID, grace)
			})
		}

	case abortResult != nil:
		logger.Infof("[Room %s] %s left during countdown, room aborted", roomID, p.username)
		s.registry.ReleaseUsers(roomID)
		s.broadcaster.Broadcast(roomID, MakeMessagePlayerLeft(p.username, out.Room.Players))
		s.broadcaster.Broadcast(roomID, MakeMessageGameOver(mode, *abortResult))
		if !empty {
			s.scheduleDeletion(room, s.settings.cooldown(mode))
		}

	default:
		logger.Infof("[Room %s] %s left", roomID, p.username)
		s.broadcaster.Broadcast(roomID, MakeMessagePlayerLeft(p.username, out.Room.Players))
		if out.CountdownStopped {
			logger.Infof("[Room %s] countdown stopped, not enough players", roomID)
			s.broadcaster.Broadcast(roomID, MakeMessageCountdownStopped(StatusWaiting))
		}
		if checkBREnd {
			room.mu.Lock()
			over, reason := endConditionLocked(room, now)
			room.mu.Unlock()
			if over {
				if _, _, err := s.endGame(room, reason, ""); err == nil {
					out.Walkover = true
				}
			}
		}
	}

	if empty {
		room.mu.Lock()
		running := room.status == StatusInProgress
		room.mu.Unlock()
		if !running {
			s.removeRoom(roomID, "room-empty")
			out.RoomRemoved = true
		}
	}
	if out.Walkover || out.CountdownStopped {
		out.Room = room.State()
	}
	return out, nil
}

func (s *Service) runGrace(ctx context.Context, room *Room, playerID string, grace time.Duration) {
	select {
	case <-ctx.Done():
	case <-s.clock.After(grace):
		s.graceExpired(room, playerID)
	}
}

// graceExpired awards the match to the opponent if the player is still
// away. It reports whether this call finished the game.
func (s *Service) graceExpired(room *Room, playerID string) bool {
	room.mu.Lock()
	delete(room.graceCancel, playerID)
	p := room.findPlayer(playerID)
	if p == nil || p.disconnectedAt.IsZero() || room.status != StatusInProgress {
		room.mu.Unlock()
		return false
	}
	winnerID := ""
	for _, other := range room.competitors() {
		if other.id != playerID {
			winnerID = other.id
			break
		}
	}
	username := p.username
	room.mu.Unlock()

	logger.Infof("[Room %s] %s did not come back, walkover", room.id, username)
	_, _, err := s.endGame(room, ReasonWalkover, winnerID)
	return err == nil
}
