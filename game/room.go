package game

import (
	"context"
	"slices"
	"sync"
	"time"
)

type Room struct {
	mu sync.Mutex

	// Identity / metadata
	id        string
	name      string
	mode      GameMode
	status    RoomStatus
	createdAt time.Time

	// Configuration
	maxPlayers          int
	minPlayers          int
	minSurviving        int
	poolSize            int
	minWordLength       int
	totalGameTime       time.Duration
	countdownDuration   time.Duration
	eliminationInterval time.Duration

	// Runtime state
	letterPool            []string
	usedWords             map[string]struct{}
	usedOrder             []string
	playersPerElimination int
	eliminationsDone      int
	gameStartTime         time.Time
	countdownStartTime    time.Time
	finishedAt            time.Time
	everStarted           bool
	finished              bool
	aborted               bool
	result                GameResult
	highestWord           *ScoredWord

	// Players
	players       []*Player
	departed      []*Player
	nextJoinOrder int

	// Tasks
	tasks       *roomTasks
	gameCancel  context.CancelFunc
	graceCancel map[string]context.CancelFunc
}

func newRoom(id, name string, mode GameMode, settings Settings, now time.Time) *Room {
	r := &Room{
		id:                  id,
		name:                name,
		mode:                mode,
		status:              StatusWaiting,
		createdAt:           now,
		poolSize:            settings.poolSize(mode),
		minWordLength:       settings.MinWordLength,
		minSurviving:        settings.MinSurvivingPlayers,
		letterPool:          []string{},
		usedWords:           make(map[string]struct{}),
		usedOrder:           []string{},
		players:             []*Player{},
		graceCancel:         make(map[string]context.CancelFunc),
		eliminationInterval: settings.BattleRoyaleEliminationInterval,
	}
	if mode == ModeBattleRoyale {
		r.maxPlayers = settings.BattleRoyaleMaxPlayers
		r.minPlayers = settings.BattleRoyaleMinPlayers
		r.totalGameTime = settings.BattleRoyaleDuration
		r.countdownDuration = settings.BattleRoyaleCountdown
	} else {
		r.maxPlayers = 2
		r.minPlayers = 2
		r.totalGameTime = settings.ClassicDuration
		r.countdownDuration = settings.ClassicCountdown
		r.eliminationInterval = 0
	}
	return r
}

// The methods below expect r.mu to be held.

func (r *Room) findPlayer(id string) *Player {
	for _, p := range r.players {
		if p.id == id {
			return p
		}
	}
	return nil
}

func (r *Room) findByUserID(userID string) *Player {
	if userID == "" {
		return nil
	}
	for _, p := range r.players {
		if p.userID == userID {
			return p
		}
	}
	return nil
}

func (r *Room) addPlayer(p *Player) {
	p.roomID = r.id
	p.joinOrder = r.nextJoinOrder
	r.nextJoinOrder++
	r.players = append(r.players, p)
}

func (r *Room) removePlayer(id string) *Player {
	i := slices.IndexFunc(r.players, func(p *Player) bool { return p.id == id })
	if i < 0 {
		return nil
	}
	p := r.players[i]
	r.players = slices.Delete(r.players, i, i+1)
	return p
}

func (r *Room) competitors() []*Player {
	out := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		if !p.isViewer {
			out = append(out, p)
		}
	}
	return out
}

// activePlayers are the non-viewer players who are not eliminated.
func (r *Room) activePlayers() []*Player {
	out := make([]*Player, 0, len(r.players))
	for _, p := range r.players {
		if p.competing() {
			out = append(out, p)
		}
	}
	return out
}

func (r *Room) scores() map[string]int {
	scores := make(map[string]int, len(r.players))
	for _, p := range r.competitors() {
		scores[p.username] = p.score
	}
	return scores
}

func (r *Room) timeLeft(now time.Time) time.Duration {
	if r.gameStartTime.IsZero() {
		return r.totalGameTime
	}
	return max(0, r.totalGameTime-now.Sub(r.gameStartTime))
}

func (r *Room) markUsed(word string) {
	r.usedWords[word] = struct{}{}
	r.usedOrder = append(r.usedOrder, word)
}

func (r *Room) startMatch(pool []string, now time.Time) {
	r.status = StatusInProgress
	r.letterPool = pool
	r.usedWords = make(map[string]struct{})
	r.usedOrder = []string{}
	r.gameStartTime = now
	r.everStarted = true
	r.eliminationsDone = 0
	r.highestWord = nil
	r.departed = nil
	for _, p := range r.players {
		if !p.isViewer {
			p.resetForMatch()
		}
	}
	r.playersPerElimination = 0
	if r.mode == ModeBattleRoyale {
		r.playersPerElimination = PlayersPerElimination(
			len(r.competitors()), r.totalGameTime, r.eliminationInterval, r.minSurviving,
		)
	}
}

func (r *Room) snapshot() RoomState {
	players := make([]PlayerState, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, p.snapshot())
	}
	return RoomState{
		ID:                    r.id,
		Name:                  r.name,
		Status:                r.status,
		Mode:                  r.mode,
		LetterPool:            slices.Clone(r.letterPool),
		UsedWords:             slices.Clone(r.usedOrder),
		MaxPlayers:            r.maxPlayers,
		MinPlayers:            r.minPlayers,
		Duration:              int(r.totalGameTime / time.Second),
		EliminationInterval:   int(r.eliminationInterval / time.Second),
		PlayersPerElimination: r.playersPerElimination,
		GameStartTime:         r.gameStartTime,
		CountdownStartTime:    r.countdownStartTime,
		CreatedAt:             r.createdAt,
		Players:               players,
	}
}

// State returns a consistent snapshot of the room.
func (r *Room) State() RoomState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshot()
}

func (r *Room) ID() string { return r.id }
