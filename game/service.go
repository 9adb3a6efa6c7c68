package game

import (
	"context"
	"time"

	"github.com/ardacey/Lexo/shared/logger"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/errgroup"
)

const recordTimeout = 10 * time.Second

// Service owns the room lifecycle. Every exported operation is safe for
// concurrent use.
type Service struct {
	registry    *Registry
	broadcaster *Broadcaster
	letters     *LetterGenerator
	dict        WordChecker
	recorder    StatsRecorder
	publisher   EventPublisher
	idGen       UniqueIdGenerator
	clock       clockwork.Clock
	settings    Settings
	practice    *practiceStore

	bgCtx      context.Context
	bgCancel   context.CancelFunc
	background errgroup.Group
}

type Option func(*Service)

func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

func WithSettings(settings Settings) Option {
	return func(s *Service) { s.settings = settings }
}

func WithLetterGenerator(g *LetterGenerator) Option {
	return func(s *Service) { s.letters = g }
}

func WithDictionary(dict WordChecker) Option {
	return func(s *Service) { s.dict = dict }
}

func WithStatsRecorder(r StatsRecorder) Option {
	return func(s *Service) { s.recorder = r }
}

func WithEventPublisher(p EventPublisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithIdGenerator(g UniqueIdGenerator) Option {
	return func(s *Service) { s.idGen = g }
}

func NewService(opts ...Option) *Service {
	s := &Service{
		letters:   NewRandomLetterGenerator(),
		recorder:  nopRecorder{},
		publisher: nopPublisher{},
		idGen:     NewUUIDGenerator(),
		clock:     clockwork.NewRealClock(),
		settings:  DefaultSettings(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.dict == nil {
		s.dict = DefaultDictionary()
	}
	s.bgCtx, s.bgCancel = context.WithCancel(context.Background())
	s.registry = NewRegistry()
	s.practice = newPracticeStore()
	s.broadcaster = NewBroadcaster(s.clock, s.settings.MaxConnectionsPerRoom, s.settings.EmptyRoomCleanupDelay)
	s.broadcaster.OnRoomEmpty(s.handleRoomEmpty)
	return s
}

func (s *Service) Registry() *Registry       { return s.registry }
func (s *Service) Broadcaster() *Broadcaster { return s.broadcaster }
func (s *Service) Settings() Settings        { return s.settings }
func (s *Service) Clock() clockwork.Clock    { return s.clock }

// Close stops every room and waits for pending stats writes.
func (s *Service) Close() {
	s.registry.Close()
	_ = s.background.Wait()
	s.bgCancel()
}

// IsBusy reports whether the user competes in a room that has not finished.
func (s *Service) IsBusy(userID string) bool {
	if userID == "" {
		return false
	}
	_, busy := s.registry.RoomOfUser(userID)
	return busy
}

func (s *Service) CreateRoom(ctx context.Context, name, username, userID string, mode GameMode) (RoomState, PlayerState, error) {
	if s.IsBusy(userID) {
		return RoomState{}, PlayerState{}, ErrPlayerBusy
	}
	if name == "" {
		name = username + "'s room"
	}

	room := newRoom(s.idGen.Generate(), name, mode, s.settings, s.clock.Now())
	player := newPlayer(s.idGen.Generate(), username, userID, false)

	room.mu.Lock()
	room.addPlayer(player)
	rs, ps := room.snapshot(), player.snapshot()
	room.mu.Unlock()

	s.registry.AddRoom(room)
	s.registry.BindPlayer(player.id, room.id, userID, false)

	logger.Infof("[Room %s] %s room created by %s", room.id, mode, username)
	return rs, ps, nil
}

// JoinRoom adds a player to the room. A user already in the room gets their
// existing player back. A competitor joining after the match started is
// seated as a viewer.
func (s *Service) JoinRoom(ctx context.Context, roomID, username, userID string, asViewer bool) (RoomState, PlayerState, error) {
	room, ok := s.registry.Room(roomID)
	if !ok {
		return RoomState{}, PlayerState{}, ErrRoomNotFound
	}
	if !asViewer && userID != "" {
		if current, busy := s.registry.RoomOfUser(userID); busy && current != roomID {
			return RoomState{}, PlayerState{}, ErrPlayerBusy
		}
	}

	room.mu.Lock()
	if room.status == StatusFinished {
		room.mu.Unlock()
		return RoomState{}, PlayerState{}, ErrGameAlreadyEnded
	}
	if existing := room.findByUserID(userID); existing != nil {
		rs, ps := room.snapshot(), existing.snapshot()
		room.mu.Unlock()
		return rs, ps, nil
	}

	viewer := asViewer || room.status == StatusInProgress
	if !viewer && len(room.competitors()) >= room.maxPlayers {
		room.mu.Unlock()
		return RoomState{}, PlayerState{}, ErrRoomFull
	}

	player := newPlayer(s.idGen.Generate(), username, userID, viewer)
	room.addPlayer(player)
	rs, ps := room.snapshot(), player.snapshot()
	room.mu.Unlock()

	s.registry.BindPlayer(player.id, room.id, userID, viewer)
	s.broadcaster.Broadcast(room.id, MakeMessagePlayerJoined(ps, rs.Players), player.id)
	logger.Infof("[Room %s] %s joined (viewer=%t)", room.id, username, viewer)

	if !viewer {
		s.maybeStartCountdown(room)
	}
	return rs, ps, nil
}

func (s *Service) GetRoom(roomID string) (RoomState, bool) {
	room, ok := s.registry.Room(roomID)
	if !ok {
		return RoomState{}, false
	}
	return room.State(), true
}

func (s *Service) GetPlayer(playerID string) (PlayerState, bool) {
	roomID, ok := s.registry.RoomOfPlayer(playerID)
	if !ok {
		return PlayerState{}, false
	}
	room, ok := s.registry.Room(roomID)
	if !ok {
		return PlayerState{}, false
	}
	room.mu.Lock()
	defer room.mu.Unlock()
	p := room.findPlayer(playerID)
	if p == nil {
		return PlayerState{}, false
	}
	return p.snapshot(), true
}

// Connect binds a socket to a player. Reconnecting within the grace period
// resumes the match with score, words and pool intact.
func (s *Service) Connect(roomID, playerID string, conn Connection) error {
	room, ok := s.registry.Room(roomID)
	if !ok {
		return ErrRoomNotFound
	}
	room.mu.Lock()
	known := room.findPlayer(playerID) != nil
	room.mu.Unlock()
	if !known {
		return ErrPlayerNotFound
	}

	if err := s.broadcaster.Connect(roomID, playerID, conn); err != nil {
		return err
	}

	room.mu.Lock()
	p := room.findPlayer(playerID)
	if p == nil {
		room.mu.Unlock()
		s.broadcaster.Release(roomID, playerID, conn)
		return ErrPlayerNotFound
	}
	resumed := !p.disconnectedAt.IsZero()
	p.connected = true
	p.disconnectedAt = time.Time{}
	if cancel, pending := room.graceCancel[playerID]; pending {
		cancel()
		delete(room.graceCancel, playerID)
	}
	username := p.username
	rs := room.snapshot()
	timeLeft := time.Duration(0)
	if room.status == StatusInProgress {
		timeLeft = room.timeLeft(s.clock.Now())
	}
	room.mu.Unlock()

	s.broadcaster.SendTo(roomID, playerID, MakeMessageRoomState(playerID, timeLeft, rs))
	if resumed {
		logger.Infof("[Room %s] %s reconnected", roomID, username)
		s.broadcaster.Broadcast(roomID, MakeMessagePlayerReconnected(username), playerID)
	}
	return nil
}

// removeRoom deletes the room and closes whatever sockets are left.
// DiscardRoom removes a room that was set up but never used, releasing
// everyone seated in it.
func (s *Service) DiscardRoom(roomID string) {
	s.removeRoom(roomID, "discarded")
}

func (s *Service) removeRoom(roomID, reason string) {
	if _, ok := s.registry.RemoveRoom(roomID); ok {
		s.broadcaster.CloseRoom(roomID, reason)
		logger.Infof("[Room %s] removed (%s)", roomID, reason)
	}
}

// handleRoomEmpty runs once a room stayed without sockets for the cleanup
// delay. Running matches are left to the grace period.
func (s *Service) handleRoomEmpty(roomID string) {
	room, ok := s.registry.Room(roomID)
	if !ok {
		return
	}
	room.mu.Lock()
	status := room.status
	room.mu.Unlock()
	if status == StatusInProgress {
		return
	}
	s.removeRoom(roomID, "room-empty")
}
