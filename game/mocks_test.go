package game

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- WebsocketConnection ---

type MockWebsocketConnection struct {
	mock.Mock
}

func (m *MockWebsocketConnection) Write(data []byte) error {
	args := m.Called(data)
	return args.Error(0)
}

func (m *MockWebsocketConnection) Ping() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockWebsocketConnection) Read() ([]byte, error) {
	args := m.Called()
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockWebsocketConnection) Close(errCode string) {
	m.Called(errCode)
}

// --- StatsRecorder ---

type MockStatsRecorder struct {
	mock.Mock
}

func (m *MockStatsRecorder) RecordGameResult(ctx context.Context, record GameRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockStatsRecorder) records() []GameRecord {
	var out []GameRecord
	for _, call := range m.Calls {
		if call.Method == "RecordGameResult" {
			out = append(out, call.Arguments.Get(1).(GameRecord))
		}
	}
	return out
}

// --- EventPublisher ---

type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) PublishGameFinished(ctx context.Context, summary GameSummary) error {
	args := m.Called(ctx, summary)
	return args.Error(0)
}

// --- RoomCreator ---

type MockRoomCreator struct {
	mock.Mock
}

func (m *MockRoomCreator) CreateRoom(ctx context.Context, name, username, userID string, mode GameMode) (RoomState, PlayerState, error) {
	args := m.Called(ctx, name, username, userID, mode)
	return args.Get(0).(RoomState), args.Get(1).(PlayerState), args.Error(2)
}

func (m *MockRoomCreator) JoinRoom(ctx context.Context, roomID, username, userID string, asViewer bool) (RoomState, PlayerState, error) {
	args := m.Called(ctx, roomID, username, userID, asViewer)
	return args.Get(0).(RoomState), args.Get(1).(PlayerState), args.Error(2)
}

func (m *MockRoomCreator) IsBusy(userID string) bool {
	args := m.Called(userID)
	return args.Bool(0)
}

func (m *MockRoomCreator) DiscardRoom(roomID string) {
	m.Called(roomID)
}

// --- StatsReader ---

type MockStatsReader struct {
	mock.Mock
}

func (m *MockStatsReader) UserStats(ctx context.Context, userID string) (UserStats, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(UserStats), args.Error(1)
}

// --- UniqueIdGenerator ---

type sequentialIds struct {
	prefix string
	n      atomic.Int64
}

func (g *sequentialIds) Generate() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.n.Add(1))
}

// fakeConn records every frame it receives.
type fakeConn struct {
	mu       sync.Mutex
	frames   [][]byte
	closed   bool
	reason   string
	writeErr error
}

func (c *fakeConn) Write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.writeErr != nil {
		return c.writeErr
	}
	c.frames = append(c.frames, data)
	return nil
}

func (c *fakeConn) Close(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.reason = reason
}

func (c *fakeConn) isClosed() (bool, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed, c.reason
}

// types lists the "type" field of every frame received so far.
func (c *fakeConn) types() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		var head struct {
			Type string `json:"type"`
		}
		_ = json.Unmarshal(f, &head)
		out = append(out, head.Type)
	}
	return out
}

func (c *fakeConn) count(msgType string) int {
	n := 0
	for _, t := range c.types() {
		if t == msgType {
			n++
		}
	}
	return n
}

// last decodes the most recent frame of the given type into v.
func (c *fakeConn) last(t *testing.T, msgType string, v any) {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.frames) - 1; i >= 0; i-- {
		var head struct {
			Type string `json:"type"`
		}
		require.NoError(t, json.Unmarshal(c.frames[i], &head))
		if head.Type == msgType {
			require.NoError(t, json.Unmarshal(c.frames[i], v))
			return
		}
	}
	t.Fatalf("no %s message received", msgType)
}

var testWords = []string{"ev", "kitap", "kalemlik", "at", "ata", "masa", "kale"}

type testEnv struct {
	service   *Service
	clock     *clockwork.FakeClock
	recorder  *MockStatsRecorder
	publisher *MockEventPublisher
}

func newTestEnv(t *testing.T, opts ...Option) *testEnv {
	t.Helper()
	env := &testEnv{
		clock:     clockwork.NewFakeClockAt(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)),
		recorder:  &MockStatsRecorder{},
		publisher: &MockEventPublisher{},
	}
	env.recorder.On("RecordGameResult", mock.Anything, mock.Anything).Return(nil)
	env.publisher.On("PublishGameFinished", mock.Anything, mock.Anything).Return(nil)

	base := []Option{
		WithClock(env.clock),
		WithDictionary(NewDictionary(testWords)),
		WithLetterGenerator(NewLetterGenerator(42)),
		WithStatsRecorder(env.recorder),
		WithEventPublisher(env.publisher),
		WithIdGenerator(&sequentialIds{prefix: "id"}),
	}
	env.service = NewService(append(base, opts...)...)
	t.Cleanup(env.service.Close)
	return env
}

// seedRoom registers a room directly, with one competitor per name, and
// starts the match when status is in progress. No room task is spawned.
func (env *testEnv) seedRoom(t *testing.T, mode GameMode, status RoomStatus, names ...string) (*Room, []*Player) {
	t.Helper()
	s := env.service
	room := newRoom(s.idGen.Generate(), "test room", mode, s.settings, s.clock.Now())
	s.registry.AddRoom(room)

	players := make([]*Player, 0, len(names))
	room.mu.Lock()
	for _, name := range names {
		p := newPlayer(s.idGen.Generate(), name, "user-"+name, false)
		p.connected = true
		room.addPlayer(p)
		players = append(players, p)
	}
	switch status {
	case StatusInProgress:
		room.status = StatusCountdown
		room.startMatch(s.letters.Pool(room.poolSize), s.clock.Now())
	default:
		room.status = status
		if status == StatusCountdown {
			room.countdownStartTime = s.clock.Now()
		}
	}
	room.mu.Unlock()

	for _, p := range players {
		s.registry.BindPlayer(p.id, room.id, p.userID, false)
	}
	return room, players
}

// connect attaches a recording socket to the player.
func (env *testEnv) connect(t *testing.T, roomID, playerID string) *fakeConn {
	t.Helper()
	conn := &fakeConn{}
	require.NoError(t, env.service.broadcaster.Connect(roomID, playerID, conn))
	return conn
}

func setPool(room *Room, letters ...string) {
	room.mu.Lock()
	defer room.mu.Unlock()
	room.letterPool = letters
}
