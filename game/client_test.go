package game

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestClientWrite(t *testing.T) {
	t.Parallel()

	t.Run("Buffer Full", func(t *testing.T) {
		t.Parallel()
		c := NewClient("r", "p", &MockWebsocketConnection{})
		for range outboxSize {
			require.NoError(t, c.Write([]byte("x")))
		}
		assert.ErrorIs(t, c.Write([]byte("x")), ErrSendBufferFull)
	})

	t.Run("After Close", func(t *testing.T) {
		t.Parallel()
		c := NewClient("r", "p", &MockWebsocketConnection{})
		c.Close("bye")
		c.Close("ignored")
		assert.ErrorIs(t, c.Write([]byte("x")), ErrConnectionClosed)
		select {
		case <-c.Done():
		default:
			t.Fatal("done channel not closed")
		}
	})
}

func TestWritePump(t *testing.T) {
	t.Parallel()

	t.Run("Flushes Then Closes", func(t *testing.T) {
		t.Parallel()
		socket := &MockWebsocketConnection{}
		socket.On("Write", []byte(`{"type":"pong"}`)).Return(nil).Once()
		socket.On("Close", "room-closed").Return().Once()
		c := NewClient("r", "p", socket)

		require.NoError(t, c.Send(MakeMessagePong()))
		c.Close("room-closed")

		var wg sync.WaitGroup
		wg.Go(c.WritePump)
		wg.Wait()
		socket.AssertExpectations(t)
	})

	t.Run("Write Failure", func(t *testing.T) {
		t.Parallel()
		socket := &MockWebsocketConnection{}
		socket.On("Write", mock.Anything).Return(assert.AnError).Once()
		socket.On("Close", "write-failed").Return().Once()
		c := NewClient("r", "p", socket)

		require.NoError(t, c.Write([]byte("x")))
		var wg sync.WaitGroup
		wg.Go(c.WritePump)
		wg.Wait()

		socket.AssertExpectations(t)
		assert.ErrorIs(t, c.Write([]byte("y")), ErrConnectionClosed)
	})
}

func TestReadPump(t *testing.T) {
	t.Parallel()
	socket := &MockWebsocketConnection{}
	socket.On("Read").Return([]byte("{bad"), nil).Once()
	socket.On("Read").Return([]byte(`{"word":"ev"}`), nil).Once()
	socket.On("Read").Return([]byte(`{"type":"submit_word","word":"ev"}`), nil).Once()
	socket.On("Read").Return([]byte(nil), assert.AnError).Once()
	c := NewClient("r", "p", socket)

	var got []ClientMessage
	c.ReadPump(func(msg ClientMessage) {
		got = append(got, msg)
	})

	assert.Equal(t, []ClientMessage{{Type: ClientMsgSubmitWord, Word: "ev"}}, got)
	require.Len(t, c.outbox, 2)
	for range 2 {
		var msg ErrorMessage
		require.NoError(t, json.Unmarshal(<-c.outbox, &msg))
		assert.Equal(t, MsgError, msg.Type)
		assert.Equal(t, "bad-message", msg.Error)
	}
	socket.AssertExpectations(t)
}

func TestClientRateLimit(t *testing.T) {
	t.Parallel()
	c := NewClient("r", "p", &MockWebsocketConnection{})
	for range 5 {
		assert.True(t, c.Allow())
	}
	assert.False(t, c.Allow())
}
