package game

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/ardacey/Lexo/shared/logger"
	"golang.org/x/time/rate"
)

const outboxSize = 64

type ClientMessage struct {
	Type string `json:"type"`
	Word string `json:"word,omitempty"`
}

const (
	ClientMsgSubmitWord = "submit_word"
	ClientMsgPing       = "ping"
)

// Client is one player's socket. Writes are queued and flushed by
// WritePump so a slow reader never blocks a broadcast.
type Client struct {
	roomID      string
	playerID    string
	socket      WebsocketConnection
	outbox      chan []byte
	done        chan struct{}
	closeOnce   sync.Once
	reasonMu    sync.Mutex
	reason      string
	rateLimiter *rate.Limiter
}

func NewClient(roomID, playerID string, socket WebsocketConnection) *Client {
	return &Client{
		roomID:      roomID,
		playerID:    playerID,
		socket:      socket,
		outbox:      make(chan []byte, outboxSize),
		done:        make(chan struct{}),
		rateLimiter: rate.NewLimiter(2, 5),
	}
}

// Write queues data for the write pump.
func (c *Client) Write(data []byte) error {
	select {
	case <-c.done:
		return ErrConnectionClosed
	default:
	}
	select {
	case c.outbox <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *Client) Send(msg any) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return c.Write(data)
}

// Close stops the write pump, which flushes what is queued and then closes
// the socket with reason.
func (c *Client) Close(reason string) {
	c.closeOnce.Do(func() {
		c.reasonMu.Lock()
		c.reason = reason
		c.reasonMu.Unlock()
		close(c.done)
	})
}

func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Allow reports whether the client may submit another word now.
func (c *Client) Allow() bool {
	return c.rateLimiter.Allow()
}

func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case data := <-c.outbox:
			if err := c.socket.Write(data); err != nil {
				logger.Debugf("[Client %s] write failed: %v", c.playerID, err)
				c.Close("write-failed")
				c.shutdown()
				return
			}
		case <-ticker.C:
			if err := c.socket.Ping(); err != nil {
				c.Close("ping-failed")
				c.shutdown()
				return
			}
		case <-c.done:
			c.flush()
			c.shutdown()
			return
		}
	}
}

func (c *Client) flush() {
	for {
		select {
		case data := <-c.outbox:
			if c.socket.Write(data) != nil {
				return
			}
		default:
			return
		}
	}
}

func (c *Client) shutdown() {
	c.reasonMu.Lock()
	reason := c.reason
	c.reasonMu.Unlock()
	c.socket.Close(reason)
}

// ReadPump decodes client messages and hands them to handle until the
// socket fails. Malformed frames are answered with an error message.
func (c *Client) ReadPump(handle func(msg ClientMessage)) {
	for {
		data, err := c.socket.Read()
		if err != nil {
			return
		}
		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil || msg.Type == "" {
			c.Send(MakeMessageError(ErrBadMessage))
			continue
		}
		handle(msg)
	}
}
