package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ardacey/Lexo/domain"
	"github.com/ardacey/Lexo/game"
	"github.com/ardacey/Lexo/shared/logger"
	"github.com/nats-io/nats.go"
)

const GameFinishedSubject = "lexo.games.finished"

// publisher is the part of *nats.Conn the publisher needs.
type publisher interface {
	Publish(subject string, data []byte) error
	IsClosed() bool
	Drain() error
}

// NATSPublisher fans finished-game summaries out to other services.
type NATSPublisher struct {
	conn    publisher
	subject string
}

func Connect(url string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url,
		nats.Name("lexo"),
		nats.ReconnectBufSize(5*1024*1024),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warningf("[NATS] disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Infof("[NATS] reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.UnexpectedPublishError, err)
	}
	return NewNATSPublisher(nc, GameFinishedSubject), nil
}

func NewNATSPublisher(conn publisher, subject string) *NATSPublisher {
	return &NATSPublisher{conn: conn, subject: subject}
}

// PublishGameFinished implements game.EventPublisher.
func (p *NATSPublisher) PublishGameFinished(ctx context.Context, summary game.GameSummary) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.conn.IsClosed() {
		return domain.ErrPublisherClosed
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.UnexpectedPublishError, err)
	}
	if err := p.conn.Publish(p.subject, data); err != nil {
		return fmt.Errorf("%w: %w", domain.UnexpectedPublishError, err)
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *NATSPublisher) Close() error {
	if p.conn.IsClosed() {
		return nil
	}
	return p.conn.Drain()
}
