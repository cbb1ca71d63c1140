package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/erpledger/erpledger/internal/logging"
)

// LogPublisher writes events to the logger. It is used when no broker is
// configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(l *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logging.OrNop(l)}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.logger.Info("event",
		zap.String("event", e.Event),
		zap.String("id", e.ID),
		zap.String("tenant", e.TenantID),
		zap.Uint("entry_id", e.EntryID),
		zap.String("total", e.TotalAmount.String()),
		zap.String("reference", e.Reference),
	)
	return nil
}

// publishChannel is the part of *amqp.Channel the publisher uses.
type publishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// session is one broker connection with its publishing channel. lost is
// closed once the broker closes either of them.
type session struct {
	ch   publishChannel
	conn io.Closer
	lost <-chan struct{}
}

func (s *session) broken() bool {
	select {
	case <-s.lost:
		return true
	default:
		return false
	}
}

func (s *session) close() error {
	_ = s.ch.Close()
	if err := s.conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		return err
	}
	return nil
}

// AMQPPublisher publishes events as JSON to a topic exchange. A connection
// or channel lost to the broker is re-established by the next Publish.
type AMQPPublisher struct {
	exchange string
	dial     func() (*session, error)

	mu       sync.Mutex
	sess     *session
	shutdown bool
}

// DialAMQP connects to the broker at url and declares a durable topic
// exchange.
func DialAMQP(url, exchange string) (*AMQPPublisher, error) {
	p := &AMQPPublisher{
		exchange: exchange,
		dial:     func() (*session, error) { return dialSession(url, exchange) },
	}
	sess, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.sess = sess
	return p, nil
}

func dialSession(url, exchange string) (*session, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connecting to broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening channel: %w", err)
	}
	if err := declareExchange(ch, exchange); err != nil {
		conn.Close()
		return nil, err
	}

	connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
	chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
	lost := make(chan struct{})
	go func() {
		select {
		case <-connClosed:
		case <-chClosed:
		}
		close(lost)
	}()
	return &session{ch: ch, conn: conn, lost: lost}, nil
}

func declareExchange(ch *amqp.Channel, exchange string) error {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declaring exchange %s: %w", exchange, err)
	}
	return nil
}

// Publish sends e to the exchange under its routing key, redialing first
// when the previous session was lost.
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	msg, err := encode(e)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shutdown {
		return errPublisherClosed
	}
	if p.sess != nil && p.sess.broken() {
		_ = p.sess.close()
		p.sess = nil
	}
	if p.sess == nil {
		sess, err := p.dial()
		if err != nil {
			return fmt.Errorf("publishing %s: %w", e.Event, err)
		}
		p.sess = sess
	}
	if err := p.sess.ch.PublishWithContext(ctx, p.exchange, e.RoutingKey(), false, false, msg); err != nil {
		// The channel is unusable after a failed publish; start over next time.
		_ = p.sess.close()
		p.sess = nil
		return fmt.Errorf("publishing %s: %w", e.Event, err)
	}
	return nil
}

var errPublisherClosed = errors.New("publisher is closed")

func encode(e Event) (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encoding event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    e.ID,
		Timestamp:    e.OccurredAt,
		Type:         e.Event,
		Body:         body,
	}, nil
}

// Close closes the channel and connection. Later publishes fail.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.shutdown = true
	if p.sess == nil {
		return nil
	}
	err := p.sess.close()
	p.sess = nil
	return err
}
