package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/erpledger/erpledger/internal/apperr"
	"github.com/erpledger/erpledger/internal/logging"
)

const (
	// TypeInventoryMovement is the event name of a stock movement.
	TypeInventoryMovement = "inventory.movement"

	// MovementBinding matches every inventory movement routing key.
	MovementBinding = "inventory.movement.#"

	consumerTag = "erpledger-finance"
)

// Movement is a stock movement raised by the inventory module.
type Movement struct {
	Type       string
	ProductID  string
	LocationID string
	Quantity   decimal.Decimal
	RefID      string
	UnitCost   decimal.Decimal // zero means the configured standard cost
}

// MovementHandler books a movement for a tenant.
type MovementHandler interface {
	HandleMovement(ctx context.Context, tenantID string, m Movement) error
}

type movementMessage struct {
	Event    string `json:"event"`
	TenantID string `json:"tenant_id"`
	Data     struct {
		ProductID  string          `json:"product_id"`
		LocationID string          `json:"location_id"`
		Quantity   decimal.Decimal `json:"quantity"`
		Type       string          `json:"type"`
		RefID      string          `json:"ref_id"`
		UnitCost   decimal.Decimal `json:"unit_cost"`
	} `json:"data"`
}

// DecodeMovement parses an inventory event body. It returns ok=false for
// other event types. A message without tenant_id belongs to defaultTenant.
func DecodeMovement(body []byte, defaultTenant string) (tenantID string, m Movement, ok bool, err error) {
	var msg movementMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return "", Movement{}, false, fmt.Errorf("decoding movement: %w", err)
	}
	if msg.Event != TypeInventoryMovement {
		return "", Movement{}, false, nil
	}

	tenantID = msg.TenantID
	if tenantID == "" {
		tenantID = defaultTenant
	}
	return tenantID, Movement{
		Type:       msg.Data.Type,
		ProductID:  msg.Data.ProductID,
		LocationID: msg.Data.LocationID,
		Quantity:   msg.Data.Quantity,
		RefID:      msg.Data.RefID,
		UnitCost:   msg.Data.UnitCost,
	}, true, nil
}

// Consumer reads inventory movements from a durable queue bound to the
// events exchange.
type Consumer struct {
	conn    *amqp.Connection
	ch      *amqp.Channel
	queue   string
	tenant  string
	handler MovementHandler
	logger  *zap.Logger
}

// DialConsumer connects to the broker, declares the exchange and queue, and
// binds the queue to every inventory movement.
func DialConsumer(url, exchange, queue, defaultTenant string, h MovementHandler, l *zap.Logger) (*Consumer, error) {
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
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declaring queue %s: %w", queue, err)
	}
	if err := ch.QueueBind(queue, MovementBinding, exchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("binding queue %s: %w", queue, err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting qos: %w", err)
	}

	c := newConsumer(queue, defaultTenant, h, l)
	c.conn, c.ch = conn, ch
	return c, nil
}

func newConsumer(queue, defaultTenant string, h MovementHandler, l *zap.Logger) *Consumer {
	return &Consumer{queue: queue, tenant: defaultTenant, handler: h, logger: logging.OrNop(l)}
}

// Run handles deliveries until ctx is done or the channel closes.
func (c *Consumer) Run(ctx context.Context) error {
	deliveries, err := c.ch.Consume(c.queue, consumerTag, false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consuming %s: %w", c.queue, err)
	}
	c.logger.Info("consumer started", zap.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("delivery channel closed")
			}
			c.handle(ctx, d)
		}
	}
}

// handle acks a delivery once it has been booked or ignored. Malformed and
// rejected messages are dropped; a lost race on a shared row is requeued.
func (c *Consumer) handle(ctx context.Context, d amqp.Delivery) {
	tenantID, m, ok, err := DecodeMovement(d.Body, c.tenant)
	if err != nil {
		c.logger.Error("dropping malformed message", zap.Error(err), zap.String("routing_key", d.RoutingKey))
		_ = d.Nack(false, false)
		return
	}
	if !ok {
		_ = d.Ack(false)
		return
	}

	if err := c.handler.HandleMovement(ctx, tenantID, m); err != nil {
		requeue := apperr.IsRetryable(err)
		c.logger.Error("movement not posted",
			zap.Error(err),
			zap.String("tenant", tenantID),
			zap.String("type", m.Type),
			zap.String("ref", m.RefID),
			zap.Bool("requeue", requeue),
		)
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}

// Close closes the channel and connection.
func (c *Consumer) Close() error {
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
