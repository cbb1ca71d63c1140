package events

import (
	"context"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erpledger/erpledger/internal/apperr"
)

type ackRecorder struct {
	acked, nacked, requeued bool
}

func (a *ackRecorder) Ack(uint64, bool) error { a.acked = true; return nil }

func (a *ackRecorder) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}

func (a *ackRecorder) Reject(_ uint64, requeue bool) error {
	a.nacked, a.requeued = true, requeue
	return nil
}

type handlerFunc func(ctx context.Context, tenantID string, m Movement) error

func (f handlerFunc) HandleMovement(ctx context.Context, tenantID string, m Movement) error {
	return f(ctx, tenantID, m)
}

const receipt = `{"event":"inventory.movement","data":{"product_id":"p-1","location_id":"l-1","quantity":5,"type":"IN_RECEIPT","ref_id":"GRN-9","timestamp":"2025-01-02T10:00:00"}}`

func TestDecodeMovement(t *testing.T) {
	tenant, m, ok, err := DecodeMovement([]byte(receipt), "default")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "default", tenant)
	assert.Equal(t, "IN_RECEIPT", m.Type)
	assert.Equal(t, "GRN-9", m.RefID)
	assert.True(t, decimal.NewFromInt(5).Equal(m.Quantity))
	assert.True(t, m.UnitCost.IsZero())

	tenant, _, ok, err = DecodeMovement([]byte(`{"event":"inventory.movement","tenant_id":"acme","data":{"type":"OUT_DELIVERY","quantity":"-2"}}`), "default")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "acme", tenant)

	_, _, ok, err = DecodeMovement([]byte(`{"event":"inventory.adjusted"}`), "default")
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, _, err = DecodeMovement([]byte(`{not json`), "default")
	assert.Error(t, err)
}

func TestConsumerHandle(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		handlerErr error
		acked      bool
		requeued   bool
	}{
		{name: "posted", body: receipt, acked: true},
		{name: "other event", body: `{"event":"inventory.adjusted"}`, acked: true},
		{name: "malformed", body: `{`},
		{name: "rejected", body: receipt, handlerErr: apperr.NotFound(apperr.ErrAccountNotFound, "1130")},
		{name: "conflict", body: receipt, handlerErr: apperr.Conflict(apperr.ErrConcurrentUpdate, "1"), requeued: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newConsumer("q", "acme", handlerFunc(func(_ context.Context, tenantID string, _ Movement) error {
				assert.Equal(t, "acme", tenantID)
				return tt.handlerErr
			}), nil)

			ack := &ackRecorder{}
			c.handle(context.Background(), amqp.Delivery{Acknowledger: ack, Body: []byte(tt.body)})

			assert.Equal(t, tt.acked, ack.acked)
			assert.Equal(t, !tt.acked, ack.nacked)
			assert.Equal(t, tt.requeued, ack.requeued)
		})
	}
}
