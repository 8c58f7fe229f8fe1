package kafka

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingWriter struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	return nil
}

func TestProducerFlushesOnClose(t *testing.T) {
	w := &recordingWriter{}
	p := newProducer(w, 8, zap.NewNop())
	p.Start(context.Background())

	p.Publish("order.created", []byte("o1"), []byte(`{"a":1}`), kafka.Header{Key: "x-event-type", Value: []byte("OrderCreated")})
	p.Publish("order.payment.resolved", []byte("o1"), []byte(`{"a":2}`))
	p.Close()
	p.WaitClosed()

	w.mu.Lock()
	defer w.mu.Unlock()
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "order.created", w.msgs[0].Topic)
	assert.Equal(t, "order.payment.resolved", w.msgs[1].Topic)
	assert.Equal(t, []byte("o1"), w.msgs[0].Key)
	assert.True(t, w.closed)
}

func TestPublishAfterCloseIsDropped(t *testing.T) {
	w := &recordingWriter{}
	p := newProducer(w, 1, zap.NewNop())
	p.Start(context.Background())
	p.Close()
	p.Close()
	p.WaitClosed()

	assert.NotPanics(t, func() { p.Publish("order.created", nil, []byte("x")) })
	assert.Empty(t, w.msgs)
}

func TestUnwrapPayload(t *testing.T) {
	type payload struct {
		OrderID string `json:"order_id"`
	}
	got, err := UnwrapPayload[payload](json.RawMessage(`{"order_id":"o1"}`))
	require.NoError(t, err)
	assert.Equal(t, "o1", got.OrderID)

	_, err = UnwrapPayload[payload](json.RawMessage(`{`))
	assert.Error(t, err)
}
