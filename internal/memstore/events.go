package memstore

import (
	"sync"

	kafkago "github.com/segmentio/kafka-go"
)

// Events records published messages in place of the Kafka producer.
type Events struct {
	mu   sync.Mutex
	msgs []kafkago.Message
}

func (e *Events) Publish(topic string, key, value []byte, headers ...kafkago.Header) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.msgs = append(e.msgs, kafkago.Message{Topic: topic, Key: key, Value: value, Headers: headers})
}

func (e *Events) Messages() []kafkago.Message {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]kafkago.Message(nil), e.msgs...)
}
