// internal/events/kafka_publisher.go
package events

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Publisher pushes ledger events to kafka. Publishing is best-effort and
// always happens after the DB commit; a broker outage never fails a
// ledger operation.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewPublisher returns nil when no brokers are configured; the nil
// receiver is safe to publish on.
func NewPublisher(brokers []string, topic string, logger *zap.Logger) *Publisher {
	if len(brokers) == 0 {
		return nil
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
		logger: logger,
	}
}

func (p *Publisher) Publish(ctx context.Context, event LedgerEvent) {
	if p == nil {
		return
	}

	event.EventID = uuid.NewString()
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	msg, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn("failed to marshal ledger event", zap.Error(err))
		return
	}

	key := event.City
	if key == "" {
		key = strconv.FormatInt(event.OwnerID, 10)
	}

	if err := p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: msg,
		Time:  time.Now(),
	}); err != nil {
		p.logger.Warn("failed to publish ledger event", zap.String("type", event.Type), zap.Error(err))
	}
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
