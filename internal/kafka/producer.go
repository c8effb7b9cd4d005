package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

// AccessEvent mirrors one access ledger row onto the event stream. The worker
// consumes these for alerting; downstream reporting reads the same topic.
type AccessEvent struct {
	Type           string    `json:"type"`
	ScanID         string    `json:"scan_id"`
	TicketID       *int64    `json:"ticket_id,omitempty"`
	SubscriptionID *int64    `json:"subscription_id,omitempty"`
	DeviceID       *int64    `json:"device_id,omitempty"`
	Direction      string    `json:"direction"`
	Result         string    `json:"result"`
	Reason         string    `json:"reason,omitempty"`
	Code           string    `json:"code"`
	ScannedAt      time.Time `json:"scanned_at"`
}

type Producer struct {
	writer *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}
