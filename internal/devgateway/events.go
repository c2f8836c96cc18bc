package devgateway

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
)

// DefaultTopic receives every domain event.
const DefaultTopic = "fieldtrack.events"

// Event names.
const (
	EventAttendanceMarked   = "attendance.marked"
	EventClientCreated      = "client.created"
	EventClientStatus       = "client.status_changed"
	EventInteractionAdded   = "client.interaction_added"
	EventClientImageUpdated = "client.image_updated"
)

// Event is a state change accepted by the gateway.
type Event struct {
	Name       string      `json:"event"`
	EmployeeID string      `json:"employeeId"`
	At         time.Time   `json:"at"`
	Data       interface{} `json:"data"`
}

// Publisher delivers events. Publishing is best effort: a failure is logged
// and never fails the request that caused it.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) error { return nil }
func (nopPublisher) Close() error                         { return nil }

type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisher connects to broker and writes events to topic, keyed by
// employee ID.
func NewKafkaPublisher(broker, topic string) (Publisher, error) {
	conn, err := kafka.Dial("tcp", broker)
	if err != nil {
		return nil, fmt.Errorf("connecting to kafka: %w", err)
	}
	if err := conn.Close(); err != nil {
		slog.Warn("closing kafka probe connection", "error", err)
	}

	return &kafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}}, nil
}

func (k *kafkaPublisher) Publish(ctx context.Context, e Event) error {
	value, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(e.EmployeeID),
		Value: value,
	})
}

func (k *kafkaPublisher) Close() error {
	return k.writer.Close()
}
