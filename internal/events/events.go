// Package events carries upload acknowledgements over Kafka to the ledger
// consumer.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"

	"kennel_media/internal/logging"
	"kennel_media/internal/models"
)

const (
	TypeAcknowledged = "object.acknowledged"

	ConsumerGroup = "object-ledger-group"
)

type Event struct {
	Type   string        `json:"type"`
	Upload models.Upload `json:"upload"`
}

type Publisher interface {
	Publish(ctx context.Context, upload models.Upload) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(broker, topic string) *KafkaPublisher {
	return &KafkaPublisher{writer: kafka.NewWriter(kafka.WriterConfig{
		Brokers: []string{broker},
		Topic:   topic,
	})}
}

// Publish keys the message by object path so updates to one object stay
// ordered within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, upload models.Upload) error {
	const op = "events.Publish"

	value, err := json.Marshal(Event{Type: TypeAcknowledged, Upload: upload})
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{Key: []byte(upload.ObjectPath), Value: value})
	if err != nil {
		return fmt.Errorf("%s: %v", op, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher drops events; used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, models.Upload) error { return nil }
func (NopPublisher) Close() error                                 { return nil }

type Handler func(ctx context.Context, upload models.Upload) error

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader messageReader
	handle Handler
	log    logging.Logger
}

func NewKafkaConsumer(broker, topic string, handle Handler, log logging.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: []string{broker},
			Topic:   topic,
			GroupID: ConsumerGroup,
		}),
		handle: handle,
		log:    log.With("component", "events.consumer"),
	}
}

// Run reads until ctx is cancelled. Bad messages and handler failures are
// logged and skipped.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			c.log.Error(ctx, "error reading message", "err", err)
			continue
		}

		var ev Event
		if err := json.Unmarshal(msg.Value, &ev); err != nil {
			c.log.Warn(ctx, "skipping malformed event", "offset", msg.Offset, "err", err)
			continue
		}
		if ev.Type != TypeAcknowledged {
			c.log.Debug(ctx, "skipping event", "type", ev.Type)
			continue
		}

		if err := c.handle(ctx, ev.Upload); err != nil {
			c.log.Error(ctx, "error handling event", "object_path", ev.Upload.ObjectPath, "err", err)
		}
	}
}
