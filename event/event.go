// Package event publishes domain events to Kafka.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/semka95/natours/backend/domain"
)

const source = "natours-api"

// Config stores Kafka configuration, publishing is logged only when no
// brokers are set
type Config struct {
	Brokers []string `yaml:"brokers" env:"KAFKA_BROKERS" envSeparator:","`
	Topic   string   `yaml:"topic" env:"KAFKA_TOPIC"`
}

// Event is the envelope of every published message
type Event struct {
	ID          string          `json:"event_id"`
	Type        string          `json:"event_type"`
	AggregateID string          `json:"aggregate_id"`
	Version     int             `json:"version"`
	Timestamp   time.Time       `json:"timestamp"`
	Source      string          `json:"source"`
	Data        json.RawMessage `json:"data"`
}

// New creates event with generated id
func New(eventType, aggregateID string, data interface{}) (*Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:          uuid.New().String(),
		Type:        eventType,
		AggregateID: aggregateID,
		Version:     1,
		Timestamp:   time.Now().UTC(),
		Source:      source,
		Data:        raw,
	}, nil
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic keyed by aggregate id
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger *zap.Logger
	tracer trace.Tracer
}

// NewKafkaPublisher creates publisher
func NewKafkaPublisher(cfg Config, logger *zap.Logger, tracer trace.Tracer) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireAll,
	}

	return &KafkaPublisher{
		writer: w,
		topic:  cfg.Topic,
		logger: logger,
		tracer: tracer,
	}
}

// Publish implements domain.EventPublisher
func (p *KafkaPublisher) Publish(ctx context.Context, eventType, aggregateID string, payload interface{}) error {
	ctx, span := p.tracer.Start(
		ctx,
		"publisher Publish",
		trace.WithAttributes(
			attribute.String("event_type", eventType),
			attribute.String("aggregate_id", aggregateID)),
	)
	defer span.End()

	ev, err := New(eventType, aggregateID, payload)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("can't create event: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	data, err := json.Marshal(ev)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("can't marshal event: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(aggregateID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(eventType)},
			{Key: "source", Value: []byte(source)},
		},
	}

	if err = p.writer.WriteMessages(ctx, msg); err != nil {
		span.RecordError(err)
		p.logger.Error("can't publish event", zap.String("event_type", eventType), zap.Error(err))
		return fmt.Errorf("publish event to %s: %w: %s", p.topic, domain.ErrInternalServerError, err.Error())
	}

	p.logger.Debug("event published",
		zap.String("topic", p.topic),
		zap.String("event_type", eventType),
		zap.String("aggregate_id", aggregateID),
	)

	return nil
}

// Close flushes pending messages
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher logs events instead of publishing them
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher creates log publisher
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Publish implements domain.EventPublisher
func (p *LogPublisher) Publish(_ context.Context, eventType, aggregateID string, payload interface{}) error {
	ev, err := New(eventType, aggregateID, payload)
	if err != nil {
		return fmt.Errorf("can't create event: %w: %s", domain.ErrInternalServerError, err.Error())
	}

	p.logger.Info("event",
		zap.String("event_id", ev.ID),
		zap.String("event_type", ev.Type),
		zap.String("aggregate_id", ev.AggregateID),
		zap.ByteString("data", ev.Data),
	)

	return nil
}
