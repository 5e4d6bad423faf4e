package event

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/semka95/natours/backend/domain"
)

var tracer = sdktrace.NewTracerProvider().Tracer("")

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	return nil
}

func TestKafkaPublisher_Publish(t *testing.T) {
	payload := domain.BookingCreated{
		BookingID: "5c8a355b14eb5c17645c9109",
		TourID:    "5c88fa8cf4afda39709c2955",
		UserID:    "5c8a1d5b0190b214360dc057",
		Price:     397,
	}

	t.Run("success", func(t *testing.T) {
		w := new(fakeWriter)
		p := &KafkaPublisher{writer: w, topic: "natours.events", logger: zap.NewNop(), tracer: tracer}

		err := p.Publish(context.Background(), domain.EventBookingCreated, payload.BookingID, payload)
		require.NoError(t, err)
		require.Len(t, w.msgs, 1)

		msg := w.msgs[0]
		assert.Equal(t, "natours.events", msg.Topic)
		assert.Equal(t, payload.BookingID, string(msg.Key))
		assert.Equal(t, "event_type", msg.Headers[0].Key)
		assert.Equal(t, domain.EventBookingCreated, string(msg.Headers[0].Value))

		ev := new(Event)
		require.NoError(t, json.Unmarshal(msg.Value, ev))
		_, err = uuid.Parse(ev.ID)
		assert.NoError(t, err)
		assert.Equal(t, domain.EventBookingCreated, ev.Type)
		assert.Equal(t, 1, ev.Version)

		got := new(domain.BookingCreated)
		require.NoError(t, json.Unmarshal(ev.Data, got))
		assert.Equal(t, payload, *got)
	})

	t.Run("broker error", func(t *testing.T) {
		w := &fakeWriter{err: errors.New("leader not available")}
		p := &KafkaPublisher{writer: w, topic: "natours.events", logger: zap.NewNop(), tracer: tracer}

		err := p.Publish(context.Background(), domain.EventBookingCreated, payload.BookingID, payload)
		assert.ErrorIs(t, err, domain.ErrInternalServerError)
	})

	t.Run("unmarshalable payload", func(t *testing.T) {
		w := new(fakeWriter)
		p := &KafkaPublisher{writer: w, topic: "natours.events", logger: zap.NewNop(), tracer: tracer}

		err := p.Publish(context.Background(), domain.EventBookingCreated, "1", make(chan int))
		assert.ErrorIs(t, err, domain.ErrInternalServerError)
		assert.Empty(t, w.msgs)
	})
}

func TestLogPublisher_Publish(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	p := NewLogPublisher(zap.New(core))

	err := p.Publish(context.Background(), domain.EventBookingCreated, "1", map[string]int{"price": 397})
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, domain.EventBookingCreated, logs.All()[0].ContextMap()["event_type"])
}
