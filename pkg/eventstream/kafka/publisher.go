// Package kafka publishes parsed transcripts to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/reel/pkg/eventstream"
)

var (
	// ErrNoBrokers is returned when the publisher is configured without brokers.
	ErrNoBrokers = errors.New("kafka publisher requires at least one broker")

	// ErrNoTopic is returned when the publisher is configured without a topic.
	ErrNoTopic = errors.New("kafka publisher requires a topic")
)

const defaultBatchTimeout = 50 * time.Millisecond

// Config configures the Kafka publisher.
type Config struct {
	// Brokers are the bootstrap broker addresses (host:port).
	Brokers []string

	// Topic receives one message per transcript.
	Topic string

	// BatchTimeout bounds how long the writer waits to fill a batch.
	// Defaults to 50ms so transcripts are not held back by the 1s library default.
	BatchTimeout time.Duration
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// Publisher writes JSON-encoded transcripts keyed by session id, so every
// transcript of a session lands on the same partition.
type Publisher struct {
	writer messageWriter
	topic  string
}

// NewPublisher creates a Publisher backed by a kafka-go Writer.
func NewPublisher(c Config) (*Publisher, error) {
	if len(c.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if c.Topic == "" {
		return nil, ErrNoTopic
	}
	if c.BatchTimeout == 0 {
		c.BatchTimeout = defaultBatchTimeout
	}

	w := &kafkago.Writer{
		Addr:                   kafkago.TCP(c.Brokers...),
		Topic:                  c.Topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		BatchTimeout:           c.BatchTimeout,
		AllowAutoTopicCreation: true,
	}

	return newPublisher(w, c.Topic), nil
}

func newPublisher(w messageWriter, topic string) *Publisher {
	return &Publisher{writer: w, topic: topic}
}

// PublishTranscript encodes t and writes it to the configured topic.
func (p *Publisher) PublishTranscript(ctx context.Context, t *eventstream.Transcript) error {
	if t == nil {
		return eventstream.ErrNilTranscript
	}

	value, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("encoding transcript: %w", err)
	}

	msg := kafkago.Message{
		Key:   []byte(t.SessionID),
		Value: value,
		Time:  t.EmittedAt,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(t.EventType)},
			{Key: "schema_version", Value: []byte(fmt.Sprint(t.SchemaVersion))},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing transcript to %s: %w", p.topic, err)
	}

	return nil
}

// Close flushes pending messages and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
