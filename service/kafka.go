package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// OnBatch is called when a batch of decoded messages is ready.
type OnBatch[T any] func([]T)

// KafkaConsumerConfig holds configuration for a batching Kafka consumer.
type KafkaConsumerConfig struct {
	Brokers      []string
	Topic        string
	GroupID      string
	BatchSize    int
	BatchTimeout time.Duration
}

// KafkaConsumer reads JSON messages of type T from Kafka and delivers them
// in batches, flushing on size or timeout. Messages that fail to decode are
// logged, committed and skipped.
type KafkaConsumer[T any] struct {
	reader       *kafka.Reader
	onBatch      OnBatch[T]
	batchSize    int
	batchTimeout time.Duration
	mu           sync.Mutex
	batch        []T
	timer        *time.Timer
}

// NewKafkaConsumer creates a consumer for the given config.
func NewKafkaConsumer[T any](cfg KafkaConsumerConfig, onBatch OnBatch[T]) *KafkaConsumer[T] {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6, // 10MB
		CommitInterval: time.Second,
		StartOffset:    kafka.FirstOffset,
	})

	return &KafkaConsumer[T]{
		reader:       reader,
		onBatch:      onBatch,
		batchSize:    cfg.BatchSize,
		batchTimeout: cfg.BatchTimeout,
		batch:        make([]T, 0, cfg.BatchSize),
	}
}

// Run starts consuming messages until the context is cancelled.
func (c *KafkaConsumer[T]) Run(ctx context.Context) {
	slog.Info("starting Kafka consumer",
		"brokers", c.reader.Config().Brokers,
		"topic", c.reader.Config().Topic,
		"group_id", c.reader.Config().GroupID,
	)
	c.timer = time.NewTimer(c.batchTimeout)
	defer c.timer.Stop()

	for {
		select {
		case <-ctx.Done():
			c.flush()
			return
		case <-c.timer.C:
			c.flush()
			c.timer.Reset(c.batchTimeout)
		default:
			readCtx, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
			msg, err := c.reader.FetchMessage(readCtx)
			cancel()

			if err != nil {
				if errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				slog.Error("fetch message failed", "error", err)
				if ctx.Err() != nil {
					return
				}
				continue
			}

			var v T
			if err := json.Unmarshal(msg.Value, &v); err != nil {
				slog.Warn("invalid message", "error", err, "offset", msg.Offset)
				c.reader.CommitMessages(ctx, msg)
				continue
			}

			c.mu.Lock()
			c.batch = append(c.batch, v)
			shouldFlush := len(c.batch) >= c.batchSize
			c.mu.Unlock()

			if shouldFlush {
				c.flush()
				c.timer.Reset(c.batchTimeout)
			}

			c.reader.CommitMessages(ctx, msg)
		}
	}
}

func (c *KafkaConsumer[T]) flush() {
	c.mu.Lock()
	if len(c.batch) == 0 {
		c.mu.Unlock()
		return
	}
	toFlush := c.batch
	c.batch = make([]T, 0, c.batchSize)
	c.mu.Unlock()

	c.onBatch(toFlush)
}

// Close closes the Kafka reader.
func (c *KafkaConsumer[T]) Close() error {
	return c.reader.Close()
}

// --- Producers ---

// SubmissionProducer writes raw trajectory submissions to Kafka.
type SubmissionProducer struct {
	writer *kafka.Writer
}

// NewSubmissionProducer creates a producer for the raw trajectory topic.
func NewSubmissionProducer(brokers []string, topic string) *SubmissionProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		Async:        true,
		RequiredAcks: kafka.RequireOne,
	}
	return &SubmissionProducer{writer: w}
}

// Write sends a submission to Kafka, keyed by device so a device's
// trajectories stay ordered within a partition.
func (p *SubmissionProducer) Write(ctx context.Context, sub TrajectorySubmission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(sub.DeviceID),
		Value: data,
	})
}

// Close flushes pending messages and closes the connection.
func (p *SubmissionProducer) Close() error {
	return p.writer.Close()
}

// EventProducer writes correction events to Kafka.
type EventProducer struct {
	writer *kafka.Writer
}

// NewEventProducer creates a producer for the corrected trajectory topic.
func NewEventProducer(brokers []string, topic string) *EventProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
		Async:                  true,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}
	return &EventProducer{writer: w}
}

// Publish sends a correction event to Kafka.
func (p *EventProducer) Publish(ctx context.Context, evt CorrectionEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(evt.DeviceID),
		Value: data,
	})
}

// Close flushes pending messages and closes the connection.
func (p *EventProducer) Close() error {
	return p.writer.Close()
}
