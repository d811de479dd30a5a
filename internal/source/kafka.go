package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/segmentio/kafka-go"

	"water_monitor/internal/logger"
	"water_monitor/internal/metrics"
	"water_monitor/internal/service"
)

const (
	sourceName   = "kafka"
	fetchBackoff = time.Second
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Submitter hands readings to the ingest queue.
type Submitter interface {
	Submit(ctx context.Context, in service.ReadingInput) error
}

// KafkaConfig selects the topic readings are consumed from.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// NewKafkaReader builds a consumer-group reader with explicit commits.
func NewKafkaReader(cfg KafkaConfig) (*kafka.Reader, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if cfg.Topic == "" {
		return nil, errors.New("topic is required")
	}
	if cfg.GroupID == "" {
		cfg.GroupID = "water-monitor"
	}
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 1 << 20,
		MaxWait:  500 * time.Millisecond,
	}), nil
}

// KafkaConsumer feeds sensor payloads from a topic into the ingest queue.
// Messages carry the same JSON body as the HTTP push endpoint.
type KafkaConsumer struct {
	reader MessageReader
	queue  Submitter
	log    *logger.Logger
}

func NewKafkaConsumer(reader MessageReader, queue Submitter, log *logger.Logger) *KafkaConsumer {
	return &KafkaConsumer{reader: reader, queue: queue, log: logger.OrNop(log)}
}

// Run consumes until ctx is canceled or the queue closes. Malformed messages
// are committed and skipped.
func (c *KafkaConsumer) Run(ctx context.Context) error {
	defer func() {
		if err := c.reader.Close(); err != nil {
			c.log.Warnw("kafka_reader_close_failed", "err", err)
		}
	}()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return nil
			}
			c.log.Warnw("kafka_fetch_failed", "err", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(fetchBackoff):
			}
			continue
		}

		if err := c.handle(ctx, msg); err != nil {
			if ctx.Err() != nil || errors.Is(err, service.ErrQueueClosed) {
				return nil
			}
			return err
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.log.Warnw("kafka_commit_failed", "partition", msg.Partition, "offset", msg.Offset, "err", err)
		}
	}
}

// handle returns an error only when the message must not be committed.
func (c *KafkaConsumer) handle(ctx context.Context, msg kafka.Message) error {
	in, err := decode(msg.Value)
	if err != nil {
		metrics.SourceMessagesTotal.WithLabelValues(sourceName, "rejected").Inc()
		c.log.Warnw("kafka_message_rejected", "partition", msg.Partition, "offset", msg.Offset, "err", err)
		return nil
	}

	if err := c.queue.Submit(ctx, in); err != nil {
		metrics.SourceMessagesTotal.WithLabelValues(sourceName, "failed").Inc()
		return fmt.Errorf("submit reading at offset %d: %w", msg.Offset, err)
	}
	metrics.SourceMessagesTotal.WithLabelValues(sourceName, "accepted").Inc()
	return nil
}

func decode(value []byte) (service.ReadingInput, error) {
	var p service.ReadingPayload
	if err := json.Unmarshal(value, &p); err != nil {
		return service.ReadingInput{}, fmt.Errorf("decode payload: %w", err)
	}
	in, err := p.ToInput()
	if err != nil {
		return service.ReadingInput{}, err
	}
	in.Source = sourceName
	return in, nil
}
