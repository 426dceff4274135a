// Package kafkaqueue carries audit tasks over Kafka. The producer implements
// async.Queue; the consumer drives an async.Executor on the worker process.
// Kafka handles resolve at produce acknowledgment, since the task outcome
// materializes in a different process.
package kafkaqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"fyndora/internal/audit/async"
)

const DefaultTopic = "audit.tasks"

// Producer enqueues audit tasks onto a Kafka topic.
type Producer struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

func NewProducer(brokers []string, topic string, logger *slog.Logger) (*Producer, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Producer{client: client, topic: topic, logger: logger}, nil
}

// Enqueue publishes the task envelope. The handle resolves when the broker
// acknowledges the produce; the audit ID is not known at this point, so a
// successful handle carries an empty ID.
func (p *Producer) Enqueue(ctx context.Context, t async.Task) (*async.Handle, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("marshal audit task: %w", err)
	}

	h := async.NewHandle()
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(t.ID.String()),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("failed to produce audit task", "task_id", t.ID, "error", err)
		}
		h.Resolve("", err)
	})
	return h, nil
}

func (p *Producer) Close() {
	p.client.Close()
}
