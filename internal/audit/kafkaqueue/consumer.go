package kafkaqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"fyndora/internal/audit"
	"fyndora/internal/audit/async"
)

// Consumer polls the audit task topic and executes each task with bounded
// retries. Malformed messages are logged and skipped so they cannot wedge
// the partition; exhausted retries are terminal and the offset advances,
// matching the at-most-bounded-attempts delivery contract.
type Consumer struct {
	client  *kgo.Client
	exec    async.Executor
	policy  async.RetryPolicy
	logger  *slog.Logger
	metrics *audit.Metrics
}

func NewConsumer(brokers []string, topic, group string, exec async.Executor, policy async.RetryPolicy, logger *slog.Logger, metrics *audit.Metrics) (*Consumer, error) {
	if topic == "" {
		topic = DefaultTopic
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumeTopics(topic),
		kgo.ConsumerGroup(group),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return &Consumer{
		client:  client,
		exec:    exec,
		policy:  policy,
		logger:  logger,
		metrics: metrics,
	}, nil
}

// Run polls until ctx is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.logger.Error("kafka fetch error", "topic", topic, "partition", partition, "error", err)
		})
		fetches.EachRecord(func(record *kgo.Record) {
			c.handle(ctx, record)
		})
	}
}

func (c *Consumer) Close() {
	c.client.Close()
}

func (c *Consumer) handle(ctx context.Context, record *kgo.Record) {
	var task async.Task
	if err := json.Unmarshal(record.Value, &task); err != nil {
		c.logger.Warn("skipping malformed audit task",
			"key", string(record.Key),
			"error", err,
		)
		return
	}

	for attempt := 0; ; attempt++ {
		_, err := c.exec.Execute(ctx, task)
		if err == nil {
			return
		}
		if attempt >= c.policy.MaxRetries || !c.policy.Retryable(err) {
			c.metrics.IncTaskFailed()
			c.logger.Error("audit task failed",
				"task_id", task.ID,
				"kind", task.Kind,
				"attempts", attempt+1,
				"error", err,
			)
			return
		}
		c.metrics.IncTaskRetry()
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.policy.Backoff):
		}
	}
}
