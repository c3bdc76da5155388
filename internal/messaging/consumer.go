package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/focusshift/zeiterfassung/internal/metrics"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// PayloadField is the stream entry field carrying the JSON event
const PayloadField = "payload"

const (
	defaultBlock         = 5 * time.Second
	defaultCount         = 16
	defaultRetryInterval = time.Minute
)

// ErrMalformed marks messages that can never be handled; they are acknowledged and dropped
var ErrMalformed = errors.New("malformed message")

// Handler processes one message payload
type Handler func(ctx context.Context, payload []byte) error

// Decode adapts a typed event handler to a payload Handler
func Decode[T any](handle func(ctx context.Context, event T) error) Handler {
	return func(ctx context.Context, payload []byte) error {
		var event T
		if err := json.Unmarshal(payload, &event); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		return handle(ctx, event)
	}
}

// StreamClient is the subset of go-redis the consumer needs
type StreamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

// Consumer reads Redis Streams as a member of a consumer group.
// Messages are acknowledged after their handler succeeded; failed messages stay pending.
// The pending entries of this consumer are processed on start and again every retry interval.
type Consumer struct {
	client        StreamClient
	group         string
	name          string
	handlers      map[string]Handler
	streams       []string
	block         time.Duration
	count         int64
	retryInterval time.Duration
	logger        *zap.Logger
}

// NewConsumer creates a new Consumer
func NewConsumer(client StreamClient, group, name string, logger *zap.Logger) *Consumer {
	return &Consumer{
		client:        client,
		group:         group,
		name:          name,
		handlers:      make(map[string]Handler),
		block:         defaultBlock,
		count:         defaultCount,
		retryInterval: defaultRetryInterval,
		logger:        logger,
	}
}

// SetRetryInterval sets how often failed pending messages are retried
func (c *Consumer) SetRetryInterval(d time.Duration) {
	if d > 0 {
		c.retryInterval = d
	}
}

// Handle registers the handler of a stream
func (c *Consumer) Handle(stream string, h Handler) {
	if _, exists := c.handlers[stream]; !exists {
		c.streams = append(c.streams, stream)
	}
	c.handlers[stream] = h
}

// Streams returns the registered stream names
func (c *Consumer) Streams() []string {
	return append([]string(nil), c.streams...)
}

// EnsureGroups creates the consumer group on every stream, creating missing streams
func (c *Consumer) EnsureGroups(ctx context.Context) error {
	for _, stream := range c.streams {
		err := c.client.XGroupCreateMkStream(ctx, stream, c.group, "0").Err()
		if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
			return fmt.Errorf("failed to create consumer group %s on %s: %w", c.group, stream, err)
		}
	}
	return nil
}

// Run consumes until ctx is cancelled. Pending messages of this consumer are processed first.
func (c *Consumer) Run(ctx context.Context) error {
	if len(c.streams) == 0 {
		return nil
	}
	if err := c.EnsureGroups(ctx); err != nil {
		return err
	}

	c.logger.Info("Stream consumer started",
		zap.String("group", c.group),
		zap.String("consumer", c.name),
		zap.Strings("streams", c.streams),
		zap.Duration("retry_interval", c.retryInterval))

	c.retryPending(ctx)
	lastRetry := time.Now()

	for {
		if ctx.Err() != nil {
			c.logger.Info("Stream consumer stopped")
			return nil
		}
		if time.Since(lastRetry) >= c.retryInterval {
			c.retryPending(ctx)
			lastRetry = time.Now()
		}
		if err := c.poll(ctx); err != nil {
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("Failed to read streams", zap.Error(err))
			select {
			case <-ctx.Done():
			case <-time.After(time.Second):
			}
		}
	}
}

func (c *Consumer) retryPending(ctx context.Context) {
	if err := c.drainPending(ctx); err != nil && ctx.Err() == nil {
		c.logger.Warn("Failed to process pending messages", zap.Error(err))
	}
}

// poll reads and processes one batch of new messages
func (c *Consumer) poll(ctx context.Context) error {
	ids := make([]string, len(c.streams))
	for i := range ids {
		ids[i] = ">"
	}

	result, err := c.read(ctx, c.streams, ids, c.block)
	if err != nil {
		return err
	}
	for _, stream := range result {
		for _, msg := range stream.Messages {
			c.process(ctx, stream.Stream, msg)
		}
	}
	return nil
}

// drainPending walks the pending entries of this consumer batch by batch.
// Each stream is read from after the last entry returned until a batch comes back empty,
// so entries that fail again are skipped in this pass and stay pending.
func (c *Consumer) drainPending(ctx context.Context) error {
	cursors := make(map[string]string, len(c.streams))
	active := make([]string, len(c.streams))
	copy(active, c.streams)
	for _, stream := range active {
		cursors[stream] = "0"
	}

	for len(active) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}

		ids := make([]string, len(active))
		for i, stream := range active {
			ids[i] = cursors[stream]
		}
		result, err := c.read(ctx, active, ids, -1)
		if err != nil {
			return err
		}

		read := make(map[string]int, len(result))
		for _, stream := range result {
			for _, msg := range stream.Messages {
				c.process(ctx, stream.Stream, msg)
				cursors[stream.Stream] = msg.ID
			}
			read[stream.Stream] += len(stream.Messages)
		}

		remaining := active[:0]
		for _, stream := range active {
			if read[stream] > 0 {
				remaining = append(remaining, stream)
			}
		}
		active = remaining
	}
	return nil
}

// read issues one XREADGROUP; ids holds the start id per stream. A negative block does not block.
func (c *Consumer) read(ctx context.Context, streams, ids []string, block time.Duration) ([]redis.XStream, error) {
	args := make([]string, 0, 2*len(streams))
	args = append(args, streams...)
	args = append(args, ids...)

	result, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.name,
		Streams:  args,
		Count:    c.count,
		Block:    block,
	}).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return result, err
}

func (c *Consumer) process(ctx context.Context, stream string, msg redis.XMessage) {
	logger := c.logger.With(zap.String("stream", stream), zap.String("message_id", msg.ID))

	handler, ok := c.handlers[stream]
	if !ok {
		logger.Warn("No handler for stream")
		return
	}

	payload, ok := msg.Values[PayloadField].(string)
	if !ok {
		logger.Warn("Message without payload, dropping")
		metrics.ObserveEvent(stream, "skipped")
		c.ack(ctx, stream, msg.ID, logger)
		return
	}

	if err := handler(ctx, []byte(payload)); err != nil {
		if errors.Is(err, ErrMalformed) {
			logger.Warn("Malformed message, dropping", zap.Error(err))
			metrics.ObserveEvent(stream, "skipped")
			c.ack(ctx, stream, msg.ID, logger)
			return
		}
		logger.Error("Failed to handle message, leaving it pending", zap.Error(err))
		metrics.ObserveEvent(stream, "failed")
		return
	}

	metrics.ObserveEvent(stream, "handled")
	c.ack(ctx, stream, msg.ID, logger)
}

func (c *Consumer) ack(ctx context.Context, stream, id string, logger *zap.Logger) {
	if err := c.client.XAck(ctx, stream, c.group, id).Err(); err != nil {
		logger.Error("Failed to acknowledge message", zap.Error(err))
	}
}
