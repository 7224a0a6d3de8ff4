package events

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type messageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Consumer struct {
	reader  messageReader
	handler Handler
	log     *zap.Logger
}

func NewConsumer(handler Handler, log *zap.Logger, topic, groupID string, brokers ...string) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
	return &Consumer{reader: reader, handler: handler, log: log}
}

// Run reads until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		c.processMessage(ctx)
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.log.Warn("error closing kafka reader", zap.Error(err))
	}
}

func (c *Consumer) processMessage(ctx context.Context) {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.log.Error("error reading message", zap.Error(err))
		return
	}

	var event Event
	if err := json.Unmarshal(m.Value, &event); err != nil {
		c.log.Warn("skipping undecodable message",
			zap.Int64("offset", m.Offset),
			zap.ByteString("key", m.Key),
			zap.Error(err))
		return
	}

	if err := c.handler.Handle(ctx, event); err != nil {
		c.log.Error("event handler failed",
			zap.String("type", event.Type),
			zap.Stringer("order_id", event.OrderID),
			zap.Error(err))
	}
}
