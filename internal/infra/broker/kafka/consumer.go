package kafka

import (
	"context"
	"log/slog"

	"github.com/IBM/sarama"
)

type MessageHandler interface {
	Handle(ctx context.Context, msg *sarama.ConsumerMessage) error
}

// Consumer wraps a sarama consumer group and feeds every claimed message to a
// MessageHandler. Handler failures leave the message unmarked, so the group
// redelivers it on the next rebalance or restart.
type Consumer struct {
	group   sarama.ConsumerGroup
	handler MessageHandler
	logger  *slog.Logger
}

func NewConsumer(brokers []string, groupID string, cfg *sarama.Config, handler MessageHandler, logger *slog.Logger) (*Consumer, error) {
	if cfg == nil {
		cfg = sarama.NewConfig()
	}
	cfg.Version = sarama.V2_5_0_0
	cfg.Consumer.Return.Errors = true
	g, err := sarama.NewConsumerGroup(brokers, groupID, cfg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{group: g, handler: handler, logger: logger}, nil
}

// Run blocks consuming topics until ctx is cancelled. Consume returning
// without an error means a rebalance happened; the session is simply
// re-entered.
func (c *Consumer) Run(ctx context.Context, topics []string) error {
	go c.drainErrors()
	for {
		if err := c.group.Consume(ctx, topics, consumerGroupHandler{handler: c.handler, logger: c.logger}); err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Info("consumer group rebalanced", "topics", topics)
	}
}

// drainErrors surfaces asynchronous group errors (broker disconnects, offset
// commit failures) that Consume does not return. The channel closes when the
// group does.
func (c *Consumer) drainErrors() {
	for err := range c.group.Errors() {
		c.logger.Error("consumer group error", "error", err)
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type consumerGroupHandler struct {
	handler MessageHandler
	logger  *slog.Logger
}

func (h consumerGroupHandler) Setup(sess sarama.ConsumerGroupSession) error {
	h.logger.Info("consumer session started", "claims", sess.Claims())
	return nil
}

func (h consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h consumerGroupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		if err := h.handler.Handle(sess.Context(), message); err != nil {
			h.logger.Warn("message handling failed, left unmarked for redelivery",
				"topic", message.Topic, "partition", message.Partition, "offset", message.Offset, "error", err)
			continue
		}
		sess.MarkMessage(message, "")
	}
	return nil
}
