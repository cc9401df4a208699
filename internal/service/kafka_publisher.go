package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/RizzWan-Codes/homedoctor.ai/internal/domain"
)

type balanceEventMessage struct {
	EventID       string    `json:"event_id"`
	OperationID   string    `json:"operation_id"`
	UserID        string    `json:"user_id"`
	Type          string    `json:"type"`
	Reason        string    `json:"reason"`
	Amount        int64     `json:"amount"`
	BalanceBefore int64     `json:"balance_before"`
	BalanceAfter  int64     `json:"balance_after"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// KafkaPublisher writes balance events synchronously so the relay only
// marks what the brokers acknowledged.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			WriteTimeout: 10 * time.Second,
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  3,
			Logger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
				logger.Debug(fmt.Sprintf(msg, args...), "component", "kafka")
			}),
			ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
				logger.Error(fmt.Sprintf(msg, args...), "component", "kafka")
			}),
		},
	}
}

// Publish keys each message by user id so one account's events stay
// ordered within a partition.
func (p *KafkaPublisher) Publish(ctx context.Context, events []domain.BalanceEvent) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msg, err := encodeBalanceEvent(e)
		if err != nil {
			return fmt.Errorf("Publish: %w", err)
		}
		msgs = append(msgs, msg)
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("Publish: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("KafkaPublisher.Close: %w", err)
	}
	return nil
}

func encodeBalanceEvent(e domain.BalanceEvent) (kafka.Message, error) {
	value, err := json.Marshal(balanceEventMessage{
		EventID:       e.ID.String(),
		OperationID:   e.OperationID.String(),
		UserID:        e.UserID,
		Type:          string(e.EventType),
		Reason:        string(e.Reason),
		Amount:        e.Amount,
		BalanceBefore: e.BalanceBefore,
		BalanceAfter:  e.BalanceAfter,
		OccurredAt:    e.CreatedAt,
	})
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode event %s: %w", e.ID, err)
	}
	return kafka.Message{
		Key:   []byte(e.UserID),
		Value: value,
		Time:  e.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(e.EventType)},
		},
	}, nil
}
