package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"course-purchase/internal/config"
	"course-purchase/internal/model"

	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes purchase outcomes keyed by session so a session's events stay ordered.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(kafkaCfg *config.Kafka) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(kafkaCfg.Brokers...),
			Topic:        kafkaCfg.Topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
		},
	}
}

func (p *KafkaPublisher) PublishOutcome(ctx context.Context, outcome model.PurchaseOutcome) error {
	value, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("marshal outcome: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(outcome.SessionID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "state", Value: []byte(outcome.State)},
		},
	})
	if err != nil {
		return fmt.Errorf("write outcome message: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher is used when no brokers are configured.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log}
}

func (p *LogPublisher) PublishOutcome(_ context.Context, outcome model.PurchaseOutcome) error {
	p.log.Info("purchase outcome",
		slog.String("session_id", outcome.SessionID),
		slog.String("course_id", outcome.CourseID),
		slog.String("order_id", outcome.OrderID),
		slog.String("state", outcome.State.String()),
		slog.String("error", outcome.Error))
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
