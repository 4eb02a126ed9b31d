package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/bkowalczyk/trade-engine/internal/models"
)

// messageWriter is the slice of kafka.Writer the producer uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Producer publishes decision signals for the external executor.
type Producer struct {
	writer messageWriter
	topic  string
}

// NewProducer creates a new Kafka producer for signal events
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishBuySignal publishes a buy decision for a symbol
func (p *Producer) PublishBuySignal(ctx context.Context, symbolID int, symbol string, amount float64) error {
	event := models.SignalEvent{
		EventType: models.EventBuySignal,
		Symbol:    symbol,
		SymbolID:  symbolID,
		Amount:    amount,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, symbol, event)
}

// PublishSellSignal publishes a sell decision for a symbol
func (p *Producer) PublishSellSignal(ctx context.Context, symbolID int, symbol, reason string) error {
	event := models.SignalEvent{
		EventType: models.EventSellSignal,
		Symbol:    symbol,
		SymbolID:  symbolID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, symbol, event)
}

// PublishPositionClosed publishes a liquidation record
func (p *Producer) PublishPositionClosed(ctx context.Context, symbolID int, position *models.ClosedPosition) error {
	event := models.SignalEvent{
		EventType: models.EventPositionClosed,
		Symbol:    position.Symbol,
		SymbolID:  symbolID,
		Reason:    position.SellReason,
		Position:  position,
		Timestamp: time.Now(),
	}
	return p.publish(ctx, position.Symbol, event)
}

func (p *Producer) publish(ctx context.Context, key string, event models.SignalEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
