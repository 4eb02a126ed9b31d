package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/bkowalczyk/trade-engine/internal/models"
)

// BarRepository defines the interface for storing incoming market bars
type BarRepository interface {
	UpsertRealTimeBar(bar *models.RealTimeBar) error
}

// BarCache keeps the latest bar per symbol hot for the live trigger's price
// reads. A nil cache is valid; lookups then fall through to the repository.
type BarCache interface {
	SetLatestBar(ctx context.Context, bar *models.RealTimeBar) error
}

// Consumer ingests market-data bar events from the feed bridge and keeps the
// latest intraday bar per symbol current for the live trigger.
type Consumer struct {
	reader *kafka.Reader
	repo   BarRepository
	cache  BarCache
}

// NewConsumer creates a new Kafka consumer for bar events
func NewConsumer(brokers []string, topic, groupID string, repo BarRepository, cache BarCache) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader: reader,
		repo:   repo,
		cache:  cache,
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	log.Printf("Starting Kafka consumer for topic: %s", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Println("Kafka consumer shutting down...")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				log.Printf("Error reading message: %v", err)
				continue
			}

			if err := c.processMessage(ctx, msg); err != nil {
				log.Printf("Error processing message: %v", err)
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event models.BarEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal bar event: %w", err)
	}

	// Only process BAR_DETECTED events
	if event.EventType != "BAR_DETECTED" {
		log.Printf("Ignoring event type: %s", event.EventType)
		return nil
	}

	bar, err := c.convertEventToBar(event)
	if err != nil {
		return fmt.Errorf("failed to convert event to bar: %w", err)
	}

	if err := c.repo.UpsertRealTimeBar(bar); err != nil {
		return fmt.Errorf("failed to save bar: %w", err)
	}

	// The bar is persisted at this point; a cache write failure only costs
	// the live worker a database read.
	if c.cache != nil {
		if err := c.cache.SetLatestBar(ctx, bar); err != nil {
			log.Printf("Failed to cache bar for %s: %v", event.Data.Symbol, err)
		}
	}

	log.Printf("Saved bar for %s: close=%s at %s", event.Data.Symbol, bar.Close, bar.Timestamp)
	return nil
}

// convertEventToBar maps a BarEvent to a RealTimeBar model
func (c *Consumer) convertEventToBar(event models.BarEvent) (*models.RealTimeBar, error) {
	data := event.Data

	open, err := decimal.NewFromString(data.Open)
	if err != nil {
		return nil, fmt.Errorf("invalid open %s: %w", data.Open, err)
	}
	high, err := decimal.NewFromString(data.High)
	if err != nil {
		return nil, fmt.Errorf("invalid high %s: %w", data.High, err)
	}
	low, err := decimal.NewFromString(data.Low)
	if err != nil {
		return nil, fmt.Errorf("invalid low %s: %w", data.Low, err)
	}
	closePrice, err := decimal.NewFromString(data.Close)
	if err != nil {
		return nil, fmt.Errorf("invalid close %s: %w", data.Close, err)
	}

	// Parse bar timestamp
	var barTime time.Time
	if data.Timestamp != nil && *data.Timestamp != "" {
		barTime, err = time.Parse(time.RFC3339, *data.Timestamp)
		if err != nil {
			// Try parsing without timezone
			barTime, err = time.Parse("2006-01-02T15:04:05", *data.Timestamp)
			if err != nil {
				barTime = time.Now()
			}
		}
	} else {
		barTime = time.Now()
	}

	return &models.RealTimeBar{
		SymbolID:  data.SymbolID,
		Open:      open,
		High:      high,
		Low:       low,
		Close:     closePrice,
		Volume:    data.Volume,
		Timestamp: barTime,
		Updated:   time.Now(),
	}, nil
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
