package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkowalczyk/trade-engine/internal/models"
)

// MockBarRepository implements BarRepository for testing
type MockBarRepository struct {
	bars        map[int]*models.RealTimeBar
	upsertErr   error
	UpsertCalls int
}

func NewMockBarRepository() *MockBarRepository {
	return &MockBarRepository{bars: make(map[int]*models.RealTimeBar)}
}

func (m *MockBarRepository) UpsertRealTimeBar(bar *models.RealTimeBar) error {
	m.UpsertCalls++
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.bars[bar.SymbolID] = bar
	return nil
}

// MockBarCache implements BarCache for testing
type MockBarCache struct {
	bars   map[int]*models.RealTimeBar
	setErr error
}

func NewMockBarCache() *MockBarCache {
	return &MockBarCache{bars: make(map[int]*models.RealTimeBar)}
}

func (m *MockBarCache) SetLatestBar(ctx context.Context, bar *models.RealTimeBar) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.bars[bar.SymbolID] = bar
	return nil
}

func barMessage(payload string) kafka.Message {
	return kafka.Message{Key: []byte("AAPL"), Value: []byte(payload)}
}

func TestProcessMessageSavesBar(t *testing.T) {
	repo := NewMockBarRepository()
	consumer := &Consumer{repo: repo}

	err := consumer.processMessage(context.Background(), barMessage(`{
		"event_type": "BAR_DETECTED",
		"source": "feed-bridge",
		"data": {
			"symbol_id": 7,
			"symbol": "AAPL",
			"open": "101.5",
			"high": "103.25",
			"low": "100.75",
			"close": "102.00",
			"volume": 15000,
			"timestamp": "2026-03-10T14:30:00Z"
		}
	}`))
	require.NoError(t, err)
	require.Equal(t, 1, repo.UpsertCalls)

	bar := repo.bars[7]
	require.NotNil(t, bar)
	assert.Equal(t, 7, bar.SymbolID)
	assert.True(t, decimal.NewFromFloat(101.5).Equal(bar.Open))
	assert.True(t, decimal.NewFromFloat(103.25).Equal(bar.High))
	assert.True(t, decimal.NewFromFloat(100.75).Equal(bar.Low))
	assert.True(t, decimal.NewFromFloat(102.00).Equal(bar.Close))
	assert.Equal(t, int64(15000), bar.Volume)
	assert.Equal(t, time.Date(2026, 3, 10, 14, 30, 0, 0, time.UTC), bar.Timestamp.UTC())
	assert.False(t, bar.Updated.IsZero())
}

func TestProcessMessageCachesBarAfterSave(t *testing.T) {
	repo := NewMockBarRepository()
	quoteCache := NewMockBarCache()
	consumer := &Consumer{repo: repo, cache: quoteCache}

	err := consumer.processMessage(context.Background(), barMessage(`{
		"event_type": "BAR_DETECTED",
		"data": {"symbol_id": 7, "open": "1", "high": "2", "low": "0.5", "close": "1.5"}
	}`))
	require.NoError(t, err)
	require.Equal(t, 1, repo.UpsertCalls)

	cached := quoteCache.bars[7]
	require.NotNil(t, cached)
	assert.True(t, decimal.NewFromFloat(2).Equal(cached.High))
	assert.True(t, decimal.NewFromFloat(0.5).Equal(cached.Low))
}

func TestProcessMessageToleratesCacheFailure(t *testing.T) {
	repo := NewMockBarRepository()
	quoteCache := NewMockBarCache()
	quoteCache.setErr = errors.New("redis down")
	consumer := &Consumer{repo: repo, cache: quoteCache}

	// The persisted bar is the source of truth; a cache write failure must
	// not bubble up as a processing error.
	err := consumer.processMessage(context.Background(), barMessage(`{
		"event_type": "BAR_DETECTED",
		"data": {"symbol_id": 7, "open": "1", "high": "1", "low": "1", "close": "1"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, 1, repo.UpsertCalls)
	assert.Empty(t, quoteCache.bars)
}

func TestProcessMessageCacheSkippedWhenAbsent(t *testing.T) {
	repo := NewMockBarRepository()
	consumer := &Consumer{repo: repo}

	err := consumer.processMessage(context.Background(), barMessage(`{
		"event_type": "BAR_DETECTED",
		"data": {"symbol_id": 7, "open": "1", "high": "1", "low": "1", "close": "1"}
	}`))
	require.NoError(t, err)
	assert.Equal(t, 1, repo.UpsertCalls)
}

func TestProcessMessageIgnoresOtherEventTypes(t *testing.T) {
	repo := NewMockBarRepository()
	consumer := &Consumer{repo: repo}

	err := consumer.processMessage(context.Background(), barMessage(`{"event_type": "HEARTBEAT"}`))
	require.NoError(t, err)
	assert.Zero(t, repo.UpsertCalls)
}

func TestProcessMessageRejectsMalformedJSON(t *testing.T) {
	repo := NewMockBarRepository()
	consumer := &Consumer{repo: repo}

	err := consumer.processMessage(context.Background(), barMessage(`{not json`))
	require.Error(t, err)
	assert.Zero(t, repo.UpsertCalls)
}

func TestProcessMessageRejectsBadPrices(t *testing.T) {
	repo := NewMockBarRepository()
	consumer := &Consumer{repo: repo}

	err := consumer.processMessage(context.Background(), barMessage(`{
		"event_type": "BAR_DETECTED",
		"data": {"symbol_id": 7, "open": "oops", "high": "1", "low": "1", "close": "1"}
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid open")
	assert.Zero(t, repo.UpsertCalls)
}

func TestProcessMessagePropagatesRepositoryError(t *testing.T) {
	repo := NewMockBarRepository()
	repo.upsertErr = errors.New("db down")
	consumer := &Consumer{repo: repo}

	err := consumer.processMessage(context.Background(), barMessage(`{
		"event_type": "BAR_DETECTED",
		"data": {"symbol_id": 7, "open": "1", "high": "1", "low": "1", "close": "1"}
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save bar")
}

func TestConvertEventToBarTimestamps(t *testing.T) {
	consumer := &Consumer{}

	mkEvent := func(ts *string) models.BarEvent {
		return models.BarEvent{
			EventType: "BAR_DETECTED",
			Data: models.BarData{
				SymbolID:  1,
				Open:      "1",
				High:      "2",
				Low:       "0.5",
				Close:     "1.5",
				Timestamp: ts,
			},
		}
	}

	t.Run("RFC3339 timestamp", func(t *testing.T) {
		ts := "2026-03-10T14:30:00+01:00"
		bar, err := consumer.convertEventToBar(mkEvent(&ts))
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 10, 13, 30, 0, 0, time.UTC), bar.Timestamp.UTC())
	})

	t.Run("naive timestamp without zone", func(t *testing.T) {
		ts := "2026-03-10T14:30:00"
		bar, err := consumer.convertEventToBar(mkEvent(&ts))
		require.NoError(t, err)
		assert.Equal(t, 14, bar.Timestamp.Hour())
	})

	t.Run("missing timestamp falls back to now", func(t *testing.T) {
		bar, err := consumer.convertEventToBar(mkEvent(nil))
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), bar.Timestamp, time.Minute)
	})

	t.Run("unparsable timestamp falls back to now", func(t *testing.T) {
		ts := "yesterday"
		bar, err := consumer.convertEventToBar(mkEvent(&ts))
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), bar.Timestamp, time.Minute)
	})
}
