package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkowalczyk/trade-engine/internal/models"
)

func TestStateRepository(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	testDB := SetupTestDB(t)
	defer testDB.Cleanup(t)

	createSymbol := func(t *testing.T, name string) *models.Symbol {
		t.Helper()
		s := &models.Symbol{Symbol: name, Enabled: true}
		require.NoError(t, testDB.CreateSymbol(s))
		return s
	}

	t.Run("GetState defaults to closed for a missing row", func(t *testing.T) {
		testDB.TruncateAll(t)
		s := createSymbol(t, "AAPL")

		state, err := testDB.GetState(s.ID)
		require.NoError(t, err)
		assert.Equal(t, s.ID, state.SymbolID)
		assert.Equal(t, models.StatusClosed, state.Status)
		assert.False(t, state.IsOpen())
		assert.True(t, state.LastAction.IsZero())
	})

	t.Run("UpsertState round-trips every field", func(t *testing.T) {
		testDB.TruncateAll(t)
		s := createSymbol(t, "AAPL")

		want := models.SymbolState{
			SymbolID:      s.ID,
			Status:        models.StatusOpen,
			Buy:           true,
			ShouldSell:    true,
			Checked:       time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
			LastAction:    time.Date(2026, 3, 9, 15, 0, 0, 0, time.UTC),
			Invested:      60,
			Shares:        12.5,
			MaxValue:      75.25,
			AmountBuySell: 10,
		}
		require.NoError(t, testDB.UpsertState(want))

		got, err := testDB.GetState(s.ID)
		require.NoError(t, err)
		assert.Equal(t, want.Status, got.Status)
		assert.Equal(t, want.Buy, got.Buy)
		assert.Equal(t, want.ShouldSell, got.ShouldSell)
		assert.False(t, got.Sell)
		assert.True(t, want.Checked.Equal(got.Checked))
		assert.True(t, want.LastAction.Equal(got.LastAction))
		assert.Equal(t, want.Invested, got.Invested)
		assert.Equal(t, want.Shares, got.Shares)
		assert.Equal(t, want.MaxValue, got.MaxValue)
		assert.Equal(t, want.AmountBuySell, got.AmountBuySell)
	})

	t.Run("UpsertState overwrites an existing row", func(t *testing.T) {
		testDB.TruncateAll(t)
		s := createSymbol(t, "AAPL")

		state := models.NewClosedState(s.ID)
		state.Buy = true
		require.NoError(t, testDB.UpsertState(state))

		state.Buy = false
		state.Status = models.StatusOpen
		state.Invested = 10
		require.NoError(t, testDB.UpsertState(state))

		got, err := testDB.GetState(s.ID)
		require.NoError(t, err)
		assert.False(t, got.Buy)
		assert.True(t, got.IsOpen())
		assert.Equal(t, 10.0, got.Invested)
	})

	t.Run("zero times persist as NULL and read back as zero", func(t *testing.T) {
		testDB.TruncateAll(t)
		s := createSymbol(t, "AAPL")

		require.NoError(t, testDB.UpsertState(models.NewClosedState(s.ID)))

		got, err := testDB.GetState(s.ID)
		require.NoError(t, err)
		assert.True(t, got.Checked.IsZero())
		assert.True(t, got.LastAction.IsZero())
	})
}
