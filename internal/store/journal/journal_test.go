package journal

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"normex/internal/engine"
	"normex/internal/exchange"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresPath(t *testing.T) {
	_, err := New("  ")
	assert.Error(t, err)
}

func TestRecordAndRecent(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)

	ctx := context.Background()
	base := time.Now().Truncate(time.Second)
	for i, op := range []string{"open", "close", "take_profit"} {
		store.Record(ctx, engine.JournalEntry{
			Venue:     exchange.VenueBinance,
			Symbol:    "BTC/USDT",
			Operation: op,
			Side:      exchange.SideLong,
			Quantity:  decimal.NewFromInt(int64(i + 1)),
			Price:     decimal.NewFromInt(100),
			OrderID:   "101",
			Status:    "NEW",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		})
	}

	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Newest first.
	assert.Equal(t, "take_profit", entries[0].Operation)
	assert.Equal(t, "close", entries[1].Operation)
	assert.Equal(t, exchange.VenueBinance, entries[0].Venue)
	assert.True(t, entries[0].Quantity.Equal(decimal.NewFromInt(3)))
}

func TestRecentDefaultsLimit(t *testing.T) {
	store, err := New(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)

	store.Record(context.Background(), engine.JournalEntry{
		Venue:     exchange.VenueHyperliquid,
		Symbol:    "ETH/USDT",
		Operation: "open",
		Quantity:  decimal.NewFromInt(1),
		Price:     decimal.Zero,
		ErrorKind: exchange.KindOrderFailed,
		RawError:  "rejected",
		CreatedAt: time.Now(),
	})

	entries, err := store.Recent(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, exchange.KindOrderFailed, entries[0].ErrorKind)
	assert.Equal(t, "rejected", entries[0].RawError)
}
