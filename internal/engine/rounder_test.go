package engine

import (
	"errors"
	"testing"

	"normex/internal/exchange"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRule(step, tick, minQty, minNotional string) exchange.AssetRule {
	return exchange.AssetRule{
		Venue:       exchange.VenueBinance,
		Symbol:      "BTC/USDT",
		StepSize:    decimal.RequireFromString(step),
		TickSize:    decimal.RequireFromString(tick),
		MinQuantity: decimal.RequireFromString(minQty),
		MinNotional: decimal.RequireFromString(minNotional),
	}
}

func TestQuantityFromUSD(t *testing.T) {
	qty, err := QuantityFromUSD(decimal.NewFromInt(50), 10, decimal.NewFromInt(100))
	require.NoError(t, err)
	assert.True(t, qty.Equal(decimal.NewFromInt(5)), "got %s", qty)

	_, err = QuantityFromUSD(decimal.NewFromInt(50), 10, decimal.Zero)
	assert.Error(t, err)
}

func TestRoundQuantity(t *testing.T) {
	rule := testRule("0.001", "0.1", "0.001", "5")
	price := decimal.NewFromInt(100)

	t.Run("floors to step size", func(t *testing.T) {
		qty, err := RoundQuantity(decimal.RequireFromString("5.0004"), rule, price)
		require.NoError(t, err)
		assert.Equal(t, "5", qty.String())
	})

	t.Run("usd sizing end to end", func(t *testing.T) {
		raw, err := QuantityFromUSD(decimal.NewFromInt(50), 10, price)
		require.NoError(t, err)
		qty, err := RoundQuantity(raw, rule, price)
		require.NoError(t, err)
		assert.True(t, qty.Equal(decimal.RequireFromString("5.000")))
	})

	t.Run("below min quantity fails with min usd", func(t *testing.T) {
		_, err := RoundQuantity(decimal.RequireFromString("0.0004"), rule, price)
		require.Error(t, err)
		assert.True(t, errors.Is(err, exchange.ErrOrderTooSmall))
		assert.Contains(t, err.Error(), "0.10 USD")
	})

	t.Run("below min notional fails fast", func(t *testing.T) {
		// 0.01 × 100 = 1 USD < 5 USD floor
		_, err := RoundQuantity(decimal.RequireFromString("0.01"), rule, price)
		require.Error(t, err)
		assert.True(t, errors.Is(err, exchange.ErrOrderTooSmall))
	})

	t.Run("never rounds up", func(t *testing.T) {
		cases := []string{"0.0019", "1.2345", "7.8999", "0.001"}
		for _, raw := range cases {
			qty, err := RoundQuantity(decimal.RequireFromString(raw), rule, decimal.NewFromInt(100000))
			if err != nil {
				continue
			}
			assert.True(t, qty.LessThanOrEqual(decimal.RequireFromString(raw)), "raw=%s qty=%s", raw, qty)
			assert.True(t, qty.Mod(rule.StepSize).IsZero(), "raw=%s qty=%s not a step multiple", raw, qty)
		}
	})
}

func TestRoundPrice(t *testing.T) {
	rule := testRule("0.001", "0.1", "0.001", "5")

	t.Run("directional", func(t *testing.T) {
		raw := decimal.RequireFromString("100.1555")
		assert.Equal(t, "100.1", RoundPrice(raw, rule, RoundDown).String())
		assert.Equal(t, "100.2", RoundPrice(raw, rule, RoundUp).String())
	})

	t.Run("idempotent", func(t *testing.T) {
		for _, raw := range []string{"99.95", "100", "123.456", "0.07"} {
			for _, dir := range []PriceRounding{RoundDown, RoundUp} {
				once := RoundPrice(decimal.RequireFromString(raw), rule, dir)
				twice := RoundPrice(once, rule, dir)
				assert.True(t, once.Equal(twice), "raw=%s dir=%d", raw, dir)
			}
		}
	})
}

func TestTriggerRounding(t *testing.T) {
	assert.Equal(t, RoundUp, triggerRounding(exchange.SideLong))
	assert.Equal(t, RoundDown, triggerRounding(exchange.SideShort))
	assert.Equal(t, RoundDown, limitRounding(exchange.SideLong))
	assert.Equal(t, RoundUp, limitRounding(exchange.SideShort))
}
