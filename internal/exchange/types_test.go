package exchange

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVenue(t *testing.T) {
	v, err := ParseVenue("  Binance ")
	require.NoError(t, err)
	assert.Equal(t, VenueBinance, v)

	v, err = ParseVenue("HYPERLIQUID")
	require.NoError(t, err)
	assert.Equal(t, VenueHyperliquid, v)

	_, err = ParseVenue("kraken")
	assert.Error(t, err)
}

func TestSideOpposite(t *testing.T) {
	assert.Equal(t, SideShort, SideLong.Opposite())
	assert.Equal(t, SideLong, SideShort.Opposite())
}

func TestOrderIntentValidate(t *testing.T) {
	base := OrderIntent{
		Venue:  VenueBinance,
		Symbol: "BTC/USDT",
		Side:   SideLong,
		Mode:   ModeMarket,
		Sizing: SizeFromUSD(decimal.NewFromInt(50), 10),
	}
	assert.NoError(t, base.Validate())

	t.Run("missing symbol", func(t *testing.T) {
		i := base
		i.Symbol = "  "
		assert.Error(t, i.Validate())
	})

	t.Run("bad side", func(t *testing.T) {
		i := base
		i.Side = "BOTH"
		assert.Error(t, i.Validate())
	})

	t.Run("market rejects tif", func(t *testing.T) {
		i := base
		i.TimeInForce = TifGTC
		assert.Error(t, i.Validate())
	})

	t.Run("limit requires price", func(t *testing.T) {
		i := base
		i.Mode = ModeLimit
		assert.Error(t, i.Validate())
		i.LimitPrice = decimal.NewFromInt(100)
		assert.NoError(t, i.Validate())
	})

	t.Run("usd sizing bounds leverage", func(t *testing.T) {
		i := base
		i.Sizing = SizeFromUSD(decimal.NewFromInt(50), 126)
		assert.Error(t, i.Validate())
		i.Sizing = SizeFromUSD(decimal.NewFromInt(50), 0)
		assert.Error(t, i.Validate())
	})

	t.Run("usd sizing requires amount", func(t *testing.T) {
		i := base
		i.Sizing = SizeFromUSD(decimal.Zero, 10)
		assert.Error(t, i.Validate())
	})

	t.Run("base sizing requires quantity", func(t *testing.T) {
		i := base
		i.Sizing = SizeFromBase(decimal.Zero)
		assert.Error(t, i.Validate())
	})

	t.Run("sizing kind is required", func(t *testing.T) {
		i := base
		i.Sizing = Sizing{}
		assert.Error(t, i.Validate())
	})
}

func TestTriggerOrderIntentValidate(t *testing.T) {
	base := TriggerOrderIntent{
		Venue:        VenueBinance,
		Symbol:       "BTC/USDT",
		Kind:         TriggerStopMarket,
		Side:         SideShort,
		TriggerPrice: decimal.NewFromInt(90),
		Quantity:     decimal.NewFromInt(1),
	}
	assert.NoError(t, base.Validate())

	t.Run("stop market needs trigger price", func(t *testing.T) {
		i := base
		i.TriggerPrice = decimal.Zero
		assert.Error(t, i.Validate())
	})

	t.Run("trailing stop needs callback rate", func(t *testing.T) {
		i := base
		i.Kind = TriggerTrailingStopMarket
		assert.Error(t, i.Validate())
		i.CallbackRate = decimal.NewFromInt(1)
		assert.NoError(t, i.Validate())
	})

	t.Run("stop limit needs both prices", func(t *testing.T) {
		i := base
		i.Kind = TriggerStopLimit
		assert.Error(t, i.Validate())
		i.LimitPrice = decimal.NewFromInt(89)
		assert.NoError(t, i.Validate())
	})

	t.Run("unknown kind", func(t *testing.T) {
		i := base
		i.Kind = "ICEBERG"
		assert.Error(t, i.Validate())
	})
}

func TestExecutionResultConstructors(t *testing.T) {
	res := Executed(OrderAck{OrderID: "42", Status: "NEW"})
	assert.True(t, res.Success)
	assert.Equal(t, "42", res.OrderID)
	assert.Nil(t, res.Err)

	failed := Failed(VenueBinance, NewError(KindOrderTooSmall, VenueBinance, "tiny"))
	assert.False(t, failed.Success)
	require.NotNil(t, failed.Err)
	assert.Equal(t, KindOrderTooSmall, failed.Err.Kind)
}

func TestTpSlResultSuccess(t *testing.T) {
	ok := ExecutionResult{Success: true}
	bad := ExecutionResult{Err: &Error{Kind: KindOrderFailed}}

	assert.False(t, TpSlResult{}.Success())
	assert.True(t, TpSlResult{TakeProfit: &ok}.Success())
	assert.True(t, TpSlResult{TakeProfit: &ok, StopLoss: &ok}.Success())
	assert.False(t, TpSlResult{TakeProfit: &ok, StopLoss: &bad}.Success())
}
