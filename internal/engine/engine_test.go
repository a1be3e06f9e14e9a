package engine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"normex/internal/exchange"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memJournal struct {
	mu      sync.Mutex
	entries []JournalEntry
}

func (j *memJournal) Record(ctx context.Context, entry JournalEntry) {
	j.mu.Lock()
	j.entries = append(j.entries, entry)
	j.mu.Unlock()
}

func TestOpenPositionUSDMarket(t *testing.T) {
	stub := newStubAdapter(exchange.VenueBinance)
	journal := &memJournal{}
	e := New([]exchange.Adapter{stub}, Options{Journal: journal})

	res := e.OpenPosition(context.Background(), exchange.OrderIntent{
		Venue:  exchange.VenueBinance,
		Symbol: "BTC/USDT",
		Side:   exchange.SideLong,
		Mode:   exchange.ModeMarket,
		Sizing: exchange.SizeFromUSD(decimal.NewFromInt(50), 10),
	})

	require.True(t, res.Success, "err: %v", res.Err)
	assert.Equal(t, "101", res.OrderID)
	require.Len(t, stub.placedOrders, 1)
	// 50 USD × 10x at mark 100 = 5 base, already step-aligned.
	assert.True(t, stub.placedOrders[0].Quantity.Equal(decimal.NewFromInt(5)))
	assert.False(t, stub.placedOrders[0].ReduceOnly)

	require.Len(t, journal.entries, 1)
	assert.Equal(t, "open", journal.entries[0].Operation)
	assert.Equal(t, "101", journal.entries[0].OrderID)
	assert.False(t, journal.entries[0].CreatedAt.IsZero())
}

func TestOpenPositionLimitRoundsTowardCaller(t *testing.T) {
	stub := newStubAdapter(exchange.VenueBinance)
	e := newTestEngine(stub)

	res := e.OpenPosition(context.Background(), exchange.OrderIntent{
		Venue:      exchange.VenueBinance,
		Symbol:     "BTC/USDT",
		Side:       exchange.SideLong,
		Mode:       exchange.ModeLimit,
		Sizing:     exchange.SizeFromBase(decimal.NewFromInt(1)),
		LimitPrice: decimal.RequireFromString("99.97"),
	})

	require.True(t, res.Success, "err: %v", res.Err)
	require.Len(t, stub.placedOrders, 1)
	// A buy limit never rounds above the requested price.
	assert.Equal(t, "99.9", stub.placedOrders[0].LimitPrice.String())
	assert.Equal(t, exchange.TifGTC, stub.placedOrders[0].TimeInForce)
}

func TestOpenPositionTooSmallFailsBeforePlacement(t *testing.T) {
	stub := newStubAdapter(exchange.VenueBinance)
	e := newTestEngine(stub)

	res := e.OpenPosition(context.Background(), exchange.OrderIntent{
		Venue:  exchange.VenueBinance,
		Symbol: "BTC/USDT",
		Side:   exchange.SideLong,
		Mode:   exchange.ModeMarket,
		Sizing: exchange.SizeFromBase(decimal.RequireFromString("0.0004")),
	})

	require.False(t, res.Success)
	require.NotNil(t, res.Err)
	assert.Equal(t, exchange.KindOrderTooSmall, res.Err.Kind)
	assert.Equal(t, int32(0), stub.placeCalls.Load())
}

func TestOpenPositionValidatesIntentLocally(t *testing.T) {
	stub := newStubAdapter(exchange.VenueBinance)
	e := newTestEngine(stub)

	res := e.OpenPosition(context.Background(), exchange.OrderIntent{
		Venue:  exchange.VenueBinance,
		Symbol: "BTC/USDT",
		Side:   exchange.Side("SIDEWAYS"),
		Mode:   exchange.ModeMarket,
		Sizing: exchange.SizeFromBase(decimal.NewFromInt(1)),
	})

	require.False(t, res.Success)
	assert.Equal(t, int32(0), stub.ruleCalls.Load())
	assert.Equal(t, int32(0), stub.placeCalls.Load())
}

func TestOpenPositionReduceOnlyCapsAtPosition(t *testing.T) {
	stub := newStubAdapter(exchange.VenueBinance)
	stub.position = longPosition(exchange.VenueBinance, "2", "100")
	e := newTestEngine(stub)

	res := e.OpenPosition(context.Background(), exchange.OrderIntent{
		Venue:      exchange.VenueBinance,
		Symbol:     "BTC/USDT",
		Side:       exchange.SideShort,
		Mode:       exchange.ModeMarket,
		Sizing:     exchange.SizeFromBase(decimal.NewFromInt(10)),
		ReduceOnly: true,
	})

	require.True(t, res.Success, "err: %v", res.Err)
	require.Len(t, stub.placedOrders, 1)
	assert.True(t, stub.placedOrders[0].Quantity.Equal(decimal.NewFromInt(2)))
}

func TestOpenPositionReduceOnlyWithoutPosition(t *testing.T) {
	stub := newStubAdapter(exchange.VenueBinance)
	e := newTestEngine(stub)

	res := e.OpenPosition(context.Background(), exchange.OrderIntent{
		Venue:      exchange.VenueBinance,
		Symbol:     "BTC/USDT",
		Side:       exchange.SideShort,
		Mode:       exchange.ModeMarket,
		Sizing:     exchange.SizeFromBase(decimal.NewFromInt(1)),
		ReduceOnly: true,
	})

	require.False(t, res.Success)
	require.NotNil(t, res.Err)
	assert.Equal(t, exchange.KindPositionNotFound, res.Err.Kind)
	assert.Equal(t, int32(0), stub.placeCalls.Load())
}

func TestUnconfiguredVenue(t *testing.T) {
	e := newTestEngine(newStubAdapter(exchange.VenueBinance))

	res := e.OpenPosition(context.Background(), exchange.OrderIntent{
		Venue:  exchange.VenueHyperliquid,
		Symbol: "BTC/USDT",
		Side:   exchange.SideLong,
		Mode:   exchange.ModeMarket,
		Sizing: exchange.SizeFromBase(decimal.NewFromInt(1)),
	})

	require.False(t, res.Success)
	require.NotNil(t, res.Err)
	assert.Equal(t, exchange.KindUnsupportedOperation, res.Err.Kind)
}

func TestClosePositionEndToEnd(t *testing.T) {
	stub := newStubAdapter(exchange.VenueBinance)
	stub.position = longPosition(exchange.VenueBinance, "2", "100")
	journal := &memJournal{}
	e := New([]exchange.Adapter{stub}, Options{Journal: journal})

	res := e.ClosePosition(context.Background(), CloseRequest{
		Venue:    exchange.VenueBinance,
		Symbol:   "BTC/USDT",
		Fraction: decimal.RequireFromString("0.5"),
	})

	require.True(t, res.Success, "err: %v", res.Err)
	require.Len(t, stub.placedOrders, 1)
	assert.True(t, stub.placedOrders[0].ReduceOnly)
	require.Len(t, journal.entries, 1)
	assert.Equal(t, "close", journal.entries[0].Operation)
}

func TestSetTpSlRecordsEachLeg(t *testing.T) {
	stub := newStubAdapter(exchange.VenueBinance)
	stub.position = longPosition(exchange.VenueBinance, "1", "100")
	journal := &memJournal{}
	e := New([]exchange.Adapter{stub}, Options{Journal: journal})

	res, err := e.SetTpSl(context.Background(), TpSlRequest{
		Venue:      exchange.VenueBinance,
		Symbol:     "BTC/USDT",
		TakeProfit: pctPtr("5"),
		StopLoss:   pctPtr("2"),
	})
	require.NoError(t, err)
	assert.True(t, res.Success())

	require.Len(t, journal.entries, 2)
	assert.Equal(t, "take_profit", journal.entries[0].Operation)
	assert.Equal(t, "stop_loss", journal.entries[1].Operation)
}

func TestEngineLeverageRoundTrip(t *testing.T) {
	stub := newStubAdapter(exchange.VenueBinance)
	e := newTestEngine(stub)

	require.NoError(t, e.SetLeverage(context.Background(), exchange.VenueBinance, "BTC/USDT", 20))
	lev, err := e.Leverage(context.Background(), exchange.VenueBinance, "BTC/USDT")
	require.NoError(t, err)
	assert.Equal(t, 20, lev)
}

func TestBalancesQueriesEveryVenue(t *testing.T) {
	binance := newStubAdapter(exchange.VenueBinance)
	hyper := newStubAdapter(exchange.VenueHyperliquid)
	e := newTestEngine(binance, hyper)

	balances, err := e.Balances(context.Background())
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, exchange.VenueBinance, balances[exchange.VenueBinance].Venue)
	assert.Equal(t, exchange.VenueHyperliquid, balances[exchange.VenueHyperliquid].Venue)
}

func TestCancelOrders(t *testing.T) {
	stub := newStubAdapter(exchange.VenueBinance)
	e := newTestEngine(stub)

	require.NoError(t, e.CancelOrder(context.Background(), exchange.VenueBinance, "BTC/USDT", "101"))
	require.NoError(t, e.CancelAllOrders(context.Background(), exchange.VenueBinance, "BTC/USDT"))
	assert.Equal(t, int32(2), stub.cancelCalls.Load())
}

func TestPlaceTriggerNormalizes(t *testing.T) {
	stub := newStubAdapter(exchange.VenueBinance)
	stub.position = longPosition(exchange.VenueBinance, "2", "100")
	e := newTestEngine(stub)

	res := e.PlaceTrigger(context.Background(), exchange.TriggerOrderIntent{
		Venue:        exchange.VenueBinance,
		Symbol:       "BTC/USDT",
		Kind:         exchange.TriggerStopMarket,
		Side:         exchange.SideShort,
		TriggerPrice: decimal.RequireFromString("99.9571"),
		Quantity:     decimal.RequireFromString("5.0004"),
	})

	require.True(t, res.Success, "err: %v", res.Err)
	require.Len(t, stub.placedTriggers, 1)
	placed := stub.placedTriggers[0]
	// tick 0.1, triggers on a long round up; quantity floors to the step
	// and the reduce-only cap shrinks it to the open position size.
	assert.Equal(t, "100", placed.TriggerPrice.String())
	assert.Equal(t, "2", placed.Quantity.String())
	assert.Equal(t, int32(1), stub.ruleCalls.Load())
	assert.Equal(t, int32(1), stub.positionCalls.Load())
}

func TestPlaceTriggerTooSmallFailsBeforePlacement(t *testing.T) {
	stub := newStubAdapter(exchange.VenueBinance)
	stub.position = longPosition(exchange.VenueBinance, "2", "100")
	e := newTestEngine(stub)

	res := e.PlaceTrigger(context.Background(), exchange.TriggerOrderIntent{
		Venue:        exchange.VenueBinance,
		Symbol:       "BTC/USDT",
		Kind:         exchange.TriggerStopMarket,
		Side:         exchange.SideShort,
		TriggerPrice: decimal.RequireFromString("99.9"),
		Quantity:     decimal.RequireFromString("0.0004"),
	})

	require.False(t, res.Success)
	assert.True(t, errors.Is(res.Err, exchange.ErrOrderTooSmall))
	assert.Equal(t, int32(0), stub.triggerCalls.Load())
}

func TestPlaceTriggerRequiresOpenPosition(t *testing.T) {
	stub := newStubAdapter(exchange.VenueBinance)
	e := newTestEngine(stub)

	res := e.PlaceTrigger(context.Background(), exchange.TriggerOrderIntent{
		Venue:        exchange.VenueBinance,
		Symbol:       "BTC/USDT",
		Kind:         exchange.TriggerStopMarket,
		Side:         exchange.SideShort,
		TriggerPrice: decimal.RequireFromString("99.9"),
		Quantity:     decimal.NewFromInt(1),
	})

	require.False(t, res.Success)
	assert.True(t, errors.Is(res.Err, exchange.ErrPositionNotFound))
	assert.Equal(t, int32(0), stub.triggerCalls.Load())
}

func TestPlaceTriggerGatesBeforeNetwork(t *testing.T) {
	stub := newStubAdapter(exchange.VenueHyperliquid)
	stub.position = longPosition(exchange.VenueHyperliquid, "2", "100")
	e := newTestEngine(stub)

	res := e.PlaceTrigger(context.Background(), exchange.TriggerOrderIntent{
		Venue:        exchange.VenueHyperliquid,
		Symbol:       "BTC/USDT",
		Kind:         exchange.TriggerTrailingStopMarket,
		Side:         exchange.SideShort,
		CallbackRate: decimal.NewFromInt(1),
		Quantity:     decimal.NewFromInt(1),
	})

	require.False(t, res.Success)
	assert.True(t, errors.Is(res.Err, exchange.ErrUnsupportedCapability))
	assert.Equal(t, int32(0), stub.ruleCalls.Load())
	assert.Equal(t, int32(0), stub.positionCalls.Load())
	assert.Equal(t, int32(0), stub.triggerCalls.Load())
}
