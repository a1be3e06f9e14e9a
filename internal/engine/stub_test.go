package engine

import (
	"context"
	"sync/atomic"

	"normex/internal/exchange"

	"github.com/shopspring/decimal"
)

// stubAdapter is a scriptable in-memory venue used across the engine tests.
// Call counters let tests assert that capability gating and caching really
// keep requests off the wire.
type stubAdapter struct {
	venue exchange.Venue

	rule    exchange.AssetRule
	ruleErr error

	markPrice decimal.Decimal
	markErr   error

	position    *exchange.Position
	positionErr error

	leverageRead int
	placeErr     error
	triggerErrBy map[exchange.TriggerKind]error
	tpslErr      error

	ruleCalls     atomic.Int32
	markCalls     atomic.Int32
	positionCalls atomic.Int32
	placeCalls    atomic.Int32
	triggerCalls  atomic.Int32
	tpslCalls     atomic.Int32
	leverageSets  atomic.Int32
	leverageGets  atomic.Int32
	marginSets    atomic.Int32
	cancelCalls   atomic.Int32

	placedOrders   []exchange.Order
	placedTriggers []exchange.TriggerOrder
	lastLeverage   int
	lastMarginMode exchange.MarginMode
	lastTp, lastSl decimal.Decimal
}

func newStubAdapter(venue exchange.Venue) *stubAdapter {
	return &stubAdapter{
		venue: venue,
		rule: exchange.AssetRule{
			Venue:       venue,
			Symbol:      "BTC/USDT",
			StepSize:    decimal.RequireFromString("0.001"),
			TickSize:    decimal.RequireFromString("0.1"),
			MinQuantity: decimal.RequireFromString("0.001"),
			MinNotional: decimal.RequireFromString("5"),
		},
		markPrice:    decimal.RequireFromString("100"),
		leverageRead: 1,
	}
}

func (s *stubAdapter) Venue() exchange.Venue { return s.venue }

func (s *stubAdapter) GetAssetRule(ctx context.Context, symbol string) (exchange.AssetRule, error) {
	s.ruleCalls.Add(1)
	if s.ruleErr != nil {
		return exchange.AssetRule{}, s.ruleErr
	}
	rule := s.rule
	rule.Symbol = symbol
	return rule, nil
}

func (s *stubAdapter) GetMarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	s.markCalls.Add(1)
	if s.markErr != nil {
		return decimal.Zero, s.markErr
	}
	return s.markPrice, nil
}

func (s *stubAdapter) GetPosition(ctx context.Context, symbol string) (*exchange.Position, error) {
	s.positionCalls.Add(1)
	if s.positionErr != nil {
		return nil, s.positionErr
	}
	return s.position, nil
}

func (s *stubAdapter) GetBalance(ctx context.Context) (exchange.Balance, error) {
	return exchange.Balance{Venue: s.venue, Asset: "USDT", Total: decimal.NewFromInt(1000), Available: decimal.NewFromInt(900)}, nil
}

func (s *stubAdapter) PlaceOrder(ctx context.Context, order exchange.Order) (exchange.OrderAck, error) {
	s.placeCalls.Add(1)
	if s.placeErr != nil {
		return exchange.OrderAck{}, s.placeErr
	}
	s.placedOrders = append(s.placedOrders, order)
	return exchange.OrderAck{OrderID: "101", Status: "NEW"}, nil
}

func (s *stubAdapter) PlaceTriggerOrder(ctx context.Context, order exchange.TriggerOrder) (exchange.OrderAck, error) {
	s.triggerCalls.Add(1)
	if err := s.triggerErrBy[order.Kind]; err != nil {
		return exchange.OrderAck{}, err
	}
	s.placedTriggers = append(s.placedTriggers, order)
	return exchange.OrderAck{OrderID: "202", Status: "NEW"}, nil
}

func (s *stubAdapter) CancelOrder(ctx context.Context, symbol, orderID string) error {
	s.cancelCalls.Add(1)
	return nil
}

func (s *stubAdapter) CancelAllOrders(ctx context.Context, symbol string) error {
	s.cancelCalls.Add(1)
	return nil
}

func (s *stubAdapter) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	s.leverageSets.Add(1)
	s.lastLeverage = leverage
	return nil
}

func (s *stubAdapter) GetLeverage(ctx context.Context, symbol string) (int, error) {
	s.leverageGets.Add(1)
	return s.leverageRead, nil
}

func (s *stubAdapter) SetMarginMode(ctx context.Context, symbol string, mode exchange.MarginMode) error {
	s.marginSets.Add(1)
	s.lastMarginMode = mode
	return nil
}

func (s *stubAdapter) SetPositionTpSl(ctx context.Context, symbol string, side exchange.Side, tp, sl decimal.Decimal) error {
	s.tpslCalls.Add(1)
	if s.tpslErr != nil {
		return s.tpslErr
	}
	s.lastTp, s.lastSl = tp, sl
	return nil
}

func longPosition(venue exchange.Venue, size, entry string) *exchange.Position {
	return &exchange.Position{
		Venue:      venue,
		Symbol:     "BTC/USDT",
		Side:       exchange.SideLong,
		Size:       decimal.RequireFromString(size),
		EntryPrice: decimal.RequireFromString(entry),
		MarkPrice:  decimal.RequireFromString(entry),
		Leverage:   10,
		MarginMode: exchange.MarginCross,
	}
}
