// Package engine is the exchange normalization and order execution core: it
// turns venue-agnostic trading intents into venue-correct adapter calls and
// reports every outcome in one vocabulary.
package engine

import (
	"context"
	"sync"
	"time"

	"normex/internal/exchange"
	"normex/internal/logger"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Journal records executed operations for auditing. Implementations must be
// safe for concurrent use; recording failures never fail the operation.
type Journal interface {
	Record(ctx context.Context, entry JournalEntry)
}

// JournalEntry is one audited engine operation.
type JournalEntry struct {
	Venue     exchange.Venue
	Symbol    string
	Operation string
	Side      exchange.Side
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	OrderID   string
	Status    string
	ErrorKind exchange.ErrorKind
	RawError  string
	CreatedAt time.Time
}

// Options tunes the engine.
type Options struct {
	RuleTTL             time.Duration
	LeverageReverifyTTL time.Duration
	Journal             Journal
}

// Engine is stateless per call and safe to invoke concurrently for
// different (venue, symbol) pairs. The asset catalog is its only mutable
// shared state.
type Engine struct {
	adapters map[exchange.Venue]exchange.Adapter
	catalog  *Catalog
	mapper   *Mapper
	leverage *LeverageController
	journal  Journal
}

// New builds an engine over the given adapters.
func New(adapters []exchange.Adapter, opts Options) *Engine {
	byVenue := make(map[exchange.Venue]exchange.Adapter, len(adapters))
	for _, a := range adapters {
		byVenue[a.Venue()] = a
	}
	e := &Engine{
		adapters: byVenue,
		mapper:   NewMapper(),
		leverage: NewLeverageController(opts.LeverageReverifyTTL),
		journal:  opts.Journal,
	}
	e.catalog = NewCatalog(opts.RuleTTL, func(ctx context.Context, venue exchange.Venue, symbol string) (exchange.AssetRule, error) {
		adapter, err := e.adapter(venue)
		if err != nil {
			return exchange.AssetRule{}, err
		}
		return adapter.GetAssetRule(ctx, symbol)
	})
	return e
}

func (e *Engine) adapter(venue exchange.Venue) (exchange.Adapter, error) {
	adapter, ok := e.adapters[venue]
	if !ok {
		return nil, exchange.NewError(exchange.KindUnsupportedOperation, venue,
			"venue %s is not configured", venue)
	}
	return adapter, nil
}

func (e *Engine) record(ctx context.Context, entry JournalEntry) {
	if e.journal == nil {
		return
	}
	entry.CreatedAt = time.Now()
	e.journal.Record(ctx, entry)
}

func (e *Engine) recordResult(ctx context.Context, op string, venue exchange.Venue, symbol string, side exchange.Side, qty, price decimal.Decimal, res exchange.ExecutionResult) {
	entry := JournalEntry{
		Venue:     venue,
		Symbol:    symbol,
		Operation: op,
		Side:      side,
		Quantity:  qty,
		Price:     price,
		OrderID:   res.OrderID,
		Status:    res.Status,
	}
	if res.Err != nil {
		entry.ErrorKind = res.Err.Kind
		entry.RawError = res.Err.Raw
	}
	e.record(ctx, entry)
}

// OpenPosition executes one OrderIntent: resolve the asset rule, fetch the
// live reference price, round, map and submit. Every validation that can
// fail locally fails before the order call.
func (e *Engine) OpenPosition(ctx context.Context, intent exchange.OrderIntent) exchange.ExecutionResult {
	if err := intent.Validate(); err != nil {
		return exchange.Failed(intent.Venue, exchange.NewError(exchange.KindOrderFailed, intent.Venue, "%v", err))
	}
	adapter, err := e.adapter(intent.Venue)
	if err != nil {
		return exchange.Failed(intent.Venue, err)
	}
	rule, err := e.catalog.Resolve(ctx, intent.Venue, intent.Symbol)
	if err != nil {
		return exchange.Failed(intent.Venue, err)
	}
	refPrice, err := adapter.GetMarkPrice(ctx, intent.Symbol)
	if err != nil {
		return exchange.Failed(intent.Venue, err)
	}

	raw := intent.Sizing.BaseQuantity
	if intent.Sizing.Kind == exchange.SizingUSD {
		raw, err = QuantityFromUSD(intent.Sizing.USDAmount, intent.Sizing.Leverage, refPrice)
		if err != nil {
			return exchange.Failed(intent.Venue, err)
		}
	}
	qty, err := RoundQuantity(raw, rule, refPrice)
	if err != nil {
		return exchange.Failed(intent.Venue, err)
	}

	if intent.ReduceOnly {
		pos, err := adapter.GetPosition(ctx, intent.Symbol)
		if err != nil {
			return exchange.Failed(intent.Venue, err)
		}
		if pos == nil || !pos.Size.IsPositive() {
			return exchange.Failed(intent.Venue, exchange.NewError(exchange.KindPositionNotFound, intent.Venue,
				"reduce-only order with no open %s position", intent.Symbol))
		}
		if qty.GreaterThan(pos.Size) {
			qty = pos.Size
		}
	}

	limitPrice := decimal.Zero
	if intent.Mode == exchange.ModeLimit {
		limitPrice = RoundPrice(intent.LimitPrice, rule, limitRounding(intent.Side))
	}

	order, err := e.mapper.BuildOrder(intent, qty, limitPrice)
	if err != nil {
		return exchange.Failed(intent.Venue, err)
	}
	ack, err := adapter.PlaceOrder(ctx, order)
	var res exchange.ExecutionResult
	if err != nil {
		res = exchange.Failed(intent.Venue, err)
	} else {
		res = exchange.Executed(ack)
	}
	e.recordResult(ctx, "open", intent.Venue, intent.Symbol, intent.Side, qty, limitPrice, res)
	return res
}

// ClosePosition exits a fraction of the open position as a reduce-only
// market order.
func (e *Engine) ClosePosition(ctx context.Context, req CloseRequest) exchange.ExecutionResult {
	adapter, err := e.adapter(req.Venue)
	if err != nil {
		return exchange.Failed(req.Venue, err)
	}
	order, err := e.planClose(ctx, adapter, req)
	if err != nil {
		return exchange.Failed(req.Venue, err)
	}
	ack, err := adapter.PlaceOrder(ctx, order)
	var res exchange.ExecutionResult
	if err != nil {
		res = exchange.Failed(req.Venue, err)
	} else {
		res = exchange.Executed(ack)
	}
	e.recordResult(ctx, "close", req.Venue, req.Symbol, order.Side, order.Quantity, decimal.Zero, res)
	return res
}

// SetTpSl plans and submits take-profit/stop-loss for the open position.
// The first return carries per-leg results; the error covers plan-level
// failures where nothing was submitted.
func (e *Engine) SetTpSl(ctx context.Context, req TpSlRequest) (exchange.TpSlResult, error) {
	if err := req.validate(); err != nil {
		return exchange.TpSlResult{}, exchange.NewError(exchange.KindOrderFailed, req.Venue, "%v", err)
	}
	adapter, err := e.adapter(req.Venue)
	if err != nil {
		return exchange.TpSlResult{}, err
	}
	plan, err := e.planTpSl(ctx, adapter, req)
	if err != nil {
		return exchange.TpSlResult{}, err
	}
	res := e.mapper.SubmitTpSl(ctx, adapter, plan)
	if res.TakeProfit != nil {
		e.recordResult(ctx, "take_profit", req.Venue, req.Symbol, plan.PositionSide, plan.Quantity, plan.TakeProfit, *res.TakeProfit)
	}
	if res.StopLoss != nil {
		e.recordResult(ctx, "stop_loss", req.Venue, req.Symbol, plan.PositionSide, plan.Quantity, plan.StopLoss, *res.StopLoss)
	}
	return res, nil
}

// PlaceTrigger normalizes and submits one standalone conditional order.
// Trigger orders are always reduce-only, so the live position caps the
// quantity the same way a reduce-only primary order is capped.
func (e *Engine) PlaceTrigger(ctx context.Context, intent exchange.TriggerOrderIntent) exchange.ExecutionResult {
	if err := intent.Validate(); err != nil {
		return exchange.Failed(intent.Venue, exchange.NewError(exchange.KindOrderFailed, intent.Venue, "%v", err))
	}
	if err := e.mapper.gateTrigger(intent.Venue, intent.Kind); err != nil {
		return exchange.Failed(intent.Venue, err)
	}
	adapter, err := e.adapter(intent.Venue)
	if err != nil {
		return exchange.Failed(intent.Venue, err)
	}
	rule, err := e.catalog.Resolve(ctx, intent.Venue, intent.Symbol)
	if err != nil {
		return exchange.Failed(intent.Venue, err)
	}
	pos, err := adapter.GetPosition(ctx, intent.Symbol)
	if err != nil {
		return exchange.Failed(intent.Venue, exchange.Normalize(intent.Venue, err))
	}
	if pos == nil || !pos.Size.IsPositive() {
		return exchange.Failed(intent.Venue, exchange.NewError(exchange.KindPositionNotFound, intent.Venue,
			"conditional order with no open %s position", intent.Symbol))
	}

	if intent.TriggerPrice.IsPositive() {
		intent.TriggerPrice = RoundPrice(intent.TriggerPrice, rule, triggerRounding(pos.Side))
	}
	if intent.LimitPrice.IsPositive() {
		intent.LimitPrice = RoundPrice(intent.LimitPrice, rule, limitRounding(intent.Side))
	}
	refPrice := intent.TriggerPrice
	if !refPrice.IsPositive() {
		refPrice = pos.MarkPrice
	}
	qty, err := RoundQuantity(intent.Quantity, rule, refPrice)
	if err != nil {
		return exchange.Failed(intent.Venue, err)
	}
	if qty.GreaterThan(pos.Size) {
		qty = pos.Size
	}
	intent.Quantity = qty

	res := e.mapper.SubmitTrigger(ctx, adapter, intent)
	e.recordResult(ctx, "trigger", intent.Venue, intent.Symbol, intent.Side, intent.Quantity, intent.TriggerPrice, res)
	return res
}

// SetLeverage validates and writes leverage for a symbol.
func (e *Engine) SetLeverage(ctx context.Context, venue exchange.Venue, symbol string, leverage int) error {
	adapter, err := e.adapter(venue)
	if err != nil {
		return err
	}
	if err := e.leverage.SetLeverage(ctx, adapter, symbol, leverage); err != nil {
		return err
	}
	logger.Infof("leverage set venue=%s symbol=%s leverage=%dx", venue, symbol, leverage)
	return nil
}

// Leverage reads the effective leverage, trusting a fresh local write over
// the venue's position-derived default.
func (e *Engine) Leverage(ctx context.Context, venue exchange.Venue, symbol string) (int, error) {
	adapter, err := e.adapter(venue)
	if err != nil {
		return 0, err
	}
	return e.leverage.Leverage(ctx, adapter, symbol)
}

// SetMarginMode toggles CROSS/ISOLATED margin for a symbol.
func (e *Engine) SetMarginMode(ctx context.Context, venue exchange.Venue, symbol string, mode exchange.MarginMode) error {
	adapter, err := e.adapter(venue)
	if err != nil {
		return err
	}
	return e.leverage.SetMarginMode(ctx, adapter, symbol, mode)
}

// CancelOrder cancels one open order.
func (e *Engine) CancelOrder(ctx context.Context, venue exchange.Venue, symbol, orderID string) error {
	adapter, err := e.adapter(venue)
	if err != nil {
		return err
	}
	if err := adapter.CancelOrder(ctx, symbol, orderID); err != nil {
		return exchange.Normalize(venue, err)
	}
	return nil
}

// CancelAllOrders cancels every open order on a symbol.
func (e *Engine) CancelAllOrders(ctx context.Context, venue exchange.Venue, symbol string) error {
	adapter, err := e.adapter(venue)
	if err != nil {
		return err
	}
	if err := adapter.CancelAllOrders(ctx, symbol); err != nil {
		return exchange.Normalize(venue, err)
	}
	return nil
}

// Position reads the live position for a symbol; nil when flat.
func (e *Engine) Position(ctx context.Context, venue exchange.Venue, symbol string) (*exchange.Position, error) {
	adapter, err := e.adapter(venue)
	if err != nil {
		return nil, err
	}
	pos, err := adapter.GetPosition(ctx, symbol)
	if err != nil {
		return nil, exchange.Normalize(venue, err)
	}
	return pos, nil
}

// Balances queries every configured venue concurrently. A single venue
// failing fails the whole read; partial balance snapshots mislead sizing
// decisions.
func (e *Engine) Balances(ctx context.Context) (map[exchange.Venue]exchange.Balance, error) {
	out := make(map[exchange.Venue]exchange.Balance, len(e.adapters))
	var mu sync.Mutex
	group, gctx := errgroup.WithContext(ctx)
	for venue, adapter := range e.adapters {
		venue, adapter := venue, adapter
		group.Go(func() error {
			bal, err := adapter.GetBalance(gctx)
			if err != nil {
				return exchange.Normalize(venue, err)
			}
			mu.Lock()
			out[venue] = bal
			mu.Unlock()
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
