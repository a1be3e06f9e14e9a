package engine

import (
	"context"
	"sync"
	"time"

	"normex/internal/exchange"
)

// DefaultLeverageReverifyTTL is how long a locally confirmed leverage write
// stays authoritative before a venue read may overwrite it again. Venues
// that derive leverage from position state report a 1x default when flat, so
// a fresh write must not be clobbered by such a read.
const DefaultLeverageReverifyTTL = 15 * time.Minute

type leverageFact struct {
	leverage    int
	marginMode  exchange.MarginMode
	confirmedAt time.Time
	written     bool
}

// LeverageController owns leverage and margin-mode state per (venue,
// symbol). State machine per key: UNKNOWN → CONFIRMED(value) on a
// successful write; a read only transitions UNKNOWN → CONFIRMED when no
// write happened this session, or after the re-verify TTL has lapsed.
type LeverageController struct {
	reverifyTTL time.Duration
	now         func() time.Time

	mu    sync.Mutex
	facts map[ruleKey]leverageFact
}

func NewLeverageController(reverifyTTL time.Duration) *LeverageController {
	if reverifyTTL <= 0 {
		reverifyTTL = DefaultLeverageReverifyTTL
	}
	return &LeverageController{
		reverifyTTL: reverifyTTL,
		now:         time.Now,
		facts:       make(map[ruleKey]leverageFact),
	}
}

// SetLeverage validates the bounds locally, writes through the adapter and
// records the write as authoritative for this session.
func (lc *LeverageController) SetLeverage(ctx context.Context, adapter exchange.Adapter, symbol string, leverage int) error {
	if leverage < exchange.MinLeverage || leverage > exchange.MaxLeverage {
		return exchange.NewError(exchange.KindOrderFailed, adapter.Venue(),
			"leverage %d out of range [%d, %d]", leverage, exchange.MinLeverage, exchange.MaxLeverage)
	}
	if err := adapter.SetLeverage(ctx, symbol, leverage); err != nil {
		return exchange.Normalize(adapter.Venue(), err)
	}
	lc.mu.Lock()
	key := ruleKey{venue: adapter.Venue(), symbol: symbol}
	fact := lc.facts[key]
	fact.leverage = leverage
	fact.confirmedAt = lc.now()
	fact.written = true
	lc.facts[key] = fact
	lc.mu.Unlock()
	return nil
}

// Leverage returns the effective leverage for symbol. A confirmed local
// write wins over a venue read until the re-verify TTL lapses; stale or
// absent facts fall back to the adapter.
func (lc *LeverageController) Leverage(ctx context.Context, adapter exchange.Adapter, symbol string) (int, error) {
	key := ruleKey{venue: adapter.Venue(), symbol: symbol}

	lc.mu.Lock()
	fact, ok := lc.facts[key]
	lc.mu.Unlock()
	if ok && fact.written && lc.now().Sub(fact.confirmedAt) <= lc.reverifyTTL {
		return fact.leverage, nil
	}

	read, err := adapter.GetLeverage(ctx, symbol)
	if err != nil {
		return 0, exchange.Normalize(adapter.Venue(), err)
	}
	lc.mu.Lock()
	fact = lc.facts[key]
	fact.leverage = read
	fact.confirmedAt = lc.now()
	fact.written = false
	lc.facts[key] = fact
	lc.mu.Unlock()
	return read, nil
}

// SetMarginMode toggles CROSS/ISOLATED. Venues without a margin-mode switch
// fail explicitly with UnsupportedOperation instead of silently no-opping.
func (lc *LeverageController) SetMarginMode(ctx context.Context, adapter exchange.Adapter, symbol string, mode exchange.MarginMode) error {
	if !mode.Valid() {
		return exchange.NewError(exchange.KindOrderFailed, adapter.Venue(),
			"margin mode must be CROSS or ISOLATED, got %q", mode)
	}
	if !exchange.Capabilities(adapter.Venue()).MarginModeSwitch {
		return exchange.NewError(exchange.KindUnsupportedOperation, adapter.Venue(),
			"%s does not support switching margin mode", adapter.Venue())
	}
	if err := adapter.SetMarginMode(ctx, symbol, mode); err != nil {
		return exchange.Normalize(adapter.Venue(), err)
	}
	lc.mu.Lock()
	key := ruleKey{venue: adapter.Venue(), symbol: symbol}
	fact := lc.facts[key]
	fact.marginMode = mode
	lc.facts[key] = fact
	lc.mu.Unlock()
	return nil
}
