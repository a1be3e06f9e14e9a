package exchange

import (
	"context"

	"github.com/shopspring/decimal"
)

// Adapter is the per-venue binding the engine calls through. Implementations
// own authentication, wire formats and timeouts; a timed-out call must come
// back as an ExchangeUnavailable error, not a terminal rejection.
//
// Adapters receive already-resolved payloads: quantities stepped, prices
// tick-aligned, capabilities pre-checked by the mapper.
type Adapter interface {
	Venue() Venue

	// GetAssetRule fetches the trading constraints for one symbol.
	// SymbolNotFound when the venue does not list it.
	GetAssetRule(ctx context.Context, symbol string) (AssetRule, error)

	// GetMarkPrice returns the live mark/last price used as the reference
	// for sizing. Never cached by the adapter.
	GetMarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error)

	// GetPosition returns the open position for symbol, or nil when flat.
	GetPosition(ctx context.Context, symbol string) (*Position, error)

	GetBalance(ctx context.Context) (Balance, error)

	PlaceOrder(ctx context.Context, order Order) (OrderAck, error)
	PlaceTriggerOrder(ctx context.Context, order TriggerOrder) (OrderAck, error)

	CancelOrder(ctx context.Context, symbol, orderID string) error
	CancelAllOrders(ctx context.Context, symbol string) error

	SetLeverage(ctx context.Context, symbol string, leverage int) error
	GetLeverage(ctx context.Context, symbol string) (int, error)
	SetMarginMode(ctx context.Context, symbol string, mode MarginMode) error

	// SetPositionTpSl attaches take-profit and/or stop-loss prices to the
	// open position in one call. Only invoked when the capability table
	// marks PositionTpSl; a zero decimal clears the corresponding trigger.
	SetPositionTpSl(ctx context.Context, symbol string, side Side, tp, sl decimal.Decimal) error
}
