package engine

import (
	"context"

	"normex/internal/exchange"

	"github.com/shopspring/decimal"
)

// CloseRequest asks for a full or fractional exit of the open position.
type CloseRequest struct {
	Venue    exchange.Venue
	Symbol   string
	Fraction decimal.Decimal // in (0, 1]; 1 closes everything
}

var one = decimal.NewFromInt(1)

// planClose re-reads the live position and computes the reduce-only close
// order. The read happens here, immediately before submission: the position
// shown to the user earlier may already be gone, and that race is handled as
// PositionNotFound rather than assumed impossible.
func (e *Engine) planClose(ctx context.Context, adapter exchange.Adapter, req CloseRequest) (exchange.Order, error) {
	if !req.Fraction.IsPositive() || req.Fraction.GreaterThan(one) {
		return exchange.Order{}, exchange.NewError(exchange.KindOrderFailed, req.Venue,
			"close fraction must be in (0, 1], got %s", req.Fraction)
	}
	pos, err := adapter.GetPosition(ctx, req.Symbol)
	if err != nil {
		return exchange.Order{}, exchange.Normalize(req.Venue, err)
	}
	if pos == nil || !pos.Size.IsPositive() {
		return exchange.Order{}, exchange.NewError(exchange.KindPositionNotFound, req.Venue,
			"no open %s position on %s", req.Symbol, req.Venue)
	}
	rule, err := e.catalog.Resolve(ctx, req.Venue, req.Symbol)
	if err != nil {
		return exchange.Order{}, err
	}

	closeSize := pos.Size.Mul(req.Fraction)
	qty, err := RoundQuantity(closeSize, rule, pos.MarkPrice)
	if err != nil {
		return exchange.Order{}, err
	}
	// Flooring keeps qty ≤ fraction × size ≤ size, so the reduce-only
	// invariant holds without clamping.
	return exchange.Order{
		Symbol:        req.Symbol,
		Side:          pos.Side.Opposite(),
		Mode:          exchange.ModeMarket,
		Quantity:      qty,
		ReduceOnly:    true,
		ClientOrderID: newClientOrderID(),
	}, nil
}
