package engine

import (
	"fmt"

	"normex/internal/exchange"

	"github.com/shopspring/decimal"
)

// PriceRounding biases tick alignment toward or away from execution. The
// caller chooses: a stop-loss rounds to be reached sooner, a take-profit to
// be reached later or equal, never in the user's favor by accident.
type PriceRounding int

const (
	RoundDown PriceRounding = iota
	RoundUp
)

// QuantityFromUSD derives the raw base quantity of a USD sizing request:
// (usd × leverage) / referencePrice. The reference price must be the live
// mark price fetched for this execution, never a cached one.
func QuantityFromUSD(usd decimal.Decimal, leverage int, refPrice decimal.Decimal) (decimal.Decimal, error) {
	if !refPrice.IsPositive() {
		return decimal.Zero, fmt.Errorf("reference price must be positive, got %s", refPrice)
	}
	notional := usd.Mul(decimal.NewFromInt(int64(leverage)))
	return notional.Div(refPrice), nil
}

// RoundQuantity floors raw to the nearest multiple of the rule's step size.
// Rounding up is forbidden: it would overshoot the requested notional. Fails
// OrderTooSmall when the result is below the venue minimums, reporting the
// minimum USD equivalent so the caller can show an actionable message.
func RoundQuantity(raw decimal.Decimal, rule exchange.AssetRule, refPrice decimal.Decimal) (decimal.Decimal, error) {
	if !rule.StepSize.IsPositive() {
		return decimal.Zero, fmt.Errorf("asset rule for %s has no step size", rule.Symbol)
	}
	if raw.IsNegative() {
		return decimal.Zero, fmt.Errorf("raw quantity must not be negative")
	}
	qty := raw.Div(rule.StepSize).Floor().Mul(rule.StepSize)

	if qty.LessThan(rule.MinQuantity) || qty.IsZero() {
		minUSD := rule.MinQuantity.Mul(refPrice)
		return decimal.Zero, exchange.NewError(exchange.KindOrderTooSmall, rule.Venue,
			"quantity %s is below the %s minimum of %s (≈ %s USD)",
			qty, rule.Symbol, rule.MinQuantity, minUSD.StringFixed(2))
	}
	if rule.MinNotional.IsPositive() && qty.Mul(refPrice).LessThan(rule.MinNotional) {
		return decimal.Zero, exchange.NewError(exchange.KindOrderTooSmall, rule.Venue,
			"notional %s USD is below the %s minimum of %s USD",
			qty.Mul(refPrice).StringFixed(2), rule.Symbol, rule.MinNotional)
	}
	return qty, nil
}

// RoundPrice aligns raw to the rule's tick size in the given direction.
// Idempotent: an aligned price passes through unchanged.
func RoundPrice(raw decimal.Decimal, rule exchange.AssetRule, dir PriceRounding) decimal.Decimal {
	if !rule.TickSize.IsPositive() {
		return raw
	}
	ticks := raw.Div(rule.TickSize)
	if dir == RoundUp {
		ticks = ticks.Ceil()
	} else {
		ticks = ticks.Floor()
	}
	return ticks.Mul(rule.TickSize)
}

// triggerRounding picks the conservative tick bias for a trigger price on a
// position of the given side. For a LONG both the TP (above entry) and the
// SL (below entry) round up: the TP fires later or equal, the SL sooner.
// SHORT is the mirror image.
func triggerRounding(side exchange.Side) PriceRounding {
	if side == exchange.SideLong {
		return RoundUp
	}
	return RoundDown
}

// limitRounding picks the tick bias for a resting limit price: a buy never
// rounds above the requested price, a sell never below it.
func limitRounding(orderSide exchange.Side) PriceRounding {
	if orderSide == exchange.SideLong {
		return RoundDown
	}
	return RoundUp
}
