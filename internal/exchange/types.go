// Package exchange defines the normalized trading vocabulary shared by every
// venue adapter. The engine only ever speaks these types; adapter-specific
// fields never leak past this package.
package exchange

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Venue identifies one of the supported exchanges. The set is closed: adapter
// selection happens over this enum, never over free-form strings.
type Venue string

const (
	VenueBinance     Venue = "binance"
	VenueHyperliquid Venue = "hyperliquid"
)

// ParseVenue normalizes a venue string to the closed enum.
func ParseVenue(s string) (Venue, error) {
	switch Venue(strings.ToLower(strings.TrimSpace(s))) {
	case VenueBinance:
		return VenueBinance, nil
	case VenueHyperliquid:
		return VenueHyperliquid, nil
	default:
		return "", fmt.Errorf("unknown venue %q", s)
	}
}

// Side is the direction of a position or of the order that builds it.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Opposite returns the side that closes a position held on s.
func (s Side) Opposite() Side {
	if s == SideLong {
		return SideShort
	}
	return SideLong
}

func (s Side) Valid() bool { return s == SideLong || s == SideShort }

// OrderMode distinguishes market from limit execution.
type OrderMode string

const (
	ModeMarket OrderMode = "MARKET"
	ModeLimit  OrderMode = "LIMIT"
)

func (m OrderMode) Valid() bool { return m == ModeMarket || m == ModeLimit }

// TimeInForce for limit orders.
type TimeInForce string

const (
	TifGTC      TimeInForce = "GTC"
	TifIOC      TimeInForce = "IOC"
	TifPostOnly TimeInForce = "POST_ONLY"
)

// TriggerKind enumerates the conditional order types the engine understands.
type TriggerKind string

const (
	TriggerStopMarket         TriggerKind = "STOP_MARKET"
	TriggerStopLimit          TriggerKind = "STOP_LIMIT"
	TriggerTakeProfitMarket   TriggerKind = "TAKE_PROFIT_MARKET"
	TriggerTrailingStopMarket TriggerKind = "TRAILING_STOP_MARKET"
)

// MarginMode is the collateral model applied to a symbol.
type MarginMode string

const (
	MarginCross    MarginMode = "CROSS"
	MarginIsolated MarginMode = "ISOLATED"
)

func (m MarginMode) Valid() bool { return m == MarginCross || m == MarginIsolated }

// Leverage bounds accepted anywhere in the engine. Validated locally before
// any adapter call.
const (
	MinLeverage = 1
	MaxLeverage = 125
)

// AssetRule carries the per-symbol trading constraints of one venue.
// Immutable once fetched; a cache refresh replaces the whole value.
type AssetRule struct {
	Venue       Venue
	Symbol      string
	StepSize    decimal.Decimal
	TickSize    decimal.Decimal
	MinQuantity decimal.Decimal
	MinNotional decimal.Decimal
	FetchedAt   time.Time
}

// SizingKind tags how an OrderIntent expresses its size.
type SizingKind string

const (
	SizingUSD  SizingKind = "USD"
	SizingBase SizingKind = "BASE"
)

// Sizing is the one-of size specification of an OrderIntent: either a USD
// notional plus leverage, or an explicit base-asset quantity.
type Sizing struct {
	Kind         SizingKind
	USDAmount    decimal.Decimal
	Leverage     int
	BaseQuantity decimal.Decimal
}

// SizeFromUSD sizes an order as usd × leverage worth of base asset at the
// live reference price.
func SizeFromUSD(usd decimal.Decimal, leverage int) Sizing {
	return Sizing{Kind: SizingUSD, USDAmount: usd, Leverage: leverage}
}

// SizeFromBase sizes an order as an explicit base-asset quantity.
func SizeFromBase(qty decimal.Decimal) Sizing {
	return Sizing{Kind: SizingBase, BaseQuantity: qty}
}

func (s Sizing) validate() error {
	switch s.Kind {
	case SizingUSD:
		if !s.USDAmount.IsPositive() {
			return fmt.Errorf("usd amount must be positive")
		}
		if s.Leverage < MinLeverage || s.Leverage > MaxLeverage {
			return fmt.Errorf("leverage %d out of range [%d, %d]", s.Leverage, MinLeverage, MaxLeverage)
		}
	case SizingBase:
		if !s.BaseQuantity.IsPositive() {
			return fmt.Errorf("base quantity must be positive")
		}
	default:
		return fmt.Errorf("sizing kind is required")
	}
	return nil
}

// OrderIntent is the exchange-agnostic request to open (or reduce) a
// position. It is built per user action and discarded once the engine
// returns an ExecutionResult.
type OrderIntent struct {
	Venue       Venue
	Symbol      string
	Side        Side
	Mode        OrderMode
	Sizing      Sizing
	LimitPrice  decimal.Decimal
	TimeInForce TimeInForce
	ReduceOnly  bool
}

// Validate checks the purely local constraints of the intent. Capability
// checks against a venue table happen in the mapper.
func (i OrderIntent) Validate() error {
	if strings.TrimSpace(i.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if !i.Side.Valid() {
		return fmt.Errorf("side must be LONG or SHORT")
	}
	if !i.Mode.Valid() {
		return fmt.Errorf("mode must be MARKET or LIMIT")
	}
	if i.Mode == ModeLimit && !i.LimitPrice.IsPositive() {
		return fmt.Errorf("limit order requires a positive limit price")
	}
	if i.Mode == ModeMarket && i.TimeInForce != "" {
		return fmt.Errorf("time in force applies to limit orders only")
	}
	return i.Sizing.validate()
}

// TriggerOrderIntent is the exchange-agnostic request for a conditional
// order. Trigger orders are always reduce-only.
type TriggerOrderIntent struct {
	Venue        Venue
	Symbol       string
	Kind         TriggerKind
	Side         Side // side of the order itself, i.e. opposite of the position
	TriggerPrice decimal.Decimal
	CallbackRate decimal.Decimal // percent, TRAILING_STOP_MARKET only
	LimitPrice   decimal.Decimal // STOP_LIMIT only
	Quantity     decimal.Decimal
}

func (t TriggerOrderIntent) Validate() error {
	if strings.TrimSpace(t.Symbol) == "" {
		return fmt.Errorf("symbol is required")
	}
	if !t.Side.Valid() {
		return fmt.Errorf("side must be LONG or SHORT")
	}
	if !t.Quantity.IsPositive() {
		return fmt.Errorf("quantity must be positive")
	}
	switch t.Kind {
	case TriggerTrailingStopMarket:
		if !t.CallbackRate.IsPositive() {
			return fmt.Errorf("trailing stop requires a positive callback rate")
		}
	case TriggerStopMarket, TriggerTakeProfitMarket:
		if !t.TriggerPrice.IsPositive() {
			return fmt.Errorf("%s requires a positive trigger price", t.Kind)
		}
	case TriggerStopLimit:
		if !t.TriggerPrice.IsPositive() || !t.LimitPrice.IsPositive() {
			return fmt.Errorf("stop limit requires trigger and limit prices")
		}
	default:
		return fmt.Errorf("unknown trigger kind %q", t.Kind)
	}
	return nil
}

// Order is the resolved, venue-legal payload handed to an adapter: quantity
// already stepped, prices already tick-aligned.
type Order struct {
	Symbol        string
	Side          Side
	Mode          OrderMode
	Quantity      decimal.Decimal
	LimitPrice    decimal.Decimal
	TimeInForce   TimeInForce
	ReduceOnly    bool
	ClientOrderID string
}

// TriggerOrder is the resolved conditional-order payload for an adapter.
type TriggerOrder struct {
	Symbol        string
	Side          Side
	Kind          TriggerKind
	TriggerPrice  decimal.Decimal
	CallbackRate  decimal.Decimal
	LimitPrice    decimal.Decimal
	Quantity      decimal.Decimal
	ReduceOnly    bool
	ClientOrderID string
}

// OrderAck is the venue acknowledgement of a submitted order.
type OrderAck struct {
	OrderID string
	Status  string
}

// Position is the venue-owned read model. The engine never caches it; every
// size-dependent computation re-reads it through the adapter first.
type Position struct {
	Venue         Venue
	Symbol        string
	Side          Side
	Size          decimal.Decimal // absolute base quantity
	EntryPrice    decimal.Decimal
	MarkPrice     decimal.Decimal
	Leverage      int
	MarginMode    MarginMode
	UnrealizedPnl decimal.Decimal
}

// Balance is a venue account balance in the stake currency.
type Balance struct {
	Venue     Venue
	Asset     string
	Total     decimal.Decimal
	Available decimal.Decimal
}

// ExecutionResult is the uniform outcome of one engine operation. Immutable
// once returned; a retry produces a new value.
type ExecutionResult struct {
	Success bool
	OrderID string
	Status  string
	Err     *Error
}

// Executed builds a successful result from a venue acknowledgement.
func Executed(ack OrderAck) ExecutionResult {
	return ExecutionResult{Success: true, OrderID: ack.OrderID, Status: ack.Status}
}

// Failed builds a failed result from any error, normalizing it to the
// engine's taxonomy.
func Failed(venue Venue, err error) ExecutionResult {
	return ExecutionResult{Err: Normalize(venue, err)}
}

// TpSlResult reports a take-profit/stop-loss submission. When the fallback
// path issues two independent trigger orders, each leg is reported on its
// own: one failing never hides the other's outcome.
type TpSlResult struct {
	TakeProfit *ExecutionResult
	StopLoss   *ExecutionResult
}

// Success is true when every requested leg succeeded.
func (r TpSlResult) Success() bool {
	if r.TakeProfit != nil && !r.TakeProfit.Success {
		return false
	}
	if r.StopLoss != nil && !r.StopLoss.Success {
		return false
	}
	return r.TakeProfit != nil || r.StopLoss != nil
}
