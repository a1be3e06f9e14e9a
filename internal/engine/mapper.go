package engine

import (
	"context"

	"normex/internal/exchange"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Mapper translates abstract intents into the concrete payloads a venue
// adapter accepts, rejecting capability gaps and inverted triggers before
// any network call.
type Mapper struct {
	caps func(exchange.Venue) exchange.Capability
}

func NewMapper() *Mapper {
	return &Mapper{caps: exchange.Capabilities}
}

func newClientOrderID() string {
	return "nx-" + uuid.NewString()
}

// BuildOrder maps one OrderIntent into exactly one primary order payload.
// qty and limitPrice must already be rounded by the caller.
func (m *Mapper) BuildOrder(intent exchange.OrderIntent, qty, limitPrice decimal.Decimal) (exchange.Order, error) {
	caps := m.caps(intent.Venue)
	if intent.Mode == exchange.ModeLimit && !caps.SupportsTimeInForce(intent.TimeInForce) {
		return exchange.Order{}, exchange.NewError(exchange.KindUnsupportedCapability, intent.Venue,
			"time in force %s is not supported on %s", intent.TimeInForce, intent.Venue)
	}
	tif := intent.TimeInForce
	if intent.Mode == exchange.ModeLimit && tif == "" {
		tif = exchange.TifGTC
	}
	return exchange.Order{
		Symbol:        intent.Symbol,
		Side:          intent.Side,
		Mode:          intent.Mode,
		Quantity:      qty,
		LimitPrice:    limitPrice,
		TimeInForce:   tif,
		ReduceOnly:    intent.ReduceOnly,
		ClientOrderID: newClientOrderID(),
	}, nil
}

// gateTrigger rejects trigger kinds the venue cannot express.
func (m *Mapper) gateTrigger(venue exchange.Venue, kind exchange.TriggerKind) error {
	if !m.caps(venue).SupportsTrigger(kind) {
		return exchange.NewError(exchange.KindUnsupportedCapability, venue,
			"%s orders are not supported on %s", kind, venue)
	}
	return nil
}

// SubmitTrigger places one standalone conditional order. The capability gate
// runs first: an unsupported kind fails with zero adapter calls.
func (m *Mapper) SubmitTrigger(ctx context.Context, adapter exchange.Adapter, intent exchange.TriggerOrderIntent) exchange.ExecutionResult {
	if err := intent.Validate(); err != nil {
		return exchange.Failed(intent.Venue, exchange.NewError(exchange.KindOrderFailed, intent.Venue, "%v", err))
	}
	if err := m.gateTrigger(intent.Venue, intent.Kind); err != nil {
		return exchange.Failed(intent.Venue, err)
	}
	ack, err := adapter.PlaceTriggerOrder(ctx, exchange.TriggerOrder{
		Symbol:        intent.Symbol,
		Side:          intent.Side,
		Kind:          intent.Kind,
		TriggerPrice:  intent.TriggerPrice,
		CallbackRate:  intent.CallbackRate,
		LimitPrice:    intent.LimitPrice,
		Quantity:      intent.Quantity,
		ReduceOnly:    true,
		ClientOrderID: newClientOrderID(),
	})
	if err != nil {
		return exchange.Failed(intent.Venue, err)
	}
	return exchange.Executed(ack)
}

// TpSlPlan is a validated, rounded take-profit/stop-loss pair ready for
// submission. Either price may be zero when that leg is not requested.
type TpSlPlan struct {
	Venue        exchange.Venue
	Symbol       string
	PositionSide exchange.Side
	Quantity     decimal.Decimal
	TakeProfit   decimal.Decimal
	StopLoss     decimal.Decimal
}

// validateTriggerSign enforces the side/price relationship that holds on
// every venue: LONG takes profit above entry and stops below it, SHORT
// inverted. An inverted trigger would be accepted by some venues but never
// fire correctly, so it is rejected here.
func validateTriggerSign(venue exchange.Venue, side exchange.Side, entry, price decimal.Decimal, takeProfit bool) error {
	label := "stop loss"
	rel := "below"
	if takeProfit {
		label = "take profit"
		rel = "above"
	}
	if !price.IsPositive() {
		return exchange.NewError(exchange.KindInvalidTriggerPrice, venue,
			"%s price %s must be positive", label, price)
	}
	above := price.GreaterThan(entry)
	wantAbove := (side == exchange.SideLong) == takeProfit
	if above == wantAbove && !price.Equal(entry) {
		return nil
	}
	if side == exchange.SideShort {
		if rel == "above" {
			rel = "below"
		} else {
			rel = "above"
		}
	}
	return exchange.NewError(exchange.KindInvalidTriggerPrice, venue,
		"%s price %s must be %s the entry price %s for a %s position",
		label, price, rel, entry, side)
}

// SubmitTpSl submits a plan either as one position-attached call or as up to
// two standalone reduce-only trigger orders, preferring the attached form
// when the venue supports it. On the standalone path a failing leg never
// suppresses the other leg's submission or result.
func (m *Mapper) SubmitTpSl(ctx context.Context, adapter exchange.Adapter, plan TpSlPlan) exchange.TpSlResult {
	caps := m.caps(plan.Venue)

	if caps.PositionTpSl {
		err := adapter.SetPositionTpSl(ctx, plan.Symbol, plan.PositionSide, plan.TakeProfit, plan.StopLoss)
		var res exchange.ExecutionResult
		if err != nil {
			res = exchange.Failed(plan.Venue, err)
		} else {
			res = exchange.ExecutionResult{Success: true, Status: "TPSL_SET"}
		}
		out := exchange.TpSlResult{}
		if plan.TakeProfit.IsPositive() {
			tp := res
			out.TakeProfit = &tp
		}
		if plan.StopLoss.IsPositive() {
			sl := res
			out.StopLoss = &sl
		}
		return out
	}

	closeSide := plan.PositionSide.Opposite()
	out := exchange.TpSlResult{}
	if plan.TakeProfit.IsPositive() {
		res := m.SubmitTrigger(ctx, adapter, exchange.TriggerOrderIntent{
			Venue:        plan.Venue,
			Symbol:       plan.Symbol,
			Kind:         exchange.TriggerTakeProfitMarket,
			Side:         closeSide,
			TriggerPrice: plan.TakeProfit,
			Quantity:     plan.Quantity,
		})
		out.TakeProfit = &res
	}
	if plan.StopLoss.IsPositive() {
		res := m.SubmitTrigger(ctx, adapter, exchange.TriggerOrderIntent{
			Venue:        plan.Venue,
			Symbol:       plan.Symbol,
			Kind:         exchange.TriggerStopMarket,
			Side:         closeSide,
			TriggerPrice: plan.StopLoss,
			Quantity:     plan.Quantity,
		})
		out.StopLoss = &res
	}
	return out
}
