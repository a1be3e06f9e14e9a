package engine

import (
	"context"
	"fmt"

	"normex/internal/exchange"

	"github.com/shopspring/decimal"
)

// Target is the one-of specification of a single TP or SL leg: an explicit
// price, or a percentage offset from the live entry price.
type Target struct {
	Price   decimal.Decimal
	Percent decimal.Decimal
}

func (t Target) explicit() bool { return t.Price.IsPositive() }

func (t Target) validate() error {
	if t.Price.IsPositive() == t.Percent.IsPositive() {
		return fmt.Errorf("target needs exactly one of price or percent")
	}
	return nil
}

// TpSlRequest asks for take-profit and/or stop-loss on the open position.
type TpSlRequest struct {
	Venue      exchange.Venue
	Symbol     string
	TakeProfit *Target
	StopLoss   *Target
}

func (r TpSlRequest) validate() error {
	if r.TakeProfit == nil && r.StopLoss == nil {
		return fmt.Errorf("at least one of take profit or stop loss is required")
	}
	for _, t := range []*Target{r.TakeProfit, r.StopLoss} {
		if t == nil {
			continue
		}
		if err := t.validate(); err != nil {
			return err
		}
	}
	return nil
}

var pctHundred = decimal.NewFromInt(100)

// offsetPrice computes entry × (1 ± pct/100), signed by position side and
// leg. TP adds for LONG and subtracts for SHORT; SL is the inverse.
func offsetPrice(entry, pct decimal.Decimal, side exchange.Side, takeProfit bool) decimal.Decimal {
	frac := pct.Div(pctHundred)
	if (side == exchange.SideLong) != takeProfit {
		frac = frac.Neg()
	}
	return entry.Mul(decimal.NewFromInt(1).Add(frac))
}

// planTpSl turns a request into a rounded, sign-validated plan. The position
// is always re-read here: percent offsets computed against an entry price
// captured earlier in a multi-step flow would act on stale state.
func (e *Engine) planTpSl(ctx context.Context, adapter exchange.Adapter, req TpSlRequest) (TpSlPlan, error) {
	pos, err := adapter.GetPosition(ctx, req.Symbol)
	if err != nil {
		return TpSlPlan{}, exchange.Normalize(req.Venue, err)
	}
	if pos == nil {
		return TpSlPlan{}, exchange.NewError(exchange.KindPositionNotFound, req.Venue,
			"no open %s position on %s", req.Symbol, req.Venue)
	}
	rule, err := e.catalog.Resolve(ctx, req.Venue, req.Symbol)
	if err != nil {
		return TpSlPlan{}, err
	}

	plan := TpSlPlan{
		Venue:        req.Venue,
		Symbol:       req.Symbol,
		PositionSide: pos.Side,
		Quantity:     pos.Size,
	}
	dir := triggerRounding(pos.Side)

	if req.TakeProfit != nil {
		price := req.TakeProfit.Price
		if !req.TakeProfit.explicit() {
			price = offsetPrice(pos.EntryPrice, req.TakeProfit.Percent, pos.Side, true)
		}
		price = RoundPrice(price, rule, dir)
		if err := validateTriggerSign(req.Venue, pos.Side, pos.EntryPrice, price, true); err != nil {
			return TpSlPlan{}, err
		}
		plan.TakeProfit = price
	}
	if req.StopLoss != nil {
		price := req.StopLoss.Price
		if !req.StopLoss.explicit() {
			price = offsetPrice(pos.EntryPrice, req.StopLoss.Percent, pos.Side, false)
		}
		price = RoundPrice(price, rule, dir)
		if err := validateTriggerSign(req.Venue, pos.Side, pos.EntryPrice, price, false); err != nil {
			return TpSlPlan{}, err
		}
		plan.StopLoss = price
	}
	return plan, nil
}
