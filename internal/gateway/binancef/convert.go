package binancef

import (
	"errors"
	"strconv"

	"normex/internal/exchange"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

func parseDecimal(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, exchange.NewError(exchange.KindOrderFailed, exchange.VenueBinance,
			"unparseable venue number %q", s)
	}
	return d, nil
}

func ruleFromSymbol(symbol string, s *futures.Symbol) (exchange.AssetRule, error) {
	rule := exchange.AssetRule{Venue: exchange.VenueBinance, Symbol: symbol}
	lot := s.LotSizeFilter()
	if lot == nil {
		return exchange.AssetRule{}, exchange.NewError(exchange.KindOrderFailed, exchange.VenueBinance,
			"%s has no LOT_SIZE filter", symbol)
	}
	var err error
	if rule.StepSize, err = parseDecimal(lot.StepSize); err != nil {
		return exchange.AssetRule{}, err
	}
	if rule.MinQuantity, err = parseDecimal(lot.MinQuantity); err != nil {
		return exchange.AssetRule{}, err
	}
	if price := s.PriceFilter(); price != nil {
		if rule.TickSize, err = parseDecimal(price.TickSize); err != nil {
			return exchange.AssetRule{}, err
		}
	}
	if notional := s.MinNotionalFilter(); notional != nil {
		if rule.MinNotional, err = parseDecimal(notional.Notional); err != nil {
			return exchange.AssetRule{}, err
		}
	}
	return rule, nil
}

// positionFromRisk converts one position-risk row, returning nil for a flat
// row. PositionAmt is signed: negative means short.
func positionFromRisk(symbol string, risk *futures.PositionRisk) (*exchange.Position, error) {
	amt, err := parseDecimal(risk.PositionAmt)
	if err != nil {
		return nil, err
	}
	if amt.IsZero() {
		return nil, nil
	}
	side := exchange.SideLong
	if amt.IsNegative() {
		side = exchange.SideShort
	}
	entry, err := parseDecimal(risk.EntryPrice)
	if err != nil {
		return nil, err
	}
	mark, err := parseDecimal(risk.MarkPrice)
	if err != nil {
		return nil, err
	}
	pnl, err := parseDecimal(risk.UnRealizedProfit)
	if err != nil {
		return nil, err
	}
	lev, _ := strconv.Atoi(risk.Leverage)
	mode := exchange.MarginCross
	if risk.MarginType == "isolated" {
		mode = exchange.MarginIsolated
	}
	return &exchange.Position{
		Venue:         exchange.VenueBinance,
		Symbol:        symbol,
		Side:          side,
		Size:          amt.Abs(),
		EntryPrice:    entry,
		MarkPrice:     mark,
		Leverage:      lev,
		MarginMode:    mode,
		UnrealizedPnl: pnl,
	}, nil
}

// Venue error codes worth distinguishing; everything else stays OrderFailed
// with the raw message preserved.
const (
	codeInvalidSymbol        = -1121
	codeMarginInsufficient   = -2019
	codeBalanceInsufficient  = -2018
	codeNoNeedToChangeMargin = -4046
	codeNotionalTooSmall     = -4164
)

func isNoChangeNeeded(err error) bool {
	var apiErr *common.APIError
	return errors.As(err, &apiErr) && apiErr.Code == codeNoNeedToChangeMargin
}

func mapError(err error) error {
	var apiErr *common.APIError
	if !errors.As(err, &apiErr) {
		// Transport-level failure: connection refused, timeout, 5xx
		// without a venue payload. Retryable by the caller.
		return exchange.WrapVenueError(exchange.KindExchangeUnavailable, exchange.VenueBinance, err)
	}
	switch apiErr.Code {
	case codeInvalidSymbol:
		return exchange.WrapVenueError(exchange.KindSymbolNotFound, exchange.VenueBinance, err)
	case codeMarginInsufficient, codeBalanceInsufficient:
		return exchange.WrapVenueError(exchange.KindInsufficientBalance, exchange.VenueBinance, err)
	case codeNotionalTooSmall:
		return exchange.WrapVenueError(exchange.KindOrderTooSmall, exchange.VenueBinance, err)
	}
	return exchange.WrapVenueError(exchange.KindOrderFailed, exchange.VenueBinance, err)
}
