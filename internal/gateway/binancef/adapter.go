// Package binancef binds the engine's adapter contract to Binance USDT-M
// futures through the go-binance SDK.
package binancef

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"normex/internal/exchange"
	symbolpkg "normex/internal/pkg/symbol"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/shopspring/decimal"
)

// Config carries the venue credentials and endpoint overrides.
type Config struct {
	APIKey      string
	APISecret   string
	BaseURL     string
	HTTPTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 15 * time.Second
	}
	return c
}

// Adapter implements exchange.Adapter for Binance USDT-M futures.
type Adapter struct {
	client *futures.Client
}

func New(cfg Config) *Adapter {
	final := cfg.withDefaults()
	client := futures.NewClient(final.APIKey, final.APISecret)
	if url := strings.TrimSpace(final.BaseURL); url != "" {
		client.BaseURL = url
	}
	client.HTTPClient = &http.Client{Timeout: final.HTTPTimeout}
	return &Adapter{client: client}
}

func (a *Adapter) Venue() exchange.Venue { return exchange.VenueBinance }

func toVenueSymbol(symbol string) string {
	return symbolpkg.Parse(symbol).Binance()
}

func (a *Adapter) GetAssetRule(ctx context.Context, symbol string) (exchange.AssetRule, error) {
	venueSymbol := toVenueSymbol(symbol)
	info, err := a.client.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return exchange.AssetRule{}, mapError(err)
	}
	for i := range info.Symbols {
		s := &info.Symbols[i]
		if s.Symbol != venueSymbol {
			continue
		}
		return ruleFromSymbol(symbol, s)
	}
	return exchange.AssetRule{}, exchange.NewError(exchange.KindSymbolNotFound, exchange.VenueBinance,
		"%s is not listed on binance futures", symbol)
}

func (a *Adapter) GetMarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	premiums, err := a.client.NewPremiumIndexService().Symbol(toVenueSymbol(symbol)).Do(ctx)
	if err != nil {
		return decimal.Zero, mapError(err)
	}
	if len(premiums) == 0 {
		return decimal.Zero, exchange.NewError(exchange.KindSymbolNotFound, exchange.VenueBinance,
			"no mark price for %s", symbol)
	}
	return parseDecimal(premiums[0].MarkPrice)
}

func (a *Adapter) GetPosition(ctx context.Context, symbol string) (*exchange.Position, error) {
	risks, err := a.client.NewGetPositionRiskService().Symbol(toVenueSymbol(symbol)).Do(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	for _, risk := range risks {
		pos, err := positionFromRisk(symbol, risk)
		if err != nil {
			return nil, err
		}
		if pos != nil {
			return pos, nil
		}
	}
	return nil, nil
}

func (a *Adapter) GetBalance(ctx context.Context) (exchange.Balance, error) {
	balances, err := a.client.NewGetBalanceService().Do(ctx)
	if err != nil {
		return exchange.Balance{}, mapError(err)
	}
	for _, b := range balances {
		if b.Asset != "USDT" {
			continue
		}
		total, err := parseDecimal(b.Balance)
		if err != nil {
			return exchange.Balance{}, err
		}
		avail, err := parseDecimal(b.AvailableBalance)
		if err != nil {
			return exchange.Balance{}, err
		}
		return exchange.Balance{Venue: exchange.VenueBinance, Asset: "USDT", Total: total, Available: avail}, nil
	}
	return exchange.Balance{Venue: exchange.VenueBinance, Asset: "USDT"}, nil
}

func (a *Adapter) PlaceOrder(ctx context.Context, order exchange.Order) (exchange.OrderAck, error) {
	svc := a.client.NewCreateOrderService().
		Symbol(toVenueSymbol(order.Symbol)).
		Side(sideType(order.Side)).
		Quantity(order.Quantity.String()).
		NewClientOrderID(order.ClientOrderID)
	if order.ReduceOnly {
		svc = svc.ReduceOnly(true)
	}
	switch order.Mode {
	case exchange.ModeLimit:
		svc = svc.Type(futures.OrderTypeLimit).
			Price(order.LimitPrice.String()).
			TimeInForce(timeInForce(order.TimeInForce))
	default:
		svc = svc.Type(futures.OrderTypeMarket)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return exchange.OrderAck{}, mapError(err)
	}
	return exchange.OrderAck{
		OrderID: strconv.FormatInt(resp.OrderID, 10),
		Status:  string(resp.Status),
	}, nil
}

func (a *Adapter) PlaceTriggerOrder(ctx context.Context, order exchange.TriggerOrder) (exchange.OrderAck, error) {
	svc := a.client.NewCreateOrderService().
		Symbol(toVenueSymbol(order.Symbol)).
		Side(sideType(order.Side)).
		Quantity(order.Quantity.String()).
		ReduceOnly(true).
		WorkingType(futures.WorkingTypeMarkPrice).
		NewClientOrderID(order.ClientOrderID)
	switch order.Kind {
	case exchange.TriggerStopMarket:
		svc = svc.Type(futures.OrderTypeStopMarket).StopPrice(order.TriggerPrice.String())
	case exchange.TriggerStopLimit:
		svc = svc.Type(futures.OrderTypeStop).
			StopPrice(order.TriggerPrice.String()).
			Price(order.LimitPrice.String()).
			TimeInForce(futures.TimeInForceTypeGTC)
	case exchange.TriggerTakeProfitMarket:
		svc = svc.Type(futures.OrderTypeTakeProfitMarket).StopPrice(order.TriggerPrice.String())
	case exchange.TriggerTrailingStopMarket:
		svc = svc.Type(futures.OrderTypeTrailingStopMarket).CallbackRate(order.CallbackRate.String())
	default:
		return exchange.OrderAck{}, exchange.NewError(exchange.KindUnsupportedCapability, exchange.VenueBinance,
			"trigger kind %s", order.Kind)
	}
	resp, err := svc.Do(ctx)
	if err != nil {
		return exchange.OrderAck{}, mapError(err)
	}
	return exchange.OrderAck{
		OrderID: strconv.FormatInt(resp.OrderID, 10),
		Status:  string(resp.Status),
	}, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, symbol, orderID string) error {
	id, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return exchange.NewError(exchange.KindOrderFailed, exchange.VenueBinance,
			"binance order ids are numeric, got %q", orderID)
	}
	_, err = a.client.NewCancelOrderService().Symbol(toVenueSymbol(symbol)).OrderID(id).Do(ctx)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (a *Adapter) CancelAllOrders(ctx context.Context, symbol string) error {
	if err := a.client.NewCancelAllOpenOrdersService().Symbol(toVenueSymbol(symbol)).Do(ctx); err != nil {
		return mapError(err)
	}
	return nil
}

func (a *Adapter) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	_, err := a.client.NewChangeLeverageService().Symbol(toVenueSymbol(symbol)).Leverage(leverage).Do(ctx)
	if err != nil {
		return mapError(err)
	}
	return nil
}

// GetLeverage reads leverage from position risk. With no open position the
// venue reports a default, which is why the controller trusts its own
// recent writes over this read.
func (a *Adapter) GetLeverage(ctx context.Context, symbol string) (int, error) {
	risks, err := a.client.NewGetPositionRiskService().Symbol(toVenueSymbol(symbol)).Do(ctx)
	if err != nil {
		return 0, mapError(err)
	}
	if len(risks) == 0 {
		return exchange.MinLeverage, nil
	}
	lev, err := strconv.Atoi(risks[0].Leverage)
	if err != nil || lev < exchange.MinLeverage {
		return exchange.MinLeverage, nil
	}
	return lev, nil
}

func (a *Adapter) SetMarginMode(ctx context.Context, symbol string, mode exchange.MarginMode) error {
	marginType := futures.MarginTypeCrossed
	if mode == exchange.MarginIsolated {
		marginType = futures.MarginTypeIsolated
	}
	err := a.client.NewChangeMarginTypeService().Symbol(toVenueSymbol(symbol)).MarginType(marginType).Do(ctx)
	if err != nil {
		if isNoChangeNeeded(err) {
			return nil
		}
		return mapError(err)
	}
	return nil
}

// SetPositionTpSl is not a single call on Binance futures; the capability
// table routes TP/SL through standalone trigger orders instead.
func (a *Adapter) SetPositionTpSl(ctx context.Context, symbol string, side exchange.Side, tp, sl decimal.Decimal) error {
	return exchange.NewError(exchange.KindUnsupportedOperation, exchange.VenueBinance,
		"binance futures has no position-attached TP/SL call")
}

func sideType(side exchange.Side) futures.SideType {
	if side == exchange.SideLong {
		return futures.SideTypeBuy
	}
	return futures.SideTypeSell
}

func timeInForce(tif exchange.TimeInForce) futures.TimeInForceType {
	switch tif {
	case exchange.TifIOC:
		return futures.TimeInForceTypeIOC
	case exchange.TifPostOnly:
		return futures.TimeInForceTypeGTX
	default:
		return futures.TimeInForceTypeGTC
	}
}
