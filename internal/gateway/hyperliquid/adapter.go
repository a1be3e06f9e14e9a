// Package hyperliquid binds the engine's adapter contract to a
// Hyperliquid-style on-chain perp venue: every mutating call is an EIP-712
// wallet-signed action against the /exchange endpoint.
package hyperliquid

import (
	"context"
	"strconv"
	"sync"
	"time"

	"normex/internal/exchange"
	symbolpkg "normex/internal/pkg/symbol"

	"github.com/shopspring/decimal"
	"github.com/tidwall/gjson"
)

// minOrderValueUSD is the venue-wide floor on order notional.
var minOrderValueUSD = decimal.NewFromInt(10)

// marketSlippagePct bounds the aggressive limit price used to emulate a
// market order; the venue has no native market order type.
var marketSlippagePct = decimal.NewFromFloat(0.01)

// Config carries the venue endpoint and wallet key. The key arrives already
// decrypted; encryption at rest is the caller's concern.
type Config struct {
	APIURL      string
	PrivateKey  string
	ChainID     int64
	HTTPTimeout time.Duration
}

// Adapter implements exchange.Adapter for the wallet-signed venue.
type Adapter struct {
	client *client

	modeMu      sync.Mutex
	marginModes map[string]exchange.MarginMode // coin -> last set mode, cross by default
}

func New(cfg Config) (*Adapter, error) {
	signer, err := NewSigner(cfg.PrivateKey, cfg.ChainID)
	if err != nil {
		return nil, err
	}
	return &Adapter{
		client:      newClient(cfg.APIURL, cfg.HTTPTimeout, signer),
		marginModes: make(map[string]exchange.MarginMode),
	}, nil
}

func (a *Adapter) Venue() exchange.Venue { return exchange.VenueHyperliquid }

func toCoin(symbol string) string {
	return symbolpkg.Parse(symbol).Hyperliquid()
}

// GetAssetRule derives the trading constraints from the asset's size
// decimals: quantities step at 10^-szDecimals and prices tick at
// 10^-(6-szDecimals) for perps.
func (a *Adapter) GetAssetRule(ctx context.Context, symbol string) (exchange.AssetRule, error) {
	info, err := a.client.asset(ctx, toCoin(symbol))
	if err != nil {
		return exchange.AssetRule{}, err
	}
	step := decimal.New(1, int32(-info.szDecimals))
	return exchange.AssetRule{
		Venue:       exchange.VenueHyperliquid,
		Symbol:      symbol,
		StepSize:    step,
		TickSize:    decimal.New(1, int32(info.szDecimals-6)),
		MinQuantity: step,
		MinNotional: minOrderValueUSD,
	}, nil
}

func (a *Adapter) GetMarkPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	coin := toCoin(symbol)
	body, err := a.client.info(ctx, map[string]string{"type": "allMids"})
	if err != nil {
		return decimal.Zero, err
	}
	mid := gjson.GetBytes(body, coin)
	if !mid.Exists() {
		return decimal.Zero, exchange.NewError(exchange.KindSymbolNotFound, exchange.VenueHyperliquid,
			"no mid price for %s", coin)
	}
	px, err := decimal.NewFromString(mid.String())
	if err != nil {
		return decimal.Zero, exchange.NewError(exchange.KindExchangeUnavailable, exchange.VenueHyperliquid,
			"unparseable mid price %q for %s", mid.String(), coin)
	}
	return px, nil
}

func (a *Adapter) clearinghouseState(ctx context.Context) ([]byte, error) {
	return a.client.info(ctx, map[string]string{
		"type": "clearinghouseState",
		"user": a.client.signer.Address().Hex(),
	})
}

func (a *Adapter) GetPosition(ctx context.Context, symbol string) (*exchange.Position, error) {
	coin := toCoin(symbol)
	body, err := a.clearinghouseState(ctx)
	if err != nil {
		return nil, err
	}
	for _, entry := range gjson.GetBytes(body, "assetPositions").Array() {
		pos := entry.Get("position")
		if pos.Get("coin").String() != coin {
			continue
		}
		szi, err := decimal.NewFromString(pos.Get("szi").String())
		if err != nil {
			return nil, exchange.NewError(exchange.KindExchangeUnavailable, exchange.VenueHyperliquid,
				"unparseable position size %q for %s", pos.Get("szi").String(), coin)
		}
		if szi.IsZero() {
			return nil, nil
		}
		side := exchange.SideLong
		if szi.IsNegative() {
			side = exchange.SideShort
		}
		entryPx, _ := decimal.NewFromString(pos.Get("entryPx").String())
		pnl, _ := decimal.NewFromString(pos.Get("unrealizedPnl").String())
		mark, err := a.GetMarkPrice(ctx, symbol)
		if err != nil {
			return nil, err
		}
		mode := exchange.MarginCross
		if pos.Get("leverage.type").String() == "isolated" {
			mode = exchange.MarginIsolated
		}
		return &exchange.Position{
			Venue:         exchange.VenueHyperliquid,
			Symbol:        symbol,
			Side:          side,
			Size:          szi.Abs(),
			EntryPrice:    entryPx,
			MarkPrice:     mark,
			Leverage:      int(pos.Get("leverage.value").Int()),
			MarginMode:    mode,
			UnrealizedPnl: pnl,
		}, nil
	}
	return nil, nil
}

func (a *Adapter) GetBalance(ctx context.Context) (exchange.Balance, error) {
	body, err := a.clearinghouseState(ctx)
	if err != nil {
		return exchange.Balance{}, err
	}
	total, _ := decimal.NewFromString(gjson.GetBytes(body, "marginSummary.accountValue").String())
	avail, _ := decimal.NewFromString(gjson.GetBytes(body, "withdrawable").String())
	return exchange.Balance{
		Venue:     exchange.VenueHyperliquid,
		Asset:     "USDC",
		Total:     total,
		Available: avail,
	}, nil
}

func (a *Adapter) PlaceOrder(ctx context.Context, order exchange.Order) (exchange.OrderAck, error) {
	coin := toCoin(order.Symbol)
	info, err := a.client.asset(ctx, coin)
	if err != nil {
		return exchange.OrderAck{}, err
	}
	isBuy := order.Side == exchange.SideLong

	var px decimal.Decimal
	tif := "Gtc"
	switch order.Mode {
	case exchange.ModeLimit:
		px = order.LimitPrice
		tif = wireTif(order.TimeInForce)
	default:
		// Market emulation: an IOC limit crossing the book by a bounded
		// slippage margin off the live mid.
		mid, err := a.GetMarkPrice(ctx, order.Symbol)
		if err != nil {
			return exchange.OrderAck{}, err
		}
		slip := mid.Mul(marketSlippagePct)
		if isBuy {
			px = mid.Add(slip)
		} else {
			px = mid.Sub(slip)
		}
		tif = "Ioc"
	}

	wire := orderWire{
		Asset:      info.index,
		IsBuy:      isBuy,
		Price:      formatPx(px, info.szDecimals),
		Size:       order.Quantity.String(),
		ReduceOnly: order.ReduceOnly,
		Type:       orderTypeWire{Limit: &limitWire{Tif: tif}},
	}
	return a.submitOrders(ctx, []orderWire{wire}, "na")
}

func (a *Adapter) PlaceTriggerOrder(ctx context.Context, order exchange.TriggerOrder) (exchange.OrderAck, error) {
	coin := toCoin(order.Symbol)
	info, err := a.client.asset(ctx, coin)
	if err != nil {
		return exchange.OrderAck{}, err
	}
	trigger := &triggerWire{
		IsMarket:  order.Kind != exchange.TriggerStopLimit,
		TriggerPx: formatPx(order.TriggerPrice, info.szDecimals),
	}
	if order.Kind == exchange.TriggerTakeProfitMarket {
		trigger.TpSl = "tp"
	} else {
		trigger.TpSl = "sl"
	}
	px := order.TriggerPrice
	if order.Kind == exchange.TriggerStopLimit {
		px = order.LimitPrice
	}
	wire := orderWire{
		Asset:      info.index,
		IsBuy:      order.Side == exchange.SideLong,
		Price:      formatPx(px, info.szDecimals),
		Size:       order.Quantity.String(),
		ReduceOnly: true,
		Type:       orderTypeWire{Trigger: trigger},
	}
	return a.submitOrders(ctx, []orderWire{wire}, "na")
}

// SetPositionTpSl attaches TP/SL to the open position in one signed action
// using the position grouping; size 0 binds each trigger to the whole
// position.
func (a *Adapter) SetPositionTpSl(ctx context.Context, symbol string, side exchange.Side, tp, sl decimal.Decimal) error {
	coin := toCoin(symbol)
	info, err := a.client.asset(ctx, coin)
	if err != nil {
		return err
	}
	closeBuy := side == exchange.SideShort
	var wires []orderWire
	if tp.IsPositive() {
		wires = append(wires, orderWire{
			Asset:      info.index,
			IsBuy:      closeBuy,
			Price:      formatPx(tp, info.szDecimals),
			Size:       "0",
			ReduceOnly: true,
			Type: orderTypeWire{Trigger: &triggerWire{
				IsMarket:  true,
				TriggerPx: formatPx(tp, info.szDecimals),
				TpSl:      "tp",
			}},
		})
	}
	if sl.IsPositive() {
		wires = append(wires, orderWire{
			Asset:      info.index,
			IsBuy:      closeBuy,
			Price:      formatPx(sl, info.szDecimals),
			Size:       "0",
			ReduceOnly: true,
			Type: orderTypeWire{Trigger: &triggerWire{
				IsMarket:  true,
				TriggerPx: formatPx(sl, info.szDecimals),
				TpSl:      "sl",
			}},
		})
	}
	if len(wires) == 0 {
		return nil
	}
	_, err = a.submitOrders(ctx, wires, "positionTpsl")
	return err
}

func (a *Adapter) CancelOrder(ctx context.Context, symbol, orderID string) error {
	info, err := a.client.asset(ctx, toCoin(symbol))
	if err != nil {
		return err
	}
	oid, err := strconv.ParseInt(orderID, 10, 64)
	if err != nil {
		return exchange.NewError(exchange.KindOrderFailed, exchange.VenueHyperliquid,
			"order ids are numeric, got %q", orderID)
	}
	_, err = a.client.sendAction(ctx, cancelAction{
		Type:    "cancel",
		Cancels: []cancelWire{{Asset: info.index, OrderID: oid}},
	})
	return err
}

// CancelAllOrders lists the wallet's resting orders on the symbol and
// cancels them in one action; the venue has no native cancel-all.
func (a *Adapter) CancelAllOrders(ctx context.Context, symbol string) error {
	coin := toCoin(symbol)
	info, err := a.client.asset(ctx, coin)
	if err != nil {
		return err
	}
	body, err := a.client.info(ctx, map[string]string{
		"type": "openOrders",
		"user": a.client.signer.Address().Hex(),
	})
	if err != nil {
		return err
	}
	var cancels []cancelWire
	for _, open := range gjson.ParseBytes(body).Array() {
		if open.Get("coin").String() != coin {
			continue
		}
		cancels = append(cancels, cancelWire{Asset: info.index, OrderID: open.Get("oid").Int()})
	}
	if len(cancels) == 0 {
		return nil
	}
	_, err = a.client.sendAction(ctx, cancelAction{Type: "cancel", Cancels: cancels})
	return err
}

func (a *Adapter) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	coin := toCoin(symbol)
	info, err := a.client.asset(ctx, coin)
	if err != nil {
		return err
	}
	_, err = a.client.sendAction(ctx, updateLeverageAction{
		Type:     "updateLeverage",
		Asset:    info.index,
		IsCross:  a.marginMode(coin) == exchange.MarginCross,
		Leverage: leverage,
	})
	return err
}

// GetLeverage reads leverage from position state; with no open position the
// venue reports nothing and the adapter falls back to 1x, which is exactly
// the stale-read caveat the engine's controller compensates for.
func (a *Adapter) GetLeverage(ctx context.Context, symbol string) (int, error) {
	pos, err := a.GetPosition(ctx, symbol)
	if err != nil {
		return 0, err
	}
	if pos == nil || pos.Leverage < exchange.MinLeverage {
		return exchange.MinLeverage, nil
	}
	return pos.Leverage, nil
}

func (a *Adapter) SetMarginMode(ctx context.Context, symbol string, mode exchange.MarginMode) error {
	coin := toCoin(symbol)
	info, err := a.client.asset(ctx, coin)
	if err != nil {
		return err
	}
	leverage, err := a.GetLeverage(ctx, symbol)
	if err != nil {
		return err
	}
	_, err = a.client.sendAction(ctx, updateLeverageAction{
		Type:     "updateLeverage",
		Asset:    info.index,
		IsCross:  mode == exchange.MarginCross,
		Leverage: leverage,
	})
	if err != nil {
		return err
	}
	a.modeMu.Lock()
	a.marginModes[coin] = mode
	a.modeMu.Unlock()
	return nil
}

func (a *Adapter) marginMode(coin string) exchange.MarginMode {
	a.modeMu.Lock()
	defer a.modeMu.Unlock()
	if mode, ok := a.marginModes[coin]; ok {
		return mode
	}
	return exchange.MarginCross
}

func (a *Adapter) submitOrders(ctx context.Context, wires []orderWire, grouping string) (exchange.OrderAck, error) {
	parsed, err := a.client.sendAction(ctx, orderAction{
		Type:     "order",
		Orders:   wires,
		Grouping: grouping,
	})
	if err != nil {
		return exchange.OrderAck{}, err
	}
	status := parsed.Get("response.data.statuses.0")
	if errMsg := status.Get("error"); errMsg.Exists() {
		return exchange.OrderAck{}, classifyVenueMessage(errMsg.String())
	}
	if oid := status.Get("resting.oid"); oid.Exists() {
		return exchange.OrderAck{OrderID: oid.String(), Status: "NEW"}, nil
	}
	if oid := status.Get("filled.oid"); oid.Exists() {
		return exchange.OrderAck{OrderID: oid.String(), Status: "FILLED"}, nil
	}
	return exchange.OrderAck{Status: "ACCEPTED"}, nil
}

func wireTif(tif exchange.TimeInForce) string {
	switch tif {
	case exchange.TifIOC:
		return "Ioc"
	case exchange.TifPostOnly:
		return "Alo"
	default:
		return "Gtc"
	}
}
