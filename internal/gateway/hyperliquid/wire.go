package hyperliquid

import "github.com/shopspring/decimal"

// Wire structs for the signed /exchange actions. Field order matters: the
// signature commits to the exact serialized bytes, so these structs are the
// single source of the canonical encoding.

type orderAction struct {
	Type     string      `json:"type"`
	Orders   []orderWire `json:"orders"`
	Grouping string      `json:"grouping"`
}

type orderWire struct {
	Asset      int           `json:"a"`
	IsBuy      bool          `json:"b"`
	Price      string        `json:"p"`
	Size       string        `json:"s"`
	ReduceOnly bool          `json:"r"`
	Type       orderTypeWire `json:"t"`
}

type orderTypeWire struct {
	Limit   *limitWire   `json:"limit,omitempty"`
	Trigger *triggerWire `json:"trigger,omitempty"`
}

type limitWire struct {
	Tif string `json:"tif"` // Gtc, Ioc or Alo
}

type triggerWire struct {
	IsMarket  bool   `json:"isMarket"`
	TriggerPx string `json:"triggerPx"`
	TpSl      string `json:"tpsl"` // "tp" or "sl"
}

type cancelAction struct {
	Type    string       `json:"type"`
	Cancels []cancelWire `json:"cancels"`
}

type cancelWire struct {
	Asset   int   `json:"a"`
	OrderID int64 `json:"o"`
}

type updateLeverageAction struct {
	Type     string `json:"type"`
	Asset    int    `json:"asset"`
	IsCross  bool   `json:"isCross"`
	Leverage int    `json:"leverage"`
}

// formatPx renders a price in the venue's legal form: at most five
// significant figures and no more than 6-szDecimals decimal places.
// Integer prices are legal regardless of significant figures, so the
// sig-fig cap never rounds coarser than whole units.
func formatPx(px decimal.Decimal, szDecimals int) string {
	maxDecimals := int32(6 - szDecimals)
	if maxDecimals < 0 {
		maxDecimals = 0
	}
	places := maxDecimals
	intDigits := int32(len(px.Abs().Floor().String()))
	if px.Abs().LessThan(decimal.New(1, 0)) {
		intDigits = 0
	}
	if sig := int32(5) - intDigits; sig < places {
		places = sig
	}
	if places < 0 {
		places = 0
	}
	return px.Round(places).String()
}
