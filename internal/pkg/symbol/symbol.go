// Package symbol converts between the internal BASE/QUOTE symbol form and
// each venue's native spelling.
package symbol

import "strings"

// Symbol is a parsed perpetual contract symbol.
type Symbol struct {
	Base  string
	Quote string
}

// Internal renders the canonical "BASE/QUOTE" form.
func (s Symbol) Internal() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + "/" + s.Quote
}

// Binance renders the concatenated form, e.g. "BTCUSDT".
func (s Symbol) Binance() string {
	if s.Base == "" || s.Quote == "" {
		return ""
	}
	return s.Base + s.Quote
}

// Hyperliquid renders the bare coin, e.g. "BTC"; every perp quotes in USD.
func (s Symbol) Hyperliquid() string {
	return s.Base
}

var quoteCurrencies = []string{"USDT", "USDC", "USD", "BUSD", "BTC", "ETH"}

// Parse accepts "BTC/USDT", "BTCUSDT" or a bare coin like "BTC" (quoted in
// USDT by convention).
func Parse(s string) Symbol {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Symbol{}
	}
	if idx := strings.Index(s, ":"); idx >= 0 {
		s = s[:idx]
	}
	if parts := strings.SplitN(s, "/", 2); len(parts) == 2 {
		return Symbol{Base: strings.TrimSpace(parts[0]), Quote: strings.TrimSpace(parts[1])}
	}
	for _, quote := range quoteCurrencies {
		if strings.HasSuffix(s, quote) && len(s) > len(quote) {
			return Symbol{Base: s[:len(s)-len(quote)], Quote: quote}
		}
	}
	return Symbol{Base: s, Quote: "USDT"}
}

// Normalize renders any accepted spelling in the internal form.
func Normalize(s string) string {
	return Parse(s).Internal()
}

// IsValid reports whether s parses into a usable symbol.
func IsValid(s string) bool {
	sym := Parse(s)
	return sym.Base != "" && sym.Quote != ""
}
