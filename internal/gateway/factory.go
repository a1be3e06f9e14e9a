// Package gateway builds venue adapters from configuration. Adapter
// selection is a closed switch over the venue enum; there is no dynamic
// registration.
package gateway

import (
	"fmt"

	"normex/internal/config"
	"normex/internal/exchange"
	"normex/internal/gateway/binancef"
	"normex/internal/gateway/hyperliquid"
)

// NewAdapter constructs the adapter for one venue.
func NewAdapter(venue exchange.Venue, cfg *config.Config) (exchange.Adapter, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	switch venue {
	case exchange.VenueBinance:
		return binancef.New(binancef.Config{
			APIKey:    cfg.Binance.APIKey,
			APISecret: cfg.Binance.APISecret,
			BaseURL:   cfg.Binance.BaseURL,
		}), nil
	case exchange.VenueHyperliquid:
		return hyperliquid.New(hyperliquid.Config{
			APIURL:     cfg.Hyperliquid.APIURL,
			PrivateKey: cfg.Hyperliquid.PrivateKey,
			ChainID:    cfg.Hyperliquid.ChainID,
		})
	default:
		return nil, fmt.Errorf("unsupported venue: %s", venue)
	}
}

// NewAdapters builds every enabled venue's adapter.
func NewAdapters(cfg *config.Config) ([]exchange.Adapter, error) {
	venues := cfg.EnabledVenues()
	out := make([]exchange.Adapter, 0, len(venues))
	for _, venue := range venues {
		adapter, err := NewAdapter(venue, cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, adapter)
	}
	return out, nil
}
