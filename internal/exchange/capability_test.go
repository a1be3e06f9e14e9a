package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVenueCapabilities(t *testing.T) {
	binance := Capabilities(VenueBinance)
	assert.True(t, binance.SupportsTrigger(TriggerTrailingStopMarket))
	assert.False(t, binance.PositionTpSl)
	assert.True(t, binance.MarginModeSwitch)

	hyper := Capabilities(VenueHyperliquid)
	assert.False(t, hyper.SupportsTrigger(TriggerTrailingStopMarket))
	assert.True(t, hyper.SupportsTrigger(TriggerStopMarket))
	assert.True(t, hyper.PositionTpSl)
}

func TestUnknownVenueRejectsEverything(t *testing.T) {
	caps := Capabilities(Venue("paperdex"))
	for _, k := range []TriggerKind{TriggerStopMarket, TriggerStopLimit, TriggerTakeProfitMarket, TriggerTrailingStopMarket} {
		assert.False(t, caps.SupportsTrigger(k), string(k))
	}
	assert.False(t, caps.SupportsTimeInForce(TifGTC))
	assert.False(t, caps.PositionTpSl)
	assert.False(t, caps.MarginModeSwitch)
}

func TestEmptyTimeInForceIsAlwaysSupported(t *testing.T) {
	assert.True(t, Capabilities(VenueBinance).SupportsTimeInForce(""))
	assert.True(t, Capabilities(Venue("paperdex")).SupportsTimeInForce(""))
}
