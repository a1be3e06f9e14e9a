package exchange

// Capability is the static per-venue table of supported trigger kinds and
// order options. The mapper consults it before any network call; an
// unsupported request never reaches the wire.
type Capability struct {
	TriggerKinds map[TriggerKind]bool
	TimesInForce map[TimeInForce]bool

	// PositionTpSl marks venues that take TP and SL as a single
	// position-attached call instead of standalone trigger orders.
	PositionTpSl bool

	// MarginModeSwitch marks venues that allow toggling CROSS/ISOLATED.
	MarginModeSwitch bool
}

func (c Capability) SupportsTrigger(k TriggerKind) bool { return c.TriggerKinds[k] }

func (c Capability) SupportsTimeInForce(t TimeInForce) bool {
	if t == "" {
		return true
	}
	return c.TimesInForce[t]
}

var capabilities = map[Venue]Capability{
	VenueBinance: {
		TriggerKinds: map[TriggerKind]bool{
			TriggerStopMarket:         true,
			TriggerStopLimit:          true,
			TriggerTakeProfitMarket:   true,
			TriggerTrailingStopMarket: true,
		},
		TimesInForce: map[TimeInForce]bool{
			TifGTC:      true,
			TifIOC:      true,
			TifPostOnly: true,
		},
		PositionTpSl:     false,
		MarginModeSwitch: true,
	},
	VenueHyperliquid: {
		TriggerKinds: map[TriggerKind]bool{
			TriggerStopMarket:       true,
			TriggerStopLimit:        true,
			TriggerTakeProfitMarket: true,
			// No trailing stops on the on-chain book.
		},
		TimesInForce: map[TimeInForce]bool{
			TifGTC:      true,
			TifIOC:      true,
			TifPostOnly: true, // maps to ALO
		},
		PositionTpSl:     true,
		MarginModeSwitch: true,
	},
}

// Capabilities returns the capability table for a venue. Unknown venues get
// an empty table, which rejects everything.
func Capabilities(v Venue) Capability { return capabilities[v] }
