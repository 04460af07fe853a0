// Market engine: authoritative supply, demand and price for every good.
package economy

import (
	"fmt"
	"log/slog"

	"github.com/talgya/goa1590/internal/entropy"
	"github.com/talgya/goa1590/internal/events"
)

const (
	minDemand      = 1
	maxDemand      = 20
	historyLength  = 20
	trendThreshold = 0.05

	minPriceFactor = 0.5
	maxPriceFactor = 2.0

	// afterHoursSurcharge is applied, in percent, outside market hours.
	afterHoursSurcharge = 115
)

// Trend classifies the most recent price movement of a good.
type Trend uint8

const (
	TrendStable Trend = iota
	TrendRising
	TrendFalling
)

// String returns the wire name of the trend.
func (t Trend) String() string {
	switch t {
	case TrendRising:
		return "rising"
	case TrendFalling:
		return "falling"
	default:
		return "stable"
	}
}

// ParseTrend converts a wire name back to a Trend. Unknown names are stable.
func ParseTrend(name string) Trend {
	switch name {
	case "rising":
		return TrendRising
	case "falling":
		return TrendFalling
	default:
		return TrendStable
	}
}

// MarketState is the live economic state of one good.
type MarketState struct {
	GoodID  string `json:"good_id"`
	Price   int    `json:"price"`
	Supply  int    `json:"supply"`
	Demand  int    `json:"demand"`
	Trend   Trend  `json:"trend"`
	History []int  `json:"history"`
}

// TradeResult reports the outcome of a buy or sell request.
type TradeResult struct {
	Success bool   `json:"success"`
	GoodID  string `json:"good_id"`
	Price   int    `json:"price"`
	Message string `json:"message"`
}

// Market owns the state of every good and the NPC trader roster.
type Market struct {
	bus *events.Bus
	src entropy.Source

	goods   map[string]TradeGood
	order   []string
	states  map[string]*MarketState
	traders []*Trader

	// Optional price modifier sources. A nil source is neutral.
	Reputation    ReputationSource
	Relationships RelationshipSource
	Progression   ProgressionSource
}

// NewMarket creates a market over the given catalog with supply and demand balanced and every
// good at its base price.
func NewMarket(bus *events.Bus, src entropy.Source, catalog []TradeGood, traders []*Trader) *Market {
	m := &Market{
		bus:    bus,
		src:    entropy.Or(src),
		goods:  make(map[string]TradeGood, len(catalog)),
		states: make(map[string]*MarketState, len(catalog)),
	}
	for _, g := range catalog {
		m.goods[g.ID] = g
		m.order = append(m.order, g.ID)
		m.states[g.ID] = &MarketState{
			GoodID:  g.ID,
			Price:   g.BasePrice,
			Supply:  10,
			Demand:  10,
			Trend:   TrendStable,
			History: []int{g.BasePrice},
		}
	}
	for _, t := range traders {
		cp := *t
		cp.Preferred = append([]string(nil), t.Preferred...)
		cp.Avoided = append([]string(nil), t.Avoided...)
		cp.ActiveHours = append([]int(nil), t.ActiveHours...)
		cp.Holdings = make(map[string]int, len(t.Holdings))
		for k, v := range t.Holdings {
			cp.Holdings[k] = v
		}
		m.traders = append(m.traders, &cp)
	}
	return m
}

// Good returns the catalog entry for a good.
func (m *Market) Good(goodID string) (TradeGood, bool) {
	g, ok := m.goods[goodID]
	return g, ok
}

// Goods returns the catalog in display order.
func (m *Market) Goods() []TradeGood {
	out := make([]TradeGood, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, m.goods[id])
	}
	return out
}

// State returns a copy of a good's market state.
func (m *Market) State(goodID string) (MarketState, bool) {
	st, ok := m.states[goodID]
	if !ok {
		return MarketState{}, false
	}
	cp := *st
	cp.History = append([]int(nil), st.History...)
	return cp, true
}

// CurrentPrice returns the unmodified market price, or 0 for an unknown good.
func (m *Market) CurrentPrice(goodID string) int {
	st, ok := m.states[goodID]
	if !ok {
		slog.Warn("price requested for unknown good", "good", goodID)
		return 0
	}
	return st.Price
}

// Buy takes one unit from the market at the current price. Unknown goods and empty stock fail
// without touching state.
func (m *Market) Buy(goodID string) TradeResult {
	g, ok := m.goods[goodID]
	if !ok {
		slog.Warn("buy of unknown good", "good", goodID)
		return TradeResult{GoodID: goodID, Message: fmt.Sprintf("no such good %q", goodID)}
	}
	st := m.states[goodID]
	if st.Supply <= 0 {
		return TradeResult{GoodID: goodID, Price: st.Price, Message: fmt.Sprintf("%s is sold out", g.Name)}
	}

	st.Supply--
	if st.Demand < maxDemand {
		st.Demand++
	}
	return TradeResult{
		Success: true,
		GoodID:  goodID,
		Price:   st.Price,
		Message: fmt.Sprintf("Bought 1 %s for %d pardaos", g.Name, st.Price),
	}
}

// Sell puts one unit into the market at the discounted sell price.
func (m *Market) Sell(goodID string) TradeResult {
	g, ok := m.goods[goodID]
	if !ok {
		slog.Warn("sell of unknown good", "good", goodID)
		return TradeResult{GoodID: goodID, Message: fmt.Sprintf("no such good %q", goodID)}
	}
	st := m.states[goodID]
	price := int(float64(st.Price) * sellDiscount)
	if price < 1 {
		price = 1
	}

	st.Supply++
	if st.Demand > minDemand {
		st.Demand--
	}
	return TradeResult{
		Success: true,
		GoodID:  goodID,
		Price:   price,
		Message: fmt.Sprintf("Sold 1 %s for %d pardaos", g.Name, price),
	}
}

// Update runs one periodic market cycle: a bounded random walk on supply and demand, price
// recomputation, trend classification and history. It publishes a MarketUpdate.
func (m *Market) Update() {
	summary := make([]events.GoodSummary, 0, len(m.order))
	for _, id := range m.order {
		g := m.goods[id]
		st := m.states[id]

		st.Supply += entropy.IntRange(m.src, -2, 2)
		if st.Supply < 0 {
			st.Supply = 0
		}
		st.Demand += entropy.IntRange(m.src, -1, 1)
		st.Demand = clampInt(st.Demand, minDemand, maxDemand)

		factor := maxPriceFactor
		if st.Supply > 0 {
			factor = float64(st.Demand) / float64(st.Supply)
			if factor < minPriceFactor {
				factor = minPriceFactor
			}
			if factor > maxPriceFactor {
				factor = maxPriceFactor
			}
		}
		volatility := 1 + float64(g.Rarity)/100*(m.src.Float64()*2-1)

		old := st.Price
		price := int(float64(g.BasePrice) * factor * volatility)
		if price < 1 {
			price = 1
		}
		st.Price = price
		st.Trend = classifyTrend(old, price)
		st.History = appendHistory(st.History, price)

		summary = append(summary, events.GoodSummary{
			GoodID: id,
			Price:  st.Price,
			Trend:  st.Trend.String(),
			Supply: st.Supply,
			Demand: st.Demand,
		})
	}

	slog.Debug("market updated", "goods", len(summary))
	m.bus.Publish(events.MarketUpdate{Summary: summary})
}

func classifyTrend(old, price int) Trend {
	if old <= 0 {
		return TrendStable
	}
	change := float64(price-old) / float64(old)
	switch {
	case change > trendThreshold:
		return TrendRising
	case change < -trendThreshold:
		return TrendFalling
	default:
		return TrendStable
	}
}

func appendHistory(h []int, price int) []int {
	h = append(h, price)
	if len(h) > historyLength {
		h = append(h[:0], h[len(h)-historyLength:]...)
	}
	return h
}

// ShipArrival lands cargo on the quay: supply rises and the price drops 2% per unit
// delivered, never below half the base price.
func (m *Market) ShipArrival(cargo []events.Cargo) {
	for _, c := range cargo {
		g, ok := m.goods[c.GoodID]
		if !ok {
			slog.Warn("ship cargo of unknown good", "good", c.GoodID)
			continue
		}
		if c.Quantity <= 0 {
			continue
		}
		st := m.states[c.GoodID]
		st.Supply += c.Quantity

		// floor(price × quantity × 0.02)
		drop := st.Price * c.Quantity / 50
		// A price already under the floor is left where it is.
		floor := g.BasePrice / 2
		st.Price = max(st.Price-drop, min(st.Price, floor))
		if st.Price < 1 {
			st.Price = 1
		}

		slog.Info("cargo landed", "good", c.GoodID, "quantity", c.Quantity, "price", st.Price, "supply", st.Supply)
	}
}

// ApplyTimeModifier adds a flat 15% surcharge to every price outside market hours. Repeated
// calls compound, so callers apply it once per open-to-closed transition.
func (m *Market) ApplyTimeModifier(isMarketHours bool) {
	if isMarketHours {
		return
	}
	for _, id := range m.order {
		st := m.states[id]
		st.Price = st.Price * afterHoursSurcharge / 100
		if st.Price < 1 {
			st.Price = 1
		}
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
