// Price modifiers from standing with factions, individual NPCs and player progression.
package economy

import (
	"log/slog"
	"math"
)

// sellDiscount is applied to every price the market pays a seller.
const sellDiscount = 0.75

// ReputationSource reports the player's standing with a faction (-100..100).
type ReputationSource interface {
	Reputation(faction string) (int, bool)
}

// RelationshipSource reports a price multiplier from the player's relationship with an NPC.
type RelationshipSource interface {
	PriceMultiplier(npcID string, isBuying bool) float64
}

// ProgressionSource reports a price multiplier from the player's progression.
type ProgressionSource interface {
	TradeMultiplier(isBuying bool) float64
}

// ReputationBand is a range of faction standing with its buy/sell multipliers.
type ReputationBand struct {
	Min  int     // inclusive lower bound of the band
	Buy  float64 // multiplier on what the player pays
	Sell float64 // multiplier on what the player receives
	Name string
}

// ReputationBands are ordered from best standing to worst.
var ReputationBands = []ReputationBand{
	{Min: 80, Buy: 0.80, Sell: 1.20, Name: "revered"},
	{Min: 50, Buy: 0.90, Sell: 1.10, Name: "honoured"},
	{Min: 20, Buy: 0.95, Sell: 1.05, Name: "friendly"},
	{Min: -19, Buy: 1.00, Sell: 1.00, Name: "neutral"},
	{Min: -49, Buy: 1.15, Sell: 0.85, Name: "distrusted"},
	{Min: math.MinInt, Buy: 1.30, Sell: 0.60, Name: "hostile"},
}

// BandFor returns the reputation band containing rep.
func BandFor(rep int) ReputationBand {
	for _, b := range ReputationBands {
		if rep >= b.Min {
			return b
		}
	}
	return ReputationBands[len(ReputationBands)-1]
}

// ReputationMultiplier returns the band multiplier for a trade direction.
func ReputationMultiplier(rep int, isBuying bool) float64 {
	b := BandFor(rep)
	if isBuying {
		return b.Buy
	}
	return b.Sell
}

// Price returns what the player pays (isBuying) or receives for one unit of a good, after
// faction reputation, NPC relationship and progression modifiers. Selling is discounted 25%.
// Unknown goods price at 0.
func (m *Market) Price(goodID string, isBuying bool, vendorFaction, vendorNPC string) int {
	st, ok := m.states[goodID]
	if !ok {
		slog.Warn("price requested for unknown good", "good", goodID)
		return 0
	}

	price := float64(st.Price)

	if vendorFaction != "" && m.Reputation != nil {
		if rep, ok := m.Reputation.Reputation(vendorFaction); ok {
			price *= ReputationMultiplier(rep, isBuying)
		}
	}
	if vendorNPC != "" && m.Relationships != nil {
		price *= m.Relationships.PriceMultiplier(vendorNPC, isBuying)
	}
	if m.Progression != nil {
		price *= m.Progression.TradeMultiplier(isBuying)
	}
	if !isBuying {
		price *= sellDiscount
	}

	out := int(price)
	if out < 1 {
		out = 1
	}
	return out
}
