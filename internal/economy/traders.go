// NPC traders: a fixed roster of merchants who buy and sell on their own schedules.
package economy

import (
	"log/slog"
	"slices"
	"time"

	"github.com/talgya/goa1590/internal/entropy"
	"github.com/talgya/goa1590/internal/events"
)

const (
	minTraderGold   = 10
	npcSkipChance   = 0.6
	minTradeSupply  = 2
	speculatorSell  = 0.5
	aggressiveUnits = 3
	speculatorUnits = 2
)

// Personality decides how a trader reacts to the market.
type Personality uint8

const (
	Aggressive Personality = iota
	Cautious
	Speculator
)

// String returns the wire name of the personality.
func (p Personality) String() string {
	switch p {
	case Aggressive:
		return "aggressive"
	case Cautious:
		return "cautious"
	case Speculator:
		return "speculator"
	default:
		return "unknown"
	}
}

// Trader is an NPC merchant.
type Trader struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Faction     string         `json:"faction"`
	Gold        int            `json:"gold"`
	Preferred   []string       `json:"preferred"`
	Avoided     []string       `json:"avoided"`
	ActiveHours []int          `json:"active_hours"`
	Personality Personality    `json:"personality"`
	LastAction  time.Duration  `json:"last_action"` // virtual session time of the last trade
	Holdings    map[string]int `json:"holdings"`
}

// ActiveAt reports whether the trader works during the given hour.
func (t *Trader) ActiveAt(hour int) bool {
	return slices.Contains(t.ActiveHours, hour)
}

func hours(from, to int) []int {
	var out []int
	for h := from; h < to; h++ {
		out = append(out, h)
	}
	return out
}

// DefaultTraders returns the roster of merchants working the Goa bazaar.
func DefaultTraders() []*Trader {
	return []*Trader{
		{
			ID: "npc_mendes", Name: "Duarte Mendes", Faction: "portuguese_crown", Gold: 500,
			Preferred: []string{"good_pepper", "good_cinnamon", "good_cloves"},
			Avoided:   []string{"good_rice"},
			ActiveHours: hours(8, 17), Personality: Aggressive,
		},
		{
			ID: "npc_shetty", Name: "Ravi Shetty", Faction: "saraswat_merchants", Gold: 300,
			Preferred: []string{"good_rice", "good_cotton", "good_ginger"},
			Avoided:   []string{"good_wine"},
			ActiveHours: hours(6, 13), Personality: Cautious,
		},
		{
			ID: "npc_khalil", Name: "Yusuf al-Khalil", Faction: "arab_traders", Gold: 400,
			Preferred: []string{"good_frankincense", "good_pearls", "good_pepper"},
			Avoided:   []string{"good_wine"},
			ActiveHours: hours(10, 19), Personality: Speculator,
		},
		{
			ID: "npc_lin", Name: "Lin Zhao", Faction: "chinese_merchants", Gold: 450,
			Preferred: []string{"good_silk", "good_porcelain", "good_tea"},
			ActiveHours: hours(9, 16), Personality: Speculator,
		},
		{
			ID: "npc_fonseca", Name: "Isabel da Fonseca", Faction: "portuguese_crown", Gold: 350,
			Preferred: []string{"good_wine", "good_silver", "good_silk"},
			ActiveHours: hours(12, 20), Personality: Cautious,
		},
		{
			ID: "npc_vora", Name: "Virji Vora", Faction: "gujarati_banias", Gold: 600,
			Preferred: []string{"good_indigo", "good_cotton", "good_nutmeg"},
			Avoided:   []string{"good_silver"},
			ActiveHours: hours(7, 15), Personality: Aggressive,
		},
	}
}

// Traders returns copies of the roster.
func (m *Market) Traders() []Trader {
	out := make([]Trader, 0, len(m.traders))
	for _, t := range m.traders {
		cp := *t
		cp.Preferred = slices.Clone(t.Preferred)
		cp.Avoided = slices.Clone(t.Avoided)
		cp.ActiveHours = slices.Clone(t.ActiveHours)
		cp.Holdings = make(map[string]int, len(t.Holdings))
		for k, v := range t.Holdings {
			cp.Holdings[k] = v
		}
		out = append(out, cp)
	}
	return out
}

// SimulateNPCTrading gives every trader active this hour a chance to act. at is the virtual
// session time recorded as the trader's last action. It returns the trades made.
func (m *Market) SimulateNPCTrading(hour int, at time.Duration) []events.NPCTrade {
	var trades []events.NPCTrade
	for _, t := range m.traders {
		if !t.ActiveAt(hour) || t.Gold < minTraderGold {
			continue
		}
		if entropy.Chance(m.src, npcSkipChance) {
			continue
		}

		goodID, ok := m.pickGood(t)
		if !ok {
			continue
		}
		st := m.states[goodID]

		var trade events.NPCTrade
		switch t.Personality {
		case Aggressive:
			if t.Gold >= st.Price*2 {
				trade = m.traderBuy(t, goodID, min(aggressiveUnits, t.Gold/st.Price))
			}
		case Cautious:
			if st.Trend != TrendRising && t.Gold >= st.Price {
				trade = m.traderBuy(t, goodID, 1)
			}
		case Speculator:
			switch st.Trend {
			case TrendRising:
				if t.Gold >= st.Price*speculatorUnits {
					trade = m.traderBuy(t, goodID, speculatorUnits)
				}
			case TrendFalling:
				if entropy.Chance(m.src, speculatorSell) && t.Holdings[goodID] > 0 {
					trade = m.traderSell(t, goodID)
				}
			}
		}
		if trade.Quantity == 0 {
			continue
		}

		t.LastAction = at
		slog.Debug("npc trade", "trader", t.Name, "action", trade.Action, "good", goodID, "quantity", trade.Quantity, "price", trade.Price)
		m.bus.Publish(trade)
		trades = append(trades, trade)
	}
	return trades
}

// pickGood chooses one of the trader's preferred goods with enough stock.
func (m *Market) pickGood(t *Trader) (string, bool) {
	var candidates []string
	for _, id := range t.Preferred {
		if slices.Contains(t.Avoided, id) {
			continue
		}
		st, ok := m.states[id]
		if !ok || st.Supply <= minTradeSupply {
			continue
		}
		candidates = append(candidates, id)
	}
	if len(candidates) == 0 {
		return "", false
	}
	return candidates[m.src.Intn(len(candidates))], true
}

// traderBuy buys up to qty units through the same path as a player purchase.
func (m *Market) traderBuy(t *Trader, goodID string, qty int) events.NPCTrade {
	trade := events.NPCTrade{Trader: t.Name, Action: "buy", GoodID: goodID}
	for i := 0; i < qty; i++ {
		price := m.states[goodID].Price
		if t.Gold < price {
			break
		}
		res := m.Buy(goodID)
		if !res.Success {
			break
		}
		t.Gold -= res.Price
		if t.Holdings == nil {
			t.Holdings = make(map[string]int)
		}
		t.Holdings[goodID]++
		trade.Quantity++
		trade.Price = res.Price
	}
	return trade
}

// traderSell sells one held unit through the same path as a player sale.
func (m *Market) traderSell(t *Trader, goodID string) events.NPCTrade {
	res := m.Sell(goodID)
	if !res.Success {
		return events.NPCTrade{}
	}
	t.Gold += res.Price
	t.Holdings[goodID]--
	return events.NPCTrade{Trader: t.Name, Action: "sell", GoodID: goodID, Quantity: 1, Price: res.Price}
}
