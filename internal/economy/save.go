package economy

import (
	"log/slog"
	"maps"
	"slices"
	"time"
)

// GoodSave is the persisted state of one good.
type GoodSave struct {
	GoodID  string `json:"good_id" db:"good_id"`
	Price   int    `json:"price" db:"price"`
	Supply  int    `json:"supply" db:"supply"`
	Demand  int    `json:"demand" db:"demand"`
	Trend   string `json:"trend" db:"trend"`
	History []int  `json:"history" db:"-"`
}

// TraderSave is the persisted state of one NPC trader.
type TraderSave struct {
	ID         string         `json:"id"`
	Gold       int            `json:"gold"`
	LastAction time.Duration  `json:"last_action"`
	Holdings   map[string]int `json:"holdings"`
}

// SaveData is the persisted market snapshot.
type SaveData struct {
	Goods   []GoodSave   `json:"goods"`
	Traders []TraderSave `json:"traders"`
}

// SaveData captures every good and trader.
func (m *Market) SaveData() SaveData {
	var d SaveData
	for _, id := range m.order {
		st := m.states[id]
		d.Goods = append(d.Goods, GoodSave{
			GoodID:  id,
			Price:   st.Price,
			Supply:  st.Supply,
			Demand:  st.Demand,
			Trend:   st.Trend.String(),
			History: slices.Clone(st.History),
		})
	}
	for _, t := range m.traders {
		d.Traders = append(d.Traders, TraderSave{
			ID:         t.ID,
			Gold:       t.Gold,
			LastAction: t.LastAction,
			Holdings:   maps.Clone(t.Holdings),
		})
	}
	return d
}

// LoadSaveData restores goods and traders present in the catalog and roster. Entries for
// unknown ids are skipped with a warning; values are clamped to the market invariants.
func (m *Market) LoadSaveData(d SaveData) {
	for _, g := range d.Goods {
		st, ok := m.states[g.GoodID]
		if !ok {
			slog.Warn("saved good not in catalog", "good", g.GoodID)
			continue
		}
		st.Price = max(g.Price, 1)
		st.Supply = max(g.Supply, 0)
		st.Demand = clampInt(g.Demand, minDemand, maxDemand)
		st.Trend = ParseTrend(g.Trend)
		st.History = slices.Clone(g.History)
		if len(st.History) > historyLength {
			st.History = st.History[len(st.History)-historyLength:]
		}
	}

	byID := make(map[string]*Trader, len(m.traders))
	for _, t := range m.traders {
		byID[t.ID] = t
	}
	for _, ts := range d.Traders {
		t, ok := byID[ts.ID]
		if !ok {
			slog.Warn("saved trader not in roster", "trader", ts.ID)
			continue
		}
		t.Gold = ts.Gold
		t.LastAction = ts.LastAction
		t.Holdings = maps.Clone(ts.Holdings)
		if t.Holdings == nil {
			t.Holdings = make(map[string]int)
		}
	}
}
