package economy

import (
	"testing"
	"time"

	"github.com/talgya/goa1590/internal/entropy"
	"github.com/talgya/goa1590/internal/events"
)

func newTestMarket(src entropy.Source, traders ...*Trader) *Market {
	return NewMarket(nil, src, Catalog(), traders)
}

func setState(t *testing.T, m *Market, g GoodSave) {
	t.Helper()
	if _, ok := m.State(g.GoodID); !ok {
		t.Fatalf("unknown good %s", g.GoodID)
	}
	m.LoadSaveData(SaveData{Goods: []GoodSave{g}})
}

func TestUpdate_InvariantsHold(t *testing.T) {
	m := newTestMarket(entropy.NewSeeded(42))
	for i := 0; i < 2000; i++ {
		m.Update()
		for _, g := range m.Goods() {
			st, _ := m.State(g.ID)
			if st.Price < 1 {
				t.Fatalf("iteration %d: %s price %d < 1", i, g.ID, st.Price)
			}
			if st.Supply < 0 {
				t.Fatalf("iteration %d: %s supply %d < 0", i, g.ID, st.Supply)
			}
			if st.Demand < 1 || st.Demand > 20 {
				t.Fatalf("iteration %d: %s demand %d outside [1,20]", i, g.ID, st.Demand)
			}
			if len(st.History) > 20 {
				t.Fatalf("history grew to %d", len(st.History))
			}
		}
	}
}

func TestUpdate_PriceFromSupplyDemand(t *testing.T) {
	// 0.5 draws give a zero random walk and no volatility.
	m := newTestMarket(&entropy.Sequence{Values: []float64{0.5}})
	setState(t, m, GoodSave{GoodID: "good_pepper", Price: 15, Supply: 5, Demand: 20})
	setState(t, m, GoodSave{GoodID: "good_rice", Price: 5, Supply: 0, Demand: 3})
	setState(t, m, GoodSave{GoodID: "good_silk", Price: 60, Supply: 20, Demand: 2})

	var got events.MarketUpdate
	bus := events.NewBus()
	events.Subscribe(bus, func(e events.MarketUpdate) { got = e })
	m.bus = bus
	m.Update()

	pepper, _ := m.State("good_pepper")
	if pepper.Price != 30 || pepper.Trend != TrendRising {
		t.Fatalf("pepper price=%d trend=%s, want 30 rising (factor capped at 2)", pepper.Price, pepper.Trend)
	}
	rice, _ := m.State("good_rice")
	if rice.Price != 10 {
		t.Fatalf("rice with no supply price=%d want 10", rice.Price)
	}
	silk, _ := m.State("good_silk")
	if silk.Price != 30 || silk.Trend != TrendFalling {
		t.Fatalf("silk price=%d trend=%s, want 30 falling (factor floored at 0.5)", silk.Price, silk.Trend)
	}
	if len(got.Summary) != len(Catalog()) {
		t.Fatalf("summary has %d rows", len(got.Summary))
	}
	if got.Summary[0].GoodID != "good_pepper" || got.Summary[0].Trend != "rising" {
		t.Fatalf("first summary row %+v", got.Summary[0])
	}
}

func TestClassifyTrend(t *testing.T) {
	tests := []struct {
		old, price int
		want       Trend
	}{
		{100, 106, TrendRising},
		{100, 105, TrendStable},
		{100, 95, TrendStable},
		{100, 94, TrendFalling},
	}
	for _, tc := range tests {
		if got := classifyTrend(tc.old, tc.price); got != tc.want {
			t.Fatalf("%d->%d got %s want %s", tc.old, tc.price, got, tc.want)
		}
	}
}

func TestBuy_ZeroSupplyLeavesStateUnchanged(t *testing.T) {
	m := newTestMarket(nil)
	setState(t, m, GoodSave{GoodID: "good_cloves", Price: 40, Supply: 0, Demand: 7})
	before, _ := m.State("good_cloves")

	res := m.Buy("good_cloves")
	if res.Success {
		t.Fatalf("buy with no supply succeeded")
	}
	after, _ := m.State("good_cloves")
	if after.Supply != before.Supply || after.Demand != before.Demand || after.Price != before.Price {
		t.Fatalf("state changed: before=%+v after=%+v", before, after)
	}
}

func TestBuySell_AdjustSupplyAndDemand(t *testing.T) {
	m := newTestMarket(nil)
	setState(t, m, GoodSave{GoodID: "good_pepper", Price: 15, Supply: 3, Demand: 20})

	res := m.Buy("good_pepper")
	if !res.Success || res.Price != 15 {
		t.Fatalf("buy result %+v", res)
	}
	st, _ := m.State("good_pepper")
	if st.Supply != 2 || st.Demand != 20 {
		t.Fatalf("after buy supply=%d demand=%d", st.Supply, st.Demand)
	}

	setState(t, m, GoodSave{GoodID: "good_pepper", Price: 15, Supply: 2, Demand: 1})
	res = m.Sell("good_pepper")
	if !res.Success || res.Price != 11 {
		t.Fatalf("sell result %+v", res)
	}
	st, _ = m.State("good_pepper")
	if st.Supply != 3 || st.Demand != 1 {
		t.Fatalf("after sell supply=%d demand=%d", st.Supply, st.Demand)
	}
}

func TestUnknownGood_Sentinels(t *testing.T) {
	m := newTestMarket(nil)
	if m.Price("good_unicorn", true, "", "") != 0 {
		t.Fatalf("unknown good should price at 0")
	}
	if m.CurrentPrice("good_unicorn") != 0 {
		t.Fatalf("unknown good should price at 0")
	}
	if res := m.Buy("good_unicorn"); res.Success {
		t.Fatalf("unknown good buy succeeded")
	}
	if res := m.Sell("good_unicorn"); res.Success {
		t.Fatalf("unknown good sell succeeded")
	}
	if _, ok := m.State("good_unicorn"); ok {
		t.Fatalf("unknown good has state")
	}
}

func TestShipArrival_GlutSuppressesPrice(t *testing.T) {
	m := newTestMarket(nil)
	setState(t, m, GoodSave{GoodID: "good_pepper", Price: 15, Supply: 10, Demand: 10})

	m.ShipArrival([]events.Cargo{{GoodID: "good_pepper", Quantity: 10}})
	st, _ := m.State("good_pepper")
	if st.Price != 12 || st.Supply != 20 {
		t.Fatalf("price=%d supply=%d want 12 and 20", st.Price, st.Supply)
	}

	m.ShipArrival([]events.Cargo{{GoodID: "good_pepper", Quantity: 100}, {GoodID: "good_unicorn", Quantity: 3}})
	st, _ = m.State("good_pepper")
	if st.Price != 7 {
		t.Fatalf("price=%d want floor 7", st.Price)
	}
}

func TestShipArrival_NeverRaisesPrice(t *testing.T) {
	m := newTestMarket(nil)
	setState(t, m, GoodSave{GoodID: "good_cotton", Price: 4, Supply: 30, Demand: 1})

	for _, qty := range []int{10, 30} {
		m.ShipArrival([]events.Cargo{{GoodID: "good_cotton", Quantity: qty}})
		if p := m.CurrentPrice("good_cotton"); p != 4 {
			t.Fatalf("cotton under the floor landed %d bales: price %d want 4", qty, p)
		}
	}
	st, _ := m.State("good_cotton")
	if st.Supply != 70 {
		t.Fatalf("supply %d", st.Supply)
	}
}

func TestApplyTimeModifier_Compounds(t *testing.T) {
	m := newTestMarket(nil)
	setState(t, m, GoodSave{GoodID: "good_silver", Price: 100, Supply: 10, Demand: 10})

	m.ApplyTimeModifier(true)
	if p := m.CurrentPrice("good_silver"); p != 100 {
		t.Fatalf("market hours should not change price, got %d", p)
	}
	m.ApplyTimeModifier(false)
	if p := m.CurrentPrice("good_silver"); p != 115 {
		t.Fatalf("after hours price=%d want 115", p)
	}
	m.ApplyTimeModifier(false)
	if p := m.CurrentPrice("good_silver"); p != 132 {
		t.Fatalf("second application price=%d want 132", p)
	}
}

func TestSimulateNPCTrading_Aggressive(t *testing.T) {
	trader := &Trader{ID: "npc_a", Name: "A", Gold: 100, Preferred: []string{"good_pepper"}, ActiveHours: []int{10}, Personality: Aggressive}
	m := newTestMarket(&entropy.Sequence{Values: []float64{0.9}}, trader)

	if trades := m.SimulateNPCTrading(3, 0); len(trades) != 0 {
		t.Fatalf("inactive trader traded: %+v", trades)
	}

	trades := m.SimulateNPCTrading(10, 5*time.Second)
	if len(trades) != 1 {
		t.Fatalf("trades=%+v", trades)
	}
	tr := trades[0]
	if tr.Action != "buy" || tr.Quantity != 3 || tr.Price != 15 || tr.GoodID != "good_pepper" {
		t.Fatalf("trade=%+v", tr)
	}
	roster := m.Traders()
	if roster[0].Gold != 55 || roster[0].Holdings["good_pepper"] != 3 || roster[0].LastAction != 5*time.Second {
		t.Fatalf("trader after buy %+v", roster[0])
	}
	st, _ := m.State("good_pepper")
	if st.Supply != 7 || st.Demand != 13 {
		t.Fatalf("market after npc buy supply=%d demand=%d", st.Supply, st.Demand)
	}
	if trader.Gold != 100 {
		t.Fatalf("market must own a copy of the roster")
	}
}

func TestSimulateNPCTrading_SkipsAndGuards(t *testing.T) {
	poor := &Trader{ID: "npc_p", Name: "P", Gold: 9, Preferred: []string{"good_pepper"}, ActiveHours: []int{10}, Personality: Aggressive}
	m := newTestMarket(&entropy.Sequence{Values: []float64{0.9}}, poor)
	if trades := m.SimulateNPCTrading(10, 0); len(trades) != 0 {
		t.Fatalf("trader under 10 gold traded")
	}

	skipper := &Trader{ID: "npc_s", Name: "S", Gold: 100, Preferred: []string{"good_pepper"}, ActiveHours: []int{10}, Personality: Aggressive}
	m = newTestMarket(&entropy.Sequence{Values: []float64{0.1}}, skipper)
	if trades := m.SimulateNPCTrading(10, 0); len(trades) != 0 {
		t.Fatalf("60%% skip roll should have skipped")
	}

	thin := &Trader{ID: "npc_t", Name: "T", Gold: 100, Preferred: []string{"good_pepper"}, ActiveHours: []int{10}, Personality: Aggressive}
	m = newTestMarket(&entropy.Sequence{Values: []float64{0.9}}, thin)
	setState(t, m, GoodSave{GoodID: "good_pepper", Price: 15, Supply: 2, Demand: 10})
	if trades := m.SimulateNPCTrading(10, 0); len(trades) != 0 {
		t.Fatalf("supply of 2 should not be traded")
	}
}

func TestSimulateNPCTrading_CautiousAvoidsRisingPrices(t *testing.T) {
	trader := &Trader{ID: "npc_c", Name: "C", Gold: 100, Preferred: []string{"good_pepper"}, ActiveHours: []int{10}, Personality: Cautious}
	m := newTestMarket(&entropy.Sequence{Values: []float64{0.9}}, trader)
	setState(t, m, GoodSave{GoodID: "good_pepper", Price: 15, Supply: 10, Demand: 10, Trend: "rising"})
	if trades := m.SimulateNPCTrading(10, 0); len(trades) != 0 {
		t.Fatalf("cautious trader bought into a rising market")
	}

	setState(t, m, GoodSave{GoodID: "good_pepper", Price: 15, Supply: 10, Demand: 10, Trend: "stable"})
	trades := m.SimulateNPCTrading(10, 0)
	if len(trades) != 1 || trades[0].Quantity != 1 {
		t.Fatalf("trades=%+v", trades)
	}
}

func TestSimulateNPCTrading_SpeculatorSellsIntoFalls(t *testing.T) {
	trader := &Trader{
		ID: "npc_x", Name: "X", Gold: 100, Preferred: []string{"good_pepper"}, ActiveHours: []int{10},
		Personality: Speculator, Holdings: map[string]int{"good_pepper": 1},
	}
	// 0.9 passes the skip roll, 0.0 picks the only good, 0.1 passes the 50% sell roll.
	m := newTestMarket(&entropy.Sequence{Values: []float64{0.9, 0.0, 0.1}}, trader)
	setState(t, m, GoodSave{GoodID: "good_pepper", Price: 15, Supply: 10, Demand: 10, Trend: "falling"})

	trades := m.SimulateNPCTrading(10, 0)
	if len(trades) != 1 || trades[0].Action != "sell" || trades[0].Price != 11 {
		t.Fatalf("trades=%+v", trades)
	}
	roster := m.Traders()
	if roster[0].Gold != 111 || roster[0].Holdings["good_pepper"] != 0 {
		t.Fatalf("trader after sell %+v", roster[0])
	}
}

func TestSimulateNPCTrading_SpeculatorBuysRises(t *testing.T) {
	trader := &Trader{ID: "npc_x", Name: "X", Gold: 100, Preferred: []string{"good_pepper"}, ActiveHours: []int{10}, Personality: Speculator}
	m := newTestMarket(&entropy.Sequence{Values: []float64{0.9}}, trader)
	setState(t, m, GoodSave{GoodID: "good_pepper", Price: 15, Supply: 10, Demand: 10, Trend: "rising"})

	var published []events.NPCTrade
	bus := events.NewBus()
	events.Subscribe(bus, func(e events.NPCTrade) { published = append(published, e) })
	m.bus = bus

	trades := m.SimulateNPCTrading(10, 0)
	if len(trades) != 1 || trades[0].Quantity != 2 {
		t.Fatalf("trades=%+v", trades)
	}
	if len(published) != 1 || published[0].Trader != "X" {
		t.Fatalf("published=%+v", published)
	}
}

func TestDefaultTraders_PreferCatalogGoods(t *testing.T) {
	m := newTestMarket(nil, DefaultTraders()...)
	for _, tr := range m.Traders() {
		if len(tr.ActiveHours) == 0 {
			t.Fatalf("%s never trades", tr.ID)
		}
		for _, id := range tr.Preferred {
			if _, ok := m.Good(id); !ok {
				t.Fatalf("%s prefers unknown good %s", tr.ID, id)
			}
		}
	}
}

func TestSaveData_RoundTrip(t *testing.T) {
	m := newTestMarket(entropy.NewSeeded(9), DefaultTraders()...)
	for i := 0; i < 10; i++ {
		m.Update()
		m.SimulateNPCTrading(12, time.Duration(i)*time.Second)
	}
	saved := m.SaveData()

	restored := newTestMarket(nil, DefaultTraders()...)
	restored.LoadSaveData(saved)
	again := restored.SaveData()

	for i := range saved.Goods {
		a, b := saved.Goods[i], again.Goods[i]
		if a.Price != b.Price || a.Supply != b.Supply || a.Demand != b.Demand || a.Trend != b.Trend || len(a.History) != len(b.History) {
			t.Fatalf("good %s mismatch: %+v vs %+v", a.GoodID, a, b)
		}
	}
	for i := range saved.Traders {
		if saved.Traders[i].Gold != again.Traders[i].Gold {
			t.Fatalf("trader %s gold mismatch", saved.Traders[i].ID)
		}
	}
}
