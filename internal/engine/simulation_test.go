package engine

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/talgya/goa1590/internal/events"
	"github.com/talgya/goa1590/internal/harbor"
	"github.com/talgya/goa1590/internal/weather"
)

func newTestSim(t *testing.T, mutate func(*Options)) *Simulation {
	t.Helper()
	opts := DefaultOptions()
	opts.Seed = 1590
	if mutate != nil {
		mutate(&opts)
	}
	s, err := NewSimulation(opts)
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	return s
}

func advance(s *Simulation, total, step time.Duration) {
	for elapsed := time.Duration(0); elapsed < total; elapsed += step {
		s.Update(step)
	}
}

func TestNewSimulation_RejectsBadOptions(t *testing.T) {
	opts := DefaultOptions()
	opts.NPCTradeInterval = 0
	if _, err := NewSimulation(opts); err == nil {
		t.Fatalf("zero interval accepted")
	}
	opts = DefaultOptions()
	opts.StartLocation = "lisbon"
	if _, err := NewSimulation(opts); err == nil {
		t.Fatalf("unknown start location accepted")
	}
}

func TestUpdate_ClockDrivesHourAndDay(t *testing.T) {
	s := newTestSim(t, func(o *Options) { o.MinutesPerSecond = 60 })
	var days []int
	events.Subscribe(s.Bus, func(e events.NewDay) { days = append(days, e.DayCount) })

	advance(s, time.Second, 100*time.Millisecond)
	if s.Clock.Hour() != 7 || s.Player.Hour() != 7 {
		t.Fatalf("clock hour=%d player hour=%d", s.Clock.Hour(), s.Player.Hour())
	}

	advance(s, 17*time.Second, 100*time.Millisecond)
	if len(days) != 1 || days[0] != 1 {
		t.Fatalf("days=%v", days)
	}
	if d := s.SaveData().Weather.Day; d != 1 {
		t.Fatalf("weather saw day %d", d)
	}
}

func TestUpdate_MarketIntervals(t *testing.T) {
	s := newTestSim(t, nil)
	var updates int
	events.Subscribe(s.Bus, func(events.MarketUpdate) { updates++ })

	advance(s, 29*time.Second, time.Second)
	if updates != 0 {
		t.Fatalf("market updated early")
	}
	advance(s, time.Second, time.Second)
	if updates != 1 || s.Stats.MarketUpdates != 1 {
		t.Fatalf("updates=%d stats=%d", updates, s.Stats.MarketUpdates)
	}
	s.Update(90 * time.Second)
	if updates != 4 {
		t.Fatalf("a long frame should catch up: updates=%d", updates)
	}
}

func TestUpdate_MarketClosingSurcharge(t *testing.T) {
	s := newTestSim(t, func(o *Options) { o.MinutesPerSecond = 60 })
	if !s.MarketOpen() {
		t.Fatalf("market closed at dawn")
	}
	advance(s, 13*time.Second, time.Second)
	if p := s.Market.CurrentPrice("good_silver"); p != 100 {
		t.Fatalf("silver at 19:00 = %d", p)
	}
	advance(s, time.Second, time.Second)
	if s.Clock.Hour() != 20 || s.MarketOpen() {
		t.Fatalf("hour=%d open=%v", s.Clock.Hour(), s.MarketOpen())
	}
	if p := s.Market.CurrentPrice("good_silver"); p != 115 {
		t.Fatalf("after-hours silver = %d", p)
	}
	advance(s, time.Second, time.Second)
	if p := s.Market.CurrentPrice("good_silver"); p != 115 {
		t.Fatalf("surcharge compounded within closed hours: %d", p)
	}
}

func TestCargoUnloaded_LowersMarketPrice(t *testing.T) {
	s := newTestSim(t, nil)
	s.Bus.Publish(events.CargoUnloaded{
		EventID:       "arr-1",
		ShipType:      "gujarati_pattamar",
		Goods:         []events.Cargo{{GoodID: "good_pepper", Quantity: 10}},
		PriceModifier: harbor.UnloadPriceModifier,
	})
	st, _ := s.Market.State("good_pepper")
	if st.Price != 12 || st.Supply != 20 {
		t.Fatalf("pepper %+v", st)
	}
}

func TestSeasonChange_CancelsShipping(t *testing.T) {
	s := newTestSim(t, nil)
	for i := 0; i < 20; i++ {
		s.Harbor.Schedule(harbor.ShipDeparture, 200+i, harbor.Payload{ShipType: "portuguese_carrack"})
	}
	s.Bus.Publish(events.SeasonChange{Previous: "preMonsoon", Current: "monsoon"})
	if n := len(s.Harbor.ScheduledEvents()); n >= 20 {
		t.Fatalf("monsoon onset cancelled nothing")
	}
	if len(s.Events) == 0 || s.Events[len(s.Events)-1].Category != "weather" {
		t.Fatalf("season change not recorded: %+v", s.Events)
	}
}

func TestPlayerTrades(t *testing.T) {
	s := newTestSim(t, nil)

	res := s.PlayerBuy("good_pepper", "", "")
	if !res.Success || res.Price != 15 {
		t.Fatalf("buy %+v", res)
	}
	if s.Player.Gold() != 85 || s.Player.ItemCount("good_pepper") != 1 {
		t.Fatalf("gold=%d pepper=%d", s.Player.Gold(), s.Player.ItemCount("good_pepper"))
	}

	res = s.PlayerSell("good_pepper", "", "")
	if !res.Success || res.Price != 11 {
		t.Fatalf("sell %+v", res)
	}
	if s.Player.Gold() != 96 || s.Player.HasItem("good_pepper") {
		t.Fatalf("gold=%d", s.Player.Gold())
	}
	if res := s.PlayerSell("good_pepper", "", ""); res.Success {
		t.Fatalf("sold pepper the player does not carry")
	}
	if res := s.PlayerBuy("good_unicorn", "", ""); res.Success {
		t.Fatalf("bought an unknown good")
	}
}

func TestPlayerTrades_RainShutsOutdoorStalls(t *testing.T) {
	s := newTestSim(t, nil)
	before, _ := s.Market.State("good_pepper")

	s.Weather.SetWeather(weather.HeavyRain, 1, 8, true)
	if !s.OutdoorTradeClosed() {
		t.Fatalf("heavy rain left the quay open")
	}
	if res := s.PlayerBuy("good_pepper", "", ""); res.Success || res.Message == "" {
		t.Fatalf("bought in heavy rain: %+v", res)
	}
	after, _ := s.Market.State("good_pepper")
	if after.Supply != before.Supply || s.Player.Gold() != 100 {
		t.Fatalf("refused purchase changed state")
	}

	s.Weather.SetWeather(weather.Rain, 0.5, 8, true)
	if res := s.PlayerBuy("good_pepper", "", ""); !res.Success {
		t.Fatalf("light rain closed the stalls: %s", res.Message)
	}
	s.Weather.SetWeather(weather.Rain, 0.8, 8, true)
	if res := s.PlayerSell("good_pepper", "", ""); res.Success {
		t.Fatalf("sold in driving rain")
	}
	if !s.Player.HasItem("good_pepper") {
		t.Fatalf("refused sale took the pepper")
	}

	if res := s.PlayerMove("ribeira_to_rua"); !res.Allowed {
		t.Fatalf("move: %s", res.Reason)
	}
	s.Weather.SetWeather(weather.HeavyRain, 1, 8, true)
	if res := s.PlayerSell("good_pepper", "", ""); !res.Success {
		t.Fatalf("indoor sale refused: %s", res.Message)
	}
}

func TestUpdate_HeavyRainPausesNPCTrading(t *testing.T) {
	s := newTestSim(t, nil)
	s.Weather.SetWeather(weather.HeavyRain, 1, 8, true)
	advance(s, 50*time.Second, time.Second)
	if s.Stats.NPCTrades != 0 {
		t.Fatalf("%d NPC trades in heavy rain", s.Stats.NPCTrades)
	}
	if s.Stats.MarketUpdates != 1 {
		t.Fatalf("market updates %d", s.Stats.MarketUpdates)
	}
}

func TestPlayerBuy_CannotAfford(t *testing.T) {
	s := newTestSim(t, func(o *Options) { o.PlayerGold = 5 })
	before, _ := s.Market.State("good_silver")
	if res := s.PlayerBuy("good_silver", "", ""); res.Success {
		t.Fatalf("bought silver with 5 pardaos")
	}
	after, _ := s.Market.State("good_silver")
	if after.Supply != before.Supply || s.Player.Gold() != 5 {
		t.Fatalf("failed purchase changed state")
	}
}

func TestPlayerSellToShip(t *testing.T) {
	s := newTestSim(t, nil)
	s.Harbor.LoadSaveData(harbor.SaveData{Active: []harbor.ActiveEvent{{
		ID: "dem-1", Type: harbor.CargoDemand, StartDay: 0, ExpiryDay: 1,
		Payload: harbor.Payload{ShipType: "portuguese_carrack", GoodID: "good_cloves", Quantity: 5, Price: 60},
	}}})

	if _, err := s.PlayerSellToShip("dem-1", 3); err == nil {
		t.Fatalf("sold cloves the player does not carry")
	}
	s.Player.AddItem("good_cloves", 2)
	sale, err := s.PlayerSellToShip("dem-1", 3)
	if err != nil {
		t.Fatal(err)
	}
	if sale.Quantity != 2 || sale.Total != 120 || sale.Remaining != 3 {
		t.Fatalf("sale %+v", sale)
	}
	if s.Player.Gold() != 220 || s.Player.HasItem("good_cloves") {
		t.Fatalf("gold=%d", s.Player.Gold())
	}
}

func TestPlayerMove_UsesStanding(t *testing.T) {
	s := newTestSim(t, nil)
	if res := s.PlayerMove("ribeira_to_wharf"); res.Allowed {
		t.Fatalf("wharf open at dawn")
	}
	s.Player.SetHour(22)
	if res := s.PlayerMove("ribeira_to_wharf"); !res.Allowed {
		t.Fatalf("wharf closed at night: %s", res.Reason)
	}
	if s.Status().Location != "smugglers_wharf" {
		t.Fatalf("location %s", s.Status().Location)
	}
}

func TestSaveData_RoundTrip(t *testing.T) {
	s := newTestSim(t, func(o *Options) { o.MinutesPerSecond = 60 })
	advance(s, 3*time.Minute, 250*time.Millisecond)
	s.PlayerBuy("good_rice", "", "")
	saved := s.SaveData()

	r := newTestSim(t, nil)
	if err := r.LoadSaveData(saved); err != nil {
		t.Fatalf("LoadSaveData: %v", err)
	}
	a, _ := json.Marshal(saved)
	b, _ := json.Marshal(r.SaveData())
	if string(a) != string(b) {
		t.Fatalf("round trip differs:\n%s\n%s", a, b)
	}
	if r.Clock.Day() != s.Clock.Day() || r.Status().Location != s.Status().Location {
		t.Fatalf("clock or location not restored")
	}
}

func TestLoadSaveData_RejectsWithoutPartialRestore(t *testing.T) {
	src := newTestSim(t, nil)
	src.Weather.SetWeather(weather.Fog, 0.9, 5, true)
	src.Player.Earn(400)

	badLocation := src.SaveData()
	badLocation.Location.Current = "lisbon"
	badWeather := src.SaveData()
	badWeather.Weather.State = "snow"

	r := newTestSim(t, nil)
	want, _ := json.Marshal(r.SaveData())
	for name, d := range map[string]SaveData{"location": badLocation, "weather": badWeather} {
		if err := r.LoadSaveData(d); err == nil {
			t.Fatalf("%s: bad snapshot accepted", name)
		}
		got, _ := json.Marshal(r.SaveData())
		if string(got) != string(want) {
			t.Fatalf("%s: failed load changed the simulation:\n%s\n%s", name, want, got)
		}
	}
}

func TestTakeUnsaved(t *testing.T) {
	s := newTestSim(t, nil)
	s.record("market", "one")
	s.record("market", "two")
	if got := s.TakeUnsaved(); len(got) != 2 {
		t.Fatalf("unsaved=%d", len(got))
	}
	if got := s.TakeUnsaved(); len(got) != 0 {
		t.Fatalf("unsaved not cleared")
	}
	if len(s.Events) != 2 {
		t.Fatalf("recent events cleared")
	}
}

func TestEngine_StepAndSpeed(t *testing.T) {
	e := NewEngine(10 * time.Millisecond)
	var total time.Duration
	e.OnFrame = func(dt time.Duration) { total += dt }

	e.Step(time.Second)
	e.SetSpeed(0)
	e.frame()
	e.SetSpeed(3)
	e.frame()
	if e.Frames != 2 || total != time.Second+30*time.Millisecond {
		t.Fatalf("frames=%d total=%v", e.Frames, total)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after its context ended")
	}
	if e.Running() {
		t.Fatalf("engine still running")
	}
}
