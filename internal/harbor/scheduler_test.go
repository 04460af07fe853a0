package harbor

import (
	"math"
	"testing"

	"github.com/talgya/goa1590/internal/calendar"
	"github.com/talgya/goa1590/internal/entropy"
	"github.com/talgya/goa1590/internal/events"
)

type fixedPrices map[string]int

func (f fixedPrices) CurrentPrice(goodID string) int { return f[goodID] }

type recorder struct {
	arrivals   []events.ShipArrival
	departures []events.ShipDeparture
	unloaded   []events.CargoUnloaded
	demands    []events.CargoDemand
	expired    []events.CargoDemandExpired
}

func record(bus *events.Bus) *recorder {
	r := &recorder{}
	events.Subscribe(bus, func(e events.ShipArrival) { r.arrivals = append(r.arrivals, e) })
	events.Subscribe(bus, func(e events.ShipDeparture) { r.departures = append(r.departures, e) })
	events.Subscribe(bus, func(e events.CargoUnloaded) { r.unloaded = append(r.unloaded, e) })
	events.Subscribe(bus, func(e events.CargoDemand) { r.demands = append(r.demands, e) })
	events.Subscribe(bus, func(e events.CargoDemandExpired) { r.expired = append(r.expired, e) })
	return r
}

// quietShips returns the catalog with arrivals disabled so tests control traffic.
func quietShips() []ShipType {
	ships := ShipTypes()
	for i := range ships {
		ships[i].ArrivalProbability = 0
	}
	return ships
}

func carrack(t *testing.T) ShipType {
	t.Helper()
	for _, st := range ShipTypes() {
		if st.ID == "portuguese_carrack" {
			return st
		}
	}
	t.Fatal("no carrack in catalog")
	return ShipType{}
}

func TestArrivalProbability(t *testing.T) {
	ships := ShipTypes()
	tests := []struct {
		ship   string
		season calendar.Season
		want   float64
	}{
		{"portuguese_carrack", calendar.SeasonDry, 0.15},
		{"portuguese_carrack", calendar.SeasonMonsoon, 0.15 * 0.3 * 0.05},
		{"arab_dhow", calendar.SeasonMonsoon, 0.20 * 0.3 * 0.2},
		{"gujarati_pattamar", calendar.SeasonPreMonsoon, 0.25 * 0.85 * 0.7},
		{"chinese_junk", calendar.SeasonPostMonsoon, 0.08 * 0.8 * 0.7},
	}
	for _, tc := range tests {
		var st ShipType
		for _, s := range ships {
			if s.ID == tc.ship {
				st = s
			}
		}
		got := ArrivalProbability(st, tc.season, tc.season.TradeModifier())
		if math.Abs(got-tc.want) > 1e-12 {
			t.Fatalf("%s in %s: got %v want %v", tc.ship, tc.season, got, tc.want)
		}
	}
}

func TestCarrackArrival_SchedulesDeparture(t *testing.T) {
	ships := []ShipType{carrack(t)}
	bus := events.NewBus()
	rec := record(bus)
	s := NewScheduler(bus, entropy.NewSeeded(1590), ships)

	for day := 1; day <= 60; day++ {
		before := len(rec.arrivals)
		s.OnNewDay(day)
		if len(rec.arrivals) == before {
			continue
		}
		a := rec.arrivals[len(rec.arrivals)-1]
		if a.Day != day || a.StayDays < 2 || a.StayDays > 4 || a.DepartDay != day+a.StayDays {
			t.Fatalf("arrival %+v", a)
		}
		found := false
		for _, e := range s.ScheduledEvents() {
			if e.Type == ShipDeparture && e.Payload.ArrivalID == a.EventID && e.Day == a.DepartDay {
				found = true
			}
		}
		if !found {
			t.Fatalf("no departure scheduled for %s on day %d", a.EventID, a.DepartDay)
		}
	}
	if len(rec.arrivals) == 0 {
		t.Fatalf("no carrack arrived in 60 dry days")
	}
	if len(rec.unloaded) != len(rec.arrivals) {
		t.Fatalf("%d arrivals but %d unloads", len(rec.arrivals), len(rec.unloaded))
	}
}

func TestArrival_ExactDraw(t *testing.T) {
	bus := events.NewBus()
	rec := record(bus)
	// 0.1 passes the 0.15 roll and selects the lowest stay, quantity and name.
	s := NewScheduler(bus, &entropy.Sequence{Values: []float64{0.1}}, []ShipType{carrack(t)})
	s.OnNewDay(1)

	if len(rec.arrivals) != 1 {
		t.Fatalf("arrivals=%+v", rec.arrivals)
	}
	a := rec.arrivals[0]
	if a.StayDays != 2 || a.ShipName != "Madre de Deus" || a.Origin != "Lisbon" {
		t.Fatalf("arrival %+v", a)
	}
	if a.Cargo[0] != (events.Cargo{GoodID: "good_wine", Quantity: 11}) {
		t.Fatalf("cargo %+v", a.Cargo)
	}
	u := rec.unloaded[0]
	if u.EventID != a.EventID || u.PriceModifier != UnloadPriceModifier || len(u.Goods) != 2 {
		t.Fatalf("unloaded %+v", u)
	}
	active := s.ActiveEvents()
	if len(active) != 1 || active[0].Type != ShipArrival || active[0].ExpiryDay != 3 {
		t.Fatalf("active %+v", active)
	}
}

func TestDeparture_PostsDemandAndExpires(t *testing.T) {
	bus := events.NewBus()
	rec := record(bus)
	s := NewScheduler(bus, &entropy.Sequence{Values: []float64{0.5}}, quietShips())
	s.Prices = fixedPrices{"good_pepper": 15, "good_cinnamon": 25, "good_cloves": 40}

	s.LoadSaveData(SaveData{
		Active: []ActiveEvent{{ID: "arr-1", Type: ShipArrival, StartDay: 1, ExpiryDay: 3,
			Payload: Payload{ShipType: "portuguese_carrack", ShipName: "Santa Cruz"}}},
	})
	s.Schedule(ShipDeparture, 3, Payload{ShipType: "portuguese_carrack", ShipName: "Santa Cruz", ArrivalID: "arr-1"})

	s.OnNewDay(2)
	if len(rec.departures) != 0 {
		t.Fatalf("departed early")
	}
	s.OnNewDay(3)
	if len(rec.departures) != 1 || rec.departures[0].Reason != "scheduled" || rec.departures[0].EventID != "arr-1" {
		t.Fatalf("departures %+v", rec.departures)
	}
	if len(rec.demands) != 3 {
		t.Fatalf("demands %+v", rec.demands)
	}
	// 15 × 1.5; quantity 5 + int(0.5 × 11)
	if d := rec.demands[0]; d.GoodID != "good_pepper" || d.Price != 22 || d.Quantity != 10 || d.ExpiryDay != 4 {
		t.Fatalf("pepper demand %+v", d)
	}
	for _, e := range s.ActiveEvents() {
		if e.ID == "arr-1" {
			t.Fatalf("arrival still active after departure")
		}
	}
	if len(s.ScheduledEvents()) != 0 {
		t.Fatalf("departure fired but still scheduled")
	}

	s.OnNewDay(3)
	if len(rec.departures) != 1 {
		t.Fatalf("departure fired twice")
	}
	s.OnNewDay(4)
	if len(rec.expired) != 0 {
		t.Fatalf("demand expired on its expiry day")
	}
	s.OnNewDay(5)
	if len(rec.expired) != 3 || rec.expired[0].Remaining != 10 {
		t.Fatalf("expired %+v", rec.expired)
	}
	if len(s.ActiveEvents()) != 0 {
		t.Fatalf("active %+v", s.ActiveEvents())
	}
}

func TestExpiredArrival_SynthesizesDeparture(t *testing.T) {
	bus := events.NewBus()
	rec := record(bus)
	s := NewScheduler(bus, &entropy.Sequence{Values: []float64{0.5}}, quietShips())

	s.LoadSaveData(SaveData{
		Active: []ActiveEvent{{ID: "arr-2", Type: ShipArrival, StartDay: 1, ExpiryDay: 3,
			Payload: Payload{ShipType: "arab_dhow", ShipName: "Sabah"}}},
	})
	s.OnNewDay(3)
	if len(rec.departures) != 0 {
		t.Fatalf("expired on expiry day")
	}
	s.OnNewDay(4)
	if len(rec.departures) != 1 || rec.departures[0].Reason != "expired" || rec.departures[0].ShipName != "Sabah" {
		t.Fatalf("departures %+v", rec.departures)
	}
	if len(rec.demands) != 0 {
		t.Fatalf("demand posted without a price source")
	}
}

func TestOnSeasonChange_MonsoonCancels(t *testing.T) {
	s := NewScheduler(nil, &entropy.Sequence{Values: []float64{0.5, 0.9}}, quietShips())
	for i := 0; i < 10; i++ {
		s.Schedule(ShipDeparture, 100+i, Payload{ShipType: "portuguese_carrack"})
	}

	s.OnSeasonChange(calendar.SeasonDry, calendar.SeasonPreMonsoon)
	if n := len(s.ScheduledEvents()); n != 10 {
		t.Fatalf("non-monsoon change cancelled events: %d left", n)
	}
	s.OnSeasonChange(calendar.SeasonPreMonsoon, calendar.SeasonMonsoon)
	if n := len(s.ScheduledEvents()); n != 5 {
		t.Fatalf("%d events survived, want 5", n)
	}
	s.OnSeasonChange(calendar.SeasonMonsoon, calendar.SeasonMonsoon)
	if n := len(s.ScheduledEvents()); n != 5 {
		t.Fatalf("monsoon to monsoon cancelled events")
	}
}

func TestOnSeasonChange_CancelledDepartureLeavesADayLate(t *testing.T) {
	bus := events.NewBus()
	rec := record(bus)
	s := NewScheduler(bus, &entropy.Sequence{Values: []float64{0.5}}, quietShips())
	s.LoadSaveData(SaveData{
		Active: []ActiveEvent{{ID: "arr-3", Type: ShipArrival, StartDay: 2, ExpiryDay: 5,
			Payload: Payload{ShipType: "portuguese_carrack", ShipName: "Bom Jesus"}}},
	})
	s.Schedule(ShipDeparture, 5, Payload{ShipType: "portuguese_carrack", ShipName: "Bom Jesus", ArrivalID: "arr-3"})

	s.OnSeasonChange(calendar.SeasonPreMonsoon, calendar.SeasonMonsoon)
	if n := len(s.ScheduledEvents()); n != 0 {
		t.Fatalf("departure not cancelled: %d scheduled", n)
	}

	s.OnNewDay(5)
	if len(rec.departures) != 0 || len(s.ActiveEvents()) != 1 {
		t.Fatalf("ship left on its scheduled day: %+v", rec.departures)
	}
	s.OnNewDay(6)
	if len(rec.departures) != 1 {
		t.Fatalf("departures %+v", rec.departures)
	}
	if d := rec.departures[0]; d.Day != 6 || d.Reason != "expired" || d.EventID != "arr-3" {
		t.Fatalf("departure %+v", d)
	}
}

func TestFulfillDemand(t *testing.T) {
	s := NewScheduler(nil, nil, quietShips())
	s.LoadSaveData(SaveData{Active: []ActiveEvent{
		{ID: "dem-1", Type: CargoDemand, StartDay: 1, ExpiryDay: 2, Payload: Payload{ShipType: "chinese_junk", GoodID: "good_pepper", Quantity: 6, Price: 19}},
		{ID: "arr-1", Type: ShipArrival, StartDay: 1, ExpiryDay: 4, Payload: Payload{ShipType: "chinese_junk"}},
	}})

	sale, err := s.FulfillDemand("dem-1", 4)
	if err != nil {
		t.Fatal(err)
	}
	if sale.Quantity != 4 || sale.Total != 76 || sale.Remaining != 2 {
		t.Fatalf("sale %+v", sale)
	}
	sale, err = s.FulfillDemand("dem-1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if sale.Quantity != 2 || sale.Remaining != 0 {
		t.Fatalf("sale %+v", sale)
	}
	if len(s.ActiveEvents()) != 1 {
		t.Fatalf("exhausted demand still active")
	}

	if _, err := s.FulfillDemand("dem-1", 1); err == nil {
		t.Fatalf("retired demand accepted a sale")
	}
	if _, err := s.FulfillDemand("arr-1", 1); err == nil {
		t.Fatalf("arrival accepted a sale")
	}
	if _, err := s.FulfillDemand("arr-1", 0); err == nil {
		t.Fatalf("zero quantity accepted")
	}
}

func TestSaveData_CopiesAndFilters(t *testing.T) {
	s := NewScheduler(nil, nil, quietShips())
	s.Schedule(ShipDeparture, 5, Payload{ShipType: "arab_dhow", Cargo: []events.Cargo{{GoodID: "good_pearls", Quantity: 2}}})
	d := s.SaveData()
	d.Scheduled[0].Payload.Cargo[0].Quantity = 99
	if s.ScheduledEvents()[0].Payload.Cargo[0].Quantity != 2 {
		t.Fatalf("save data aliases scheduler state")
	}

	d.Scheduled = append(d.Scheduled, ScheduledEvent{ID: "x", Type: "kraken_attack", Day: 6})
	r := NewScheduler(nil, nil, quietShips())
	r.LoadSaveData(d)
	if len(r.ScheduledEvents()) != 1 {
		t.Fatalf("unknown event type restored")
	}
}
