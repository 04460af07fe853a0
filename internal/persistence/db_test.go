package persistence

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/talgya/goa1590/internal/engine"
	"github.com/talgya/goa1590/internal/harbor"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "goa.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newSim(t *testing.T) *engine.Simulation {
	t.Helper()
	opts := engine.DefaultOptions()
	opts.Seed = 1590
	opts.MinutesPerSecond = 60
	sim, err := engine.NewSimulation(opts)
	if err != nil {
		t.Fatalf("NewSimulation: %v", err)
	}
	return sim
}

func TestLoadWorldState_FreshDatabase(t *testing.T) {
	db := openTestDB(t)
	if db.HasWorldState() {
		t.Fatalf("empty database reports a save")
	}
	ok, err := db.LoadWorldState(newSim(t))
	if err != nil || ok {
		t.Fatalf("fresh load: ok=%v err=%v", ok, err)
	}
}

func TestSaveWorldState_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	sim := newSim(t)
	for i := 0; i < 3000; i++ {
		sim.Update(100 * time.Millisecond)
	}
	sim.PlayerBuy("good_pepper", "", "")
	sim.Harbor.Schedule(harbor.ShipDeparture, 99, harbor.Payload{ShipType: "chinese_junk", ShipName: "Golden Phoenix"})

	if err := db.SaveWorldState(sim); err != nil {
		t.Fatalf("SaveWorldState: %v", err)
	}
	if !db.HasWorldState() {
		t.Fatalf("save not detected")
	}

	restored := newSim(t)
	ok, err := db.LoadWorldState(restored)
	if err != nil || !ok {
		t.Fatalf("LoadWorldState: ok=%v err=%v", ok, err)
	}

	want, _ := json.Marshal(sim.SaveData())
	got, _ := json.Marshal(restored.SaveData())
	if string(want) != string(got) {
		t.Fatalf("restored state differs:\nwant %s\ngot  %s", want, got)
	}
	if len(restored.Events) == 0 {
		t.Fatalf("recent events not restored")
	}
}

func TestSaveWorldState_EventsAppendOnce(t *testing.T) {
	db := openTestDB(t)
	sim := newSim(t)
	for i := 0; i < 200; i++ {
		sim.Update(100 * time.Millisecond) // through the 20:00 closing
	}
	if err := db.SaveWorldState(sim); err != nil {
		t.Fatal(err)
	}
	first, err := db.RecentEvents(100)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) == 0 {
		t.Fatalf("no events saved")
	}
	if err := db.SaveWorldState(sim); err != nil {
		t.Fatal(err)
	}
	second, _ := db.RecentEvents(100)
	if len(second) != len(first) {
		t.Fatalf("events duplicated: %d then %d", len(first), len(second))
	}
}

func TestSaveMarket_ReplacesRows(t *testing.T) {
	db := openTestDB(t)
	sim := newSim(t)
	d := sim.Market.SaveData()
	if err := db.SaveMarket(d); err != nil {
		t.Fatal(err)
	}
	d.Goods = d.Goods[:2]
	d.Goods[0].Price = 999
	if err := db.SaveMarket(d); err != nil {
		t.Fatal(err)
	}
	got, err := db.LoadMarket()
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Goods) != 2 || got.Goods[0].Price != 999 {
		t.Fatalf("goods %+v", got.Goods)
	}
	if len(got.Traders) != len(d.Traders) {
		t.Fatalf("traders %d, want %d", len(got.Traders), len(d.Traders))
	}
}

func TestMeta(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.GetMeta("missing"); err == nil {
		t.Fatalf("missing key returned no error")
	}
	if err := db.SaveMeta("k", "v1"); err != nil {
		t.Fatal(err)
	}
	if err := db.SaveMeta("k", "v2"); err != nil {
		t.Fatal(err)
	}
	if v, _ := db.GetMeta("k"); v != "v2" {
		t.Fatalf("meta = %q", v)
	}
}
