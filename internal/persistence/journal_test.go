package persistence

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/talgya/goa1590/internal/events"
)

type fixedClock struct{ day, hour, minute int }

func (c *fixedClock) Day() int    { return c.day }
func (c *fixedClock) Hour() int   { return c.hour }
func (c *fixedClock) Minute() int { return c.minute }

func TestJournal_RotatesPerDay(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "journal")
	j := NewJournal(dir)
	j.SkipMinutes = true
	bus := events.NewBus()
	clock := &fixedClock{day: 3, hour: 9}
	j.Attach(bus, clock)

	bus.Publish(events.MinuteChange{Hour: 9, Minute: 1})
	bus.Publish(events.ShipArrival{EventID: "a1", ShipName: "Santa Cruz", Day: 3})
	bus.Publish(events.CargoUnloaded{EventID: "a1", Goods: []events.Cargo{{GoodID: "good_wine", Quantity: 12}}})
	clock.day = 4
	bus.Publish(events.NewDay{DayCount: 4})
	if err := j.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	day3, err := ReadJournal(j.PathForDay(3))
	if err != nil {
		t.Fatalf("read day 3: %v", err)
	}
	if len(day3) != 2 {
		t.Fatalf("day 3 has %d entries, want 2", len(day3))
	}
	if day3[0].Type != events.KindShipArrival || day3[0].Hour != 9 {
		t.Fatalf("first entry %+v", day3[0])
	}
	var arrival events.ShipArrival
	if err := json.Unmarshal(day3[0].Payload, &arrival); err != nil || arrival.ShipName != "Santa Cruz" {
		t.Fatalf("payload %s: %v", day3[0].Payload, err)
	}

	day4, err := ReadJournal(j.PathForDay(4))
	if err != nil {
		t.Fatalf("read day 4: %v", err)
	}
	if len(day4) != 1 || day4[0].Type != events.KindNewDay {
		t.Fatalf("day 4 entries %+v", day4)
	}
}

func TestJournal_AppendsAcrossSessions(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 2; i++ {
		j := NewJournal(dir)
		if err := j.Write(JournalEntry{Day: 1, Type: events.KindLightning, Payload: events.Lightning{Intensity: 0.5}}); err != nil {
			t.Fatal(err)
		}
		if err := j.Close(); err != nil {
			t.Fatal(err)
		}
	}
	got, err := ReadJournal(NewJournal(dir).PathForDay(1))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("entries=%d, want 2", len(got))
	}
}

func TestJournal_EntriesReadableBeforeClose(t *testing.T) {
	dir := t.TempDir()
	j := NewJournal(dir)
	t.Cleanup(func() { _ = j.Close() })

	for _, e := range []JournalEntry{
		{Day: 2, Hour: 7, Type: events.KindLightning, Payload: events.Lightning{Intensity: 0.9}},
		{Day: 2, Hour: 8, Type: events.KindHourChange, Payload: events.HourChange{Hour: 8}},
	} {
		if err := j.Write(e); err != nil {
			t.Fatalf("Write: %v", err)
		}
	}

	got, err := ReadJournal(j.PathForDay(2))
	if err != nil {
		t.Fatalf("read open journal: %v", err)
	}
	if len(got) != 2 || got[1].Type != events.KindHourChange {
		t.Fatalf("entries %+v", got)
	}
}
