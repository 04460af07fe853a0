package events

import "testing"

func TestBus_SynchronousOrderedDispatch(t *testing.T) {
	bus := NewBus()
	var got []string

	bus.On(KindHourChange, func(Event) { got = append(got, "first") })
	Subscribe(bus, func(e HourChange) { got = append(got, "typed") })
	bus.SubscribeAll(func(e Event) { got = append(got, "all:"+string(e.Kind())) })

	bus.Publish(HourChange{Hour: 7})

	want := []string{"first", "typed", "all:hourChange"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestBus_TypedSubscriberIgnoresOtherKinds(t *testing.T) {
	bus := NewBus()
	calls := 0
	Subscribe(bus, func(e NewDay) {
		calls++
		if e.DayCount != 3 {
			t.Fatalf("day=%d", e.DayCount)
		}
	})
	bus.Publish(HourChange{Hour: 1})
	bus.Publish(NewDay{DayCount: 3})
	if calls != 1 {
		t.Fatalf("calls=%d want 1", calls)
	}
}

func TestBus_NilBusDrops(t *testing.T) {
	var bus *Bus
	bus.Publish(NewDay{DayCount: 1})
}

func TestBus_HandlerMayPublish(t *testing.T) {
	bus := NewBus()
	var seen []Kind
	Subscribe(bus, func(e NewDay) { bus.Publish(HourChange{Hour: 0}) })
	bus.SubscribeAll(func(e Event) { seen = append(seen, e.Kind()) })

	bus.Publish(NewDay{DayCount: 1})

	if len(seen) != 2 || seen[0] != KindHourChange || seen[1] != KindNewDay {
		t.Fatalf("seen=%v", seen)
	}
}
