// Harbor scheduler: ships arriving, unloading, departing, and the demand they leave behind.
package harbor

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"github.com/talgya/goa1590/internal/calendar"
	"github.com/talgya/goa1590/internal/entropy"
	"github.com/talgya/goa1590/internal/events"
)

// EventType names a harbor event.
type EventType string

const (
	ShipArrival   EventType = "ship_arrival"
	ShipDeparture EventType = "ship_departure"
	CargoUnloaded EventType = "cargo_unloaded"
	CargoDemand   EventType = "cargo_demand"
)

const (
	// UnloadPriceModifier is the temporary price suppression announced with unloaded cargo.
	UnloadPriceModifier = 0.85

	monsoonCancelChance = 0.8
	demandMinQty        = 5
	demandMaxQty        = 15
	demandLifetimeDays  = 1
)

// Payload carries the details of a harbor event. Fields not relevant to the event type are
// left empty.
type Payload struct {
	ShipType  string         `json:"ship_type"`
	ShipName  string         `json:"ship_name,omitempty"`
	Origin    string         `json:"origin,omitempty"`
	ArrivalID string         `json:"arrival_id,omitempty"` // departure → the arrival it ends
	Cargo     []events.Cargo `json:"cargo,omitempty"`
	GoodID    string         `json:"good_id,omitempty"`
	Quantity  int            `json:"quantity,omitempty"`
	Price     int            `json:"price,omitempty"`
}

func (p Payload) clone() Payload {
	p.Cargo = slices.Clone(p.Cargo)
	return p
}

// ScheduledEvent fires once on its day and is then removed.
type ScheduledEvent struct {
	ID      string    `json:"id"`
	Type    EventType `json:"type"`
	Day     int       `json:"day"`
	Payload Payload   `json:"payload"`
}

// ActiveEvent is in effect from StartDay through ExpiryDay.
type ActiveEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	StartDay  int       `json:"start_day"`
	ExpiryDay int       `json:"expiry_day"`
	Payload   Payload   `json:"payload"`
}

// PriceSource quotes the current market price of a good.
type PriceSource interface {
	CurrentPrice(goodID string) int
}

// Conditions reports the season and trade modifier that weight ship arrivals.
type Conditions interface {
	Season() calendar.Season
	TradeModifier() float64
}

// DemandSale is the result of selling goods to a waiting ship.
type DemandSale struct {
	EventID   string `json:"event_id"`
	GoodID    string `json:"good_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice int    `json:"unit_price"`
	Total     int    `json:"total"`
	Remaining int    `json:"remaining"`
}

// Scheduler owns the scheduled and active harbor events.
type Scheduler struct {
	bus   *events.Bus
	src   entropy.Source
	ships []ShipType

	scheduled []ScheduledEvent
	active    []ActiveEvent

	// Prices quotes demand prices. Without it departing ships post no demand.
	Prices PriceSource
	// Conditions weights arrivals. Without it the season is derived from the day.
	Conditions Conditions
}

// NewScheduler creates a scheduler over the given ship catalog.
func NewScheduler(bus *events.Bus, src entropy.Source, ships []ShipType) *Scheduler {
	return &Scheduler{
		bus:   bus,
		src:   entropy.Or(src),
		ships: slices.Clone(ships),
	}
}

// Ships returns the ship catalog.
func (s *Scheduler) Ships() []ShipType {
	return slices.Clone(s.ships)
}

func (s *Scheduler) ship(id string) (ShipType, bool) {
	i := slices.IndexFunc(s.ships, func(st ShipType) bool { return st.ID == id })
	if i < 0 {
		return ShipType{}, false
	}
	return s.ships[i], true
}

// ScheduledEvents returns copies of the pending events.
func (s *Scheduler) ScheduledEvents() []ScheduledEvent {
	out := make([]ScheduledEvent, len(s.scheduled))
	for i, e := range s.scheduled {
		e.Payload = e.Payload.clone()
		out[i] = e
	}
	return out
}

// ActiveEvents returns copies of the events in effect.
func (s *Scheduler) ActiveEvents() []ActiveEvent {
	out := make([]ActiveEvent, len(s.active))
	for i, e := range s.active {
		e.Payload = e.Payload.clone()
		out[i] = e
	}
	return out
}

// Schedule adds an event to fire on a later day and returns its ID.
func (s *Scheduler) Schedule(typ EventType, day int, p Payload) string {
	id := uuid.NewString()
	s.scheduled = append(s.scheduled, ScheduledEvent{ID: id, Type: typ, Day: day, Payload: p.clone()})
	return id
}

// OnNewDay runs the daily harbor cycle: due scheduled events fire, each ship type rolls for
// arrival, and active events past their expiry are retired.
func (s *Scheduler) OnNewDay(day int) {
	s.drainScheduled(day)
	s.rollArrivals(day)
	s.expireActive(day)
}

func (s *Scheduler) drainScheduled(day int) {
	var due []ScheduledEvent
	s.scheduled = slices.DeleteFunc(s.scheduled, func(e ScheduledEvent) bool {
		if e.Day <= day {
			due = append(due, e)
			return true
		}
		return false
	})
	for _, e := range due {
		s.dispatch(e, day)
	}
}

func (s *Scheduler) dispatch(e ScheduledEvent, day int) {
	switch e.Type {
	case ShipArrival:
		st, ok := s.ship(e.Payload.ShipType)
		if !ok {
			slog.Warn("scheduled arrival of unknown ship type", "ship_type", e.Payload.ShipType)
			return
		}
		s.arrive(st, day)
	case ShipDeparture:
		s.depart(e.Payload.ArrivalID, e.Payload, day, "scheduled")
	case CargoUnloaded:
		s.bus.Publish(events.CargoUnloaded{
			EventID:       e.ID,
			ShipType:      e.Payload.ShipType,
			Goods:         slices.Clone(e.Payload.Cargo),
			PriceModifier: UnloadPriceModifier,
			ExpiryDay:     day,
		})
	case CargoDemand:
		s.postDemand(e.ID, e.Payload, day)
	default:
		slog.Warn("unknown harbor event type", "type", e.Type, "id", e.ID)
	}
}

func (s *Scheduler) conditions(day int) (calendar.Season, float64) {
	if s.Conditions != nil {
		return s.Conditions.Season(), s.Conditions.TradeModifier()
	}
	season := calendar.SeasonForDay(day)
	return season, season.TradeModifier()
}

func (s *Scheduler) rollArrivals(day int) {
	season, modifier := s.conditions(day)
	for _, st := range s.ships {
		p := ArrivalProbability(st, season, modifier)
		if entropy.Chance(s.src, p) {
			s.arrive(st, day)
		}
	}
}

// arrive docks a ship: it becomes active, unloads its cargo and is scheduled to depart.
func (s *Scheduler) arrive(st ShipType, day int) {
	stay := entropy.IntRange(s.src, st.StayMin, st.StayMax)
	cargo := make([]events.Cargo, 0, len(st.Cargo))
	for _, c := range st.Cargo {
		cargo = append(cargo, events.Cargo{GoodID: c.GoodID, Quantity: entropy.IntRange(s.src, c.Min, c.Max)})
	}
	name := st.Name
	if len(st.Names) > 0 {
		name = st.Names[s.src.Intn(len(st.Names))]
	}

	id := uuid.NewString()
	p := Payload{ShipType: st.ID, ShipName: name, Origin: st.Origin, Cargo: cargo}
	s.active = append(s.active, ActiveEvent{ID: id, Type: ShipArrival, StartDay: day, ExpiryDay: day + stay, Payload: p})

	slog.Info("ship arrived", "ship", name, "type", st.ID, "day", day, "stay", stay)
	s.bus.Publish(events.ShipArrival{
		EventID:   id,
		ShipType:  st.ID,
		ShipName:  name,
		Origin:    st.Origin,
		Day:       day,
		StayDays:  stay,
		DepartDay: day + stay,
		Cargo:     slices.Clone(cargo),
	})
	s.bus.Publish(events.CargoUnloaded{
		EventID:       id,
		ShipType:      st.ID,
		Goods:         slices.Clone(cargo),
		PriceModifier: UnloadPriceModifier,
		ExpiryDay:     day + stay,
	})

	s.Schedule(ShipDeparture, day+stay, Payload{ShipType: st.ID, ShipName: name, Origin: st.Origin, ArrivalID: id})
}

// depart ends a ship's stay and posts its export demand.
func (s *Scheduler) depart(arrivalID string, p Payload, day int, reason string) {
	s.active = slices.DeleteFunc(s.active, func(e ActiveEvent) bool { return e.ID == arrivalID })

	slog.Info("ship departed", "ship", p.ShipName, "type", p.ShipType, "day", day, "reason", reason)
	s.bus.Publish(events.ShipDeparture{
		EventID:  arrivalID,
		ShipType: p.ShipType,
		ShipName: p.ShipName,
		Day:      day,
		Reason:   reason,
	})

	st, ok := s.ship(p.ShipType)
	if !ok {
		slog.Warn("departure of unknown ship type", "ship_type", p.ShipType)
		return
	}
	for _, goodID := range st.Exports {
		qty := entropy.IntRange(s.src, demandMinQty, demandMaxQty)
		s.postDemand(uuid.NewString(), Payload{ShipType: st.ID, ShipName: p.ShipName, GoodID: goodID, Quantity: qty}, day)
	}
}

// postDemand activates a cargo demand for one day at the ship's premium over market.
func (s *Scheduler) postDemand(id string, p Payload, day int) {
	st, ok := s.ship(p.ShipType)
	if !ok || s.Prices == nil {
		return
	}
	market := s.Prices.CurrentPrice(p.GoodID)
	if market <= 0 {
		return
	}
	p.Price = int(float64(market) * st.DemandPremium)
	expiry := day + demandLifetimeDays
	s.active = append(s.active, ActiveEvent{ID: id, Type: CargoDemand, StartDay: day, ExpiryDay: expiry, Payload: p})

	s.bus.Publish(events.CargoDemand{
		EventID:   id,
		ShipType:  st.ID,
		GoodID:    p.GoodID,
		Quantity:  p.Quantity,
		Price:     p.Price,
		ExpiryDay: expiry,
	})
}

func (s *Scheduler) expireActive(day int) {
	var expired []ActiveEvent
	s.active = slices.DeleteFunc(s.active, func(e ActiveEvent) bool {
		if e.ExpiryDay < day {
			expired = append(expired, e)
			return true
		}
		return false
	})
	for _, e := range expired {
		switch e.Type {
		case ShipArrival:
			s.depart(e.ID, e.Payload, day, "expired")
		case CargoDemand:
			s.bus.Publish(events.CargoDemandExpired{EventID: e.ID, GoodID: e.Payload.GoodID, Remaining: e.Payload.Quantity})
		}
	}
}

// OnSeasonChange cancels most pending ship traffic when the monsoon closes the sea lanes.
func (s *Scheduler) OnSeasonChange(previous, current calendar.Season) {
	if current != calendar.SeasonMonsoon || previous == calendar.SeasonMonsoon {
		return
	}
	before := len(s.scheduled)
	s.scheduled = slices.DeleteFunc(s.scheduled, func(e ScheduledEvent) bool {
		return entropy.Chance(s.src, monsoonCancelChance)
	})
	slog.Info("monsoon closed the sea lanes", "cancelled", before-len(s.scheduled), "remaining", len(s.scheduled))
}

// FulfillDemand sells up to qty units to a waiting ship at its premium price. The demand is
// retired once its quantity is exhausted.
func (s *Scheduler) FulfillDemand(eventID string, qty int) (DemandSale, error) {
	if qty <= 0 {
		return DemandSale{}, errors.New("fulfill demand: quantity must be positive")
	}
	i := slices.IndexFunc(s.active, func(e ActiveEvent) bool { return e.ID == eventID })
	if i < 0 {
		return DemandSale{}, fmt.Errorf("fulfill demand: no active event %q", eventID)
	}
	e := &s.active[i]
	if e.Type != CargoDemand {
		return DemandSale{}, fmt.Errorf("fulfill demand: event %q is a %s", eventID, e.Type)
	}

	n := min(qty, e.Payload.Quantity)
	e.Payload.Quantity -= n
	sale := DemandSale{
		EventID:   eventID,
		GoodID:    e.Payload.GoodID,
		Quantity:  n,
		UnitPrice: e.Payload.Price,
		Total:     n * e.Payload.Price,
		Remaining: e.Payload.Quantity,
	}
	if e.Payload.Quantity == 0 {
		s.active = slices.Delete(s.active, i, i+1)
	}
	return sale, nil
}

// SaveData is the persisted scheduler state.
type SaveData struct {
	Scheduled []ScheduledEvent `json:"scheduled"`
	Active    []ActiveEvent    `json:"active"`
}

// SaveData captures both event lists.
func (s *Scheduler) SaveData() SaveData {
	return SaveData{Scheduled: s.ScheduledEvents(), Active: s.ActiveEvents()}
}

// LoadSaveData replaces both event lists. Events of unknown type are dropped.
func (s *Scheduler) LoadSaveData(d SaveData) {
	s.scheduled = s.scheduled[:0]
	for _, e := range d.Scheduled {
		if !knownType(e.Type) {
			slog.Warn("saved scheduled event of unknown type", "type", e.Type, "id", e.ID)
			continue
		}
		e.Payload = e.Payload.clone()
		s.scheduled = append(s.scheduled, e)
	}
	s.active = s.active[:0]
	for _, e := range d.Active {
		if !knownType(e.Type) {
			slog.Warn("saved active event of unknown type", "type", e.Type, "id", e.ID)
			continue
		}
		e.Payload = e.Payload.clone()
		s.active = append(s.active, e)
	}
}

func knownType(t EventType) bool {
	switch t {
	case ShipArrival, ShipDeparture, CargoUnloaded, CargoDemand:
		return true
	}
	return false
}
