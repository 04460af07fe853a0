// Simulation ties together all world systems and runs them each frame.
package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/goa1590/internal/calendar"
	"github.com/talgya/goa1590/internal/config"
	"github.com/talgya/goa1590/internal/economy"
	"github.com/talgya/goa1590/internal/entropy"
	"github.com/talgya/goa1590/internal/events"
	"github.com/talgya/goa1590/internal/harbor"
	"github.com/talgya/goa1590/internal/social"
	"github.com/talgya/goa1590/internal/weather"
	"github.com/talgya/goa1590/internal/wind"
	"github.com/talgya/goa1590/internal/world"
)

const maxRecentEvents = 200

// Options tunes a simulation.
type Options struct {
	Seed                 int64
	MinutesPerSecond     float64
	MarketUpdateInterval time.Duration
	NPCTradeInterval     time.Duration
	MarketOpenHour       int
	MarketCloseHour      int
	StartLocation        string
	PlayerGold           int
}

// DefaultOptions mirrors the built-in configuration.
func DefaultOptions() Options {
	return OptionsFromConfig(config.Default())
}

// OptionsFromConfig extracts simulation options from a loaded configuration.
func OptionsFromConfig(cfg config.Config) Options {
	return Options{
		Seed:                 cfg.Seed,
		MinutesPerSecond:     cfg.MinutesPerSecond,
		MarketUpdateInterval: cfg.MarketUpdateInterval(),
		NPCTradeInterval:     cfg.NPCTradeInterval(),
		MarketOpenHour:       cfg.MarketOpenHour,
		MarketCloseHour:      cfg.MarketCloseHour,
		StartLocation:        cfg.StartLocation,
		PlayerGold:           cfg.PlayerGold,
	}
}

// Event is a notable occurrence worth keeping in the chronicle.
type Event struct {
	Day         int    `json:"day" db:"day"`
	Hour        int    `json:"hour" db:"hour"`
	Minute      int    `json:"minute" db:"minute"`
	Description string `json:"description" db:"description"`
	Category    string `json:"category" db:"category"` // "harbor", "weather", "market", "travel"
}

// SimStats counts what happened this session.
type SimStats struct {
	ShipsArrived  int `json:"ships_arrived"`
	ShipsDeparted int `json:"ships_departed"`
	NPCTrades     int `json:"npc_trades"`
	MarketUpdates int `json:"market_updates"`
	Lightning     int `json:"lightning"`
}

// Simulation holds every system of one game session and runs them in a fixed order.
type Simulation struct {
	Bus      *events.Bus
	Clock    *calendar.Clock
	Weather  *weather.Engine
	Wind     *wind.Model
	Market   *economy.Market
	Harbor   *harbor.Scheduler
	World    *world.Graph
	Factions *social.Factions
	Player   *social.Standing

	Events []Event // recent events, oldest first
	Stats  SimStats

	// OnDay runs after each day's harbor and weather processing, e.g. to autosave.
	OnDay func(day int)

	opts        Options
	elapsed     time.Duration
	sinceMarket time.Duration
	sinceNPC    time.Duration
	marketOpen  bool
	pending     []events.Event // day and hour ticks awaiting processing this frame
	unsaved     []Event
}

// NewSimulation builds every system and wires them through a shared bus.
func NewSimulation(opts Options) (*Simulation, error) {
	if opts.MarketUpdateInterval <= 0 || opts.NPCTradeInterval <= 0 {
		return nil, fmt.Errorf("market intervals must be positive: update=%v npc=%v", opts.MarketUpdateInterval, opts.NPCTradeInterval)
	}

	bus := events.NewBus()
	factions := social.SeedFactions()
	player := social.NewStanding(factions, opts.PlayerGold)

	graph, err := world.NewGraph(bus, world.DefaultLocations(), opts.StartLocation)
	if err != nil {
		return nil, fmt.Errorf("build location graph: %w", err)
	}
	graph.Standing = player

	wx := weather.NewEngine(bus, entropy.NewSeeded(subSeed(opts.Seed, 1)))
	market := economy.NewMarket(bus, entropy.NewSeeded(subSeed(opts.Seed, 2)), economy.Catalog(), economy.DefaultTraders())
	market.Reputation = player
	market.Relationships = player
	market.Progression = player

	sched := harbor.NewScheduler(bus, entropy.NewSeeded(subSeed(opts.Seed, 3)), harbor.ShipTypes())
	sched.Prices = market
	sched.Conditions = wx

	s := &Simulation{
		Bus:      bus,
		Clock:    calendar.NewClock(bus, opts.MinutesPerSecond),
		Weather:  wx,
		Wind:     wind.NewModel(subSeed(opts.Seed, 4)),
		Market:   market,
		Harbor:   sched,
		World:    graph,
		Factions: factions,
		Player:   player,
		opts:     opts,
	}
	player.SetHour(s.Clock.Hour())
	s.marketOpen = s.isMarketHours(s.Clock.Hour())
	s.subscribe()

	slog.Info("simulation initialized",
		"seed", opts.Seed,
		"goods", len(market.Goods()),
		"traders", len(market.Traders()),
		"ships", len(sched.Ships()),
		"locations", len(graph.Locations()),
		"start", opts.StartLocation,
	)
	return s, nil
}

// subSeed derives a per-system seed. Zero stays zero so every system draws from crypto.
func subSeed(seed int64, n int64) int64 {
	if seed == 0 {
		return 0
	}
	return seed + n*7919
}

func (s *Simulation) subscribe() {
	events.Subscribe(s.Bus, func(e events.NewDay) { s.pending = append(s.pending, e) })
	events.Subscribe(s.Bus, func(e events.HourChange) { s.pending = append(s.pending, e) })

	events.Subscribe(s.Bus, func(e events.SeasonChange) {
		prev, _ := calendar.ParseSeason(e.Previous)
		cur, _ := calendar.ParseSeason(e.Current)
		s.Harbor.OnSeasonChange(prev, cur)
		s.record("weather", fmt.Sprintf("The %s begins: %s", e.Current, e.Description))
	})
	events.Subscribe(s.Bus, func(e events.CargoUnloaded) {
		s.Market.ShipArrival(e.Goods)
	})
	events.Subscribe(s.Bus, func(e events.ShipArrival) {
		s.Stats.ShipsArrived++
		s.record("harbor", fmt.Sprintf("The %s arrived from %s, staying %d days", e.ShipName, e.Origin, e.StayDays))
	})
	events.Subscribe(s.Bus, func(e events.ShipDeparture) {
		s.Stats.ShipsDeparted++
		s.record("harbor", fmt.Sprintf("The %s set sail (%s)", e.ShipName, e.Reason))
	})
	events.Subscribe(s.Bus, func(e events.CargoDemand) {
		s.record("harbor", fmt.Sprintf("A %s seeks %d %s at %d pardaos", e.ShipType, e.Quantity, e.GoodID, e.Price))
	})
	events.Subscribe(s.Bus, func(e events.WeatherChange) {
		s.record("weather", fmt.Sprintf("Weather turned from %s to %s", e.Previous, e.Current))
	})
	events.Subscribe(s.Bus, func(events.Lightning) { s.Stats.Lightning++ })
	events.Subscribe(s.Bus, func(e events.LocationChange) {
		s.record("travel", fmt.Sprintf("Travelled from %s to %s", e.PreviousLocation, e.NewLocation))
	})
}

// Update advances every system by dt of virtual time: clock, weather, wind, then the day and
// hour ticks the clock produced, the market intervals, and finally the transition lock.
func (s *Simulation) Update(dt time.Duration) {
	if dt <= 0 {
		return
	}
	s.elapsed += dt

	s.Clock.Advance(dt)
	s.Weather.Update(dt, dt.Seconds()*s.Clock.MinutesPerSecond)
	s.Wind.Update(dt, s.Weather.Season(), s.Weather.State(), s.Weather.Intensity())

	pending := s.pending
	s.pending = nil
	for _, e := range pending {
		switch e := e.(type) {
		case events.NewDay:
			s.onNewDay(e.DayCount)
		case events.HourChange:
			s.onHour(e.Hour)
		}
	}

	s.sinceMarket += dt
	for s.sinceMarket >= s.opts.MarketUpdateInterval {
		s.sinceMarket -= s.opts.MarketUpdateInterval
		s.Market.Update()
		s.Stats.MarketUpdates++
	}
	s.sinceNPC += dt
	for s.sinceNPC >= s.opts.NPCTradeInterval {
		s.sinceNPC -= s.opts.NPCTradeInterval
		// NPC traders keep open-air stalls.
		if s.Weather.IsOutdoorMarketAffected() {
			continue
		}
		trades := s.Market.SimulateNPCTrading(s.Clock.Hour(), s.elapsed)
		s.Stats.NPCTrades += len(trades)
	}

	s.World.Update(dt)
}

func (s *Simulation) onNewDay(day int) {
	s.Weather.OnNewDay(day)
	s.Harbor.OnNewDay(day)
	slog.Info("new day", "day", day, "season", s.Weather.Season().String(), "weather", s.Weather.State().String(),
		"ships_in_port", s.shipsInPort())
	if s.OnDay != nil {
		s.OnDay(day)
	}
}

func (s *Simulation) onHour(hour int) {
	s.Player.SetHour(hour)
	s.Weather.CheckWeatherChange()

	open := s.isMarketHours(hour)
	if open == s.marketOpen {
		return
	}
	s.marketOpen = open
	s.Market.ApplyTimeModifier(open)
	if open {
		s.record("market", "The bazaar opens")
	} else {
		s.record("market", "The bazaar closes; after-hours prices apply")
	}
}

func (s *Simulation) isMarketHours(hour int) bool {
	return hour >= s.opts.MarketOpenHour && hour < s.opts.MarketCloseHour
}

// MarketOpen reports whether the market is within its trading hours.
func (s *Simulation) MarketOpen() bool {
	return s.marketOpen
}

// Elapsed is the virtual time simulated this session.
func (s *Simulation) Elapsed() time.Duration {
	return s.elapsed
}

func (s *Simulation) shipsInPort() int {
	n := 0
	for _, e := range s.Harbor.ActiveEvents() {
		if e.Type == harbor.ShipArrival {
			n++
		}
	}
	return n
}

func (s *Simulation) record(category, desc string) {
	e := Event{
		Day:         s.Clock.Day(),
		Hour:        s.Clock.Hour(),
		Minute:      s.Clock.Minute(),
		Description: desc,
		Category:    category,
	}
	s.Events = append(s.Events, e)
	if len(s.Events) > maxRecentEvents {
		s.Events = append(s.Events[:0], s.Events[len(s.Events)-maxRecentEvents:]...)
	}
	s.unsaved = append(s.unsaved, e)
}

// TakeUnsaved returns the events recorded since the last call.
func (s *Simulation) TakeUnsaved() []Event {
	out := s.unsaved
	s.unsaved = nil
	return out
}

// Status is a point-in-time summary of the session.
type Status struct {
	Stamp       string        `json:"stamp"`
	Day         int           `json:"day"`
	Hour        int           `json:"hour"`
	Minute      int           `json:"minute"`
	Season      string        `json:"season"`
	Weather     string        `json:"weather"`
	Intensity   float64       `json:"intensity"`
	Wind        wind.State    `json:"wind"`
	Location    string        `json:"location"`
	Gold        int           `json:"gold"`
	MarketOpen  bool          `json:"market_open"`
	ShipsInPort int           `json:"ships_in_port"`
	Elapsed     time.Duration `json:"elapsed"`
	Stats       SimStats      `json:"stats"`
}

// Status summarizes the session.
func (s *Simulation) Status() Status {
	return Status{
		Stamp:       s.Clock.Stamp(),
		Day:         s.Clock.Day(),
		Hour:        s.Clock.Hour(),
		Minute:      s.Clock.Minute(),
		Season:      s.Weather.Season().String(),
		Weather:     s.Weather.State().String(),
		Intensity:   s.Weather.Intensity(),
		Wind:        s.Wind.State(),
		Location:    s.World.Current().ID,
		Gold:        s.Player.Gold(),
		MarketOpen:  s.marketOpen,
		ShipsInPort: s.shipsInPort(),
		Elapsed:     s.elapsed,
		Stats:       s.Stats,
	}
}
