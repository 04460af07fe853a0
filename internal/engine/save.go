package engine

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/talgya/goa1590/internal/economy"
	"github.com/talgya/goa1590/internal/harbor"
	"github.com/talgya/goa1590/internal/social"
	"github.com/talgya/goa1590/internal/weather"
	"github.com/talgya/goa1590/internal/wind"
	"github.com/talgya/goa1590/internal/world"
)

// ClockSave is the persisted time of day.
type ClockSave struct {
	Day     int           `json:"day"`
	Hour    int           `json:"hour"`
	Minute  int           `json:"minute"`
	Elapsed time.Duration `json:"elapsed"`
}

// SaveData aggregates every system's snapshot.
type SaveData struct {
	Clock      ClockSave        `json:"clock"`
	MarketOpen bool             `json:"market_open"`
	Weather    weather.SaveData `json:"weather"`
	Wind       wind.State       `json:"wind"`
	Market     economy.SaveData `json:"market"`
	Harbor     harbor.SaveData  `json:"harbor"`
	Location   world.SaveData   `json:"location"`
	Player     social.SaveData  `json:"player"`
}

// SaveData captures the whole session.
func (s *Simulation) SaveData() SaveData {
	return SaveData{
		Clock: ClockSave{
			Day:     s.Clock.Day(),
			Hour:    s.Clock.Hour(),
			Minute:  s.Clock.Minute(),
			Elapsed: s.elapsed,
		},
		MarketOpen: s.marketOpen,
		Weather:    s.Weather.SaveData(),
		Wind:       s.Wind.SaveData(),
		Market:     s.Market.SaveData(),
		Harbor:     s.Harbor.SaveData(),
		Location:   s.World.SaveData(),
		Player:     s.Player.SaveData(),
	}
}

// LoadSaveData restores a session without publishing events.
func (s *Simulation) LoadSaveData(d SaveData) error {
	// Nothing is touched until the whole snapshot is known to load.
	if err := d.Weather.Validate(); err != nil {
		return fmt.Errorf("load weather: %w", err)
	}
	if _, ok := s.World.Location(d.Location.Current); !ok {
		return fmt.Errorf("load location: unknown location %q", d.Location.Current)
	}

	if err := s.Weather.LoadSaveData(d.Weather); err != nil {
		return fmt.Errorf("load weather: %w", err)
	}
	if err := s.World.LoadSaveData(d.Location); err != nil {
		return fmt.Errorf("load location: %w", err)
	}
	s.Clock.SetTime(d.Clock.Day, d.Clock.Hour, d.Clock.Minute)
	s.elapsed = d.Clock.Elapsed
	s.Wind.LoadSaveData(d.Wind)
	s.Market.LoadSaveData(d.Market)
	s.Harbor.LoadSaveData(d.Harbor)
	s.Player.LoadSaveData(d.Player)
	s.Player.SetHour(s.Clock.Hour())
	s.marketOpen = d.MarketOpen
	s.pending = nil
	s.sinceMarket, s.sinceNPC = 0, 0

	slog.Info("simulation restored", "stamp", s.Clock.Stamp(), "location", d.Location.Current)
	return nil
}
