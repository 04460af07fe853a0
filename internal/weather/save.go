package weather

import (
	"fmt"

	"github.com/talgya/goa1590/internal/calendar"
)

// SaveData is the persisted weather snapshot. An in-flight transition is saved at its target.
type SaveData struct {
	Day           int     `json:"day"`
	Season        string  `json:"season"`
	State         string  `json:"state"`
	Intensity     float64 `json:"intensity"`
	DurationHours float64 `json:"duration_hours"`
	ElapsedHours  float64 `json:"elapsed_hours"`
	GroundWetness float64 `json:"ground_wetness"`
}

// SaveData captures the current weather.
func (e *Engine) SaveData() SaveData {
	intensity := e.intensity
	if e.transition != nil {
		intensity = e.transition.ToIntensity
	}
	return SaveData{
		Day:           e.day,
		Season:        e.season.String(),
		State:         e.state.String(),
		Intensity:     intensity,
		DurationHours: e.durationHours,
		ElapsedHours:  e.elapsedHours,
		GroundWetness: e.wetness,
	}
}

// Validate checks the named weather state and season.
func (d SaveData) Validate() error {
	if _, ok := ParseState(d.State); !ok {
		return fmt.Errorf("unknown weather state %q", d.State)
	}
	if _, ok := calendar.ParseSeason(d.Season); !ok {
		return fmt.Errorf("unknown season %q", d.Season)
	}
	return nil
}

// LoadSaveData restores a snapshot without publishing events.
func (e *Engine) LoadSaveData(d SaveData) error {
	if err := d.Validate(); err != nil {
		return err
	}
	state, _ := ParseState(d.State)
	season, _ := calendar.ParseSeason(d.Season)
	e.day = d.Day
	e.season = season
	e.state = state
	e.intensity = clamp01(d.Intensity)
	e.durationHours = d.DurationHours
	e.elapsedHours = d.ElapsedHours
	e.wetness = clamp01(d.GroundWetness)
	e.transition = nil
	e.flash = 0
	e.thunder = nil
	return nil
}
