// Package weather provides the season/weather engine: the logical weather state, timed
// transitions between states, ground wetness, and lightning.
package weather

import (
	"log/slog"
	"math"
	"time"

	"github.com/talgya/goa1590/internal/calendar"
	"github.com/talgya/goa1590/internal/entropy"
	"github.com/talgya/goa1590/internal/events"
)

const (
	// DefaultTransitionTime is how long a weather transition takes in virtual time.
	DefaultTransitionTime = 3 * time.Second

	hourlyChangeChance = 0.10

	minDurationHours = 2.0
	maxDurationHours = 8.0
	minIntensity     = 0.3
	maxIntensity     = 1.0

	// Wetness rates per second of virtual time, scaled by intensity.
	heavyRainWetRate   = 0.006
	lightRainWetRate   = 0.003
	dryingRate         = 0.002
	monsoonDryingRate  = 0.0008
	lightningFrameTime = 16670 * time.Microsecond
	lightningPerFrame  = 0.02
	flashDecay         = 150 * time.Millisecond
)

// Transition describes an in-flight interpolation between two weather configurations.
type Transition struct {
	From          State   `json:"from"`
	To            State   `json:"to"`
	FromIntensity float64 `json:"from_intensity"`
	ToIntensity   float64 `json:"to_intensity"`
	Progress      float64 `json:"progress"`

	elapsed time.Duration
}

type pendingThunder struct {
	remaining time.Duration
	delay     time.Duration
	intensity float64
}

// Engine is the authoritative weather and season state for one game session.
type Engine struct {
	bus *events.Bus
	src entropy.Source

	// TransitionTime is the virtual duration of non-instant weather changes.
	TransitionTime time.Duration

	day       int
	season    calendar.Season
	state     State
	intensity float64

	durationHours float64
	elapsedHours  float64

	transition *Transition
	wetness    float64
	flash      float64
	thunder    []pendingThunder
}

// NewEngine creates a weather engine at day 0 with clear skies.
func NewEngine(bus *events.Bus, src entropy.Source) *Engine {
	return &Engine{
		bus:            bus,
		src:            entropy.Or(src),
		TransitionTime: DefaultTransitionTime,
		season:         calendar.SeasonForDay(0),
		state:          Clear,
		intensity:      0.5,
		durationHours:  4,
	}
}

// State returns the current logical weather state. During a transition this is the target.
func (e *Engine) State() State { return e.state }

// Season returns the current season.
func (e *Engine) Season() calendar.Season { return e.season }

// Intensity returns the weather intensity, blended while a transition is in flight.
func (e *Engine) Intensity() float64 { return e.intensity }

// GroundWetness returns the accumulated wetness in [0, 1].
func (e *Engine) GroundWetness() float64 { return e.wetness }

// Flash returns the current lightning brightness in [0, 1].
func (e *Engine) Flash() float64 { return e.flash }

// Remaining returns the game hours left before the current weather expires.
func (e *Engine) Remaining() float64 { return math.Max(0, e.durationHours-e.elapsedHours) }

// Transition returns a copy of the in-flight transition, if any.
func (e *Engine) Transition() (Transition, bool) {
	if e.transition == nil {
		return Transition{}, false
	}
	return *e.transition, true
}

// TradeModifier returns the trade modifier of the current season.
func (e *Engine) TradeModifier() float64 { return e.season.TradeModifier() }

// Visibility returns how far one can see, 1 = perfectly clear.
func (e *Engine) Visibility() float64 {
	return 1 - (1-baseVisibility(e.state))*e.intensity
}

// IsOutdoorMarketAffected reports whether the weather closes outdoor trading.
func (e *Engine) IsOutdoorMarketAffected() bool {
	return e.state == HeavyRain || (e.state == Rain && e.intensity > 0.7)
}

// SetWeather changes the weather. A change to the same state, or an instant change, applies
// immediately; otherwise a timed transition starts, replacing any transition in flight.
func (e *Engine) SetWeather(state State, intensity, durationHours float64, instant bool) {
	intensity = clamp01(intensity)
	previous := e.state
	e.durationHours = durationHours
	e.elapsedHours = 0

	if state == e.state || instant {
		e.transition = nil
		e.state = state
		e.intensity = intensity
	} else {
		e.transition = &Transition{
			From:          e.state,
			To:            state,
			FromIntensity: e.intensity,
			ToIntensity:   intensity,
		}
		e.state = state
	}

	if previous != state {
		slog.Info("weather change",
			"day", e.day,
			"previous", previous.String(),
			"current", state.String(),
			"intensity", intensity,
			"duration_h", durationHours,
			"instant", instant,
		)
		e.bus.Publish(events.WeatherChange{
			Previous:  previous.String(),
			Current:   state.String(),
			Intensity: intensity,
			Season:    e.season.String(),
		})
	}
}

// TransitionToRandomWeather draws new weather from the season's table.
func (e *Engine) TransitionToRandomWeather() {
	next := e.drawState()
	duration := entropy.Range(e.src, minDurationHours, maxDurationHours)
	intensity := entropy.Range(e.src, minIntensity, maxIntensity)
	e.SetWeather(next, intensity, duration, false)
}

func (e *Engine) drawState() State {
	row := probabilities[e.season]
	roll := e.src.Float64()
	cumulative := 0.0
	for i, p := range row {
		cumulative += p
		if roll < cumulative {
			return States[i]
		}
	}
	// Floating-point shortfall in the cumulative walk.
	return Clear
}

// CheckWeatherChange runs on every hour tick: a 10% chance of a forced re-roll.
func (e *Engine) CheckWeatherChange() {
	if entropy.Chance(e.src, hourlyChangeChance) {
		e.TransitionToRandomWeather()
	}
}

// OnNewDay recomputes the season from the day count and publishes a SeasonChange when it
// differs. It reports whether the season changed.
func (e *Engine) OnNewDay(day int) bool {
	e.day = day
	next := calendar.SeasonForDay(day)
	if next == e.season {
		return false
	}
	previous := e.season
	e.season = next

	slog.Info("season change",
		"day", day,
		"previous", previous.String(),
		"current", next.String(),
		"trade_modifier", next.TradeModifier(),
	)
	e.bus.Publish(events.SeasonChange{
		Previous:      previous.String(),
		Current:       next.String(),
		Description:   next.Description(),
		TradeModifier: next.TradeModifier(),
	})
	return true
}

// Update advances the engine by dt of virtual time, of which gameMinutes minutes of game time
// elapsed.
func (e *Engine) Update(dt time.Duration, gameMinutes float64) {
	if dt < 0 {
		return
	}
	e.advanceTransition(dt)

	e.elapsedHours += gameMinutes / calendar.MinutesPerHour
	if e.elapsedHours >= e.durationHours {
		e.TransitionToRandomWeather()
	}

	e.updateWetness(dt)
	e.updateLightning(dt)
}

func (e *Engine) advanceTransition(dt time.Duration) {
	tr := e.transition
	if tr == nil {
		return
	}
	tr.elapsed += dt
	if e.TransitionTime <= 0 || tr.elapsed >= e.TransitionTime {
		tr.Progress = 1
	} else {
		tr.Progress = float64(tr.elapsed) / float64(e.TransitionTime)
	}

	eased := tr.Progress * tr.Progress * (3 - 2*tr.Progress)
	e.intensity = tr.FromIntensity + (tr.ToIntensity-tr.FromIntensity)*eased

	if tr.Progress >= 1 {
		e.intensity = tr.ToIntensity
		e.transition = nil
	}
}

func (e *Engine) updateWetness(dt time.Duration) {
	secs := dt.Seconds()
	switch e.state {
	case HeavyRain:
		e.wetness += heavyRainWetRate * e.intensity * secs
	case Rain:
		e.wetness += lightRainWetRate * e.intensity * secs
	default:
		rate := dryingRate
		if e.season == calendar.SeasonMonsoon {
			rate = monsoonDryingRate
		}
		e.wetness -= rate * secs
	}
	e.wetness = clamp01(e.wetness)
}

// lightningEligible reports whether the sky can produce lightning right now.
func (e *Engine) lightningEligible() bool {
	if e.state == HeavyRain {
		return true
	}
	return e.season == calendar.SeasonMonsoon && e.state == Rain && e.intensity > 0.7
}

func (e *Engine) updateLightning(dt time.Duration) {
	if e.flash > 0 {
		e.flash *= math.Exp(-float64(dt) / float64(flashDecay))
		if e.flash < 0.01 {
			e.flash = 0
		}
	}

	// Deliver thunder whose sound-travel delay has elapsed.
	kept := e.thunder[:0]
	for _, th := range e.thunder {
		th.remaining -= dt
		if th.remaining <= 0 {
			e.bus.Publish(events.Thunder{
				DelayMs:   int(th.delay / time.Millisecond),
				Intensity: th.intensity,
			})
			continue
		}
		kept = append(kept, th)
	}
	e.thunder = kept

	if !e.lightningEligible() || dt == 0 {
		return
	}
	frames := float64(dt) / float64(lightningFrameTime)
	p := 1 - math.Pow(1-lightningPerFrame, frames)
	if !entropy.Chance(e.src, p) {
		return
	}

	strength := 0.6 + 0.4*e.src.Float64()
	e.flash = strength
	delay := time.Duration(entropy.IntRange(e.src, 500, 3000)) * time.Millisecond
	e.thunder = append(e.thunder, pendingThunder{remaining: delay, delay: delay, intensity: strength})
	e.bus.Publish(events.Lightning{Intensity: strength})
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Effects holds the derived modifiers other systems read from the weather.
type Effects struct {
	Visibility    float64 `json:"visibility"`
	TradeModifier float64 `json:"trade_modifier"`
	OutdoorClosed bool    `json:"outdoor_closed"`
	GroundWetness float64 `json:"ground_wetness"`
	TravelPenalty float64 `json:"travel_penalty"`
}

// Effects summarizes the current weather for consumers.
func (e *Engine) Effects() Effects {
	fx := Effects{
		Visibility:    e.Visibility(),
		TradeModifier: e.TradeModifier(),
		OutdoorClosed: e.IsOutdoorMarketAffected(),
		GroundWetness: e.wetness,
		TravelPenalty: 1.0,
	}
	// Mud and downpours slow travel through the streets.
	switch e.state {
	case HeavyRain:
		fx.TravelPenalty = 1.5
	case Rain:
		fx.TravelPenalty = 1.2
	case Fog:
		fx.TravelPenalty = 1.1
	}
	fx.TravelPenalty += e.wetness * 0.3
	return fx
}
