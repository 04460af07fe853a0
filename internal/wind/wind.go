// Package wind models the wind over the harbour: a direction/speed/gustiness signal that
// eases toward a target set by the season and the weather.
package wind

import (
	"math"
	"time"

	opensimplex "github.com/ojrac/opensimplex-go"

	"github.com/talgya/goa1590/internal/calendar"
	"github.com/talgya/goa1590/internal/weather"
)

// smoothingRate is the fraction of the gap to the target closed per second.
const smoothingRate = 0.25

// gustScale is the largest swing gusts add to or take from the steady speed.
const gustScale = 0.3

// State is the wind at one instant.
type State struct {
	Direction float64 `json:"direction"` // degrees, 0 = north, clockwise
	Speed     float64 `json:"speed"`     // 0..1
	Gustiness float64 `json:"gustiness"` // 0..1
}

// Model owns the smoothed wind signal.
type Model struct {
	steady State
	gust   float64
	clock  float64 // seconds of virtual time, used to sample the gust noise
	noise  opensimplex.Noise
}

// NewModel creates a wind model with a calm northeasterly.
func NewModel(seed int64) *Model {
	return &Model{
		steady: State{Direction: 45, Speed: 0.2, Gustiness: 0.1},
		noise:  opensimplex.NewNormalized(seed),
	}
}

// State returns the current wind, gusts included.
func (m *Model) State() State {
	s := m.steady
	s.Speed = clamp01(s.Speed + m.gust)
	return s
}

// Target returns the wind the season and weather are pushing toward.
func Target(season calendar.Season, w weather.State, intensity float64) State {
	t := State{Direction: seasonDirection(season)}

	switch w {
	case weather.HeavyRain:
		t.Speed, t.Gustiness = 0.5+0.4*intensity, 0.5+0.4*intensity
	case weather.Rain:
		t.Speed, t.Gustiness = 0.3+0.3*intensity, 0.3+0.3*intensity
	case weather.Overcast:
		t.Speed, t.Gustiness = 0.25+0.15*intensity, 0.2
	case weather.Fog, weather.HeatHaze:
		t.Speed, t.Gustiness = 0.1*(1-intensity)+0.05, 0.05
	default:
		t.Speed, t.Gustiness = 0.2+0.1*intensity, 0.1
	}

	// The southwest monsoon blows hard even between squalls.
	if season == calendar.SeasonMonsoon {
		t.Speed += 0.15
		t.Gustiness += 0.1
	}
	t.Speed = clamp01(t.Speed)
	t.Gustiness = clamp01(t.Gustiness)
	return t
}

func seasonDirection(season calendar.Season) float64 {
	switch season {
	case calendar.SeasonDry:
		return 45 // northeast trades
	case calendar.SeasonPreMonsoon:
		return 200
	case calendar.SeasonMonsoon:
		return 225 // southwest monsoon
	case calendar.SeasonPostMonsoon:
		return 60
	default:
		return 0
	}
}

// Update eases the wind toward the target for dt of virtual time.
func (m *Model) Update(dt time.Duration, season calendar.Season, w weather.State, intensity float64) {
	secs := dt.Seconds()
	if secs <= 0 {
		return
	}
	target := Target(season, w, intensity)
	k := 1 - math.Exp(-smoothingRate*secs)

	m.steady.Direction = normalizeDegrees(m.steady.Direction + shortestArc(m.steady.Direction, target.Direction)*k)
	m.steady.Speed += (target.Speed - m.steady.Speed) * k
	m.steady.Gustiness += (target.Gustiness - m.steady.Gustiness) * k

	m.clock += secs
	n := m.noise.Eval2(m.clock*0.7, 0) // 0..1
	m.gust = (n*2 - 1) * gustScale * m.steady.Gustiness
}

// SaveData returns the steady wind state.
func (m *Model) SaveData() State { return m.steady }

// LoadSaveData restores the steady wind state.
func (m *Model) LoadSaveData(s State) {
	m.steady = State{
		Direction: normalizeDegrees(s.Direction),
		Speed:     clamp01(s.Speed),
		Gustiness: clamp01(s.Gustiness),
	}
	m.gust = 0
}

// shortestArc returns the signed rotation in (-180, 180] from one heading to another.
func shortestArc(from, to float64) float64 {
	d := math.Mod(to-from+540, 360) - 180
	if d == -180 {
		return 180
	}
	return d
}

func normalizeDegrees(d float64) float64 {
	d = math.Mod(d, 360)
	if d < 0 {
		d += 360
	}
	return d
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

var compassPoints = [...]string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}

// Compass names the eight-point direction the wind blows from.
func (m *Model) Compass() string {
	return CompassPoint(m.steady.Direction)
}

// CompassPoint rounds a bearing to the nearest of eight compass points.
func CompassPoint(deg float64) string {
	i := int(math.Floor(normalizeDegrees(deg)/45+0.5)) % len(compassPoints)
	return compassPoints[i]
}
