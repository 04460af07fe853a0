// Weather states and the per-season probability tables they are drawn from.
package weather

import "github.com/talgya/goa1590/internal/calendar"

// State is the logical weather condition.
type State uint8

const (
	Clear State = iota
	Overcast
	Rain
	HeavyRain
	HeatHaze
	Fog
)

// States lists every weather state in table order.
var States = []State{Clear, Overcast, Rain, HeavyRain, HeatHaze, Fog}

// String returns the wire name of the state.
func (s State) String() string {
	switch s {
	case Clear:
		return "clear"
	case Overcast:
		return "overcast"
	case Rain:
		return "rain"
	case HeavyRain:
		return "heavyRain"
	case HeatHaze:
		return "heatHaze"
	case Fog:
		return "fog"
	default:
		return "unknown"
	}
}

// ParseState converts a wire name back to a State.
func ParseState(name string) (State, bool) {
	for _, s := range States {
		if s.String() == name {
			return s, true
		}
	}
	return Clear, false
}

// IsWet reports whether the state puts water on the ground.
func (s State) IsWet() bool {
	return s == Rain || s == HeavyRain
}

// probabilities holds one weight per State, in States order. Each row sums to 1.
var probabilities = map[calendar.Season][6]float64{
	//                         clear overcast rain heavy haze  fog
	calendar.SeasonDry:         {0.55, 0.15, 0.02, 0.00, 0.20, 0.08},
	calendar.SeasonPreMonsoon:  {0.30, 0.25, 0.10, 0.05, 0.25, 0.05},
	calendar.SeasonMonsoon:     {0.05, 0.20, 0.35, 0.35, 0.00, 0.05},
	calendar.SeasonPostMonsoon: {0.35, 0.25, 0.20, 0.05, 0.05, 0.10},
}

// Probabilities returns a copy of the weather table for a season.
func Probabilities(season calendar.Season) map[State]float64 {
	row := probabilities[season]
	out := make(map[State]float64, len(States))
	for i, s := range States {
		out[s] = row[i]
	}
	return out
}

// baseVisibility is the visibility of each state at full intensity.
func baseVisibility(s State) float64 {
	switch s {
	case Clear:
		return 1.0
	case Overcast:
		return 0.9
	case Rain:
		return 0.7
	case HeavyRain:
		return 0.4
	case HeatHaze:
		return 0.75
	case Fog:
		return 0.35
	default:
		return 1.0
	}
}
