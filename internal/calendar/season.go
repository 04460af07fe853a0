// Seasons of the Malabar coast, derived purely from the day count.
package calendar

// DaysPerMonth is the fixed month length of the game calendar.
const DaysPerMonth = 30

// MonthsPerYear is the number of months in the game calendar.
const MonthsPerYear = 12

// Season is one of the four climate periods.
type Season uint8

const (
	SeasonDry Season = iota
	SeasonPreMonsoon
	SeasonMonsoon
	SeasonPostMonsoon
)

// Seasons lists every season in calendar order.
var Seasons = []Season{SeasonDry, SeasonPreMonsoon, SeasonMonsoon, SeasonPostMonsoon}

// String returns the wire name of the season.
func (s Season) String() string {
	switch s {
	case SeasonDry:
		return "dry"
	case SeasonPreMonsoon:
		return "preMonsoon"
	case SeasonMonsoon:
		return "monsoon"
	case SeasonPostMonsoon:
		return "postMonsoon"
	default:
		return "unknown"
	}
}

// ParseSeason converts a wire name back to a Season.
func ParseSeason(name string) (Season, bool) {
	for _, s := range Seasons {
		if s.String() == name {
			return s, true
		}
	}
	return SeasonDry, false
}

// Description is the flavour text carried on season-change events.
func (s Season) Description() string {
	switch s {
	case SeasonDry:
		return "Cool dry winds from the northeast; the harbour is crowded with sails"
	case SeasonPreMonsoon:
		return "Heat builds over the Mandovi and captains hurry to finish their voyages"
	case SeasonMonsoon:
		return "The monsoon closes the sea lanes; rain lashes the city"
	case SeasonPostMonsoon:
		return "The rains ease and the first ships venture back across the bar"
	default:
		return ""
	}
}

// TradeModifier scales ship arrivals and overall trade activity.
func (s Season) TradeModifier() float64 {
	switch s {
	case SeasonDry:
		return 1.0
	case SeasonPreMonsoon:
		return 0.85
	case SeasonMonsoon:
		return 0.3
	case SeasonPostMonsoon:
		return 0.8
	default:
		return 1.0
	}
}

// MonthForDay returns the month index (0-11) of a day count.
func MonthForDay(day int) int {
	if day < 0 {
		day = 0
	}
	return (day / DaysPerMonth) % MonthsPerYear
}

// SeasonForDay maps a day count to its season.
// Dry: Dec-Feb, pre-monsoon: Mar-May, monsoon: Jun-Sep, post-monsoon: Oct-Nov.
func SeasonForDay(day int) Season {
	switch MonthForDay(day) {
	case 11, 0, 1:
		return SeasonDry
	case 2, 3, 4:
		return SeasonPreMonsoon
	case 5, 6, 7, 8:
		return SeasonMonsoon
	default:
		return SeasonPostMonsoon
	}
}
