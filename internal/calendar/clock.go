// Package calendar keeps game time: it turns accumulated virtual time into minute, hour and
// day ticks, and maps day counts to seasons.
package calendar

import (
	"fmt"
	"time"

	"github.com/talgya/goa1590/internal/events"
)

const (
	MinutesPerHour = 60
	HoursPerDay    = 24
	MinutesPerDay  = MinutesPerHour * HoursPerDay

	// StartHour is the hour of day at which a new game begins.
	StartHour = 6
)

// Clock is the time keeper. It owns the day/hour/minute counters and publishes their ticks.
type Clock struct {
	bus *events.Bus

	// MinutesPerSecond is how many game minutes pass per second of virtual time.
	MinutesPerSecond float64

	carry  float64 // fractional game minutes not yet ticked
	day    int
	hour   int
	minute int
}

// NewClock creates a clock at day 0, StartHour:00.
func NewClock(bus *events.Bus, minutesPerSecond float64) *Clock {
	if minutesPerSecond <= 0 {
		minutesPerSecond = 1
	}
	return &Clock{
		bus:              bus,
		MinutesPerSecond: minutesPerSecond,
		hour:             StartHour,
	}
}

// Day returns the current day count.
func (c *Clock) Day() int { return c.day }

// Hour returns the current hour of day (0-23).
func (c *Clock) Hour() int { return c.hour }

// Minute returns the current minute of the hour.
func (c *Clock) Minute() int { return c.minute }

// Advance adds dt of virtual time and publishes one MinuteChange per elapsed game minute,
// HourChange on each hour boundary and NewDay on each midnight. It returns the number of
// game minutes that elapsed.
func (c *Clock) Advance(dt time.Duration) int {
	if dt <= 0 {
		return 0
	}
	c.carry += dt.Seconds() * c.MinutesPerSecond
	n := int(c.carry)
	c.carry -= float64(n)

	for i := 0; i < n; i++ {
		c.tickMinute()
	}
	return n
}

func (c *Clock) tickMinute() {
	c.minute++
	hourRolled := false
	dayRolled := false
	if c.minute >= MinutesPerHour {
		c.minute = 0
		c.hour++
		hourRolled = true
		if c.hour >= HoursPerDay {
			c.hour = 0
			c.day++
			dayRolled = true
		}
	}

	c.bus.Publish(events.MinuteChange{Hour: c.hour, Minute: c.minute})
	if dayRolled {
		c.bus.Publish(events.NewDay{DayCount: c.day})
	}
	if hourRolled {
		c.bus.Publish(events.HourChange{Hour: c.hour})
	}
}

// SetTime restores the counters, e.g. after loading a save.
func (c *Clock) SetTime(day, hour, minute int) {
	c.day = max(day, 0)
	c.hour = ((hour % HoursPerDay) + HoursPerDay) % HoursPerDay
	c.minute = ((minute % MinutesPerHour) + MinutesPerHour) % MinutesPerHour
	c.carry = 0
}

// Stamp returns a human-readable game time, e.g. "Dry season, Day 12, 14:05 Year 1590".
func (c *Clock) Stamp() string {
	return Stamp(c.day, c.hour, c.minute)
}

// Stamp formats a day/hour/minute triple.
func Stamp(day, hour, minute int) string {
	year := 1590 + day/(DaysPerMonth*MonthsPerYear)
	season := SeasonForDay(day)
	return fmt.Sprintf("%s season, Day %d, %d:%02d Year %d",
		season, day+1, hour, minute, year)
}
