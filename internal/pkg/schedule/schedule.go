package schedule

import (
	"time"

	"github.com/samber/lo"

	"github.com/anicoll/microtemp-integration/internal/pkg/model"
)

const clockLayout = "15:04:05"

const daysPerWeek = 7

// EffectiveTarget computes the room target temperature (hundredths of a
// degree) for a thermostat in automatic mode.
//
// The last active event of today whose clock is at or before now decides
// between the comfort and setback temperature. If no active event has fired
// yet today, the program carried over from the previous day applies: that
// day's events are scanned in reverse and the first active one wins,
// regardless of its clock. If neither day has an active event the schedule
// gives no answer and fallback is returned.
//
// Deterministic for identical inputs; never touches state.
func EffectiveTarget(s model.Schedule, now time.Time, fallback int) int {
	if len(s.Days) != daysPerWeek {
		return fallback
	}

	today := weekdayIndex(now)
	target := fallback
	fired := false

	for _, ev := range s.Days[today].Events {
		if !ev.Active {
			continue
		}
		clock, err := time.Parse(clockLayout, ev.Clock)
		if err != nil {
			continue
		}
		if secondsOfDay(now) >= secondsOfDay(clock) {
			target = temperatureFor(s, ev)
			fired = true
		}
	}
	if fired {
		return target
	}

	yesterday := (today + daysPerWeek - 1) % daysPerWeek
	events := s.Days[yesterday].Events
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Active {
			return temperatureFor(s, events[i])
		}
	}

	return fallback
}

func temperatureFor(s model.Schedule, ev model.ScheduleEvent) int {
	return lo.Ternary(ev.EventIsComfortTemp, s.ComfortTemperatureRoom, s.SetbackTemperatureRoom)
}

// weekdayIndex maps time.Weekday (Sunday = 0) onto the schedule's Monday = 0
// day indexing.
func weekdayIndex(t time.Time) int {
	return (int(t.Weekday()) + 6) % daysPerWeek
}

func secondsOfDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}
