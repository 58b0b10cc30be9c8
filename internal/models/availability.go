package models

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Weekdays lists the availability keys in calendar order.
var Weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// HourRange is a half-open range of whole hours, [Start, End).
type HourRange struct {
	Start int `json:"start"`
	End   int `json:"end"`

	// Unparsed marks a stored entry that could not be read as two hours.
	Unparsed bool `json:"-"`
}

func (r HourRange) Valid() bool {
	return !r.Unparsed && r.Start >= 0 && r.End <= 24 && r.Start < r.End
}

// UnparsedRange stands in for a weekday entry that could not be decoded.
func UnparsedRange() HourRange {
	return HourRange{Unparsed: true}
}

// UnmarshalJSON accepts {"start":9,"end":17} and the legacy "9-17" string form.
// A legacy string that is not two integers decodes as an unparsed range.
func (r *HourRange) UnmarshalJSON(data []byte) error {
	var legacy string
	if err := json.Unmarshal(data, &legacy); err == nil {
		*r = parseLegacyRange(legacy)
		return nil
	}

	var typed struct {
		Start int `json:"start"`
		End   int `json:"end"`
	}
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}
	r.Start, r.End = typed.Start, typed.End
	return nil
}

func parseLegacyRange(raw string) HourRange {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 2 {
		return UnparsedRange()
	}
	start, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil {
		return UnparsedRange()
	}
	end, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return UnparsedRange()
	}
	return HourRange{Start: start, End: end}
}

// WeeklyAvailability maps a weekday abbreviation ("Mon") to the hours a coach takes bookings.
type WeeklyAvailability map[string]HourRange

func WeekdayKey(day time.Weekday) string {
	return Weekdays[day]
}

func IsWeekdayKey(key string) bool {
	for _, day := range Weekdays {
		if day == key {
			return true
		}
	}
	return false
}

type Slot struct {
	Time     string    `json:"time"`
	DateTime time.Time `json:"datetime"`
}
