package models

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrInvalidTimeSpent is returned when a time text is not "M" or "M:SS"
var ErrInvalidTimeSpent = errors.New("invalid time spent")

// TimeSpent is a reading duration in whole seconds.
// Its text form is minutes: "M" when there are no leftover seconds, "M:SS" otherwise.
type TimeSpent int

// TimeFromMinutes converts decimal minutes to TimeSpent, rounding to the nearest second
func TimeFromMinutes(minutes float64) TimeSpent {
	if minutes <= 0 || math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return 0
	}
	return TimeSpent(math.Round(minutes * 60))
}

// Seconds returns the duration in seconds
func (t TimeSpent) Seconds() int {
	return int(t)
}

// Minutes returns the duration in decimal minutes
func (t TimeSpent) Minutes() float64 {
	return float64(t) / 60
}

func (t TimeSpent) String() string {
	if t <= 0 {
		return "0"
	}
	minutes, seconds := int(t)/60, int(t)%60
	if seconds == 0 {
		return strconv.Itoa(minutes)
	}
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// ParseTimeSpent decodes "M" (minutes) or "M:SS" (minutes and seconds).
// An empty string is zero.
func ParseTimeSpent(s string) (TimeSpent, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	minutesPart, secondsPart, hasSeconds := strings.Cut(s, ":")
	minutes, err := strconv.Atoi(minutesPart)
	if err != nil || minutes < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeSpent, s)
	}
	if !hasSeconds {
		return TimeSpent(minutes * 60), nil
	}

	seconds, err := strconv.Atoi(secondsPart)
	if err != nil || seconds < 0 || seconds > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTimeSpent, s)
	}
	return TimeSpent(minutes*60 + seconds), nil
}

// MarshalText implements encoding.TextMarshaler
func (t TimeSpent) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *TimeSpent) UnmarshalText(text []byte) error {
	parsed, err := ParseTimeSpent(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
