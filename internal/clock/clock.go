// Package clock converts between HH:MM wall-clock strings and minutes since
// local midnight, and defines the planning day window.
package clock

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/starford/planner/internal/apperr"
)

// Minutes counts minutes since local midnight.
type Minutes int

const (
	DayStart      Minutes = 0
	DayEnd        Minutes = 1440
	WorkdayAnchor Minutes = 480
	EveningCutoff Minutes = 1320
)

// Parse reads a 24-hour "HH:MM" string. "24:00" is accepted as the end of day.
func Parse(s string) (Minutes, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, apperr.Validation("time", fmt.Sprintf("%q is not HH:MM", s))
	}
	hours, err := strconv.Atoi(h)
	if err != nil || len(h) == 0 || len(h) > 2 {
		return 0, apperr.Validation("time", fmt.Sprintf("%q has a bad hour", s))
	}
	mins, err := strconv.Atoi(m)
	if err != nil || len(m) != 2 || mins < 0 || mins > 59 {
		return 0, apperr.Validation("time", fmt.Sprintf("%q has a bad minute", s))
	}
	v := Minutes(hours*60 + mins)
	if hours < 0 || v > DayEnd {
		return 0, apperr.Validation("time", fmt.Sprintf("%q is outside the day", s))
	}
	return v, nil
}

// MustParse is Parse for constants and tests.
func MustParse(s string) Minutes {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

// String formats m as zero-padded HH:MM.
func (m Minutes) String() string {
	return fmt.Sprintf("%02d:%02d", int(m)/60, int(m)%60)
}

// MarshalJSON encodes m as "HH:MM". Values outside the day window have no
// clock form and are written as a bare minute count, which UnmarshalJSON
// reads back unchanged.
func (m Minutes) MarshalJSON() ([]byte, error) {
	if m < DayStart || m > DayEnd {
		return json.Marshal(int(m))
	}
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either "HH:MM" or a bare minute count.
func (m *Minutes) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := Parse(s)
		if err != nil {
			return err
		}
		*m = v
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*m = Minutes(n)
	return nil
}

// On returns the instant m minutes after midnight of date's calendar day in loc.
func On(date time.Time, m Minutes, loc *time.Location) time.Time {
	y, mo, d := date.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, loc).Add(time.Duration(m) * time.Minute)
}
