// Package biztime provides the business timezone used for support hours and
// for the clock times printed in audit records. Storage and lock bookkeeping
// stay in UTC.
package biztime

import (
	"fmt"
	"sync"
	"time"
)

const (
	// DefaultTimezone is the default business timezone.
	DefaultTimezone = "Europe/Rome"
)

var (
	bizLocation *time.Location
	locationMu  sync.RWMutex
)

// Init sets the business timezone. If tz is empty, defaults to Europe/Rome.
func Init(tz string) error {
	if tz == "" {
		tz = DefaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("load timezone %q: %w", tz, err)
	}
	locationMu.Lock()
	bizLocation = loc
	locationMu.Unlock()
	return nil
}

// MustInit initializes the business timezone and panics on error.
func MustInit(tz string) {
	if err := Init(tz); err != nil {
		panic(err)
	}
}

// Location returns the business timezone location, initializing the default
// on first use.
func Location() *time.Location {
	locationMu.RLock()
	loc := bizLocation
	locationMu.RUnlock()
	if loc != nil {
		return loc
	}
	if err := Init(""); err != nil {
		panic(fmt.Sprintf("biztime: failed to auto-initialize with default timezone: %v", err))
	}
	return Location()
}

// NowUTC returns current time in UTC.
func NowUTC() time.Time {
	return time.Now().UTC()
}

// FormatClock formats t as HH:MM in the business timezone.
func FormatClock(t time.Time) string {
	return t.In(Location()).Format("15:04")
}

// Window is an opening window in minutes since local midnight. End <= Start
// means the window runs past midnight; End == 0 means "until midnight".
type Window struct {
	Start int
	End   int
}

// Contains reports whether minute m of the day falls inside the window. A
// window that wraps (e.g. 10:30-01:30) is open from Start onward and before
// End on the same calendar day.
func (w Window) Contains(m int) bool {
	switch {
	case w.End == 0:
		return m >= w.Start
	case w.End > w.Start:
		return m >= w.Start && m < w.End
	default:
		return m >= w.Start || m < w.End
	}
}

// Schedule maps weekdays to opening windows. Days without a window are closed.
type Schedule map[time.Weekday]Window

// IsOpen reports whether t, evaluated in the business timezone, is within
// the schedule. A nil or empty schedule is always open.
func (s Schedule) IsOpen(t time.Time) bool {
	if len(s) == 0 {
		return true
	}
	local := t.In(Location())
	w, ok := s[local.Weekday()]
	if !ok {
		return false
	}
	return w.Contains(local.Hour()*60 + local.Minute())
}
