// Package dateparse turns what a user types into a date cell into the
// YYYY-MM-DD form the dashboard stores.
//
// Accepted input:
//   - exact dates: "2026-03-01", also "2026/03/01"
//   - offsets: "+7d", "-2d", "+2w", "+1m"
//   - keywords: "today", "yesterday", "tomorrow", "next-week", "next-month"
//   - weekday names: "friday" (next occurrence, never today)
package dateparse

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Layout is the stored date format.
const Layout = time.DateOnly

// Normalize converts input relative to the current day.
func Normalize(input string) (string, error) {
	return NormalizeFrom(input, time.Now())
}

// IsDate reports whether s is already in stored form.
func IsDate(s string) bool {
	_, err := time.Parse(Layout, s)
	return err == nil
}

var keywords = map[string]func(now time.Time) time.Time{
	"today":     func(now time.Time) time.Time { return now },
	"yesterday": func(now time.Time) time.Time { return now.AddDate(0, 0, -1) },
	"tomorrow":  func(now time.Time) time.Time { return now.AddDate(0, 0, 1) },
	"next-week": func(now time.Time) time.Time { return nextWeekday(now, time.Monday) },
	"next-month": func(now time.Time) time.Time {
		y, m, _ := now.Date()
		return time.Date(y, m+1, 1, 0, 0, 0, 0, now.Location())
	},
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// NormalizeFrom converts input relative to now.
func NormalizeFrom(input string, now time.Time) (string, error) {
	in := strings.ToLower(strings.TrimSpace(input))
	if in == "" {
		return "", fmt.Errorf("empty date")
	}

	for _, layout := range []string{Layout, "2006/01/02"} {
		if t, err := time.Parse(layout, in); err == nil {
			return t.Format(Layout), nil
		}
	}
	if fn, ok := keywords[in]; ok {
		return fn(now).Format(Layout), nil
	}
	if wd, ok := weekdays[in]; ok {
		return nextWeekday(now, wd).Format(Layout), nil
	}
	if t, ok, err := offset(in, now); ok {
		if err != nil {
			return "", err
		}
		return t.Format(Layout), nil
	}
	return "", fmt.Errorf("unrecognized date %q (use YYYY-MM-DD, +3d, tomorrow, friday)", input)
}

// offset parses "+Nd", "-Nw", "+Nm". ok is false when in is not an offset.
func offset(in string, now time.Time) (t time.Time, ok bool, err error) {
	if len(in) < 3 || (in[0] != '+' && in[0] != '-') {
		return time.Time{}, false, nil
	}
	n, convErr := strconv.Atoi(in[1 : len(in)-1])
	if convErr != nil {
		return time.Time{}, false, nil
	}
	if in[0] == '-' {
		n = -n
	}
	switch unit := in[len(in)-1]; unit {
	case 'd':
		return now.AddDate(0, 0, n), true, nil
	case 'w':
		return now.AddDate(0, 0, 7*n), true, nil
	case 'm':
		return now.AddDate(0, n, 0), true, nil
	default:
		return time.Time{}, true, fmt.Errorf("unknown unit %q in %q (use d, w or m)", string(unit), in)
	}
}

// nextWeekday returns the next day falling on wd, strictly after now.
func nextWeekday(now time.Time, wd time.Weekday) time.Time {
	days := (int(wd) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return now.AddDate(0, 0, days)
}
