// Package dateparse is the permissive date parser shared by type correction and date
// standardization. It accepts common separators and field orderings.
package dateparse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Order selects how day/month fields are read from dates whose year comes last
// (01/02/2006 style). Year-first dates are always read year-month-day.
type Order int

const (
	// OrderAuto reads month first and falls back to day first when that is not a valid date
	OrderAuto Order = iota
	// OrderMonthFirst only accepts MM/DD/YYYY
	OrderMonthFirst
	// OrderDayFirst only accepts DD/MM/YYYY
	OrderDayFirst
)

func (o Order) String() string {
	switch o {
	case OrderAuto:
		return "auto"
	case OrderMonthFirst:
		return "month-first"
	case OrderDayFirst:
		return "day-first"
	default:
		return fmt.Sprintf("Order(%d)", int(o))
	}
}

var (
	yearFirstPattern = regexp.MustCompile(`^(\d{4})([-/. ])(\d{1,2})([-/. ])(\d{1,2})(?:[ T](\d{1,2}):(\d{2})(?::(\d{2}))?)?$`)
	yearLastPattern  = regexp.MustCompile(`^(\d{1,2})([-/. ])(\d{1,2})([-/. ])(\d{4})(?:[ T](\d{1,2}):(\d{2})(?::(\d{2}))?)?$`)
	compactPattern   = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)
)

// layouts tried before the numeric patterns
var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.999999",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05 MST",
	time.RFC1123,
	time.RFC1123Z,
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"02-Jan-2006",
	"Mon, 2 Jan 2006",
}

// Parse reads a date string. The result is in UTC unless the input carries a zone.
func Parse(value string, order Order) (time.Time, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return time.Time{}, fmt.Errorf("cannot parse empty string as date")
	}

	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}

	if m := yearFirstPattern.FindStringSubmatch(s); m != nil {
		if m[2] != m[4] {
			return time.Time{}, fmt.Errorf("cannot parse %q as date: mixed separators", value)
		}
		return build(value, atoi(m[1]), atoi(m[3]), atoi(m[5]), m[6:9])
	}

	if m := yearLastPattern.FindStringSubmatch(s); m != nil {
		if m[2] != m[4] {
			return time.Time{}, fmt.Errorf("cannot parse %q as date: mixed separators", value)
		}
		first, second, year := atoi(m[1]), atoi(m[3]), atoi(m[5])
		switch order {
		case OrderMonthFirst:
			return build(value, year, first, second, m[6:9])
		case OrderDayFirst:
			return build(value, year, second, first, m[6:9])
		default:
			if t, err := build(value, year, first, second, m[6:9]); err == nil {
				return t, nil
			}
			return build(value, year, second, first, m[6:9])
		}
	}

	if m := compactPattern.FindStringSubmatch(s); m != nil {
		return build(value, atoi(m[1]), atoi(m[2]), atoi(m[3]), nil)
	}

	return time.Time{}, fmt.Errorf("cannot parse %q as date", value)
}

// OrderSensitive reports whether value is a year-last numeric date, whose reading depends
// on the day/month order
func OrderSensitive(value string) bool {
	return yearLastPattern.MatchString(strings.TrimSpace(value))
}

// Valid reports whether a value parses under the given order
func Valid(value string, order Order) bool {
	_, err := Parse(value, order)
	return err == nil
}

// build assembles a date and rejects out-of-range fields instead of letting time.Date
// normalize them (Feb 30 would otherwise become Mar 2)
func build(raw string, year, month, day int, clock []string) (time.Time, error) {
	hour, minute, sec := 0, 0, 0
	if len(clock) == 3 && clock[0] != "" {
		hour, minute = atoi(clock[0]), atoi(clock[1])
		if clock[2] != "" {
			sec = atoi(clock[2])
		}
	}
	if month < 1 || month > 12 {
		return time.Time{}, fmt.Errorf("cannot parse %q as date: month %d out of range", raw, month)
	}
	if hour > 23 || minute > 59 || sec > 59 {
		return time.Time{}, fmt.Errorf("cannot parse %q as date: time out of range", raw)
	}
	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month {
		return time.Time{}, fmt.Errorf("cannot parse %q as date: day %d out of range", raw, day)
	}
	return t, nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
