// Package deadline normalizes heterogeneous human-entered deadline values
// into a single canonical instant.
//
// Group admins enter deadlines in whatever shape they are used to: ISO-like
// dates, slash-delimited dates, localized long forms ("10 maret 2025 18:30"),
// or raw epoch timestamps pushed in by the AI intake path. The parser tries a
// fixed list of shapes in order and either resolves an instant or reports
// ErrUnparseable. It never guesses "now" and never returns an invalid
// calendar date.
//
// Parsing and all now-comparisons use one fixed location so that a deadline
// entered in Jakarta time is compared against Jakarta time regardless of the
// host timezone.
package deadline

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrUnparseable reports a deadline value that matches none of the
// recognized shapes. Tasks carrying such a deadline are excluded from
// reminder scanning until the value is corrected.
var ErrUnparseable = errors.New("deadline does not match any recognized format")

// monthNames maps Indonesian month names (full and three-letter
// abbreviations) to calendar months. Lookup is case-insensitive.
var monthNames = map[string]time.Month{
	"januari": time.January, "februari": time.February, "maret": time.March,
	"april": time.April, "mei": time.May, "juni": time.June,
	"juli": time.July, "agustus": time.August, "september": time.September,
	"oktober": time.October, "november": time.November, "desember": time.December,
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "jun": time.June, "jul": time.July,
	"agu": time.August, "sep": time.September, "okt": time.October,
	"nov": time.November, "des": time.December,
}

var (
	isoPattern = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?:[ T](\d{1,2}):(\d{2}))?$`)
	dmyPattern = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{2,4})(?:\s+(\d{1,2})[:.](\d{2}))?$`)
	// day, month name, optional year, optional HH:MM or HH.MM
	longPattern  = regexp.MustCompile(`^(\d{1,2})\s+([A-Za-z]+)(?:\s+(\d{4}))?(?:\s+(\d{1,2})[:.](\d{2}))?$`)
	epochPattern = regexp.MustCompile(`^\d{10,13}$`)
)

// fallback layouts tried after the structural patterns, mirroring what a
// generic date constructor would accept.
var fallbackLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2 Jan 2006 15:04",
	"2 Jan 2006",
	"Jan 2, 2006",
}

// Parse resolves a raw deadline string to an instant in loc.
//
// Recognized shapes, attempted in order, first structural match wins:
//
//  1. YYYY-MM-DD with optional HH:MM (space or T separator); missing time
//     defaults to 23:59:59.
//  2. D/M/Y or DD/MM/YYYY with optional HH:MM or HH.MM; a two-digit year is
//     taken as 2000+year; missing time defaults to 23:59.
//  3. "<day> <month-name> [year] [time]" with Indonesian month names;
//     missing year assumes the current year, rolling forward one year if the
//     result would already be past; missing time defaults to 23:59:59.
//  4. A short list of generic layouts (RFC3339 and friends).
//
// A string of 10-13 digits is treated as an epoch timestamp (seconds or
// milliseconds by magnitude). Anything else yields ErrUnparseable.
func Parse(raw string, now time.Time, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, ErrUnparseable
	}

	if epochPattern.MatchString(s) {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return time.Time{}, ErrUnparseable
		}
		return FromEpoch(n, loc), nil
	}

	if m := isoPattern.FindStringSubmatch(s); m != nil {
		return buildDate(m[3], m[2], m[1], m[4], m[5], 23, 59, 59, loc)
	}

	if m := dmyPattern.FindStringSubmatch(s); m != nil {
		year := m[3]
		if len(year) == 2 {
			y, _ := strconv.Atoi(year)
			year = strconv.Itoa(2000 + y)
		}
		return buildDate(m[1], m[2], year, m[4], m[5], 23, 59, 0, loc)
	}

	if m := longPattern.FindStringSubmatch(s); m != nil {
		if t, err := buildLongForm(m, now, loc); err == nil {
			return t, nil
		}
		// A word that is not a month name falls through to the generic
		// layouts ("2 Jan 2006" etc).
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, ErrUnparseable
}

// ParseValue resolves a deadline of unknown dynamic type. JSON decoding
// yields float64 for numbers; epoch values stored by older revisions arrive
// that way.
func ParseValue(v any, now time.Time, loc *time.Location) (time.Time, error) {
	switch d := v.(type) {
	case string:
		return Parse(d, now, loc)
	case float64:
		return FromEpoch(int64(d), loc), nil
	case int64:
		return FromEpoch(d, loc), nil
	case int:
		return FromEpoch(int64(d), loc), nil
	case time.Time:
		return d.In(loc), nil
	default:
		return time.Time{}, ErrUnparseable
	}
}

// FromEpoch converts an epoch timestamp to an instant in loc. Values of
// 1e12 and above are taken as milliseconds, anything smaller as seconds.
func FromEpoch(n int64, loc *time.Location) time.Time {
	if n >= 1_000_000_000_000 {
		return time.UnixMilli(n).In(loc)
	}
	return time.Unix(n, 0).In(loc)
}

// buildLongForm resolves the localized "<day> <month-name> [year] [time]"
// shape against the month name table.
func buildLongForm(m []string, now time.Time, loc *time.Location) (time.Time, error) {
	month, ok := monthNames[strings.ToLower(m[2])]
	if !ok {
		return time.Time{}, ErrUnparseable
	}

	day, _ := strconv.Atoi(m[1])
	year := now.Year()
	explicitYear := m[3] != ""
	if explicitYear {
		year, _ = strconv.Atoi(m[3])
	}

	hour, minute, sec := 23, 59, 59
	if m[4] != "" {
		hour, _ = strconv.Atoi(m[4])
		minute, _ = strconv.Atoi(m[5])
		sec = 0
	}

	t, err := makeDate(year, int(month), day, hour, minute, sec, loc)
	if err != nil {
		return time.Time{}, err
	}
	// No year given and the date already passed: the speaker meant next year.
	if !explicitYear && t.Before(now) {
		t, err = makeDate(year+1, int(month), day, hour, minute, sec, loc)
		if err != nil {
			return time.Time{}, err
		}
	}
	return t, nil
}

// buildDate assembles an instant from string date parts, applying the given
// default clock time when the time parts are absent.
func buildDate(dayS, monthS, yearS, hourS, minS string, defH, defM, defS int, loc *time.Location) (time.Time, error) {
	day, _ := strconv.Atoi(dayS)
	month, _ := strconv.Atoi(monthS)
	year, _ := strconv.Atoi(yearS)

	hour, minute, sec := defH, defM, defS
	if hourS != "" {
		hour, _ = strconv.Atoi(hourS)
		minute, _ = strconv.Atoi(minS)
		sec = 0
	}
	return makeDate(year, month, day, hour, minute, sec, loc)
}

// makeDate builds a time.Date and rejects values that do not round-trip,
// catching impossible calendar dates like 31/02 or 25:00.
func makeDate(year, month, day, hour, minute, sec int, loc *time.Location) (time.Time, error) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, fmt.Errorf("%w: out-of-range date component", ErrUnparseable)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return time.Time{}, fmt.Errorf("%w: out-of-range time component", ErrUnparseable)
	}
	t := time.Date(year, time.Month(month), day, hour, minute, sec, 0, loc)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return time.Time{}, fmt.Errorf("%w: invalid calendar date", ErrUnparseable)
	}
	return t, nil
}
