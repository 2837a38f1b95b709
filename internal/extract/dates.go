package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateSpec pairs a date pattern with the function that converts its
// submatches into a time.Time. Specs are evaluated in order and the first
// match wins, so fully qualified formats must come before short ambiguous
// ones.
type dateSpec struct {
	re    *regexp.Regexp
	parse func(m []string) (time.Time, error)
}

var monthNames = map[string]time.Month{
	// English
	"jan": time.January, "feb": time.February, "mar": time.March,
	"apr": time.April, "may": time.May, "jun": time.June,
	"jul": time.July, "aug": time.August, "sep": time.September,
	"oct": time.October, "nov": time.November, "dec": time.December,
	// Russian (genitive, as written in dates)
	"янв": time.January, "фев": time.February, "мар": time.March,
	"апр": time.April, "мая": time.May, "май": time.May, "июн": time.June,
	"июл": time.July, "авг": time.August, "сен": time.September,
	"окт": time.October, "ноя": time.November, "дек": time.December,
	// Kazakh
	"қаң": time.January, "ақп": time.February, "нау": time.March,
	"сәу": time.April, "мам": time.May, "мау": time.June,
	"шіл": time.July, "там": time.August, "қыр": time.September,
	"қаз": time.October, "қар": time.November, "жел": time.December,
}

var dateSpecs = []dateSpec{
	// ISO 8601: 2026-01-15
	{
		re: regexp.MustCompile(`\b(\d{4})-(\d{2})-(\d{2})\b`),
		parse: func(m []string) (time.Time, error) {
			return buildDate(m[1], m[2], m[3])
		},
	},
	// Continental: 15.01.2026 or 15.01.26
	{
		re: regexp.MustCompile(`\b(\d{1,2})\.(\d{1,2})\.(\d{2,4})\b`),
		parse: func(m []string) (time.Time, error) {
			return buildDate(m[3], m[2], m[1])
		},
	},
	// Month name: 15 January 2026, 15 января 2026
	{
		re: regexp.MustCompile(`\b(\d{1,2})\s+([A-Za-zА-Яа-яЁёҚқАӘәІіҢңҒғҮүҰұӨөҺһ]{3,})\.?\s+(\d{4})\b`),
		parse: func(m []string) (time.Time, error) {
			month, ok := lookupMonth(m[2])
			if !ok {
				return time.Time{}, fmt.Errorf("unknown month name %q", m[2])
			}
			return buildDate(m[3], strconv.Itoa(int(month)), m[1])
		},
	},
	// Month name first: Jan 15, 2026
	{
		re: regexp.MustCompile(`\b([A-Za-z]{3,})\.?\s+(\d{1,2}),?\s+(\d{4})\b`),
		parse: func(m []string) (time.Time, error) {
			month, ok := lookupMonth(m[1])
			if !ok {
				return time.Time{}, fmt.Errorf("unknown month name %q", m[1])
			}
			return buildDate(m[3], strconv.Itoa(int(month)), m[2])
		},
	},
	// Short slash form: 01/15/2026 or 01/15. Interpreted month-first, the
	// convention of the statements that actually use it.
	{
		re: regexp.MustCompile(`\b(\d{1,2})/(\d{1,2})(?:/(\d{2,4}))?\b`),
		parse: func(m []string) (time.Time, error) {
			year := m[3]
			if year == "" {
				year = strconv.Itoa(time.Now().Year())
			}
			return buildDate(year, m[1], m[2])
		},
	},
}

// FindDate returns the first date token in the line, or "" when none of
// the known formats match.
func FindDate(line string) string {
	for _, spec := range dateSpecs {
		if m := spec.re.FindString(line); m != "" {
			return m
		}
	}
	return ""
}

// ParseDate converts a raw date token found by FindDate into a time.Time.
func ParseDate(raw string) (time.Time, error) {
	for _, spec := range dateSpecs {
		m := spec.re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		t, err := spec.parse(m)
		if err != nil {
			continue
		}
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func lookupMonth(name string) (time.Month, bool) {
	key := strings.ToLower(name)
	if len([]rune(key)) > 3 {
		key = string([]rune(key)[:3])
	}
	month, ok := monthNames[key]
	return month, ok
}

func buildDate(year, month, day string) (time.Time, error) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, err
	}
	if y < 100 {
		y += 2000
	}
	mo, err := strconv.Atoi(month)
	if err != nil {
		return time.Time{}, err
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, err
	}
	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		return time.Time{}, fmt.Errorf("implausible date %04d-%02d-%02d", y, mo, d)
	}
	return time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC), nil
}
