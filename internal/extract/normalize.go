package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Layouts tried verbatim before falling back to the numeric heuristic.
var dateLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006.01.02",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 January 2006",
	"2 Jan 2006",
	"02-Jan-2006",
	"2-Jan-2006",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

var numericDateRe = regexp.MustCompile(`^(\d{1,4})([./\-])(\d{1,2})[./\-](\d{1,4})$`)

// NormalizeDate parses common invoice date spellings and re-emits strict
// YYYY-MM-DD. Slashed or dashed all-numeric dates are ambiguous; dayFirst
// selects the locale rule (true: 12/01/2024 is January 12th).
func NormalizeDate(s string, dayFirst bool) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty date")
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("2006-01-02"), nil
		}
	}

	m := numericDateRe.FindStringSubmatch(s)
	if m == nil {
		return "", fmt.Errorf("unrecognized date %q", s)
	}

	first, second, third := m[1], m[3], m[4]
	var y, mo, d int
	switch {
	case len(first) == 4:
		y = atoi(first)
		mo = atoi(second)
		d = atoi(third)
	case len(third) == 4:
		y = atoi(third)
		if dayFirst {
			d = atoi(first)
			mo = atoi(second)
		} else {
			mo = atoi(first)
			d = atoi(second)
		}
	default:
		return "", fmt.Errorf("ambiguous two-digit year in %q", s)
	}

	if mo < 1 || mo > 12 || d < 1 || d > 31 {
		// The locale rule produced an impossible date; try the other order
		// before giving up, models mix conventions freely.
		if d >= 1 && d <= 12 && mo >= 1 && mo <= 31 {
			mo, d = d, mo
		} else {
			return "", fmt.Errorf("impossible date %q", s)
		}
	}

	t := time.Date(y, time.Month(mo), d, 0, 0, 0, 0, time.UTC)
	if t.Year() != y || t.Month() != time.Month(mo) || t.Day() != d {
		return "", fmt.Errorf("impossible date %q", s)
	}
	return t.Format("2006-01-02"), nil
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// NormalizeAmount parses a decimal that may use either '.' or ',' as the
// decimal separator (with the other as grouping). Rules: when both appear the
// rightmost one is decimal; a lone ',' followed by exactly three digits is a
// grouping separator; a lone '.' is always decimal.
func NormalizeAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	lastDot := strings.LastIndexByte(s, '.')
	lastComma := strings.LastIndexByte(s, ',')

	switch {
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			s = strings.ReplaceAll(s, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(s, ",") > 1 || len(s)-lastComma-1 == 3 {
			s = strings.ReplaceAll(s, ",", "")
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	case lastDot >= 0:
		if strings.Count(s, ".") > 1 {
			s = strings.ReplaceAll(s, ".", "")
		}
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable amount: %w", err)
	}
	return v, nil
}
