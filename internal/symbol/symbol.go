// Package symbol maps user-entered codes to provider symbols.
package symbol

import (
	"regexp"
	"strings"
)

const (
	// MinRowsSameDay is the history needed for the 20-day ratio including today.
	MinRowsSameDay = 21
	// MinRowsLagged is the history needed when the latest row is dropped.
	MinRowsLagged = 22
	// HistoryDays is the calendar window fetched during resolution.
	HistoryDays = 60
)

var domestic = regexp.MustCompile(`^\d{6}$`)

// Normalize trims and upper-cases a code and strips a redundant ".KR" suffix
// from six-digit domestic codes.
func Normalize(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if strings.HasSuffix(c, ".KR") && domestic.MatchString(strings.TrimSuffix(c, ".KR")) {
		c = strings.TrimSuffix(c, ".KR")
	}
	return c
}

// IsDomestic reports whether the normalized code is a six-digit exchange code.
func IsDomestic(code string) bool {
	return domestic.MatchString(Normalize(code))
}

// Candidates returns the provider symbols to try, in order.
func Candidates(code string) []string {
	c := Normalize(code)
	if c == "" {
		return nil
	}
	if domestic.MatchString(c) {
		return []string{c + ".KS", c + ".KQ"}
	}
	return []string{c}
}

// MinRows returns the minimum acceptable series length for the mode.
func MinRows(lagged bool) int {
	if lagged {
		return MinRowsLagged
	}
	return MinRowsSameDay
}

// SplitCodes parses comma, whitespace or newline separated input into codes.
func SplitCodes(input string) []string {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ';' || r == ' ' || r == '\n' || r == '\t' || r == '\r'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if c := Normalize(f); c != "" {
			out = append(out, c)
		}
	}
	return out
}
