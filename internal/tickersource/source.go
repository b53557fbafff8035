// Package tickersource loads the watchlist universe from a spreadsheet or a local file.
package tickersource

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrUnauthorized means credentials are missing, invalid or rejected.
	ErrUnauthorized = errors.New("ticker source: unauthorized")
	// ErrUnavailable means the source could not be reached.
	ErrUnavailable = errors.New("ticker source: unavailable")
	// ErrNotFound means the named list does not exist.
	ErrNotFound = errors.New("ticker source: list not found")
)

// Source returns the raw ticker list identified by name.
type Source interface {
	Tickers(ctx context.Context, name string) ([]string, error)
}

// Normalize trims and upper-cases values, drops blanks and duplicates (first
// occurrence wins) and skips a leading "ticker" header.
func Normalize(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	first := true
	for _, v := range values {
		t := strings.ToUpper(strings.TrimSpace(v))
		if t == "" {
			continue
		}
		if first {
			first = false
			if t == "TICKER" {
				continue
			}
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}
