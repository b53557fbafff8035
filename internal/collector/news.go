package collector

import (
	"sort"
	"strings"
	"time"

	"RisingStock/internal/model"
)

const (
	maxNewsItems = 5
	newsMaxAge   = 48 * time.Hour
)

var positiveKeywords = []string{"launch", "growth", "approve", "contract", "partnership", "record"}

// IsPositiveHeadline reports whether the title contains a positive keyword.
func IsPositiveHeadline(title string) bool {
	lower := strings.ToLower(title)
	for _, k := range positiveKeywords {
		if strings.Contains(lower, k) {
			return true
		}
	}
	return false
}

// SelectNews orders items newest first, keeps at most five, drops items older
// than 48 hours and tags each with its sentiment. Items without a publish time
// are kept. goodNews is true when any kept item is positive.
func SelectNews(items []model.NewsItem, now time.Time) (kept []model.NewsItem, goodNews bool) {
	sorted := append([]model.NewsItem(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Published.After(sorted[j].Published)
	})
	if len(sorted) > maxNewsItems {
		sorted = sorted[:maxNewsItems]
	}

	kept = make([]model.NewsItem, 0, len(sorted))
	for _, n := range sorted {
		if !n.Published.IsZero() && now.Sub(n.Published) > newsMaxAge {
			continue
		}
		n.Positive = IsPositiveHeadline(n.Title)
		goodNews = goodNews || n.Positive
		kept = append(kept, n)
	}
	return kept, goodNews
}
