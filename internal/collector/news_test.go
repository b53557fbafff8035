package collector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"RisingStock/internal/model"
)

func TestIsPositiveHeadline(t *testing.T) {
	tests := []struct {
		title string
		want  bool
	}{
		{"FDA to APPROVE new drug", true},
		{"Company posts Record revenue", true},
		{"Shares slide on weak guidance", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.title, func(t *testing.T) {
			assert.Equal(t, tt.want, IsPositiveHeadline(tt.title))
		})
	}
}

func TestSelectNews(t *testing.T) {
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	h := func(n int) time.Time { return now.Add(-time.Duration(n) * time.Hour) }

	items := []model.NewsItem{
		{Title: "a", Published: h(5)},
		{Title: "b launch", Published: h(1)},
		{Title: "c", Published: h(49)},
		{Title: "d", Published: h(2)},
		{Title: "e", Published: h(3)},
		{Title: "f", Published: h(4)},
		{Title: "g", Published: h(6)},
		{Title: "undated"},
	}
	kept, good := SelectNews(items, now)

	titles := make([]string, len(kept))
	for i, k := range kept {
		titles[i] = k.Title
	}
	assert.Equal(t, []string{"b launch", "d", "e", "f", "a"}, titles, "newest five, in order")
	assert.True(t, good)
	assert.True(t, kept[0].Positive)
}

func TestSelectNewsDropsStaleKeepsUndated(t *testing.T) {
	now := time.Date(2026, 3, 5, 12, 0, 0, 0, time.UTC)
	kept, good := SelectNews([]model.NewsItem{
		{Title: "old growth story", Published: now.Add(-49 * time.Hour)},
		{Title: "no timestamp"},
	}, now)
	assert.Len(t, kept, 1)
	assert.Equal(t, "no timestamp", kept[0].Title)
	assert.False(t, good)
}
