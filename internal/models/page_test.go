package models

import (
	"math"
	"testing"
)

func TestPage_Bounds(t *testing.T) {
	limit := func(i int) *int { return &i }

	tests := []struct {
		name      string
		page      Page
		total     int
		wantStart int
		wantEnd   int
	}{
		{"no limit", Page{}, 5, 0, 5},
		{"window", Page{Limit: limit(2), Offset: 1}, 5, 1, 3},
		{"zero limit", Page{Limit: limit(0), Offset: 2}, 5, 2, 2},
		{"offset past end", Page{Limit: limit(3), Offset: 9}, 5, 5, 5},
		{"limit past end", Page{Limit: limit(10), Offset: 4}, 5, 4, 5},
		{"max limit", Page{Limit: limit(math.MaxInt), Offset: 1}, 3, 1, 3},
		{"max limit and offset", Page{Limit: limit(math.MaxInt), Offset: math.MaxInt}, 3, 3, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end := tt.page.Bounds(tt.total)
			if start != tt.wantStart || end != tt.wantEnd {
				t.Errorf("Expected [%d, %d), got [%d, %d)", tt.wantStart, tt.wantEnd, start, end)
			}
		})
	}
}
