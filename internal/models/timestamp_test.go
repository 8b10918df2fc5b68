package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestTimestamp_LegacyOffset(t *testing.T) {
	var ts Timestamp
	if err := json.Unmarshal([]byte(`"2024-01-02T03:04:05+0000"`), &ts); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got := ts.String(); got != "2024-01-02T03:04:05Z" {
		t.Errorf("Expected canonical form, got %s", got)
	}
}

func TestTimestamp_EmptyStaysEmpty(t *testing.T) {
	var doc struct {
		CreatedAt Timestamp `json:"created_at"`
	}
	if err := json.Unmarshal([]byte(`{"created_at":""}`), &doc); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(out) != `{"created_at":""}` {
		t.Errorf("Expected empty timestamp to round-trip, got %s", out)
	}
}

func TestTimestamp_TruncatesToUTCSeconds(t *testing.T) {
	ts := NewTimestamp(time.Date(2024, 1, 2, 4, 4, 5, 999, time.FixedZone("CET", 3600)))
	if got := ts.String(); got != "2024-01-02T03:04:05Z" {
		t.Errorf("Expected 2024-01-02T03:04:05Z, got %s", got)
	}
}
